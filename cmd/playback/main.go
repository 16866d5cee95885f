// Command playback opens a single media file as a timeline and drives it
// through the Player/Audio/Renderer trio. Grounded on the teacher's
// cmd/main.go: same flag-parsing entrypoint shape, same
// runtime.LockOSThread()-in-init() requirement for owning a GL context on
// the main thread, same log.Fatalf-on-setup-failure style.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/oddlab/reeltime/audio"
	"github.com/oddlab/reeltime/config"
	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/renderer"
	"github.com/oddlab/reeltime/timeline"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Help {
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("playback: %v", err)
	}
}

// ffmpegExtensions lists the container/codec extensions FFmpegPlugin
// handles, mirroring the breadth of the teacher's extension-keyed channel
// dispatch rather than registering only the one file passed on the command
// line.
var ffmpegExtensions = []string{
	".mov", ".mp4", ".m4v", ".mkv", ".avi", ".webm", ".wav", ".mp3", ".flac",
}

func run(cfg *config.Config) error {
	registry := ioplugin.NewRegistry()
	for _, ext := range ffmpegExtensions {
		registry.Register(ext, ioplugin.NewFFmpegPlugin())
	}
	registry.Register(filepath.Ext(cfg.InputTimeline), ioplugin.NewFFmpegPlugin())

	plugin, err := registry.For(cfg.InputTimeline)
	if err != nil {
		return fmt.Errorf("resolving a plugin for %q: %w", cfg.InputTimeline, err)
	}

	ctx := context.Background()
	info, err := plugin.GetInfo(ctx, cfg.InputTimeline)
	if err != nil {
		return fmt.Errorf("reading info for %q: %w", cfg.InputTimeline, err)
	}
	if len(info.Videos) == 0 {
		return fmt.Errorf("%q has no decodable video stream", cfg.InputTimeline)
	}

	timelineRange := info.VideoRange
	if cfg.HasInOutRange {
		timelineRange = cfg.InOutRange
	}

	videoRate := info.Videos[0].Rate
	pl := player.New(player.Config{
		TimelineRange: timelineRange,
		VideoRate:     videoRate,
		ReadAhead:     timeline.NewRationalTime(videoRate, videoRate), // 1 second
		ReadBehind:    timeline.NewRationalTime(videoRate, videoRate), // 1 second
		Plugin:        plugin,
		MediaPath:     cfg.InputTimeline,
	})
	defer pl.Close()

	if cfg.HasSeek {
		pl.Seek(cfg.Seek)
	}
	pl.SetPlayback(cfg.Playback, false)

	out, err := audio.NewOutput(pl, info.Audio.Channels, info.Audio.SampleRate)
	if err != nil {
		log.Printf("playback: audio output unavailable, continuing silent: %v", err)
	} else {
		defer out.Stop()
		if err := out.Start(); err != nil {
			log.Printf("playback: failed to start audio output: %v", err)
		}
	}

	pipeline := renderer.ColorPipeline{
		OCIO: renderer.OCIOOptions{
			ConfigPath: cfg.ColorConfig,
			Input:      cfg.ColorInput,
			Display:    cfg.ColorDisplay,
			View:       cfg.ColorView,
		},
		LUT: renderer.LUTOptions{Path: cfg.LUT, Order: cfg.LUTOrder},
	}
	if cfg.Log {
		log.Printf("playback: color pipeline key %q", pipeline.Key())
	}

	log.Printf("playback: %s ready, timeline %s, window %dx%d", cfg.InputTimeline, timelineRange, cfg.WindowW, cfg.WindowH)

	win, err := renderer.OpenWindow(cfg.WindowW, cfg.WindowH, filepath.Base(cfg.InputTimeline), cfg.Fullscreen)
	if err != nil {
		log.Printf("playback: no display available, running headless: %v", err)
		return tickUntilStopped(pl)
	}
	defer win.Close()

	imageOpts := []renderer.ImageOptions{{Pipeline: pipeline}}
	return win.RunUntilClosed(pl, imageOpts, renderer.DisplayOptions{}, renderer.CompareOptions{Mode: renderer.CompareA}, renderer.BackgroundOptions{})
}

// tickUntilStopped drives the Player's clock at a fixed rate until playback
// returns to Stop (end-of-range under Loop::Once, or an explicit stop),
// logging position at a coarse interval. Compositor drawing is omitted here
// since it requires a bound GL context this headless CLI does not open.
func tickUntilStopped(pl *player.Player) error {
	const tickInterval = time.Second / 60
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	lastLog := time.Now()
	for range ticker.C {
		pl.Tick(tickInterval)
		if pl.Playback().Get() == player.Stop {
			return nil
		}
		if time.Since(lastLog) >= time.Second {
			log.Printf("playback: current_time=%s", pl.CurrentTime().Get())
			lastLog = time.Now()
		}
	}
	return nil
}
