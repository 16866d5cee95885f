// Command export renders a timeline's in/out range to a video file through
// the offscreen Compositor/FFmpegEncoder path, the headless counterpart to
// cmd/playback's on-screen RunUntilClosed. Grounded on cmd/playback/main.go's
// plugin-resolution and player-construction sequence; diverges after that by
// driving renderer.Exporter instead of opening a visible window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/options"
	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/renderer"
	"github.com/oddlab/reeltime/timeline"
)

func init() {
	runtime.LockOSThread()
}

var ffmpegExtensions = []string{
	".mov", ".mp4", ".m4v", ".mkv", ".avi", ".webm", ".wav", ".mp3", ".flac",
}

func main() {
	outputFile := flag.String("o", "", "output file path (required)")
	width := flag.Int("width", 1920, "output width in pixels")
	height := flag.Int("height", 1080, "output height in pixels")
	bitDepth := flag.Int("bitDepth", 8, "output bit depth (8 or 10)")
	codec := flag.String("codec", "h264", "output codec: h264|hevc")
	inOutRange := flag.String("inOutRange", "", "in/out range to export, as \"start/rate,duration/rate\" (defaults to the full timeline range)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: export -o out.mp4 [flags] <input-timeline>")
		os.Exit(1)
	}
	if *outputFile == "" {
		fmt.Fprintln(os.Stderr, "export: -o output file is required")
		os.Exit(1)
	}
	inputTimeline := flag.Arg(0)

	var explicitRange timeline.TimeRange
	hasExplicitRange := false
	if *inOutRange != "" {
		r, err := parseTimeRange(*inOutRange)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		explicitRange = r
		hasExplicitRange = true
	}

	if err := run(inputTimeline, *outputFile, *width, *height, *bitDepth, *codec, explicitRange, hasExplicitRange); err != nil {
		log.Fatalf("export: %v", err)
	}
}

func run(inputTimeline, outputFile string, width, height, bitDepth int, codec string, explicitRange timeline.TimeRange, hasExplicitRange bool) error {
	registry := ioplugin.NewRegistry()
	for _, ext := range ffmpegExtensions {
		registry.Register(ext, ioplugin.NewFFmpegPlugin())
	}
	registry.Register(filepath.Ext(inputTimeline), ioplugin.NewFFmpegPlugin())

	plugin, err := registry.For(inputTimeline)
	if err != nil {
		return fmt.Errorf("resolving a plugin for %q: %w", inputTimeline, err)
	}

	ctx := context.Background()
	info, err := plugin.GetInfo(ctx, inputTimeline)
	if err != nil {
		return fmt.Errorf("reading info for %q: %w", inputTimeline, err)
	}
	if len(info.Videos) == 0 {
		return fmt.Errorf("%q has no decodable video stream", inputTimeline)
	}

	timelineRange := info.VideoRange
	if hasExplicitRange {
		timelineRange = explicitRange
	}
	videoRate := info.Videos[0].Rate

	pl := player.New(player.Config{
		TimelineRange: timelineRange,
		VideoRate:     videoRate,
		ReadAhead:     timeline.NewRationalTime(videoRate, videoRate),
		ReadBehind:    timeline.NewRationalTime(videoRate, videoRate),
		Plugin:        plugin,
		MediaPath:     inputTimeline,
	})
	defer pl.Close()

	pl.Seek(timelineRange.Start)
	pl.SetPlayback(player.Forward, false)

	opts := options.ExportOptions{
		Width:      width,
		Height:     height,
		FPS:        int(videoRate),
		BitDepth:   bitDepth,
		Codec:      codec,
		OutputFile: outputFile,
	}

	exporter, err := renderer.OpenExporter(opts)
	if err != nil {
		return fmt.Errorf("opening exporter: %w", err)
	}
	defer exporter.Close()

	pipeline := renderer.ColorPipeline{}
	imageOpts := []renderer.ImageOptions{{Pipeline: pipeline}}

	log.Printf("export: %s -> %s, range %s, %dx%d", inputTimeline, outputFile, timelineRange, width, height)
	return exporter.Run(pl, videoRate, imageOpts, renderer.DisplayOptions{}, renderer.CompareOptions{Mode: renderer.CompareA}, renderer.BackgroundOptions{}, timelineRange)
}

// parseTimeRange parses "start/rate,duration/rate" into a TimeRange,
// duplicated from config/parse.go's unexported helper of the same shape
// since that package's CLI surface is playback-specific.
func parseTimeRange(s string) (timeline.TimeRange, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return timeline.TimeRange{}, fmt.Errorf("export: range must be \"start/rate,duration/rate\", got %q", s)
	}
	start, err := parseRationalTime(parts[0])
	if err != nil {
		return timeline.TimeRange{}, err
	}
	duration, err := parseRationalTime(parts[1])
	if err != nil {
		return timeline.TimeRange{}, err
	}
	return timeline.TimeRange{Start: start, Duration: duration}, nil
}

func parseRationalTime(s string) (timeline.RationalTime, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return timeline.RationalTime{}, fmt.Errorf("export: rational time must be \"value/rate\", got %q", s)
	}
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return timeline.RationalTime{}, fmt.Errorf("export: rational time value: %w", err)
	}
	rate, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return timeline.RationalTime{}, fmt.Errorf("export: rational time rate: %w", err)
	}
	return timeline.NewRationalTime(value, rate), nil
}
