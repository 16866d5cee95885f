// Package config holds the playback engine's command-line surface and the
// JSON-persisted options a host window saves/restores, mirroring the
// teacher's cmd/main.go flag-wiring style (options/options.go's
// pointer-field struct filled in by flag.*) generalized from "launch one
// Shadertoy shader" to "open one timeline."
package config

import (
	"flag"
	"fmt"

	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/renderer"
	"github.com/oddlab/reeltime/timeline"
)

// Config is the parsed command line: the minimal CLI surface of the example
// host, one field per flag.
type Config struct {
	InputTimeline string

	CompareFile  string
	WindowW      int
	WindowH      int
	Fullscreen   bool
	HUD          bool
	Playback     player.PlaybackMode
	Seek         timeline.RationalTime
	HasSeek      bool
	InOutRange   timeline.TimeRange
	HasInOutRange bool

	ColorConfig  string
	ColorInput   string
	ColorDisplay string
	ColorView    string
	LUT          string
	LUTOrder     renderer.LUTOrder

	Log  bool
	Help bool
}

// ParseArgs parses args (excluding the program name, i.e. os.Args[1:]) into
// a Config. It returns an error for a malformed argument list; the caller
// maps that (and Help) to the documented exit code 1.
func ParseArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("reeltime", flag.ContinueOnError)

	cfg := &Config{}
	compareFile := fs.String("compare", "", "compare-mode timeline/config file")
	windowSize := fs.String("windowSize", "1280x720", "window size as WxH")
	fullscreen := fs.Bool("fullscreen", false, "start in fullscreen")
	hud := fs.Int("hud", 0, "show HUD overlay (0 or 1)")
	playback := fs.String("playback", "stop", "initial playback mode: stop|forward|reverse")
	seek := fs.String("seek", "", "initial seek position, as a rational time \"value/rate\"")
	inOutRange := fs.String("inOutRange", "", "in/out range, as \"start/rate,duration/rate\"")
	colorConfig := fs.String("colorConfig", "", "OCIO color config file")
	colorInput := fs.String("colorInput", "", "OCIO input color space name")
	colorDisplay := fs.String("colorDisplay", "", "OCIO display name")
	colorView := fs.String("colorView", "", "OCIO view name")
	lut := fs.String("lut", "", "user LUT file")
	lutOrder := fs.String("lutOrder", "PreColorConfig", "PreColorConfig|PostColorConfig")
	logFlag := fs.Bool("log", false, "enable verbose logging")
	help := fs.Bool("help", false, "show help message")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Help = *help
	if cfg.Help {
		fs.Usage()
		return cfg, nil
	}

	if fs.NArg() < 1 {
		return nil, fmt.Errorf("config: missing required <input-timeline> argument")
	}
	cfg.InputTimeline = fs.Arg(0)

	cfg.CompareFile = *compareFile
	w, h, err := parseWindowSize(*windowSize)
	if err != nil {
		return nil, err
	}
	cfg.WindowW, cfg.WindowH = w, h
	cfg.Fullscreen = *fullscreen
	if *hud != 0 && *hud != 1 {
		return nil, fmt.Errorf("config: -hud must be 0 or 1, got %d", *hud)
	}
	cfg.HUD = *hud == 1

	mode, err := parsePlaybackMode(*playback)
	if err != nil {
		return nil, err
	}
	cfg.Playback = mode

	if *seek != "" {
		rt, err := parseRationalTime(*seek)
		if err != nil {
			return nil, err
		}
		cfg.Seek = rt
		cfg.HasSeek = true
	}

	if *inOutRange != "" {
		r, err := parseTimeRange(*inOutRange)
		if err != nil {
			return nil, err
		}
		cfg.InOutRange = r
		cfg.HasInOutRange = true
	}

	cfg.ColorConfig = *colorConfig
	cfg.ColorInput = *colorInput
	cfg.ColorDisplay = *colorDisplay
	cfg.ColorView = *colorView
	cfg.LUT = *lut

	switch *lutOrder {
	case "PreColorConfig":
		cfg.LUTOrder = renderer.LUTPreColorConfig
	case "PostColorConfig":
		cfg.LUTOrder = renderer.LUTPostColorConfig
	default:
		return nil, fmt.Errorf("config: -lutOrder must be PreColorConfig or PostColorConfig, got %q", *lutOrder)
	}

	cfg.Log = *logFlag
	return cfg, nil
}

func parsePlaybackMode(s string) (player.PlaybackMode, error) {
	switch s {
	case "stop":
		return player.Stop, nil
	case "forward":
		return player.Forward, nil
	case "reverse":
		return player.Reverse, nil
	default:
		return player.Stop, fmt.Errorf("config: -playback must be stop, forward, or reverse, got %q", s)
	}
}
