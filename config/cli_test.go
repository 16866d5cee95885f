package config

import (
	"testing"

	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/renderer"
)

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"movie.mov"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InputTimeline != "movie.mov" {
		t.Fatalf("got input %q, want movie.mov", cfg.InputTimeline)
	}
	if cfg.WindowW != 1280 || cfg.WindowH != 720 {
		t.Fatalf("got window size %dx%d, want 1280x720", cfg.WindowW, cfg.WindowH)
	}
	if cfg.Playback != player.Stop {
		t.Fatalf("got playback %v, want Stop", cfg.Playback)
	}
	if cfg.LUTOrder != renderer.LUTPreColorConfig {
		t.Fatalf("got lut order %v, want PreColorConfig", cfg.LUTOrder)
	}
}

func TestParseArgsMissingInputIsMalformed(t *testing.T) {
	if _, err := ParseArgs([]string{"-fullscreen"}); err == nil {
		t.Fatalf("expected an error for a missing <input-timeline> argument")
	}
}

func TestParseArgsHelpShortCircuits(t *testing.T) {
	cfg, err := ParseArgs([]string{"-help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Help {
		t.Fatalf("expected Help to be true")
	}
}

func TestParseArgsParsesSeekAndPlayback(t *testing.T) {
	cfg, err := ParseArgs([]string{"-playback", "reverse", "-seek", "108/24", "movie.mov"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Playback != player.Reverse {
		t.Fatalf("got playback %v, want Reverse", cfg.Playback)
	}
	if !cfg.HasSeek {
		t.Fatalf("expected HasSeek to be true")
	}
	if cfg.Seek.Value != 108 || cfg.Seek.Rate != 24 {
		t.Fatalf("got seek %+v, want {108 24}", cfg.Seek)
	}
}

func TestParseArgsRejectsBadHUDValue(t *testing.T) {
	if _, err := ParseArgs([]string{"-hud", "2", "movie.mov"}); err == nil {
		t.Fatalf("expected an error for -hud 2")
	}
}

func TestParseArgsRejectsBadLUTOrder(t *testing.T) {
	if _, err := ParseArgs([]string{"-lutOrder", "Nonsense", "movie.mov"}); err == nil {
		t.Fatalf("expected an error for an unrecognized -lutOrder value")
	}
}
