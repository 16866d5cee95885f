package player

import (
	"context"
	"testing"
	"time"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/timeline"
)

// silentPlugin resolves every read instantly with empty data, so the
// background Worker never blocks a test on simulated I/O latency.
type silentPlugin struct{}

func (silentPlugin) GetInfo(ctx context.Context, path string) (ioplugin.Info, error) {
	return ioplugin.Info{}, nil
}

func (silentPlugin) ReadVideo(ctx context.Context, path string, at timeline.RationalTime, opts ioplugin.ReadOptions) (iodata.VideoData, error) {
	return iodata.VideoData{Time: at}, nil
}

func (silentPlugin) ReadAudio(ctx context.Context, path string, second timeline.TimeRange, opts ioplugin.ReadOptions) (iodata.AudioData, error) {
	return iodata.AudioData{}, nil
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	rng := timeline.TimeRange{
		Start:    timeline.NewRationalTime(0, 24),
		Duration: timeline.NewRationalTime(240, 24),
	}
	p := New(Config{
		TimelineRange: rng,
		VideoRate:     24,
		ReadAhead:     timeline.NewRationalTime(24, 24),
		ReadBehind:    timeline.NewRationalTime(24, 24),
		Plugin:        silentPlugin{},
		MediaPath:     "test.mov",
	})
	t.Cleanup(p.Close)
	return p
}

func TestNewPlayerStartsStoppedAtRangeStart(t *testing.T) {
	p := newTestPlayer(t)
	if p.Playback().Get() != Stop {
		t.Fatalf("got playback %v, want Stop", p.Playback().Get())
	}
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(0, 24)) {
		t.Fatalf("got current time %v, want 0/24", p.CurrentTime().Get())
	}
}

func TestTickDoesNothingWhileStopped(t *testing.T) {
	p := newTestPlayer(t)
	p.Tick(100 * time.Millisecond)
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(0, 24)) {
		t.Fatalf("got current time %v, want unchanged 0/24 while stopped", p.CurrentTime().Get())
	}
}

func TestTickAdvancesForward(t *testing.T) {
	p := newTestPlayer(t)
	p.SetPlayback(Forward, false)
	p.Tick(1 * time.Second)

	got := p.CurrentTime().Get()
	want := timeline.NewRationalTime(24, 24)
	if !got.Equal(want) {
		t.Fatalf("got current time %v, want %v after a 1s tick at 24fps", got, want)
	}
}

func TestTickAdvancesReverse(t *testing.T) {
	p := newTestPlayer(t)
	p.Seek(timeline.NewRationalTime(48, 24))
	p.SetPlayback(Reverse, false)
	p.Tick(1 * time.Second)

	got := p.CurrentTime().Get()
	want := timeline.NewRationalTime(24, 24)
	if !got.Equal(want) {
		t.Fatalf("got current time %v, want %v after a 1s reverse tick at 24fps", got, want)
	}
}

func TestSeekClampsIntoTimelineRange(t *testing.T) {
	p := newTestPlayer(t)
	p.Seek(timeline.NewRationalTime(-10, 24))
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(0, 24)) {
		t.Fatalf("got current time %v, want clamped to range start 0/24", p.CurrentTime().Get())
	}

	p.Seek(timeline.NewRationalTime(9999, 24))
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(240, 24)) {
		t.Fatalf("got current time %v, want clamped to range end 240/24", p.CurrentTime().Get())
	}
}

func TestLoopOnceStopsAtRangeEnd(t *testing.T) {
	p := newTestPlayer(t)
	p.SetLoop(Once)
	p.Seek(timeline.NewRationalTime(239, 24))
	p.SetPlayback(Forward, false)
	p.Tick(1 * time.Second)

	if p.Playback().Get() != Stop {
		t.Fatalf("got playback %v, want Stop after reaching range end under Loop::Once", p.Playback().Get())
	}
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(240, 24)) {
		t.Fatalf("got current time %v, want clamped to range end 240/24", p.CurrentTime().Get())
	}
}

func TestLoopAlwaysWrapsToRangeStart(t *testing.T) {
	p := newTestPlayer(t)
	p.SetLoop(LoopAlways)
	p.Seek(timeline.NewRationalTime(239, 24))
	p.SetPlayback(Forward, false)
	p.Tick(1 * time.Second)

	if p.Playback().Get() != Forward {
		t.Fatalf("got playback %v, want Forward to continue under Loop::Always", p.Playback().Get())
	}
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(0, 24)) {
		t.Fatalf("got current time %v, want wrapped to range start 0/24", p.CurrentTime().Get())
	}
}

func TestLoopPingPongReversesDirectionAtRangeEnd(t *testing.T) {
	p := newTestPlayer(t)
	p.SetLoop(PingPong)
	p.Seek(timeline.NewRationalTime(239, 24))
	p.SetPlayback(Forward, false)
	p.Tick(1 * time.Second)

	if p.Playback().Get() != Reverse {
		t.Fatalf("got playback %v, want Reverse after bouncing off the range end under PingPong", p.Playback().Get())
	}
	if !p.CurrentTime().Get().Equal(timeline.NewRationalTime(240, 24)) {
		t.Fatalf("got current time %v, want pinned to range end 240/24", p.CurrentTime().Get())
	}
}

func TestSetVolumeClampsToUnitRange(t *testing.T) {
	p := newTestPlayer(t)
	p.SetVolume(1.5)
	if p.Snapshot().Volume != 1 {
		t.Fatalf("got volume %v, want clamped to 1", p.Snapshot().Volume)
	}
	p.SetVolume(-1)
	if p.Snapshot().Volume != 0 {
		t.Fatalf("got volume %v, want clamped to 0", p.Snapshot().Volume)
	}
}
