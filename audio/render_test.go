package audio

import (
	"context"
	"testing"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/timeline"
)

// silentPlugin never resolves a frame; only used to satisfy the Manager's
// Plugin dependency in Engine tests that never reach an I/O request.
type silentPlugin struct{}

func (silentPlugin) GetInfo(ctx context.Context, path string) (ioplugin.Info, error) {
	return ioplugin.Info{}, nil
}

func (silentPlugin) ReadVideo(ctx context.Context, path string, t timeline.RationalTime, opts ioplugin.ReadOptions) (iodata.VideoData, error) {
	return iodata.VideoData{}, nil
}

func (silentPlugin) ReadAudio(ctx context.Context, path string, r timeline.TimeRange, opts ioplugin.ReadOptions) (iodata.AudioData, error) {
	return iodata.AudioData{}, nil
}

func newTestPlayer() *player.Player {
	r := timeline.TimeRange{Start: timeline.NewRationalTime(0, 1), Duration: timeline.NewRationalTime(10, 1)}
	return player.New(player.Config{
		TimelineRange: r,
		VideoRate:     24,
		ReadAhead:     timeline.NewRationalTime(2, 1),
		ReadBehind:    timeline.NewRationalTime(1, 1),
		Plugin:        silentPlugin{},
		MediaPath:     "test.mov",
	})
}

func TestToDeviceChannelsUpmixZeroPads(t *testing.T) {
	mono := []float32{1, 2, 3}
	out := toDeviceChannels(mono, 1, 2)
	want := []float32{1, 0, 2, 0, 3, 0}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, out, want)
		}
	}
}

func TestToDeviceChannelsDownmixAveragesStereoToMono(t *testing.T) {
	stereo := []float32{1, 3, 3, 5}
	out := toDeviceChannels(stereo, 2, 1)
	want := []float32{2, 4}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, out, want)
		}
	}
}

func TestToDeviceChannelsSameChannelsIsIdentity(t *testing.T) {
	stereo := []float32{1, 2, 3, 4}
	out := toDeviceChannels(stereo, 2, 2)
	if len(out) != len(stereo) {
		t.Fatalf("got len %d, want %d", len(out), len(stereo))
	}
}

func TestCopyFramesStopsAtDestinationCapacity(t *testing.T) {
	dst := make([]float32, 4) // 2 stereo frames
	src := []float32{1, 2, 3, 4, 5, 6}

	n := copyFrames(dst, 0, src, 2, 2)
	if n != 2 {
		t.Fatalf("got %d frames copied, want 2", n)
	}
	want := []float32{1, 2, 3, 4}
	for i, v := range want {
		if dst[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, dst, want)
		}
	}
}

func TestCopyFramesRespectsOffset(t *testing.T) {
	dst := make([]float32, 4)
	src := []float32{9, 9}

	n := copyFrames(dst, 1, src, 2, 2)
	if n != 1 {
		t.Fatalf("got %d frames copied, want 1", n)
	}
	if dst[2] != 9 || dst[3] != 9 {
		t.Fatalf("frame not written at offset: %v", dst)
	}
}

func TestEngineRenderSilentWhenStopped(t *testing.T) {
	pl := newTestPlayer()
	defer pl.Close()

	e := NewEngine()
	out := make([]float32, 8)
	for i := range out {
		out[i] = 1
	}

	e.Render(pl, out, 2, 44100)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("index %d: got %v, want silence while stopped", i, v)
		}
	}
}

func TestEngineRenderSilentOnUnderrun(t *testing.T) {
	pl := newTestPlayer()
	defer pl.Close()
	pl.SetPlayback(player.Forward, false)

	e := NewEngine()
	out := make([]float32, 8)

	// Nothing has been cached yet, so even though playback is running the
	// engine must hold silence rather than panic or read garbage.
	e.Render(pl, out, 2, 44100)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("index %d: got %v, want silence on underrun", i, v)
		}
	}
}

func TestEngineRenderMixesCachedSecond(t *testing.T) {
	pl := newTestPlayer()
	defer pl.Close()
	pl.SetPlayback(player.Forward, false)

	const sampleRate = 8
	samples := make([]float32, sampleRate*2) // 1 second, stereo, constant 0.5
	for i := range samples {
		samples[i] = 0.5
	}
	pl.Cache().PutAudio(&iodata.AudioData{
		SecondIndex: 0,
		Layers: []iodata.AudioLayer{{
			Samples:    samples,
			Channels:   2,
			SampleRate: sampleRate,
			ClipRange: timeline.TimeRange{
				Start:    timeline.NewRationalTime(0, 1),
				Duration: timeline.NewRationalTime(1, 1),
			},
		}},
	})

	e := NewEngine()
	out := make([]float32, 4) // 2 stereo frames at device rate == sampleRate
	e.Render(pl, out, 2, sampleRate)

	nonZero := false
	for _, v := range out {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("expected mixed audio, got silence: %v", out)
	}
}
