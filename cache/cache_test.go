package cache

import (
	"testing"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

func videoAt(t timeline.RationalTime) *iodata.VideoData {
	return &iodata.VideoData{
		Time:   t,
		Layers: []iodata.VideoLayer{{Image: &iodata.Image{Data: []byte{1}}}},
	}
}

func audioAt(second int64) *iodata.AudioData {
	return &iodata.AudioData{
		SecondIndex: second,
		Layers:      []iodata.AudioLayer{{Samples: []float32{0.1}, Channels: 1, SampleRate: 8}},
	}
}

func TestPutAndGetVideo(t *testing.T) {
	c := New(24)
	at := timeline.NewRationalTime(48, 24)
	c.PutVideo(videoAt(at))

	if !c.HasVideo(at) {
		t.Fatalf("expected HasVideo to report true after PutVideo")
	}
	v, ok := c.Video(at)
	if !ok || v == nil {
		t.Fatalf("expected Video to return the cached frame")
	}
	if c.VideoCount() != 1 {
		t.Fatalf("got VideoCount %d, want 1", c.VideoCount())
	}
}

func TestPutAndGetAudio(t *testing.T) {
	c := New(24)
	c.PutAudio(audioAt(3))

	if !c.HasAudio(3) {
		t.Fatalf("expected HasAudio(3) to report true after PutAudio")
	}
	if c.HasAudio(4) {
		t.Fatalf("expected HasAudio(4) to report false, nothing was cached there")
	}
	if c.AudioCount() != 1 {
		t.Fatalf("got AudioCount %d, want 1", c.AudioCount())
	}
}

func TestEvictVideoOutsideDropsFramesOutsideWindows(t *testing.T) {
	c := New(24)
	inWindow := timeline.NewRationalTime(0, 24)
	outOfWindow := timeline.NewRationalTime(240, 24)
	c.PutVideo(videoAt(inWindow))
	c.PutVideo(videoAt(outOfWindow))

	windows := []timeline.TimeRange{
		{Start: timeline.NewRationalTime(0, 24), Duration: timeline.NewRationalTime(24, 24)},
	}
	c.EvictVideoOutside(windows)

	if !c.HasVideo(inWindow) {
		t.Fatalf("expected the in-window frame to survive eviction")
	}
	if c.HasVideo(outOfWindow) {
		t.Fatalf("expected the out-of-window frame to be evicted")
	}
}

func TestEvictAudioOutsideDropsSecondsOutsideWindows(t *testing.T) {
	c := New(24)
	start := timeline.NewRationalTime(0, 1)
	c.PutAudio(audioAt(0))
	c.PutAudio(audioAt(50))

	windows := []timeline.TimeRange{
		{Start: timeline.NewRationalTime(0, 1), Duration: timeline.NewRationalTime(2, 1)},
	}
	c.EvictAudioOutside(windows, start)

	if !c.HasAudio(0) {
		t.Fatalf("expected second 0 to survive eviction")
	}
	if c.HasAudio(50) {
		t.Fatalf("expected second 50 to be evicted")
	}
}

func TestVideoRangesGroupsContiguousFrames(t *testing.T) {
	c := New(24)
	for _, v := range []int64{0, 1, 2, 10, 11} {
		c.PutVideo(videoAt(timeline.NewRationalTime(v, 24)))
	}

	ranges := c.VideoRanges()
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2 contiguous runs", len(ranges))
	}
	if ranges[0].Start.Value != 0 || ranges[0].Duration.Value != 3 {
		t.Fatalf("got first range %+v, want start=0 duration=3", ranges[0])
	}
	if ranges[1].Start.Value != 10 || ranges[1].Duration.Value != 2 {
		t.Fatalf("got second range %+v, want start=10 duration=2", ranges[1])
	}
}

func TestComputeInfoFillPctReflectsCoverage(t *testing.T) {
	c := New(24)
	window := timeline.TimeRange{
		Start:    timeline.NewRationalTime(0, 24),
		Duration: timeline.NewRationalTime(24, 24),
	}
	for _, v := range []int64{0, 1, 2, 3} {
		c.PutVideo(videoAt(timeline.NewRationalTime(v, 24)))
	}

	info := c.ComputeInfo(window, window.Start)
	if info.VideoFillPct <= 0 || info.VideoFillPct > 1 {
		t.Fatalf("got fill pct %v, want in (0, 1]", info.VideoFillPct)
	}
}

func TestComputeInfoFillPctZeroWhenCacheEmpty(t *testing.T) {
	c := New(24)
	window := timeline.TimeRange{
		Start:    timeline.NewRationalTime(0, 24),
		Duration: timeline.NewRationalTime(24, 24),
	}
	info := c.ComputeInfo(window, window.Start)
	if info.VideoFillPct != 0 {
		t.Fatalf("got fill pct %v, want 0 for an empty cache", info.VideoFillPct)
	}
}
