package audio

import "testing"

func TestResampleSameRateIsCopy(t *testing.T) {
	r := NewResampler(48000, 48000)
	in := []float32{0.1, 0.2, 0.3, 0.4}
	out := r.Resample(in, 2)
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("index %d: got %v, want %v", i, out[i], in[i])
		}
	}
	// must not alias the input
	out[0] = 99
	if in[0] == 99 {
		t.Fatalf("Resample aliased its input buffer")
	}
}

func TestResamplePreservesFrameCountRatio(t *testing.T) {
	const channels = 2
	frames := 48
	in := make([]float32, frames*channels)
	for i := range in {
		in[i] = float32(i)
	}

	r := NewResampler(48000, 44100)
	out := r.Resample(in, channels)

	wantFrames := frames * 44100 / 48000
	gotFrames := len(out) / channels
	if gotFrames != wantFrames {
		t.Fatalf("got %d output frames, want %d", gotFrames, wantFrames)
	}
}

func TestResampleUpsampleGrowsFrameCount(t *testing.T) {
	const channels = 1
	in := make([]float32, 100)
	r := NewResampler(22050, 44100)
	out := r.Resample(in, channels)
	if len(out) != 200 {
		t.Fatalf("got %d samples, want 200", len(out))
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := NewResampler(48000, 44100)
	if out := r.Resample(nil, 2); out != nil {
		t.Fatalf("expected nil output for empty input, got %v", out)
	}
}
