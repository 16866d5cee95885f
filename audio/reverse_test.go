package audio

import "testing"

func TestReverseInterleavedKeepsFramesIntact(t *testing.T) {
	// 3 stereo frames: (1,2) (3,4) (5,6)
	samples := []float32{1, 2, 3, 4, 5, 6}
	reverseInterleaved(samples, 2)

	want := []float32{5, 6, 3, 4, 1, 2}
	for i, v := range want {
		if samples[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, samples, want)
		}
	}
}

func TestReverseInterleavedOddFrameCount(t *testing.T) {
	samples := []float32{1, 2, 3}
	reverseInterleaved(samples, 1)
	want := []float32{3, 2, 1}
	for i, v := range want {
		if samples[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, samples, want)
		}
	}
}

func TestReversedCopyLeavesInputUntouched(t *testing.T) {
	samples := []float32{1, 2, 3, 4}
	out := reversedCopy(samples, 2)

	if samples[0] != 1 || samples[1] != 2 {
		t.Fatalf("input was mutated: %v", samples)
	}
	want := []float32{3, 4, 1, 2}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("index %d: got %v, want %v", i, out, want)
		}
	}
}
