package audio

import (
	"github.com/mjibson/go-dsp/fft"
)

// Resampler converts interleaved float32 audio between sample rates using a
// frequency-domain technique: FFT the block, copy the low frequencies into a
// spectrum of the target length, zero-fill (or truncate) the rest, and
// inverse-FFT back to the time domain. This is the same FFT machinery the
// teacher already depends on for spectral analysis (inputs/mic.go), applied
// here to whole-second audio blocks rather than a visualizer window.
//
// A Resampler is rebuilt whenever the (input rate, output rate) pair changes;
// it holds no per-call state beyond that pair, so rebuilding is cheap and the
// render loop does it eagerly rather than caching across rate changes.
type Resampler struct {
	inRate  int
	outRate int
}

// NewResampler creates a Resampler for the given sample-rate pair. If the
// rates are equal, Resample is a no-op copy.
func NewResampler(inRate, outRate int) *Resampler {
	return &Resampler{inRate: inRate, outRate: outRate}
}

// Rates reports the (input, output) pair this Resampler was built for.
func (r *Resampler) Rates() (int, int) { return r.inRate, r.outRate }

// Resample converts an interleaved buffer of `channels` channels from inRate
// to outRate, returning a freshly allocated interleaved buffer.
func (r *Resampler) Resample(interleaved []float32, channels int) []float32 {
	if channels <= 0 || len(interleaved) == 0 {
		return nil
	}
	if r.inRate == r.outRate {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	outFrames := frames * r.outRate / r.inRate
	if outFrames <= 0 {
		return nil
	}

	out := make([]float32, outFrames*channels)
	chanBuf := make([]float64, frames)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			chanBuf[i] = float64(interleaved[i*channels+ch])
		}
		resampled := resampleReal(chanBuf, outFrames)
		for i := 0; i < outFrames; i++ {
			out[i*channels+ch] = float32(resampled[i])
		}
	}
	return out
}

// resampleReal band-limit-resamples a single real-valued channel to outN
// samples via zero-padding/truncation of its FFT spectrum.
func resampleReal(x []float64, outN int) []float64 {
	n := len(x)
	if n == 0 || outN == 0 {
		return make([]float64, outN)
	}

	spectrum := fft.FFTReal(x)
	resized := make([]complex128, outN)

	half := n / 2
	if outN/2 < half {
		half = outN / 2
	}
	for i := 0; i <= half; i++ {
		resized[i] = spectrum[i]
		if i > 0 && i < outN {
			srcIdx := n - i
			dstIdx := outN - i
			if srcIdx >= 0 && srcIdx < n && dstIdx >= 0 && dstIdx < outN {
				resized[dstIdx] = spectrum[srcIdx]
			}
		}
	}

	inverted := fft.IFFT(resized)
	scale := float64(outN) / float64(n)
	out := make([]float64, outN)
	for i, v := range inverted {
		out[i] = real(v) * scale
	}
	return out
}
