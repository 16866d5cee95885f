package audio

import (
	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// transitionInSeconds returns the duration a transition occupies, or 0 if t is
// nil or not a fade/dissolve kind relevant to gain envelopes.
func transitionInSeconds(t *timeline.Transition) float64 {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case timeline.TransitionFadeIn, timeline.TransitionDissolve:
		return t.InOffset.Seconds()
	default:
		return 0
	}
}

func transitionOutSeconds(t *timeline.Transition) float64 {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case timeline.TransitionFadeOut, timeline.TransitionDissolve:
		return t.OutOffset.Seconds()
	default:
		return 0
	}
}

// applyTransitionFades multiplies samples (interleaved, channels channels,
// sampleRate Hz) in place by the linear fade envelope implied by layer's
// clip-relative transitions. sinceClipStart is the number of seconds between
// the start of layer.ClipRange and the first frame of samples, so a fade
// spanning a second boundary still applies correctly to later fetches of the
// same clip.
func applyTransitionFades(samples []float32, channels, sampleRate int, layer iodata.AudioLayer, sinceClipStart float64) {
	inDur := transitionInSeconds(layer.InTransition)
	outDur := transitionOutSeconds(layer.OutTransition)
	if inDur <= 0 && outDur <= 0 {
		return
	}

	clipDur := layer.ClipRange.Duration.Seconds()
	frames := len(samples) / channels

	for i := 0; i < frames; i++ {
		t := sinceClipStart + float64(i)/float64(sampleRate)
		gain := 1.0
		if inDur > 0 && t < inDur {
			g := t / inDur
			if g < 0 {
				g = 0
			}
			gain *= g
		}
		if outDur > 0 && t > clipDur-outDur {
			g := (clipDur - t) / outDur
			if g < 0 {
				g = 0
			}
			gain *= g
		}
		if gain == 1.0 {
			continue
		}
		for c := 0; c < channels; c++ {
			samples[i*channels+c] *= float32(gain)
		}
	}
}
