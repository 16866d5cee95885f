package iodata

import "github.com/oddlab/reeltime/timeline"

// VideoLayer is one composited source within a VideoData sample: an image
// plus the transition (if any) active at this time.
type VideoLayer struct {
	Image      *Image
	Transition *timeline.Transition
}

// VideoData is the unit produced by the I/O collaborator's read_video and
// held in the Frame Cache keyed by time (spec.md §3).
type VideoData struct {
	Time   timeline.RationalTime
	Layers []VideoLayer
}

// Empty reports whether v carries no layers with decoded images — the
// "hold last good frame" sentinel (spec.md §4.1 Failure semantics).
func (v *VideoData) Empty() bool {
	if v == nil || len(v.Layers) == 0 {
		return true
	}
	for _, l := range v.Layers {
		if !l.Image.Empty() {
			return false
		}
	}
	return true
}

// AudioLayer is one clip's contribution to a one-second AudioData sample.
type AudioLayer struct {
	Samples       []float32 // interleaved, channel count implied by the clip
	Channels      int
	SampleRate    int
	ClipRange     timeline.TimeRange
	InTransition  *timeline.Transition
	OutTransition *timeline.Transition
	ChannelMuteSource bool // true if this layer originates from a muted channel source
}

// AudioData is the unit produced by the I/O collaborator's read_audio and
// held in the Frame Cache keyed by whole second offset from the timeline
// start (spec.md §3, GLOSSARY "Second-indexed audio").
type AudioData struct {
	SecondIndex int64
	Layers      []AudioLayer
}

// Empty reports whether a carries no sample data — treated as silence by the
// audio callback (spec.md §4.1 Failure semantics).
func (a *AudioData) Empty() bool {
	if a == nil || len(a.Layers) == 0 {
		return true
	}
	for _, l := range a.Layers {
		if len(l.Samples) > 0 {
			return false
		}
	}
	return true
}
