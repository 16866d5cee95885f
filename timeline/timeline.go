package timeline

import (
	"encoding/json"
	"fmt"
	"io"
)

// TransitionKind names a clip-boundary transition shape.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionDissolve
	TransitionFadeIn
	TransitionFadeOut
)

// Transition describes the fade envelope applied at a clip boundary. Offsets
// are durations (in the clip's own rate) measured inward from the cut point.
type Transition struct {
	Kind      TransitionKind
	InOffset  RationalTime
	OutOffset RationalTime
}

// MediaKind distinguishes video-bearing from audio-bearing clips; a clip may
// be both.
type MediaKind int

const (
	MediaVideo MediaKind = 1 << iota
	MediaAudio
)

// Clip is a media reference plus its active sub-range within the timeline.
type Clip struct {
	Name         string
	MediaPath    string
	Kind         MediaKind
	SourceRange  TimeRange // the clip's range within its own source media
	TimelineSpan TimeRange // where this clip sits on the timeline
	InTransition *Transition
	OutTransition *Transition
}

// Timeline is an ordered arrangement of clips with in/out transitions and
// per-clip time ranges (spec.md GLOSSARY).
type Timeline struct {
	Name  string
	Range TimeRange
	Clips []Clip
}

// ClipAt returns the clip (if any) whose TimelineSpan contains t.
func (t *Timeline) ClipAt(at RationalTime) (*Clip, bool) {
	for i := range t.Clips {
		if t.Clips[i].TimelineSpan.Contains(at) {
			return &t.Clips[i], true
		}
	}
	return nil, false
}

// --- JSON document decoding -------------------------------------------------
//
// Full OpenTimelineIO schema parsing is out of scope (spec.md §1 Non-goals);
// this decodes only the fields the Player needs: clip ranges, transitions,
// and media references by path. The document shape below is a reduced,
// OTIO-inspired JSON schema.

type docTime struct {
	Value float64 `json:"value"`
	Rate  float64 `json:"rate"`
}

func (d docTime) toRational() RationalTime {
	return NewRationalTime(int64(d.Value), int64(d.Rate))
}

type docRange struct {
	Start    docTime `json:"start_time"`
	Duration docTime `json:"duration"`
}

func (d docRange) toRange() TimeRange {
	return TimeRange{Start: d.Start.toRational(), Duration: d.Duration.toRational()}
}

type docTransition struct {
	Kind      string  `json:"kind"`
	InOffset  docTime `json:"in_offset"`
	OutOffset docTime `json:"out_offset"`
}

func (d *docTransition) toTransition() *Transition {
	if d == nil {
		return nil
	}
	kind := TransitionNone
	switch d.Kind {
	case "dissolve":
		kind = TransitionDissolve
	case "fade_in":
		kind = TransitionFadeIn
	case "fade_out":
		kind = TransitionFadeOut
	}
	return &Transition{Kind: kind, InOffset: d.InOffset.toRational(), OutOffset: d.OutOffset.toRational()}
}

type docClip struct {
	Name          string         `json:"name"`
	MediaPath     string         `json:"media_path"`
	HasVideo      bool           `json:"has_video"`
	HasAudio      bool           `json:"has_audio"`
	SourceRange   docRange       `json:"source_range"`
	TimelineSpan  docRange       `json:"timeline_span"`
	InTransition  *docTransition `json:"in_transition"`
	OutTransition *docTransition `json:"out_transition"`
}

type document struct {
	Name  string    `json:"name"`
	Range docRange  `json:"global_range"`
	Clips []docClip `json:"clips"`
}

// Decode parses a reduced OTIO-style JSON timeline document.
func Decode(r io.Reader) (*Timeline, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("timeline: decode document: %w", err)
	}

	tl := &Timeline{Name: doc.Name, Range: doc.Range.toRange()}
	for _, c := range doc.Clips {
		var kind MediaKind
		if c.HasVideo {
			kind |= MediaVideo
		}
		if c.HasAudio {
			kind |= MediaAudio
		}
		tl.Clips = append(tl.Clips, Clip{
			Name:          c.Name,
			MediaPath:     c.MediaPath,
			Kind:          kind,
			SourceRange:   c.SourceRange.toRange(),
			TimelineSpan:  c.TimelineSpan.toRange(),
			InTransition:  c.InTransition.toTransition(),
			OutTransition: c.OutTransition.toTransition(),
		})
	}
	return tl, nil
}
