package player

import "github.com/oddlab/reeltime/timeline"

// videoWindow computes the oriented TimeRange centered on `current`,
// extending readBehind behind and readAhead ahead of it, in the given
// cache direction (spec.md §4.1 Worker step 2).
//
// "Behind"/"ahead" are relative to the cache direction: a forward direction
// extends ahead toward increasing time and behind toward decreasing time; a
// reverse direction swaps the two, since the cache is trying to stay ahead
// of where playback is about to go next.
func videoWindow(current timeline.RationalTime, readBehind, readAhead timeline.RationalTime, dir CacheDirection) timeline.TimeRange {
	var start, end timeline.RationalTime
	if dir == DirForward {
		start = current.Sub(readBehind)
		end = current.Add(readAhead)
	} else {
		start = current.Sub(readAhead)
		end = current.Add(readBehind)
	}
	return timeline.TimeRange{Start: start, Duration: end.Sub(start)}
}

// loopWindows returns the primary video window plus, when loop is active, a
// second window at the opposite end of the in/out range so loop-points have
// frames ready (spec.md §4.1 Worker step 2).
func loopWindows(current timeline.RationalTime, readBehind, readAhead timeline.RationalTime, dir CacheDirection, loop LoopMode, inOut timeline.TimeRange) []timeline.TimeRange {
	primary := inOut.ClampRange(videoWindow(current, readBehind, readAhead, dir))

	if loop != LoopAlways {
		return []timeline.TimeRange{primary}
	}

	// Opposite end: if running forward, the loop point is range.end wrapping
	// to range.start, so also warm the start of the range; symmetric for
	// reverse.
	var oppositeCenter timeline.RationalTime
	if dir == DirForward {
		oppositeCenter = inOut.Start
	} else {
		oppositeCenter = inOut.End()
	}
	opposite := videoWindow(oppositeCenter, readBehind, readAhead, dir)
	opposite = inOut.ClampRange(opposite)

	return []timeline.TimeRange{primary, opposite}
}

// audioWindows expands each video window by |audioOffset| in the matching
// direction (spec.md §4.1 Worker step 3).
func audioWindows(videoWindows []timeline.TimeRange, audioOffset timeline.RationalTime, dir CacheDirection) []timeline.TimeRange {
	forward := dir == DirForward
	out := make([]timeline.TimeRange, len(videoWindows))
	abs := audioOffset
	if abs.Value < 0 {
		abs = abs.Neg()
	}
	for i, w := range videoWindows {
		out[i] = w.ExpandDirectional(abs, forward)
	}
	return out
}
