package timeline

// TimeRange is a start point plus a duration, both RationalTime.
type TimeRange struct {
	Start    RationalTime
	Duration RationalTime
}

// NewTimeRange builds a TimeRange.
func NewTimeRange(start, duration RationalTime) TimeRange {
	return TimeRange{Start: start, Duration: duration}
}

// End returns Start + Duration, at Start's rate.
func (r TimeRange) End() RationalTime {
	return r.Start.Add(r.Duration)
}

// Contains reports whether t falls within [Start, End).
func (r TimeRange) Contains(t RationalTime) bool {
	return t.GreaterEqual(r.Start) && t.Less(r.End())
}

// ContainsInclusive reports whether t falls within [Start, End], used where
// the boundary tie-break matters (see player loop logic).
func (r TimeRange) ContainsInclusive(t RationalTime) bool {
	return t.GreaterEqual(r.Start) && t.LessEqual(r.End())
}

// Clamp returns t clamped into [Start, End].
func (r TimeRange) Clamp(t RationalTime) RationalTime {
	if t.Less(r.Start) {
		return r.Start
	}
	if t.Greater(r.End()) {
		return r.End()
	}
	return t
}

// ClampRange returns other clamped so that it is fully contained in r.
func (r TimeRange) ClampRange(other TimeRange) TimeRange {
	start := r.Clamp(other.Start)
	end := r.Clamp(other.End())
	if end.Less(start) {
		end = start
	}
	return TimeRange{Start: start, Duration: end.Sub(start)}
}

// Overlaps reports whether r and other share any time.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Less(other.End()) && other.Start.Less(r.End())
}

// Union returns the smallest TimeRange covering both r and other. The result
// is expressed at r.Start's rate.
func (r TimeRange) Union(other TimeRange) TimeRange {
	start := r.Start
	if other.Start.Less(start) {
		start = other.Start
	}
	end := r.End()
	oEnd := other.End()
	if oEnd.Greater(end) {
		end = oEnd
	}
	return TimeRange{Start: start, Duration: end.Sub(start)}
}

// Expand returns r extended by amount on both ends (amount may be negative to
// shrink; the duration is not guarded and goes below zero when amount is
// less than minus half of it; callers clamp separately when a bound must not
// be exceeded).
func (r TimeRange) Expand(amount RationalTime) TimeRange {
	start := r.Start.Sub(amount)
	end := r.End().Add(amount)
	dur := end.Sub(start)
	return TimeRange{Start: start, Duration: dur}
}

// ExpandDirectional extends r by `amount` only in the given direction: a
// positive direction extends the end, a negative direction extends the
// start. Used to build the audio window (video window expanded by
// audio_offset "in the matching direction").
func (r TimeRange) ExpandDirectional(amount RationalTime, forward bool) TimeRange {
	if forward {
		return TimeRange{Start: r.Start, Duration: r.Duration.Add(amount)}
	}
	newStart := r.Start.Sub(amount)
	return TimeRange{Start: newStart, Duration: r.End().Sub(newStart)}
}
