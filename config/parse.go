package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oddlab/reeltime/timeline"
)

func parseWindowSize(s string) (w, h int, err error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: -windowSize must be WxH, got %q", s)
	}
	w, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("config: -windowSize width: %w", err)
	}
	h, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("config: -windowSize height: %w", err)
	}
	return w, h, nil
}

// parseRationalTime parses "value/rate" (e.g. "240/24") into a RationalTime.
func parseRationalTime(s string) (timeline.RationalTime, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return timeline.RationalTime{}, fmt.Errorf("config: rational time must be \"value/rate\", got %q", s)
	}
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return timeline.RationalTime{}, fmt.Errorf("config: rational time value: %w", err)
	}
	rate, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return timeline.RationalTime{}, fmt.Errorf("config: rational time rate: %w", err)
	}
	return timeline.NewRationalTime(value, rate), nil
}

// parseTimeRange parses "start/rate,duration/rate" into a TimeRange.
func parseTimeRange(s string) (timeline.TimeRange, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return timeline.TimeRange{}, fmt.Errorf("config: time range must be \"start/rate,duration/rate\", got %q", s)
	}
	start, err := parseRationalTime(parts[0])
	if err != nil {
		return timeline.TimeRange{}, err
	}
	duration, err := parseRationalTime(parts[1])
	if err != nil {
		return timeline.TimeRange{}, err
	}
	return timeline.TimeRange{Start: start, Duration: duration}, nil
}
