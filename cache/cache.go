// Package cache implements the Player's Frame Cache: the two maps
// (video_by_time, audio_by_second) filled by the Worker and drained by the
// renderer and audio callback (spec.md §2, §3).
package cache

import (
	"sort"
	"sync"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// Cache holds decoded video frames keyed by time and audio payloads keyed by
// whole-second offset. It is exclusively owned by the Player; the Worker is
// the only writer, the renderer/audio callback are readers.
type Cache struct {
	mu    sync.RWMutex
	video map[int64]*iodata.VideoData // keyed by RationalTime.Rescale(videoRate).Value
	audio map[int64]*iodata.AudioData // keyed by SecondIndex

	videoRate int64
}

// New creates an empty Cache for video timed at videoRate.
func New(videoRate int64) *Cache {
	return &Cache{
		video:     make(map[int64]*iodata.VideoData),
		audio:     make(map[int64]*iodata.AudioData),
		videoRate: videoRate,
	}
}

func (c *Cache) videoKey(t timeline.RationalTime) int64 {
	return t.Rescale(c.videoRate).Value
}

// PutVideo inserts or replaces a decoded video frame.
func (c *Cache) PutVideo(v *iodata.VideoData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.video[c.videoKey(v.Time)] = v
}

// PutAudio inserts or replaces a decoded one-second audio payload.
func (c *Cache) PutAudio(a *iodata.AudioData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio[a.SecondIndex] = a
}

// Video returns the cached frame at time t, if any.
func (c *Cache) Video(t timeline.RationalTime) (*iodata.VideoData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.video[c.videoKey(t)]
	return v, ok
}

// Audio returns the cached payload for the given whole second, if any.
func (c *Cache) Audio(second int64) (*iodata.AudioData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.audio[second]
	return a, ok
}

// HasVideo reports whether a video frame is cached at t, without copying it.
func (c *Cache) HasVideo(t timeline.RationalTime) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.video[c.videoKey(t)]
	return ok
}

// HasAudio reports whether an audio payload is cached for the given second.
func (c *Cache) HasAudio(second int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.audio[second]
	return ok
}

// EvictVideoOutside drops every cached video frame whose time is not
// contained by any of the given windows.
func (c *Cache) EvictVideoOutside(windows []timeline.TimeRange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.video {
		t := timeline.NewRationalTime(key, c.videoRate)
		if !anyContains(windows, t) {
			delete(c.video, key)
		}
	}
}

// EvictAudioOutside drops every cached audio payload whose second index is
// not contained by any of the given windows (converted to whole seconds).
func (c *Cache) EvictAudioOutside(windows []timeline.TimeRange, timelineStart timeline.RationalTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for second := range c.audio {
		t := timelineStart.Add(timeline.NewRationalTime(second, 1))
		if !anyContains(windows, t) {
			delete(c.audio, second)
		}
	}
}

func anyContains(windows []timeline.TimeRange, t timeline.RationalTime) bool {
	for _, w := range windows {
		if w.ContainsInclusive(t) {
			return true
		}
	}
	return false
}

// VideoCount returns how many video frames are currently cached.
func (c *Cache) VideoCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.video)
}

// AudioCount returns how many audio seconds are currently cached.
func (c *Cache) AudioCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.audio)
}

// VideoRanges returns the contiguous cached video time-ranges, sorted by
// start time, used to build CacheInfo (spec.md §3).
func (c *Cache) VideoRanges() []timeline.TimeRange {
	c.mu.RLock()
	keys := make([]int64, 0, len(c.video))
	for k := range c.video {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return contiguousRanges(keys, c.videoRate, 1)
}

// AudioRanges returns the contiguous cached audio time-ranges (1Hz-aligned),
// sorted by start second.
func (c *Cache) AudioRanges(timelineStart timeline.RationalTime) []timeline.TimeRange {
	c.mu.RLock()
	keys := make([]int64, 0, len(c.audio))
	for k := range c.audio {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	ranges := contiguousRanges(keys, 1, 1)
	out := make([]timeline.TimeRange, len(ranges))
	for i, r := range ranges {
		out[i] = timeline.TimeRange{Start: timelineStart.Add(r.Start), Duration: r.Duration}
	}
	return out
}

// contiguousRanges groups a sorted list of integer keys (at the given rate,
// spaced `step` apart) into maximal contiguous runs.
func contiguousRanges(keys []int64, rate, step int64) []timeline.TimeRange {
	if len(keys) == 0 {
		return nil
	}
	var ranges []timeline.TimeRange
	runStart := keys[0]
	prev := keys[0]
	for _, k := range keys[1:] {
		if k-prev > step {
			ranges = append(ranges, timeline.TimeRange{
				Start:    timeline.NewRationalTime(runStart, rate),
				Duration: timeline.NewRationalTime(prev-runStart+step, rate),
			})
			runStart = k
		}
		prev = k
	}
	ranges = append(ranges, timeline.TimeRange{
		Start:    timeline.NewRationalTime(runStart, rate),
		Duration: timeline.NewRationalTime(prev-runStart+step, rate),
	})
	return ranges
}

// Info mirrors spec.md §3's CacheInfo: video fill %, cached video ranges,
// cached audio ranges. videoWindow is the current target window used to
// compute fill percentage.
type Info struct {
	VideoFillPct float64
	VideoRanges  []timeline.TimeRange
	AudioRanges  []timeline.TimeRange
}

// ComputeInfo recomputes CacheInfo against the given target video window.
func (c *Cache) ComputeInfo(videoWindow timeline.TimeRange, timelineStart timeline.RationalTime) Info {
	videoRanges := c.VideoRanges()
	audioRanges := c.AudioRanges(timelineStart)

	var covered int64
	for _, r := range videoRanges {
		overlap := overlapDuration(r, videoWindow)
		covered += overlap
	}
	windowLen := videoWindow.Duration.Rescale(c.videoRate).Value
	var pct float64
	if windowLen > 0 {
		pct = float64(covered) / float64(windowLen)
		if pct > 1 {
			pct = 1
		}
	}

	return Info{VideoFillPct: pct, VideoRanges: videoRanges, AudioRanges: audioRanges}
}

func overlapDuration(a, b timeline.TimeRange) int64 {
	start := a.Start
	if b.Start.Greater(start) {
		start = b.Start
	}
	end := a.End()
	if b.End().Less(end) {
		end = b.End()
	}
	if end.Less(start) {
		return 0
	}
	return end.Rescale(start.Rate).Sub(start).Value
}
