package player

import (
	"context"
	"log"
	"time"

	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/timeline"
)

// pollInterval bounds how long the Worker sleeps between wake signals, so
// even without an explicit mutation it periodically re-checks
// the cache window (spec.md §4.1 Worker step 8).
const pollInterval = 20 * time.Millisecond

// cacheInfoInterval is the spec.md §3/§4.1-mandated refresh rate ("≤ 2 Hz",
// "Every 500 ms").
const cacheInfoInterval = 500 * time.Millisecond

// runWorker is the Worker thread's main loop: one dedicated long-lived
// goroutine that owns the cache (spec.md §4.1, §5).
func (p *Player) runWorker() {
	defer close(p.closed)

	var lastInfo time.Time
	ctx := context.Background()

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()

	for {
		// Step 8: sleep on a short-timeout wake signal so mutations (or the
		// poll interval elapsing) wake it.
		select {
		case <-p.wakeCh:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
		}
		timer.Reset(pollInterval)

		// Step 1: snapshot mutable state under the Player mutex.
		p.mu.Lock()
		if p.closing {
			p.mu.Unlock()
			return
		}
		st := p.state.Clone()
		readAhead, readBehind := p.readAhead, p.readBehind
		timelineRange := p.timelineRange
		p.mu.Unlock()

		// Step 2: compute the video window(s).
		videoWins := loopWindows(st.CurrentTime, readBehind, readAhead, st.CacheDirection, st.Loop, st.InOutRange)

		// Step 3: compute the audio window(s).
		audioOffsetRT := timeline.FromSeconds(st.AudioOffset.Seconds(), st.CurrentTime.Rate)
		audioWins := audioWindows(videoWins, audioOffsetRT, st.CacheDirection)

		// Step 4: evict entries outside the union of windows.
		p.cache.EvictVideoOutside(videoWins)
		p.cache.EvictAudioOutside(audioWins, timelineRange.Start)

		// Step 5 + 6: request missing frames/seconds in scan order matching
		// cache_direction, and reap already-completed futures.
		p.scheduleVideoRequests(ctx, videoWins, st.CacheDirection, timelineRange)
		p.scheduleAudioRequests(ctx, audioWins, st.CacheDirection, timelineRange)
		p.reapVideoFutures()
		p.reapAudioFutures()

		// Cancel in-flight requests whose key fell out of window.
		p.cancelOutOfWindow(videoWins, audioWins, timelineRange)

		// Step 7: every 500ms, recompute and publish CacheInfo.
		if time.Since(lastInfo) >= cacheInfoInterval {
			info := p.cache.ComputeInfo(videoWins[0], timelineRange.Start)
			p.cacheInfoObs.Set(info)
			lastInfo = time.Now()
		}

		p.publishCurrentFrames(st)
	}
}

// scheduleVideoRequests issues read_video for every missing frame-rate-aligned
// time in the windows, in scan order matching dir (forward scans increasing
// time; reverse scans decreasing time).
func (p *Player) scheduleVideoRequests(ctx context.Context, windows []timeline.TimeRange, dir CacheDirection, timelineRange timeline.TimeRange) {
	for _, w := range windows {
		for _, t := range frameTimes(w, p.videoRate, dir) {
			key := t.Rescale(p.videoRate).Value
			if p.cache.HasVideo(t) {
				continue
			}
			p.manager.RequestVideo(ctx, key, t, ioplugin.ReadOptions{})
		}
	}
}

// scheduleAudioRequests issues read_audio for every missing whole second in
// the windows, in scan order matching dir.
func (p *Player) scheduleAudioRequests(ctx context.Context, windows []timeline.TimeRange, dir CacheDirection, timelineRange timeline.TimeRange) {
	for _, w := range windows {
		for _, second := range secondIndices(w, timelineRange.Start, dir) {
			if p.cache.HasAudio(second) {
				continue
			}
			secondStart := timelineRange.Start.Add(timeline.NewRationalTime(second, 1))
			secondRange := timeline.TimeRange{Start: secondStart, Duration: timeline.NewRationalTime(1, 1)}
			p.manager.RequestAudio(ctx, second, secondRange, ioplugin.ReadOptions{})
		}
	}
}

// frameTimes enumerates every frame-aligned RationalTime within w, ordered
// per dir.
func frameTimes(w timeline.TimeRange, rate int64, dir CacheDirection) []timeline.RationalTime {
	start := w.Start.RescaleFloor(rate)
	end := w.End().RescaleFloor(rate)
	if end.Value < start.Value {
		return nil
	}
	out := make([]timeline.RationalTime, 0, end.Value-start.Value+1)
	if dir == DirForward {
		for v := start.Value; v <= end.Value; v++ {
			out = append(out, timeline.NewRationalTime(v, rate))
		}
	} else {
		for v := end.Value; v >= start.Value; v-- {
			out = append(out, timeline.NewRationalTime(v, rate))
		}
	}
	return out
}

// secondIndices enumerates every whole-second offset from timelineStart
// within w, ordered per dir.
func secondIndices(w timeline.TimeRange, timelineStart timeline.RationalTime, dir CacheDirection) []int64 {
	relStart := w.Start.Sub(timelineStart).RescaleFloor(1)
	relEnd := w.End().Sub(timelineStart).RescaleFloor(1)
	if relEnd.Value < relStart.Value {
		return nil
	}
	out := make([]int64, 0, relEnd.Value-relStart.Value+1)
	if dir == DirForward {
		for v := relStart.Value; v <= relEnd.Value; v++ {
			out = append(out, v)
		}
	} else {
		for v := relEnd.Value; v >= relStart.Value; v-- {
			out = append(out, v)
		}
	}
	return out
}

// reapVideoFutures drains resolved video futures into the cache. A failed
// future yields an empty VideoData which the renderer treats as "hold last
// good frame" (spec.md §4.1 Failure semantics) — the Worker does not retry.
func (p *Player) reapVideoFutures() {
	for key, f := range p.manager.PendingVideoKeys() {
		v, ready, err := f.Poll()
		if !ready {
			continue
		}
		p.manager.ReapVideo(key)
		if err != nil {
			log.Printf("player: read_video failed: %v", err)
			continue
		}
		p.cache.PutVideo(&v)
	}
}

// reapAudioFutures drains resolved audio futures into the cache.
func (p *Player) reapAudioFutures() {
	for key, f := range p.manager.PendingAudioKeys() {
		a, ready, err := f.Poll()
		if !ready {
			continue
		}
		p.manager.ReapAudio(key)
		if err != nil {
			log.Printf("player: read_audio failed: %v", err)
			continue
		}
		p.cache.PutAudio(&a)
	}
}

// cancelOutOfWindow cancels in-flight requests whose key no longer falls
// within the current windows (spec.md §5 Cancellation).
func (p *Player) cancelOutOfWindow(videoWins, audioWins []timeline.TimeRange, timelineRange timeline.TimeRange) {
	keepVideo := make(map[int64]struct{})
	for _, w := range videoWins {
		for _, t := range frameTimes(w, p.videoRate, DirForward) {
			keepVideo[t.Rescale(p.videoRate).Value] = struct{}{}
		}
	}
	keepAudio := make(map[int64]struct{})
	for _, w := range audioWins {
		for _, s := range secondIndices(w, timelineRange.Start, DirForward) {
			keepAudio[s] = struct{}{}
		}
	}
	p.manager.CancelOutsideWindow(keepVideo, keepAudio)
}

// publishCurrentFrames updates the current-video/current-audio observers
// from whatever is cached at the player's current time, without blocking on
// I/O.
func (p *Player) publishCurrentFrames(st State) {
	if v, ok := p.cache.Video(st.CurrentTime); ok {
		p.currentVideoObs.Set(v)
	}
	second := st.CurrentTime.Sub(p.timelineRange.Start).RescaleFloor(1).Value
	if a, ok := p.cache.Audio(second); ok {
		p.currentAudioObs.Set(a)
	}
}
