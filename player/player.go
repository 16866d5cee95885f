package player

import (
	"sync"
	"time"

	"github.com/oddlab/reeltime/cache"
	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/ioplugin"
	"github.com/oddlab/reeltime/observer"
	"github.com/oddlab/reeltime/timeline"
)

// Player is a time-authoritative state machine that advances a current time
// under a playback mode and loop policy; owns the read-ahead/read-behind
// cache of decoded video frames and audio packets; coordinates the I/O
// request pipeline with the audio callback thread and the rendering
// consumer (spec.md §1).
type Player struct {
	// mu guards state and cache-adjacent bookkeeping; wakeCh wakes the
	// Worker on every mutation (spec.md §5 "Worker suspends on a condvar
	// with a short timeout" — realized here as a buffered wake channel,
	// the same channel-handoff idiom the teacher uses for cross-goroutine
	// signaling in audio/tee.go).
	mu     sync.Mutex
	wakeCh chan struct{}

	// audioMu guards the separate snapshot the audio callback reads, kept
	// apart from mu so the realtime thread never contends with Worker I/O
	// scheduling (spec.md §5 "two mutexes per Player").
	audioMu sync.Mutex

	timelineRange timeline.TimeRange
	videoRate     int64

	state      State
	resetAudio bool // set with audio.Reset on Forward/Reverse, seek and loop wraps; nothing reads it (the audio callback consumes audio.Reset)

	// audio is the subset of state the realtime audio callback reads, kept
	// under its own mutex so the callback never contends with mu (spec.md
	// §5 "two mutexes per Player"). Every mutator that touches one of these
	// fields updates audio under audioMu while also holding mu, in that
	// lock order, consistently.
	audio AudioSnapshot

	readAhead  timeline.RationalTime
	readBehind timeline.RationalTime

	cache   *cache.Cache
	manager *ioplugin.Manager

	lastTick time.Time
	closing  bool
	closed   chan struct{}

	currentTimeObs  *observer.Stream[timeline.RationalTime]
	playbackObs     *observer.Stream[PlaybackMode]
	cacheInfoObs    *observer.Stream[cache.Info]
	currentVideoObs *observer.Stream[*iodata.VideoData]
	currentAudioObs *observer.Stream[*iodata.AudioData]
}

// AudioSnapshot is the subset of Player state the realtime audio callback
// needs, read under audioMu alone so the callback never blocks on Worker I/O
// scheduling (spec.md §4.2 step 1 "snapshot under mutex").
type AudioSnapshot struct {
	Playback          PlaybackMode
	PlaybackStartTime timeline.RationalTime
	AudioOffset       time.Duration
	Speed             float64
	DefaultSpeed      float64
	Volume            float64
	Mute              bool
	ChannelMute       []int
	MuteTimeout       time.Time
	TimelineRate      int64

	// Reset is true exactly once after a Forward/Reverse transition, a
	// seek, or a loop wrap; ConsumeAudioSnapshot clears it on read.
	Reset bool
}

// ConsumeAudioSnapshot returns a copy of the audio-relevant state and clears
// the one-shot Reset flag. Call once per audio callback invocation.
func (p *Player) ConsumeAudioSnapshot() AudioSnapshot {
	p.audioMu.Lock()
	defer p.audioMu.Unlock()
	snap := p.audio
	snap.ChannelMute = append([]int(nil), p.audio.ChannelMute...)
	p.audio.Reset = false
	return snap
}

// Config configures a new Player.
type Config struct {
	TimelineRange timeline.TimeRange
	VideoRate     int64
	ReadAhead     timeline.RationalTime
	ReadBehind    timeline.RationalTime
	Plugin        ioplugin.Plugin
	MediaPath     string
}

// New creates a Player positioned at the start of cfg.TimelineRange, Stopped,
// and starts its Worker goroutine.
func New(cfg Config) *Player {
	p := &Player{
		timelineRange: cfg.TimelineRange,
		videoRate:     cfg.VideoRate,
		readAhead:     cfg.ReadAhead,
		readBehind:    cfg.ReadBehind,
		cache:         cache.New(cfg.VideoRate),
		manager:       ioplugin.NewManager(cfg.Plugin, cfg.MediaPath),
		closed:        make(chan struct{}),
		state: State{
			Playback:       Stop,
			Loop:           Once,
			CurrentTime:    cfg.TimelineRange.Start,
			InOutRange:     cfg.TimelineRange,
			Speed:          1.0,
			DefaultSpeed:   1.0,
			Volume:         1.0,
			CacheDirection: DirForward,
		},
		audio: AudioSnapshot{
			Playback:          Stop,
			PlaybackStartTime: cfg.TimelineRange.Start,
			Speed:             1.0,
			DefaultSpeed:      1.0,
			Volume:            1.0,
			TimelineRate:      cfg.TimelineRange.Start.Rate,
		},
	}
	p.wakeCh = make(chan struct{}, 1)
	p.currentTimeObs = observer.NewStream(p.state.CurrentTime)
	p.playbackObs = observer.NewStream(p.state.Playback)
	p.cacheInfoObs = observer.NewStream(cache.Info{})
	p.currentVideoObs = observer.NewStream[*iodata.VideoData](nil)
	p.currentAudioObs = observer.NewStream[*iodata.AudioData](nil)

	go p.runWorker()
	return p
}

// Close stops the Worker goroutine and releases pending I/O requests.
func (p *Player) Close() {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()
	p.wake()
	<-p.closed
	p.manager.CancelAll()
}

// wake signals the Worker without blocking; if a signal is already pending
// the Worker will see it on its next wake, so a dropped duplicate is
// harmless.
func (p *Player) wake() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// --- mutators (spec.md §4.1) ------------------------------------------------

// SetPlayback transitions the state machine. Forward/Reverse reset the audio
// clock; Stop optionally clears pending I/O.
func (p *Player) SetPlayback(mode PlaybackMode, clearPendingIO bool) {
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.Playback = mode
	if mode == Forward {
		p.state.CacheDirection = DirForward
		p.resetAudio = true
	} else if mode == Reverse {
		p.state.CacheDirection = DirReverse
		p.resetAudio = true
	}
	if mode == Forward || mode == Reverse {
		p.audio.Playback = mode
		p.audio.PlaybackStartTime = p.state.CurrentTime
		p.audio.Reset = true
	} else {
		p.audio.Playback = mode
	}
	p.wake()
	p.mu.Unlock()
	p.audioMu.Unlock()

	p.playbackObs.Set(mode)

	if mode == Stop && clearPendingIO {
		p.manager.CancelAll()
	}
}

// Seek clamps time into the timeline range, resets the cache-direction
// heuristic if the new time falls outside the current cache window, and
// clears the buffered audio ring (via the audio snapshot's Reset flag).
func (p *Player) Seek(t timeline.RationalTime) {
	p.audioMu.Lock()
	p.mu.Lock()
	clamped := p.timelineRange.Clamp(t)

	outsideWindow := !p.currentWindowLocked().ContainsInclusive(clamped)
	p.state.CurrentTime = clamped
	if outsideWindow {
		// heuristic reset: default back to the playback direction, or
		// forward while stopped.
		switch p.state.Playback {
		case Reverse:
			p.state.CacheDirection = DirReverse
		default:
			p.state.CacheDirection = DirForward
		}
	}
	p.resetAudio = true
	p.audio.PlaybackStartTime = clamped
	p.audio.Reset = true
	p.wake()
	p.mu.Unlock()
	p.audioMu.Unlock()

	p.currentTimeObs.Set(clamped)
}

func (p *Player) currentWindowLocked() timeline.TimeRange {
	return videoWindow(p.state.CurrentTime, p.readBehind, p.readAhead, p.state.CacheDirection)
}

// SetInOutRange updates the active in/out range, clamped to the timeline
// range.
func (p *Player) SetInOutRange(r timeline.TimeRange) {
	p.mu.Lock()
	p.state.InOutRange = p.timelineRange.ClampRange(r)
	p.wake()
	p.mu.Unlock()
}

// SetLoop sets the loop policy.
func (p *Player) SetLoop(l LoopMode) {
	p.mu.Lock()
	p.state.Loop = l
	p.mu.Unlock()
}

// SetSpeed sets the playback speed multiplier.
func (p *Player) SetSpeed(speed float64) {
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.Speed = speed
	p.audio.Speed = speed
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// SetVolume sets the global volume in [0, 1].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.Volume = v
	p.audio.Volume = v
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// SetMute sets the global mute flag.
func (p *Player) SetMute(mute bool) {
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.Mute = mute
	p.audio.Mute = mute
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// SetChannelMute sets which channel indices are muted.
func (p *Player) SetChannelMute(channels []int) {
	cp := append([]int(nil), channels...)
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.ChannelMute = cp
	p.audio.ChannelMute = append([]int(nil), cp...)
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// SetAudioOffset sets the audio/video sync offset.
func (p *Player) SetAudioOffset(offset time.Duration) {
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.AudioOffset = offset
	p.audio.AudioOffset = offset
	p.wake()
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// SetMuteTimeout forces silent output until t, used to suppress clicks after
// seeks (spec.md §4.2 Cancellation/timeouts).
func (p *Player) SetMuteTimeout(t time.Time) {
	p.audioMu.Lock()
	p.mu.Lock()
	p.state.MuteTimeout = t
	p.audio.MuteTimeout = t
	p.mu.Unlock()
	p.audioMu.Unlock()
}

// --- tick (spec.md §4.1) ----------------------------------------------------

// Tick is called by the caller at display rate; it advances CurrentTime by
// elapsed * playback_sign * speed_multiplier, then applies loop logic.
func (p *Player) Tick(elapsed time.Duration) {
	p.audioMu.Lock()
	p.mu.Lock()
	if p.state.Playback == Stop {
		p.mu.Unlock()
		p.audioMu.Unlock()
		return
	}

	sign := int64(1)
	if p.state.Playback == Reverse {
		sign = -1
	}
	deltaSeconds := elapsed.Seconds() * p.state.Speed * float64(sign)
	delta := timeline.FromSeconds(deltaSeconds, p.state.CurrentTime.Rate)
	next := p.state.CurrentTime.Add(delta)

	p.applyLoopLocked(next)
	p.wake()
	current := p.state.CurrentTime
	playback := p.state.Playback
	p.mu.Unlock()
	p.audioMu.Unlock()

	p.currentTimeObs.Set(current)
	p.playbackObs.Set(playback)
}

// applyLoopLocked applies the loop state machine table of spec.md §4.1. Must
// be called with p.mu and p.audioMu held. Tie-break: a time exactly on
// range.End triggers the Forward boundary transition immediately, since End
// is one frame past the last renderable position. A time exactly on
// range.Start does NOT trigger the Reverse boundary transition — that frame
// is still rendered, and the transition fires once next falls strictly
// before Start.
func (p *Player) applyLoopLocked(next timeline.RationalTime) {
	r := p.state.InOutRange

	switch p.state.Playback {
	case Forward:
		if next.GreaterEqual(r.End()) {
			switch p.state.Loop {
			case LoopAlways:
				p.state.CurrentTime = r.Start
				p.resetAudio = true
				p.audio.PlaybackStartTime = r.Start
				p.audio.Reset = true
			case Once:
				p.state.CurrentTime = r.End()
				p.state.Playback = Stop
				p.audio.Playback = Stop
			case PingPong:
				p.state.CurrentTime = r.End()
				p.state.Playback = Reverse
				p.state.CacheDirection = -p.state.CacheDirection
				p.resetAudio = true
				p.audio.Playback = Reverse
				p.audio.PlaybackStartTime = r.End()
				p.audio.Reset = true
			}
			return
		}
	case Reverse:
		if next.Less(r.Start) {
			switch p.state.Loop {
			case LoopAlways:
				p.state.CurrentTime = r.End()
				p.resetAudio = true
				p.audio.PlaybackStartTime = r.End()
				p.audio.Reset = true
			case Once:
				p.state.CurrentTime = r.Start
				p.state.Playback = Stop
				p.audio.Playback = Stop
			case PingPong:
				p.state.CurrentTime = r.Start
				p.state.Playback = Forward
				p.state.CacheDirection = -p.state.CacheDirection
				p.resetAudio = true
				p.audio.Playback = Forward
				p.audio.PlaybackStartTime = r.Start
				p.audio.Reset = true
			}
			return
		}
	}
	p.state.CurrentTime = next
}

// --- observers (spec.md §4.1) -----------------------------------------------

// CurrentTime returns the CurrentTime observer stream.
func (p *Player) CurrentTime() *observer.Stream[timeline.RationalTime] { return p.currentTimeObs }

// Playback returns the PlaybackMode observer stream.
func (p *Player) Playback() *observer.Stream[PlaybackMode] { return p.playbackObs }

// CacheInfo returns the cache.Info observer stream.
func (p *Player) CacheInfo() *observer.Stream[cache.Info] { return p.cacheInfoObs }

// CurrentVideo returns the current-video-frame observer stream.
func (p *Player) CurrentVideo() *observer.Stream[*iodata.VideoData] { return p.currentVideoObs }

// CurrentAudio returns the current-audio-payload observer stream.
func (p *Player) CurrentAudio() *observer.Stream[*iodata.AudioData] { return p.currentAudioObs }

// Snapshot returns a copy of the player's mutable state, safe to read
// without further locking.
func (p *Player) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// TimelineRange returns the player's fixed timeline range.
func (p *Player) TimelineRange() timeline.TimeRange { return p.timelineRange }

// Cache exposes the underlying Frame Cache (read-only use by renderer/audio).
func (p *Player) Cache() *cache.Cache { return p.cache }
