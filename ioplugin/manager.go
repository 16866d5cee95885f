package ioplugin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// Manager issues and tracks requests against a Plugin, coalescing duplicate
// in-flight requests for the same key (spec.md §3 "At most one in-flight I/O
// future per (time or second) key; duplicates are coalesced.") and
// supporting best-effort cancellation by id set (spec.md §6 cancel_requests).
type Manager struct {
	plugin Plugin
	path   string

	nextID uint64

	mu           sync.Mutex
	videoInFlight map[int64]*Future[iodata.VideoData]
	audioInFlight map[int64]*Future[iodata.AudioData]
}

// NewManager creates a Manager issuing requests against plugin for path.
func NewManager(plugin Plugin, path string) *Manager {
	return &Manager{
		plugin:        plugin,
		path:          path,
		videoInFlight: make(map[int64]*Future[iodata.VideoData]),
		audioInFlight: make(map[int64]*Future[iodata.AudioData]),
	}
}

func (m *Manager) allocID() RequestID {
	return RequestID(atomic.AddUint64(&m.nextID, 1))
}

// RequestVideo issues (or returns the already in-flight future for) a
// read_video call at time t. videoKey is the cache key (RationalTime
// rescaled to the video rate) used for coalescing.
func (m *Manager) RequestVideo(ctx context.Context, videoKey int64, t timeline.RationalTime, opts ReadOptions) *Future[iodata.VideoData] {
	m.mu.Lock()
	if f, ok := m.videoInFlight[videoKey]; ok {
		m.mu.Unlock()
		return f
	}
	id := m.allocID()
	reqCtx, cancel := context.WithCancel(ctx)
	future := newFuture[iodata.VideoData](id, cancel)
	m.videoInFlight[videoKey] = future
	m.mu.Unlock()

	go func() {
		v, err := m.plugin.ReadVideo(reqCtx, m.path, t, opts)
		future.resolve(v, err)
	}()
	return future
}

// RequestAudio issues (or returns the already in-flight future for) a
// read_audio call for the one-second range starting at `second` seconds from
// the timeline start.
func (m *Manager) RequestAudio(ctx context.Context, second int64, secondRange timeline.TimeRange, opts ReadOptions) *Future[iodata.AudioData] {
	m.mu.Lock()
	if f, ok := m.audioInFlight[second]; ok {
		m.mu.Unlock()
		return f
	}
	id := m.allocID()
	reqCtx, cancel := context.WithCancel(ctx)
	future := newFuture[iodata.AudioData](id, cancel)
	m.audioInFlight[second] = future
	m.mu.Unlock()

	go func() {
		a, err := m.plugin.ReadAudio(reqCtx, m.path, secondRange, opts)
		future.resolve(a, err)
	}()
	return future
}

// ReapVideo drops the in-flight bookkeeping for a resolved video key. Call
// once the Worker has consumed the future's result.
func (m *Manager) ReapVideo(videoKey int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videoInFlight, videoKey)
}

// ReapAudio drops the in-flight bookkeeping for a resolved audio second.
func (m *Manager) ReapAudio(second int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.audioInFlight, second)
}

// CancelOutsideWindow cancels (best-effort) every in-flight request whose
// key is not in keepVideo/keepAudio, and reaps its bookkeeping. This is how
// the Worker discards requests whose key no longer matches an in-window
// time (spec.md §5 Cancellation).
func (m *Manager) CancelOutsideWindow(keepVideo, keepAudio map[int64]struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, f := range m.videoInFlight {
		if _, ok := keepVideo[key]; !ok {
			f.Cancel()
			delete(m.videoInFlight, key)
		}
	}
	for key, f := range m.audioInFlight {
		if _, ok := keepAudio[key]; !ok {
			f.Cancel()
			delete(m.audioInFlight, key)
		}
	}
}

// CancelAll cancels every in-flight request (used on Stop-with-clear, spec.md
// §4.1 set_playback).
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, f := range m.videoInFlight {
		f.Cancel()
		delete(m.videoInFlight, key)
	}
	for key, f := range m.audioInFlight {
		f.Cancel()
		delete(m.audioInFlight, key)
	}
}

// PendingVideoKeys returns the set of video keys currently in flight.
func (m *Manager) PendingVideoKeys() map[int64]*Future[iodata.VideoData] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*Future[iodata.VideoData], len(m.videoInFlight))
	for k, v := range m.videoInFlight {
		out[k] = v
	}
	return out
}

// PendingAudioKeys returns the set of audio second keys currently in flight.
func (m *Manager) PendingAudioKeys() map[int64]*Future[iodata.AudioData] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*Future[iodata.AudioData], len(m.audioInFlight))
	for k, v := range m.audioInFlight {
		out[k] = v
	}
	return out
}
