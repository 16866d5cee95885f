package ioplugin

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// countingPlugin counts ReadVideo calls and blocks each one until released,
// so a test can assert how many actually ran (coalescing) and exercise
// in-flight cancellation.
type countingPlugin struct {
	calls   int32
	release chan struct{}
}

func (p *countingPlugin) GetInfo(ctx context.Context, path string) (Info, error) {
	return Info{}, nil
}

func (p *countingPlugin) ReadVideo(ctx context.Context, path string, at timeline.RationalTime, opts ReadOptions) (iodata.VideoData, error) {
	atomic.AddInt32(&p.calls, 1)
	select {
	case <-p.release:
		return iodata.VideoData{Time: at}, nil
	case <-ctx.Done():
		return iodata.VideoData{}, ctx.Err()
	}
}

func (p *countingPlugin) ReadAudio(ctx context.Context, path string, second timeline.TimeRange, opts ReadOptions) (iodata.AudioData, error) {
	return iodata.AudioData{}, nil
}

func TestRequestVideoCoalescesDuplicateKeys(t *testing.T) {
	plugin := &countingPlugin{release: make(chan struct{})}
	m := NewManager(plugin, "test.mov")
	at := timeline.NewRationalTime(10, 24)

	f1 := m.RequestVideo(context.Background(), 10, at, ReadOptions{})
	f2 := m.RequestVideo(context.Background(), 10, at, ReadOptions{})
	if f1 != f2 {
		t.Fatalf("expected RequestVideo to return the same in-flight future for a duplicate key")
	}

	close(plugin.release)
	waitForFuture(t, f1)
	if calls := atomic.LoadInt32(&plugin.calls); calls != 1 {
		t.Fatalf("got %d ReadVideo calls, want 1 (duplicate request coalesced)", calls)
	}
}

func TestCancelOutsideWindowCancelsAndForgets(t *testing.T) {
	plugin := &countingPlugin{release: make(chan struct{})}
	m := NewManager(plugin, "test.mov")
	at := timeline.NewRationalTime(10, 24)

	f := m.RequestVideo(context.Background(), 10, at, ReadOptions{})
	m.CancelOutsideWindow(map[int64]struct{}{}, map[int64]struct{}{})

	_, _, err := waitForFuture(t, f)
	if err == nil {
		t.Fatalf("expected the cancelled future to resolve with a context error")
	}

	if _, ok := m.PendingVideoKeys()[10]; ok {
		t.Fatalf("expected CancelOutsideWindow to drop bookkeeping for the cancelled key")
	}
}

func waitForFuture[T any](t *testing.T, f *Future[T]) (T, bool, error) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		v, ready, err := f.Poll()
		if ready {
			return v, ready, err
		}
		select {
		case <-deadline:
			t.Fatalf("future did not resolve in time")
		case <-time.After(time.Millisecond):
		}
	}
}
