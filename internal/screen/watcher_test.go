package screen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubEnumerator struct {
	mu       sync.Mutex
	monitors []Monitor
	err      error
}

func (s *stubEnumerator) Enumerate() ([]Monitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]Monitor(nil), s.monitors...), nil
}

func (s *stubEnumerator) set(m []Monitor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitors, s.err = m, err
}

func TestWatcherPoll(t *testing.T) {
	src := &stubEnumerator{monitors: []Monitor{{Index: 0, Width: 1440, Height: 900}}}
	var calls atomic.Int32
	w := NewWatcher(src, time.Hour, func() { calls.Add(1) })
	w.Start(context.Background())
	defer w.Stop()

	if w.Poll() {
		t.Error("unchanged topology reported as change")
	}

	src.set([]Monitor{{Index: 0, Width: 1440, Height: 900}, {Index: 1, Left: 1440, Width: 1920, Height: 1080}}, nil)
	if !w.Poll() {
		t.Error("added display not detected")
	}
	if w.Poll() {
		t.Error("second poll after change should be quiet")
	}

	src.set(nil, errors.New("transient"))
	if w.Poll() {
		t.Error("enumeration errors should not count as changes")
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestWatcherLoopFires(t *testing.T) {
	src := &stubEnumerator{monitors: []Monitor{{Index: 0, Width: 1440, Height: 900}}}
	fired := make(chan struct{}, 1)
	w := NewWatcher(src, 5*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	w.Start(context.Background())
	defer w.Stop()

	src.set([]Monitor{{Index: 0, Width: 2560, Height: 1440}}, nil)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the resolution change")
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w := NewWatcher(&stubEnumerator{}, time.Millisecond, nil)
	w.Stop()
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestNewWatcherDefaultInterval(t *testing.T) {
	w := NewWatcher(&stubEnumerator{}, 0, nil)
	if w.interval != DefaultPollInterval {
		t.Errorf("interval = %v, want %v", w.interval, DefaultPollInterval)
	}
}
