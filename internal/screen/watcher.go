package screen

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultPollInterval is how often the watcher samples the display list.
const DefaultPollInterval = 2 * time.Second

// Watcher polls an Enumerator and calls onChange, on its own goroutine, whenever
// the monitor list differs from the last one seen.
type Watcher struct {
	src      Enumerator
	interval time.Duration
	onChange func()

	mu     sync.Mutex
	last   []Monitor
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher creates a stopped watcher.
func NewWatcher(src Enumerator, interval time.Duration, onChange func()) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{src: src, interval: interval, onChange: onChange}
}

// Start records the current topology as the baseline and begins polling.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	if monitors, err := w.src.Enumerate(); err == nil {
		w.last = monitors
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(ctx, w.stopCh, w.doneCh)
}

// Stop halts polling and waits for the goroutine to exit. Safe to call twice.
func (w *Watcher) Stop() {
	w.mu.Lock()
	stopCh, doneCh := w.stopCh, w.doneCh
	w.stopCh, w.doneCh = nil, nil
	w.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (w *Watcher) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll samples the topology once and reports whether it changed.
func (w *Watcher) Poll() bool {
	monitors, err := w.src.Enumerate()
	if err != nil {
		slog.Debug("display poll failed", "error", err)
		return false
	}

	w.mu.Lock()
	changed := !slices.Equal(w.last, monitors)
	prev := w.last
	w.last = monitors
	w.mu.Unlock()

	if !changed {
		return false
	}
	slog.Info("display configuration changed", "before", len(prev), "after", len(monitors))
	if w.onChange != nil {
		w.onChange()
	}
	return true
}
