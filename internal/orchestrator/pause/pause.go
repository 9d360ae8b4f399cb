// Package pause implements the recorder's pause window: pausing releases the
// video writers and counts down to an automatic resume; pausing again while
// paused extends the window.
package pause

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/screenlog/internal/trace"
	"github.com/GriffinCanCode/screenlog/internal/ui"
)

// DefaultTick is how often the countdown label is refreshed.
const DefaultTick = time.Second

// Writer is the part of the output writer pausing touches.
type Writer interface {
	ReleaseAll(ctx context.Context)
	Refresh(ctx context.Context) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithTick sets the countdown refresh period.
func WithTick(d time.Duration) Option {
	return func(c *Controller) { c.tick = d }
}

// Controller holds the pause state.
type Controller struct {
	writer   Writer
	sink     ui.Sink
	duration time.Duration
	tick     time.Duration
	now      func() time.Time

	mu     sync.Mutex
	paused bool
	end    time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an active controller. duration is both the initial pause
// window and each extension.
func New(writer Writer, sink ui.Sink, duration time.Duration, opts ...Option) *Controller {
	c := &Controller{
		writer:   writer,
		sink:     sink,
		duration: duration,
		tick:     DefaultTick,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Label is the pause menu item text while paused.
func Label(remaining, extension time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	secs := int(remaining / time.Second)
	return fmt.Sprintf("Paused %02d:%02d · +%d min", secs/60, secs%60, int(extension/time.Minute))
}

// Pause starts a pause window, or extends the current one by the pause
// duration. It returns the new end time.
func (c *Controller) Pause(ctx context.Context) time.Time {
	log := trace.Logger(ctx)

	c.mu.Lock()
	now := c.now()
	if c.paused {
		c.end = c.end.Add(c.duration)
		end := c.end
		c.mu.Unlock()

		log.Info("pause extended", "until", end.Format(time.TimeOnly))
		c.sink.SetMenuLabel(Label(end.Sub(now), c.duration))
		return end
	}

	c.paused = true
	c.end = now.Add(c.duration)
	end := c.end
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	c.stopCh, c.doneCh = stopCh, doneCh
	c.mu.Unlock()

	c.writer.ReleaseAll(ctx)
	c.sink.SetIcon(ui.IconPaused)
	c.sink.SetMenuLabel(Label(end.Sub(now), c.duration))
	log.Info("recording paused", "until", end.Format(time.TimeOnly))

	go c.countdown(context.WithoutCancel(ctx), stopCh, doneCh)
	return end
}

// Resume ends the pause window early. It is a no-op when not paused.
func (c *Controller) Resume(ctx context.Context) {
	c.resume(ctx, nil)
}

// Toggle pauses when active and resumes when paused.
func (c *Controller) Toggle(ctx context.Context) {
	if paused, _ := c.State(); paused {
		c.Resume(ctx)
		return
	}
	c.Pause(ctx)
}

// State reports whether recording is paused and how long remains.
func (c *Controller) State() (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return false, 0
	}
	remaining := c.end.Sub(c.now())
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

// Stop ends the countdown without resuming. Safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	stopCh, doneCh := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
}

// resume clears the pause. When owner is non-nil the call comes from that
// countdown and only applies while it is still the active one.
func (c *Controller) resume(ctx context.Context, owner chan struct{}) {
	c.mu.Lock()
	if !c.paused || (owner != nil && c.stopCh != owner) {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.end = time.Time{}
	stopCh, doneCh := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		if owner == nil {
			<-doneCh
		}
	}

	log := trace.Logger(ctx)
	if err := c.writer.Refresh(ctx); err != nil {
		log.Error("failed to reopen video writers on resume", "error", err)
	}
	c.sink.SetIcon(ui.IconRecording)
	c.sink.SetMenuLabel(ui.LabelPause)
	log.Info("recording resumed")
}

func (c *Controller) countdown(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			paused, remaining := c.State()
			if !paused {
				return
			}
			if remaining <= 0 {
				c.resume(ctx, stopCh)
				return
			}
			c.sink.SetMenuLabel(Label(remaining, c.duration))
		}
	}
}
