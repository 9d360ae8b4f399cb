package orchestrator

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/screen"
	screencap "github.com/GriffinCanCode/screenlog/internal/screen"
	"github.com/GriffinCanCode/screenlog/internal/syncx"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

// Manager coordinates capture, video output, OCR and pausing.
type Manager struct {
	capture Capturer
	out     Output
	ocr     OCR
	pause   Pauser
	watcher *screencap.Watcher

	interval time.Duration
	now      func() time.Time

	reconfig syncx.Flag
	tickMu   sync.Mutex
	status   *syncx.Guard[Status]

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a stopped manager.
func New(deps Deps, opts Options) *Manager {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		capture:  deps.Capture,
		out:      deps.Output,
		ocr:      deps.OCR,
		pause:    deps.Pause,
		interval: opts.TickInterval,
		now:      opts.Now,
		status:   syncx.NewGuard(Status{}),
	}
	if deps.Topology != nil {
		m.watcher = screencap.NewWatcher(deps.Topology, opts.PollInterval, m.NotifyReconfigured)
	}
	return m
}

// Start opens the video writers, starts the topology watcher and begins
// ticking. A failure to open the writers is returned; nothing is started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	log := trace.Logger(ctx)
	if err := m.out.Refresh(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeNoDisplays, "open video writers")
	}
	if m.watcher != nil {
		m.watcher.Start(ctx)
	}

	m.started = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.status.Write(func(s *Status) { s.Running = true })
	go m.loop(ctx, m.stopCh, m.doneCh)

	log.Info("recording started", "interval", m.interval, "displays", len(m.out.Monitors()))
	return nil
}

// Stop halts ticking, waits for an in-flight tick and releases every video
// writer. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if m.watcher != nil {
		m.watcher.Stop()
	}
	if m.pause != nil {
		m.pause.Stop()
	}

	m.tickMu.Lock()
	ctx := context.Background()
	m.out.ReleaseAll(ctx)
	m.tickMu.Unlock()

	m.status.Write(func(s *Status) { s.Running = false })
	trace.Logger(ctx).Info("recording stopped")
}

// NotifyReconfigured requests a writer refresh at the start of the next tick.
func (m *Manager) NotifyReconfigured() {
	m.reconfig.Raise()
}

// Status returns a snapshot of scheduler activity.
func (m *Manager) Status() Status {
	s := m.status.Get()
	s.ReconfigPending = m.reconfig.Raised()
	return s
}

func (m *Manager) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one capture cycle. It returns false when another tick is still
// running and this one was skipped.
func (m *Manager) Tick(ctx context.Context) bool {
	if !m.tickMu.TryLock() {
		trace.Logger(ctx).Warn("previous tick still running, skipping")
		m.status.Write(func(s *Status) { s.Skipped++ })
		return false
	}
	defer m.tickMu.Unlock()

	ctx, span := trace.StartSpan(ctx, "tick")
	defer span.EndAndLog(ctx)
	log := trace.Logger(ctx)

	reconfigured := m.reconfig.Consume()

	// Resume refreshes the writers itself, so slots stay closed while paused.
	if m.pause != nil {
		if paused, _ := m.pause.State(); paused {
			if reconfigured {
				log.Info("display configuration changed while paused, writers reopen on resume")
			}
			span.SetAttr("paused", true)
			m.record(0, 0, nil)
			return true
		}
	}

	if reconfigured {
		log.Info("display configuration changed, refreshing video writers")
		if err := m.out.Refresh(ctx); err != nil {
			log.Error("failed to refresh video writers", "error", err)
			span.Fail(err)
		}
	}

	scales, err := m.capture.ScaleFactors(ctx)
	if err != nil {
		log.Debug("scale factors unavailable", "error", err)
		scales = nil
	}

	frames, err := m.capture.CaptureAll(ctx)
	if err != nil {
		log.Error("screen capture failed, refreshing on next tick", "error", err)
		span.Fail(err)
		m.reconfig.Raise()
		m.record(0, 0, nil)
		return true
	}

	now := m.now()
	written := 0
	for _, f := range frames {
		if m.writeFrame(ctx, f, now) {
			written++
		}
	}
	span.SetAttr("frames", len(frames))
	span.SetAttr("written", written)

	res := m.ocr.Handle(ctx, screen.Input{
		Frames:   frames,
		Monitors: m.out.Monitors(),
		Scales:   scales,
	})
	span.SetAttr("ocr", res.Outcome)

	m.record(len(frames), written, &res)
	return true
}

// writeFrame rotates the display's writer if due and appends the frame.
// Topology and encoder failures schedule a refresh.
func (m *Manager) writeFrame(ctx context.Context, f screencap.Frame, now time.Time) bool {
	log := trace.Logger(ctx).With("display", f.Display)

	if _, err := m.out.RotateIfDue(ctx, f.Display, now); err != nil {
		if apperrors.IsCode(err, apperrors.CodeDisplayMismatch) {
			log.Warn("display has no video writer, refreshing on next tick", "error", err)
			m.reconfig.Raise()
			return false
		}
		log.Error("video rotation failed", "error", err)
	}

	if err := m.out.WriteFrame(ctx, f.Display, f.Image); err != nil {
		log.Error("failed to write frame, refreshing on next tick", "error", err)
		m.reconfig.Raise()
		return false
	}
	return true
}

func (m *Manager) record(frames, written int, res *screen.Result) {
	now := m.now()
	m.status.Write(func(s *Status) {
		s.Ticks++
		s.LastTick = now
		s.Frames = frames
		s.Written = written
		if res != nil {
			s.OCR = *res
		}
	})
}
