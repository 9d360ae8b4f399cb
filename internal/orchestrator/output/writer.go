// Package output owns everything the recorder writes to disk: one rolling
// video per display and the time-bucketed OCR text files.
package output

import (
	"context"
	"image"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/screen"
	"github.com/GriffinCanCode/screenlog/internal/trace"
	"github.com/GriffinCanCode/screenlog/internal/video"
)

// Options configures a Writer.
type Options struct {
	Dir         string
	FPS         int
	Rotation    time.Duration
	DedupeScope string
	Now         func() time.Time
}

// Slot is the encoder for one display plus its bookkeeping. A slot without
// an encoder is empty and accepts no frames.
type Slot struct {
	enc        video.Encoder
	Path       string
	StartTime  time.Time
	FrameCount int
	Width      int
	Height     int
}

// Empty reports whether the slot has no open encoder.
func (s *Slot) Empty() bool { return s.enc == nil }

// SlotStatus is a read-only view of a slot.
type SlotStatus struct {
	Display   int       `json:"display"`
	Open      bool      `json:"open"`
	Path      string    `json:"path,omitempty"`
	Frames    int       `json:"frames"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Writer manages the per-display video slots and the text output.
type Writer struct {
	opts   Options
	enum   screen.Enumerator
	opener video.Opener

	mu       sync.Mutex
	slots    []*Slot
	monitors []screen.Monitor
	hooks    []func()

	text *textSink
}

// NewWriter creates a writer with no slots; call Refresh to open them.
func NewWriter(enum screen.Enumerator, opener video.Opener, opts Options) *Writer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FPS <= 0 {
		opts.FPS = 1
	}
	if opts.Rotation <= 0 {
		opts.Rotation = 10 * time.Minute
	}
	w := &Writer{opts: opts, enum: enum, opener: opener}
	w.text = newTextSink(opts.Dir, opts.DedupeScope)
	return w
}

// OnRefresh registers fn to run after every Refresh.
func (w *Writer) OnRefresh(fn func()) {
	w.mu.Lock()
	w.hooks = append(w.hooks, fn)
	w.mu.Unlock()
}

// VideoPath names the file for a slot opened at t.
func VideoPath(dir string, t time.Time, display int) string {
	return filepath.Join(dir, t.Format("2006-01-02_15-04-05")+"_D"+strconv.Itoa(display)+".mp4")
}

// Refresh closes every slot, re-enumerates monitors and opens one slot per
// monitor. Refresh hooks run even when enumeration fails.
func (w *Writer) Refresh(ctx context.Context) error {
	log := trace.Logger(ctx)

	w.mu.Lock()
	w.closeAllLocked(ctx, "refresh")
	monitors, err := w.enum.Enumerate()
	if err != nil {
		w.slots, w.monitors = nil, nil
		hooks := w.hooks
		w.mu.Unlock()
		runHooks(hooks)
		return apperrors.Wrap(err, apperrors.CodeNoDisplays, "enumerate monitors")
	}

	now := w.opts.Now()
	w.monitors = monitors
	w.slots = make([]*Slot, len(monitors))
	for i, m := range monitors {
		w.slots[i] = w.openSlot(ctx, m, now)
	}
	hooks := w.hooks
	w.mu.Unlock()

	log.Info("video writers refreshed", "displays", len(monitors))
	runHooks(hooks)
	return nil
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

// openSlot always returns a slot; it is empty when the encoder fails to open.
func (w *Writer) openSlot(ctx context.Context, m screen.Monitor, now time.Time) *Slot {
	slot := &Slot{
		Path:      VideoPath(w.opts.Dir, now, m.Index),
		StartTime: now,
		Width:     m.Width,
		Height:    m.Height,
	}
	enc, err := w.opener.Open(slot.Path, w.opts.FPS, m.Width, m.Height)
	if err != nil {
		trace.Logger(ctx).Error("failed to open video writer", "display", m.Index, "path", slot.Path, "error", err)
		return slot
	}
	slot.enc = enc
	trace.Logger(ctx).Info("video writer opened", "display", m.Index, "path", slot.Path, "width", m.Width, "height", m.Height)
	return slot
}

func (w *Writer) closeSlotLocked(ctx context.Context, display int, reason string) {
	slot := w.slots[display]
	if slot.Empty() {
		return
	}
	err := slot.enc.Close()
	slot.enc = nil
	log := trace.Logger(ctx).With("display", display, "frames", slot.FrameCount, "path", slot.Path, "reason", reason)
	if err != nil {
		log.Error("video writer closed with error", "error", err)
		return
	}
	log.Info("video writer closed")
}

func (w *Writer) closeAllLocked(ctx context.Context, reason string) {
	for i := range w.slots {
		w.closeSlotLocked(ctx, i, reason)
	}
}

// ReleaseAll closes every open encoder and leaves the slots empty. Calling it
// again performs no encoder operations.
func (w *Writer) ReleaseAll(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeAllLocked(ctx, "release")
}

func mismatch(display, slots int) error {
	return apperrors.Newf(apperrors.CodeDisplayMismatch, "display %d has no slot (%d slots)", display, slots).
		WithMetadata("display", strconv.Itoa(display))
}

// RotateIfDue reopens the display's slot when it has been open for at least
// the rotation interval. Monitors are re-enumerated first; if the count has
// changed the rotation becomes a full Refresh.
func (w *Writer) RotateIfDue(ctx context.Context, display int, now time.Time) (bool, error) {
	w.mu.Lock()
	if display < 0 || display >= len(w.slots) {
		n := len(w.slots)
		w.mu.Unlock()
		return false, mismatch(display, n)
	}
	slot := w.slots[display]
	if slot.Empty() || now.Sub(slot.StartTime) < w.opts.Rotation {
		w.mu.Unlock()
		return false, nil
	}

	monitors, err := w.enum.Enumerate()
	if err != nil {
		w.mu.Unlock()
		return false, apperrors.Wrap(err, apperrors.CodeNoDisplays, "enumerate monitors for rotation")
	}
	if before := len(w.slots); len(monitors) != before {
		w.mu.Unlock()
		trace.Logger(ctx).Warn("display count changed at rotation, refreshing all writers", "before", before, "after", len(monitors))
		return true, w.Refresh(ctx)
	}

	w.closeSlotLocked(ctx, display, "rotate")
	w.monitors = monitors
	w.slots[display] = w.openSlot(ctx, monitors[display], now)
	w.mu.Unlock()
	return true, nil
}

// WriteFrame resizes img to the slot's dimensions and appends it. Writing to
// an empty slot logs and returns nil. An encoder failure empties the slot.
func (w *Writer) WriteFrame(ctx context.Context, display int, img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if display < 0 || display >= len(w.slots) {
		return mismatch(display, len(w.slots))
	}
	slot := w.slots[display]
	if slot.Empty() {
		trace.Logger(ctx).Warn("video writer not available, skipping frame", "display", display)
		return nil
	}

	if err := slot.enc.WriteFrame(video.Fit(img, slot.Width, slot.Height)); err != nil {
		w.closeSlotLocked(ctx, display, "write error")
		return apperrors.Wrapf(err, apperrors.CodeEncoderFailed, "write frame to display %d", display).
			WithMetadata("display", strconv.Itoa(display))
	}
	slot.FrameCount++
	return nil
}

// Monitors returns the monitors seen at the last refresh or rotation.
func (w *Writer) Monitors() []screen.Monitor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]screen.Monitor(nil), w.monitors...)
}

// Snapshot reports every slot's state.
func (w *Writer) Snapshot() []SlotStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]SlotStatus, len(w.slots))
	for i, s := range w.slots {
		out[i] = SlotStatus{
			Display: i,
			Open:    !s.Empty(),
			Path:    s.Path,
			Frames:  s.FrameCount,
			Width:   s.Width,
			Height:  s.Height,
		}
		if !s.Empty() {
			out[i].StartedAt = s.StartTime
		}
	}
	return out
}

// WriteText appends every line of text not written before. See textSink.
func (w *Writer) WriteText(ctx context.Context, text string) (int, error) {
	return w.text.write(ctx, text, w.opts.Now())
}
