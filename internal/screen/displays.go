package screen

import (
	"context"
	"image"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// runner executes an external helper and returns its stdout.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// grabber is the slice of the capture library the recorder uses.
type grabber struct {
	count   func() int
	bounds  func(int) image.Rectangle
	capture func(int) (*image.RGBA, error)
}

var systemGrabber = grabber{
	count:   screenshot.NumActiveDisplays,
	bounds:  screenshot.GetDisplayBounds,
	capture: screenshot.CaptureDisplay,
}

// Displays is the desktop implementation of every source interface in this package.
type Displays struct {
	grab grabber
	run  runner
}

// NewDisplays returns a source backed by the active display list.
func NewDisplays() *Displays {
	return &Displays{grab: systemGrabber, run: execRunner}
}

// Enumerate lists the active displays. Zero displays is an error.
func (d *Displays) Enumerate() ([]Monitor, error) {
	n := d.grab.count()
	if n <= 0 {
		return nil, apperrors.New(apperrors.CodeNoDisplays, "no active displays")
	}
	monitors := make([]Monitor, 0, n)
	for i := 0; i < n; i++ {
		b := d.grab.bounds(i)
		monitors = append(monitors, Monitor{
			Index:  i,
			Left:   b.Min.X,
			Top:    b.Min.Y,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	return monitors, nil
}

// CaptureAll grabs every active display in order.
func (d *Displays) CaptureAll(ctx context.Context) ([]Frame, error) {
	n := d.grab.count()
	if n <= 0 {
		return nil, apperrors.New(apperrors.CodeNoDisplays, "no active displays")
	}
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture cancelled")
		}
		img, err := d.grab.capture(i)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeCaptureFailed, "capture display %d", i).
				WithMetadata("display", strconv.Itoa(i))
		}
		frames = append(frames, Frame{Display: i, Image: img})
	}
	return frames, nil
}

// ScaleFactors reports one backing scale factor per active display. When the
// platform query fails or disagrees with the display count, 1.0 is assumed.
func (d *Displays) ScaleFactors(ctx context.Context) ([]float64, error) {
	n := d.grab.count()
	scales, err := queryScales(ctx, d.run)
	if err != nil || len(scales) != n {
		if err != nil && !apperrors.IsCode(err, apperrors.CodeNotSupported) {
			slog.Debug("scale factor query failed, assuming 1.0", "error", err)
		}
		return unitScales(n), nil
	}
	return scales, nil
}

// FocusedWindow returns the frontmost application's front window.
func (d *Displays) FocusedWindow(ctx context.Context) (*Window, error) {
	return queryFocus(ctx, d.run)
}

func unitScales(n int) []float64 {
	out := make([]float64, max(n, 0))
	for i := range out {
		out[i] = 1
	}
	return out
}
