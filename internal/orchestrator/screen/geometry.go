package screen

import (
	"image"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/screen"
)

// Difference sums |ΔR|+|ΔG|+|ΔB| over every pixel of two equally sized images.
// Alpha is ignored.
func Difference(a, b *image.RGBA) (uint64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return 0, apperrors.Newf(apperrors.CodeImageMismatch, "cannot compare %v with %v", ab.Size(), bb.Size())
	}

	w, h := ab.Dx(), ab.Dy()
	var sum uint64
	for y := 0; y < h; y++ {
		ra := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):][:w*4]
		rb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):][:w*4]
		for i := 0; i < len(ra); i += 4 {
			sum += absDiff(ra[i], rb[i]) + absDiff(ra[i+1], rb[i+1]) + absDiff(ra[i+2], rb[i+2])
		}
	}
	return sum, nil
}

func absDiff(x, y uint8) uint64 {
	if x > y {
		return uint64(x - y)
	}
	return uint64(y - x)
}

// RelativeScale is a monitor's size relative to the primary (first) monitor.
type RelativeScale struct {
	X, Y float64
}

// RelativeScales returns one factor per monitor, primary first.
func RelativeScales(monitors []screen.Monitor) []RelativeScale {
	out := make([]RelativeScale, len(monitors))
	if len(monitors) == 0 {
		return out
	}
	primary := monitors[0]
	for i, m := range monitors {
		out[i] = RelativeScale{X: 1, Y: 1}
		if primary.Width > 0 {
			out[i].X = float64(m.Width) / float64(primary.Width)
		}
		if primary.Height > 0 {
			out[i].Y = float64(m.Height) / float64(primary.Height)
		}
	}
	return out
}

// MatchMonitor returns the index of the first monitor whose extent, scaled by
// its relative factor, contains the window origin. The origin itself is not scaled.
func MatchMonitor(win screen.Window, monitors []screen.Monitor) (int, bool) {
	scales := RelativeScales(monitors)
	for i, m := range monitors {
		left, top := float64(m.Left), float64(m.Top)
		right := left + float64(m.Width)*scales[i].X
		bottom := top + float64(m.Height)*scales[i].Y
		if win.X >= left && win.X < right && win.Y >= top && win.Y < bottom {
			return m.Index, true
		}
	}
	return -1, false
}

// CropBox converts the window frame to pixel coordinates inside a capture of
// monitor m with the given bounds, clipped to those bounds.
func CropBox(win screen.Window, m screen.Monitor, scale float64, bounds image.Rectangle) (image.Rectangle, error) {
	x := int((win.X - float64(m.Left)) * scale)
	y := int((win.Y - float64(m.Top)) * scale)
	w := int(win.Width * scale)
	h := int(win.Height * scale)

	box := image.Rect(x, y, x+w, y+h).Add(bounds.Min).Intersect(bounds)
	if box.Empty() {
		return image.Rectangle{}, apperrors.Newf(apperrors.CodeCropOutOfBounds, "window %.0fx%.0f@(%.0f,%.0f) outside %s", win.Width, win.Height, win.X, win.Y, m)
	}
	return box, nil
}

// captureScale is the factor from points to captured pixels. The backing
// factor is used when the capture has the expected size; otherwise the
// capture's actual ratio wins.
func captureScale(backing float64, m screen.Monitor, frame image.Rectangle) float64 {
	if backing <= 0 {
		backing = 1
	}
	if m.Width <= 0 || frame.Dx() == int(float64(m.Width)*backing+0.5) {
		return backing
	}
	return float64(frame.Dx()) / float64(m.Width)
}
