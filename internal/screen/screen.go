// Package screen talks to the display system: it enumerates monitors, grabs
// full-display frames, reads backing scale factors, finds the focused window
// and watches for topology changes.
package screen

import (
	"context"
	"fmt"
	"image"
)

// Monitor is one display in global desktop coordinates (points).
// Index is positional and only stable until the next topology change.
type Monitor struct {
	Index  int `json:"index"`
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the monitor extent.
func (m Monitor) Rect() image.Rectangle {
	return image.Rect(m.Left, m.Top, m.Left+m.Width, m.Top+m.Height)
}

func (m Monitor) String() string {
	return fmt.Sprintf("D%d %dx%d@(%d,%d)", m.Index, m.Width, m.Height, m.Left, m.Top)
}

// Frame is a full-display capture.
type Frame struct {
	Display int
	Image   *image.RGBA
}

// Window is the focused window's frame in global points.
type Window struct {
	App    string  `json:"app"`
	Title  string  `json:"title"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Enumerator lists connected monitors in display order.
type Enumerator interface {
	Enumerate() ([]Monitor, error)
}

// ScaleSource reports the backing scale factor per display, in display order.
type ScaleSource interface {
	ScaleFactors(ctx context.Context) ([]float64, error)
}

// FrameSource captures every display once.
type FrameSource interface {
	CaptureAll(ctx context.Context) ([]Frame, error)
}

// FocusSource returns the focused window, or nil when nothing has focus.
type FocusSource interface {
	FocusedWindow(ctx context.Context) (*Window, error)
}
