// Package orchestrator runs the recording schedule: every tick it captures all
// displays, feeds the per-display video writers and runs one OCR pass.
package orchestrator

import (
	"context"
	"image"
	"time"

	"github.com/GriffinCanCode/screenlog/internal/orchestrator/screen"
	screencap "github.com/GriffinCanCode/screenlog/internal/screen"
)

// Capturer grabs every display and reports their backing scale factors.
type Capturer interface {
	screencap.FrameSource
	screencap.ScaleSource
}

// Output is the video side of the output writer.
type Output interface {
	Refresh(ctx context.Context) error
	ReleaseAll(ctx context.Context)
	RotateIfDue(ctx context.Context, display int, now time.Time) (bool, error)
	WriteFrame(ctx context.Context, display int, img image.Image) error
	Monitors() []screencap.Monitor
}

// OCR runs one text extraction pass over a tick's capture.
type OCR interface {
	Handle(ctx context.Context, in screen.Input) screen.Result
}

// Pauser reports and owns the pause window.
type Pauser interface {
	State() (bool, time.Duration)
	Stop()
}

// Deps are the collaborators of a Manager. Topology may be nil, in which
// case display changes are only noticed through capture errors.
type Deps struct {
	Capture  Capturer
	Output   Output
	OCR      OCR
	Pause    Pauser
	Topology screencap.Enumerator
}

// Options tunes the schedule.
type Options struct {
	TickInterval time.Duration
	PollInterval time.Duration
	Now          func() time.Time
}

// Status is a snapshot of scheduler activity.
type Status struct {
	Running         bool          `json:"running"`
	Ticks           uint64        `json:"ticks"`
	Skipped         uint64        `json:"skipped"`
	LastTick        time.Time     `json:"last_tick,omitempty"`
	Frames          int           `json:"frames"`
	Written         int           `json:"written"`
	OCR             screen.Result `json:"ocr"`
	ReconfigPending bool          `json:"reconfig_pending"`
}
