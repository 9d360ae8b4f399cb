// Package screen runs the per-tick OCR pass: find the focused window, pick
// its display, crop, gate on change and extract text.
package screen

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/ocr"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenlog/internal/screen"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

// TextWriter receives extracted text.
type TextWriter interface {
	WriteText(ctx context.Context, text string) (int, error)
}

// History records extractions that produced new lines.
type History interface {
	Add(e history.Entry)
}

// Input is what one tick captured.
type Input struct {
	Frames   []screen.Frame
	Monitors []screen.Monitor
	Scales   []float64
}

// Result summarises one OCR pass.
type Result struct {
	Outcome string `json:"outcome"`
	Display int    `json:"display"`
	App     string `json:"app,omitempty"`
	Diff    uint64 `json:"diff,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Chars   int    `json:"chars,omitempty"`
	Lines   int    `json:"lines,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Processor holds the last full-display image per display for the change gate.
type Processor struct {
	focus     screen.FocusSource
	ext       ocr.Extractor
	out       TextWriter
	history   History
	threshold uint64

	mu       sync.Mutex
	previous map[int]*image.RGBA
	last     Result
}

// NewProcessor creates a processor. A zero threshold uses DefaultDiffThreshold.
func NewProcessor(focus screen.FocusSource, ext ocr.Extractor, out TextWriter, threshold uint64) *Processor {
	if threshold == 0 {
		threshold = DefaultDiffThreshold
	}
	return &Processor{
		focus:     focus,
		ext:       ext,
		out:       out,
		threshold: threshold,
		previous:  make(map[int]*image.RGBA),
	}
}

// WithHistory records every extraction that wrote new lines to h.
func (p *Processor) WithHistory(h History) *Processor {
	p.history = h
	return p
}

// Reset forgets every previous image.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.previous = make(map[int]*image.RGBA)
	p.mu.Unlock()
}

// Last returns the result of the most recent pass.
func (p *Processor) Last() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Handle runs one OCR pass. Failures are logged and reported in the result,
// never returned or propagated as panics.
func (p *Processor) Handle(ctx context.Context, in Input) (res Result) {
	ctx, span := trace.StartSpan(ctx, "ocr")
	log := trace.Logger(ctx)
	res.Display = -1

	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeError, Display: res.Display, Err: fmt.Sprint(r)}
			log.Error("ocr pass panicked", "panic", r)
		}
		span.SetAttr("outcome", res.Outcome)
		span.SetAttr("display", res.Display)
		if res.Err != "" {
			span.Fail(fmt.Errorf("%s", res.Err))
		}
		span.EndAndLog(ctx)

		p.mu.Lock()
		p.last = res
		p.mu.Unlock()
	}()

	fail := func(err error) Result {
		res.Outcome, res.Err = OutcomeError, err.Error()
		if apperrors.IsCode(err, apperrors.CodeNotSupported) {
			log.Debug("ocr skipped", "error", err)
		} else {
			log.Warn("ocr failed", "display", res.Display, "error", err)
		}
		return res
	}

	win, err := p.focus.FocusedWindow(ctx)
	if err != nil {
		return fail(err)
	}
	if win == nil {
		res.Outcome = OutcomeNoFocus
		return res
	}
	res.App = win.App

	idx, ok := MatchMonitor(*win, in.Monitors)
	if !ok {
		res.Outcome = OutcomeNoMonitor
		log.Debug("focused window on no known display", "app", win.App, "x", win.X, "y", win.Y)
		return res
	}
	res.Display = idx

	frame := frameFor(in.Frames, idx)
	if frame == nil {
		return fail(apperrors.Newf(apperrors.CodeDisplayMismatch, "no capture for display %d", idx))
	}
	monitor := monitorFor(in.Monitors, idx)
	backing := 1.0
	if idx < len(in.Scales) {
		backing = in.Scales[idx]
	}
	scale := captureScale(backing, monitor, frame.Bounds())

	box, err := CropBox(*win, monitor, scale, frame.Bounds())
	if err != nil {
		return fail(err)
	}

	changed, diff := p.gate(idx, frame)
	res.Diff = diff
	if !changed {
		res.Outcome = OutcomeUnchanged
		return res
	}

	crop := frame.SubImage(box)
	if h, err := goimagehash.PerceptionHash(crop); err == nil {
		res.Hash = h.ToString()
	}
	log.Info("processing OCR",
		"app", win.App, "title", win.Title,
		"display", idx, "monitor", monitor.String(),
		"scale", scale, "box", box.String(), "phash", res.Hash)

	text, err := p.ext.Extract(ctx, crop)
	if err != nil {
		return fail(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		res.Outcome = OutcomeEmpty
		return res
	}
	res.Chars = len(text)

	n, err := p.out.WriteText(ctx, text)
	if err != nil {
		return fail(err)
	}
	res.Outcome, res.Lines = OutcomeExtracted, n
	if p.history != nil && n > 0 {
		p.history.Add(history.Entry{Display: idx, App: win.App, Title: win.Title, Text: text, Lines: n})
	}
	return res
}

// gate reports whether OCR should run for this frame and stores it as the
// display's previous image when it should. Incomparable sizes count as changed.
func (p *Processor) gate(display int, frame *image.RGBA) (bool, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.previous[display]
	var diff uint64
	if prev != nil {
		d, err := Difference(prev, frame)
		if err == nil {
			if d < p.threshold {
				return false, d
			}
			diff = d
		}
	}
	p.previous[display] = frame
	return true, diff
}

func frameFor(frames []screen.Frame, display int) *image.RGBA {
	for _, f := range frames {
		if f.Display == display {
			return f.Image
		}
	}
	return nil
}

func monitorFor(monitors []screen.Monitor, display int) screen.Monitor {
	for _, m := range monitors {
		if m.Index == display {
			return m
		}
	}
	return screen.Monitor{Index: display}
}
