//go:build cgo && !nogosseract

package ocr

import (
	"context"
	"image"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/GriffinCanCode/screenlog/internal/config"
	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// LocalEngine names the in-process engine this build links.
const LocalEngine = "gosseract"

// Gosseract runs libtesseract in-process. The underlying client is not safe
// for concurrent use, so extractions are serialized.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseract creates a client configured from tesseract-style args
// ("--psm 3 -l eng").
func NewGosseract(args string) (*Gosseract, error) {
	ta := parseTesseractArgs(args)

	client := gosseract.NewClient()
	if len(ta.Languages) > 0 {
		if err := client.SetLanguage(ta.Languages...); err != nil {
			_ = client.Close()
			return nil, apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "set tesseract language")
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(ta.PSM)); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "set page segmentation mode")
	}
	return &Gosseract{client: client}, nil
}

type gosseractResult struct {
	text string
	err  error
}

func (g *Gosseract) Extract(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeCancelled, "extract")
	}

	// libtesseract cannot be interrupted; on timeout the call finishes in
	// the background and holds the lock until it does.
	ch := make(chan gosseractResult, 1)
	go func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if err := g.client.SetImageFromBytes(data); err != nil {
			ch <- gosseractResult{err: err}
			return
		}
		text, err := g.client.Text()
		ch <- gosseractResult{text: text, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", apperrors.Wrap(r.err, apperrors.CodeOCRExtractFailed, "gosseract")
		}
		return normalize(r.text), nil
	case <-ctx.Done():
		return "", apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, "gosseract timed out")
	}
}

// Close releases the tesseract API handle.
func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Close()
}

// NewLocal builds the in-process engine.
func NewLocal(cfg config.OCRConfig) (Extractor, func() error, error) {
	g, err := NewGosseract(cfg.TesseractArgs)
	if err != nil {
		return nil, nil, err
	}
	return g, g.Close, nil
}
