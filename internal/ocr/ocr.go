// Package ocr extracts text from window crops. The default engine is the
// tesseract CLI; a remote engine can be reached over gRPC.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/resilience"
)

// Extractor turns an image into text. An empty string means no text was found.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, img image.Image) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "encode crop")
	}
	return buf.Bytes(), nil
}

func decodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode image")
	}
	return img, nil
}

// Guarded fails fast while the wrapped extractor keeps failing.
type Guarded struct {
	inner   Extractor
	breaker *resilience.Breaker
}

// NewGuarded wraps inner with breaker, or with the OCR defaults when breaker is nil.
func NewGuarded(inner Extractor, breaker *resilience.Breaker) *Guarded {
	if breaker == nil {
		breaker = resilience.New(resilience.OCRConfig())
	}
	return &Guarded{inner: inner, breaker: breaker}
}

func (g *Guarded) Extract(ctx context.Context, img image.Image) (string, error) {
	text, err := resilience.ExecuteWithResult(g.breaker, func() (string, error) {
		return g.inner.Extract(ctx, img)
	})
	if err != nil && apperrors.IsCode(err, apperrors.CodeUnavailable) {
		return "", apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "ocr engine suspended")
	}
	return text, err
}

// State exposes the breaker state for status reporting.
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}

func normalize(out string) string {
	return strings.TrimSpace(strings.ReplaceAll(out, "\f", ""))
}
