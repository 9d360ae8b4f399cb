//go:build cgo && !nogosseract

package ocr

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

func TestGosseractIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gosseract integration test in short mode")
	}
	g, err := NewGosseract(DefaultTesseractArgs)
	if err != nil {
		t.Skipf("libtesseract unavailable: %v", err)
	}
	defer func() { _ = g.Close() }()

	if _, err := g.Extract(context.Background(), testImage()); err != nil {
		t.Errorf("Extract() error = %v", err)
	}
}

func TestGosseractCancelledContext(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gosseract integration test in short mode")
	}
	g, err := NewGosseract(DefaultTesseractArgs)
	if err != nil {
		t.Skipf("libtesseract unavailable: %v", err)
	}
	defer func() { _ = g.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if _, err := g.Extract(ctx, testImage()); !apperrors.IsCode(err, apperrors.CodeCancelled) {
		t.Errorf("Extract() error = %v, want CANCELLED", err)
	}
}
