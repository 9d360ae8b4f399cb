package ocr

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/GriffinCanCode/screenlog/internal/config"
	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// Open builds the configured engine behind a circuit breaker. The returned
// func releases any connection the engine holds.
func Open(cfg config.OCRConfig) (*Guarded, func() error, error) {
	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))

	switch cfg.Backend {
	case config.BackendGRPC:
		client, err := Dial(cfg.GRPCAddr, timeout)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("ocr engine", "backend", cfg.Backend, "addr", cfg.GRPCAddr)
		return NewGuarded(client, nil), client.Close, nil

	case config.BackendGosseract, config.BackendTesseract, "":
		ext, closeFn, err := NewLocal(cfg)
		if err != nil {
			slog.Warn("local ocr engine unavailable, OCR will fail until it is installed", "engine", LocalEngine, "error", err)
			return NewGuarded(unavailable(err), nil), func() error { return nil }, nil
		}
		slog.Info("ocr engine", "backend", cfg.Backend, "engine", LocalEngine, "args", cfg.TesseractArgs)
		return NewGuarded(WithTimeout(ext, timeout), nil), closeFn, nil

	default:
		return nil, nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown ocr backend %q", cfg.Backend)
	}
}

// WithTimeout bounds every extraction made through ext.
func WithTimeout(ext Extractor, timeout time.Duration) Extractor {
	if timeout <= 0 {
		return ext
	}
	return ExtractorFunc(func(ctx context.Context, img image.Image) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ext.Extract(ctx, img)
	})
}

// unavailable fails every extraction with the engine's setup error.
func unavailable(cause error) Extractor {
	return ExtractorFunc(func(context.Context, image.Image) (string, error) {
		return "", apperrors.Wrap(cause, apperrors.CodeOCRUnavailable, "ocr engine unavailable")
	})
}
