//go:build !cgo || nogosseract

package ocr

import "github.com/GriffinCanCode/screenlog/internal/config"

// LocalEngine names the engine used when libtesseract is not linked.
const LocalEngine = "tesseract-cli"

// NewLocal falls back to the tesseract binary.
func NewLocal(cfg config.OCRConfig) (Extractor, func() error, error) {
	tess := NewTesseract(cfg.TesseractPath, cfg.TesseractArgs)
	if err := tess.Available(); err != nil {
		return nil, nil, err
	}
	return tess, func() error { return nil }, nil
}
