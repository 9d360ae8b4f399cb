//go:build !darwin

package screen

import (
	"context"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

func queryFocus(context.Context, runner) (*Window, error) {
	return nil, apperrors.New(apperrors.CodeNotSupported, "focused window lookup requires macOS")
}

func queryScales(context.Context, runner) ([]float64, error) {
	return nil, apperrors.New(apperrors.CodeNotSupported, "backing scale factors require macOS")
}
