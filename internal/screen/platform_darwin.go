//go:build darwin

package screen

import (
	"context"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

func queryFocus(ctx context.Context, run runner) (*Window, error) {
	out, err := runJXA(ctx, run, focusScript)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFocusUnavailable, "query focused window")
	}
	return parseWindow(out)
}

func queryScales(ctx context.Context, run runner) ([]float64, error) {
	out, err := runJXA(ctx, run, scaleScript)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "query backing scale factors")
	}
	return parseScales(out)
}
