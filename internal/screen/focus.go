package screen

import (
	"bytes"
	"context"
	"encoding/json"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

const osascript = "osascript"

// focusScript prints the frontmost application's front window as JSON, or nothing.
const focusScript = `(function () {
  var se = Application("System Events");
  var procs = se.applicationProcesses.whose({frontmost: true});
  if (procs.length === 0) return "";
  var p = procs[0];
  if (p.windows.length === 0) return "";
  var w = p.windows[0];
  var pos = w.position();
  var size = w.size();
  return JSON.stringify({app: p.name(), title: w.name() || "", x: pos[0], y: pos[1], width: size[0], height: size[1]});
})()`

// scaleScript prints the backing scale factor of every screen as a JSON array.
const scaleScript = `ObjC.import("AppKit");
(function () {
  var screens = $.NSScreen.screens;
  var out = [];
  for (var i = 0; i < screens.count; i++) out.push(screens.objectAtIndex(i).backingScaleFactor);
  return JSON.stringify(out);
})()`

func runJXA(ctx context.Context, run runner, script string) ([]byte, error) {
	return run(ctx, osascript, "-l", "JavaScript", "-e", script)
}

func parseWindow(out []byte) (*Window, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var w Window
	if err := json.Unmarshal(out, &w); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFocusUnavailable, "decode focused window")
	}
	if w.Width <= 0 || w.Height <= 0 {
		return nil, nil
	}
	return &w, nil
}

func parseScales(out []byte) ([]float64, error) {
	var scales []float64
	if err := json.Unmarshal(bytes.TrimSpace(out), &scales); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "decode scale factors")
	}
	for i, s := range scales {
		if s <= 0 {
			scales[i] = 1
		}
	}
	return scales, nil
}
