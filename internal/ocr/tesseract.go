package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// DefaultTesseractArgs selects fully automatic page segmentation.
const DefaultTesseractArgs = "--psm 3"

// DefaultPSM is tesseract's fully automatic page segmentation mode.
const DefaultPSM = 3

// tesseractArgs is the subset of tesseract CLI flags the in-process engine
// understands.
type tesseractArgs struct {
	PSM       int
	Languages []string
}

// parseTesseractArgs reads --psm and -l from a CLI-style argument string.
// Unknown flags are ignored; a missing or malformed --psm keeps DefaultPSM.
func parseTesseractArgs(args string) tesseractArgs {
	out := tesseractArgs{PSM: DefaultPSM}
	fields := strings.Fields(args)
	for i := 0; i < len(fields); i++ {
		switch f := fields[i]; {
		case f == "--psm" && i+1 < len(fields):
			i++
			if n, err := strconv.Atoi(fields[i]); err == nil {
				out.PSM = n
			}
		case strings.HasPrefix(f, "--psm="):
			if n, err := strconv.Atoi(strings.TrimPrefix(f, "--psm=")); err == nil {
				out.PSM = n
			}
		case f == "-l" && i+1 < len(fields):
			i++
			out.Languages = strings.Split(fields[i], "+")
		}
	}
	return out
}

type commandRunner func(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	var out, errOut bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	return out.Bytes(), errOut.Bytes(), err
}

// Tesseract runs the tesseract binary once per image, feeding PNG on stdin.
// It is the local engine for builds without cgo.
type Tesseract struct {
	path string
	args []string
	run  commandRunner
}

// NewTesseract creates an extractor. args is split on whitespace.
func NewTesseract(path, args string) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	return &Tesseract{path: path, args: strings.Fields(args), run: runCommand}
}

// Available reports whether the binary can be found.
func (t *Tesseract) Available() error {
	if _, err := exec.LookPath(t.path); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeOCRUnavailable, "tesseract not found at %q", t.path)
	}
	return nil
}

func (t *Tesseract) Extract(ctx context.Context, img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	args := append([]string{"stdin", "stdout"}, t.args...)
	stdout, stderr, err := t.run(ctx, data, t.path, args...)
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return "", apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "tesseract not installed")
		case ctx.Err() != nil:
			return "", apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, "tesseract timed out")
		default:
			return "", apperrors.Wrapf(err, apperrors.CodeOCRExtractFailed, "tesseract: %s", strings.TrimSpace(string(stderr)))
		}
	}
	return normalize(string(stdout)), nil
}
