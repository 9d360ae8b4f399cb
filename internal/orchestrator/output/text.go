package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
	"github.com/GriffinCanCode/screenlog/internal/trace"
)

// Dedupe scopes.
const (
	ScopeGlobal = "global"
	ScopeBucket = "bucket"
)

// TextPath names the bucket file for t: the minute is floored to a multiple of ten.
func TextPath(dir string, t time.Time) string {
	name := fmt.Sprintf("%s%02d-00.txt", t.Format("2006-01-02_15-"), t.Minute()/10*10)
	return filepath.Join(dir, name)
}

// textSink appends OCR lines to bucket files, writing each distinct line once.
// In bucket scope the memory of written lines resets when the bucket changes.
type textSink struct {
	dir   string
	scope string

	mu     sync.Mutex
	seen   map[string]struct{}
	bucket string
}

func newTextSink(dir, scope string) *textSink {
	if scope == "" {
		scope = ScopeGlobal
	}
	return &textSink{dir: dir, scope: scope, seen: make(map[string]struct{})}
}

func (t *textSink) write(ctx context.Context, text string, now time.Time) (int, error) {
	path := TextPath(t.dir, now)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scope == ScopeBucket && path != t.bucket {
		t.seen = make(map[string]struct{})
	}
	t.bucket = path

	var fresh []string
	batch := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := t.seen[line]; ok {
			continue
		}
		if _, ok := batch[line]; ok {
			continue
		}
		batch[line] = struct{}{}
		fresh = append(fresh, line)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, apperrors.Wrapf(err, apperrors.CodeTextWriteFailed, "open %s", path)
	}
	_, werr := f.WriteString(strings.Join(fresh, "\n") + "\n")
	cerr := f.Close()
	if werr != nil || cerr != nil {
		return 0, apperrors.Wrapf(firstErr(werr, cerr), apperrors.CodeTextWriteFailed, "append %s", path)
	}

	for _, line := range fresh {
		t.seen[line] = struct{}{}
	}
	trace.Logger(ctx).Debug("ocr text written", "path", path, "lines", len(fresh))
	return len(fresh), nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
