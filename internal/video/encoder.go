// Package video turns a sequence of same-sized RGBA frames into an MP4 by
// piping raw pixels into an ffmpeg child process.
package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

// Encoder appends frames to one open video file.
type Encoder interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Opener creates encoders.
type Opener interface {
	Open(path string, fps, width, height int) (Encoder, error)
}

const (
	closeTimeout = 10 * time.Second
	stderrTail   = 300
)

// FFmpeg opens H.264 MP4 encoders using the ffmpeg binary at Path.
type FFmpeg struct {
	Path string
}

// NewFFmpeg returns an opener for the given binary, defaulting to "ffmpeg" on PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.Path); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeEncoderFailed, "ffmpeg not found at %q", f.Path)
	}
	return nil
}

func encoderArgs(path string, fps, width, height int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.Itoa(fps),
		"-i", "pipe:0",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+frag_keyframe+empty_moov",
		path,
	}
}

// Open starts ffmpeg writing to path. Frames passed to WriteFrame must be width x height.
func (f *FFmpeg) Open(path string, fps, width, height int) (Encoder, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid encoder geometry %dx%d@%d", width, height, fps)
	}

	stderr := &lockedBuffer{}
	cmd := exec.Command(f.Path, encoderArgs(path, fps, width, height)...)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeEncoderFailed, "ffmpeg stdin")
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeEncoderFailed, "start ffmpeg for %s", path)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	slog.Debug("encoder opened", "path", path, "width", width, "height", height, "fps", fps)
	return &ffmpegEncoder{
		path:   path,
		width:  width,
		height: height,
		stdin:  stdin,
		done:   done,
		kill:   func() error { return cmd.Process.Kill() },
		stderr: stderr,
	}, nil
}

type ffmpegEncoder struct {
	path          string
	width, height int
	stdin         io.WriteCloser
	done          <-chan error
	kill          func() error
	stderr        *lockedBuffer

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

func (e *ffmpegEncoder) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return apperrors.Newf(apperrors.CodeImageMismatch, "frame %dx%d does not match encoder %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return apperrors.Newf(apperrors.CodeEncoderFailed, "encoder for %s is closed", e.path)
	}

	if err := writePixels(e.stdin, img); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeEncoderFailed, "write frame: %s", e.stderr.Tail(stderrTail)).
			WithMetadata("path", e.path)
	}
	return nil
}

// writePixels writes the image rows tightly packed, skipping stride padding.
func writePixels(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	rowBytes := b.Dx() * 4
	if img.Stride == rowBytes {
		start := img.PixOffset(b.Min.X, b.Min.Y)
		_, err := w.Write(img.Pix[start : start+rowBytes*b.Dy()])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[start : start+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the file and waits for ffmpeg. Later calls return the first result.
func (e *ffmpegEncoder) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		var out error
		if err := e.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			out = errors.Join(out, err)
		}

		timer := time.NewTimer(closeTimeout)
		defer timer.Stop()
		select {
		case err := <-e.done:
			if err != nil {
				out = errors.Join(out, fmt.Errorf("ffmpeg exited: %w: %s", err, e.stderr.Tail(stderrTail)))
			}
		case <-timer.C:
			if e.kill != nil {
				_ = e.kill()
			}
			out = errors.Join(out, fmt.Errorf("ffmpeg did not exit within %s", closeTimeout))
		}

		if out != nil {
			e.closeErr = apperrors.Wrapf(out, apperrors.CodeEncoderFailed, "close %s", e.path)
		}
	})
	return e.closeErr
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Tail returns at most the last n bytes of trimmed output.
func (b *lockedBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := strings.TrimSpace(b.buf.String())
	if s == "" {
		return "no ffmpeg stderr output"
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
