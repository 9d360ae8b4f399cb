package video

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

type nopCloser struct{ bytes.Buffer }

func (n *nopCloser) Close() error { return nil }

func testEncoder(w, h int, exitErr error) (*ffmpegEncoder, *nopCloser) {
	sink := &nopCloser{}
	done := make(chan error, 1)
	done <- exitErr
	return &ffmpegEncoder{
		path:   "test.mp4",
		width:  w,
		height: h,
		stdin:  sink,
		done:   done,
		stderr: &lockedBuffer{},
	}, sink
}

func TestEncoderArgs(t *testing.T) {
	args := strings.Join(encoderArgs("out/a.mp4", 1, 1440, 900), " ")
	for _, want := range []string{"-video_size 1440x900", "-framerate 1", "-pixel_format rgba", "-i pipe:0", "-c:v libx264", "out/a.mp4"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestWriteFrameSizeMismatch(t *testing.T) {
	enc, _ := testEncoder(4, 4, nil)
	err := enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 8, 4)))
	if !apperrors.IsCode(err, apperrors.CodeImageMismatch) {
		t.Errorf("WriteFrame() error = %v, want IMAGE_MISMATCH", err)
	}
}

func TestWriteFramePacksRows(t *testing.T) {
	enc, sink := testEncoder(2, 2, nil)
	parent := image.NewRGBA(image.Rect(0, 0, 4, 4))
	parent.Set(1, 1, color.RGBA{R: 9, A: 255})
	sub := parent.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)

	if err := enc.WriteFrame(toRGBA(sub)); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if sink.Len() != 2*2*4 {
		t.Fatalf("wrote %d bytes, want 16", sink.Len())
	}
	if sink.Bytes()[0] != 9 {
		t.Errorf("first pixel R = %d, want 9", sink.Bytes()[0])
	}

	sink.Reset()
	if err := writePixels(sink, sub); err != nil {
		t.Fatal(err)
	}
	if sink.Len() != 16 || sink.Bytes()[0] != 9 {
		t.Errorf("strided write produced %d bytes, first R %d", sink.Len(), sink.Bytes()[0])
	}
}

func TestCloseIdempotent(t *testing.T) {
	enc, _ := testEncoder(2, 2, nil)
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := enc.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); !apperrors.IsCode(err, apperrors.CodeEncoderFailed) {
		t.Errorf("WriteFrame after Close = %v, want ENCODER_FAILED", err)
	}
}

func TestCloseReportsExitError(t *testing.T) {
	enc, _ := testEncoder(2, 2, errors.New("exit status 1"))
	_, _ = enc.stderr.Write([]byte("Unknown encoder 'libx264'\n"))

	err := enc.Close()
	if !apperrors.IsCode(err, apperrors.CodeEncoderFailed) {
		t.Fatalf("Close() error = %v, want ENCODER_FAILED", err)
	}
	if !strings.Contains(err.Error(), "libx264") {
		t.Errorf("Close() error %q should include stderr tail", err)
	}
	if again := enc.Close(); again != err {
		t.Error("second Close should return the first result")
	}
}

func TestOpenRejectsBadGeometry(t *testing.T) {
	_, err := NewFFmpeg("").Open("x.mp4", 1, 0, 10)
	if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Errorf("Open() error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestLockedBufferTail(t *testing.T) {
	var b lockedBuffer
	if b.Tail(10) != "no ffmpeg stderr output" {
		t.Error("empty buffer tail")
	}
	_, _ = b.Write([]byte("  0123456789abcdef \n"))
	if got := b.Tail(6); got != "abcdef" {
		t.Errorf("Tail(6) = %q", got)
	}
}

func TestFFmpegIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ffmpeg integration test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	enc, err := NewFFmpeg("").Open(path, 1, 64, 48)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 64, 48))
		img.Set(i, i, color.RGBA{R: 255, A: 255})
		if err := enc.WriteFrame(img); err != nil {
			t.Fatalf("WriteFrame(%d) error = %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("output file missing or empty: %v", err)
	}
}
