package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsFirst(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("Retry() = %v after %d calls", err, calls)
	}
}

func TestRetryRecoversFromUnavailable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "ocr service restarting")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Retry() = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhausts(t *testing.T) {
	calls := 0
	want := apperrors.New(apperrors.CodeOCRUnavailable, "down")
	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Retry() = %v, want %v", err, want)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return apperrors.New(apperrors.CodeCropOutOfBounds, "empty crop")
	})
	if err == nil || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want one call", err, calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, func() error {
		return status.Error(codes.Unavailable, "fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "x"), true},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "x"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "x"), false},
		{"grpc internal", status.Error(codes.Internal, "x"), false},
		{"app ocr unavailable", apperrors.New(apperrors.CodeOCRUnavailable, "x"), true},
		{"app extract failed", apperrors.New(apperrors.CodeOCRExtractFailed, "x"), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	for attempt, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond} {
		if got := backoffDelay(cfg, attempt); got != want {
			t.Errorf("attempt %d delay = %v, want %v", attempt, got, want)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	if got := backoffDelay(cfg, 5); got != 300*time.Millisecond {
		t.Errorf("delay = %v, want 300ms", got)
	}
}
