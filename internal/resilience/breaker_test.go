package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/screenlog/internal/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(cfg).WithClock(clk.now), clk
}

func TestBreakerStartsClosed(t *testing.T) {
	if s := New(OCRConfig()).State(); s != Closed {
		t.Errorf("state = %v, want closed", s)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute, HalfOpenSuccesses: 1})
	b.Failure()
	b.Failure()
	if b.State() != Closed {
		t.Fatal("opened too early")
	}
	b.Failure()
	if b.State() != Open {
		t.Errorf("state = %v, want open", b.State())
	}

	err := b.Allow()
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Error("ErrOpen should carry UNAVAILABLE")
	}
}

func TestBreakerHalfOpenAfterTimeout(t *testing.T) {
	b, clk := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Minute, HalfOpenSuccesses: 2})
	b.Failure()

	clk.advance(59 * time.Second)
	if err := b.Allow(); err == nil {
		t.Fatal("Allow() before reset timeout should fail")
	}

	clk.advance(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}

	b.Success()
	if b.State() != HalfOpen {
		t.Error("one success should not close with HalfOpenSuccesses=2")
	}
	b.Success()
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b, clk := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	b.Failure()
	clk.advance(time.Second)
	_ = b.Allow()

	b.Failure()
	if b.State() != Open {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	b.Failure()
	b.Reset()
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerExecute(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute() = %v", err)
	}

	boom := errors.New("tesseract exited 1")
	if err := b.Execute(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Execute() = %v, want %v", err, boom)
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Errorf("open breaker should fail fast, err=%v called=%v", err, called)
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := New(DefaultConfig())
	text, err := ExecuteWithResult(b, func() (string, error) { return "hello", nil })
	if err != nil || text != "hello" {
		t.Errorf("ExecuteWithResult = (%q, %v)", text, err)
	}
}

func TestBreakerHook(t *testing.T) {
	var got []State
	b, clk := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 1})
	b.WithHook(func(_, to State) { got = append(got, to) })

	b.Failure()
	clk.advance(time.Second)
	_ = b.Allow()
	b.Success()

	want := []State{Open, HalfOpen, Closed}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBreakerConcurrentUse(t *testing.T) {
	b := New(Config{Threshold: 100, ResetTimeout: time.Second, HalfOpenSuccesses: 10})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}(i)
	}
	wg.Wait()
	_ = b.State()
}

func TestStateString(t *testing.T) {
	tests := map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open", State(9): "unknown"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Threshold != DefaultThreshold || cfg.ResetTimeout != DefaultResetTimeout || cfg.HalfOpenSuccesses != DefaultHalfOpenSuccesses {
		t.Errorf("withDefaults() = %+v", cfg)
	}
	if cfg.Name != "default" {
		t.Errorf("Name = %q", cfg.Name)
	}
}
