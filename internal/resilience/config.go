package resilience

import "time"

// Breaker defaults.
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 2

	// OCR runs at most once per tick, so a handful of consecutive failures
	// means the engine is missing or the service is down.
	OCRThreshold         = 3
	OCRResetTimeout      = time.Minute
	OCRHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // used in log lines
	Threshold         int           // consecutive failures before opening
	ResetTimeout      time.Duration // wait before a half-open probe
	HalfOpenSuccesses int           // probe successes needed to close
}

// DefaultConfig returns general-purpose settings.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// OCRConfig returns settings for guarding the text extractor.
func OCRConfig() Config {
	return Config{
		Name:              "ocr",
		Threshold:         OCRThreshold,
		ResetTimeout:      OCRResetTimeout,
		HalfOpenSuccesses: OCRHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
