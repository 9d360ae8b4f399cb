package orchestrator

import "time"

// Scheduler defaults
const (
	// DefaultTickInterval is the capture + OCR period.
	DefaultTickInterval = 5 * time.Second

	// DefaultPollInterval is how often display topology is sampled.
	DefaultPollInterval = 2 * time.Second
)
