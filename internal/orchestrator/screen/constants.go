package screen

// DefaultDiffThreshold is the minimum summed per-channel difference between
// consecutive frames of a display for OCR to run again.
const DefaultDiffThreshold = 1000

// Outcomes of one OCR pass, reported in logs and status.
const (
	OutcomeNoFocus   = "no_focus"
	OutcomeNoMonitor = "no_monitor"
	OutcomeUnchanged = "unchanged"
	OutcomeEmpty     = "empty"
	OutcomeExtracted = "extracted"
	OutcomeError     = "error"
)
