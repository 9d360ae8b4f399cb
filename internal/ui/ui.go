// Package ui is the narrow surface the recorder uses to reflect its state in a
// host interface: a status icon and the label of the pause menu item.
package ui

import (
	"log/slog"
	"sync"
)

// Icon is the status indicator.
type Icon string

const (
	IconRecording Icon = "recording"
	IconPaused    Icon = "paused"
)

// Menu labels.
const (
	LabelPause = "Pause 5 minutes"
	LabelQuit  = "Quit"
)

// Sink receives UI updates. Implementations must be safe for concurrent use.
type Sink interface {
	SetIcon(icon Icon)
	SetMenuLabel(label string)
}

// Nop discards updates.
type Nop struct{}

func (Nop) SetIcon(Icon)        {}
func (Nop) SetMenuLabel(string) {}

// Multi fans updates out to every sink.
type Multi []Sink

func (m Multi) SetIcon(icon Icon) {
	for _, s := range m {
		s.SetIcon(icon)
	}
}

func (m Multi) SetMenuLabel(label string) {
	for _, s := range m {
		s.SetMenuLabel(label)
	}
}

// State remembers the last icon and label and logs transitions. Countdown
// label updates are logged at debug level.
type State struct {
	mu    sync.RWMutex
	icon  Icon
	label string
}

// NewState starts in the recording state.
func NewState() *State {
	return &State{icon: IconRecording, label: LabelPause}
}

func (s *State) SetIcon(icon Icon) {
	s.mu.Lock()
	changed := s.icon != icon
	s.icon = icon
	s.mu.Unlock()
	if changed {
		slog.Info("status icon", "icon", icon)
	}
}

func (s *State) SetMenuLabel(label string) {
	s.mu.Lock()
	s.label = label
	s.mu.Unlock()
	slog.Debug("menu label", "label", label)
}

// Snapshot returns the current icon and label.
func (s *State) Snapshot() (Icon, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.icon, s.label
}
