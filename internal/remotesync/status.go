package remotesync

import (
	"maps"
	"slices"
	"time"
)

// State is the orchestrator's connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Syncing
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Syncing:
		return "syncing"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is what the orchestrator exposes to its callers.
type Status struct {
	State      State     `json:"state"`
	LastSyncAt time.Time `json:"lastSyncAt,omitzero"`
	// LastError is the cause of the current Error state.
	LastError string `json:"lastError,omitempty"`
	// AuthFailed is set while pushes are short-circuited waiting for
	// new credentials.
	AuthFailed bool `json:"authFailed,omitempty"`
	// Versions holds the last known version token per document.
	Versions map[string]string `json:"versions,omitempty"`
	// Warnings lists documents that were reset because their remote
	// content could not be decoded.
	Warnings []string `json:"warnings,omitempty"`
}

func (s Status) clone() Status {
	s.Versions = maps.Clone(s.Versions)
	s.Warnings = slices.Clone(s.Warnings)
	return s
}

// Trigger says why a push was requested.
type Trigger int

const (
	// TriggerMutation follows a change to the local state.
	TriggerMutation Trigger = iota
	// TriggerTimer comes from the background scheduler.
	TriggerTimer
	// TriggerManual is an explicit request from the API.
	TriggerManual
	// TriggerReconfigure follows a credential change.
	TriggerReconfigure
)

func (t Trigger) String() string {
	switch t {
	case TriggerMutation:
		return "mutation"
	case TriggerTimer:
		return "timer"
	case TriggerManual:
		return "manual"
	case TriggerReconfigure:
		return "reconfigure"
	default:
		return "unknown"
	}
}

// coalesces reports whether a trigger arriving during a push must be
// honored by one follow-up push once the current one ends.
func (t Trigger) coalesces() bool {
	return t == TriggerMutation || t == TriggerReconfigure
}
