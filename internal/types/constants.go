// Package types provides type-safe constants shared across the updater.
//
// This package centralizes the enumerated types emitted by the workflow
// (status labels and phases) and the network configuration shared between
// the settings store and the remote client.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Status is the short, UI-facing label attached to workflow events.
type Status string

const (
	StatusReady          Status = "ready"
	StatusChecking       Status = "checking"
	StatusBackingUp      Status = "backing up"
	StatusDownloading    Status = "downloading"
	StatusWriting        Status = "writing"
	StatusRestarting     Status = "restarting"
	StatusUpdated        Status = "updated"
	StatusUpToDate       Status = "already up to date"
	StatusBackupDone     Status = "backup completed"
	StatusNetworkOK      Status = "network ok"
	StatusNetworkUpdated Status = "network updated"
	StatusNetworkError   Status = "network error"
	StatusBackupError    Status = "backup error"
	StatusUpdateError    Status = "update error"
	StatusInvalidProfile Status = "invalid profile"
	StatusCanceled       Status = "canceled"
)

// AllStatuses returns every known status.
func AllStatuses() []Status {
	return []Status{
		StatusReady, StatusChecking, StatusBackingUp, StatusDownloading,
		StatusWriting, StatusRestarting, StatusUpdated, StatusUpToDate,
		StatusBackupDone, StatusNetworkOK, StatusNetworkUpdated,
		StatusNetworkError, StatusBackupError, StatusUpdateError,
		StatusInvalidProfile, StatusCanceled,
	}
}

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Validate checks if the Status is a known value.
func (s Status) Validate() error {
	for _, known := range AllStatuses() {
		if s == known {
			return nil
		}
	}
	if s == "" {
		return fmt.Errorf("status is required")
	}
	return fmt.Errorf("invalid status '%s'", s)
}

// IsError returns true for terminal failure statuses.
func (s Status) IsError() bool {
	switch s {
	case StatusNetworkError, StatusBackupError, StatusUpdateError, StatusInvalidProfile, StatusCanceled:
		return true
	}
	return false
}

// IsSuccess returns true for terminal success statuses.
func (s Status) IsSuccess() bool {
	switch s {
	case StatusUpdated, StatusUpToDate, StatusBackupDone, StatusNetworkOK, StatusNetworkUpdated:
		return true
	}
	return false
}

// IsBusy returns true for statuses emitted while a step is running.
func (s Status) IsBusy() bool {
	switch s {
	case StatusChecking, StatusBackingUp, StatusDownloading, StatusWriting, StatusRestarting:
		return true
	}
	return false
}

// Phase is a state of the update state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseChecking  Phase = "checking"
	PhaseUpToDate  Phase = "up-to-date"
	PhaseBackingUp Phase = "backing-up"
	PhaseDownload  Phase = "downloading"
	PhaseWriting   Phase = "writing"
	PhaseRestart   Phase = "restarting"
	PhaseError     Phase = "error"
)

// AllPhases returns the phases in workflow order.
func AllPhases() []Phase {
	return []Phase{PhaseIdle, PhaseChecking, PhaseUpToDate, PhaseBackingUp, PhaseDownload, PhaseWriting, PhaseRestart, PhaseError}
}

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase parses a string into a Phase.
// Returns an error if the string is not a valid phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPhases() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid phase '%s'", s)
}

// Default network values.
const (
	DefaultTimeout = 12 * time.Second
	DefaultRetries = 3
)

// NetworkConfig holds the user-configurable network options.
type NetworkConfig struct {
	Proxy   string        `json:"proxy" yaml:"proxy" toml:"proxy"`
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	Retries int           `json:"retries" yaml:"retries" toml:"retries"`
}

// DefaultNetworkConfig returns the network defaults.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{Timeout: DefaultTimeout, Retries: DefaultRetries}
}

// Normalize replaces out-of-range values with defaults.
func (n NetworkConfig) Normalize() NetworkConfig {
	n.Proxy = strings.TrimSpace(n.Proxy)
	if n.Timeout <= 0 {
		n.Timeout = DefaultTimeout
	}
	if n.Retries < 0 {
		n.Retries = 0
	}
	return n
}
