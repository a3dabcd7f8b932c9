package workflow

import (
	"fmt"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
	"github.com/adamancini/betterfox-updater/internal/types"
)

// Outcome is the terminal classification of an operation.
type Outcome string

const (
	OutcomeUpdated        Outcome = "updated"
	OutcomeUpToDate       Outcome = "up-to-date"
	OutcomeUpdateReady    Outcome = "update-available"
	OutcomeDone           Outcome = "done"
	OutcomeDownloadFailed Outcome = "download-failed"
	OutcomeInvalidProfile Outcome = "invalid-profile"
	OutcomeBackupFailed   Outcome = "backup-failed"
	OutcomeUpdateFailed   Outcome = "update-failed"
	OutcomeCanceled       Outcome = "canceled"
	OutcomeFailed         Outcome = "failed"
)

// Exit codes.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitInvalidProfile = 2
)

// ExitCode maps the outcome to a process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeUpdated, OutcomeUpToDate, OutcomeUpdateReady, OutcomeDone:
		return ExitSuccess
	case OutcomeInvalidProfile:
		return ExitInvalidProfile
	default:
		return ExitFailure
	}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.ExitCode() == ExitSuccess
}

// Result is what an operation returns once its events are drained.
type Result struct {
	Outcome       Outcome      `json:"outcome" yaml:"outcome" toml:"outcome"`
	Status        types.Status `json:"status" yaml:"status" toml:"status"`
	Profile       string       `json:"profile,omitempty" yaml:"profile,omitempty" toml:"profile,omitempty"`
	LocalVersion  string       `json:"local_version,omitempty" yaml:"local_version,omitempty" toml:"local_version,omitempty"`
	RemoteVersion string       `json:"remote_version,omitempty" yaml:"remote_version,omitempty" toml:"remote_version,omitempty"`
	BackupPath    string       `json:"backup_path,omitempty" yaml:"backup_path,omitempty" toml:"backup_path,omitempty"`
	Written       bool         `json:"written" yaml:"written" toml:"written"`
	Restarted     bool         `json:"restarted" yaml:"restarted" toml:"restarted"`

	// Check details.
	LastCommit     string                   `json:"last_commit,omitempty" yaml:"last_commit,omitempty" toml:"last_commit,omitempty"`
	FirefoxVersion string                   `json:"firefox_version,omitempty" yaml:"firefox_version,omitempty" toml:"firefox_version,omitempty"`
	NeedsUpdate    bool                     `json:"needs_update" yaml:"needs_update" toml:"needs_update"`
	Compatibility  *betterfox.Compatibility `json:"compatibility,omitempty" yaml:"compatibility,omitempty" toml:"compatibility,omitempty"`

	Err   error  `json:"-" yaml:"-" toml:"-"`
	Error string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
}

func (r Result) fail(outcome Outcome, status types.Status, err error) Result {
	r.Outcome = outcome
	r.Status = status
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// String renders the result for text output.
func (r Result) String() string {
	s := fmt.Sprintf("%s (%s)", r.Status, r.Outcome)
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}
