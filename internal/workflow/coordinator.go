package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/adamancini/betterfox-updater/internal/backup"
	"github.com/adamancini/betterfox-updater/internal/browser"
	"github.com/adamancini/betterfox-updater/internal/logging"
	"github.com/adamancini/betterfox-updater/internal/remote"
	"github.com/adamancini/betterfox-updater/internal/types"
)

// Fetcher is the remote side of the workflow.
type Fetcher interface {
	FetchContentWithProgress(ctx context.Context, onChunk remote.ProgressFunc) (remote.Artifact, error)
	LastCommitTimestamp(ctx context.Context) (string, error)
	UpdateNetwork(proxy string, timeout time.Duration, retries int)
}

// Snapshotter creates profile backups.
type Snapshotter interface {
	Create(profileDir string, opts backup.Options) (string, error)
}

// NetworkStore persists network settings.
type NetworkStore interface {
	SetNetwork(cfg types.NetworkConfig) error
}

// Options are the per-run settings of an update or backup.
type Options struct {
	ProfilePath   string
	BackupFolder  string
	AutoBackup    bool
	AutoRestart   bool
	Compress      bool
	RetentionDays int
}

// BackupOptions returns the snapshot options for a run.
func (o Options) BackupOptions(r Reporter) backup.Options {
	return backup.Options{Compress: o.Compress, RetentionDays: o.RetentionDays, Log: r.Log}
}

// Deps holds the collaborators of a Coordinator.
type Deps struct {
	Remote  Fetcher
	Browser browser.Controller
	// Backups returns the snapshotter for a backup folder. Defaults to
	// backup.NewManager.
	Backups func(folder string) Snapshotter
	// Store persists network changes. It may be nil.
	Store NetworkStore
	// FirefoxVersion probes the installed browser when the profile does
	// not record a version. It may be nil.
	FirefoxVersion func(ctx context.Context) (string, error)
	Logger         *log.Logger
}

// Coordinator runs the workflow operations.
type Coordinator struct {
	remote         Fetcher
	browser        browser.Controller
	backups        func(folder string) Snapshotter
	store          NetworkStore
	firefoxVersion func(ctx context.Context) (string, error)
	logger         *log.Logger
}

// New creates a coordinator from its dependencies.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		remote:         deps.Remote,
		browser:        deps.Browser,
		backups:        deps.Backups,
		store:          deps.Store,
		firefoxVersion: deps.FirefoxVersion,
		logger:         deps.Logger,
	}
	if c.backups == nil {
		c.backups = func(folder string) Snapshotter { return backup.NewManager(folder) }
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c
}

// step emits a log line together with a status transition.
func step(r Reporter, s types.Status, p types.Phase, format string, args ...any) {
	r.Log(fmt.Sprintf(format, args...))
	r.Status(s, p)
}

// failure ends a run with an error line and an error status.
func (c *Coordinator) failure(r Reporter, res Result, outcome Outcome, status types.Status, err error, format string, args ...any) Result {
	line := fmt.Sprintf(format, args...)
	if err != nil {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	c.logger.Error(line, "outcome", outcome)
	r.Log(MarkErr + line)
	r.Status(status, types.PhaseError)
	return res.fail(outcome, status, err)
}

// canceled reports a run stopped between steps.
func (c *Coordinator) canceled(ctx context.Context, r Reporter, res Result) (Result, bool) {
	if err := ctx.Err(); err != nil {
		r.Log(MarkErr + "Operation canceled")
		r.Status(types.StatusCanceled, types.PhaseError)
		return res.fail(OutcomeCanceled, types.StatusCanceled, err), true
	}
	return res, false
}

// closeBrowser stops the browser. Failures are warnings; the write that
// follows reports any lock problem.
func (c *Coordinator) closeBrowser(ctx context.Context, r Reporter) {
	r.Log("Closing Firefox...")
	if err := c.browser.Close(ctx); err != nil {
		c.logger.Warn("close browser", "err", err)
		r.Log(fmt.Sprintf("%sCould not close Firefox: %v", MarkWarn, err))
	}
}
