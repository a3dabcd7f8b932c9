package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/adamancini/betterfox-updater/internal/backup"
	"github.com/adamancini/betterfox-updater/internal/browser"
	"github.com/adamancini/betterfox-updater/internal/interactive"
	"github.com/adamancini/betterfox-updater/internal/logging"
	"github.com/adamancini/betterfox-updater/internal/output"
	"github.com/adamancini/betterfox-updater/internal/profile"
	"github.com/adamancini/betterfox-updater/internal/remote"
	"github.com/adamancini/betterfox-updater/internal/settings"
	"github.com/adamancini/betterfox-updater/internal/workflow"
)

// tokenEnv holds an optional GitHub token for the commits API.
const tokenEnv = "GITHUB_TOKEN"

// app is the wiring shared by every command.
type app struct {
	store   *settings.Store
	conf    settings.Settings
	logger  *log.Logger
	closer  io.Closer
	client  *remote.Client
	browser *browser.Process
	flow    *workflow.Coordinator
	format  output.Format
}

// newApp loads settings and builds the logger, remote client, browser
// controller and coordinator.
func newApp() (*app, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}

	store, err := settings.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	logger, closer, err := logging.New(os.Stderr, logging.Options{
		Verbose: verbose,
		Quiet:   quiet,
		File:    filepath.Join(store.Home(), logging.FileName),
	})
	if err != nil {
		return nil, err
	}

	conf := store.Snapshot()
	client := remote.NewClient(conf.Network).
		WithRawURL(conf.RawURL).
		WithCommitsURL(conf.CommitsURL).
		WithTrackedPath(conf.TrackedPath).
		WithToken(os.Getenv(tokenEnv)).
		WithLogger(logger.WithPrefix("remote"))
	proc := browser.NewProcess(conf.ProcessName, conf.Binary).
		WithLogger(logger.WithPrefix("browser"))

	flow := workflow.New(workflow.Deps{
		Remote:         client,
		Browser:        proc,
		Store:          store,
		FirefoxVersion: proc.Version,
		Logger:         logger.WithPrefix("workflow"),
	})

	return &app{
		store:   store,
		conf:    conf,
		logger:  logger,
		closer:  closer,
		client:  client,
		browser: proc,
		flow:    flow,
		format:  format,
	}, nil
}

// Close releases the log file.
func (a *app) Close() {
	_ = a.closer.Close()
}

func (a *app) text() bool {
	return a.format == output.FormatText
}

func (a *app) color() bool {
	return a.text() && interactive.IsOutputTerminal()
}

// writer returns the structured output writer for stdout.
func (a *app) writer() *output.Writer {
	return output.NewWriter(os.Stdout, a.format)
}

// emit writes v in the selected format, or calls text for text output.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.text() {
		text(os.Stdout)
		return nil
	}
	return a.writer().Write(v)
}

// backupManager returns the manager for the configured backup folder.
func (a *app) backupManager() (*backup.Manager, error) {
	if a.conf.BackupFolder == "" {
		return nil, fmt.Errorf("no backup folder configured (set %s)", settings.KeyBackupFolder)
	}
	return backup.NewManager(a.conf.BackupFolder), nil
}

// resolveProfile picks the profile directory: the flag, then the saved
// setting, then discovery. With several profiles on a terminal the user
// chooses; otherwise the default heuristic decides. An empty result means
// no profile was found.
func (a *app) resolveProfile(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.conf.ProfilePath != "" {
		return a.conf.ProfilePath, nil
	}

	base, err := profile.DefaultBaseDir()
	if err != nil {
		return "", noProfile(err)
	}
	return a.discoverProfile(profile.NewLocator(base))
}

func (a *app) discoverProfile(locator *profile.Locator) (string, error) {
	profiles, err := locator.Discover()
	if err != nil {
		return "", noProfile(err)
	}
	if len(profiles) > 1 && a.text() && interactive.IsTerminal() {
		options := make([]string, len(profiles))
		for i, p := range profiles {
			options[i] = fmt.Sprintf("%s (%s)", p.Name, p.Path)
		}
		if i, ok := interactive.NewPrompter().Choose("Select a Firefox profile:", options); ok {
			return profiles[i].Path, nil
		}
		return "", &ExitError{Code: workflow.ExitInvalidProfile, Message: "no profile selected"}
	}

	def, err := locator.Default()
	if err != nil {
		return "", noProfile(err)
	}
	if def == nil {
		return "", nil
	}
	a.logger.Info("using discovered profile", "path", def.Path)
	return def.Path, nil
}

// noProfile reports a failed lookup with the invalid profile exit code.
func noProfile(err error) error {
	return &ExitError{Code: workflow.ExitInvalidProfile, Message: "failed to find a Firefox profile", Cause: err}
}

// run executes op on the dispatcher and renders its events until it ends.
// Ctrl-C cancels between steps.
func (a *app) run(cmd *cobra.Command, op workflow.Operation) (workflow.Result, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	run, err := workflow.NewDispatcher().Start(ctx, op)
	if err != nil {
		return workflow.Result{}, err
	}

	w := io.Writer(os.Stdout)
	if !a.text() {
		w = os.Stderr
	}
	r := newRenderer(w, a.color(), interactive.IsOutputTerminal() && a.text(), quiet, verbose)
	for e := range run.Events {
		r.handle(e)
	}
	r.finish()

	return run.Wait(), nil
}

// finish writes the result and maps it to an exit error.
func (a *app) finish(res workflow.Result, text func(w io.Writer)) error {
	if err := a.emit(res, func(w io.Writer) {
		if text != nil {
			text(w)
		}
		if !quiet || !res.Outcome.OK() {
			_, _ = fmt.Fprintln(w, output.Status(res.Status, a.color()))
		}
	}); err != nil {
		return err
	}
	return resultError(res)
}
