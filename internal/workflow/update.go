package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
	"github.com/adamancini/betterfox-updater/internal/profile"
	"github.com/adamancini/betterfox-updater/internal/types"
	"github.com/adamancini/betterfox-updater/internal/userjs"
)

// errNoContent marks a fetch that returned nothing usable.
var errNoContent = errors.New("empty response")

func orAbsent(v string) string {
	if v == "" {
		return "absent"
	}
	return v
}

// Update runs the full update: check, optional backup, stage, replace and
// optional restart. The browser is closed at most once per run.
func (c *Coordinator) Update(ctx context.Context, opts Options, r Reporter) Result {
	res := Result{Profile: opts.ProfilePath}

	step(r, types.StatusChecking, types.PhaseChecking, "Checking for updates...")
	if !profile.IsValid(opts.ProfilePath) {
		return c.failure(r, res, OutcomeInvalidProfile, types.StatusInvalidProfile, nil,
			"Invalid profile path: %q", opts.ProfilePath)
	}

	res.LocalVersion = userjs.LocalVersion(opts.ProfilePath)
	r.Log(fmt.Sprintf("Local version: %s", orAbsent(res.LocalVersion)))

	artifact, err := c.remote.FetchContentWithProgress(ctx, r.Progress)
	if artifact.Empty() {
		if err == nil {
			err = errNoContent
		}
		return c.failure(r, res, OutcomeDownloadFailed, types.StatusNetworkError, err, "Download failed")
	}
	res.RemoteVersion = artifact.Version
	r.Log(fmt.Sprintf("Remote version: %s", orAbsent(res.RemoteVersion)))

	res.NeedsUpdate = betterfox.NeedsUpdate(res.LocalVersion, res.RemoteVersion)
	if !res.NeedsUpdate {
		step(r, types.StatusUpToDate, types.PhaseUpToDate, "%sAlready up to date", MarkOK)
		res.Outcome = OutcomeUpToDate
		res.Status = types.StatusUpToDate
		return res
	}

	if out, stop := c.canceled(ctx, r, res); stop {
		return out
	}

	closed := false
	if opts.AutoBackup {
		if opts.BackupFolder == "" {
			r.Log(MarkSkip + "Backup skipped: no backup folder configured")
		} else {
			step(r, types.StatusBackingUp, types.PhaseBackingUp, "Backing up profile...")
			c.closeBrowser(ctx, r)
			closed = true

			path, err := c.backups(opts.BackupFolder).Create(opts.ProfilePath, opts.BackupOptions(r))
			if err != nil {
				return c.failure(r, res, OutcomeBackupFailed, types.StatusBackupError, err, "Backup failed")
			}
			res.BackupPath = path
		}
	}

	if out, stop := c.canceled(ctx, r, res); stop {
		return out
	}

	step(r, types.StatusDownloading, types.PhaseDownload, "Preparing %s (%d bytes)...", userjs.FileName, artifact.Size)
	replacer := userjs.NewReplacer(opts.ProfilePath)
	staged, err := replacer.Stage(artifact.Content)
	if err != nil {
		return c.failure(r, res, OutcomeUpdateFailed, types.StatusUpdateError, err, "Update failed")
	}

	if out, stop := c.canceled(ctx, r, res); stop {
		replacer.Discard(staged)
		return out
	}

	step(r, types.StatusWriting, types.PhaseWriting, "Writing %s...", replacer.Target())
	if !closed {
		c.closeBrowser(ctx, r)
	}
	if err := replacer.Replace(staged); err != nil {
		return c.failure(r, res, OutcomeUpdateFailed, types.StatusUpdateError, err, "Update failed")
	}
	res.Written = true
	r.Log(fmt.Sprintf("%s%s updated to %s", MarkOK, userjs.FileName, orAbsent(res.RemoteVersion)))

	if opts.AutoRestart {
		step(r, types.StatusRestarting, types.PhaseRestart, "Restarting Firefox...")
		if err := c.browser.Launch(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("launch browser", "err", err)
			r.Log(fmt.Sprintf("%sCould not restart Firefox: %v", MarkWarn, err))
		} else {
			res.Restarted = true
		}
	}

	step(r, types.StatusUpdated, types.PhaseIdle, "%sUpdate completed", MarkOK)
	res.Outcome = OutcomeUpdated
	res.Status = types.StatusUpdated
	return res
}

// Backup closes the browser and snapshots the profile.
func (c *Coordinator) Backup(ctx context.Context, opts Options, r Reporter) Result {
	res := Result{Profile: opts.ProfilePath}

	step(r, types.StatusBackingUp, types.PhaseBackingUp, "Backing up profile...")
	if !profile.IsValid(opts.ProfilePath) {
		return c.failure(r, res, OutcomeInvalidProfile, types.StatusInvalidProfile, nil,
			"Invalid profile path: %q", opts.ProfilePath)
	}
	if opts.BackupFolder == "" {
		return c.failure(r, res, OutcomeBackupFailed, types.StatusBackupError, nil, "No backup folder configured")
	}
	if out, stop := c.canceled(ctx, r, res); stop {
		return out
	}

	c.closeBrowser(ctx, r)
	path, err := c.backups(opts.BackupFolder).Create(opts.ProfilePath, opts.BackupOptions(r))
	if err != nil {
		return c.failure(r, res, OutcomeBackupFailed, types.StatusBackupError, err, "Backup failed")
	}
	res.BackupPath = path
	r.Status(types.StatusBackupDone, types.PhaseIdle)
	res.Outcome = OutcomeDone
	res.Status = types.StatusBackupDone
	return res
}
