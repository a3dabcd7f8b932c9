package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
	"github.com/adamancini/betterfox-updater/internal/profile"
	"github.com/adamancini/betterfox-updater/internal/remote"
	"github.com/adamancini/betterfox-updater/internal/types"
	"github.com/adamancini/betterfox-updater/internal/userjs"
)

// Check reports the local and remote versions, the last upstream commit,
// the installed Firefox version and whether an update is needed. Nothing is
// written.
func (c *Coordinator) Check(ctx context.Context, profileDir string, r Reporter) Result {
	res := Result{Profile: profileDir}

	step(r, types.StatusChecking, types.PhaseChecking, "Checking for updates...")
	if !profile.IsValid(profileDir) {
		return c.failure(r, res, OutcomeInvalidProfile, types.StatusInvalidProfile, nil,
			"Invalid profile path: %q", profileDir)
	}
	res.LocalVersion = userjs.LocalVersion(profileDir)

	var (
		artifact  remote.Artifact
		fetchErr  error
		commit    string
		fxVersion string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		artifact, fetchErr = c.remote.FetchContentWithProgress(gctx, r.Progress)
		return nil
	})
	g.Go(func() error {
		ts, err := c.remote.LastCommitTimestamp(gctx)
		if err != nil {
			c.logger.Debug("last commit", "err", err)
		}
		commit = ts
		return nil
	})
	g.Go(func() error {
		fxVersion = c.installedFirefox(gctx, profileDir)
		return nil
	})
	_ = g.Wait()

	res.LastCommit = commit
	if res.LastCommit == "" {
		res.LastCommit = remote.NotAvailable
	}
	res.FirefoxVersion = fxVersion

	r.Log(fmt.Sprintf("Local version: %s", orAbsent(res.LocalVersion)))
	if artifact.Empty() {
		if fetchErr == nil {
			fetchErr = errNoContent
		}
		return c.failure(r, res, OutcomeDownloadFailed, types.StatusNetworkError, fetchErr, "Download failed")
	}
	res.RemoteVersion = artifact.Version
	r.Log(fmt.Sprintf("Remote version: %s (last commit %s)", orAbsent(res.RemoteVersion), res.LastCommit))

	if res.FirefoxVersion != "" && res.RemoteVersion != "" {
		compat, err := betterfox.CheckCompatibility(res.RemoteVersion, res.FirefoxVersion)
		if err != nil {
			c.logger.Debug("compatibility", "err", err)
		} else {
			res.Compatibility = compat
			if compat.Ahead {
				r.Log(fmt.Sprintf("%sBetterfox %d targets a newer Firefox than the installed %s",
					MarkWarn, compat.BetterfoxMajor, res.FirefoxVersion))
			}
		}
	}

	res.NeedsUpdate = betterfox.NeedsUpdate(res.LocalVersion, res.RemoteVersion)
	if res.NeedsUpdate {
		step(r, types.StatusReady, types.PhaseIdle, "Update available: %s -> %s",
			orAbsent(res.LocalVersion), orAbsent(res.RemoteVersion))
		res.Outcome = OutcomeUpdateReady
		res.Status = types.StatusReady
		return res
	}
	step(r, types.StatusUpToDate, types.PhaseUpToDate, "%sAlready up to date", MarkOK)
	res.Outcome = OutcomeUpToDate
	res.Status = types.StatusUpToDate
	return res
}

// installedFirefox returns the version recorded in the profile, falling
// back to asking the browser binary.
func (c *Coordinator) installedFirefox(ctx context.Context, profileDir string) string {
	if v := profile.FirefoxVersion(profileDir); v != "" {
		return v
	}
	if c.firefoxVersion == nil {
		return ""
	}
	v, err := c.firefoxVersion(ctx)
	if err != nil {
		c.logger.Debug("firefox version", "err", err)
		return ""
	}
	return v
}
