package workflow

import (
	"context"

	"github.com/adamancini/betterfox-updater/internal/types"
)

// TestNetwork fetches the remote file once to verify connectivity.
func (c *Coordinator) TestNetwork(ctx context.Context, r Reporter) Result {
	var res Result

	step(r, types.StatusChecking, types.PhaseChecking, "Testing connection...")
	artifact, err := c.remote.FetchContentWithProgress(ctx, r.Progress)
	if artifact.Empty() {
		if err == nil {
			err = errNoContent
		}
		return c.failure(r, res, OutcomeFailed, types.StatusNetworkError, err, "Connection failed")
	}
	res.RemoteVersion = artifact.Version
	step(r, types.StatusNetworkOK, types.PhaseIdle, "%sConnection OK (version %s, %d bytes)",
		MarkOK, orAbsent(artifact.Version), artifact.Size)
	res.Outcome = OutcomeDone
	res.Status = types.StatusNetworkOK
	return res
}

// ApplyNetwork persists cfg and applies it to the remote client. The next
// request uses the new settings.
func (c *Coordinator) ApplyNetwork(ctx context.Context, cfg types.NetworkConfig, r Reporter) Result {
	var res Result

	if out, stop := c.canceled(ctx, r, res); stop {
		return out
	}
	cfg = cfg.Normalize()
	if c.store != nil {
		if err := c.store.SetNetwork(cfg); err != nil {
			return c.failure(r, res, OutcomeFailed, types.StatusNetworkError, err, "Could not save network settings")
		}
	}
	c.remote.UpdateNetwork(cfg.Proxy, cfg.Timeout, cfg.Retries)

	proxy := cfg.Proxy
	if proxy == "" {
		proxy = "none"
	}
	step(r, types.StatusNetworkUpdated, types.PhaseIdle, "%sNetwork updated (proxy %s, timeout %s, retries %d)",
		MarkOK, proxy, cfg.Timeout, cfg.Retries)
	res.Outcome = OutcomeDone
	res.Status = types.StatusNetworkUpdated
	return res
}
