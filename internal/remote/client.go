// Package remote fetches the upstream Betterfox user.js and its commit
// metadata from GitHub.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/adamancini/betterfox-updater/internal/betterfox"
	"github.com/adamancini/betterfox-updater/internal/types"
)

// Default upstream endpoints.
var (
	DefaultRawURL     = fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", betterfox.Owner, betterfox.Repo, betterfox.Branch, betterfox.TargetFile)
	DefaultCommitsURL = fmt.Sprintf("https://api.github.com/repos/%s/%s/commits", betterfox.Owner, betterfox.Repo)
)

// UserAgent is sent with every request.
const UserAgent = "BetterfoxUpdater"

const chunkSize = 8 * 1024

// Artifact is the fetched remote user.js.
type Artifact struct {
	Version string `json:"version" yaml:"version" toml:"version"`
	Content string `json:"-" yaml:"-" toml:"-"`
	Size    int64  `json:"size" yaml:"size" toml:"size"`
}

// Empty returns true when nothing was downloaded.
func (a Artifact) Empty() bool {
	return a.Content == ""
}

// ProgressFunc receives the size of each received chunk and the expected
// total, which is 0 when the server did not announce a length.
type ProgressFunc func(chunk, total int64)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Client talks to the upstream repository. Network options can be changed
// at runtime with UpdateNetwork; requests already in flight keep the
// options they started with.
type Client struct {
	mu          sync.Mutex
	network     types.NetworkConfig
	httpClient  *http.Client
	rawURL      string
	commitsURL  string
	trackedPath string
	token       string
	backoff     time.Duration
	logger      *log.Logger
	now         func() time.Time
	location    *time.Location
	cache       commitCache
}

// NewClient creates a client for the default upstream endpoints.
func NewClient(network types.NetworkConfig) *Client {
	return &Client{
		network:     network.Normalize(),
		rawURL:      DefaultRawURL,
		commitsURL:  DefaultCommitsURL,
		trackedPath: betterfox.TargetFile,
		backoff:     DefaultBackoff,
		logger:      log.New(io.Discard),
		now:         time.Now,
		location:    time.Local,
	}
}

// WithToken sets an optional GitHub token for the commits API
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// WithRawURL overrides the user.js URL.
func (c *Client) WithRawURL(u string) *Client {
	if u != "" {
		c.rawURL = u
	}
	return c
}

// WithCommitsURL overrides the commits API URL.
func (c *Client) WithCommitsURL(u string) *Client {
	if u != "" {
		c.commitsURL = u
	}
	return c
}

// WithTrackedPath sets the repository path whose commits are queried.
func (c *Client) WithTrackedPath(p string) *Client {
	if p != "" {
		c.trackedPath = p
	}
	return c
}

// WithLogger sets the logger used for fetch failures.
func (c *Client) WithLogger(l *log.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithBackoff sets the base retry delay.
func (c *Client) WithBackoff(d time.Duration) *Client {
	c.backoff = d
	return c
}

// WithClock replaces the wall clock used by the commit cache.
func (c *Client) WithClock(now func() time.Time) *Client {
	if now != nil {
		c.now = now
	}
	return c
}

// WithLocation sets the zone used to display commit timestamps.
func (c *Client) WithLocation(loc *time.Location) *Client {
	if loc != nil {
		c.location = loc
	}
	return c
}

// RawURL returns the user.js URL.
func (c *Client) RawURL() string {
	return c.rawURL
}

// Network returns the current network options.
func (c *Client) Network() types.NetworkConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.network
}

// UpdateNetwork replaces proxy, timeout and retry count for subsequent calls.
func (c *Client) UpdateNetwork(proxy string, timeout time.Duration, retries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.network = types.NetworkConfig{Proxy: proxy, Timeout: timeout, Retries: retries}.Normalize()
	c.httpClient = nil
}

// snapshot returns the HTTP client and retry policy for one call.
func (c *Client) snapshot() (*http.Client, RetryPolicy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient == nil {
		hc, err := newHTTPClient(c.network)
		if err != nil {
			return nil, RetryPolicy{}, err
		}
		c.httpClient = hc
	}

	policy := NewRetryPolicy(c.network.Retries)
	policy.Backoff = c.backoff
	return c.httpClient, policy, nil
}

func newHTTPClient(cfg types.NetworkConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.Proxy != "" {
		proxyURL, err := parseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// parseProxy accepts "host:port" as shorthand for "http://host:port".
func parseProxy(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy %q: missing host", raw)
	}
	return u, nil
}

// get performs a GET with the retry policy and rejects non-2xx responses.
func (c *Client) get(ctx context.Context, target string, headers map[string]string) (*http.Response, error) {
	client, policy, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	resp, err := policy.Do(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return client.Do(req)
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: target}
	}
	return resp, nil
}

// FetchContent downloads the remote user.js and extracts its version.
func (c *Client) FetchContent(ctx context.Context) (Artifact, error) {
	return c.FetchContentWithProgress(ctx, nil)
}

// FetchContentWithProgress streams the remote user.js, calling onChunk
// after every received chunk.
func (c *Client) FetchContentWithProgress(ctx context.Context, onChunk ProgressFunc) (Artifact, error) {
	resp, err := c.get(ctx, c.rawURL, nil)
	if err != nil {
		c.logger.Error("remote fetch failed", "url", c.rawURL, "err", err)
		return Artifact{}, fmt.Errorf("failed to fetch %s: %w", c.rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if onChunk != nil {
				onChunk(int64(n), total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			c.logger.Error("remote download interrupted", "url", c.rawURL, "err", err)
			return Artifact{}, fmt.Errorf("download interrupted: %w", err)
		}
	}

	return newArtifact(buf.Bytes()), nil
}

func newArtifact(body []byte) Artifact {
	content := strings.ToValidUTF8(string(body), "�")
	return Artifact{
		Version: betterfox.ExtractVersion(content),
		Content: content,
		Size:    int64(len(body)),
	}
}
