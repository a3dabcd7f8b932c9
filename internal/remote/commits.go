package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Jeffail/gabs"
)

const (
	// NotAvailable is displayed when the commit date cannot be determined.
	NotAvailable = "n/d"

	// CommitCacheTTL is how long a commit lookup result is reused.
	CommitCacheTTL = 5 * time.Minute

	// DisplayLayout is the local-time format of commit timestamps.
	DisplayLayout = "2006-01-02 15:04:05"

	githubLayout  = "2006-01-02T15:04:05Z"
	commitTimeout = 8 * time.Second
)

type commitCache struct {
	valid bool
	at    time.Time
	value string
	err   error
}

// LastCommitTimestamp returns the local-time date of the last commit that
// touched the tracked file. Results, failures included, are cached for
// CommitCacheTTL. On failure the value is NotAvailable.
func (c *Client) LastCommitTimestamp(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cache.valid && c.now().Sub(c.cache.at) < CommitCacheTTL {
		value, err := c.cache.value, c.cache.err
		c.mu.Unlock()
		return value, err
	}
	c.mu.Unlock()

	value, err := c.fetchLastCommit(ctx)
	if err != nil {
		c.logger.Error("commit lookup failed", "url", c.commitsURL, "err", err)
		value = NotAvailable
	}

	c.mu.Lock()
	c.cache = commitCache{valid: true, at: c.now(), value: value, err: err}
	c.mu.Unlock()

	return value, err
}

// InvalidateCommitCache forces the next LastCommitTimestamp call to query
// the API.
func (c *Client) InvalidateCommitCache() {
	c.mu.Lock()
	c.cache = commitCache{}
	c.mu.Unlock()
}

func (c *Client) commitsRequestURL() (string, error) {
	u, err := url.Parse(c.commitsURL)
	if err != nil {
		return "", fmt.Errorf("invalid commits URL: %w", err)
	}
	q := u.Query()
	q.Set("path", c.trackedPath)
	q.Set("per_page", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) fetchLastCommit(ctx context.Context) (string, error) {
	target, err := c.commitsRequestURL()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()

	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	resp, err := c.get(ctx, target, headers)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read commits response: %w", err)
	}

	return ParseCommitTimestamp(body, c.location)
}

// ParseCommitTimestamp extracts [0].commit.committer.date from a GitHub
// commits listing and formats it in loc.
func ParseCommitTimestamp(body []byte, loc *time.Location) (string, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode commits response: %w", err)
	}

	date, ok := parsed.Index(0).Path("commit.committer.date").Data().(string)
	if !ok {
		return "", fmt.Errorf("commits response has no committer date")
	}

	ts, err := time.Parse(githubLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid commit date %q: %w", date, err)
	}

	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(DisplayLayout), nil
}
