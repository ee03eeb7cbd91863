// Package githost provides a GitHub REST v3 client for the analysis pipeline.
// The pipeline performs no automatic retries: a failed fetch surfaces to the
// caller, which converts it into a stream error. Requests do carry a bounded
// timeout so a stalled host cannot pin a computation forever
package githost

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	perr "repolyze/internal/platform/errors"
	"repolyze/internal/platform/logger"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 15 * time.Second
	defaultUA      = "repolyze-api"
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Comma separated tokens passed in from config
	// Empty means tokenless which is very low quota so not recommended
	TokensCSV string
}

// Client is a minimal GitHub REST client with token rotation
type Client struct {
	http   *http.Client
	opts   Options
	tokens []string
	cur    atomic.Int32
	log    logger.Logger
	now    func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	var toks []string
	if s := strings.TrimSpace(o.TokensCSV); s != "" {
		for _, t := range strings.Split(s, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				toks = append(toks, t)
			}
		}
	}
	return &Client{
		http:   &http.Client{Timeout: o.Timeout},
		opts:   o,
		tokens: toks,
		log:    *logger.Named("githost"),
		now:    time.Now,
	}
}

// getToken returns the next token in a round robin rotation
func (c *Client) getToken() string {
	if len(c.tokens) == 0 {
		return ""
	}
	n := int(c.cur.Add(1))
	return c.tokens[n%len(c.tokens)]
}

// get issues a GET with auth headers and maps non-2xx statuses to project errors.
// 404 comes back as a not found error so callers can distinguish a missing
// repository or branch from a host failure
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "githost new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if tok := c.getToken(); tok != "" {
		req.Header.Set("Authorization", "token "+tok)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUpstream, "repository host unreachable")
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("githost response")

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		_ = drainAndClose(resp.Body)
		return nil, perr.NotFoundf("repository host returned 404 for %s", path)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, perr.Upstreamf("repository host status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	return rc.Close()
}
