// Package fixture resets the blog backend and registers the accounts the
// scenarios log in with.
package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/kuitang/bloglist-e2e/internal/errs"
	"github.com/kuitang/bloglist-e2e/internal/logutil"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/ratelimit"
	"github.com/kuitang/bloglist-e2e/internal/urlutil"
)

const (
	resetPath = "/api/testing/reset"
	usersPath = "/api/users"

	maxLoggedBody = 512
)

// Options configures a Client.
type Options struct {
	APIURL  string        // backend root; the API paths are appended to it
	RPS     float64       // setup calls per second
	Burst   int           // setup call burst
	Timeout time.Duration // per-request timeout; zero means 10s
}

// Client performs the HTTP setup calls of the suite. Calls are paced per
// backend host and logged with credentials redacted.
type Client struct {
	apiURL string
	http   *http.Client
	pacer  *ratelimit.Pacer
}

// NewClient returns a Client for opts.APIURL. Call Close when done.
func NewClient(opts Options) *Client {
	cfg := ratelimit.DefaultConfig
	if opts.RPS > 0 {
		cfg.RPS = opts.RPS
	}
	if opts.Burst > 0 {
		cfg.Burst = opts.Burst
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	pacer := ratelimit.NewPacer(cfg)
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = timeout
	httpClient.Transport = obs.NewTransport("fixture", &ratelimit.Transport{
		Pacer: pacer,
		Base:  httpClient.Transport,
	})

	return &Client{
		apiURL: opts.APIURL,
		http:   httpClient,
		pacer:  pacer,
	}
}

// Close stops the pacer and drops idle connections.
func (c *Client) Close() {
	c.pacer.Stop()
	c.http.CloseIdleConnections()
}

// Reset clears all users and blogs on the backend. Any HTTP response counts
// as success; only a failure to reach the backend is an error.
func (c *Client) Reset(ctx context.Context) error {
	resp, err := c.post(ctx, resetPath, nil)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "reset backend", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	obs.From(ctx).With("pkg", "fixture").Info("backend_reset",
		"api", urlutil.Redact(c.apiURL),
		"status", resp.StatusCode,
	)
	return nil
}

// RegisterUser creates user on the backend. A non-2xx response is an error
// because every later login depends on the account existing.
func (c *Client) RegisterUser(ctx context.Context, user User) error {
	body, err := json.Marshal(user)
	if err != nil {
		return errs.Wrap(errs.Internal, "encode user", err)
	}

	resp, err := c.post(ctx, usersPath, body)
	if err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("register %s", user.Username), err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	l := obs.From(ctx).With("pkg", "fixture")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.Warn("user_register_rejected",
			"username", user.Username,
			"status", resp.StatusCode,
			"request", logutil.FormatBodyForLog("application/json", body, maxLoggedBody),
			"response", logutil.FormatBodyForLog(resp.Header.Get("Content-Type"), respBody, maxLoggedBody),
		)
		return errs.New(errs.SetupFailed, fmt.Sprintf("register %s: backend answered %d", user.Username, resp.StatusCode))
	}
	l.Info("user_registered",
		"username", user.Username,
		"status", resp.StatusCode,
		"request", logutil.FormatBodyForLog("application/json", body, maxLoggedBody),
	)
	return nil
}

// ResetAndRegister resets the backend and registers users in order.
func (c *Client) ResetAndRegister(ctx context.Context, users ...User) error {
	if err := c.Reset(ctx); err != nil {
		return err
	}
	for _, u := range users {
		if err := c.RegisterUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlutil.BuildAbsolute(c.apiURL, path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
