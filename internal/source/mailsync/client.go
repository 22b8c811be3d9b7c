// Package mailsync is a thin HTTP client for the remote mail sync
// function.
package mailsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/inbox-triage/internal/source"
)

// Client invokes the remote sync function with Bearer authentication and
// retries HTTP 429 with backoff. The HTTP client carries no timeout: once
// issued, a sync call is awaited until it settles.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	log        zerolog.Logger
}

var _ source.Syncer = (*Client)(nil)

// NewClient creates a client for the function at url.
func NewClient(url, token string) *Client {
	return &Client{
		url:        strings.TrimRight(url, "/"),
		token:      token,
		httpClient: &http.Client{},
		maxRetries: 3,
		sleep:      sleepContext,
		log:        zerolog.Nop(),
	}
}

// WithLogger sets the logger used for response diagnostics.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.log = logger.With().Str("component", "mailsync").Logger()
	return c
}

// Sync invokes the function and decodes its outcome.
func (c *Client) Sync(ctx context.Context) (*source.Outcome, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader("{}"))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("invoking sync function: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429) on sync function")
			if err := c.sleep(ctx, retryAfterDuration(resp, attempt)); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &source.AuthError{
				Endpoint: c.url,
				Message:  fmt.Sprintf("status %d: check the sync function token", resp.StatusCode),
			}

		case resp.StatusCode == http.StatusLocked || resp.StatusCode == http.StatusConflict:
			// Some deployments report the lock as a status code.
			out := &source.Outcome{Skipped: true, Reason: source.SkipReasonLocked}
			if err := json.Unmarshal(body, out); err != nil {
				c.log.Debug().Err(err).Int("status", resp.StatusCode).Msg("undecodable lock response body")
			}
			out.Skipped, out.Reason = true, source.SkipReasonLocked
			return out, nil

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, fmt.Errorf("unexpected status %d from sync function: %s",
				resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var out source.Outcome
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("unmarshaling sync outcome: %w", err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
