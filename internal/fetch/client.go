// Package fetch contains the upstream source adapters. Each adapter turns a
// series identifier into raw (date token, value token) pairs plus the
// upstream metadata record; parsing and normalization happen elsewhere. A
// failed fetch degrades to an empty raw series, it never aborts the run.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"panelcli/internal/config"
	apperrors "panelcli/internal/errors"
)

// RetryConfig defines retry behavior for fetch attempts
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Client is a retrying, rate-limited HTTP JSON client shared by all fetch
// adapters.
type Client struct {
	http    *http.Client
	retry   RetryConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a fetch client from the shared fetch configuration.
func NewClient(cfg config.FetchConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	retry := RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
	}
	if retry.MaxAttempts <= 0 {
		retry = NewRetryConfig()
	}

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 4
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// GetJSON performs a GET request and decodes the JSON response into out,
// retrying with increasing backoff on any transport or HTTP error.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	requestURL := rawURL
	if len(params) > 0 {
		requestURL = rawURL + "?" + params.Encode()
	}

	delay := c.retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.NewNetworkError("rate limiter wait aborted", err)
		}

		lastErr = c.getOnce(ctx, requestURL, out)
		if lastErr == nil {
			return nil
		}

		c.logger.WarnContext(ctx, "fetch attempt failed",
			slog.String("url", rawURL),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retry.MaxAttempts),
			slog.String("error", lastErr.Error()))

		if attempt < c.retry.MaxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return apperrors.NewNetworkError("fetch aborted during backoff", ctx.Err())
			}
			delay = time.Duration(float64(delay) * c.retry.Multiplier)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}
	}

	return apperrors.NewNetworkError(
		fmt.Sprintf("GET %s failed after %d attempts", rawURL, c.retry.MaxAttempts), lastErr)
}

// getOnce performs a single GET + decode attempt.
func (c *Client) getOnce(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
