package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"valutatrade/internal/domain"

	"github.com/sirupsen/logrus"
)

const userAgent = "ValutaTradeHub/1.0"

type RetryConfig struct {
	MaxRetries    int
	BackoffBase   time.Duration
	RateLimitBase time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.RateLimitBase <= 0 {
		c.RateLimitBase = 5 * time.Second
	}
	return c
}

// Client wraps a single HTTP GET with bounded retries and exponential
// backoff. Rate-limit responses use a distinct, longer backoff schedule;
// auth failures are not retried at all.
type Client struct {
	http *http.Client
	cfg  RetryConfig
}

func NewClient(httpClient *http.Client, cfg RetryConfig) *Client {
	return &Client{http: httpClient, cfg: cfg.withDefaults()}
}

// GetJSON fetches rawURL with the given query parameters and decodes the
// response body into out. The returned error is always a
// *domain.ProviderError naming the failure kind.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, params url.Values, header http.Header, out any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.NewProviderError(source, domain.ErrKindMalformed, fmt.Errorf("parse url: %w", err))
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var lastErr *domain.ProviderError
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		logrus.Debugf("GET %s (attempt %d/%d)", u.Redacted(), attempt+1, c.cfg.MaxRetries)

		perr := c.doOnce(ctx, source, u.String(), header, out)
		if perr == nil {
			return nil
		}

		switch perr.Kind {
		case domain.ErrKindAuth, domain.ErrKindMalformed:
			// Non-retryable.
			return perr
		case domain.ErrKindRateLimited:
			lastErr = perr
			wait := c.cfg.RateLimitBase * (1 << attempt)
			logrus.Warnf("%s: rate limited (attempt %d/%d), waiting %s", source, attempt+1, c.cfg.MaxRetries, wait)
			if err := sleepCtx(ctx, wait); err != nil {
				return domain.NewProviderError(source, domain.ErrKindTimeout, err)
			}
		default:
			lastErr = perr
			logrus.Warnf("%s: %s (attempt %d/%d): %v", source, perr.Kind, attempt+1, c.cfg.MaxRetries, perr.Err)
			if attempt < c.cfg.MaxRetries-1 {
				wait := c.cfg.BackoffBase * (1 << attempt)
				if err := sleepCtx(ctx, wait); err != nil {
					return domain.NewProviderError(source, domain.ErrKindTimeout, err)
				}
			}
		}
	}
	if lastErr == nil {
		lastErr = domain.NewProviderError(source, domain.ErrKindConnection, errors.New("no attempts executed"))
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, source, url string, header http.Header, out any) *domain.ProviderError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewProviderError(source, domain.ErrKindMalformed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewProviderError(source, classifyTransportError(err), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewProviderError(source, domain.ErrKindRateLimited, fmt.Errorf("status %s", resp.Status))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewProviderError(source, domain.ErrKindAuth, fmt.Errorf("status %s, verify the API key", resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.NewProviderError(source, domain.ErrKindMalformed, fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewProviderError(source, domain.ErrKindMalformed, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func classifyTransportError(err error) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrKindTimeout
	}
	return domain.ErrKindConnection
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
