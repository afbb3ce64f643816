package trending

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/trendwatch/trend-monitor/internal/errors"
)

// FetchResult is the structured outcome of one provider call. The client
// never propagates transport errors as Go errors to its callers: a failed
// fetch comes back with Success=false so callers can uniformly treat it as
// "no data".
type FetchResult struct {
	Body       []byte
	StatusCode int
	Success    bool
	Attempts   int
	Err        error
	Retryable  bool
	RetryAfter time.Duration
}

// RetryConfig carries the retry policy shared by every provider client.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// ClientConfig configures one provider client.
type ClientConfig struct {
	// BearerToken, when set, wraps the transport in an oauth2 static token
	// source.
	BearerToken string
	// Headers are added to every request (API keys, version headers).
	Headers map[string]string
	// MaxAttempts caps retries for transient failures.
	MaxAttempts int
	// InitialBackoff and MaxBackoff bound the exponential backoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestsPerSecond caps the request rate to the provider; zero means
	// unlimited.
	RequestsPerSecond float64
	// Timeout bounds a single request.
	Timeout time.Duration
}

// Client wraps calls to one external provider with retry, backoff and a
// client-side rate limiter. It does not cache; that is the caller's job.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	headers     map[string]string
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	logger      *logrus.Logger
}

// NewClient creates a provider client.
func NewClient(cfg ClientConfig, logger *logrus.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.BearerToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = cfg.Timeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		http:        httpClient,
		limiter:     limiter,
		headers:     cfg.Headers,
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialBackoff,
		max:         cfg.MaxBackoff,
		logger:      logger,
	}
}

// Fetch performs a GET with retry-with-backoff for transient failures.
// 5xx, timeouts and connection failures are retryable; 429 is retryable with
// a longer wait; any other 4xx fails immediately.
func (c *Client) Fetch(ctx context.Context, url string) FetchResult {
	result := FetchResult{}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.max
	bo.Reset()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result.Attempts = attempt

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				result.Err = err
				return result
			}
		}

		res, retryable := c.doOnce(ctx, url)
		res.Attempts = attempt
		if res.Success {
			return res
		}
		result = res
		result.Retryable = retryable

		if !retryable || attempt == c.maxAttempts {
			return result
		}

		wait := bo.NextBackOff()
		if errors.IsRateLimit(res.Err) {
			wait = c.rateLimitWait(res, wait)
		}
		c.logger.WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
			"wait":    wait,
		}).Warn("Provider request failed, retrying")

		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-time.After(wait):
		}
	}

	return result
}

func (c *Client) doOnce(ctx context.Context, url string) (FetchResult, bool) {
	result := FetchResult{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = err
		return result, false
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Network failures and timeouts are transient.
		result.Err = err
		return result, true
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result, true
	}
	result.Body = body

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result.Success = true
		return result, false
	case resp.StatusCode == http.StatusTooManyRequests:
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				result.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		result.Err = errors.NewRateLimitError("rate limited by provider", statusError(resp.StatusCode))
		return result, true
	case resp.StatusCode >= 500:
		result.Err = statusError(resp.StatusCode)
		return result, true
	default:
		result.Err = statusError(resp.StatusCode)
		return result, false
	}
}

// rateLimitWait prefers the provider's Retry-After hint and otherwise doubles
// the generic backoff, so 429 waits longer than plain 5xx.
func (c *Client) rateLimitWait(res FetchResult, fallback time.Duration) time.Duration {
	if res.RetryAfter > 0 {
		return res.RetryAfter
	}
	wait := 2 * fallback
	if wait > c.max {
		wait = c.max
	}
	return wait
}

// FetchJSON fetches url and decodes the body into out. Decode failures are
// treated as permanent: the result flips to Success=false, Retryable=false.
func (c *Client) FetchJSON(ctx context.Context, url string, out any) FetchResult {
	result := c.Fetch(ctx, url)
	if !result.Success {
		return result
	}
	if err := json.Unmarshal(result.Body, out); err != nil {
		result.Success = false
		result.Retryable = false
		result.Err = err
	}
	return result
}

type statusError int

func (e statusError) Error() string {
	return "unexpected status " + strconv.Itoa(int(e)) + " " + http.StatusText(int(e))
}
