// Package httpclient is the outbound HTTP stack used for the catalog
// upstream: a pooled client with jittered retries, and a circuit breaker
// wrapper around it.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Config struct {
	Timeout time.Duration
	// MaxRetries applies to GET, HEAD and OPTIONS only.
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 32,
		UserAgent:       "storefront/1.0",
	}
}

// Retry reasons, also used as the metric label.
const (
	reasonNetwork = "network"
	reasonStatus  = "status"
)

var retriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Outbound HTTP attempts that were retried.",
	},
	[]string{"host", "reason"},
)

type Client struct {
	httpClient *http.Client
	config     Config
}

func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
				MaxConnsPerHost:       cfg.MaxConnsPerHost,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
		config: cfg,
	}
}

// Do sends req, retrying idempotent requests after network errors and
// retryable 5xx/429 answers. When retries run out the last response is
// returned as is. A Retry-After header on the answer replaces the computed
// backoff, bounded by RetryWaitMax.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	retries := 0
	if idempotent(req.Method) {
		retries = c.config.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		reason := retryReason(resp, err)
		if reason == "" || attempt >= retries {
			if err != nil {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
			}
			return resp, nil
		}

		wait := c.backoff(attempt + 1)
		if resp != nil {
			if after, ok := retryAfter(resp, c.config.RetryWaitMax); ok {
				wait = after
			}
			_ = resp.Body.Close()
		}
		retriesTotal.WithLabelValues(req.URL.Host, reason).Inc()

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(ctx, req)
}

// retryReason reports why an attempt should be repeated, or "" when its
// outcome is final.
func retryReason(resp *http.Response, err error) string {
	if err != nil {
		if isRetryableError(err) {
			return reasonNetwork
		}
		return ""
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return reasonStatus
	case resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented:
		return reasonStatus
	}
	return ""
}

// retryAfter reads a delay-seconds Retry-After header.
func retryAfter(resp *http.Response, limit time.Duration) (time.Duration, bool) {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	d := time.Duration(secs) * time.Second
	if limit > 0 && d > limit {
		d = limit
	}
	return d, true
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff doubles from RetryWaitMin per retry (1-based), capped at
// RetryWaitMax, then jittered.
func (c *Client) backoff(retry int) time.Duration {
	wait := c.config.RetryWaitMin << (retry - 1)
	if limit := c.config.RetryWaitMax; limit > 0 && (wait > limit || wait <= 0) {
		wait = limit
	}
	return addJitter(wait)
}

// addJitter picks uniformly from [0.75d, 1.25d].
func addJitter(d time.Duration) time.Duration {
	quarter := int64(d) / 4
	if quarter <= 0 {
		return max(d, 0)
	}
	return d - time.Duration(quarter) + time.Duration(rand.Int64N(2*quarter+1))
}

func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// isRetryableError accepts transport failures but never the caller's own
// cancellation or deadline.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
