package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/sarthakastic/storefront/pkg/httputil"
)

var rateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests refused by the per-client rate limiter.",
	},
	[]string{"surface"},
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientBuckets holds one token bucket per client address. Buckets idle for
// longer than idle are dropped by sweep.
type clientBuckets struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newClientBuckets(rps float64, burst int, idle time.Duration) *clientBuckets {
	return &clientBuckets{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// reserve takes a token for client. It returns zero when the request may
// proceed, otherwise how long the client should wait.
func (c *clientBuckets) reserve(client string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	b, ok := c.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[client] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

func (c *clientBuckets) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.idle)
	for client, b := range c.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(c.buckets, client)
		}
	}
}

func (c *clientBuckets) sweepEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sweep()
		}
	}
}

func (c *clientBuckets) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// RateLimit applies a per-client token bucket to page and API requests.
// Ops endpoints are never limited so probes and scrapes keep working under
// load. Refused requests get 429 RATE_LIMITED with a Retry-After hint. The
// sweeper goroutine exits with ctx.
func RateLimit(ctx context.Context, rps float64, burst int, l *slog.Logger) func(http.Handler) http.Handler {
	const idle = 3 * time.Minute
	buckets := newClientBuckets(rps, burst, idle)
	go buckets.sweepEvery(ctx, idle)
	return rateLimit(buckets, l)
}

func rateLimit(buckets *clientBuckets, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			surface := Surface(r.URL.Path)
			if surface == SurfaceOps {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			wait := buckets.reserve(client)
			if wait == 0 {
				next.ServeHTTP(w, r)
				return
			}

			rateLimitedTotal.WithLabelValues(surface).Inc()
			l.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("client", client),
				slog.String("path", r.URL.Path),
				slog.Duration("retry_after", wait),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			httputil.WriteProblem(w, r, http.StatusTooManyRequests, httputil.CodeRateLimited, "too many requests")
		})
	}
}

// clientIP takes the first parseable X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote address.
func clientIP(r *http.Request) string {
	for hop := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	if addr, ok := remoteAddr(r); ok {
		return addr.String()
	}
	return r.RemoteAddr
}
