package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarthakastic/storefront/pkg/logger"
)

// upstream answers every call with the current status and counts calls.
type upstream struct {
	status atomic.Int32
	calls  atomic.Int32
	url    string
}

func newUpstream(t *testing.T, status int) *upstream {
	t.Helper()
	u := &upstream{}
	u.status.Store(int32(status))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		u.calls.Add(1)
		w.WriteHeader(int(u.status.Load()))
		_, _ = w.Write([]byte("catalog says no"))
	}))
	t.Cleanup(srv.Close)
	u.url = srv.URL
	return u
}

// newBreaker trips after three calls with at least half failing.
func newBreaker(t *testing.T, timeout time.Duration) *CircuitBreakerClient {
	cfg := DefaultCircuitBreakerConfig("cb-" + t.Name())
	cfg.MinRequests = 3
	cfg.Timeout = timeout
	return NewCircuitBreakerClient(New(Config{Timeout: 5 * time.Second}), cfg, logger.Discard())
}

func call(cb *CircuitBreakerClient, url string, n int) (last error) {
	for range n {
		resp, err := cb.Get(context.Background(), url)
		if err == nil {
			resp.Body.Close()
		}
		last = err
	}
	return last
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("fakestore")
	assert.Equal(t, "fakestore", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestCircuitBreaker_ServerErrorBecomesStatusError(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError)
	cb := newBreaker(t, time.Minute)

	err := call(cb, up.url, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "catalog says no", statusErr.Body)
}

func TestCircuitBreaker_ClientErrorsKeepItClosed(t *testing.T) {
	up := newUpstream(t, http.StatusNotFound)
	cb := newBreaker(t, time.Minute)

	require.NoError(t, call(cb, up.url, 5))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.NoError(t, cb.Healthy(context.Background()))
}

func TestCircuitBreaker_OpensAndShortCircuits(t *testing.T) {
	up := newUpstream(t, http.StatusBadGateway)
	cb := newBreaker(t, time.Minute)

	call(cb, up.url, 3)
	require.Equal(t, gobreaker.StateOpen, cb.State())

	err := call(cb, up.url, 5)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), up.calls.Load(), "open breaker must not reach the upstream")
	assert.ErrorIs(t, cb.Healthy(context.Background()), ErrCircuitOpen)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError)
	cb := newBreaker(t, 100*time.Millisecond)

	call(cb, up.url, 3)
	require.Equal(t, gobreaker.StateOpen, cb.State())

	up.status.Store(http.StatusOK)
	require.Eventually(t, func() bool { return cb.State() == gobreaker.StateHalfOpen }, time.Second, 10*time.Millisecond)
	require.NoError(t, call(cb, up.url, 1))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cb := newBreaker(t, time.Minute)
	for range 4 {
		ctx, cancel := context.WithCancel(context.Background())
		stop := time.AfterFunc(10*time.Millisecond, cancel)
		_, err := cb.Get(ctx, srv.URL)
		stop.Stop()
		cancel()
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Metrics(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError)
	cb := newBreaker(t, time.Minute)
	name := "cb-" + t.Name()
	state := breakerState.WithLabelValues(name)
	rejected := breakerRejections.WithLabelValues(name)

	assert.Zero(t, testutil.ToFloat64(state))
	call(cb, up.url, 3)
	assert.Equal(t, 2.0, testutil.ToFloat64(state))
	assert.Zero(t, testutil.ToFloat64(rejected))

	call(cb, up.url, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(rejected))
}
