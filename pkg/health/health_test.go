package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func hitLive(t *testing.T, h *Health) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func hitReady(t *testing.T, h *Health) (*httptest.ResponseRecorder, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w, body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passingCheck())
	h.AddLivenessCheck("check2", time.Second, passingCheck())

	w, body := hitLive(t, h)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passingCheck())
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))

	w, body := hitLive(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
	assert.NotContains(t, body.Checks, "goroutines")
}

func TestReadyEndpoint_ReadyFlag(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())

	// The service starts not ready, even with every check passing.
	w, body := hitReady(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])

	h.SetReady(true)
	w, body = hitReady(t, h)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body.Status)

	// Graceful shutdown flips the flag back off to drain traffic.
	h.SetReady(false)
	w, body = hitReady(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "service is not ready", body.Checks["_readiness"])
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("kafka", time.Second, failingCheck("broker unreachable"))

	w, body := hitReady(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "broker unreachable", body.Checks["kafka"])
	assert.NotContains(t, body.Checks, "_readiness")
}

func TestReadyEndpoint_CheckTimeout(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w, body := hitReady(t, h)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Checks["slow"])
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestDatabaseCheck(t *testing.T) {
	require.NoError(t, DatabaseCheck(fakePinger{})(context.Background()))

	err := DatabaseCheck(fakePinger{err: errors.New("dial tcp: refused")})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
