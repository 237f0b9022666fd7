package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/ports"
)

type stubLimiter struct {
	res ports.RateLimitResult
	err error
}

func (s stubLimiter) Allow(context.Context, string) (ports.RateLimitResult, error) {
	return s.res, s.err
}

func TestInstrumentedLimiter(t *testing.T) {
	ctx := context.Background()
	before := func(d string) float64 { return testutil.ToFloat64(rateLimitDecisions.WithLabelValues(d)) }

	allowed, limited, failed := before("allowed"), before("limited"), before("error")

	_, _ = NewInstrumentedLimiter(stubLimiter{res: ports.RateLimitResult{Allowed: true}}).Allow(ctx, "k")
	_, _ = NewInstrumentedLimiter(stubLimiter{}).Allow(ctx, "k")
	_, err := NewInstrumentedLimiter(stubLimiter{err: errors.New("down")}).Allow(ctx, "k")
	assert.Error(t, err)

	assert.Equal(t, allowed+1, before("allowed"))
	assert.Equal(t, limited+1, before("limited"))
	assert.Equal(t, failed+1, before("error"))
}

type stubAuth struct {
	ports.AuthService
	err error
}

func (s stubAuth) Login(context.Context, auth.Credentials) (auth.User, string, error) {
	return auth.User{}, "", s.err
}

func (s stubAuth) VerifyToken(context.Context, string) (auth.User, error) {
	return auth.User{}, s.err
}

func TestInstrumentedAuthService(t *testing.T) {
	ctx := context.Background()
	count := func(e string) float64 { return testutil.ToFloat64(authEvents.WithLabelValues(e)) }

	login, loginFailed, verifyFailed := count(EventLogin), count(EventLoginFailed), count(EventVerifyFailed)

	_, _, _ = NewInstrumentedAuthService(stubAuth{}).Login(ctx, auth.Credentials{})
	_, _, _ = NewInstrumentedAuthService(stubAuth{err: errors.New("bad")}).Login(ctx, auth.Credentials{})
	_, _ = NewInstrumentedAuthService(stubAuth{err: errors.New("bad")}).VerifyToken(ctx, "t")
	_, _ = NewInstrumentedAuthService(stubAuth{}).VerifyToken(ctx, "t")

	assert.Equal(t, login+1, count(EventLogin))
	assert.Equal(t, loginFailed+1, count(EventLoginFailed))
	assert.Equal(t, verifyFailed+1, count(EventVerifyFailed))
}

func TestMiddleware_RecordsPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	h := Middleware(mux)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/todos/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	n := testutil.CollectAndCount(httpRequestLatency, "http_request_duration_seconds")
	assert.GreaterOrEqual(t, n, 1)
}

func TestInitTracerProvider_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracerProvider(context.Background(), "todo-api-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
