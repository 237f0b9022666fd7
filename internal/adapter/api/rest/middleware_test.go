package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-todo-app/internal/core/domain/auth"
	"go-todo-app/internal/core/ports"
	"go-todo-app/internal/core/service"
)

func TestRequestID(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Context().Value(requestIDKey)
		assert.NotNil(t, rid, "RequestID should be in context")
		assert.NotEmpty(t, rid.(string), "RequestID should not be empty")

		respRid := w.Header().Get("X-Request-ID")
		assert.Equal(t, rid.(string), respRid, "Header should match context")
	})

	handlerToTest := RequestID(nextHandler)

	t.Run("generates new id when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		handlerToTest.ServeHTTP(w, req)
	})

	t.Run("preserves existing id", func(t *testing.T) {
		existingID := "existing-id"
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", existingID)
		w := httptest.NewRecorder()

		nextHandlerWithCheck := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Context().Value(requestIDKey).(string)
			assert.Equal(t, existingID, rid)
		})

		RequestID(nextHandlerWithCheck).ServeHTTP(w, req)
		assert.Equal(t, existingID, w.Header().Get("X-Request-ID"))
	})
}

func TestChain(t *testing.T) {
	var calls []string
	mw1 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, "mw1")
			next.ServeHTTP(w, r)
		})
	}
	mw2 := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, "mw2")
			next.ServeHTTP(w, r)
		})
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "final")
	})

	chained := Chain(final, mw1, mw2)
	chained.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, []string{"mw1", "mw2", "final"}, calls, "Middleware should be called in order")
}

func TestAuthMiddleware(t *testing.T) {
	user := auth.User{ID: "u1", Email: "u1@example.com"}

	newHandler := func(svc *MockAuthService) (http.Handler, *bool) {
		reached := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			got, ok := UserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, user, got)
			token, ok := TokenFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "good", token)
		})
		return AuthMiddleware(svc, discardLogger())(next), &reached
	}

	t.Run("missing header", func(t *testing.T) {
		svc := new(MockAuthService)
		h, reached := newHandler(svc)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *reached)
		svc.AssertNotCalled(t, "VerifyToken", mock.Anything, mock.Anything)
	})

	t.Run("rejected token", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyToken", mock.Anything, "bad").Return(auth.User{}, service.ErrUnauthenticated)
		h, reached := newHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set(AuthHeader, "bad")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
		assert.False(t, *reached)
	})

	t.Run("storage failure is 401", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyToken", mock.Anything, "good").Return(auth.User{}, errors.New("db down"))
		h, reached := newHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set(AuthHeader, "good")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *reached)
	})

	t.Run("valid token", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("VerifyToken", mock.Anything, "good").Return(user, nil)
		h, reached := newHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set(AuthHeader, "good")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, *reached)
	})
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, Logger(logger))

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "rid-1", line["request_id"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "/todos", line["path"])
}

func TestLogger_RecordsRecoveredPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID, Logger(logger), Recoverer(discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/todos/abc", nil)
	req.Header.Set(RequestIDHeader, "rid-panic")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "rid-panic", line["request_id"])
	assert.Equal(t, float64(http.StatusInternalServerError), line["status"])
	assert.Equal(t, "/todos/abc", line["path"])
}

type stubLimiter struct {
	res ports.RateLimitResult
	err error
	key string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (ports.RateLimitResult, error) {
	s.key = key
	return s.res, s.err
}

func TestRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("limited", func(t *testing.T) {
		lim := &stubLimiter{res: ports.RateLimitResult{RetryAfter: 1500 * time.Millisecond}}
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		w := httptest.NewRecorder()
		RateLimit(lim, discardLogger())(ok).ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "10.1.2.3", lim.key)
	})

	t.Run("allowed", func(t *testing.T) {
		lim := &stubLimiter{res: ports.RateLimitResult{Allowed: true, Remaining: 4}}
		w := httptest.NewRecorder()
		RateLimit(lim, discardLogger())(ok).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		lim := &stubLimiter{err: errors.New("redis down")}
		w := httptest.NewRecorder()
		RateLimit(lim, discardLogger())(ok).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	})
}
