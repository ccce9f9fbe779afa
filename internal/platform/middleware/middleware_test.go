package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onsd/pkg/domain"
)

type stubValidator struct {
	caller domain.CallerID
	err    error
}

func (v stubValidator) ValidateToken(string) (domain.CallerID, error) {
	return v.caller, v.err
}

func TestRequireCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newHandler := func(v CallerValidator, captured *domain.CallerID) http.Handler {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*captured = GetCaller(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		return RequireCaller(v, logger)(next)
	}

	t.Run("valid token reaches the handler with the caller set", func(t *testing.T) {
		var caller domain.CallerID
		h := newHandler(stubValidator{caller: "alice"}, &caller)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.CallerID("alice"), caller)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		var caller domain.CallerID
		h := newHandler(stubValidator{caller: "alice"}, &caller)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, caller)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		var caller domain.CallerID
		h := newHandler(stubValidator{caller: "alice"}, &caller)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("validator failure is rejected", func(t *testing.T) {
		var caller domain.CallerID
		h := newHandler(stubValidator{err: http.ErrNoCookie}, &caller)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	})
	h := RequestID(next)

	t.Run("inbound header is honored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "req-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
	})

	t.Run("missing header gets a generated id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Body.String()
		require.NotEmpty(t, id)
		assert.Equal(t, id, w.Header().Get("X-Request-Id"))
	})
}
