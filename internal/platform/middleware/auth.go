package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"onsd/pkg/domain"
)

// CallerValidator resolves a bearer token to a caller identity.
type CallerValidator interface {
	ValidateToken(tokenString string) (domain.CallerID, error)
}

type contextKeyCaller struct{}

// ContextKeyCaller is exported for tests that seed a context directly.
var ContextKeyCaller = contextKeyCaller{}

// GetCaller retrieves the authenticated caller from the context.
func GetCaller(ctx context.Context) domain.CallerID {
	caller, ok := ctx.Value(ContextKeyCaller).(domain.CallerID)
	if !ok {
		return ""
	}
	return caller
}

// WithCaller returns a context carrying the caller identity. Exposed for
// handler tests.
func WithCaller(ctx context.Context, caller domain.CallerID) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// RequireCaller rejects requests without a valid bearer token and stores the
// resolved caller identity in the request context. Handlers thread that
// identity explicitly into every mutating service call.
func RequireCaller(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				unauthorized(w)
				return
			}
			caller, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
