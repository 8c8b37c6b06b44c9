package httpmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cwrk-planet/room-sync/internal/auth"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// Auth требует Authorization: Bearer <token> и кладёт проверенный userID в контекст.
func Auth(v auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, auth.ErrMissingToken)
				return
			}
			userID, err := v.Validate(r.Context(), token)
			if err != nil {
				slog.Debug("httpmw.Auth", slog.Any("err", err), slog.String("path", r.URL.Path))
				unauthorized(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID кладёт пользователя в контекст в обход Auth.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func bearer(h string) string {
	if len(h) <= 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "invalid token"
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		msg = "missing bearer token"
	case errors.Is(err, auth.ErrTokenExpired):
		msg = "token expired"
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"message":"` + msg + `"}}`))
}
