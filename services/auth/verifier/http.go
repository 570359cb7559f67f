package verifier

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/services/auth/db"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type userCtxKey struct{}

// Middleware requires a valid `Authorization: Bearer <token>` header and
// puts the user in the request context.
func (v Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.J{
				"message": "No token, authorization denied",
			})
			return
		}

		user, err := v.VerifyToken(r.Context(), token)
		if errors.Is(err, ErrInvalidToken) {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.J{
				"message": "Token is not valid",
			})
			return
		}
		if err != nil {
			httputil.WriteJSON(w, http.StatusInternalServerError, httputil.J{
				"message": "Server error",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// UserFromContext returns the user put in ctx by Middleware.
func UserFromContext(ctx context.Context) (db.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(db.User)
	if !ok {
		return db.User{}, false
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("user:email", user.Email))
	return user, true
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user db.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}
