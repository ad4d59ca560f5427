package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"pkbm/internal/domain/auth"
	"pkbm/internal/transport/http/api"
)

// Auth reads a bearer token when one is present. With a resolver the user's
// capabilities are resolved once and carried on the context as well.
// Requests without a valid token pass through anonymously.
func Auth(secret string, resolver auth.CapabilityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user := auth.UserContext{
				UserID:   claims.UserID,
				RoleID:   claims.RoleID,
				RoleName: claims.RoleName,
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			if resolver != nil {
				caps, err := resolver.Resolve(ctx, user)
				if err != nil {
					slog.Warn("capability resolution failed", "userId", user.UserID, "err", err)
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", GetRequestID(ctx))
					return
				}
				ctx = context.WithValue(ctx, ctxKeyCaps, caps)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

func GetCapabilities(ctx context.Context) (auth.Capabilities, bool) {
	caps, ok := ctx.Value(ctxKeyCaps).(auth.Capabilities)
	return caps, ok
}

// WithCapabilities stores an already resolved identity on ctx.
func WithCapabilities(ctx context.Context, user auth.UserContext, caps auth.Capabilities) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return context.WithValue(ctx, ctxKeyCaps, caps)
}
