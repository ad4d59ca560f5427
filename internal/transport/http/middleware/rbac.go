package middleware

import (
	"net/http"

	"pkbm/internal/transport/http/api"
)

// RequirePermission rejects anonymous requests with 401 and requests whose
// role lacks permission with 403. Classroom and subject scope is checked
// later by the services.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caps, ok := GetCapabilities(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !caps.Can(permission) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
