package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"pkbm/internal/domain/auth"
	"pkbm/internal/transport/http/api"
	"pkbm/internal/transport/http/middleware"
)

func RequestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// Capabilities returns the caller's resolved capabilities, answering 401 when
// the request is anonymous.
func Capabilities(w http.ResponseWriter, r *http.Request) (auth.Capabilities, bool) {
	caps, ok := middleware.GetCapabilities(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", RequestID(r))
		return auth.Capabilities{}, false
	}
	return caps, true
}

// DecodeJSON decodes the request body into dst and answers 400 or 413 when it
// cannot.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", RequestID(r))
		return false
	}
	if errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body is empty", RequestID(r))
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", RequestID(r))
	return false
}

func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
