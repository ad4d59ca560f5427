package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pkbm/internal/domain/auth"
)

type stubResolver struct {
	perms []string
	err   error
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, user auth.UserContext) (auth.Capabilities, error) {
	s.calls++
	if s.err != nil {
		return auth.Capabilities{}, s.err
	}
	return auth.NewCapabilities(user, 0, s.perms, nil), nil
}

func bearer(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return "Bearer " + token
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	handler := Auth(secret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		if user.UserID != 7 || user.RoleName != auth.RoleTeacher {
			t.Fatalf("unexpected user: %+v", user)
		}
		if _, ok := GetCapabilities(r.Context()); ok {
			t.Fatal("did not expect capabilities without a resolver")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, secret, auth.Claims{UserID: 7, RoleID: 2, RoleName: auth.RoleTeacher}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareIgnoresForeignSignature(t *testing.T) {
	handler := Auth("secret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user for a token signed with another secret")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, "other-secret", auth.Claims{UserID: 1, RoleName: auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}

func TestAuthMiddlewareResolvesCapabilities(t *testing.T) {
	secret := "test-secret"
	resolver := &stubResolver{perms: []string{auth.PermReportCardRead}}
	handler := Auth(secret, resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caps, ok := GetCapabilities(r.Context())
		if !ok {
			t.Fatal("expected capabilities in context")
		}
		if !caps.Can(auth.PermReportCardRead) || caps.Can(auth.PermReportCardFinalize) {
			t.Fatalf("unexpected capabilities: %+v", caps)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, secret, auth.Claims{UserID: 3, RoleID: 4, RoleName: auth.RolePrincipal}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolve call, got %d", resolver.calls)
	}
}

func TestAuthMiddlewareResolverFailure(t *testing.T) {
	secret := "test-secret"
	handler := Auth(secret, &stubResolver{err: errors.New("db down")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when capabilities cannot be resolved")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, secret, auth.Claims{UserID: 3, RoleName: auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := RequirePermission(auth.PermReportCardFinalize)(ok)

	tests := []struct {
		name  string
		perms []string
		anon  bool
		want  int
	}{
		{name: "anonymous", anon: true, want: http.StatusUnauthorized},
		{name: "missing permission", perms: []string{auth.PermReportCardRead}, want: http.StatusForbidden},
		{name: "allowed", perms: []string{auth.PermReportCardFinalize}, want: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if !tc.anon {
				user := auth.UserContext{UserID: 1, RoleName: auth.RoleAdmin}
				req = req.WithContext(WithCapabilities(req.Context(), user, auth.NewCapabilities(user, 0, tc.perms, nil)))
			}
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
