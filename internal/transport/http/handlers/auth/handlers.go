package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pkbm/internal/domain/auth"
	"pkbm/internal/transport/http/api"
	"pkbm/internal/transport/http/middleware"
	"pkbm/internal/transport/http/shared"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (auth.AuthUser, error)
}

type Handler struct {
	Service  Authenticator
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(service Authenticator, secret string, tokenTTL time.Duration) *Handler {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Handler{Service: service, Secret: secret, TokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Get("/me", h.HandleMe)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	payload.Email = strings.TrimSpace(payload.Email)
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}

	user, err := h.Service.Authenticate(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", shared.RequestID(r))
		return
	}
	if err != nil {
		slog.Warn("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", shared.RequestID(r))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: user.ID, RoleID: user.RoleID, RoleName: user.RoleName}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", shared.RequestID(r))
		return
	}

	api.Success(w, map[string]any{
		"token":     token,
		"expiresIn": int(h.TokenTTL.Seconds()),
		"user": map[string]any{
			"id":   user.ID,
			"name": user.Name,
			"role": user.RoleName,
		},
	}, shared.RequestID(r))
}

// HandleMe describes the caller's role and teaching scope.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	user, _ := middleware.GetUser(r.Context())

	classrooms := caps.ClassroomIDs()
	sort.Slice(classrooms, func(i, j int) bool { return classrooms[i] < classrooms[j] })
	api.Success(w, map[string]any{
		"id":           user.UserID,
		"role":         caps.Role,
		"teacherId":    caps.TeacherID,
		"readOnly":     caps.ReadOnly(),
		"scoped":       caps.Scoped(),
		"classroomIds": classrooms,
	}, shared.RequestID(r))
}
