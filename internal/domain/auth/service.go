package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
	TeacherScope(ctx context.Context, userID int64) (int64, []Assignment, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

// Authenticate checks a password login and returns the user on success. An
// unknown email is reported as ErrInvalidCredentials; store failures are not.
func (s *Service) Authenticate(ctx context.Context, email, password string) (AuthUser, error) {
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthUser{}, fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return AuthUser{}, ErrInvalidCredentials
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

// Resolve implements CapabilityResolver.
func (s *Service) Resolve(ctx context.Context, user UserContext) (Capabilities, error) {
	perms, err := s.store.RolePermissions(ctx, user.RoleID)
	if err != nil {
		return Capabilities{}, err
	}
	if !scopedRoles[user.RoleName] {
		return NewCapabilities(user, 0, perms, nil), nil
	}
	teacherID, assignments, err := s.store.TeacherScope(ctx, user.UserID)
	if err != nil {
		return Capabilities{}, err
	}
	return NewCapabilities(user, teacherID, perms, assignments), nil
}
