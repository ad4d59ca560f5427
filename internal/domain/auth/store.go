package auth

import (
	"context"

	"pkbm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID       int64
	RoleID   int64
	RoleName string
	Name     string
	Password string
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.role_id, r.name, u.name, u.password_hash
    FROM users u
    JOIN roles r ON u.role_id = r.id
    WHERE lower(u.email) = lower($1) AND u.status = 'active'
  `, email).Scan(&out.ID, &out.RoleID, &out.RoleName, &out.Name, &out.Password)
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT p.key
    FROM role_permissions rp
    JOIN permissions p ON rp.permission_id = p.id
    WHERE rp.role_id = $1
    ORDER BY p.key
  `, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		perms = append(perms, key)
	}
	return perms, rows.Err()
}

// TeacherScope returns the teacher id linked to a user plus every assignment,
// including classrooms where the teacher is the recorded homeroom teacher.
func (s *Store) TeacherScope(ctx context.Context, userID int64) (int64, []Assignment, error) {
	var teacherID int64
	err := s.DB.QueryRow(ctx, "SELECT COALESCE((SELECT id FROM teachers WHERE user_id = $1), 0)", userID).Scan(&teacherID)
	if err != nil {
		return 0, nil, err
	}
	if teacherID == 0 {
		return 0, nil, nil
	}

	rows, err := s.DB.Query(ctx, `
    SELECT classroom_id, COALESCE(subject_id, 0)
    FROM teacher_assignments
    WHERE teacher_id = $1
    UNION
    SELECT id, 0
    FROM classrooms
    WHERE homeroom_teacher_id = $1
  `, teacherID)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ClassroomID, &a.SubjectID); err != nil {
			return 0, nil, err
		}
		assignments = append(assignments, a)
	}
	return teacherID, assignments, rows.Err()
}
