package assessment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkbm/internal/platform/db"
	"pkbm/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(w Writer) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) Grades(ctx context.Context, classroomID, academicYearID int64, semester int, subjectID int64, studentIDs []int64) ([]GradeRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT student_id, subject_id, grade::float8, best_tp_id, improvement_tp_id
    FROM subject_grades
    WHERE classroom_id = $1 AND academic_year_id = $2 AND semester = $3
      AND ($4::bigint = 0 OR subject_id = $4)
      AND student_id = ANY($5)
    ORDER BY student_id, subject_id
  `, classroomID, academicYearID, semester, subjectID, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GradeRecord
	for rows.Next() {
		var r GradeRecord
		if err := rows.Scan(&r.StudentID, &r.SubjectID, &r.Grade, &r.BestTPID, &r.ImprovementTPID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Developmental(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]DevelopmentalRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT student_id, aspect_id, description
    FROM developmental_assessments
    WHERE academic_year_id = $1 AND semester = $2 AND student_id = ANY($3)
    ORDER BY student_id, aspect_id
  `, academicYearID, semester, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DevelopmentalRecord
	for rows.Next() {
		var r DevelopmentalRecord
		if err := rows.Scan(&r.StudentID, &r.AspectID, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Extracurricular(ctx context.Context, academicYearID int64, semester int, activityID int64, studentIDs []int64) ([]LevelRecord, error) {
	return s.levels(ctx, `
    SELECT student_id, activity_id, level, description
    FROM extracurricular_assessments
    WHERE academic_year_id = $1 AND semester = $2
      AND ($3::bigint = 0 OR activity_id = $3)
      AND student_id = ANY($4)
    ORDER BY student_id, activity_id
  `, academicYearID, semester, activityID, studentIDs)
}

func (s *Store) P5(ctx context.Context, academicYearID int64, semester int, projectID int64, studentIDs []int64) ([]LevelRecord, error) {
	return s.levels(ctx, `
    SELECT student_id, project_id, level, description
    FROM p5_assessments
    WHERE academic_year_id = $1 AND semester = $2
      AND ($3::bigint = 0 OR project_id = $3)
      AND student_id = ANY($4)
    ORDER BY student_id, project_id
  `, academicYearID, semester, projectID, studentIDs)
}

func (s *Store) levels(ctx context.Context, query string, args ...any) ([]LevelRecord, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LevelRecord
	for rows.Next() {
		var r LevelRecord
		if err := rows.Scan(&r.StudentID, &r.ItemID, &r.Level, &r.Description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Attendance(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]AttendanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT student_id, sick, permission, absent
    FROM report_attendances
    WHERE academic_year_id = $1 AND semester = $2 AND student_id = ANY($3)
  `, academicYearID, semester, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		var r AttendanceRecord
		if err := rows.Scan(&r.StudentID, &r.Sick, &r.Permission, &r.Absent); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Notes(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]NoteRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT student_id, teacher_note, character_note
    FROM report_notes
    WHERE academic_year_id = $1 AND semester = $2 AND student_id = ANY($3)
  `, academicYearID, semester, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NoteRecord
	for rows.Next() {
		var r NoteRecord
		if err := rows.Scan(&r.StudentID, &r.TeacherNote, &r.CharacterNote); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
