package academic

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pkbm/internal/platform/db"
	"pkbm/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const classroomSelect = `
    SELECT c.id, c.name, c.academic_year_id, ay.name,
           l.id, l.name, COALESCE(l.grade, 0), l.is_paud, COALESCE(l.phase, ''),
           COALESCE(c.homeroom_teacher_id, 0), COALESCE(t.name, ''), COALESCE(t.nip, '')
    FROM classrooms c
    JOIN academic_years ay ON ay.id = c.academic_year_id
    JOIN levels l ON l.id = c.level_id
    LEFT JOIN teachers t ON t.id = c.homeroom_teacher_id
`

func scanClassroom(row pgx.Row) (Classroom, error) {
	var c Classroom
	err := row.Scan(&c.ID, &c.Name, &c.AcademicYearID, &c.AcademicYearName,
		&c.Level.ID, &c.Level.Name, &c.Level.Grade, &c.Level.IsPAUD, &c.Level.Phase,
		&c.HomeroomTeacherID, &c.HomeroomTeacherName, &c.HomeroomTeacherNIP)
	return c, err
}

func (s *Store) ListAcademicYears(ctx context.Context) ([]AcademicYear, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, is_active FROM academic_years ORDER BY name DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AcademicYear
	for rows.Next() {
		var y AcademicYear
		if err := rows.Scan(&y.ID, &y.Name, &y.IsActive); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

func (s *Store) GetAcademicYear(ctx context.Context, id int64) (AcademicYear, error) {
	var y AcademicYear
	err := s.DB.QueryRow(ctx, "SELECT id, name, is_active FROM academic_years WHERE id = $1", id).
		Scan(&y.ID, &y.Name, &y.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return AcademicYear{}, ErrAcademicYearNotFound
	}
	return y, err
}

func (s *Store) GetClassroom(ctx context.Context, id int64) (Classroom, error) {
	c, err := scanClassroom(s.DB.QueryRow(ctx, classroomSelect+" WHERE c.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Classroom{}, ErrClassroomNotFound
	}
	return c, err
}

// ListClassrooms filters by academic year when non-zero and by ids when ids is
// non-nil. An empty non-nil ids slice yields no rows.
func (s *Store) ListClassrooms(ctx context.Context, academicYearID int64, ids []int64) ([]Classroom, error) {
	query := classroomSelect + `
    WHERE ($1::bigint = 0 OR c.academic_year_id = $1)
      AND ($2::bigint[] IS NULL OR c.id = ANY($2))
    ORDER BY COALESCE(l.grade, 0), c.name
  `
	var filter []int64
	if ids != nil {
		filter = append([]int64{}, ids...)
	}
	rows, err := s.DB.Query(ctx, query, academicYearID, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Classroom
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) EnrolledStudents(ctx context.Context, classroomID int64) ([]Student, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, classroom_id, COALESCE(nis, ''), COALESCE(nisn, ''), name, gender, status, photo_path
    FROM students
    WHERE classroom_id = $1 AND status = $2
    ORDER BY name
  `, classroomID, StudentStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.ClassroomID, &st.NIS, &st.NISN, &st.Name, &st.Gender, &st.Status, &st.PhotoPath); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id int64) (Student, error) {
	var st Student
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(classroom_id, 0), COALESCE(nis, ''), COALESCE(nisn, ''), name, gender, status, photo_path
    FROM students
    WHERE id = $1
  `, id).Scan(&st.ID, &st.ClassroomID, &st.NIS, &st.NISN, &st.Name, &st.Gender, &st.Status, &st.PhotoPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return Student{}, ErrStudentNotFound
	}
	return st, err
}

// UpdateStudentPhoto stores the new path and returns the previous one.
func (s *Store) UpdateStudentPhoto(ctx context.Context, studentID int64, path string) (string, error) {
	var previous string
	err := s.DB.QueryRow(ctx, `
    UPDATE students s
    SET photo_path = $2
    FROM (SELECT id, photo_path FROM students WHERE id = $1 FOR UPDATE) old
    WHERE s.id = old.id
    RETURNING old.photo_path
  `, studentID, path).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrStudentNotFound
	}
	return previous, err
}

func (s *Store) ListSubjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, code, sort_order FROM subjects ORDER BY sort_order, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Code, &sub.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) GetSubject(ctx context.Context, id int64) (Subject, error) {
	var sub Subject
	err := s.DB.QueryRow(ctx, "SELECT id, name, code, sort_order FROM subjects WHERE id = $1", id).
		Scan(&sub.ID, &sub.Name, &sub.Code, &sub.SortOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subject{}, ErrSubjectNotFound
	}
	return sub, err
}

func (s *Store) ObjectivesBySubject(ctx context.Context, subjectID int64) ([]LearningObjective, error) {
	return s.queryObjectives(ctx, `
    SELECT id, subject_id, COALESCE(phase, ''), code, description
    FROM learning_objectives
    WHERE subject_id = $1
    ORDER BY code
  `, subjectID)
}

func (s *Store) ObjectivesByIDs(ctx context.Context, ids []int64) ([]LearningObjective, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryObjectives(ctx, `
    SELECT id, subject_id, COALESCE(phase, ''), code, description
    FROM learning_objectives
    WHERE id = ANY($1)
  `, ids)
}

func (s *Store) queryObjectives(ctx context.Context, query string, args ...any) ([]LearningObjective, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LearningObjective
	for rows.Next() {
		var obj LearningObjective
		if err := rows.Scan(&obj.ID, &obj.SubjectID, &obj.Phase, &obj.Code, &obj.Description); err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func (s *Store) CreateObjective(ctx context.Context, obj LearningObjective) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO learning_objectives (subject_id, phase, code, description)
    VALUES ($1, NULLIF($2, ''), $3, $4)
    RETURNING id
  `, obj.SubjectID, obj.Phase, obj.Code, obj.Description).Scan(&id)
	switch {
	case db.IsUniqueViolation(err):
		return 0, ErrDuplicateObjective
	case db.IsForeignKeyViolation(err):
		return 0, ErrSubjectNotFound
	}
	return id, err
}

func (s *Store) GetLevel(ctx context.Context, id int64) (Level, error) {
	var l Level
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(grade, 0), is_paud, COALESCE(phase, '')
    FROM levels
    WHERE id = $1
  `, id).Scan(&l.ID, &l.Name, &l.Grade, &l.IsPAUD, &l.Phase)
	if errors.Is(err, pgx.ErrNoRows) {
		return Level{}, ErrLevelNotFound
	}
	return l, err
}

func (s *Store) SetLevelPhase(ctx context.Context, levelID int64, phase string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE levels SET phase = NULLIF($2, '') WHERE id = $1", levelID, phase)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLevelNotFound
	}
	return nil
}

func (s *Store) ListDevelopmentalAspects(ctx context.Context) ([]DevelopmentalAspect, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, aspect_type, name, sort_order FROM developmental_aspects ORDER BY sort_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DevelopmentalAspect
	for rows.Next() {
		var a DevelopmentalAspect
		if err := rows.Scan(&a.ID, &a.AspectType, &a.Name, &a.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListExtracurricularActivities(ctx context.Context) ([]ExtracurricularActivity, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name FROM extracurricular_activities ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExtracurricularActivity
	for rows.Next() {
		var a ExtracurricularActivity
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListP5Projects(ctx context.Context, academicYearID int64) ([]P5Project, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, academic_year_id, theme, name, description
    FROM p5_projects
    WHERE academic_year_id = $1
    ORDER BY id
  `, academicYearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []P5Project
	for rows.Next() {
		var p P5Project
		if err := rows.Scan(&p.ID, &p.AcademicYearID, &p.Theme, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
