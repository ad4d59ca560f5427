package assessment

import "context"

func (s *Store) UpsertGrade(ctx context.Context, key SheetKey, entry GradeEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO subject_grades (student_id, subject_id, classroom_id, academic_year_id, semester, grade, best_tp_id, improvement_tp_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    ON CONFLICT (student_id, subject_id, classroom_id, academic_year_id, semester)
    DO UPDATE SET grade = EXCLUDED.grade,
                  best_tp_id = EXCLUDED.best_tp_id,
                  improvement_tp_id = EXCLUDED.improvement_tp_id,
                  updated_at = now()
  `, entry.StudentID, key.SubjectID, key.ClassroomID, key.AcademicYearID, key.Semester, entry.Grade, entry.BestTPID, entry.ImprovementTPID)
	return err
}

func (s *Store) UpsertDevelopmental(ctx context.Context, key SheetKey, entry DevelopmentalEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO developmental_assessments (student_id, aspect_id, academic_year_id, semester, description)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (student_id, aspect_id, academic_year_id, semester)
    DO UPDATE SET description = EXCLUDED.description, updated_at = now()
  `, entry.StudentID, entry.AspectID, key.AcademicYearID, key.Semester, entry.Description)
	return err
}

func (s *Store) UpsertExtracurricular(ctx context.Context, key SheetKey, entry LevelEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO extracurricular_assessments (student_id, activity_id, academic_year_id, semester, level, description)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (student_id, activity_id, academic_year_id, semester)
    DO UPDATE SET level = EXCLUDED.level, description = EXCLUDED.description, updated_at = now()
  `, entry.StudentID, key.ActivityID, key.AcademicYearID, key.Semester, entry.Level, entry.Description)
	return err
}

func (s *Store) UpsertP5(ctx context.Context, key SheetKey, entry LevelEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO p5_assessments (student_id, project_id, academic_year_id, semester, level, description)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (student_id, project_id, academic_year_id, semester)
    DO UPDATE SET level = EXCLUDED.level, description = EXCLUDED.description, updated_at = now()
  `, entry.StudentID, key.ProjectID, key.AcademicYearID, key.Semester, entry.Level, entry.Description)
	return err
}

func (s *Store) UpsertAttendance(ctx context.Context, key SheetKey, entry AttendanceEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO report_attendances (student_id, academic_year_id, semester, sick, permission, absent)
    VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (student_id, academic_year_id, semester)
    DO UPDATE SET sick = EXCLUDED.sick, permission = EXCLUDED.permission, absent = EXCLUDED.absent, updated_at = now()
  `, entry.StudentID, key.AcademicYearID, key.Semester, entry.Sick, entry.Permission, entry.Absent)
	return err
}

func (s *Store) UpsertNote(ctx context.Context, key SheetKey, entry NoteEntry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO report_notes (student_id, academic_year_id, semester, teacher_note, character_note)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (student_id, academic_year_id, semester)
    DO UPDATE SET teacher_note = EXCLUDED.teacher_note, character_note = EXCLUDED.character_note, updated_at = now()
  `, entry.StudentID, key.AcademicYearID, key.Semester, entry.TeacherNote, entry.CharacterNote)
	return err
}
