package assessment

import (
	"context"
	"strings"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/auth"
	"pkbm/internal/platform/validation"
)

func (s *Service) loadHomeroom(ctx context.Context, caps auth.Capabilities, kind string, key SheetKey) (sheetContext, error) {
	if err := checkKey(key); err != nil {
		return sheetContext{}, err
	}
	if err := s.canLoad(caps, kind, key); err != nil {
		return sheetContext{}, err
	}
	return s.open(ctx, caps, key)
}

// saveHomeroom runs the shared preamble of a homeroom-scoped save. done is set
// when the caller must return result as is.
func (s *Service) saveHomeroom(ctx context.Context, caps auth.Capabilities, kind string, key SheetKey) (sc sheetContext, result SaveResult, done bool, err error) {
	if err := checkKey(key); err != nil {
		return sheetContext{}, SaveResult{}, true, err
	}
	noop, err := s.canSave(caps, kind, key)
	if err != nil {
		return sheetContext{}, SaveResult{}, true, err
	}
	if noop {
		return sheetContext{}, SaveResult{Kind: kind, Key: key, NoOp: true}, true, nil
	}
	sc, err = s.open(ctx, caps, key)
	if err != nil {
		return sheetContext{}, SaveResult{}, true, err
	}
	return sc, SaveResult{}, false, nil
}

func (s *Service) LoadDevelopmentalSheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (DevelopmentalSheet, error) {
	sc, err := s.loadHomeroom(ctx, caps, KindDevelopmental, key)
	if err != nil {
		return DevelopmentalSheet{}, err
	}
	if !sc.header.Classroom.Level.IsPAUD {
		return DevelopmentalSheet{}, ErrNotPAUDClassroom
	}
	aspects, err := s.academic.DevelopmentalAspects(ctx)
	if err != nil {
		return DevelopmentalSheet{}, err
	}
	records, err := s.store.Developmental(ctx, key.AcademicYearID, key.Semester, sc.studentIDs())
	if err != nil {
		return DevelopmentalSheet{}, err
	}

	type cellKey struct{ student, aspect int64 }
	existing := make(map[cellKey]string, len(records))
	for _, r := range records {
		existing[cellKey{r.StudentID, r.AspectID}] = r.Description
	}
	rows := make([]DevelopmentalRow, 0, len(sc.students))
	for _, st := range sc.students {
		row := DevelopmentalRow{StudentID: st.ID, StudentName: st.Name, Cells: make([]DevelopmentalCell, 0, len(aspects))}
		for _, a := range aspects {
			row.Cells = append(row.Cells, DevelopmentalCell{AspectID: a.ID, Description: existing[cellKey{st.ID, a.ID}]})
		}
		rows = append(rows, row)
	}
	return DevelopmentalSheet{SheetHeader: sc.header, Aspects: aspects, Rows: rows}, nil
}

func (s *Service) SaveDevelopmentalSheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []DevelopmentalEntry) (SaveResult, error) {
	sc, result, done, err := s.saveHomeroom(ctx, caps, KindDevelopmental, key)
	if done {
		return result, err
	}
	if !sc.header.Classroom.Level.IsPAUD {
		return SaveResult{}, ErrNotPAUDClassroom
	}
	aspects, err := s.academic.DevelopmentalAspects(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	known := make(map[int64]bool, len(aspects))
	for _, a := range aspects {
		known[a.ID] = true
	}

	var is validation.Issues
	students := newStudentChecker(sc.students)
	for i := range entries {
		e := &entries[i]
		e.Description = strings.TrimSpace(e.Description)
		prefix := entryPrefix(i)
		is.Struct(prefix, *e)
		students.check(&is, prefix, e.StudentID, [2]int64{e.StudentID, e.AspectID})
		if e.AspectID > 0 && !known[e.AspectID] {
			is.Add(prefix+".aspectId", "unknown developmental aspect")
		}
	}
	if err := is.Err(); err != nil {
		return SaveResult{}, err
	}

	return s.commit(ctx, KindDevelopmental, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertDevelopmental(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) activity(ctx context.Context, id int64) (academic.ExtracurricularActivity, error) {
	activities, err := s.academic.ExtracurricularActivities(ctx)
	if err != nil {
		return academic.ExtracurricularActivity{}, err
	}
	for _, a := range activities {
		if a.ID == id {
			return a, nil
		}
	}
	return academic.ExtracurricularActivity{}, academic.ErrActivityNotFound
}

func (s *Service) project(ctx context.Context, academicYearID, id int64) (academic.P5Project, error) {
	projects, err := s.academic.P5Projects(ctx, academicYearID)
	if err != nil {
		return academic.P5Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return academic.P5Project{}, academic.ErrProjectNotFound
}

func levelRows(students []academic.Student, records []LevelRecord, defaultLevel string) []LevelRow {
	byStudent := make(map[int64]LevelRecord, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}
	rows := make([]LevelRow, 0, len(students))
	for _, st := range students {
		row := LevelRow{StudentID: st.ID, StudentName: st.Name, Level: defaultLevel}
		if r, ok := byStudent[st.ID]; ok {
			row.Level = r.Level
			row.Description = r.Description
		}
		rows = append(rows, row)
	}
	return rows
}

// checkLevels canonicalises each entry's level against allowed, matching
// case-insensitively.
func checkLevels(sc sheetContext, entries []LevelEntry, allowed []string) error {
	var is validation.Issues
	students := newStudentChecker(sc.students)
	for i := range entries {
		e := &entries[i]
		e.Description = strings.TrimSpace(e.Description)
		prefix := entryPrefix(i)
		is.Struct(prefix, *e)
		students.check(&is, prefix, e.StudentID, e.StudentID)
		if level, ok := canonicalLevel(allowed, e.Level); ok {
			e.Level = level
		} else if strings.TrimSpace(e.Level) != "" {
			is.Add(prefix+".level", "must be one of "+strings.Join(allowed, ", "))
		}
	}
	return is.Err()
}

func canonicalLevel(allowed []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, value) {
			return candidate, true
		}
	}
	return "", false
}

func (s *Service) LoadExtracurricularSheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (ExtracurricularSheet, error) {
	if err := requireItem("activityId", key.ActivityID); err != nil {
		return ExtracurricularSheet{}, err
	}
	sc, err := s.loadHomeroom(ctx, caps, KindExtracurricular, key)
	if err != nil {
		return ExtracurricularSheet{}, err
	}
	activity, err := s.activity(ctx, key.ActivityID)
	if err != nil {
		return ExtracurricularSheet{}, err
	}
	records, err := s.store.Extracurricular(ctx, key.AcademicYearID, key.Semester, key.ActivityID, sc.studentIDs())
	if err != nil {
		return ExtracurricularSheet{}, err
	}
	return ExtracurricularSheet{
		SheetHeader: sc.header,
		Activity:    activity,
		Levels:      ExtracurricularLevels,
		Rows:        levelRows(sc.students, records, DefaultExtracurricularLevel),
	}, nil
}

func (s *Service) SaveExtracurricularSheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []LevelEntry) (SaveResult, error) {
	if err := requireItem("activityId", key.ActivityID); err != nil {
		return SaveResult{}, err
	}
	sc, result, done, err := s.saveHomeroom(ctx, caps, KindExtracurricular, key)
	if done {
		return result, err
	}
	if _, err := s.activity(ctx, key.ActivityID); err != nil {
		return SaveResult{}, err
	}
	if err := checkLevels(sc, entries, ExtracurricularLevels); err != nil {
		return SaveResult{}, err
	}
	return s.commit(ctx, KindExtracurricular, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertExtracurricular(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) LoadP5Sheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (P5Sheet, error) {
	if err := requireItem("projectId", key.ProjectID); err != nil {
		return P5Sheet{}, err
	}
	sc, err := s.loadHomeroom(ctx, caps, KindP5, key)
	if err != nil {
		return P5Sheet{}, err
	}
	project, err := s.project(ctx, key.AcademicYearID, key.ProjectID)
	if err != nil {
		return P5Sheet{}, err
	}
	records, err := s.store.P5(ctx, key.AcademicYearID, key.Semester, key.ProjectID, sc.studentIDs())
	if err != nil {
		return P5Sheet{}, err
	}
	return P5Sheet{
		SheetHeader: sc.header,
		Project:     project,
		Levels:      P5Levels,
		Rows:        levelRows(sc.students, records, DefaultP5Level),
	}, nil
}

func (s *Service) SaveP5Sheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []LevelEntry) (SaveResult, error) {
	if err := requireItem("projectId", key.ProjectID); err != nil {
		return SaveResult{}, err
	}
	sc, result, done, err := s.saveHomeroom(ctx, caps, KindP5, key)
	if done {
		return result, err
	}
	if _, err := s.project(ctx, key.AcademicYearID, key.ProjectID); err != nil {
		return SaveResult{}, err
	}
	if err := checkLevels(sc, entries, P5Levels); err != nil {
		return SaveResult{}, err
	}
	return s.commit(ctx, KindP5, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertP5(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) LoadAttendanceSheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (AttendanceSheet, error) {
	sc, err := s.loadHomeroom(ctx, caps, KindAttendance, key)
	if err != nil {
		return AttendanceSheet{}, err
	}
	records, err := s.store.Attendance(ctx, key.AcademicYearID, key.Semester, sc.studentIDs())
	if err != nil {
		return AttendanceSheet{}, err
	}
	byStudent := make(map[int64]AttendanceRecord, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}
	rows := make([]AttendanceRow, 0, len(sc.students))
	for _, st := range sc.students {
		r := byStudent[st.ID]
		rows = append(rows, AttendanceRow{
			StudentID:   st.ID,
			StudentName: st.Name,
			Sick:        r.Sick,
			Permission:  r.Permission,
			Absent:      r.Absent,
		})
	}
	return AttendanceSheet{SheetHeader: sc.header, Rows: rows}, nil
}

func (s *Service) SaveAttendanceSheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []AttendanceEntry) (SaveResult, error) {
	sc, result, done, err := s.saveHomeroom(ctx, caps, KindAttendance, key)
	if done {
		return result, err
	}
	var is validation.Issues
	students := newStudentChecker(sc.students)
	for i, e := range entries {
		prefix := entryPrefix(i)
		is.Struct(prefix, e)
		students.check(&is, prefix, e.StudentID, e.StudentID)
	}
	if err := is.Err(); err != nil {
		return SaveResult{}, err
	}
	return s.commit(ctx, KindAttendance, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertAttendance(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) LoadNoteSheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (NoteSheet, error) {
	sc, err := s.loadHomeroom(ctx, caps, KindNotes, key)
	if err != nil {
		return NoteSheet{}, err
	}
	records, err := s.store.Notes(ctx, key.AcademicYearID, key.Semester, sc.studentIDs())
	if err != nil {
		return NoteSheet{}, err
	}
	byStudent := make(map[int64]NoteRecord, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}
	rows := make([]NoteRow, 0, len(sc.students))
	for _, st := range sc.students {
		r := byStudent[st.ID]
		rows = append(rows, NoteRow{
			StudentID:     st.ID,
			StudentName:   st.Name,
			TeacherNote:   r.TeacherNote,
			CharacterNote: r.CharacterNote,
		})
	}
	return NoteSheet{SheetHeader: sc.header, Rows: rows}, nil
}

func (s *Service) SaveNoteSheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []NoteEntry) (SaveResult, error) {
	sc, result, done, err := s.saveHomeroom(ctx, caps, KindNotes, key)
	if done {
		return result, err
	}
	var is validation.Issues
	students := newStudentChecker(sc.students)
	for i := range entries {
		e := &entries[i]
		e.TeacherNote = strings.TrimSpace(e.TeacherNote)
		e.CharacterNote = strings.TrimSpace(e.CharacterNote)
		prefix := entryPrefix(i)
		is.Struct(prefix, *e)
		students.check(&is, prefix, e.StudentID, e.StudentID)
	}
	if err := is.Err(); err != nil {
		return SaveResult{}, err
	}
	return s.commit(ctx, KindNotes, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertNote(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}
