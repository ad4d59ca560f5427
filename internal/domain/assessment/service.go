package assessment

import (
	"context"
	"log/slog"
	"strconv"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/auth"
	"pkbm/internal/platform/events"
	"pkbm/internal/platform/validation"
)

// Academic is the master data the sheets are built from. *academic.Service
// satisfies it.
type Academic interface {
	AcademicYear(ctx context.Context, id int64) (academic.AcademicYear, error)
	ClassroomPhase(ctx context.Context, classroomID int64) (academic.Classroom, string, bool, error)
	EnrolledStudents(ctx context.Context, classroomID int64) ([]academic.Student, error)
	Subject(ctx context.Context, id int64) (academic.Subject, error)
	EligibleObjectives(ctx context.Context, classroomID, subjectID int64, selected map[int64]bool) ([]academic.LearningObjective, error)
	DevelopmentalAspects(ctx context.Context) ([]academic.DevelopmentalAspect, error)
	ExtracurricularActivities(ctx context.Context) ([]academic.ExtracurricularActivity, error)
	P5Projects(ctx context.Context, academicYearID int64) ([]academic.P5Project, error)
}

type Service struct {
	store    StoreAPI
	academic Academic
	events   events.Publisher
}

func NewService(store StoreAPI, lookup Academic, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{store: store, academic: lookup, events: publisher}
}

type sheetContext struct {
	header   SheetHeader
	phase    string
	hasPhase bool
	students []academic.Student
}

func (c sheetContext) studentIDs() []int64 {
	ids := make([]int64, 0, len(c.students))
	for _, st := range c.students {
		ids = append(ids, st.ID)
	}
	return ids
}

func (s *Service) forbidden(caps auth.Capabilities, kind string, key SheetKey) error {
	slog.Warn("assessment access denied",
		"user_id", caps.UserID,
		"role", caps.Role,
		"kind", kind,
		"classroom_id", key.ClassroomID,
		"subject_id", key.SubjectID,
	)
	return ErrForbidden
}

// canLoad gates every sheet read. Subject teachers may open the grade sheet of
// their subject; everything else needs the homeroom scope.
func (s *Service) canLoad(caps auth.Capabilities, kind string, key SheetKey) error {
	if !caps.Can(auth.PermAssessmentRead) {
		return s.forbidden(caps, kind, key)
	}
	if kind == KindGrades && caps.CanAccessSubject(key.ClassroomID, key.SubjectID) {
		return nil
	}
	if caps.CanAccessHomeroom(key.ClassroomID) {
		return nil
	}
	return s.forbidden(caps, kind, key)
}

// canSave returns noop for read-only roles, whose saves are discarded.
func (s *Service) canSave(caps auth.Capabilities, kind string, key SheetKey) (noop bool, err error) {
	if !caps.Can(auth.PermAssessmentRead) {
		return false, s.forbidden(caps, kind, key)
	}
	inScope := caps.CanAccessHomeroom(key.ClassroomID)
	canWrite := caps.CanWriteClassroom(key.ClassroomID)
	if kind == KindGrades {
		inScope = caps.CanAccessSubject(key.ClassroomID, key.SubjectID)
		canWrite = caps.CanWriteSubject(key.ClassroomID, key.SubjectID)
	}
	if !inScope {
		return false, s.forbidden(caps, kind, key)
	}
	if !canWrite {
		slog.Info("assessment save ignored for read-only role", "user_id", caps.UserID, "role", caps.Role, "kind", kind)
		return true, nil
	}
	return false, nil
}

func (s *Service) open(ctx context.Context, caps auth.Capabilities, key SheetKey) (sheetContext, error) {
	if _, err := s.academic.AcademicYear(ctx, key.AcademicYearID); err != nil {
		return sheetContext{}, err
	}
	classroom, phase, ok, err := s.academic.ClassroomPhase(ctx, key.ClassroomID)
	if err != nil {
		return sheetContext{}, err
	}
	if classroom.AcademicYearID != key.AcademicYearID {
		return sheetContext{}, ErrYearMismatch
	}
	students, err := s.academic.EnrolledStudents(ctx, key.ClassroomID)
	if err != nil {
		return sheetContext{}, err
	}
	return sheetContext{
		header:   SheetHeader{Key: key, Classroom: classroom, ReadOnly: caps.ReadOnly()},
		phase:    phase,
		hasPhase: ok,
		students: students,
	}, nil
}

func (s *Service) commit(ctx context.Context, kind string, key SheetKey, n int, fn func(w Writer) error) (SaveResult, error) {
	result := SaveResult{Kind: kind, Key: key}
	if n == 0 {
		return result, nil
	}
	if err := s.store.WithTx(ctx, fn); err != nil {
		return SaveResult{}, err
	}
	result.Saved = n
	s.events.Publish(ctx, events.Event{
		Topic: events.TopicAssessmentSaved,
		Key:   strconv.FormatInt(key.ClassroomID, 10),
		Data: map[string]any{
			"kind":           kind,
			"academicYearId": key.AcademicYearID,
			"semester":       key.Semester,
			"saved":          n,
		},
	})
	return result, nil
}

func (s *Service) LoadGradeSheet(ctx context.Context, caps auth.Capabilities, key SheetKey) (GradeSheet, error) {
	if err := checkKey(key); err != nil {
		return GradeSheet{}, err
	}
	if err := requireItem("subjectId", key.SubjectID); err != nil {
		return GradeSheet{}, err
	}
	if err := s.canLoad(caps, KindGrades, key); err != nil {
		return GradeSheet{}, err
	}

	sc, subject, records, objectives, err := s.gradeContext(ctx, caps, key)
	if err != nil {
		return GradeSheet{}, err
	}

	byStudent := make(map[int64]GradeRecord, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r
	}
	rows := make([]GradeRow, 0, len(sc.students))
	for _, st := range sc.students {
		row := GradeRow{StudentID: st.ID, StudentName: st.Name}
		if r, ok := byStudent[st.ID]; ok {
			row.Grade = r.Grade
			row.BestTPID = r.BestTPID
			row.ImprovementTPID = r.ImprovementTPID
		}
		rows = append(rows, row)
	}
	return GradeSheet{
		SheetHeader: sc.header,
		Subject:     subject,
		Phase:       sc.phase,
		Objectives:  objectives,
		Rows:        rows,
	}, nil
}

func (s *Service) gradeContext(ctx context.Context, caps auth.Capabilities, key SheetKey) (sheetContext, academic.Subject, []GradeRecord, []academic.LearningObjective, error) {
	sc, err := s.open(ctx, caps, key)
	if err != nil {
		return sheetContext{}, academic.Subject{}, nil, nil, err
	}
	if sc.header.Classroom.Level.IsPAUD {
		return sheetContext{}, academic.Subject{}, nil, nil, ErrPAUDClassroom
	}
	subject, err := s.academic.Subject(ctx, key.SubjectID)
	if err != nil {
		return sheetContext{}, academic.Subject{}, nil, nil, err
	}
	records, err := s.store.Grades(ctx, key.ClassroomID, key.AcademicYearID, key.Semester, key.SubjectID, sc.studentIDs())
	if err != nil {
		return sheetContext{}, academic.Subject{}, nil, nil, err
	}
	selected := map[int64]bool{}
	for _, r := range records {
		if r.BestTPID != nil {
			selected[*r.BestTPID] = true
		}
		if r.ImprovementTPID != nil {
			selected[*r.ImprovementTPID] = true
		}
	}
	objectives, err := s.academic.EligibleObjectives(ctx, key.ClassroomID, key.SubjectID, selected)
	if err != nil {
		return sheetContext{}, academic.Subject{}, nil, nil, err
	}
	return sc, subject, records, objectives, nil
}

// SaveGradeSheet validates every entry before writing anything; a single
// invalid entry rejects the whole sheet.
func (s *Service) SaveGradeSheet(ctx context.Context, caps auth.Capabilities, key SheetKey, entries []GradeEntry) (SaveResult, error) {
	if err := checkKey(key); err != nil {
		return SaveResult{}, err
	}
	if err := requireItem("subjectId", key.SubjectID); err != nil {
		return SaveResult{}, err
	}
	noop, err := s.canSave(caps, KindGrades, key)
	if err != nil {
		return SaveResult{}, err
	}
	if noop {
		return SaveResult{Kind: KindGrades, Key: key, NoOp: true}, nil
	}

	sc, _, records, objectives, err := s.gradeContext(ctx, caps, key)
	if err != nil {
		return SaveResult{}, err
	}
	known := make(map[int64]bool, len(objectives))
	for _, obj := range objectives {
		known[obj.ID] = true
	}
	eligible := map[int64]bool{}
	for _, obj := range academic.EligibleObjectives(objectives, sc.phase, sc.hasPhase) {
		eligible[obj.ID] = true
	}
	// An objective hidden by the phase filter stays valid only for the
	// student who already had it.
	history := make(map[int64]map[int64]bool, len(records))
	for _, r := range records {
		ids := map[int64]bool{}
		if r.BestTPID != nil {
			ids[*r.BestTPID] = true
		}
		if r.ImprovementTPID != nil {
			ids[*r.ImprovementTPID] = true
		}
		history[r.StudentID] = ids
	}
	allowed := func(studentID, objectiveID int64) bool {
		return eligible[objectiveID] || (known[objectiveID] && history[studentID][objectiveID])
	}

	var is validation.Issues
	students := newStudentChecker(sc.students)
	for i, e := range entries {
		prefix := entryPrefix(i)
		is.Struct(prefix, e)
		students.check(&is, prefix, e.StudentID, e.StudentID)
		if e.BestTPID != nil && e.ImprovementTPID != nil && *e.BestTPID == *e.ImprovementTPID {
			is.Add(prefix+".improvementTpId", "must differ from bestTpId")
		}
		if e.BestTPID != nil && *e.BestTPID > 0 && !allowed(e.StudentID, *e.BestTPID) {
			is.Add(prefix+".bestTpId", "is not a learning objective of this subject and phase")
		}
		if e.ImprovementTPID != nil && *e.ImprovementTPID > 0 && !allowed(e.StudentID, *e.ImprovementTPID) {
			is.Add(prefix+".improvementTpId", "is not a learning objective of this subject and phase")
		}
	}
	if err := is.Err(); err != nil {
		return SaveResult{}, err
	}

	return s.commit(ctx, KindGrades, key, len(entries), func(w Writer) error {
		for _, e := range entries {
			if err := w.UpsertGrade(ctx, key, e); err != nil {
				return err
			}
		}
		return nil
	})
}
