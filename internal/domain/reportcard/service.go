package reportcard

import (
	"context"
	"log/slog"
	"strconv"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/assessment"
	"pkbm/internal/domain/auth"
	"pkbm/internal/platform/events"
	"pkbm/internal/platform/jobs"
	"pkbm/internal/platform/validation"
)

// Academic is the master data read while aggregating. *academic.Service
// satisfies it.
type Academic interface {
	AcademicYear(ctx context.Context, id int64) (academic.AcademicYear, error)
	ClassroomPhase(ctx context.Context, classroomID int64) (academic.Classroom, string, bool, error)
	Classroom(ctx context.Context, id int64) (academic.Classroom, error)
	EnrolledStudents(ctx context.Context, classroomID int64) ([]academic.Student, error)
	Student(ctx context.Context, id int64) (academic.Student, error)
	ListSubjects(ctx context.Context) ([]academic.Subject, error)
	ObjectivesByIDs(ctx context.Context, ids []int64) (map[int64]academic.LearningObjective, error)
	DevelopmentalAspects(ctx context.Context) ([]academic.DevelopmentalAspect, error)
	ExtracurricularActivities(ctx context.Context) ([]academic.ExtracurricularActivity, error)
	P5Projects(ctx context.Context, academicYearID int64) ([]academic.P5Project, error)
}

type Metrics interface {
	ReportCards(generated, skipped int)
	ReportCardFinalized()
	DocumentRendered()
}

type nopMetrics struct{}

func (nopMetrics) ReportCards(int, int) {}
func (nopMetrics) ReportCardFinalized() {}
func (nopMetrics) DocumentRendered() {}

type Deps struct {
	Store      StoreAPI
	Inputs     assessment.Reader
	Academic   Academic
	Events     events.Publisher
	Jobs       jobs.Runner
	Metrics    Metrics
	Documents  *Documents
	SchoolName string
}

type Service struct {
	store      StoreAPI
	inputs     assessment.Reader
	academic   Academic
	events     events.Publisher
	jobs       jobs.Runner
	metrics    Metrics
	documents  *Documents
	schoolName string
}

func NewService(deps Deps) *Service {
	s := &Service{
		store:      deps.Store,
		inputs:     deps.Inputs,
		academic:   deps.Academic,
		events:     deps.Events,
		jobs:       deps.Jobs,
		metrics:    deps.Metrics,
		documents:  deps.Documents,
		schoolName: deps.SchoolName,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.jobs == nil {
		s.jobs = jobs.Direct{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.documents == nil {
		s.documents = &Documents{}
	}
	return s
}

func (s *Service) forbidden(caps auth.Capabilities, action string, classroomID int64) error {
	slog.Warn("report card access denied",
		"user_id", caps.UserID,
		"role", caps.Role,
		"action", action,
		"classroom_id", classroomID,
	)
	return ErrForbidden
}

// Generate aggregates the assessment inputs of each selected student into one
// report card per student. Students that cannot be generated are reported as
// warnings; a missing academic year or classroom fails the whole request
// before anything is written.
func (s *Service) Generate(ctx context.Context, caps auth.Capabilities, req GenerateRequest) (GenerateResult, error) {
	if err := validation.Struct(req); err != nil {
		return GenerateResult{}, err
	}
	if !caps.Can(auth.PermReportCardGenerate) || !caps.CanAccessHomeroom(req.ClassroomID) {
		return GenerateResult{}, s.forbidden(caps, "generate", req.ClassroomID)
	}

	if _, err := s.academic.AcademicYear(ctx, req.AcademicYearID); err != nil {
		return GenerateResult{}, err
	}
	classroom, phase, hasPhase, err := s.academic.ClassroomPhase(ctx, req.ClassroomID)
	if err != nil {
		return GenerateResult{}, err
	}
	if classroom.AcademicYearID != req.AcademicYearID {
		return GenerateResult{}, assessment.ErrYearMismatch
	}

	result := GenerateResult{
		ClassroomID:    req.ClassroomID,
		AcademicYearID: req.AcademicYearID,
		Semester:       req.Semester,
		Track:          trackOf(classroom),
		Generated:      []GeneratedCard{},
		Warnings:       []Warning{},
	}
	if hasPhase {
		result.Phase = phase
	}

	enrolled, err := s.academic.EnrolledStudents(ctx, req.ClassroomID)
	if err != nil {
		return GenerateResult{}, err
	}
	targets, warnings := selectStudents(enrolled, req.StudentIDs)
	result.Warnings = append(result.Warnings, warnings...)

	if len(targets) > 0 {
		final, err := s.store.FinalStudentIDs(ctx, req.ClassroomID, req.AcademicYearID, req.Semester, studentIDs(targets))
		if err != nil {
			return GenerateResult{}, err
		}
		kept := targets[:0]
		for _, st := range targets {
			if final[st.ID] {
				result.Warnings = append(result.Warnings, Warning{StudentID: st.ID, Reason: WarnFinal})
				continue
			}
			kept = append(kept, st)
		}
		targets = kept
	}

	if len(targets) == 0 {
		s.logWarnings(req, result.Warnings)
		s.metrics.ReportCards(0, len(result.Warnings))
		return result, nil
	}

	inputs, err := s.collect(ctx, req, classroom, studentIDs(targets))
	if err != nil {
		return GenerateResult{}, err
	}
	cards := make([]ReportCard, 0, len(targets))
	for _, st := range targets {
		cards = append(cards, ReportCard{
			StudentID:       st.ID,
			StudentName:     st.Name,
			ClassroomID:     req.ClassroomID,
			AcademicYearID:  req.AcademicYearID,
			Semester:        req.Semester,
			Snapshot:        inputs.snapshot(st.ID, result.Track, result.Phase),
			SnapshotVersion: SnapshotVersion,
			TeacherNote:     inputs.notes[st.ID].TeacherNote,
			CharacterNote:   inputs.notes[st.ID].CharacterNote,
			Status:          StatusDraft,
			GeneratedBy:     caps.UserID,
		})
	}

	_, err = s.jobs.RunNow(ctx, jobs.JobReportCardGenerate, func(ctx context.Context) (any, error) {
		generated, skipped, err := s.upsertAll(ctx, cards)
		if err != nil {
			return nil, err
		}
		result.Generated = append(result.Generated, generated...)
		result.Warnings = append(result.Warnings, skipped...)
		return map[string]any{
			"classroomId":    req.ClassroomID,
			"academicYearId": req.AcademicYearID,
			"semester":       req.Semester,
			"generated":      len(result.Generated),
			"warnings":       result.Warnings,
		}, nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	s.logWarnings(req, result.Warnings)
	s.metrics.ReportCards(len(result.Generated), len(result.Warnings))
	s.events.Publish(ctx, events.Event{
		Topic: events.TopicReportGenerated,
		Key:   strconv.FormatInt(req.ClassroomID, 10),
		Data: map[string]any{
			"academicYearId": req.AcademicYearID,
			"semester":       req.Semester,
			"generated":      len(result.Generated),
		},
	})
	return result, nil
}

// upsertAll writes every card in one transaction. A card finalized after the
// pre-check is left alone and reported as skipped.
func (s *Service) upsertAll(ctx context.Context, cards []ReportCard) ([]GeneratedCard, []Warning, error) {
	var generated []GeneratedCard
	var skipped []Warning
	err := s.store.WithTx(ctx, func(w Writer) error {
		generated, skipped = nil, nil
		for _, card := range cards {
			id, written, err := w.Upsert(ctx, card)
			if err != nil {
				return err
			}
			if !written {
				skipped = append(skipped, Warning{StudentID: card.StudentID, Reason: WarnFinal})
				continue
			}
			generated = append(generated, GeneratedCard{ReportCardID: id, StudentID: card.StudentID, StudentName: card.StudentName})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return generated, skipped, nil
}

func (s *Service) logWarnings(req GenerateRequest, warnings []Warning) {
	for _, w := range warnings {
		slog.Warn("report card skipped",
			"classroom_id", req.ClassroomID,
			"academic_year_id", req.AcademicYearID,
			"semester", req.Semester,
			"student_id", w.StudentID,
			"reason", w.Reason,
		)
	}
}

func trackOf(classroom academic.Classroom) string {
	if classroom.Level.IsPAUD {
		return TrackPAUD
	}
	return TrackGraded
}

// selectStudents keeps the requested students enrolled in the classroom, in
// request order. No request ids selects every enrolled student.
func selectStudents(enrolled []academic.Student, requested []int64) ([]academic.Student, []Warning) {
	if len(requested) == 0 {
		return append([]academic.Student(nil), enrolled...), nil
	}
	byID := make(map[int64]academic.Student, len(enrolled))
	for _, st := range enrolled {
		byID[st.ID] = st
	}
	var out []academic.Student
	var warnings []Warning
	seen := map[int64]bool{}
	for _, id := range requested {
		if seen[id] {
			warnings = append(warnings, Warning{StudentID: id, Reason: WarnDuplicate})
			continue
		}
		seen[id] = true
		st, ok := byID[id]
		if !ok {
			warnings = append(warnings, Warning{StudentID: id, Reason: WarnNotEnrolled})
			continue
		}
		out = append(out, st)
	}
	return out, warnings
}

func studentIDs(students []academic.Student) []int64 {
	ids := make([]int64, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

// List returns report cards visible to caps. Scoped roles only see their
// assigned classrooms.
func (s *Service) List(ctx context.Context, caps auth.Capabilities, filter ListFilter) ([]ReportCard, error) {
	if !caps.Can(auth.PermReportCardRead) {
		return nil, s.forbidden(caps, "list", filter.ClassroomID)
	}
	if caps.Scoped() {
		if filter.ClassroomID != 0 && !caps.CanAccessClassroom(filter.ClassroomID) {
			return nil, s.forbidden(caps, "list", filter.ClassroomID)
		}
		filter.ClassroomIDs = caps.ClassroomIDs()
		if filter.ClassroomIDs == nil {
			filter.ClassroomIDs = []int64{}
		}
	}
	if filter.Status != "" && filter.Status != StatusDraft && filter.Status != StatusFinal {
		return nil, validation.Field("status", "must be one of draft, final")
	}
	cards, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []ReportCard{}
	}
	return cards, nil
}

func (s *Service) Get(ctx context.Context, caps auth.Capabilities, id int64) (ReportCard, error) {
	if !caps.Can(auth.PermReportCardRead) {
		return ReportCard{}, s.forbidden(caps, "get", 0)
	}
	card, err := s.store.Get(ctx, id)
	if err != nil {
		return ReportCard{}, err
	}
	if !caps.CanAccessClassroom(card.ClassroomID) {
		return ReportCard{}, s.forbidden(caps, "get", card.ClassroomID)
	}
	return card, nil
}

// Finalize locks a draft card. Final cards are never regenerated.
func (s *Service) Finalize(ctx context.Context, caps auth.Capabilities, id int64) (ReportCard, error) {
	if !caps.Can(auth.PermReportCardFinalize) {
		return ReportCard{}, s.forbidden(caps, "finalize", 0)
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return ReportCard{}, err
	}
	if !caps.CanAccessHomeroom(current.ClassroomID) {
		return ReportCard{}, s.forbidden(caps, "finalize", current.ClassroomID)
	}
	card, err := s.store.Finalize(ctx, id)
	if err != nil {
		return ReportCard{}, err
	}
	s.metrics.ReportCardFinalized()
	s.events.Publish(ctx, events.Event{
		Topic: events.TopicReportFinalized,
		Key:   strconv.FormatInt(card.ClassroomID, 10),
		Data: map[string]any{
			"reportCardId": card.ID,
			"studentId":    card.StudentID,
		},
	})
	return card, nil
}
