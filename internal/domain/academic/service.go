package academic

import (
	"context"
	"strconv"
	"strings"
	"time"

	"pkbm/internal/platform/cache"
	"pkbm/internal/platform/events"
)

type Options struct {
	Phases       PhaseTable
	ClassroomTTL time.Duration
	ObjectiveTTL time.Duration
}

// Service is the read side of the academic master data plus the few writes
// that change what assessment screens show. Classrooms and per-subject
// objective lists are cached and dropped when the bus reports a change.
type Service struct {
	store      StoreAPI
	phases     PhaseResolver
	events     events.Publisher
	classrooms *cache.Cache[int64, Classroom]
	objectives *cache.Cache[int64, []LearningObjective]
}

func NewService(store StoreAPI, bus *events.Bus, opts Options) *Service {
	if opts.ClassroomTTL <= 0 {
		opts.ClassroomTTL = 5 * time.Minute
	}
	if opts.ObjectiveTTL <= 0 {
		opts.ObjectiveTTL = 5 * time.Minute
	}
	s := &Service{
		store:      store,
		phases:     NewPhaseResolver(opts.Phases),
		events:     events.Nop{},
		classrooms: cache.New[int64, Classroom](opts.ClassroomTTL),
		objectives: cache.New[int64, []LearningObjective](opts.ObjectiveTTL),
	}
	if bus != nil {
		s.events = bus
		bus.Subscribe(events.TopicObjectiveChanged, s.onObjectiveChanged)
		bus.Subscribe(events.TopicClassroomChanged, s.onClassroomChanged)
	}
	return s
}

func (s *Service) onObjectiveChanged(_ context.Context, evt events.Event) {
	subjectID, err := strconv.ParseInt(evt.Key, 10, 64)
	if err != nil {
		s.objectives.Purge()
		return
	}
	s.objectives.Invalidate(subjectID)
}

// onClassroomChanged drops one classroom by key, or every classroom of the
// level named in the event data.
func (s *Service) onClassroomChanged(_ context.Context, evt events.Event) {
	if levelID, ok := evt.Data["levelId"].(int64); ok {
		s.classrooms.InvalidateWhere(func(_ int64, c Classroom) bool {
			return c.Level.ID == levelID
		})
		return
	}
	classroomID, err := strconv.ParseInt(evt.Key, 10, 64)
	if err != nil {
		s.classrooms.Purge()
		return
	}
	s.classrooms.Invalidate(classroomID)
}

func (s *Service) ListAcademicYears(ctx context.Context) ([]AcademicYear, error) {
	return s.store.ListAcademicYears(ctx)
}

func (s *Service) AcademicYear(ctx context.Context, id int64) (AcademicYear, error) {
	return s.store.GetAcademicYear(ctx, id)
}

func (s *Service) Classroom(ctx context.Context, id int64) (Classroom, error) {
	return s.classrooms.GetOrLoad(ctx, id, func(ctx context.Context) (Classroom, error) {
		return s.store.GetClassroom(ctx, id)
	})
}

// ListClassrooms returns every classroom of a year, or only ids when ids is
// non-nil.
func (s *Service) ListClassrooms(ctx context.Context, academicYearID int64, ids []int64) ([]Classroom, error) {
	if ids != nil && len(ids) == 0 {
		return []Classroom{}, nil
	}
	return s.store.ListClassrooms(ctx, academicYearID, ids)
}

// ClassroomPhase resolves the phase of a classroom. ok is false for PAUD and
// unmapped levels.
func (s *Service) ClassroomPhase(ctx context.Context, classroomID int64) (Classroom, string, bool, error) {
	c, err := s.Classroom(ctx, classroomID)
	if err != nil {
		return Classroom{}, "", false, err
	}
	phase, ok := s.phases.ResolveClassroom(c)
	return c, phase, ok, nil
}

func (s *Service) EnrolledStudents(ctx context.Context, classroomID int64) ([]Student, error) {
	return s.store.EnrolledStudents(ctx, classroomID)
}

func (s *Service) Student(ctx context.Context, id int64) (Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	return s.store.ListSubjects(ctx)
}

func (s *Service) Subject(ctx context.Context, id int64) (Subject, error) {
	return s.store.GetSubject(ctx, id)
}

func (s *Service) Objectives(ctx context.Context, subjectID int64) ([]LearningObjective, error) {
	return s.objectives.GetOrLoad(ctx, subjectID, func(ctx context.Context) ([]LearningObjective, error) {
		return s.store.ObjectivesBySubject(ctx, subjectID)
	})
}

// EligibleObjectives returns the objectives of a subject offered for a
// classroom, plus the ids in selected even when the phase filter hides them.
func (s *Service) EligibleObjectives(ctx context.Context, classroomID, subjectID int64, selected map[int64]bool) ([]LearningObjective, error) {
	_, phase, ok, err := s.ClassroomPhase(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	all, err := s.Objectives(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return WithSelected(EligibleObjectives(all, phase, ok), all, selected), nil
}

// ObjectivesByIDs resolves objective text without any phase filter.
func (s *Service) ObjectivesByIDs(ctx context.Context, ids []int64) (map[int64]LearningObjective, error) {
	objs, err := s.store.ObjectivesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]LearningObjective, len(objs))
	for _, obj := range objs {
		out[obj.ID] = obj
	}
	return out, nil
}

func (s *Service) CreateObjective(ctx context.Context, obj LearningObjective) (LearningObjective, error) {
	obj.Code = strings.TrimSpace(obj.Code)
	obj.Description = strings.TrimSpace(obj.Description)
	if obj.Phase != "" {
		phase, ok := NormalizePhase(obj.Phase)
		if !ok {
			return LearningObjective{}, ErrInvalidPhase
		}
		obj.Phase = phase
	}
	id, err := s.store.CreateObjective(ctx, obj)
	if err != nil {
		return LearningObjective{}, err
	}
	obj.ID = id
	s.events.Publish(ctx, events.Event{
		Topic: events.TopicObjectiveChanged,
		Key:   strconv.FormatInt(obj.SubjectID, 10),
		Data:  map[string]any{"objectiveId": id},
	})
	return obj, nil
}

// SetLevelPhase overrides the grade-derived phase of a level. An empty phase
// clears the override.
func (s *Service) SetLevelPhase(ctx context.Context, levelID int64, phase string) (Level, error) {
	if phase != "" {
		normalized, ok := NormalizePhase(phase)
		if !ok {
			return Level{}, ErrInvalidPhase
		}
		phase = normalized
	}
	if err := s.store.SetLevelPhase(ctx, levelID, phase); err != nil {
		return Level{}, err
	}
	s.events.Publish(ctx, events.Event{
		Topic: events.TopicClassroomChanged,
		Data:  map[string]any{"levelId": levelID},
	})
	return s.store.GetLevel(ctx, levelID)
}

// UpdateStudentPhoto records a new photo path and returns the one it replaced.
func (s *Service) UpdateStudentPhoto(ctx context.Context, studentID int64, path string) (string, error) {
	return s.store.UpdateStudentPhoto(ctx, studentID, path)
}

func (s *Service) DevelopmentalAspects(ctx context.Context) ([]DevelopmentalAspect, error) {
	return s.store.ListDevelopmentalAspects(ctx)
}

func (s *Service) ExtracurricularActivities(ctx context.Context) ([]ExtracurricularActivity, error) {
	return s.store.ListExtracurricularActivities(ctx)
}

func (s *Service) P5Projects(ctx context.Context, academicYearID int64) ([]P5Project, error) {
	return s.store.ListP5Projects(ctx, academicYearID)
}
