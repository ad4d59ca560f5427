package academichandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/audit"
	"pkbm/internal/domain/auth"
	"pkbm/internal/platform/storage"
	"pkbm/internal/transport/http/api"
	"pkbm/internal/transport/http/middleware"
	"pkbm/internal/transport/http/shared"
)

const photoField = "photo"

// Academic is the master-data service behind these routes. *academic.Service
// satisfies it.
type Academic interface {
	ListAcademicYears(ctx context.Context) ([]academic.AcademicYear, error)
	ListClassrooms(ctx context.Context, academicYearID int64, ids []int64) ([]academic.Classroom, error)
	ClassroomPhase(ctx context.Context, classroomID int64) (academic.Classroom, string, bool, error)
	EnrolledStudents(ctx context.Context, classroomID int64) ([]academic.Student, error)
	Student(ctx context.Context, id int64) (academic.Student, error)
	ListSubjects(ctx context.Context) ([]academic.Subject, error)
	Subject(ctx context.Context, id int64) (academic.Subject, error)
	Objectives(ctx context.Context, subjectID int64) ([]academic.LearningObjective, error)
	EligibleObjectives(ctx context.Context, classroomID, subjectID int64, selected map[int64]bool) ([]academic.LearningObjective, error)
	CreateObjective(ctx context.Context, obj academic.LearningObjective) (academic.LearningObjective, error)
	SetLevelPhase(ctx context.Context, levelID int64, phase string) (academic.Level, error)
	UpdateStudentPhoto(ctx context.Context, studentID int64, path string) (string, error)
	DevelopmentalAspects(ctx context.Context) ([]academic.DevelopmentalAspect, error)
	ExtracurricularActivities(ctx context.Context) ([]academic.ExtracurricularActivity, error)
	P5Projects(ctx context.Context, academicYearID int64) ([]academic.P5Project, error)
}

type Handler struct {
	Service Academic
	Media   *storage.Disk
	Audit   audit.Recorder
}

func NewHandler(service Academic, media *storage.Disk, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Media: media, Audit: recorder}
}

type objectiveRequest struct {
	Phase       string `json:"phase" validate:"omitempty,max=1"`
	Code        string `json:"code" validate:"required,max=32"`
	Description string `json:"description" validate:"required,max=1000"`
}

type phaseRequest struct {
	Phase string `json:"phase" validate:"omitempty,max=1"`
}

type phaseResponse struct {
	ClassroomID int64  `json:"classroomId"`
	Level       string `json:"level"`
	IsPAUD      bool   `json:"isPaud"`
	Phase       string `json:"phase,omitempty"`
	HasPhase    bool   `json:"hasPhase"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermAcademicRead)
	write := middleware.RequirePermission(auth.PermAcademicWrite)

	r.With(read).Get("/academic-years", h.handleListYears)
	r.Route("/classrooms", func(r chi.Router) {
		r.With(read).Get("/", h.handleListClassrooms)
		r.With(read).Get("/{classroomID}", h.handleGetClassroom)
		r.With(read).Get("/{classroomID}/students", h.handleListStudents)
		r.With(read).Get("/{classroomID}/phase", h.handleClassroomPhase)
	})
	r.Route("/subjects", func(r chi.Router) {
		r.With(read).Get("/", h.handleListSubjects)
		r.With(read).Get("/{subjectID}/objectives", h.handleListObjectives)
		r.With(write).Post("/{subjectID}/objectives", h.handleCreateObjective)
	})
	r.With(write).Put("/levels/{levelID}/phase", h.handleSetLevelPhase)
	r.With(middleware.RequirePermission(auth.PermMediaWrite)).Post("/students/{studentID}/photo", h.handleUploadPhoto)
	r.With(read).Get("/developmental-aspects", h.handleListAspects)
	r.With(read).Get("/extracurricular-activities", h.handleListActivities)
	r.With(read).Get("/p5-projects", h.handleListProjects)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	validator := shared.NewValidator()
	id := validator.ID(param, chi.URLParam(r, param), true)
	if validator.Reject(w, shared.RequestID(r)) {
		return 0, false
	}
	return id, true
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusForbidden, "forbidden", "outside of your teaching assignment", shared.RequestID(r))
}

func (h *Handler) handleListYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.Service.ListAcademicYears(r.Context())
	if err != nil {
		shared.WriteError(w, r, err, "academic_years_failed")
		return
	}
	api.Success(w, years, shared.RequestID(r))
}

func (h *Handler) handleListClassrooms(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	validator := shared.NewValidator()
	yearID := validator.ID("academicYearId", r.URL.Query().Get("academicYearId"), false)
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}
	classrooms, err := h.Service.ListClassrooms(r.Context(), yearID, caps.ClassroomIDs())
	if err != nil {
		shared.WriteError(w, r, err, "classrooms_failed")
		return
	}
	if classrooms == nil {
		classrooms = []academic.Classroom{}
	}
	api.Success(w, classrooms, shared.RequestID(r))
}

// classroom resolves the path classroom after the scope check.
func (h *Handler) classroom(w http.ResponseWriter, r *http.Request) (academic.Classroom, string, bool, bool) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return academic.Classroom{}, "", false, false
	}
	id, ok := pathID(w, r, "classroomID")
	if !ok {
		return academic.Classroom{}, "", false, false
	}
	if !caps.CanAccessClassroom(id) {
		forbidden(w, r)
		return academic.Classroom{}, "", false, false
	}
	classroom, phase, hasPhase, err := h.Service.ClassroomPhase(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, err, "classroom_failed")
		return academic.Classroom{}, "", false, false
	}
	return classroom, phase, hasPhase, true
}

func (h *Handler) handleGetClassroom(w http.ResponseWriter, r *http.Request) {
	classroom, _, _, ok := h.classroom(w, r)
	if !ok {
		return
	}
	api.Success(w, classroom, shared.RequestID(r))
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	classroom, _, _, ok := h.classroom(w, r)
	if !ok {
		return
	}
	students, err := h.Service.EnrolledStudents(r.Context(), classroom.ID)
	if err != nil {
		shared.WriteError(w, r, err, "students_failed")
		return
	}
	if students == nil {
		students = []academic.Student{}
	}
	api.Success(w, students, shared.RequestID(r))
}

func (h *Handler) handleClassroomPhase(w http.ResponseWriter, r *http.Request) {
	classroom, phase, hasPhase, ok := h.classroom(w, r)
	if !ok {
		return
	}
	api.Success(w, phaseResponse{
		ClassroomID: classroom.ID,
		Level:       classroom.Level.Name,
		IsPAUD:      classroom.Level.IsPAUD,
		Phase:       phase,
		HasPhase:    hasPhase,
	}, shared.RequestID(r))
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Service.ListSubjects(r.Context())
	if err != nil {
		shared.WriteError(w, r, err, "subjects_failed")
		return
	}
	api.Success(w, subjects, shared.RequestID(r))
}

// handleListObjectives lists every objective of a subject, or only those
// offered to a classroom's phase when classroomId is given.
func (h *Handler) handleListObjectives(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	validator := shared.NewValidator()
	subjectID := validator.ID("subjectID", chi.URLParam(r, "subjectID"), true)
	classroomID := validator.ID("classroomId", r.URL.Query().Get("classroomId"), false)
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}
	if _, err := h.Service.Subject(r.Context(), subjectID); err != nil {
		shared.WriteError(w, r, err, "objectives_failed")
		return
	}

	var (
		objectives []academic.LearningObjective
		err        error
	)
	if classroomID > 0 {
		if !caps.CanAccessClassroom(classroomID) {
			forbidden(w, r)
			return
		}
		objectives, err = h.Service.EligibleObjectives(r.Context(), classroomID, subjectID, nil)
	} else {
		objectives, err = h.Service.Objectives(r.Context(), subjectID)
	}
	if err != nil {
		shared.WriteError(w, r, err, "objectives_failed")
		return
	}
	if objectives == nil {
		objectives = []academic.LearningObjective{}
	}
	api.Success(w, objectives, shared.RequestID(r))
}

func (h *Handler) handleCreateObjective(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathID(w, r, "subjectID")
	if !ok {
		return
	}
	var payload objectiveRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}

	created, err := h.Service.CreateObjective(r.Context(), academic.LearningObjective{
		SubjectID:   subjectID,
		Phase:       payload.Phase,
		Code:        payload.Code,
		Description: payload.Description,
	})
	if err != nil {
		shared.WriteError(w, r, err, "objective_create_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionObjectiveCreate,
		EntityType: "learning_objective",
		EntityID:   strconv.FormatInt(created.ID, 10),
		After:      created,
	})
	api.Created(w, created, shared.RequestID(r))
}

func (h *Handler) handleSetLevelPhase(w http.ResponseWriter, r *http.Request) {
	levelID, ok := pathID(w, r, "levelID")
	if !ok {
		return
	}
	var payload phaseRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}
	level, err := h.Service.SetLevelPhase(r.Context(), levelID, payload.Phase)
	if err != nil {
		shared.WriteError(w, r, err, "level_phase_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionLevelPhaseUpdate,
		EntityType: "level",
		EntityID:   strconv.FormatInt(level.ID, 10),
		After:      level,
	})
	api.Success(w, level, shared.RequestID(r))
}

// handleUploadPhoto stores a JPEG or PNG from the multipart field "photo" and
// removes the file it replaces.
func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	studentID, ok := pathID(w, r, "studentID")
	if !ok {
		return
	}
	if h.Media == nil {
		api.Fail(w, http.StatusServiceUnavailable, "media_unavailable", "media storage is not configured", shared.RequestID(r))
		return
	}
	student, err := h.Service.Student(r.Context(), studentID)
	if err != nil {
		shared.WriteError(w, r, err, "photo_upload_failed")
		return
	}
	if !caps.CanAccessClassroom(student.ClassroomID) {
		forbidden(w, r)
		return
	}

	file, _, err := r.FormFile(photoField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "file too large", shared.RequestID(r))
			return
		}
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: photoField, Reason: "is required"}})
		return
	}
	defer file.Close()

	obj, err := h.Media.Save("students", file, storage.ImageTypes)
	if err != nil {
		shared.WriteError(w, r, err, "photo_upload_failed")
		return
	}
	previous, err := h.Service.UpdateStudentPhoto(r.Context(), studentID, obj.Path)
	if err != nil {
		if delErr := h.Media.Delete(obj.Path); delErr != nil {
			slog.Warn("orphan photo cleanup failed", "path", obj.Path, "err", delErr)
		}
		shared.WriteError(w, r, err, "photo_upload_failed")
		return
	}
	if previous != "" && previous != obj.Path {
		if err := h.Media.Delete(previous); err != nil {
			slog.Warn("previous photo cleanup failed", "path", previous, "err", err)
		}
	}

	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionStudentPhotoStore,
		EntityType: "student",
		EntityID:   strconv.FormatInt(studentID, 10),
		Before:     map[string]string{"photoPath": previous},
		After:      map[string]string{"photoPath": obj.Path},
	})
	api.Created(w, obj, shared.RequestID(r))
}

func (h *Handler) handleListAspects(w http.ResponseWriter, r *http.Request) {
	aspects, err := h.Service.DevelopmentalAspects(r.Context())
	if err != nil {
		shared.WriteError(w, r, err, "aspects_failed")
		return
	}
	api.Success(w, aspects, shared.RequestID(r))
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.Service.ExtracurricularActivities(r.Context())
	if err != nil {
		shared.WriteError(w, r, err, "activities_failed")
		return
	}
	api.Success(w, activities, shared.RequestID(r))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	validator := shared.NewValidator()
	yearID := validator.ID("academicYearId", r.URL.Query().Get("academicYearId"), true)
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}
	projects, err := h.Service.P5Projects(r.Context(), yearID)
	if err != nil {
		shared.WriteError(w, r, err, "projects_failed")
		return
	}
	api.Success(w, projects, shared.RequestID(r))
}
