package assessmenthandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pkbm/internal/domain/assessment"
	"pkbm/internal/domain/audit"
	"pkbm/internal/domain/auth"
	"pkbm/internal/transport/http/api"
	"pkbm/internal/transport/http/middleware"
	"pkbm/internal/transport/http/shared"
)

// Sheets is the assessment service behind these routes. *assessment.Service
// satisfies it.
type Sheets interface {
	LoadGradeSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.GradeSheet, error)
	SaveGradeSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.GradeEntry) (assessment.SaveResult, error)
	LoadDevelopmentalSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.DevelopmentalSheet, error)
	SaveDevelopmentalSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.DevelopmentalEntry) (assessment.SaveResult, error)
	LoadExtracurricularSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.ExtracurricularSheet, error)
	SaveExtracurricularSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.LevelEntry) (assessment.SaveResult, error)
	LoadP5Sheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.P5Sheet, error)
	SaveP5Sheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.LevelEntry) (assessment.SaveResult, error)
	LoadAttendanceSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.AttendanceSheet, error)
	SaveAttendanceSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.AttendanceEntry) (assessment.SaveResult, error)
	LoadNoteSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey) (assessment.NoteSheet, error)
	SaveNoteSheet(ctx context.Context, caps auth.Capabilities, key assessment.SheetKey, entries []assessment.NoteEntry) (assessment.SaveResult, error)
}

type Handler struct {
	Service Sheets
	Audit   audit.Recorder
	// SaveLimit caps sheet saves per user and kind each minute; zero disables it.
	SaveLimit int
}

func NewHandler(service Sheets, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

type saveRequest struct {
	Entries json.RawMessage `json:"entries"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAssessmentRead)).Get("/{kind}", h.handleLoad)
		// Read-only roles may save; the service turns their saves into no-ops.
		r.With(
			middleware.RequirePermission(auth.PermAssessmentRead),
			middleware.RateLimit(h.SaveLimit, time.Minute, middleware.WithKeyFunc(middleware.ActorScopedKey(func(r *http.Request) string {
				return chi.URLParam(r, "kind")
			}))),
		).Put("/{kind}", h.handleSave)
	})
}

// sheetKey reads the sheet selector from the query string. The item id is
// required only for the kinds that are per subject, activity or project.
func sheetKey(w http.ResponseWriter, r *http.Request) (string, assessment.SheetKey, bool) {
	kind := chi.URLParam(r, "kind")
	q := r.URL.Query()
	validator := shared.NewValidator()
	if !assessment.ValidKind(kind) {
		validator.Add("kind", "must be one of "+strings.Join(assessment.Kinds, ", "))
		validator.Reject(w, shared.RequestID(r))
		return "", assessment.SheetKey{}, false
	}
	key := assessment.SheetKey{
		ClassroomID:    validator.ID("classroomId", q.Get("classroomId"), true),
		AcademicYearID: validator.ID("academicYearId", q.Get("academicYearId"), true),
		Semester:       validator.Semester("semester", q.Get("semester")),
	}
	switch kind {
	case assessment.KindGrades:
		key.SubjectID = validator.ID("subjectId", q.Get("subjectId"), true)
	case assessment.KindExtracurricular:
		key.ActivityID = validator.ID("activityId", q.Get("activityId"), true)
	case assessment.KindP5:
		key.ProjectID = validator.ID("projectId", q.Get("projectId"), true)
	}
	if validator.Reject(w, shared.RequestID(r)) {
		return "", assessment.SheetKey{}, false
	}
	return kind, key, true
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	kind, key, ok := sheetKey(w, r)
	if !ok {
		return
	}

	var (
		sheet any
		err   error
	)
	ctx := r.Context()
	switch kind {
	case assessment.KindGrades:
		sheet, err = h.Service.LoadGradeSheet(ctx, caps, key)
	case assessment.KindDevelopmental:
		sheet, err = h.Service.LoadDevelopmentalSheet(ctx, caps, key)
	case assessment.KindExtracurricular:
		sheet, err = h.Service.LoadExtracurricularSheet(ctx, caps, key)
	case assessment.KindP5:
		sheet, err = h.Service.LoadP5Sheet(ctx, caps, key)
	case assessment.KindAttendance:
		sheet, err = h.Service.LoadAttendanceSheet(ctx, caps, key)
	case assessment.KindNotes:
		sheet, err = h.Service.LoadNoteSheet(ctx, caps, key)
	}
	if err != nil {
		shared.WriteError(w, r, err, "sheet_load_failed")
		return
	}
	api.Success(w, sheet, shared.RequestID(r))
}

func decodeEntries[T any](w http.ResponseWriter, r *http.Request, raw json.RawMessage) ([]T, bool) {
	var entries []T
	if len(raw) == 0 {
		return entries, true
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		shared.FailValidation(w, shared.RequestID(r), []shared.ValidationIssue{{Field: "entries", Reason: "must be a list of sheet entries"}})
		return nil, false
	}
	return entries, true
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	kind, key, ok := sheetKey(w, r)
	if !ok {
		return
	}
	var payload saveRequest
	if !shared.DecodeJSON(w, r, &payload) {
		return
	}

	var (
		result assessment.SaveResult
		err    error
	)
	ctx := r.Context()
	switch kind {
	case assessment.KindGrades:
		entries, ok := decodeEntries[assessment.GradeEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveGradeSheet(ctx, caps, key, entries)
	case assessment.KindDevelopmental:
		entries, ok := decodeEntries[assessment.DevelopmentalEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveDevelopmentalSheet(ctx, caps, key, entries)
	case assessment.KindExtracurricular:
		entries, ok := decodeEntries[assessment.LevelEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveExtracurricularSheet(ctx, caps, key, entries)
	case assessment.KindP5:
		entries, ok := decodeEntries[assessment.LevelEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveP5Sheet(ctx, caps, key, entries)
	case assessment.KindAttendance:
		entries, ok := decodeEntries[assessment.AttendanceEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveAttendanceSheet(ctx, caps, key, entries)
	case assessment.KindNotes:
		entries, ok := decodeEntries[assessment.NoteEntry](w, r, payload.Entries)
		if !ok {
			return
		}
		result, err = h.Service.SaveNoteSheet(ctx, caps, key, entries)
	}
	if err != nil {
		shared.WriteError(w, r, err, "sheet_save_failed")
		return
	}

	if result.Saved > 0 {
		shared.RecordAudit(r, h.Audit, audit.Entry{
			Action:     audit.ActionAssessmentSave,
			EntityType: "classroom",
			EntityID:   strconv.FormatInt(key.ClassroomID, 10),
			After:      result,
		})
	}
	api.Success(w, result, shared.RequestID(r))
}
