package reportcardhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pkbm/internal/domain/audit"
	"pkbm/internal/domain/auth"
	"pkbm/internal/domain/reportcard"
	"pkbm/internal/platform/jobs"
	"pkbm/internal/transport/http/api"
	"pkbm/internal/transport/http/middleware"
	"pkbm/internal/transport/http/shared"
)

const (
	endpointGenerate = "reportcard.generate"
	endpointFinalize = "reportcard.finalize"
	runsLimit        = 50
)

// ReportCards is the report-card service behind these routes.
// *reportcard.Service satisfies it.
type ReportCards interface {
	Generate(ctx context.Context, caps auth.Capabilities, req reportcard.GenerateRequest) (reportcard.GenerateResult, error)
	List(ctx context.Context, caps auth.Capabilities, filter reportcard.ListFilter) ([]reportcard.ReportCard, error)
	Get(ctx context.Context, caps auth.Capabilities, id int64) (reportcard.ReportCard, error)
	Finalize(ctx context.Context, caps auth.Capabilities, id int64) (reportcard.ReportCard, error)
	Document(ctx context.Context, caps auth.Capabilities, id int64) (reportcard.Document, error)
}

type RunLister interface {
	List(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

// Idempotency replays the stored response of a repeated request carrying the
// same Idempotency-Key. *middleware.IdempotencyStore satisfies it.
type Idempotency interface {
	Check(ctx context.Context, userID int64, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID int64, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Service     ReportCards
	Runs        RunLister
	Idempotency Idempotency
	Audit       audit.Recorder
}

func NewHandler(service ReportCards, runs RunLister, idempotency Idempotency, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Runs: runs, Idempotency: idempotency, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/report-cards", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportCardGenerate)).Post("/generate", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.PermReportCardGenerate)).Get("/runs", h.handleListRuns)
		r.With(middleware.RequirePermission(auth.PermReportCardRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermReportCardRead)).Get("/{reportCardID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermReportCardRead)).Get("/{reportCardID}/pdf", h.handleDocument)
		r.With(middleware.RequirePermission(auth.PermReportCardFinalize)).Post("/{reportCardID}/finalize", h.handleFinalize)
	})
}

func reportCardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	validator := shared.NewValidator()
	id := validator.ID("reportCardID", chi.URLParam(r, "reportCardID"), true)
	if validator.Reject(w, shared.RequestID(r)) {
		return 0, false
	}
	return id, true
}

// replay answers a repeated request from the idempotency store. It reports
// whether the response has been written.
func (h *Handler) replay(w http.ResponseWriter, r *http.Request, userID int64, endpoint, key, hash string) bool {
	if h.Idempotency == nil || key == "" {
		return false
	}
	stored, found, err := h.Idempotency.Check(r.Context(), userID, endpoint, key, hash)
	if errors.Is(err, middleware.ErrIdempotencyConflict) {
		api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used for a different request", shared.RequestID(r))
		return true
	}
	if err != nil {
		slog.Warn("idempotency check failed", "endpoint", endpoint, "err", err)
		return false
	}
	if found {
		api.Success(w, stored, shared.RequestID(r))
		return true
	}
	return false
}

func (h *Handler) remember(r *http.Request, userID int64, endpoint, key, hash string, response any) {
	if h.Idempotency == nil || key == "" {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		slog.Warn("idempotency response marshal failed", "endpoint", endpoint, "err", err)
		return
	}
	if err := h.Idempotency.Save(r.Context(), userID, endpoint, key, hash, payload); err != nil {
		slog.Warn("idempotency save failed", "endpoint", endpoint, "err", err)
	}
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	var req reportcard.GenerateRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	canonical, _ := json.Marshal(req)
	hash := middleware.RequestHash(canonical)
	if h.replay(w, r, caps.UserID, endpointGenerate, key, hash) {
		return
	}

	result, err := h.Service.Generate(r.Context(), caps, req)
	if err != nil {
		shared.WriteError(w, r, err, "report_generate_failed")
		return
	}

	if len(result.Generated) > 0 {
		shared.RecordAudit(r, h.Audit, audit.Entry{
			Action:     audit.ActionReportGenerate,
			EntityType: "classroom",
			EntityID:   strconv.FormatInt(req.ClassroomID, 10),
			After: map[string]any{
				"academicYearId": result.AcademicYearID,
				"semester":       result.Semester,
				"generated":      len(result.Generated),
				"warnings":       len(result.Warnings),
			},
		})
	}
	h.remember(r, caps.UserID, endpointGenerate, key, hash, result)
	api.Success(w, result, shared.RequestID(r))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	validator := shared.NewValidator()
	filter := reportcard.ListFilter{
		ClassroomID:    validator.ID("classroomId", q.Get("classroomId"), false),
		AcademicYearID: validator.ID("academicYearId", q.Get("academicYearId"), false),
		Status:         q.Get("status"),
	}
	if raw := q.Get("semester"); raw != "" {
		filter.Semester = validator.Semester("semester", raw)
	}
	validator.Enum("status", filter.Status, []string{reportcard.StatusDraft, reportcard.StatusFinal}, "must be one of draft, final")
	if validator.Reject(w, shared.RequestID(r)) {
		return
	}
	page := shared.ParsePagination(r, 200, 1000)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	cards, err := h.Service.List(r.Context(), caps, filter)
	if err != nil {
		shared.WriteError(w, r, err, "report_list_failed")
		return
	}
	api.Success(w, cards, shared.RequestID(r))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	id, ok := reportCardID(w, r)
	if !ok {
		return
	}
	card, err := h.Service.Get(r.Context(), caps, id)
	if err != nil {
		shared.WriteError(w, r, err, "report_get_failed")
		return
	}
	api.Success(w, card, shared.RequestID(r))
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	id, ok := reportCardID(w, r)
	if !ok {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	hash := middleware.RequestHash([]byte(strconv.FormatInt(id, 10)))
	if h.replay(w, r, caps.UserID, endpointFinalize, key, hash) {
		return
	}

	card, err := h.Service.Finalize(r.Context(), caps, id)
	if err != nil {
		shared.WriteError(w, r, err, "report_finalize_failed")
		return
	}
	shared.RecordAudit(r, h.Audit, audit.Entry{
		Action:     audit.ActionReportFinalize,
		EntityType: "report_card",
		EntityID:   strconv.FormatInt(card.ID, 10),
		Before:     map[string]string{"status": reportcard.StatusDraft},
		After:      map[string]string{"status": card.Status},
	})
	h.remember(r, caps.UserID, endpointFinalize, key, hash, card)
	api.Success(w, card, shared.RequestID(r))
}

// handleDocument streams the PDF. ?inline=true asks the browser to display it
// instead of downloading.
func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	id, ok := reportCardID(w, r)
	if !ok {
		return
	}
	doc, err := h.Service.Document(r.Context(), caps, id)
	if err != nil {
		shared.WriteError(w, r, err, "report_render_failed")
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("inline") == "true" {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set("X-Report-Card-Status", doc.Card.Status)
	if doc.Archived {
		w.Header().Set("X-Report-Archived", "true")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Content); err != nil {
		slog.Warn("report card write failed", "report_card_id", id, "err", err)
	}
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	caps, ok := shared.Capabilities(w, r)
	if !ok {
		return
	}
	if h.Runs == nil {
		api.Success(w, []jobs.Run{}, shared.RequestID(r))
		return
	}
	runs, err := h.Runs.List(r.Context(), jobs.JobReportCardGenerate, runsLimit)
	if err != nil {
		shared.WriteError(w, r, err, "report_runs_failed")
		return
	}
	api.Success(w, visibleRuns(caps, runs), shared.RequestID(r))
}

// visibleRuns keeps the runs of classrooms a scoped user is assigned to.
// Runs that name no classroom, such as failed ones, are hidden from them.
func visibleRuns(caps auth.Capabilities, runs []jobs.Run) []jobs.Run {
	out := make([]jobs.Run, 0, len(runs))
	for _, run := range runs {
		if caps.Scoped() {
			var details struct {
				ClassroomID int64 `json:"classroomId"`
			}
			if err := json.Unmarshal(run.Details, &details); err != nil || details.ClassroomID == 0 {
				continue
			}
			if !caps.CanAccessClassroom(details.ClassroomID) {
				continue
			}
		}
		out = append(out, run)
	}
	return out
}
