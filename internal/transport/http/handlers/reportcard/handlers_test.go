package reportcardhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkbm/internal/domain/audit"
	"pkbm/internal/domain/auth"
	"pkbm/internal/domain/reportcard"
	"pkbm/internal/platform/jobs"
	"pkbm/internal/transport/http/middleware"
)

type fakeReportCards struct {
	generateCalls int
	generateReq   reportcard.GenerateRequest
	generateErr   error
	filter        reportcard.ListFilter
	card          reportcard.ReportCard
	finalizeErr   error
	doc           reportcard.Document
}

func (f *fakeReportCards) Generate(_ context.Context, _ auth.Capabilities, req reportcard.GenerateRequest) (reportcard.GenerateResult, error) {
	f.generateCalls++
	f.generateReq = req
	if f.generateErr != nil {
		return reportcard.GenerateResult{}, f.generateErr
	}
	return reportcard.GenerateResult{
		ClassroomID:    req.ClassroomID,
		AcademicYearID: req.AcademicYearID,
		Semester:       req.Semester,
		Track:          reportcard.TrackGraded,
		Generated:      []reportcard.GeneratedCard{{}},
		Warnings:       []reportcard.Warning{{StudentID: 9, Reason: reportcard.WarnFinal}},
	}, nil
}

func (f *fakeReportCards) List(_ context.Context, _ auth.Capabilities, filter reportcard.ListFilter) ([]reportcard.ReportCard, error) {
	f.filter = filter
	return []reportcard.ReportCard{f.card}, nil
}

func (f *fakeReportCards) Get(_ context.Context, _ auth.Capabilities, id int64) (reportcard.ReportCard, error) {
	if id != f.card.ID {
		return reportcard.ReportCard{}, reportcard.ErrReportCardNotFound
	}
	return f.card, nil
}

func (f *fakeReportCards) Finalize(_ context.Context, _ auth.Capabilities, id int64) (reportcard.ReportCard, error) {
	if f.finalizeErr != nil {
		return reportcard.ReportCard{}, f.finalizeErr
	}
	card := f.card
	card.ID = id
	card.Status = reportcard.StatusFinal
	return card, nil
}

func (f *fakeReportCards) Document(_ context.Context, _ auth.Capabilities, id int64) (reportcard.Document, error) {
	if id != f.card.ID {
		return reportcard.Document{}, reportcard.ErrReportCardNotFound
	}
	return f.doc, nil
}

type fakeRuns struct {
	jobType string
	runs    []jobs.Run
}

func (f *fakeRuns) List(_ context.Context, jobType string, _ int) ([]jobs.Run, error) {
	f.jobType = jobType
	return f.runs, nil
}

type memoryIdempotency struct {
	hashes    map[string]string
	responses map[string]json.RawMessage
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{hashes: map[string]string{}, responses: map[string]json.RawMessage{}}
}

func (m *memoryIdempotency) Check(_ context.Context, _ int64, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	id := endpoint + "|" + key
	hash, ok := m.hashes[id]
	if !ok {
		return nil, false, nil
	}
	if hash != requestHash {
		return nil, false, middleware.ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *memoryIdempotency) Save(_ context.Context, _ int64, endpoint, key, requestHash string, response json.RawMessage) error {
	id := endpoint + "|" + key
	m.hashes[id] = requestHash
	m.responses[id] = response
	return nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func serve(h *Handler, role string, req *http.Request, assignments ...auth.Assignment) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	user := auth.UserContext{UserID: 1, RoleName: role}
	caps := auth.NewCapabilities(user, 4, auth.RolePermissions[role], assignments)
	req = req.WithContext(middleware.WithCapabilities(req.Context(), user, caps))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Details struct {
			Fields []struct {
				Field string `json:"field"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func generateRequest(body string, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/report-cards/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestGenerateRecordsAudit(t *testing.T) {
	service := &fakeReportCards{}
	recorder := &recordingAudit{}
	h := NewHandler(service, nil, nil, recorder)

	rec := serve(h, auth.RoleAdmin, generateRequest(`{"classroomId":10,"academicYearId":1,"semester":2}`, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, reportcard.GenerateRequest{ClassroomID: 10, AcademicYearID: 1, Semester: 2}, service.generateReq)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, audit.ActionReportGenerate, recorder.entries[0].Action)
	assert.Equal(t, "10", recorder.entries[0].EntityID)

	var result reportcard.GenerateResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, reportcard.WarnFinal, result.Warnings[0].Reason)
}

func TestGenerateReplaysIdempotentRequest(t *testing.T) {
	service := &fakeReportCards{}
	h := NewHandler(service, nil, newMemoryIdempotency(), nil)
	body := `{"classroomId":10,"academicYearId":1,"semester":1}`

	first := serve(h, auth.RoleAdmin, generateRequest(body, "batch-1"))
	require.Equal(t, http.StatusOK, first.Code)
	second := serve(h, auth.RoleAdmin, generateRequest(body, "batch-1"))
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, service.generateCalls)
	assert.JSONEq(t, string(decode(t, first).Data), string(decode(t, second).Data))

	conflict := serve(h, auth.RoleAdmin, generateRequest(`{"classroomId":10,"academicYearId":1,"semester":2}`, "batch-1"))
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, 1, service.generateCalls)
}

func TestGenerateMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", reportcard.ErrForbidden, http.StatusForbidden},
		{"not found", reportcard.ErrReportCardNotFound, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &recordingAudit{}
			h := NewHandler(&fakeReportCards{generateErr: tc.err}, nil, nil, recorder)
			rec := serve(h, auth.RoleTeacher, generateRequest(`{"classroomId":10,"academicYearId":1,"semester":1}`, ""))
			assert.Equal(t, tc.status, rec.Code)
			assert.Empty(t, recorder.entries)
		})
	}
}

func TestGenerateRequiresPermission(t *testing.T) {
	service := &fakeReportCards{}
	rec := serve(NewHandler(service, nil, nil, nil), auth.RoleFoundation, generateRequest(`{"classroomId":10,"academicYearId":1,"semester":1}`, ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, service.generateCalls)
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	rec := serve(NewHandler(&fakeReportCards{}, nil, nil, nil), auth.RoleAdmin, generateRequest(`{"classroomId":`, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListParsesFilter(t *testing.T) {
	service := &fakeReportCards{card: reportcard.ReportCard{ID: 3, Status: reportcard.StatusDraft}}
	rec := serve(NewHandler(service, nil, nil, nil), auth.RolePrincipal,
		httptest.NewRequest(http.MethodGet, "/report-cards?classroomId=10&academicYearId=1&semester=2&status=final&limit=20&offset=40", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reportcard.ListFilter{ClassroomID: 10, AcademicYearID: 1, Semester: 2, Status: reportcard.StatusFinal, Limit: 20, Offset: 40}, service.filter)
}

func TestListRejectsBadFilter(t *testing.T) {
	tests := []struct {
		query string
		field string
	}{
		{"/report-cards?status=archived", "status"},
		{"/report-cards?semester=3", "semester"},
		{"/report-cards?classroomId=abc", "classroomId"},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			rec := serve(NewHandler(&fakeReportCards{}, nil, nil, nil), auth.RoleAdmin, httptest.NewRequest(http.MethodGet, tc.query, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			require.NotEmpty(t, env.Error.Details.Fields)
			assert.Equal(t, tc.field, env.Error.Details.Fields[0].Field)
		})
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	service := &fakeReportCards{card: reportcard.ReportCard{ID: 3}}
	rec := serve(NewHandler(service, nil, nil, nil), auth.RoleAdmin, httptest.NewRequest(http.MethodGet, "/report-cards/4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(NewHandler(service, nil, nil, nil), auth.RoleAdmin, httptest.NewRequest(http.MethodGet, "/report-cards/zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalize(t *testing.T) {
	service := &fakeReportCards{card: reportcard.ReportCard{ID: 3, Status: reportcard.StatusDraft}}
	recorder := &recordingAudit{}
	h := NewHandler(service, nil, newMemoryIdempotency(), recorder)

	req := httptest.NewRequest(http.MethodPost, "/report-cards/3/finalize", nil)
	req.Header.Set("Idempotency-Key", "final-3")
	rec := serve(h, auth.RoleAdmin, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var card reportcard.ReportCard
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &card))
	assert.Equal(t, reportcard.StatusFinal, card.Status)
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, audit.ActionReportFinalize, recorder.entries[0].Action)

	// A retry with the same key replays even though the card is final now.
	service.finalizeErr = reportcard.ErrAlreadyFinal
	retry := httptest.NewRequest(http.MethodPost, "/report-cards/3/finalize", nil)
	retry.Header.Set("Idempotency-Key", "final-3")
	rec = serve(h, auth.RoleAdmin, retry)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, recorder.entries, 1)
}

func TestFinalizeConflictsWhenFinal(t *testing.T) {
	service := &fakeReportCards{finalizeErr: reportcard.ErrAlreadyFinal}
	rec := serve(NewHandler(service, nil, nil, nil), auth.RoleAdmin, httptest.NewRequest(http.MethodPost, "/report-cards/3/finalize", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_final", decode(t, rec).Error.Code)
}

func TestFinalizeRequiresPermission(t *testing.T) {
	rec := serve(NewHandler(&fakeReportCards{}, nil, nil, nil), auth.RoleTeacher, httptest.NewRequest(http.MethodPost, "/report-cards/3/finalize", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDocumentStreamsPDF(t *testing.T) {
	content := []byte("%PDF-1.3 test")
	service := &fakeReportCards{
		card: reportcard.ReportCard{ID: 3},
		doc: reportcard.Document{
			FileName: "rapor-7-1-semester-1.pdf",
			Content:  content,
			Card:     reportcard.ReportCard{ID: 3, Status: reportcard.StatusFinal},
			Archived: true,
		},
	}
	h := NewHandler(service, nil, nil, nil)

	rec := serve(h, auth.RoleFoundation, httptest.NewRequest(http.MethodGet, "/report-cards/3/pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rapor-7-1-semester-1.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "true", rec.Header().Get("X-Report-Archived"))
	assert.Equal(t, content, rec.Body.Bytes())

	rec = serve(h, auth.RoleFoundation, httptest.NewRequest(http.MethodGet, "/report-cards/3/pdf?inline=true", nil))
	assert.Equal(t, `inline; filename="rapor-7-1-semester-1.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestListRuns(t *testing.T) {
	runs := &fakeRuns{runs: []jobs.Run{{ID: 1, JobType: jobs.JobReportCardGenerate, Status: "completed", StartedAt: time.Now()}}}
	h := NewHandler(&fakeReportCards{}, runs, nil, nil)

	rec := serve(h, auth.RoleAdmin, httptest.NewRequest(http.MethodGet, "/report-cards/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, jobs.JobReportCardGenerate, runs.jobType)

	var got []jobs.Run
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Len(t, got, 1)
}

func TestListRunsScopedToAssignedClassrooms(t *testing.T) {
	runs := &fakeRuns{runs: []jobs.Run{
		{ID: 1, JobType: jobs.JobReportCardGenerate, Status: jobs.StatusCompleted, Details: json.RawMessage(`{"classroomId":10,"warnings":[]}`)},
		{ID: 2, JobType: jobs.JobReportCardGenerate, Status: jobs.StatusCompleted, Details: json.RawMessage(`{"classroomId":20,"warnings":[{"studentId":7}]}`)},
		{ID: 3, JobType: jobs.JobReportCardGenerate, Status: jobs.StatusFailed, Details: json.RawMessage(`{"error":"boom"}`)},
	}}
	h := NewHandler(&fakeReportCards{}, runs, nil, nil)

	rec := serve(h, auth.RoleTeacher, httptest.NewRequest(http.MethodGet, "/report-cards/runs", nil), auth.Assignment{ClassroomID: 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []jobs.Run
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	rec = serve(h, auth.RoleAdmin, httptest.NewRequest(http.MethodGet, "/report-cards/runs", nil))
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Len(t, got, 3)
}
