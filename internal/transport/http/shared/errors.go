package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/assessment"
	"pkbm/internal/domain/reportcard"
	"pkbm/internal/platform/storage"
	"pkbm/internal/platform/validation"
	"pkbm/internal/transport/http/api"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{assessment.ErrForbidden, http.StatusForbidden, "forbidden", "outside of your teaching assignment"},
	{reportcard.ErrForbidden, http.StatusForbidden, "forbidden", "outside of your teaching assignment"},
	{academic.ErrAcademicYearNotFound, http.StatusNotFound, "not_found", "academic year not found"},
	{academic.ErrClassroomNotFound, http.StatusNotFound, "not_found", "classroom not found"},
	{academic.ErrStudentNotFound, http.StatusNotFound, "not_found", "student not found"},
	{academic.ErrSubjectNotFound, http.StatusNotFound, "not_found", "subject not found"},
	{academic.ErrLevelNotFound, http.StatusNotFound, "not_found", "level not found"},
	{academic.ErrActivityNotFound, http.StatusNotFound, "not_found", "extracurricular activity not found"},
	{academic.ErrProjectNotFound, http.StatusNotFound, "not_found", "p5 project not found"},
	{reportcard.ErrReportCardNotFound, http.StatusNotFound, "not_found", "report card not found"},
	{reportcard.ErrAlreadyFinal, http.StatusConflict, "already_final", "report card is already final"},
	{academic.ErrDuplicateObjective, http.StatusConflict, "duplicate_objective", "learning objective code already exists for subject"},
	{assessment.ErrYearMismatch, http.StatusUnprocessableEntity, "year_mismatch", "classroom does not belong to academic year"},
	{assessment.ErrPAUDClassroom, http.StatusUnprocessableEntity, "paud_classroom", "subject grades are not recorded for PAUD classrooms"},
	{assessment.ErrNotPAUDClassroom, http.StatusUnprocessableEntity, "not_paud_classroom", "developmental assessment is only available for PAUD classrooms"},
	{academic.ErrInvalidPhase, http.StatusBadRequest, "invalid_phase", "phase must be one of A, B, C, D, E, F"},
	{storage.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", "file too large"},
	{storage.ErrUnsupportedType, http.StatusUnsupportedMediaType, "unsupported_type", "unsupported file type"},
}

// WriteError maps a service error onto the response envelope. Unknown errors
// are logged and answered with a generic 500 carrying fallbackCode.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallbackCode string) {
	requestID := RequestID(r)
	if verr, ok := validation.As(err); ok {
		FailValidation(w, requestID, verr.Issues)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			api.Fail(w, m.status, m.code, m.message, requestID)
			return
		}
	}
	slog.Warn("request failed", "code", fallbackCode, "path", r.URL.Path, "requestId", requestID, "err", err)
	api.Fail(w, http.StatusInternalServerError, fallbackCode, "internal server error", requestID)
}
