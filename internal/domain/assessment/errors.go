package assessment

import (
	"errors"

	"pkbm/internal/platform/validation"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrNotPAUDClassroom = errors.New("developmental assessment is only available for PAUD classrooms")
	ErrPAUDClassroom    = errors.New("subject grades are not recorded for PAUD classrooms")
	ErrYearMismatch     = errors.New("classroom does not belong to academic year")
)

type Issue = validation.Issue

// ValidationError rejects a whole save. Nothing is written when it is returned.
type ValidationError = validation.Error

func IsValidation(err error) (*ValidationError, bool) {
	return validation.As(err)
}
