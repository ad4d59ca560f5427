package reportcard

import "errors"

var (
	ErrForbidden          = errors.New("forbidden")
	ErrReportCardNotFound = errors.New("report card not found")
	ErrAlreadyFinal       = errors.New("report card is already final")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)
