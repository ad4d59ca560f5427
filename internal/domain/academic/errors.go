package academic

import "errors"

var (
	ErrAcademicYearNotFound = errors.New("academic year not found")
	ErrClassroomNotFound    = errors.New("classroom not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrLevelNotFound        = errors.New("level not found")
	ErrActivityNotFound     = errors.New("extracurricular activity not found")
	ErrProjectNotFound      = errors.New("p5 project not found")
	ErrDuplicateObjective   = errors.New("learning objective code already exists for subject")
	ErrInvalidPhase         = errors.New("invalid phase")
)
