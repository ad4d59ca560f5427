package assessment

import (
	"fmt"

	"pkbm/internal/domain/academic"
	"pkbm/internal/platform/validation"
)

func checkKey(key SheetKey) error {
	var is validation.Issues
	if key.ClassroomID <= 0 {
		is.Add("classroomId", "is required")
	}
	if key.AcademicYearID <= 0 {
		is.Add("academicYearId", "is required")
	}
	if !academic.ValidSemester(key.Semester) {
		is.Add("semester", "must be 1 or 2")
	}
	return is.Err()
}

func requireItem(field string, id int64) error {
	if id > 0 {
		return nil
	}
	return validation.Field(field, "is required")
}

// studentChecker validates that each student in a save is enrolled and appears
// at most once.
type studentChecker struct {
	enrolled map[int64]bool
	seen     map[any]bool
}

func newStudentChecker(students []academic.Student) *studentChecker {
	enrolled := make(map[int64]bool, len(students))
	for _, st := range students {
		enrolled[st.ID] = true
	}
	return &studentChecker{enrolled: enrolled, seen: map[any]bool{}}
}

// check reports problems with studentID; dedupe distinguishes entries that may
// legitimately repeat a student, such as one per developmental aspect.
func (c *studentChecker) check(is *validation.Issues, prefix string, studentID int64, dedupe any) {
	if studentID <= 0 {
		return
	}
	if !c.enrolled[studentID] {
		is.Add(prefix+".studentId", "student is not enrolled in classroom")
		return
	}
	if c.seen[dedupe] {
		is.Add(prefix+".studentId", "duplicate entry")
		return
	}
	c.seen[dedupe] = true
}

func entryPrefix(i int) string {
	return fmt.Sprintf("entries[%d]", i)
}
