package academic

const (
	StudentStatusActive = "active"

	SemesterOdd  = 1
	SemesterEven = 2
)

func ValidSemester(semester int) bool {
	return semester == SemesterOdd || semester == SemesterEven
}
