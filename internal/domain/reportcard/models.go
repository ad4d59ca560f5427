package reportcard

import "time"

type ReportCard struct {
	ID               int64      `json:"id"`
	StudentID        int64      `json:"studentId"`
	StudentName      string     `json:"studentName,omitempty"`
	ClassroomID      int64      `json:"classroomId"`
	ClassroomName    string     `json:"classroomName,omitempty"`
	AcademicYearID   int64      `json:"academicYearId"`
	AcademicYearName string     `json:"academicYearName,omitempty"`
	Semester         int        `json:"semester"`
	Snapshot         Snapshot   `json:"snapshot"`
	SnapshotVersion  int        `json:"snapshotVersion"`
	TeacherNote      string     `json:"teacherNote"`
	CharacterNote    string     `json:"characterNote"`
	Status           string     `json:"status"`
	GeneratedBy      int64      `json:"generatedBy,omitempty"`
	GeneratedAt      time.Time  `json:"generatedAt"`
	FinalizedAt      *time.Time `json:"finalizedAt,omitempty"`
}

// GenerateRequest selects the students to aggregate. An empty StudentIDs
// selects every enrolled student.
type GenerateRequest struct {
	ClassroomID    int64   `json:"classroomId" validate:"required,gt=0"`
	AcademicYearID int64   `json:"academicYearId" validate:"required,gt=0"`
	Semester       int     `json:"semester" validate:"required,oneof=1 2"`
	StudentIDs     []int64 `json:"studentIds" validate:"omitempty,dive,gt=0"`
}

type Warning struct {
	StudentID int64  `json:"studentId"`
	Reason    string `json:"reason"`
}

type GeneratedCard struct {
	ReportCardID int64  `json:"reportCardId"`
	StudentID    int64  `json:"studentId"`
	StudentName  string `json:"studentName"`
}

type GenerateResult struct {
	ClassroomID    int64           `json:"classroomId"`
	AcademicYearID int64           `json:"academicYearId"`
	Semester       int             `json:"semester"`
	Track          string          `json:"track"`
	Phase          string          `json:"phase,omitempty"`
	Generated      []GeneratedCard `json:"generated"`
	Warnings       []Warning       `json:"warnings"`
}

type ListFilter struct {
	ClassroomID    int64
	AcademicYearID int64
	Semester       int
	Status         string
	// ClassroomIDs restricts results to a scope; nil means unrestricted.
	ClassroomIDs []int64
	Limit        int
	Offset       int
}
