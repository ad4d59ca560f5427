package assessment

import "pkbm/internal/domain/academic"

// SheetKey selects one input sheet. SubjectID, ActivityID and ProjectID are
// only read by the grades, extracurricular and p5 sheets respectively.
type SheetKey struct {
	ClassroomID    int64 `json:"classroomId"`
	AcademicYearID int64 `json:"academicYearId"`
	Semester       int   `json:"semester"`
	SubjectID      int64 `json:"subjectId,omitempty"`
	ActivityID     int64 `json:"activityId,omitempty"`
	ProjectID      int64 `json:"projectId,omitempty"`
}

type SheetHeader struct {
	Key       SheetKey           `json:"key"`
	Classroom academic.Classroom `json:"classroom"`
	ReadOnly  bool               `json:"readOnly"`
}

type GradeRow struct {
	StudentID       int64    `json:"studentId"`
	StudentName     string   `json:"studentName"`
	Grade           *float64 `json:"grade"`
	BestTPID        *int64   `json:"bestTpId"`
	ImprovementTPID *int64   `json:"improvementTpId"`
}

type GradeSheet struct {
	SheetHeader
	Subject    academic.Subject             `json:"subject"`
	Phase      string                       `json:"phase,omitempty"`
	Objectives []academic.LearningObjective `json:"objectives"`
	Rows       []GradeRow                   `json:"rows"`
}

type GradeEntry struct {
	StudentID       int64    `json:"studentId" validate:"required,gt=0"`
	Grade           *float64 `json:"grade" validate:"omitempty,gte=0,lte=100"`
	BestTPID        *int64   `json:"bestTpId" validate:"omitempty,gt=0"`
	ImprovementTPID *int64   `json:"improvementTpId" validate:"omitempty,gt=0"`
}

type DevelopmentalCell struct {
	AspectID    int64  `json:"aspectId"`
	Description string `json:"description"`
}

type DevelopmentalRow struct {
	StudentID   int64               `json:"studentId"`
	StudentName string              `json:"studentName"`
	Cells       []DevelopmentalCell `json:"cells"`
}

type DevelopmentalSheet struct {
	SheetHeader
	Aspects []academic.DevelopmentalAspect `json:"aspects"`
	Rows    []DevelopmentalRow             `json:"rows"`
}

type DevelopmentalEntry struct {
	StudentID   int64  `json:"studentId" validate:"required,gt=0"`
	AspectID    int64  `json:"aspectId" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=2000"`
}

// LevelRow is one student's achievement level for an extracurricular activity
// or a P5 project.
type LevelRow struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

type ExtracurricularSheet struct {
	SheetHeader
	Activity academic.ExtracurricularActivity `json:"activity"`
	Levels   []string                         `json:"levels"`
	Rows     []LevelRow                       `json:"rows"`
}

type P5Sheet struct {
	SheetHeader
	Project academic.P5Project `json:"project"`
	Levels  []string           `json:"levels"`
	Rows    []LevelRow         `json:"rows"`
}

type LevelEntry struct {
	StudentID   int64  `json:"studentId" validate:"required,gt=0"`
	Level       string `json:"level" validate:"required"`
	Description string `json:"description" validate:"max=1000"`
}

type AttendanceRow struct {
	StudentID   int64  `json:"studentId"`
	StudentName string `json:"studentName"`
	Sick        int    `json:"sick"`
	Permission  int    `json:"permission"`
	Absent      int    `json:"absent"`
}

type AttendanceSheet struct {
	SheetHeader
	Rows []AttendanceRow `json:"rows"`
}

type AttendanceEntry struct {
	StudentID  int64 `json:"studentId" validate:"required,gt=0"`
	Sick       int   `json:"sick" validate:"gte=0,lte=366"`
	Permission int   `json:"permission" validate:"gte=0,lte=366"`
	Absent     int   `json:"absent" validate:"gte=0,lte=366"`
}

type NoteRow struct {
	StudentID     int64  `json:"studentId"`
	StudentName   string `json:"studentName"`
	TeacherNote   string `json:"teacherNote"`
	CharacterNote string `json:"characterNote"`
}

type NoteSheet struct {
	SheetHeader
	Rows []NoteRow `json:"rows"`
}

type NoteEntry struct {
	StudentID     int64  `json:"studentId" validate:"required,gt=0"`
	TeacherNote   string `json:"teacherNote" validate:"max=2000"`
	CharacterNote string `json:"characterNote" validate:"max=2000"`
}

// SaveResult reports a sheet save. NoOp is set for read-only roles, whose
// saves are accepted and discarded.
type SaveResult struct {
	Kind  string   `json:"kind"`
	Key   SheetKey `json:"key"`
	Saved int      `json:"saved"`
	NoOp  bool     `json:"noOp"`
}

// Records as stored; used by the report-card aggregator as well as the sheets.

type GradeRecord struct {
	StudentID       int64
	SubjectID       int64
	Grade           *float64
	BestTPID        *int64
	ImprovementTPID *int64
}

type DevelopmentalRecord struct {
	StudentID   int64
	AspectID    int64
	Description string
}

type LevelRecord struct {
	StudentID   int64
	ItemID      int64
	Level       string
	Description string
}

type AttendanceRecord struct {
	StudentID  int64
	Sick       int
	Permission int
	Absent     int
}

type NoteRecord struct {
	StudentID     int64
	TeacherNote   string
	CharacterNote string
}
