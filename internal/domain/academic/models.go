package academic

type AcademicYear struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// Level is a grade level. Grade is zero for non-graded levels; Phase, when set,
// overrides the grade-derived phase.
type Level struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Grade  int    `json:"grade"`
	IsPAUD bool   `json:"isPaud"`
	Phase  string `json:"phase,omitempty"`
}

type Classroom struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	AcademicYearID      int64  `json:"academicYearId"`
	AcademicYearName    string `json:"academicYearName"`
	Level               Level  `json:"level"`
	HomeroomTeacherID   int64  `json:"homeroomTeacherId,omitempty"`
	HomeroomTeacherName string `json:"homeroomTeacherName,omitempty"`
	HomeroomTeacherNIP  string `json:"homeroomTeacherNip,omitempty"`
}

type Student struct {
	ID          int64  `json:"id"`
	ClassroomID int64  `json:"classroomId"`
	NIS         string `json:"nis"`
	NISN        string `json:"nisn"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Status      string `json:"status"`
	PhotoPath   string `json:"photoPath,omitempty"`
}

type Subject struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	SortOrder int    `json:"sortOrder"`
}

// LearningObjective is a TP statement. An empty Phase applies to every phase.
type LearningObjective struct {
	ID          int64  `json:"id"`
	SubjectID   int64  `json:"subjectId"`
	Phase       string `json:"phase,omitempty"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type DevelopmentalAspect struct {
	ID         int64  `json:"id"`
	AspectType string `json:"aspectType"`
	Name       string `json:"name"`
	SortOrder  int    `json:"sortOrder"`
}

type ExtracurricularActivity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type P5Project struct {
	ID             int64  `json:"id"`
	AcademicYearID int64  `json:"academicYearId"`
	Theme          string `json:"theme"`
	Name           string `json:"name"`
	Description    string `json:"description"`
}
