package academic

import "context"

type StoreAPI interface {
	ListAcademicYears(ctx context.Context) ([]AcademicYear, error)
	GetAcademicYear(ctx context.Context, id int64) (AcademicYear, error)
	GetClassroom(ctx context.Context, id int64) (Classroom, error)
	ListClassrooms(ctx context.Context, academicYearID int64, ids []int64) ([]Classroom, error)
	EnrolledStudents(ctx context.Context, classroomID int64) ([]Student, error)
	GetStudent(ctx context.Context, id int64) (Student, error)
	UpdateStudentPhoto(ctx context.Context, studentID int64, path string) (string, error)
	ListSubjects(ctx context.Context) ([]Subject, error)
	GetSubject(ctx context.Context, id int64) (Subject, error)
	ObjectivesBySubject(ctx context.Context, subjectID int64) ([]LearningObjective, error)
	ObjectivesByIDs(ctx context.Context, ids []int64) ([]LearningObjective, error)
	CreateObjective(ctx context.Context, obj LearningObjective) (int64, error)
	GetLevel(ctx context.Context, id int64) (Level, error)
	SetLevelPhase(ctx context.Context, levelID int64, phase string) error
	ListDevelopmentalAspects(ctx context.Context) ([]DevelopmentalAspect, error)
	ListExtracurricularActivities(ctx context.Context) ([]ExtracurricularActivity, error)
	ListP5Projects(ctx context.Context, academicYearID int64) ([]P5Project, error)
}
