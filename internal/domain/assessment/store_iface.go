package assessment

import "context"

// Reader loads stored assessment rows for a set of students. A zero item id
// (subject, activity, project) selects every item.
type Reader interface {
	Grades(ctx context.Context, classroomID, academicYearID int64, semester int, subjectID int64, studentIDs []int64) ([]GradeRecord, error)
	Developmental(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]DevelopmentalRecord, error)
	Extracurricular(ctx context.Context, academicYearID int64, semester int, activityID int64, studentIDs []int64) ([]LevelRecord, error)
	P5(ctx context.Context, academicYearID int64, semester int, projectID int64, studentIDs []int64) ([]LevelRecord, error)
	Attendance(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]AttendanceRecord, error)
	Notes(ctx context.Context, academicYearID int64, semester int, studentIDs []int64) ([]NoteRecord, error)
}

// Writer upserts one row keyed by its natural key.
type Writer interface {
	UpsertGrade(ctx context.Context, key SheetKey, entry GradeEntry) error
	UpsertDevelopmental(ctx context.Context, key SheetKey, entry DevelopmentalEntry) error
	UpsertExtracurricular(ctx context.Context, key SheetKey, entry LevelEntry) error
	UpsertP5(ctx context.Context, key SheetKey, entry LevelEntry) error
	UpsertAttendance(ctx context.Context, key SheetKey, entry AttendanceEntry) error
	UpsertNote(ctx context.Context, key SheetKey, entry NoteEntry) error
}

type StoreAPI interface {
	Reader
	// WithTx runs fn in one transaction; any error rolls back every write.
	WithTx(ctx context.Context, fn func(w Writer) error) error
}
