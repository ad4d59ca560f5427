package reportcard

import "context"

type StoreAPI interface {
	FinalStudentIDs(ctx context.Context, classroomID, academicYearID int64, semester int, studentIDs []int64) (map[int64]bool, error)
	WithTx(ctx context.Context, fn func(w Writer) error) error
	List(ctx context.Context, filter ListFilter) ([]ReportCard, error)
	Get(ctx context.Context, id int64) (ReportCard, error)
	Finalize(ctx context.Context, id int64) (ReportCard, error)
}

type Writer interface {
	// Upsert writes card keyed by (student, classroom, academic year, semester).
	// written is false when a final card already occupies the key.
	Upsert(ctx context.Context, card ReportCard) (id int64, written bool, err error)
}
