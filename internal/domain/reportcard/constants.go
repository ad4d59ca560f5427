package reportcard

const (
	StatusDraft = "draft"
	StatusFinal = "final"

	// SnapshotVersion is bumped whenever the snapshot layout changes.
	SnapshotVersion = 1

	TrackGraded = "graded"
	TrackPAUD   = "paud"
)

const (
	WarnNotEnrolled = "student is not enrolled in classroom"
	WarnFinal       = "report card is final and was not regenerated"
	WarnDuplicate   = "student requested more than once"
)
