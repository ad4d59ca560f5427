package auth

const (
	RoleAdmin      = "admin"
	RoleTeacher    = "guru"
	RolePrincipal  = "kepala_sekolah"
	RoleFoundation = "yayasan"
)

const (
	PermAcademicRead       = "academic.read"
	PermAcademicWrite      = "academic.write"
	PermAssessmentRead     = "assessment.read"
	PermAssessmentWrite    = "assessment.write"
	PermReportCardRead     = "reportcard.read"
	PermReportCardGenerate = "reportcard.generate"
	PermReportCardFinalize = "reportcard.finalize"
	PermMediaWrite         = "media.write"
	PermAuditRead          = "audit.read"
)

var DefaultPermissions = []string{
	PermAcademicRead,
	PermAcademicWrite,
	PermAssessmentRead,
	PermAssessmentWrite,
	PermReportCardRead,
	PermReportCardGenerate,
	PermReportCardFinalize,
	PermMediaWrite,
	PermAuditRead,
}

// RolePermissions is the seed mapping. Teachers hold write permissions but are
// further narrowed to their assignments by Capabilities.
var RolePermissions = map[string][]string{
	RoleAdmin: DefaultPermissions,
	RoleTeacher: {
		PermAcademicRead,
		PermAssessmentRead,
		PermAssessmentWrite,
		PermReportCardRead,
		PermReportCardGenerate,
	},
	RolePrincipal: {
		PermAcademicRead,
		PermAssessmentRead,
		PermReportCardRead,
		PermAuditRead,
	},
	RoleFoundation: {
		PermAcademicRead,
		PermAssessmentRead,
		PermReportCardRead,
	},
}

// scopedRoles are limited to the classrooms and subjects they are assigned to.
var scopedRoles = map[string]bool{
	RoleTeacher: true,
}
