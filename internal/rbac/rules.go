package rbac

const (
	PermGradeRun         = "grade:run"
	PermGradeManual      = "grade:manual"
	PermSubmissionCreate = "submission:create"
	PermSubmissionView   = "submission:view"
	PermUploadCreate     = "upload:create"
)

// Default policy. Services call the API with a "service" token.
var RolePermissions = map[string][]string{
	"student": {
		PermSubmissionCreate,
		PermUploadCreate,
	},
	"teacher": {
		PermGradeRun,
		PermGradeManual,
		PermSubmissionCreate,
		PermSubmissionView,
		PermUploadCreate,
	},
	"service": {
		"grade:*",
		"submission:*",
		PermUploadCreate,
	},
	"admin": {
		"*", // everything
	},
}
