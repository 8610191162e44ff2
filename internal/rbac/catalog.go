package rbac

// Permission names used by HTTP gates across the hub.
const (
	PermDirectoryView = "directory.view"
	PermDirectoryEdit = "directory.edit"

	PermCPDView = "cpd.view"
	PermCPDEdit = "cpd.edit"

	PermNewsletterView   = "newsletter.view"
	PermNewsletterSubmit = "newsletter.submit"
	PermNewsletterReview = "newsletter.review"

	PermMLOView        = "mlo.view"
	PermMLOEdit        = "mlo.edit"
	PermMLOTargetsView = "mlo_targets.view"
	PermMLOTargetsEdit = "mlo_targets.edit"

	PermReportsView = "reports.view"

	PermAdminUsersView       = "admin_users.view"
	PermAdminUsersEdit       = "admin_users.edit"
	PermAdminRolesView       = "admin_roles.view"
	PermAdminRolesEdit       = "admin_roles.edit"
	PermAdminPermissionsView = "admin_permissions.view"
)

type catalogEntry struct {
	resource    string
	action      string
	description string
}

// catalogEntries is the authoritative permission catalog, seeded at startup.
var catalogEntries = []catalogEntry{
	{"directory", "view", "Browse the staff phone directory"},
	{"directory", "edit", "Manage directory entries"},
	{"cpd", "view", "View CPD activity records"},
	{"cpd", "edit", "Log and edit CPD activities"},
	{"newsletter", "view", "Read newsletter submissions"},
	{"newsletter", "submit", "Submit newsletter items"},
	{"newsletter", "review", "Approve or reject newsletter items"},
	{"mlo", "view", "View MLO visits and communications"},
	{"mlo", "edit", "Record MLO visits and communications"},
	{"mlo_targets", "view", "View modality targets"},
	{"mlo_targets", "edit", "Create and update modality targets"},
	{"reports", "view", "View executive dashboards"},
	{"admin_users", "view", "View users and their effective permissions"},
	{"admin_users", "edit", "Assign roles and permission overrides"},
	{"admin_roles", "view", "View roles"},
	{"admin_roles", "edit", "Manage roles and their rules"},
	{"admin_permissions", "view", "View the permission catalog"},
}
