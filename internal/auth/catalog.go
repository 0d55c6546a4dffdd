package auth

// Permission names of the built-in catalog.
const (
	PermViewEmployees       = "view_employees"
	PermCreateEmployees     = "create_employees"
	PermEditEmployees       = "edit_employees"
	PermDeleteEmployees     = "delete_employees"
	PermManageEmployeeRoles = "manage_employee_roles"

	PermViewAttendance    = "view_attendance"
	PermManageAttendance  = "manage_attendance"
	PermApproveAttendance = "approve_attendance"
	PermViewAllAttendance = "view_all_attendance"

	PermViewLeaves         = "view_leaves"
	PermCreateLeaveRequest = "create_leave_request"
	PermApproveLeaves      = "approve_leaves"
	PermCancelLeaves       = "cancel_leaves"
	PermViewAllLeaves      = "view_all_leaves"

	PermViewPayroll    = "view_payroll"
	PermManagePayroll  = "manage_payroll"
	PermProcessPayroll = "process_payroll"
	PermViewAllPayroll = "view_all_payroll"

	PermViewPerformance          = "view_performance"
	PermCreatePerformanceReview  = "create_performance_review"
	PermConductPerformanceReview = "conduct_performance_review"
	PermViewAllPerformance       = "view_all_performance"

	PermViewRecruitment    = "view_recruitment"
	PermManageJobPostings  = "manage_job_postings"
	PermManageApplications = "manage_applications"
	PermConductInterviews  = "conduct_interviews"

	PermViewTraining          = "view_training"
	PermCreateTraining        = "create_training"
	PermManageTraining        = "manage_training"
	PermTrackTrainingProgress = "track_training_progress"

	PermViewBenefits     = "view_benefits"
	PermManageBenefits   = "manage_benefits"
	PermEnrollInBenefits = "enroll_in_benefits"

	PermViewDocuments   = "view_documents"
	PermUploadDocuments = "upload_documents"
	PermManageDocuments = "manage_documents"
	PermDeleteDocuments = "delete_documents"

	PermViewOrganizationSettings   = "view_organization_settings"
	PermManageOrganizationSettings = "manage_organization_settings"
	PermViewRolesPermissions       = "view_roles_permissions"
	PermManageRolesPermissions     = "manage_roles_permissions"
	PermViewAuditLogs              = "view_audit_logs"
	PermManageDepartments          = "manage_departments"

	PermViewReports         = "view_reports"
	PermCreateCustomReports = "create_custom_reports"
	PermExportData          = "export_data"

	PermAPIAccess = "api_access"
	PermAPIAdmin  = "api_admin"
)

// BuiltinPermissions is the permission catalog seeded by EnsureCatalog.
var BuiltinPermissions = []Permission{
	builtin(PermViewEmployees, "View Employees", "employees", "read", "View employee information"),
	builtin(PermCreateEmployees, "Create Employees", "employees", "create", "Create new employees"),
	builtin(PermEditEmployees, "Edit Employees", "employees", "update", "Edit employee information"),
	builtin(PermDeleteEmployees, "Delete Employees", "employees", "delete", "Delete employees"),
	builtin(PermManageEmployeeRoles, "Manage Employee Roles", "employees", "manage", "Assign roles to employees"),
	builtin(PermViewAttendance, "View Attendance", "attendance", "read", "View attendance records"),
	builtin(PermManageAttendance, "Manage Attendance", "attendance", "manage", "Create and edit attendance records"),
	builtin(PermApproveAttendance, "Approve Attendance", "attendance", "approve", "Approve attendance modifications"),
	builtin(PermViewAllAttendance, "View All Attendance", "attendance", "read", "View all employees attendance"),
	builtin(PermViewLeaves, "View Leaves", "leaves", "read", "View leave requests"),
	builtin(PermCreateLeaveRequest, "Create Leave Request", "leaves", "create", "Create leave requests"),
	builtin(PermApproveLeaves, "Approve Leaves", "leaves", "approve", "Approve or reject leave requests"),
	builtin(PermCancelLeaves, "Cancel Leaves", "leaves", "delete", "Cancel leave requests"),
	builtin(PermViewAllLeaves, "View All Leaves", "leaves", "read", "View all employees leave requests"),
	builtin(PermViewPayroll, "View Payroll", "payroll", "read", "View payroll information"),
	builtin(PermManagePayroll, "Manage Payroll", "payroll", "manage", "Create and edit payroll records"),
	builtin(PermProcessPayroll, "Process Payroll", "payroll", "execute", "Process payroll payments"),
	builtin(PermViewAllPayroll, "View All Payroll", "payroll", "read", "View all employees payroll"),
	builtin(PermViewPerformance, "View Performance", "performance", "read", "View performance reviews"),
	builtin(PermCreatePerformanceReview, "Create Performance Review", "performance", "create", "Create performance reviews"),
	builtin(PermConductPerformanceReview, "Conduct Performance Review", "performance", "execute", "Conduct performance reviews"),
	builtin(PermViewAllPerformance, "View All Performance", "performance", "read", "View all performance reviews"),
	builtin(PermViewRecruitment, "View Recruitment", "recruitment", "read", "View job postings and applications"),
	builtin(PermManageJobPostings, "Manage Job Postings", "recruitment", "manage", "Create and edit job postings"),
	builtin(PermManageApplications, "Manage Applications", "recruitment", "manage", "Review and process applications"),
	builtin(PermConductInterviews, "Conduct Interviews", "recruitment", "execute", "Schedule and conduct interviews"),
	builtin(PermViewTraining, "View Training", "training", "read", "View training programs and records"),
	builtin(PermCreateTraining, "Create Training", "training", "create", "Create training programs"),
	builtin(PermManageTraining, "Manage Training", "training", "manage", "Manage training programs and enrollments"),
	builtin(PermTrackTrainingProgress, "Track Training Progress", "training", "read", "Track employee training progress"),
	builtin(PermViewBenefits, "View Benefits", "benefits", "read", "View benefits information"),
	builtin(PermManageBenefits, "Manage Benefits", "benefits", "manage", "Manage employee benefits"),
	builtin(PermEnrollInBenefits, "Enroll in Benefits", "benefits", "create", "Enroll in benefit programs"),
	builtin(PermViewDocuments, "View Documents", "documents", "read", "View documents"),
	builtin(PermUploadDocuments, "Upload Documents", "documents", "create", "Upload documents"),
	builtin(PermManageDocuments, "Manage Documents", "documents", "manage", "Manage all documents"),
	builtin(PermDeleteDocuments, "Delete Documents", "documents", "delete", "Delete documents"),
	builtin(PermViewOrganizationSettings, "View Organization Settings", "admin", "read", "View organization settings"),
	builtin(PermManageOrganizationSettings, "Manage Organization Settings", "admin", "manage", "Modify organization settings"),
	builtin(PermViewRolesPermissions, "View Roles & Permissions", "admin", "read", "View roles and permissions"),
	builtin(PermManageRolesPermissions, "Manage Roles & Permissions", "admin", "manage", "Manage roles and permissions"),
	builtin(PermViewAuditLogs, "View Audit Logs", "admin", "read", "View system audit logs"),
	builtin(PermManageDepartments, "Manage Departments", "admin", "manage", "Manage organizational departments"),
	builtin(PermViewReports, "View Reports", "reports", "read", "View standard reports"),
	builtin(PermCreateCustomReports, "Create Custom Reports", "reports", "create", "Create custom reports"),
	builtin(PermExportData, "Export Data", "reports", "export", "Export data and reports"),
	builtin(PermAPIAccess, "API Access", "api", "read", "Access API endpoints"),
	builtin(PermAPIAdmin, "API Admin", "api", "manage", "Administrative API access"),
}

func builtin(name, display, module, action, description string) Permission {
	return Permission{Name: name, DisplayName: display, Module: module, Action: action, Description: description}
}

// RoleTemplate describes a default system role created for every organization.
type RoleTemplate struct {
	Name        string
	DisplayName string
	Description string
	// AllPermissions grants the whole catalog, including permissions added later by EnsureCatalog.
	AllPermissions bool
	Permissions    []string
}

// Names of the default system roles.
const (
	RoleSuperAdmin        = "super_admin"
	RoleHRAdmin           = "hr_admin"
	RoleManager           = "manager"
	RoleHRSpecialist      = "hr_specialist"
	RoleEmployee          = "employee"
	RoleRecruiter         = "recruiter"
	RolePayrollSpecialist = "payroll_specialist"
)

// DefaultRoles are the system roles InitializeOrganization creates.
var DefaultRoles = []RoleTemplate{
	{
		Name:           RoleSuperAdmin,
		DisplayName:    "Super Admin",
		Description:    "Full system access with all permissions",
		AllPermissions: true,
	},
	{
		Name:        RoleHRAdmin,
		DisplayName: "HR Admin",
		Description: "Full HR management access",
		Permissions: []string{
			PermViewEmployees, PermCreateEmployees, PermEditEmployees, PermDeleteEmployees,
			PermViewAttendance, PermManageAttendance, PermApproveAttendance, PermViewAllAttendance,
			PermViewLeaves, PermApproveLeaves, PermCancelLeaves, PermViewAllLeaves, PermViewPayroll,
			PermManagePayroll, PermProcessPayroll, PermViewAllPayroll, PermViewPerformance,
			PermCreatePerformanceReview, PermViewAllPerformance, PermViewRecruitment, PermManageJobPostings,
			PermManageApplications, PermConductInterviews, PermViewTraining, PermCreateTraining,
			PermManageTraining, PermTrackTrainingProgress, PermViewBenefits, PermManageBenefits,
			PermViewDocuments, PermUploadDocuments, PermManageDocuments, PermManageDepartments,
			PermViewReports, PermExportData,
		},
	},
	{
		Name:        RoleManager,
		DisplayName: "Manager",
		Description: "Team management with approval permissions",
		Permissions: []string{
			PermViewEmployees, PermEditEmployees, PermViewAttendance, PermApproveAttendance,
			PermViewAllAttendance, PermViewLeaves, PermApproveLeaves, PermViewAllLeaves, PermViewPayroll,
			PermViewAllPayroll, PermViewPerformance, PermCreatePerformanceReview,
			PermConductPerformanceReview, PermViewAllPerformance, PermViewRecruitment,
			PermConductInterviews, PermViewTraining, PermTrackTrainingProgress, PermViewBenefits,
			PermViewDocuments, PermUploadDocuments, PermViewReports,
		},
	},
	{
		Name:        RoleHRSpecialist,
		DisplayName: "HR Specialist",
		Description: "HR operations without administrative access",
		Permissions: []string{
			PermViewEmployees, PermCreateEmployees, PermEditEmployees, PermViewAttendance,
			PermManageAttendance, PermViewLeaves, PermViewAllLeaves, PermViewPayroll, PermManagePayroll,
			PermViewPerformance, PermCreatePerformanceReview, PermViewRecruitment, PermManageJobPostings,
			PermManageApplications, PermViewTraining, PermCreateTraining, PermManageTraining,
			PermViewBenefits, PermManageBenefits, PermViewDocuments, PermUploadDocuments, PermViewReports,
		},
	},
	{
		Name:        RoleEmployee,
		DisplayName: "Employee",
		Description: "Basic employee access to personal information",
		Permissions: []string{
			PermViewEmployees, PermViewAttendance, PermCreateLeaveRequest, PermViewLeaves, PermViewPayroll,
			PermViewPerformance, PermViewTraining, PermEnrollInBenefits, PermViewBenefits,
			PermViewDocuments, PermUploadDocuments,
		},
	},
	{
		Name:        RoleRecruiter,
		DisplayName: "Recruiter",
		Description: "Recruitment and hiring focused role",
		Permissions: []string{
			PermViewEmployees, PermViewRecruitment, PermManageJobPostings, PermManageApplications,
			PermConductInterviews, PermViewDocuments, PermUploadDocuments, PermViewReports,
		},
	},
	{
		Name:        RolePayrollSpecialist,
		DisplayName: "Payroll Specialist",
		Description: "Payroll processing and benefits management",
		Permissions: []string{
			PermViewEmployees, PermViewAttendance, PermViewAllAttendance, PermViewPayroll,
			PermManagePayroll, PermProcessPayroll, PermViewAllPayroll, PermViewBenefits, PermManageBenefits,
			PermViewDocuments, PermUploadDocuments, PermViewReports, PermExportData,
		},
	},
}
