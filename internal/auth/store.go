package auth

import "context"

// Store is the persistence contract of the authorization engine. Implementations enforce
// the uniqueness invariants themselves and run every multi-step method in one transaction.
type Store interface {
	CreateOrganization(ctx context.Context, name string) (Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)

	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (Employee, error)

	// EnsurePermissions inserts the permissions whose names are not yet present and
	// reports how many were created.
	EnsurePermissions(ctx context.Context, perms []Permission) (int, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	EmployeeHasPermission(ctx context.Context, employeeID, permission string) (bool, error)
	EmployeePermissions(ctx context.Context, employeeID string) ([]Permission, error)

	// CreateRole inserts the role and links permissionIDs. An unknown id fails the
	// whole operation with ErrInvalidInput.
	CreateRole(ctx context.Context, role Role, permissionIDs []string) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, organizationID, name string) (Role, error)
	// ListRoles returns the organization's roles and the system-wide roles.
	ListRoles(ctx context.Context, organizationID string) ([]Role, error)
	UpdateRole(ctx context.Context, id string, upd RoleUpdate) (Role, error)
	// DeleteRole fails with ErrConflict while any assignment references the role.
	DeleteRole(ctx context.Context, id string) error

	// AssignRole clears the employee's current primary assignment first when
	// a.IsPrimary is set.
	AssignRole(ctx context.Context, a Assignment) (Assignment, error)
	UnassignRole(ctx context.Context, employeeID, roleID string) (Assignment, error)
	ListAssignments(ctx context.Context, employeeID string) ([]Assignment, error)

	GetSetting(ctx context.Context, organizationID, key string) (Setting, error)
	ListSettings(ctx context.Context, organizationID, category string) ([]Setting, error)
	PutSettings(ctx context.Context, organizationID string, settings []Setting) ([]SettingChange, error)
}

// RoleUpdate carries a partial role update. A non-nil PermissionIDs replaces the
// whole permission set.
type RoleUpdate struct {
	DisplayName   *string
	Description   *string
	IsActive      *bool
	PermissionIDs *[]string
}

// Empty reports whether the update changes nothing.
func (u RoleUpdate) Empty() bool {
	return u.DisplayName == nil && u.Description == nil && u.IsActive == nil && u.PermissionIDs == nil
}
