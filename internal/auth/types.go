package auth

import "time"

const (
	// SuperAdminAccountRole marks the employee account that bypasses permission resolution.
	SuperAdminAccountRole = "super_admin"

	EmployeeStatusActive   = "active"
	EmployeeStatusDisabled = "disabled"
)

// Organization is the tenant boundary for roles, assignments and settings.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Employee is an actor record from the employee directory.
type Employee struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	PasswordHash   string    `json:"-"`
	AccountRole    string    `json:"account_role"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsSuperAdmin reports whether the employee is the distinguished super actor.
func (e Employee) IsSuperAdmin() bool {
	return e.AccountRole == SuperAdminAccountRole
}

// Permission is a single named capability.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role is a named bundle of permissions. An empty OrganizationID denotes a system-wide role.
type Role struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id,omitempty"`
	Name           string       `json:"name"`
	DisplayName    string       `json:"display_name"`
	Description    string       `json:"description,omitempty"`
	IsSystem       bool         `json:"is_system_role"`
	IsActive       bool         `json:"is_active"`
	Permissions    []Permission `json:"permissions"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PermissionIDs returns the ids of the role's permissions in order.
func (r Role) PermissionIDs() []string {
	out := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		out = append(out, p.ID)
	}
	return out
}

// Assignment binds a role to an employee.
type Assignment struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	RoleID     string    `json:"role_id"`
	AssignedBy string    `json:"assigned_by,omitempty"`
	IsPrimary  bool      `json:"is_primary"`
	AssignedAt time.Time `json:"assigned_at"`
	Role       *Role     `json:"role,omitempty"`
}

// Actor is a resolved request identity.
type Actor struct {
	EmployeeID     string `json:"employee_id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	Super          bool   `json:"is_super_admin"`
}

func actorFromEmployee(e Employee) Actor {
	return Actor{
		EmployeeID:     e.ID,
		OrganizationID: e.OrganizationID,
		Email:          e.Email,
		Super:          e.IsSuperAdmin(),
	}
}
