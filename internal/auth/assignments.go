package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/audit"
)

// EmployeeAccess lists an employee's role assignments and the permissions they grant.
type EmployeeAccess struct {
	EmployeeID  string       `json:"employee_id"`
	Roles       []Assignment `json:"roles"`
	Permissions []Permission `json:"permissions"`
}

// orgEmployee loads an employee of the actor's organization.
func (s *RBACService) orgEmployee(ctx context.Context, actor Actor, employeeID string) (Employee, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Employee{}, fmt.Errorf("%w: employee_id is required", ErrInvalidInput)
	}
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Employee{}, err
	}
	if emp.OrganizationID != actor.OrganizationID {
		return Employee{}, fmt.Errorf("%w: employee %s", ErrNotFound, employeeID)
	}
	return emp, nil
}

// AssignRole binds a role to an employee. A primary assignment replaces the employee's
// current primary role flag.
func (s *RBACService) AssignRole(ctx context.Context, actor Actor, employeeID, roleID string, primary bool) (Assignment, error) {
	emp, err := s.orgEmployee(ctx, actor, employeeID)
	if err != nil {
		return Assignment{}, err
	}
	role, err := s.GetRole(ctx, actor, roleID)
	if err != nil {
		return Assignment{}, err
	}
	assigned, err := s.store.AssignRole(ctx, Assignment{
		EmployeeID: emp.ID,
		RoleID:     role.ID,
		AssignedBy: actor.EmployeeID,
		IsPrimary:  primary,
	})
	if err != nil {
		return Assignment{}, err
	}
	if assigned.Role == nil {
		assigned.Role = &role
	}
	s.record(ctx, audit.Entry{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.EmployeeID,
		Action:         ActionAssignRole,
		ResourceType:   ResourceEmployeeRole,
		ResourceID:     assigned.ID,
	}, nil, assignmentSnapshot(assigned))
	return assigned, nil
}

// UnassignRole removes a role from an employee.
func (s *RBACService) UnassignRole(ctx context.Context, actor Actor, employeeID, roleID string) error {
	emp, err := s.orgEmployee(ctx, actor, employeeID)
	if err != nil {
		return err
	}
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	removed, err := s.store.UnassignRole(ctx, emp.ID, roleID)
	if err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.EmployeeID,
		Action:         ActionRemoveRole,
		ResourceType:   ResourceEmployeeRole,
		ResourceID:     removed.ID,
	}, assignmentSnapshot(removed), nil)
	return nil
}

// EmployeeAccess returns an employee's assignments and effective permissions.
func (s *RBACService) EmployeeAccess(ctx context.Context, actor Actor, employeeID string) (EmployeeAccess, error) {
	emp, err := s.orgEmployee(ctx, actor, employeeID)
	if err != nil {
		return EmployeeAccess{}, err
	}
	assignments, err := s.store.ListAssignments(ctx, emp.ID)
	if err != nil {
		return EmployeeAccess{}, err
	}
	perms, err := s.EffectivePermissions(ctx, actorFromEmployee(emp))
	if err != nil {
		return EmployeeAccess{}, err
	}
	return EmployeeAccess{EmployeeID: emp.ID, Roles: assignments, Permissions: perms}, nil
}
