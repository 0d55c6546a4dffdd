package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/josemwas/HR-management/internal/audit"
)

// RoleInput describes a role to create.
type RoleInput struct {
	Name          string
	DisplayName   string
	Description   string
	IsActive      *bool
	PermissionIDs []string
}

// PermissionCatalog is the full permission list plus a view grouped by module.
type PermissionCatalog struct {
	Permissions []Permission            `json:"permissions"`
	Grouped     map[string][]Permission `json:"grouped"`
}

func visibleTo(role Role, organizationID string) bool {
	return role.OrganizationID == "" || role.OrganizationID == organizationID
}

// mutableRole loads a role the actor's organization may change.
func (s *RBACService) mutableRole(ctx context.Context, actor Actor, id string) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if !visibleTo(role, actor.OrganizationID) {
		return Role{}, fmt.Errorf("%w: role %s", ErrNotFound, id)
	}
	if role.IsSystem {
		return Role{}, fmt.Errorf("%w: system role %s cannot be modified", ErrConflict, role.Name)
	}
	if role.OrganizationID == "" {
		return Role{}, fmt.Errorf("%w: role %s is not owned by the organization", ErrConflict, role.Name)
	}
	return role, nil
}

// CreateRole creates a role in the actor's organization and links its permissions.
func (s *RBACService) CreateRole(ctx context.Context, actor Actor, in RoleInput) (Role, error) {
	if strings.TrimSpace(actor.OrganizationID) == "" {
		return Role{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		return Role{}, fmt.Errorf("%w: display_name is required", ErrInvalidInput)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	role, err := s.store.CreateRole(ctx, Role{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		DisplayName:    display,
		Description:    strings.TrimSpace(in.Description),
		IsActive:       active,
	}, dedupeStrings(in.PermissionIDs))
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, audit.Entry{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.EmployeeID,
		Action:         ActionCreateRole,
		ResourceType:   ResourceRole,
		ResourceID:     role.ID,
	}, nil, roleSnapshot(role))
	return role, nil
}

// UpdateRole applies a partial update. System roles are immutable.
func (s *RBACService) UpdateRole(ctx context.Context, actor Actor, id string, upd RoleUpdate) (Role, error) {
	if upd.Empty() {
		return Role{}, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if upd.DisplayName != nil {
		trimmed := strings.TrimSpace(*upd.DisplayName)
		if trimmed == "" {
			return Role{}, fmt.Errorf("%w: display_name cannot be empty", ErrInvalidInput)
		}
		upd.DisplayName = &trimmed
	}
	if upd.Description != nil {
		trimmed := strings.TrimSpace(*upd.Description)
		upd.Description = &trimmed
	}
	if upd.PermissionIDs != nil {
		ids := dedupeStrings(*upd.PermissionIDs)
		upd.PermissionIDs = &ids
	}
	before, err := s.mutableRole(ctx, actor, id)
	if err != nil {
		return Role{}, err
	}
	after, err := s.store.UpdateRole(ctx, before.ID, upd)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, audit.Entry{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.EmployeeID,
		Action:         ActionUpdateRole,
		ResourceType:   ResourceRole,
		ResourceID:     after.ID,
	}, roleSnapshot(before), roleSnapshot(after))
	return after, nil
}

// DeleteRole removes a role that is neither a system role nor assigned to anyone.
func (s *RBACService) DeleteRole(ctx context.Context, actor Actor, id string) error {
	before, err := s.mutableRole(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRole(ctx, before.ID); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.EmployeeID,
		Action:         ActionDeleteRole,
		ResourceType:   ResourceRole,
		ResourceID:     before.ID,
	}, roleSnapshot(before), nil)
	return nil
}

// GetRole returns a role visible to the actor's organization.
func (s *RBACService) GetRole(ctx context.Context, actor Actor, id string) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if !visibleTo(role, actor.OrganizationID) {
		return Role{}, fmt.Errorf("%w: role %s", ErrNotFound, id)
	}
	return role, nil
}

// ListRoles returns the organization's roles and the system-wide roles ordered by name.
func (s *RBACService) ListRoles(ctx context.Context, actor Actor) ([]Role, error) {
	roles, err := s.store.ListRoles(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// ListPermissions returns the catalog ordered by module and name.
func (s *RBACService) ListPermissions(ctx context.Context) (PermissionCatalog, error) {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return PermissionCatalog{}, err
	}
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Module != perms[j].Module {
			return perms[i].Module < perms[j].Module
		}
		return perms[i].Name < perms[j].Name
	})
	out := PermissionCatalog{Permissions: perms, Grouped: map[string][]Permission{}}
	for _, p := range perms {
		out.Grouped[p.Module] = append(out.Grouped[p.Module], p)
	}
	return out, nil
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
