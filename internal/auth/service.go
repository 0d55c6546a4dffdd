package auth

import (
	"context"
	"errors"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/obs"
)

// Audit action and resource names.
const (
	ActionCreateRole    = "create_role"
	ActionUpdateRole    = "update_role"
	ActionDeleteRole    = "delete_role"
	ActionAssignRole    = "assign_role"
	ActionRemoveRole    = "remove_role"
	ActionUpdateSetting = "update_setting"

	ResourceRole         = "role"
	ResourceEmployeeRole = "employee_role"
	ResourceSetting      = "organization_setting"
)

// RBACService is the authorization engine: permission resolution, role and assignment
// management, organization settings and audit queries.
type RBACService struct {
	store Store
	audit *audit.Recorder
}

// NewRBACService wires the engine. A nil recorder disables auditing.
func NewRBACService(store Store, recorder *audit.Recorder) (*RBACService, error) {
	if store == nil {
		return nil, errors.New("rbac store is required")
	}
	return &RBACService{store: store, audit: recorder}, nil
}

// AuditLog returns a page of the actor organization's audit entries, newest first.
func (s *RBACService) AuditLog(ctx context.Context, actor Actor, filter audit.Filter) (audit.Page, error) {
	if s.audit == nil {
		return audit.Page{}, errors.New("audit log unavailable")
	}
	filter.OrganizationID = actor.OrganizationID
	return s.audit.Query(ctx, filter)
}

// record appends one audit entry after the mutation has committed.
func (s *RBACService) record(ctx context.Context, entry audit.Entry, before, after any) {
	if s.audit == nil {
		return
	}
	change, err := audit.NewChange(before, after)
	if err != nil {
		obs.Logger().Error().Err(err).Str("action", entry.Action).Msg("audit snapshot encoding failed")
		obs.AuditWriteFailed(entry.Action)
		return
	}
	entry.Change = change
	s.audit.Record(ctx, entry)
}

type roleAuditValue struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Description    string   `json:"description,omitempty"`
	IsSystem       bool     `json:"is_system_role"`
	IsActive       bool     `json:"is_active"`
	Permissions    []string `json:"permissions"`
}

func roleSnapshot(r Role) roleAuditValue {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return roleAuditValue{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Name:           r.Name,
		DisplayName:    r.DisplayName,
		Description:    r.Description,
		IsSystem:       r.IsSystem,
		IsActive:       r.IsActive,
		Permissions:    names,
	}
}

type assignmentAuditValue struct {
	EmployeeID string `json:"employee_id"`
	RoleID     string `json:"role_id"`
	IsPrimary  bool   `json:"is_primary"`
}

func assignmentSnapshot(a Assignment) assignmentAuditValue {
	return assignmentAuditValue{EmployeeID: a.EmployeeID, RoleID: a.RoleID, IsPrimary: a.IsPrimary}
}
