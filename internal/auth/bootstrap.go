package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/obs"
)

// SystemActor acts on behalf of the platform inside one organization. Audit entries it
// produces carry no actor id.
func SystemActor(organizationID string) Actor {
	return Actor{OrganizationID: organizationID}
}

// InitResult reports what InitializeOrganization created.
type InitResult struct {
	RolesCreated    int `json:"roles_created"`
	SettingsCreated int `json:"settings_created"`
}

// EmployeeInput describes an employee account to create.
type EmployeeInput struct {
	OrganizationID string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	AccountRole    string
	Status         string
}

// EnsureCatalog inserts the missing built-in permissions.
func (s *RBACService) EnsureCatalog(ctx context.Context) (int, error) {
	created, err := s.store.EnsurePermissions(ctx, BuiltinPermissions)
	if err != nil {
		return 0, fmt.Errorf("ensure permission catalog: %w", err)
	}
	return created, nil
}

// CreateOrganization registers a tenant.
func (s *RBACService) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	return s.store.CreateOrganization(ctx, name)
}

// InitializeOrganization creates the default system roles and settings that the
// organization does not have yet. Running it again is a no-op.
func (s *RBACService) InitializeOrganization(ctx context.Context, organizationID string) (InitResult, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return InitResult{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if _, err := s.store.GetOrganization(ctx, organizationID); err != nil {
		return InitResult{}, err
	}
	catalog, err := s.store.ListPermissions(ctx)
	if err != nil {
		return InitResult{}, err
	}
	byName := make(map[string]string, len(catalog))
	all := make([]string, 0, len(catalog))
	for _, p := range catalog {
		byName[p.Name] = p.ID
		all = append(all, p.ID)
	}

	var res InitResult
	for _, tpl := range DefaultRoles {
		_, err := s.store.GetRoleByName(ctx, organizationID, tpl.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		permIDs := all
		if !tpl.AllPermissions {
			permIDs = make([]string, 0, len(tpl.Permissions))
			for _, name := range tpl.Permissions {
				if id, ok := byName[name]; ok {
					permIDs = append(permIDs, id)
				}
			}
		}
		role, err := s.store.CreateRole(ctx, Role{
			OrganizationID: organizationID,
			Name:           tpl.Name,
			DisplayName:    tpl.DisplayName,
			Description:    tpl.Description,
			IsSystem:       true,
			IsActive:       true,
		}, permIDs)
		if err != nil {
			return res, fmt.Errorf("create role %s: %w", tpl.Name, err)
		}
		res.RolesCreated++
		s.record(ctx, audit.Entry{
			OrganizationID: organizationID,
			Action:         ActionCreateRole,
			ResourceType:   ResourceRole,
			ResourceID:     role.ID,
		}, nil, roleSnapshot(role))
	}

	missing := make([]SettingInput, 0, len(DefaultSettings))
	for _, def := range DefaultSettings {
		_, err := s.store.GetSetting(ctx, organizationID, def.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		missing = append(missing, def)
	}
	if len(missing) > 0 {
		changes, err := s.putSettings(ctx, organizationID, "", missing)
		if err != nil {
			return res, fmt.Errorf("default settings: %w", err)
		}
		res.SettingsCreated = len(changes)
	}
	obs.Logger().Info().
		Str("organization_id", organizationID).
		Int("roles_created", res.RolesCreated).
		Int("settings_created", res.SettingsCreated).
		Msg("organization initialized")
	return res, nil
}

// CreateEmployee adds an employee account with a bcrypt password hash.
func (s *RBACService) CreateEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	orgID := strings.TrimSpace(in.OrganizationID)
	if orgID == "" {
		return Employee{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Employee{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Password) == "" {
		return Employee{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	status := strings.TrimSpace(strings.ToLower(in.Status))
	if status == "" {
		status = EmployeeStatusActive
	}
	if status != EmployeeStatusActive && status != EmployeeStatusDisabled {
		return Employee{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
	}
	accountRole := strings.TrimSpace(strings.ToLower(in.AccountRole))
	if accountRole == "" {
		accountRole = RoleEmployee
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Employee{}, err
	}
	return s.store.CreateEmployee(ctx, Employee{
		OrganizationID: orgID,
		Email:          email,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		PasswordHash:   hash,
		AccountRole:    accountRole,
		Status:         status,
	})
}

// Authenticate verifies an email and password pair.
func (s *RBACService) Authenticate(ctx context.Context, email, password string) (Employee, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Employee{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	emp, err := s.store.GetEmployeeByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Employee{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if err != nil {
		return Employee{}, err
	}
	if err := VerifyPassword(emp.PasswordHash, password); err != nil {
		return Employee{}, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if emp.Status == EmployeeStatusDisabled {
		return Employee{}, fmt.Errorf("%w: account disabled", ErrUnauthenticated)
	}
	return emp, nil
}
