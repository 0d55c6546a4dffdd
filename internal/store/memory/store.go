// Package memory is an in-process implementation of the authorization and audit stores.
// It keeps the same uniqueness guarantees as the PostgreSQL schema and is used in
// development mode and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

type roleRow struct {
	role    auth.Role
	permIDs []string
}

// Store serialises every operation behind one RWMutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	orgs        map[string]auth.Organization
	employees   map[string]auth.Employee
	emailIndex  map[string]string
	permissions map[string]auth.Permission
	permByName  map[string]string
	roles       map[string]*roleRow
	roleByName  map[string]string
	assignments []auth.Assignment
	settings    map[string]auth.Setting
	auditLog    []audit.Entry
}

var (
	_ auth.Store  = (*Store)(nil)
	_ audit.Store = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		orgs:        map[string]auth.Organization{},
		employees:   map[string]auth.Employee{},
		emailIndex:  map[string]string{},
		permissions: map[string]auth.Permission{},
		permByName:  map[string]string{},
		roles:       map[string]*roleRow{},
		roleByName:  map[string]string{},
		settings:    map[string]auth.Setting{},
	}
}

func scopedKey(organizationID, name string) string {
	return organizationID + "\x00" + name
}

// CreateOrganization implements auth.Store.
func (s *Store) CreateOrganization(_ context.Context, name string) (auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	org := auth.Organization{ID: ids.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	s.orgs[org.ID] = org
	return org, nil
}

// GetOrganization implements auth.Store.
func (s *Store) GetOrganization(_ context.Context, id string) (auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return auth.Organization{}, fmt.Errorf("%w: organization %s", auth.ErrNotFound, id)
	}
	return org, nil
}

// CreateEmployee implements auth.Store.
func (s *Store) CreateEmployee(_ context.Context, e auth.Employee) (auth.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[e.OrganizationID]; !ok {
		return auth.Employee{}, fmt.Errorf("%w: organization %s", auth.ErrNotFound, e.OrganizationID)
	}
	email := strings.ToLower(e.Email)
	if _, dup := s.emailIndex[email]; dup {
		return auth.Employee{}, fmt.Errorf("%w: email %s already registered", auth.ErrConflict, email)
	}
	now := s.now()
	e.ID = ids.New()
	e.Email = email
	e.CreatedAt, e.UpdatedAt = now, now
	s.employees[e.ID] = e
	s.emailIndex[email] = e.ID
	return e, nil
}

// GetEmployee implements auth.Store.
func (s *Store) GetEmployee(_ context.Context, id string) (auth.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return auth.Employee{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, id)
	}
	return e, nil
}

// GetEmployeeByEmail implements auth.Store.
func (s *Store) GetEmployeeByEmail(_ context.Context, email string) (auth.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[strings.ToLower(email)]
	if !ok {
		return auth.Employee{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, email)
	}
	return s.employees[id], nil
}

// EnsurePermissions implements auth.Store.
func (s *Store) EnsurePermissions(_ context.Context, perms []auth.Permission) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, p := range perms {
		if _, ok := s.permByName[p.Name]; ok {
			continue
		}
		p.ID = ids.New()
		p.CreatedAt = s.now()
		s.permissions[p.ID] = p
		s.permByName[p.Name] = p.ID
		created++
	}
	return created, nil
}

// ListPermissions implements auth.Store.
func (s *Store) ListPermissions(_ context.Context) ([]auth.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		out = append(out, p)
	}
	sortPermissions(out)
	return out, nil
}

// EmployeeHasPermission implements auth.Store.
func (s *Store) EmployeeHasPermission(_ context.Context, employeeID, permission string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permID, ok := s.permByName[permission]
	if !ok {
		return false, nil
	}
	for _, a := range s.assignments {
		if a.EmployeeID != employeeID {
			continue
		}
		row, ok := s.roles[a.RoleID]
		if !ok {
			continue
		}
		for _, id := range row.permIDs {
			if id == permID {
				return true, nil
			}
		}
	}
	return false, nil
}

// EmployeePermissions implements auth.Store.
func (s *Store) EmployeePermissions(_ context.Context, employeeID string) ([]auth.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []auth.Permission{}
	for _, a := range s.assignments {
		if a.EmployeeID != employeeID {
			continue
		}
		row, ok := s.roles[a.RoleID]
		if !ok {
			continue
		}
		for _, id := range row.permIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, s.permissions[id])
		}
	}
	sortPermissions(out)
	return out, nil
}

func (s *Store) checkPermissionIDs(permIDs []string) error {
	for _, id := range permIDs {
		if _, ok := s.permissions[id]; !ok {
			return fmt.Errorf("%w: unknown permission id %s", auth.ErrInvalidInput, id)
		}
	}
	return nil
}

// CreateRole implements auth.Store.
func (s *Store) CreateRole(_ context.Context, role auth.Role, permissionIDs []string) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.OrganizationID != "" {
		if _, ok := s.orgs[role.OrganizationID]; !ok {
			return auth.Role{}, fmt.Errorf("%w: organization %s", auth.ErrNotFound, role.OrganizationID)
		}
	}
	key := scopedKey(role.OrganizationID, role.Name)
	if _, dup := s.roleByName[key]; dup {
		return auth.Role{}, fmt.Errorf("%w: role %s already exists", auth.ErrConflict, role.Name)
	}
	if err := s.checkPermissionIDs(permissionIDs); err != nil {
		return auth.Role{}, err
	}
	now := s.now()
	role.ID = ids.New()
	role.CreatedAt, role.UpdatedAt = now, now
	role.Permissions = nil
	s.roles[role.ID] = &roleRow{role: role, permIDs: append([]string(nil), permissionIDs...)}
	s.roleByName[key] = role.ID
	return s.roleView(s.roles[role.ID]), nil
}

func (s *Store) roleView(row *roleRow) auth.Role {
	r := row.role
	r.Permissions = make([]auth.Permission, 0, len(row.permIDs))
	for _, id := range row.permIDs {
		r.Permissions = append(r.Permissions, s.permissions[id])
	}
	sortPermissions(r.Permissions)
	return r
}

// GetRole implements auth.Store.
func (s *Store) GetRole(_ context.Context, id string) (auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.roles[id]
	if !ok {
		return auth.Role{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, id)
	}
	return s.roleView(row), nil
}

// GetRoleByName implements auth.Store.
func (s *Store) GetRoleByName(_ context.Context, organizationID, name string) (auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roleByName[scopedKey(organizationID, name)]
	if !ok {
		return auth.Role{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, name)
	}
	return s.roleView(s.roles[id]), nil
}

// ListRoles implements auth.Store.
func (s *Store) ListRoles(_ context.Context, organizationID string) ([]auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []auth.Role{}
	for _, row := range s.roles {
		if row.role.OrganizationID != "" && row.role.OrganizationID != organizationID {
			continue
		}
		out = append(out, s.roleView(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateRole implements auth.Store.
func (s *Store) UpdateRole(_ context.Context, id string, upd auth.RoleUpdate) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.roles[id]
	if !ok {
		return auth.Role{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, id)
	}
	if upd.PermissionIDs != nil {
		if err := s.checkPermissionIDs(*upd.PermissionIDs); err != nil {
			return auth.Role{}, err
		}
		row.permIDs = append([]string(nil), (*upd.PermissionIDs)...)
	}
	if upd.DisplayName != nil {
		row.role.DisplayName = *upd.DisplayName
	}
	if upd.Description != nil {
		row.role.Description = *upd.Description
	}
	if upd.IsActive != nil {
		row.role.IsActive = *upd.IsActive
	}
	row.role.UpdatedAt = s.now()
	return s.roleView(row), nil
}

// DeleteRole implements auth.Store.
func (s *Store) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.roles[id]
	if !ok {
		return fmt.Errorf("%w: role %s", auth.ErrNotFound, id)
	}
	for _, a := range s.assignments {
		if a.RoleID == id {
			return fmt.Errorf("%w: role %s is assigned to employees", auth.ErrConflict, row.role.Name)
		}
	}
	delete(s.roleByName, scopedKey(row.role.OrganizationID, row.role.Name))
	delete(s.roles, id)
	return nil
}

// AssignRole implements auth.Store.
func (s *Store) AssignRole(_ context.Context, a auth.Assignment) (auth.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[a.EmployeeID]; !ok {
		return auth.Assignment{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, a.EmployeeID)
	}
	row, ok := s.roles[a.RoleID]
	if !ok {
		return auth.Assignment{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, a.RoleID)
	}
	for _, existing := range s.assignments {
		if existing.EmployeeID == a.EmployeeID && existing.RoleID == a.RoleID {
			return auth.Assignment{}, fmt.Errorf("%w: role already assigned", auth.ErrConflict)
		}
	}
	if a.IsPrimary {
		for i := range s.assignments {
			if s.assignments[i].EmployeeID == a.EmployeeID {
				s.assignments[i].IsPrimary = false
			}
		}
	}
	a.ID = ids.New()
	a.AssignedAt = s.now()
	a.Role = nil
	s.assignments = append(s.assignments, a)
	role := s.roleView(row)
	a.Role = &role
	return a, nil
}

// UnassignRole implements auth.Store.
func (s *Store) UnassignRole(_ context.Context, employeeID, roleID string) (auth.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.assignments {
		if a.EmployeeID == employeeID && a.RoleID == roleID {
			s.assignments = append(s.assignments[:i], s.assignments[i+1:]...)
			return a, nil
		}
	}
	return auth.Assignment{}, fmt.Errorf("%w: role %s is not assigned to employee %s", auth.ErrNotFound, roleID, employeeID)
}

// ListAssignments implements auth.Store.
func (s *Store) ListAssignments(_ context.Context, employeeID string) ([]auth.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []auth.Assignment{}
	for _, a := range s.assignments {
		if a.EmployeeID != employeeID {
			continue
		}
		if row, ok := s.roles[a.RoleID]; ok {
			role := s.roleView(row)
			a.Role = &role
		}
		out = append(out, a)
	}
	return out, nil
}

// GetSetting implements auth.Store.
func (s *Store) GetSetting(_ context.Context, organizationID, key string) (auth.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[scopedKey(organizationID, key)]
	if !ok {
		return auth.Setting{}, fmt.Errorf("%w: setting %s", auth.ErrNotFound, key)
	}
	return st, nil
}

// ListSettings implements auth.Store.
func (s *Store) ListSettings(_ context.Context, organizationID, category string) ([]auth.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []auth.Setting{}
	for _, st := range s.settings {
		if st.OrganizationID != organizationID {
			continue
		}
		if category != "" && st.Category != category {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// PutSettings implements auth.Store.
func (s *Store) PutSettings(_ context.Context, organizationID string, settings []auth.Setting) ([]auth.SettingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[organizationID]; !ok {
		return nil, fmt.Errorf("%w: organization %s", auth.ErrNotFound, organizationID)
	}
	now := s.now()
	changes := make([]auth.SettingChange, 0, len(settings))
	for _, st := range settings {
		key := scopedKey(organizationID, st.Key)
		st.OrganizationID = organizationID
		st.UpdatedAt = now
		var prev *auth.Setting
		if existing, ok := s.settings[key]; ok {
			p := existing
			prev = &p
			st.ID = existing.ID
			st.CreatedAt = existing.CreatedAt
		} else {
			st.ID = ids.New()
			st.CreatedAt = now
		}
		s.settings[key] = st
		changes = append(changes, auth.SettingChange{Previous: prev, Current: st})
	}
	return changes, nil
}

// AppendAudit implements audit.Store.
func (s *Store) AppendAudit(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, e)
	return nil
}

// QueryAudit implements audit.Store.
func (s *Store) QueryAudit(_ context.Context, f audit.Filter) (audit.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	action := strings.ToLower(f.Action)
	matched := []audit.Entry{}
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		e := s.auditLog[i]
		if f.OrganizationID != "" && e.OrganizationID != f.OrganizationID {
			continue
		}
		if action != "" && !strings.Contains(strings.ToLower(e.Action), action) {
			continue
		}
		if f.ResourceType != "" && e.ResourceType != f.ResourceType {
			continue
		}
		if f.ActorID != "" && e.ActorID != f.ActorID {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].OccurredAt.After(matched[j].OccurredAt) })
	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.PerPage
	if end > total {
		end = total
	}
	return audit.NewPage(matched[start:end], total, f), nil
}

func sortPermissions(perms []auth.Permission) {
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Module != perms[j].Module {
			return perms[i].Module < perms[j].Module
		}
		return perms[i].Name < perms[j].Name
	})
}
