package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

// AssignRole locks the employee row so concurrent primary assignments for the same
// employee serialise, clears the current primary when needed, then inserts.
func (s *Store) AssignRole(ctx context.Context, a auth.Assignment) (auth.Assignment, error) {
	if s.db == nil {
		return auth.Assignment{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Assignment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var orgID string
	err = tx.QueryRowContext(ctx, `select organization_id from employees where id = $1 for update`, a.EmployeeID).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Assignment{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, a.EmployeeID)
	}
	if err != nil {
		return auth.Assignment{}, err
	}
	if a.IsPrimary {
		if _, err := tx.ExecContext(ctx, `
			update employee_roles set is_primary = false
			where employee_id = $1 and is_primary
		`, a.EmployeeID); err != nil {
			return auth.Assignment{}, err
		}
	}
	a.ID = ids.New()
	a.Role = nil
	err = tx.QueryRowContext(ctx, `
		insert into employee_roles (id, employee_id, role_id, assigned_by, is_primary)
		values ($1, $2, $3, $4, $5)
		returning assigned_at
	`, a.ID, a.EmployeeID, a.RoleID, nullIfEmpty(a.AssignedBy), a.IsPrimary).Scan(&a.AssignedAt)
	if err != nil {
		return auth.Assignment{}, mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return auth.Assignment{}, err
	}
	return a, nil
}

func (s *Store) UnassignRole(ctx context.Context, employeeID, roleID string) (auth.Assignment, error) {
	if s.db == nil {
		return auth.Assignment{}, errNoDB
	}
	a := auth.Assignment{EmployeeID: employeeID, RoleID: roleID}
	var by sql.NullString
	err := s.db.QueryRowContext(ctx, `
		delete from employee_roles
		where employee_id = $1 and role_id = $2
		returning id, assigned_by, assigned_at, is_primary
	`, employeeID, roleID).Scan(&a.ID, &by, &a.AssignedAt, &a.IsPrimary)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Assignment{}, fmt.Errorf("%w: role %s is not assigned to employee %s", auth.ErrNotFound, roleID, employeeID)
	}
	if err != nil {
		return auth.Assignment{}, err
	}
	a.AssignedBy = by.String
	return a, nil
}

func (s *Store) ListAssignments(ctx context.Context, employeeID string) ([]auth.Assignment, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select er.id, er.employee_id, er.role_id, er.assigned_by, er.assigned_at, er.is_primary, `+roleColumns+`
		from employee_roles er
		join roles r on r.id = er.role_id
		where er.employee_id = $1
		order by er.assigned_at, er.id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []auth.Assignment{}
	index := map[string]int{}
	for rows.Next() {
		var (
			a    auth.Assignment
			by   sql.NullString
			r    auth.Role
			org  sql.NullString
			desc sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.RoleID, &by, &a.AssignedAt, &a.IsPrimary,
			&r.ID, &org, &r.Name, &r.DisplayName, &desc, &r.IsSystem, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		a.AssignedBy = by.String
		r.OrganizationID = org.String
		r.Description = desc.String
		r.Permissions = []auth.Permission{}
		a.Role = &r
		index[a.RoleID] = len(out)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	links, err := s.db.QueryContext(ctx, `
		select rp.role_id, `+permissionColumns+`
		from employee_roles er
		join role_permissions rp on rp.role_id = er.role_id
		join permissions p on p.id = rp.permission_id
		where er.employee_id = $1
		order by p.module, p.name
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer links.Close()
	for links.Next() {
		var roleID string
		p, err := scanPermission(links, &roleID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[roleID]; ok {
			out[i].Role.Permissions = append(out[i].Role.Permissions, p)
		}
	}
	return out, links.Err()
}
