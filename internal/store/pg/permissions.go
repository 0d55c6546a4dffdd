package pg

import (
	"context"
	"database/sql"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

const permissionColumns = `p.id, p.name, p.display_name, p.description, p.module, p.action, p.created_at`

func (s *Store) EnsurePermissions(ctx context.Context, perms []auth.Permission) (int, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	for _, p := range perms {
		res, err := tx.ExecContext(ctx, `
			insert into permissions (id, name, display_name, description, module, action)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (name) do nothing
		`, ids.New(), p.Name, p.DisplayName, nullIfEmpty(p.Description), p.Module, p.Action)
		if err != nil {
			return 0, mapError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		created += int(aff)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]auth.Permission, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+permissionColumns+` from permissions p order by p.module, p.name`)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (s *Store) EmployeeHasPermission(ctx context.Context, employeeID, permission string) (bool, error) {
	if s.db == nil {
		return false, errNoDB
	}
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		select exists (
			select 1
			from employee_roles er
			join role_permissions rp on rp.role_id = er.role_id
			join permissions p on p.id = rp.permission_id
			where er.employee_id = $1 and p.name = $2
		)
	`, employeeID, permission).Scan(&ok)
	return ok, err
}

func (s *Store) EmployeePermissions(ctx context.Context, employeeID string) ([]auth.Permission, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select distinct `+permissionColumns+`
		from employee_roles er
		join role_permissions rp on rp.role_id = er.role_id
		join permissions p on p.id = rp.permission_id
		where er.employee_id = $1
		order by p.module, p.name
	`, employeeID)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner, extra ...any) (auth.Permission, error) {
	var (
		p    auth.Permission
		desc sql.NullString
	)
	dest := append(extra, &p.ID, &p.Name, &p.DisplayName, &desc, &p.Module, &p.Action, &p.CreatedAt)
	if err := row.Scan(dest...); err != nil {
		return auth.Permission{}, err
	}
	p.Description = desc.String
	return p, nil
}

func collectPermissions(rows *sql.Rows) ([]auth.Permission, error) {
	defer rows.Close()
	out := []auth.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
