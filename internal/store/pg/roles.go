package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

const roleColumns = `r.id, r.organization_id, r.name, r.display_name, r.description, r.is_system, r.is_active, r.created_at, r.updated_at`

func scanRole(row rowScanner) (auth.Role, error) {
	var (
		r    auth.Role
		org  sql.NullString
		desc sql.NullString
	)
	if err := row.Scan(&r.ID, &org, &r.Name, &r.DisplayName, &desc, &r.IsSystem, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return auth.Role{}, err
	}
	r.OrganizationID = org.String
	r.Description = desc.String
	r.Permissions = []auth.Permission{}
	return r, nil
}

func (s *Store) CreateRole(ctx context.Context, role auth.Role, permissionIDs []string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	role.ID = ids.New()
	err = tx.QueryRowContext(ctx, `
		insert into roles (id, organization_id, name, display_name, description, is_system, is_active)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, role.ID, nullIfEmpty(role.OrganizationID), role.Name, role.DisplayName, nullIfEmpty(role.Description),
		role.IsSystem, role.IsActive).Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return auth.Role{}, mapError(err)
	}
	if err := linkPermissions(ctx, tx, role.ID, permissionIDs); err != nil {
		return auth.Role{}, err
	}
	if role.Permissions, err = rolePermissions(ctx, tx, role.ID); err != nil {
		return auth.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

// linkPermissions inserts one link per id. An id matching no permission inserts nothing
// and fails the transaction.
func linkPermissions(ctx context.Context, q queryer, roleID string, permissionIDs []string) error {
	for _, permID := range permissionIDs {
		res, err := q.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			select $1, p.id from permissions p where p.id = $2
		`, roleID, permID)
		if err != nil {
			return mapError(err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if aff == 0 {
			return fmt.Errorf("%w: unknown permission id %s", auth.ErrInvalidInput, permID)
		}
	}
	return nil
}

func rolePermissions(ctx context.Context, q queryer, roleID string) ([]auth.Permission, error) {
	rows, err := q.QueryContext(ctx, `
		select `+permissionColumns+`
		from role_permissions rp
		join permissions p on p.id = rp.permission_id
		where rp.role_id = $1
		order by p.module, p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

func (s *Store) getRole(ctx context.Context, q queryer, where string, args ...any) (auth.Role, error) {
	role, err := scanRole(q.QueryRowContext(ctx, `select `+roleColumns+` from roles r where `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, fmt.Errorf("%w: role", auth.ErrNotFound)
	}
	if err != nil {
		return auth.Role{}, err
	}
	if role.Permissions, err = rolePermissions(ctx, q, role.ID); err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	return s.getRole(ctx, s.db, `r.id = $1`, id)
}

func (s *Store) GetRoleByName(ctx context.Context, organizationID, name string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	if organizationID == "" {
		return s.getRole(ctx, s.db, `r.organization_id is null and r.name = $1`, name)
	}
	return s.getRole(ctx, s.db, `r.organization_id = $1 and r.name = $2`, organizationID, name)
}

func (s *Store) ListRoles(ctx context.Context, organizationID string) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+roleColumns+`
		from roles r
		where r.organization_id = $1 or r.organization_id is null
		order by r.name, r.id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []auth.Role{}
	index := map[string]int{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		index[role.ID] = len(roles)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	links, err := s.db.QueryContext(ctx, `
		select rp.role_id, `+permissionColumns+`
		from role_permissions rp
		join roles r on r.id = rp.role_id
		join permissions p on p.id = rp.permission_id
		where r.organization_id = $1 or r.organization_id is null
		order by p.module, p.name
	`, organizationID)
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
			roles[i].Permissions = append(roles[i].Permissions, p)
		}
	}
	if err := links.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, upd auth.RoleUpdate) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.DisplayName != nil {
		sets = append(sets, fmt.Sprintf("display_name = $%d", idx))
		args = append(args, *upd.DisplayName)
		idx++
	}
	if upd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Description))
		idx++
	}
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`update roles set %s where id = $%d`, strings.Join(sets, ", "), idx), args...)
	if err != nil {
		return auth.Role{}, mapError(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return auth.Role{}, err
	}
	if aff == 0 {
		return auth.Role{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, id)
	}
	if upd.PermissionIDs != nil {
		if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, id); err != nil {
			return auth.Role{}, err
		}
		if err := linkPermissions(ctx, tx, id, *upd.PermissionIDs); err != nil {
			return auth.Role{}, err
		}
	}
	role, err := s.getRole(ctx, tx, `r.id = $1`, id)
	if err != nil {
		return auth.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var assigned int
	if err := tx.QueryRowContext(ctx, `select count(*) from employee_roles where role_id = $1`, id).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("%w: role is assigned to %d employees", auth.ErrConflict, assigned)
	}
	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return mapDeleteError(err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return fmt.Errorf("%w: role %s", auth.ErrNotFound, id)
	}
	return tx.Commit()
}
