package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/ids"
)

func (s *Store) CreateOrganization(ctx context.Context, name string) (auth.Organization, error) {
	if s.db == nil {
		return auth.Organization{}, errNoDB
	}
	org := auth.Organization{ID: ids.New(), Name: name}
	err := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name)
		values ($1, $2)
		returning created_at, updated_at
	`, org.ID, org.Name).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return auth.Organization{}, mapError(err)
	}
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	if s.db == nil {
		return auth.Organization{}, errNoDB
	}
	var org auth.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Organization{}, fmt.Errorf("%w: organization %s", auth.ErrNotFound, id)
	}
	if err != nil {
		return auth.Organization{}, err
	}
	return org, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e auth.Employee) (auth.Employee, error) {
	if s.db == nil {
		return auth.Employee{}, errNoDB
	}
	e.ID = ids.New()
	err := s.db.QueryRowContext(ctx, `
		insert into employees (id, organization_id, email, first_name, last_name, password_hash, account_role, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, e.ID, e.OrganizationID, e.Email, e.FirstName, e.LastName, e.PasswordHash, e.AccountRole, e.Status).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return auth.Employee{}, mapError(err)
	}
	return e, nil
}

const employeeColumns = `id, organization_id, email, first_name, last_name, password_hash, account_role, status, created_at, updated_at`

func scanEmployee(row *sql.Row) (auth.Employee, error) {
	var e auth.Employee
	err := row.Scan(&e.ID, &e.OrganizationID, &e.Email, &e.FirstName, &e.LastName,
		&e.PasswordHash, &e.AccountRole, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) GetEmployee(ctx context.Context, id string) (auth.Employee, error) {
	if s.db == nil {
		return auth.Employee{}, errNoDB
	}
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `select `+employeeColumns+` from employees where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Employee{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, id)
	}
	return e, err
}

func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (auth.Employee, error) {
	if s.db == nil {
		return auth.Employee{}, errNoDB
	}
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `select `+employeeColumns+` from employees where lower(email) = lower($1)`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Employee{}, fmt.Errorf("%w: employee %s", auth.ErrNotFound, email)
	}
	return e, err
}
