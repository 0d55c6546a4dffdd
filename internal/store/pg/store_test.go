package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/auth"
)

var (
	permissionCols = []string{"id", "name", "display_name", "description", "module", "action", "created_at"}
	roleCols       = []string{"id", "organization_id", "name", "display_name", "description", "is_system", "is_active", "created_at", "updated_at"}
	settingCols    = []string{"id", "organization_id", "category", "key", "value", "data_type", "description", "is_sensitive", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateRoleLinksPermissions(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("insert into roles").
		WithArgs(sqlmock.AnyArg(), "org-1", "auditor", "Auditor", nil, false, true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), "perm_employee.read").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), "perm_reports.read").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from role_permissions rp").WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(permissionCols).
			AddRow("perm_employee.read", "employee.read", "Read Employees", nil, "employee", "read", now).
			AddRow("perm_reports.read", "reports.read", "Read Reports", "view reports", "reports", "read", now))
	mock.ExpectCommit()

	role, err := store.CreateRole(context.Background(), auth.Role{
		OrganizationID: "org-1",
		Name:           "auditor",
		DisplayName:    "Auditor",
		IsActive:       true,
	}, []string{"perm_employee.read", "perm_reports.read"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.ID == "" {
		t.Fatalf("expected generated id")
	}
	if len(role.Permissions) != 2 || role.Permissions[1].Description != "view reports" {
		t.Fatalf("unexpected permissions: %+v", role.Permissions)
	}
	if !role.CreatedAt.Equal(now) {
		t.Fatalf("created_at not scanned: %v", role.CreatedAt)
	}
	expectMet(t, mock)
}

func TestCreateRoleUnknownPermissionRollsBack(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("insert into roles").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), "perm_missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.CreateRole(context.Background(), auth.Role{OrganizationID: "org-1", Name: "x", DisplayName: "X"}, []string{"perm_missing"})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateRoleDuplicateNameConflicts(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("insert into roles").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "roles_organization_name_key"})
	mock.ExpectRollback()

	_, err := store.CreateRole(context.Background(), auth.Role{OrganizationID: "org-1", Name: "manager", DisplayName: "Manager"}, nil)
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestListRolesAttachesPermissions(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery("from roles r").WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(roleCols).
			AddRow("r1", "org-1", "auditor", "Auditor", nil, false, true, now, now).
			AddRow("r2", nil, "global", "Global", "shared", true, true, now, now))
	mock.ExpectQuery("join roles r on r.id = rp.role_id").WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(append([]string{"role_id"}, permissionCols...)).
			AddRow("r2", "perm_a", "a.read", "A", nil, "a", "read", now).
			AddRow("r1", "perm_b", "b.read", "B", nil, "b", "read", now).
			AddRow("r2", "perm_c", "c.read", "C", nil, "c", "read", now))

	roles, err := store.ListRoles(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if roles[1].OrganizationID != "" || roles[1].Description != "shared" {
		t.Fatalf("nullable columns not mapped: %+v", roles[1])
	}
	if len(roles[0].Permissions) != 1 || len(roles[1].Permissions) != 2 {
		t.Fatalf("permissions not attached: %+v", roles)
	}
	expectMet(t, mock)
}

func TestUpdateRoleBuildsPartialSet(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	name := "Lead"
	perms := []string{"perm_a"}

	mock.ExpectBegin()
	mock.ExpectExec(`update roles set display_name = \$1, updated_at = now\(\) where id = \$2`).
		WithArgs("Lead", "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from role_permissions").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("insert into role_permissions").WithArgs("r1", "perm_a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("from roles r where").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(roleCols).AddRow("r1", "org-1", "lead", "Lead", nil, false, true, now, now))
	mock.ExpectQuery("from role_permissions rp").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(permissionCols).AddRow("perm_a", "a.read", "A", nil, "a", "read", now))
	mock.ExpectCommit()

	role, err := store.UpdateRole(context.Background(), "r1", auth.RoleUpdate{DisplayName: &name, PermissionIDs: &perms})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if role.DisplayName != "Lead" || len(role.Permissions) != 1 {
		t.Fatalf("unexpected role: %+v", role)
	}
	expectMet(t, mock)
}

func TestUpdateRoleMissing(t *testing.T) {
	store, mock := newMock(t)
	active := false

	mock.ExpectBegin()
	mock.ExpectExec("update roles set is_active").WithArgs(false, "nope").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.UpdateRole(context.Background(), "nope", auth.RoleUpdate{IsActive: &active})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestDeleteRoleInUse(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select count").WithArgs("r1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := store.DeleteRole(context.Background(), "r1")
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestDeleteRoleMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select count").WithArgs("r1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("delete from role_permissions").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from roles").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteRole(context.Background(), "r1")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestAssignPrimaryClearsPrevious(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("for update").WithArgs("emp-1").WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectExec("update employee_roles set is_primary = false").WithArgs("emp-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("insert into employee_roles").
		WithArgs(sqlmock.AnyArg(), "emp-1", "r1", "admin-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_at"}).AddRow(now))
	mock.ExpectCommit()

	a, err := store.AssignRole(context.Background(), auth.Assignment{EmployeeID: "emp-1", RoleID: "r1", AssignedBy: "admin-1", IsPrimary: true})
	if err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if a.ID == "" || !a.AssignedAt.Equal(now) {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	expectMet(t, mock)
}

func TestAssignDuplicateConflicts(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("for update").WithArgs("emp-1").WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectQuery("insert into employee_roles").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "employee_roles_employee_id_role_id_key"})
	mock.ExpectRollback()

	_, err := store.AssignRole(context.Background(), auth.Assignment{EmployeeID: "emp-1", RoleID: "r1"})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestAssignUnknownEmployee(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("for update").WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := store.AssignRole(context.Background(), auth.Assignment{EmployeeID: "ghost", RoleID: "r1"})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestUnassignMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("delete from employee_roles").WithArgs("emp-1", "r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "assigned_by", "assigned_at", "is_primary"}))

	_, err := store.UnassignRole(context.Background(), "emp-1", "r1")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestPutSettingsReportsPrevious(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("for update").WithArgs("org-1", "company_name").
		WillReturnRows(sqlmock.NewRows(settingCols).
			AddRow("s1", "org-1", "general", "company_name", "Old", "string", nil, false, now, now))
	mock.ExpectQuery("insert into organization_settings").
		WithArgs(sqlmock.AnyArg(), "org-1", "general", "company_name", "New", "string", nil, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("s1", now, now))
	mock.ExpectQuery("for update").WithArgs("org-1", "fresh").
		WillReturnRows(sqlmock.NewRows(settingCols))
	mock.ExpectQuery("insert into organization_settings").
		WithArgs(sqlmock.AnyArg(), "org-1", "general", "fresh", "1", "integer", nil, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("s2", now, now))
	mock.ExpectCommit()

	changes, err := store.PutSettings(context.Background(), "org-1", []auth.Setting{
		{Category: "general", Key: "company_name", Value: "New", DataType: "string"},
		{Category: "general", Key: "fresh", Value: "1", DataType: "integer"},
	})
	if err != nil {
		t.Fatalf("PutSettings: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Previous == nil || changes[0].Previous.Value != "Old" {
		t.Fatalf("expected previous value, got %+v", changes[0].Previous)
	}
	if changes[1].Previous != nil || changes[1].Current.ID != "s2" {
		t.Fatalf("unexpected insert change: %+v", changes[1])
	}
	expectMet(t, mock)
}

func TestAppendAuditStoresNullHalves(t *testing.T) {
	store, mock := newMock(t)
	newValues := []byte(`{"name":"auditor"}`)

	mock.ExpectExec("insert into audit_logs").
		WithArgs("a1", "org-1", "emp-1", "create_role", "role", "r1", nil, newValues, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendAudit(context.Background(), audit.Entry{
		ID:             "a1",
		OrganizationID: "org-1",
		ActorID:        "emp-1",
		Action:         "create_role",
		ResourceType:   "role",
		ResourceID:     "r1",
		Change:         audit.Change{New: newValues},
		OccurredAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	expectMet(t, mock)
}

func TestQueryAuditFiltersAndPages(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`select count\(\*\) from audit_logs where organization_id = \$1 and strpos\(lower\(action\), lower\(\$2\)\) > 0`).
		WithArgs("org-1", "ROLE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`limit \$3 offset \$4`).
		WithArgs("org-1", "ROLE", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "user_id", "action", "resource_type", "resource_id",
			"old_values", "new_values", "ip_address", "user_agent", "occurred_at"}).
			AddRow("a2", "org-1", nil, "assign_role", "employee_role", "emp-1", nil, []byte(`{"role_id":"r1"}`), "10.0.0.1", nil, now))

	page, err := store.QueryAudit(context.Background(), audit.Filter{OrganizationID: "org-1", Action: "ROLE", Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("QueryAudit: %v", err)
	}
	if page.Total != 12 || page.TotalPages != 2 || page.Page != 2 {
		t.Fatalf("unexpected paging: %+v", page)
	}
	if len(page.Items) != 1 || page.Items[0].ActorID != "" || page.Items[0].IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if len(page.Items[0].Change.Old) != 0 || string(page.Items[0].Change.New) != `{"role_id":"r1"}` {
		t.Fatalf("unexpected change: %+v", page.Items[0].Change)
	}
	expectMet(t, mock)
}

func TestEmployeeHasPermission(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select exists").WithArgs("emp-1", "employee.read").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.EmployeeHasPermission(context.Background(), "emp-1", "employee.read")
	if err != nil || !ok {
		t.Fatalf("expected permission, got %v %v", ok, err)
	}
	expectMet(t, mock)
}

func TestGetEmployeeNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("from employees where id").WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	if _, err := store.GetEmployee(context.Background(), "ghost"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestNilDatabase(t *testing.T) {
	var s Store
	if _, err := s.GetRole(context.Background(), "r1"); !errors.Is(err, errNoDB) {
		t.Fatalf("expected errNoDB, got %v", err)
	}
	if err := s.AppendAudit(context.Background(), audit.Entry{}); !errors.Is(err, errNoDB) {
		t.Fatalf("expected errNoDB, got %v", err)
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{pgerrcode.UniqueViolation, auth.ErrConflict},
		{pgerrcode.ForeignKeyViolation, auth.ErrNotFound},
		{pgerrcode.CheckViolation, auth.ErrInvalidInput},
		{pgerrcode.NotNullViolation, auth.ErrInvalidInput},
	}
	for _, tc := range cases {
		err := mapError(&pgconn.PgError{Code: tc.code})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.code, tc.want, err)
		}
	}
	if err := mapDeleteError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected delete FK violation to conflict, got %v", err)
	}
	plain := errors.New("boom")
	if mapError(plain) != plain {
		t.Fatalf("expected unrelated errors to pass through")
	}
}
