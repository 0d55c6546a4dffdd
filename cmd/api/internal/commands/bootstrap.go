package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/auth"
)

type BootstrapCmd struct {
	OrgName       string `help:"organization name" required:""`
	AdminEmail    string `help:"email of an administrator to create"`
	AdminPassword string `help:"password of the administrator" env:"HR_ADMIN_PASSWORD"`
	AdminFirst    string `help:"administrator first name" default:"System"`
	AdminLast     string `help:"administrator last name" default:"Administrator"`
}

func (c *BootstrapCmd) Run(ctx context.Context, globals *Globals) error {
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("--admin-email and --admin-password must be given together")
	}
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.rbac.EnsureCatalog(ctx); err != nil {
		return err
	}
	return bootstrapOrganization(ctx, svc.rbac, seedSpec{
		OrgName:       c.OrgName,
		AdminEmail:    c.AdminEmail,
		AdminPassword: c.AdminPassword,
		AdminFirst:    c.AdminFirst,
		AdminLast:     c.AdminLast,
	})
}

// seedSpec describes an organization and optional administrator to create.
type seedSpec struct {
	OrgName       string
	AdminEmail    string
	AdminPassword string
	AdminFirst    string
	AdminLast     string
}

// bootstrapOrganization creates the organization with its default roles and settings and,
// when an email is given, an administrator holding the organization super_admin role as
// primary. The permission catalog must already exist.
func bootstrapOrganization(ctx context.Context, rbac *auth.RBACService, spec seedSpec) error {
	org, err := rbac.CreateOrganization(ctx, spec.OrgName)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	res, err := rbac.InitializeOrganization(ctx, org.ID)
	if err != nil {
		return err
	}
	fmt.Printf("organization %s (%s): %d roles, %d settings\n", org.Name, org.ID, res.RolesCreated, res.SettingsCreated)

	if spec.AdminEmail == "" {
		return nil
	}
	admin, err := rbac.CreateEmployee(ctx, auth.EmployeeInput{
		OrganizationID: org.ID,
		Email:          spec.AdminEmail,
		Password:       spec.AdminPassword,
		FirstName:      spec.AdminFirst,
		LastName:       spec.AdminLast,
		AccountRole:    auth.SuperAdminAccountRole,
	})
	if err != nil {
		return fmt.Errorf("create administrator: %w", err)
	}
	actor := auth.SystemActor(org.ID)
	role, err := roleByName(ctx, rbac, actor, auth.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if _, err := rbac.AssignRole(ctx, actor, admin.ID, role.ID, true); err != nil {
		return fmt.Errorf("assign %s: %w", role.Name, err)
	}
	fmt.Printf("administrator %s (%s)\n", admin.Email, admin.ID)
	return nil
}

type CreateEmployeeCmd struct {
	OrgID       string   `help:"organization id" required:""`
	Email       string   `help:"login email" required:""`
	Password    string   `help:"initial password" required:"" env:"HR_EMPLOYEE_PASSWORD"`
	FirstName   string   `help:"first name"`
	LastName    string   `help:"last name"`
	AccountRole string   `help:"account role" default:"employee"`
	Roles       []string `help:"role names to assign; the first becomes primary"`
}

func (c *CreateEmployeeCmd) Run(ctx context.Context, globals *Globals) error {
	cfg, err := globals.loadConfig()
	if err != nil {
		return err
	}
	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	emp, err := svc.rbac.CreateEmployee(ctx, auth.EmployeeInput{
		OrganizationID: c.OrgID,
		Email:          c.Email,
		Password:       c.Password,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		AccountRole:    c.AccountRole,
	})
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	actor := auth.SystemActor(emp.OrganizationID)
	for i, name := range c.Roles {
		role, err := roleByName(ctx, svc.rbac, actor, name)
		if err != nil {
			return err
		}
		if _, err := svc.rbac.AssignRole(ctx, actor, emp.ID, role.ID, i == 0); err != nil {
			return fmt.Errorf("assign %s: %w", name, err)
		}
	}
	fmt.Printf("employee %s (%s)\n", emp.Email, emp.ID)
	return nil
}

func roleByName(ctx context.Context, rbac *auth.RBACService, actor auth.Actor, name string) (auth.Role, error) {
	roles, err := rbac.ListRoles(ctx, actor)
	if err != nil {
		return auth.Role{}, err
	}
	var found *auth.Role
	for i, r := range roles {
		if !strings.EqualFold(r.Name, name) {
			continue
		}
		if found == nil || r.OrganizationID == actor.OrganizationID {
			found = &roles[i]
		}
	}
	if found != nil {
		return *found, nil
	}
	return auth.Role{}, fmt.Errorf("%w: role %s", auth.ErrNotFound, name)
}
