package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josemwas/HR-management/internal/obs"
)

// Principal is an actor with its effective permission set preloaded.
type Principal struct {
	Actor       Actor
	Permissions map[string]struct{}
}

// NewPrincipal builds a principal from a permission list.
func NewPrincipal(actor Actor, perms []Permission) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Name] = struct{}{}
	}
	return Principal{Actor: actor, Permissions: set}
}

// HasPermission reports whether the principal may perform the action gated by name.
func (p Principal) HasPermission(name string) bool {
	if p.Actor.Super {
		return true
	}
	_, ok := p.Permissions[name]
	return ok
}

// Resolve loads the actor behind actorID. Unknown or disabled employees are not
// authenticated.
func (s *RBACService) Resolve(ctx context.Context, actorID string) (Actor, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Actor{}, ErrUnauthenticated
	}
	emp, err := s.store.GetEmployee(ctx, actorID)
	if errors.Is(err, ErrNotFound) {
		return Actor{}, ErrUnauthenticated
	}
	if err != nil {
		return Actor{}, err
	}
	if emp.Status == EmployeeStatusDisabled {
		return Actor{}, fmt.Errorf("%w: account disabled", ErrUnauthenticated)
	}
	return actorFromEmployee(emp), nil
}

// Can reports whether actor holds permission through any assigned role. The super actor
// holds every permission, including names outside the catalog.
func (s *RBACService) Can(ctx context.Context, actor Actor, permission string) (bool, error) {
	permission = strings.TrimSpace(permission)
	if actor.Super {
		obs.ObserveDecision(permission, true)
		return true, nil
	}
	if permission == "" || actor.EmployeeID == "" {
		obs.ObserveDecision(permission, false)
		return false, nil
	}
	ok, err := s.store.EmployeeHasPermission(ctx, actor.EmployeeID, permission)
	if err != nil {
		return false, err
	}
	obs.ObserveDecision(permission, ok)
	return ok, nil
}

// Authorize resolves actorID and checks permission. It fails with ErrUnauthenticated when
// the actor cannot be resolved and ErrForbidden when the permission is missing.
func (s *RBACService) Authorize(ctx context.Context, actorID, permission string) (Actor, error) {
	actor, err := s.Resolve(ctx, actorID)
	if err != nil {
		return Actor{}, err
	}
	ok, err := s.Can(ctx, actor, permission)
	if err != nil {
		return Actor{}, err
	}
	if !ok {
		return actor, fmt.Errorf("%w: %s", ErrForbidden, permission)
	}
	return actor, nil
}

// EffectivePermissions lists the permissions the actor holds. The super actor holds the
// whole catalog.
func (s *RBACService) EffectivePermissions(ctx context.Context, actor Actor) ([]Permission, error) {
	if actor.Super {
		return s.store.ListPermissions(ctx)
	}
	return s.store.EmployeePermissions(ctx, actor.EmployeeID)
}

// Principal resolves actorID together with its effective permissions.
func (s *RBACService) Principal(ctx context.Context, actorID string) (Principal, error) {
	actor, err := s.Resolve(ctx, actorID)
	if err != nil {
		return Principal{}, err
	}
	perms, err := s.EffectivePermissions(ctx, actor)
	if err != nil {
		return Principal{}, err
	}
	return NewPrincipal(actor, perms), nil
}
