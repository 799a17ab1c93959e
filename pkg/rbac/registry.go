package rbac

import (
	"context"
	"errors"
	"fmt"
)

// Registry resolves roles and per-user permission overrides across the
// built-in table and the custom-role store, with optional caching. A nil
// Registry (or one without a store) resolves built-in roles only, which is
// the static-configuration mode of the portal.
type Registry struct {
	store *Store
	cache *Cache
}

// NewRegistry creates a registry over a store. The cache may be nil.
func NewRegistry(store *Store, cache *Cache) *Registry {
	return &Registry{store: store, cache: cache}
}

// Role resolves a role definition. Built-in roles always win; custom roles
// are consulted only for names outside the closed built-in set.
func (r *Registry) Role(ctx context.Context, name RoleName, companyID *int64) (Role, bool) {
	if role, ok := RoleByName(name); ok {
		return role, true
	}
	if r == nil || r.store == nil {
		return Role{}, false
	}

	if r.cache != nil {
		if role, ok := r.cache.GetRole(ctx, name, companyID); ok {
			return *role, true
		}
	}

	role, err := r.store.GetRoleByName(ctx, name, companyID)
	if err != nil {
		return Role{}, false
	}
	if r.cache != nil {
		r.cache.SetRole(ctx, role)
	}
	return *role, true
}

// Hydrate populates the user's explicit permission list from the store:
// per-user overrides first, else a custom role's bundle for roles outside
// the built-in set. Users with built-in roles and no overrides are left
// untouched so the pure resolver keeps using the static table.
func (r *Registry) Hydrate(ctx context.Context, u *User) error {
	if r == nil || r.store == nil || u == nil {
		return nil
	}
	if len(u.Permissions) > 0 {
		return nil
	}

	if r.cache != nil {
		if perms, ok := r.cache.GetUserPermissions(ctx, u.ID); ok {
			u.Permissions = perms
			return nil
		}
	}

	perms, err := r.store.GetUserPermissions(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("hydrate user %s: %w", u.ID, err)
	}

	if len(perms) == 0 {
		if _, builtIn := RoleByName(u.Role); !builtIn {
			role, err := r.store.GetRoleByName(ctx, u.Role, u.CompanyID)
			switch {
			case errors.Is(err, ErrRoleNotFound):
				// Unknown role: leave the list empty and fail closed.
			case err != nil:
				return fmt.Errorf("hydrate user %s: %w", u.ID, err)
			default:
				perms = role.Permissions
			}
		}
	}

	if r.cache != nil {
		r.cache.SetUserPermissions(ctx, u.ID, perms)
	}
	u.Permissions = perms
	return nil
}

// Invalidate drops cached state for a user after a grant or revocation
func (r *Registry) Invalidate(ctx context.Context, userID string) {
	if r != nil && r.cache != nil {
		r.cache.InvalidateUser(ctx, userID)
	}
}
