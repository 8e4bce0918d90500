// Package resolver implements spec.md §4.6's profile resolution:
// turning an authenticated email plus route hints into a narrowed
// Profile.
package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
)

// UserRepository looks up a User and its owning account by email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (profile.User, bool, error)
}

// AccountRepository loads an account's type classification.
type AccountRepository interface {
	Find(ctx context.Context, id uuid.UUID) (profile.Account, bool, error)
}

// LicensedResourceRepository loads every LicensedResource a user can
// reach, unfiltered -- the resolver applies route hints afterward.
type LicensedResourceRepository interface {
	ForUser(ctx context.Context, userID uuid.UUID) ([]profile.LicensedResource, error)
}

// TenantOwnershipRepository loads the tenants a user owns.
type TenantOwnershipRepository interface {
	OwnedTenants(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}

// Hints are the route-supplied narrowing parameters (spec.md §4.6
// "Inputs: email, optional {tenant_id, required_roles,
// required_permissioned_roles}").
type Hints struct {
	TenantID                  uuid.UUID
	HasTenant                 bool
	RequiredRoles             []string
	RequiredPermissionedRoles []profile.RoleWithPermission
	WithWriteAccess           bool
	WithSystemAccountsAccess  bool
}

// Resolver implements the five-step algorithm of spec.md §4.6.
type Resolver struct {
	users             UserRepository
	accounts          AccountRepository
	licensedResources LicensedResourceRepository
	ownership         TenantOwnershipRepository
}

func New(users UserRepository, accounts AccountRepository, licensedResources LicensedResourceRepository, ownership TenantOwnershipRepository) *Resolver {
	return &Resolver{
		users:             users,
		accounts:          accounts,
		licensedResources: licensedResources,
		ownership:         ownership,
	}
}

// Resolve builds a Profile for email, narrowed by hints.
func (r *Resolver) Resolve(ctx context.Context, email string, hints Hints) (profile.Profile, error) {
	user, found, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return profile.Profile{}, err
	}
	if !found {
		return profile.Profile{}, merr.ErrUserNotFound
	}

	account, found, err := r.accounts.Find(ctx, user.AccountID)
	if err != nil {
		return profile.Profile{}, err
	}
	if !found {
		return profile.Profile{}, merr.ErrUserNotFound
	}

	resources, err := r.licensedResources.ForUser(ctx, user.ID)
	if err != nil {
		return profile.Profile{}, err
	}

	owned, err := r.ownership.OwnedTenants(ctx, user.ID)
	if err != nil {
		return profile.Profile{}, err
	}

	p, err := profile.NewProfile(account.Owners, user.AccountID)
	if err != nil {
		return profile.Profile{}, merr.ErrInternal.Wrap(err)
	}
	p.IsSubscription = account.Type.IsSubscription()
	p.IsManager = account.Type.IsManager()
	p.IsStaff = account.Type.IsStaff()
	p.VerboseStatus = account.VerboseStatus()
	p.LicensedResources = resources
	p.TenantsOwnership = owned

	p = applyHints(p, hints)
	return p, nil
}

func applyHints(p profile.Profile, h Hints) profile.Profile {
	if h.HasTenant {
		p = p.OnTenant(h.TenantID)
	}
	if len(h.RequiredRoles) > 0 {
		p = p.WithRoles(h.RequiredRoles...)
	}
	if len(h.RequiredPermissionedRoles) > 0 {
		p = p.WithPermissionedRoles(h.RequiredPermissionedRoles...)
	}
	if h.WithWriteAccess {
		p = p.WithWriteAccess()
	}
	if h.WithSystemAccountsAccess {
		p = p.WithSystemAccountsAccess()
	}
	return p
}
