package profile

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientPrivileges is returned by GetRelatedAccountOrError when
// no account satisfies the active filter hints.
var ErrInsufficientPrivileges = errors.New("profile: insufficient privileges")

// filterHints narrow a Profile's view of LicensedResources. They are
// never persisted -- only ever set transiently by the fluent
// constructors below while a single request is being authorized.
type filterHints struct {
	tenantID              uuid.UUID
	hasTenant             bool
	requiredRoles         map[string]bool
	requiredPermissioned  map[string]bool // "role\x00permission"
	systemAccountsOnly    bool
	writeAccessOnly       bool
}

// Profile is the authorization context attached to a request
// (spec.md §3/§4.6). It is immutable after construction: every fluent
// method below returns a fresh value, never mutates the receiver. This
// is a concurrency-correctness requirement -- a Profile is shared across
// a single request's tasks but must never leak a narrowing filter into
// another request (spec.md §9 design notes).
type Profile struct {
	Owners             []Owner
	AccountID          uuid.UUID
	IsSubscription     bool
	IsManager          bool
	IsStaff            bool
	VerboseStatus      VerboseStatus
	LicensedResources  []LicensedResource
	TenantsOwnership   map[uuid.UUID]bool

	hints filterHints
}

// NewProfile constructs a Profile, enforcing the non-empty-owners
// invariant (spec.md §3).
func NewProfile(owners []Owner, accountID uuid.UUID) (Profile, error) {
	if len(owners) == 0 {
		return Profile{}, errEmptyOwnerSet
	}
	return Profile{
		Owners:           owners,
		AccountID:        accountID,
		TenantsOwnership: map[uuid.UUID]bool{},
	}, nil
}

func (p Profile) clone() Profile {
	out := p
	if p.hints.requiredRoles != nil {
		out.hints.requiredRoles = cloneSet(p.hints.requiredRoles)
	}
	if p.hints.requiredPermissioned != nil {
		out.hints.requiredPermissioned = cloneSet(p.hints.requiredPermissioned)
	}
	return out
}

func cloneSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// OnTenant narrows to a single tenant. Passing uuid.Nil clears the hint.
func (p Profile) OnTenant(tenantID uuid.UUID) Profile {
	out := p.clone()
	out.hints.tenantID = tenantID
	out.hints.hasTenant = tenantID != uuid.Nil
	return out
}

// WithRoles narrows to licensed resources whose role is one of roles.
func (p Profile) WithRoles(roles ...string) Profile {
	out := p.clone()
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	out.hints.requiredRoles = set
	return out
}

// RoleWithPermission pairs a role name with the permission required of
// it, for WithPermissionedRoles.
type RoleWithPermission struct {
	Role       string
	Permission Permission
}

func permissionedKey(role string, perm Permission) string {
	return role + "\x00" + perm.String()
}

// WithPermissionedRoles narrows to licensed resources whose
// (role, permission) pair is one of prs.
func (p Profile) WithPermissionedRoles(prs ...RoleWithPermission) Profile {
	out := p.clone()
	set := make(map[string]bool, len(prs))
	for _, pr := range prs {
		set[permissionedKey(pr.Role, pr.Permission)] = true
	}
	out.hints.requiredPermissioned = set
	return out
}

// WithWriteAccess narrows to licensed resources carrying Write
// permission.
func (p Profile) WithWriteAccess() Profile {
	out := p.clone()
	out.hints.writeAccessOnly = true
	return out
}

// WithSystemAccountsAccess narrows to licensed resources flagged
// sys_acc.
func (p Profile) WithSystemAccountsAccess() Profile {
	out := p.clone()
	out.hints.systemAccountsOnly = true
	return out
}

// HasFilterHints reports whether any narrowing hint is currently set.
func (p Profile) HasFilterHints() bool {
	h := p.hints
	return h.hasTenant || len(h.requiredRoles) > 0 || len(h.requiredPermissioned) > 0 ||
		h.systemAccountsOnly || h.writeAccessOnly
}

// FilteredLicensedResources applies every active hint (ANDed) to
// LicensedResources, per spec.md §4.6 step 4.
func (p Profile) FilteredLicensedResources() []LicensedResource {
	h := p.hints
	out := make([]LicensedResource, 0, len(p.LicensedResources))
	for _, lr := range p.LicensedResources {
		if h.hasTenant && lr.TenantID != h.tenantID {
			continue
		}
		if len(h.requiredRoles) > 0 && !h.requiredRoles[lr.Role] {
			continue
		}
		if len(h.requiredPermissioned) > 0 && !h.requiredPermissioned[permissionedKey(lr.Role, lr.Permission)] {
			continue
		}
		if h.writeAccessOnly && lr.Permission != PermissionWrite {
			continue
		}
		if h.systemAccountsOnly && !lr.SysAcc {
			continue
		}
		out = append(out, lr)
	}
	return out
}

// GetRelatedAccountOrError returns either the caller's own account id
// (when it owns that account and no filter hints are active) or the
// deduplicated set of account ids across the filtered licensed
// resources. An empty result is ErrInsufficientPrivileges, per
// spec.md §4.6/§4.9.
func (p Profile) GetRelatedAccountOrError() ([]uuid.UUID, error) {
	// AccountID is always the caller's own resolved account (the
	// resolver never sets it to anything else), so with no narrowing
	// hints active the caller is simply authorized against itself.
	if !p.HasFilterHints() {
		return []uuid.UUID{p.AccountID}, nil
	}

	filtered := p.FilteredLicensedResources()
	seen := make(map[uuid.UUID]bool, len(filtered))
	out := make([]uuid.UUID, 0, len(filtered))
	for _, lr := range filtered {
		if seen[lr.AccountID] {
			continue
		}
		seen[lr.AccountID] = true
		out = append(out, lr.AccountID)
	}

	if len(out) == 0 {
		return nil, ErrInsufficientPrivileges
	}
	return out, nil
}
