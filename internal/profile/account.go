// Package profile models the authorization context of the gateway: the
// Account/Tenant/User domain from spec.md §3, and the Profile filter
// algebra from spec.md §4.6/§4.9.
package profile

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VerboseStatus is the derived, prioritized view of an account's boolean
// flags (spec.md §3, law: deleted > inactive > unverified > archived >
// verified > unknown).
type VerboseStatus string

const (
	StatusDeleted    VerboseStatus = "deleted"
	StatusInactive   VerboseStatus = "inactive"
	StatusUnverified VerboseStatus = "unverified"
	StatusArchived   VerboseStatus = "archived"
	StatusVerified   VerboseStatus = "verified"
	StatusUnknown    VerboseStatus = "unknown"
)

// AccountFlags are the four independent booleans backing VerboseStatus.
type AccountFlags struct {
	Active   bool
	Checked  bool
	Archived bool
	Deleted  bool
}

// FromFlags derives the verbose status with the priority order fixed by
// spec.md §8 law 1: deleted, then inactive, then unverified, then
// archived, then verified. Unknown is never produced by FromFlags --
// every combination of the four booleans maps to one of the other five.
func FromFlags(f AccountFlags) VerboseStatus {
	switch {
	case f.Deleted:
		return StatusDeleted
	case !f.Active:
		return StatusInactive
	case !f.Checked:
		return StatusUnverified
	case f.Archived:
		return StatusArchived
	default:
		return StatusVerified
	}
}

// ToFlags is the partial inverse of FromFlags. It never returns a flag
// set for StatusUnknown because FromFlags never produces it.
func ToFlags(s VerboseStatus) (AccountFlags, bool) {
	switch s {
	case StatusDeleted:
		return AccountFlags{Active: true, Checked: true, Deleted: true}, true
	case StatusInactive:
		return AccountFlags{Active: false}, true
	case StatusUnverified:
		return AccountFlags{Active: true, Checked: false}, true
	case StatusArchived:
		return AccountFlags{Active: true, Checked: true, Archived: true}, true
	case StatusVerified:
		return AccountFlags{Active: true, Checked: true}, true
	default:
		return AccountFlags{}, false
	}
}

// AccountTypeKind discriminates the closed AccountType sum from spec.md §3.
type AccountTypeKind string

const (
	AccountTypeUser            AccountTypeKind = "user"
	AccountTypeStaff           AccountTypeKind = "staff"
	AccountTypeManager         AccountTypeKind = "manager"
	AccountTypeSubscription    AccountTypeKind = "subscription"
	AccountTypeRoleAssociated  AccountTypeKind = "role_associated"
	AccountTypeActorAssociated AccountTypeKind = "actor_associated"
	AccountTypeTenantManager   AccountTypeKind = "tenant_manager"
)

// AccountType is the closed sum. Only the fields relevant to Kind are
// populated; this mirrors a tagged union without needing a type switch
// per variant at every call site.
type AccountType struct {
	Kind         AccountTypeKind
	TenantID     uuid.UUID // Subscription, RoleAssociated, TenantManager
	RoleName     string    // RoleAssociated
	ReadRoleID   uuid.UUID // RoleAssociated
	WriteRoleID  uuid.UUID // RoleAssociated
	ActorAccount uuid.UUID // ActorAssociated
}

func (t AccountType) IsSubscription() bool { return t.Kind == AccountTypeSubscription }
func (t AccountType) IsManager() bool      { return t.Kind == AccountTypeManager }
func (t AccountType) IsStaff() bool        { return t.Kind == AccountTypeStaff }

// Owner is a minimal identity reference carried on a Profile or Tenant:
// enough to render who owns something without re-fetching the user row.
type Owner struct {
	ID          uuid.UUID
	Email       string
	FirstName   string
	LastName    string
	IsPrincipal bool
}

// Account is the spec.md §3 Account entity.
type Account struct {
	ID             uuid.UUID
	Name           string
	Slug           string
	Tags           []string
	Flags          AccountFlags
	IsSystemAccount bool
	Type           AccountType
	Owners         []Owner
	GuestUsers     []Owner
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      uuid.UUID
	UpdatedBy      uuid.UUID
}

// VerboseStatus derives the account's status from its flags.
func (a Account) VerboseStatus() VerboseStatus { return FromFlags(a.Flags) }

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ToSlug derives the account's immutable programmatic-access slug from
// its display name: lowercase, replace each run of characters outside
// [a-z0-9] with a single hyphen, trim leading/trailing hyphens. Nothing
// is ASCII-folded, so accented and other non-ASCII letters become
// hyphens as well. Uniqueness is enforced by the storage layer, not here.
func ToSlug(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	slug := slugNonAlnum.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
