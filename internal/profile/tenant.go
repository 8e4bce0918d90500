package profile

import (
	"time"

	"github.com/google/uuid"
)

// TenantMetaKey is the closed key-enum for Tenant.Meta.
type TenantMetaKey string

const (
	TenantMetaAppURL      TenantMetaKey = "app_url"
	TenantMetaSupportURL  TenantMetaKey = "support_url"
	TenantMetaLogoURL     TenantMetaKey = "logo_url"
	TenantMetaPrimaryColor TenantMetaKey = "primary_color"
)

// TenantStatusKind is the closed sum for a single tenant status entry.
type TenantStatusKind string

const (
	TenantStatusVerified TenantStatusKind = "verified"
	TenantStatusArchived TenantStatusKind = "archived"
	TenantStatusTrashed  TenantStatusKind = "trashed"
)

// TenantStatus records one status transition with its actor.
type TenantStatus struct {
	Kind      TenantStatusKind
	Timestamp time.Time
	ActorID   uuid.UUID
}

// Tenant is the spec.md §3 Tenant entity. Owners is a non-empty
// invariant enforced by NewTenant; a tenant with no owner cannot be
// constructed.
type Tenant struct {
	ID          uuid.UUID
	Name        string
	Description string
	Meta        map[TenantMetaKey]string
	Tags        []string
	Status      []TenantStatus
	Owners      []Owner
	ManagerID   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTenant constructs a Tenant, enforcing the non-empty-owners
// invariant from spec.md §3 (original_source's tenant_fetching.rs
// enforces the same NonEmpty<Owner> contract).
func NewTenant(id uuid.UUID, name, description string, owners []Owner) (Tenant, error) {
	if len(owners) == 0 {
		return Tenant{}, errEmptyOwners
	}
	return Tenant{
		ID:          id,
		Name:        name,
		Description: description,
		Owners:      owners,
		Meta:        map[TenantMetaKey]string{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// CurrentStatus returns the most recent status entry, if any.
func (t Tenant) CurrentStatus() (TenantStatus, bool) {
	if len(t.Status) == 0 {
		return TenantStatus{}, false
	}
	latest := t.Status[0]
	for _, s := range t.Status[1:] {
		if s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	return latest, true
}

// IsOwnedBy reports whether ownerID owns this tenant.
func (t Tenant) IsOwnedBy(ownerID uuid.UUID) bool {
	for _, o := range t.Owners {
		if o.ID == ownerID {
			return true
		}
	}
	return false
}
