package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/webhook"
)

// AccountRepository is the subset of account persistence every use case
// in this package needs.
type AccountRepository interface {
	Find(ctx context.Context, id uuid.UUID) (profile.Account, bool, error)
	Insert(ctx context.Context, a profile.Account) error
	Update(ctx context.Context, a profile.Account) error
}

// WebhookDispatcher is the narrow interface use cases need from the
// dispatcher: fire-and-forget fan-out keyed by trigger.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, trigger webhook.Trigger, correspondenceID uuid.UUID, entity interface{})
}

// authorize implements spec.md §4.9 step 1: narrow the profile by
// tenant/roles/write-access and resolve to the caller's related
// account, short-circuiting with Forbidden on failure. Every use case
// in this package calls this first.
func authorize(p profile.Profile, tenantID uuid.UUID, roles []string, requireWrite bool) ([]uuid.UUID, error) {
	narrowed := p.OnTenant(tenantID)
	if len(roles) > 0 {
		narrowed = narrowed.WithRoles(roles...)
	}
	if requireWrite {
		narrowed = narrowed.WithWriteAccess()
	}
	return narrowed.GetRelatedAccountOrError()
}
