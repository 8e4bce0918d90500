package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/webhook"
)

// ErrNameRequired is returned when CreateSubscriptionAccount is called
// with an empty display name.
var ErrNameRequired = errors.New("usecase: subscription account name is required")

// CreateSubscriptionAccount implements spec.md §4.9's representative
// "subscription-account creation" use case: authorize, validate, create,
// emit webhook, return a Result that maps to HTTP status at the edge.
func CreateSubscriptionAccount(
	ctx context.Context,
	p profile.Profile,
	accounts AccountRepository,
	dispatcher WebhookDispatcher,
	tenantID uuid.UUID,
	name string,
) (Result, error) {
	// Step 1: authorize (spec.md §4.9 step 1). Only a tenant manager
	// with write access may create subscription accounts under that
	// tenant.
	if _, err := authorize(p, tenantID, []string{"manager"}, true); err != nil {
		if errors.Is(err, profile.ErrInsufficientPrivileges) {
			return NotCreated, merr.ErrInsufficientPrivileges
		}
		return NotCreated, err
	}

	// Step 2: validate input invariants.
	if name == "" {
		return NotCreated, merr.ErrBadFormat.Wrap(ErrNameRequired)
	}

	// Step 3: perform the state change.
	account := profile.Account{
		ID:     uuid.New(),
		Name:   name,
		Slug:   profile.ToSlug(name),
		Flags:  profile.AccountFlags{Active: true, Checked: true},
		Type:   profile.AccountType{Kind: profile.AccountTypeSubscription, TenantID: tenantID},
		Owners: p.Owners,
	}
	if err := accounts.Insert(ctx, account); err != nil {
		if merrE, ok := merr.As(err); ok && merrE.Code == merr.ErrDuplicateResource.Code {
			return NotCreated, merrE
		}
		return NotCreated, err
	}

	// Step 4: emit webhook events, correspondence UUID shared across
	// every hook this invocation fires.
	dispatcher.Dispatch(ctx, webhook.TriggerSubscriptionAccountCreated, uuid.New(), account)

	return Created, nil
}
