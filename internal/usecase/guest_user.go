package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/webhook"
)

// ErrGuestEmailRequired is returned by RegisterGuestUser when the guest
// has no email set.
var ErrGuestEmailRequired = errors.New("usecase: guest email is required")

// RegisterGuestUser implements spec.md §4.9's second representative use
// case: a guest is attached to an existing account as a non-owning
// collaborator. The target account must already be a subscription or a
// role-associated account -- a guest never lands directly on a staff,
// manager, actor-associated, or tenant-manager account.
func RegisterGuestUser(
	ctx context.Context,
	p profile.Profile,
	accounts AccountRepository,
	dispatcher WebhookDispatcher,
	tenantID uuid.UUID,
	targetAccountID uuid.UUID,
	guest profile.Owner,
) (Result, error) {
	// Step 1: authorize. Registering a guest on a tenant's account
	// requires manager role and write access on that tenant.
	if _, err := authorize(p, tenantID, []string{"manager"}, true); err != nil {
		if errors.Is(err, profile.ErrInsufficientPrivileges) {
			return NotUpdated, merr.ErrInsufficientPrivileges
		}
		return NotUpdated, err
	}

	if guest.Email == "" {
		return NotUpdated, merr.ErrBadFormat.Wrap(ErrGuestEmailRequired)
	}

	account, found, err := accounts.Find(ctx, targetAccountID)
	if err != nil {
		return NotUpdated, err
	}
	if !found {
		return NotFound, nil
	}

	// Step 2: the target account type invariant. A guest may only be
	// registered against a subscription or role-associated account.
	if account.Type.Kind != profile.AccountTypeSubscription && account.Type.Kind != profile.AccountTypeRoleAssociated {
		return NotUpdated, merr.ErrInsufficientPrivileges
	}

	for _, existing := range account.GuestUsers {
		if existing.Email == guest.Email {
			return NotUpdated, merr.ErrDuplicateResource
		}
	}

	account.GuestUsers = append(account.GuestUsers, guest)
	if err := accounts.Update(ctx, account); err != nil {
		return NotUpdated, err
	}

	dispatcher.Dispatch(ctx, webhook.TriggerGuestUserRegistered, uuid.New(), account)

	return Updated, nil
}
