package resolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	byEmail map[string]profile.User
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (profile.User, bool, error) {
	u, ok := f.byEmail[email]
	return u, ok, nil
}

type fakeAccounts struct {
	byID map[uuid.UUID]profile.Account
}

func (f fakeAccounts) Find(_ context.Context, id uuid.UUID) (profile.Account, bool, error) {
	a, ok := f.byID[id]
	return a, ok, nil
}

type fakeLicensedResources struct {
	byUser map[uuid.UUID][]profile.LicensedResource
}

func (f fakeLicensedResources) ForUser(_ context.Context, userID uuid.UUID) ([]profile.LicensedResource, error) {
	return f.byUser[userID], nil
}

type fakeOwnership struct {
	byUser map[uuid.UUID]map[uuid.UUID]bool
}

func (f fakeOwnership) OwnedTenants(_ context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	return f.byUser[userID], nil
}

func TestResolveBuildsProfileAndAppliesHints(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	accountID := uuid.New()
	tenant := uuid.New()
	owner := profile.Owner{ID: userID, Email: "alice@example.com"}

	users := fakeUsers{byEmail: map[string]profile.User{
		"alice@example.com": {ID: userID, AccountID: accountID},
	}}
	accounts := fakeAccounts{byID: map[uuid.UUID]profile.Account{
		accountID: {
			ID:     accountID,
			Owners: []profile.Owner{owner},
			Flags:  profile.AccountFlags{Active: true, Checked: true},
			Type:   profile.AccountType{Kind: profile.AccountTypeSubscription, TenantID: tenant},
		},
	}}
	licensed := fakeLicensedResources{byUser: map[uuid.UUID][]profile.LicensedResource{
		userID: {
			{TenantID: tenant, AccountID: accountID, Role: "manager", Permission: profile.PermissionWrite},
			{TenantID: uuid.New(), AccountID: uuid.New(), Role: "guest", Permission: profile.PermissionRead},
		},
	}}
	ownership := fakeOwnership{byUser: map[uuid.UUID]map[uuid.UUID]bool{userID: {tenant: true}}}

	r := New(users, accounts, licensed, ownership)

	p, err := r.Resolve(context.Background(), "alice@example.com", Hints{
		TenantID:   tenant,
		HasTenant:  true,
		RequiredRoles: []string{"manager"},
	})
	require.NoError(t, err)
	assert.True(t, p.IsSubscription)
	assert.Equal(t, profile.StatusVerified, p.VerboseStatus)
	assert.True(t, p.TenantsOwnership[tenant])

	ids, err := p.GetRelatedAccountOrError()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{accountID}, ids)
}

func TestResolveUnknownEmailIsForbidden(t *testing.T) {
	t.Parallel()

	r := New(fakeUsers{byEmail: map[string]profile.User{}}, fakeAccounts{}, fakeLicensedResources{}, fakeOwnership{})
	_, err := r.Resolve(context.Background(), "nobody@example.com", Hints{})
	merrE, ok := merr.As(err)
	require.True(t, ok)
	assert.Equal(t, merr.ErrUserNotFound.Code, merrE.Code)
}
