package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountRepo struct {
	byID   map[uuid.UUID]profile.Account
	bySlug map[string]bool
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: map[uuid.UUID]profile.Account{}, bySlug: map[string]bool{}}
}

func (f *fakeAccountRepo) Find(_ context.Context, id uuid.UUID) (profile.Account, bool, error) {
	a, ok := f.byID[id]
	return a, ok, nil
}

func (f *fakeAccountRepo) Insert(_ context.Context, a profile.Account) error {
	if f.bySlug[a.Slug] {
		return merr.ErrDuplicateResource
	}
	f.bySlug[a.Slug] = true
	f.byID[a.ID] = a
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, a profile.Account) error {
	f.byID[a.ID] = a
	return nil
}

type fakeDispatcher struct {
	calls []struct {
		trigger webhook.Trigger
		corr    uuid.UUID
		entity  interface{}
	}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, trigger webhook.Trigger, correspondenceID uuid.UUID, entity interface{}) {
	f.calls = append(f.calls, struct {
		trigger webhook.Trigger
		corr    uuid.UUID
		entity  interface{}
	}{trigger, correspondenceID, entity})
}

func managerProfile(tenantID uuid.UUID) profile.Profile {
	accountID := uuid.New()
	owner := profile.Owner{ID: uuid.New(), Email: "manager@example.com"}
	p, _ := profile.NewProfile([]profile.Owner{owner}, accountID)
	p.LicensedResources = []profile.LicensedResource{
		{AccountID: accountID, TenantID: tenantID, Role: "manager", Permission: profile.PermissionWrite},
	}
	return p
}

func TestCreateSubscriptionAccountSucceeds(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	p := managerProfile(tenantID)
	accounts := newFakeAccountRepo()
	dispatcher := &fakeDispatcher{}

	result, err := CreateSubscriptionAccount(context.Background(), p, accounts, dispatcher, tenantID, "Acme Corp")

	require.NoError(t, err)
	assert.Equal(t, Created, result)
	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, webhook.TriggerSubscriptionAccountCreated, dispatcher.calls[0].trigger)
}

func TestCreateSubscriptionAccountRejectsEmptyName(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	p := managerProfile(tenantID)
	accounts := newFakeAccountRepo()
	dispatcher := &fakeDispatcher{}

	result, err := CreateSubscriptionAccount(context.Background(), p, accounts, dispatcher, tenantID, "")

	require.Error(t, err)
	assert.Equal(t, NotCreated, result)
	assert.Empty(t, dispatcher.calls)
}

func TestCreateSubscriptionAccountRejectsUnauthorizedCaller(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	owner := profile.Owner{ID: uuid.New(), Email: "nobody@example.com"}
	p, _ := profile.NewProfile([]profile.Owner{owner}, uuid.New())
	accounts := newFakeAccountRepo()
	dispatcher := &fakeDispatcher{}

	result, err := CreateSubscriptionAccount(context.Background(), p, accounts, dispatcher, tenantID, "Acme Corp")

	require.Error(t, err)
	assert.Equal(t, NotCreated, result)
	merrE, ok := merr.As(err)
	require.True(t, ok)
	assert.Equal(t, merr.ErrInsufficientPrivileges.Code, merrE.Code)
	assert.Empty(t, dispatcher.calls)
}

func TestCreateSubscriptionAccountDuplicateSlugIsConflict(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	p := managerProfile(tenantID)
	accounts := newFakeAccountRepo()
	dispatcher := &fakeDispatcher{}

	_, err := CreateSubscriptionAccount(context.Background(), p, accounts, dispatcher, tenantID, "Acme Corp")
	require.NoError(t, err)

	result, err := CreateSubscriptionAccount(context.Background(), p, accounts, dispatcher, tenantID, "Acme Corp")
	require.Error(t, err)
	assert.Equal(t, NotCreated, result)
	merrE, ok := merr.As(err)
	require.True(t, ok)
	assert.Equal(t, merr.ErrDuplicateResource.Code, merrE.Code)
	assert.Len(t, dispatcher.calls, 1)
}
