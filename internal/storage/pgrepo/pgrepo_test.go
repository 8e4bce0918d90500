package pgrepo_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/storage/pgrepo"
	"github.com/opsmycelium/gateway/internal/token"
	"github.com/opsmycelium/gateway/internal/webhook"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("MYCELIUM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MYCELIUM_TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestAccountRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := pgrepo.NewAccountRepository(pool)

	tenantID := uuid.New()
	owner := profile.Owner{ID: uuid.New(), Email: "owner@example.com", FirstName: "Ann", IsPrincipal: true}
	account := profile.Account{
		ID:    uuid.New(),
		Name:  "Acme Corp",
		Slug:  profile.ToSlug("Acme Corp"),
		Flags: profile.AccountFlags{Active: true, Checked: true},
		Type:  profile.AccountType{Kind: profile.AccountTypeSubscription, TenantID: tenantID},
		Owners: []profile.Owner{owner},
	}

	require.NoError(t, repo.Insert(ctx, account))

	found, ok, err := repo.Find(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, account.Name, found.Name)
	require.Equal(t, profile.AccountTypeSubscription, found.Type.Kind)
	require.Len(t, found.Owners, 1)
	require.Equal(t, owner.Email, found.Owners[0].Email)
}

func TestTokenRoundTrip(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := pgrepo.NewTokenRepository(pool)

	email := profile.Email{Username: "guest", Domain: "example.com"}
	userID := uuid.New()
	meta := token.NewEmailConfirmation(userID, email, time.Now().Add(time.Hour))
	meta.Token = "signed-value"
	persisted := token.Persisted{
		ID:         uuid.New(),
		Expiration: time.Now().Add(time.Hour),
		Meta:       meta,
	}

	require.NoError(t, repo.Insert(ctx, persisted))

	candidates, err := repo.CandidatesByEmail(ctx, token.MetaEmailConfirmation, email, userID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, persisted.ID, candidates[0].ID)

	deleted, err := repo.Delete(ctx, persisted.ID)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestWebhookRegistryReturnsOnlyActive(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := pgrepo.NewWebhookRepository(pool)

	active := webhook.WebHook{ID: uuid.New(), Name: "active", URL: "https://example.com/hook", Trigger: webhook.TriggerGuestUserRegistered, IsActive: true}
	require.NoError(t, repo.Insert(ctx, active))
	inactive := webhook.WebHook{ID: uuid.New(), Name: "inactive", URL: "https://example.com/inactive", Trigger: webhook.TriggerGuestUserRegistered, IsActive: false}
	require.NoError(t, repo.Insert(ctx, inactive))

	hooks, err := repo.ActiveByTrigger(ctx, webhook.TriggerGuestUserRegistered)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	require.Equal(t, active.URL, hooks[0].URL)
}
