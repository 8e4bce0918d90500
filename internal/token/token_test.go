package token

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeanRoundTrip(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sig=abc", Sig("abc").String())
	b, err := ParseBean(" sig=abc")
	require.NoError(t, err)
	assert.Equal(t, Sig("abc"), b)

	pr := Pr([]profile.RoleWithPermission{
		{Role: "r1", Permission: profile.PermissionRead},
		{Role: "r1", Permission: profile.PermissionWrite},
		{Role: "r2", Permission: profile.PermissionRead},
	})
	assert.Equal(t, "pr=r1:0,r1:1,r2:0", pr.String())

	back, err := pr.PermissionedRoles()
	require.NoError(t, err)
	assert.Equal(t, []profile.RoleWithPermission{
		{Role: "r1", Permission: profile.PermissionRead},
		{Role: "r1", Permission: profile.PermissionWrite},
		{Role: "r2", Permission: profile.PermissionRead},
	}, back)
}

func TestParseBeanUnknownTag(t *testing.T) {
	t.Parallel()

	_, err := ParseBean("nope=1")
	merrE, ok := merr.As(err)
	require.True(t, ok)
	assert.Equal(t, merr.ErrBadFormat.Code, merrE.Code)
}

func TestSignTokenIsIdempotentUnderResign(t *testing.T) {
	t.Parallel()

	tenant := uuid.New()
	scope := Scope{Tid(tenant), Pr([]profile.RoleWithPermission{{Role: "role", Permission: profile.PermissionWrite}})}

	signed, sig := SignToken(scope, "test")
	require.Len(t, sig, 64)

	resigned, sig2 := SignToken(signed, "test")
	assert.Equal(t, sig, sig2)
	assert.True(t, CheckToken(resigned, "test", sig))
}

type fakeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Persisted
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]Persisted{}}
}

func (f *fakeRepo) Insert(_ context.Context, p Persisted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.ID] = p
	return nil
}

func (f *fakeRepo) CandidatesByEmail(_ context.Context, kind MetaKind, email profile.Email, userID uuid.UUID) ([]Persisted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Persisted
	for _, p := range f.rows {
		if p.Meta.Kind == kind && p.Meta.Email == email && p.Meta.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func TestIssueAndConsumeEmailConfirmation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	userID := uuid.New()
	email := profile.Email{Username: "alice", Domain: "example.com"}
	expiry := time.Now().Add(time.Hour)

	meta := NewEmailConfirmation(userID, email, expiry)
	_, sig, err := svc.Issue(context.Background(), meta, expiry)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	consumed, err := svc.ConsumeCandidate(context.Background(), MetaEmailConfirmation, email, userID, sig, time.Now())
	require.NoError(t, err)
	assert.Equal(t, userID, consumed.Meta.UserID)

	_, err = svc.ConsumeCandidate(context.Background(), MetaEmailConfirmation, email, userID, sig, time.Now())
	assert.ErrorIs(t, err, merr.ErrInvalidConnectionString)
}

func TestConsumeCandidateRejectsExpired(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	userID := uuid.New()
	email := profile.Email{Username: "bob", Domain: "example.com"}
	expiry := time.Now().Add(-time.Minute)

	meta := NewPasswordChange(userID, email, expiry)
	_, sig, err := svc.Issue(context.Background(), meta, expiry)
	require.NoError(t, err)

	_, err = svc.ConsumeCandidate(context.Background(), MetaPasswordChange, email, userID, sig, time.Now())
	assert.ErrorIs(t, err, merr.ErrInvalidConnectionString)
}

func TestConsumeCandidateRejectsWrongSignature(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	userID := uuid.New()
	email := profile.Email{Username: "carol", Domain: "example.com"}
	expiry := time.Now().Add(time.Hour)

	meta := NewPasswordChange(userID, email, expiry)
	_, _, err := svc.Issue(context.Background(), meta, expiry)
	require.NoError(t, err)

	_, err = svc.ConsumeCandidate(context.Background(), MetaPasswordChange, email, userID, "not-the-real-signature", time.Now())
	assert.ErrorIs(t, err, merr.ErrInvalidConnectionString)
}

// TestConcurrentConsumeIsAtMostOnce exercises spec law 4: two concurrent
// consumers of the same token must produce exactly one success and one
// failure.
func TestConcurrentConsumeIsAtMostOnce(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, "test-secret")

	userID := uuid.New()
	email := profile.Email{Username: "dave", Domain: "example.com"}
	expiry := time.Now().Add(time.Hour)

	meta := NewEmailConfirmation(userID, email, expiry)
	_, sig, err := svc.Issue(context.Background(), meta, expiry)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.ConsumeCandidate(context.Background(), MetaEmailConfirmation, email, userID, sig, time.Now())
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			failures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
}
