package token

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/cryptoutil"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
)

// Repository is the persistence contract for Token core (spec.md §4.3).
// internal/storage/pgrepo provides the pgx-backed implementation.
// ConsumeCandidate reads candidates and deletes the chosen row in two
// separate calls, not inside one transaction; single use rests on
// Delete reporting whether it removed a row, so of two concurrent
// consumers of one token only one sees deleted=true.
type Repository interface {
	// Insert persists a freshly issued token.
	Insert(ctx context.Context, t Persisted) error

	// CandidatesByEmail returns every non-consumed token row matching
	// (kind, email.username, email.domain, userID), in no particular
	// order -- Service sorts them.
	CandidatesByEmail(ctx context.Context, kind MetaKind, email profile.Email, userID uuid.UUID) ([]Persisted, error)

	// Delete removes the token row and reports whether a row was
	// actually deleted (0 rows means another consumer won the
	// race).
	Delete(ctx context.Context, id uuid.UUID) (deleted bool, err error)
}

// Service implements the sign/issue/consume algorithm of spec.md §4.3.
type Service struct {
	repo            Repository
	lifecycleSecret string
}

func NewService(repo Repository, lifecycleSecret string) *Service {
	return &Service{repo: repo, lifecycleSecret: lifecycleSecret}
}

// Issue signs meta's scope, encrypts the resulting signature into
// meta.Token, and persists the row. The returned Persisted.Meta.Token is
// ciphertext; the returned displaySig is the plaintext signature, for
// callers that need to render the connection string.
func (s *Service) Issue(ctx context.Context, meta Meta, expiration time.Time) (persisted Persisted, displaySig string, err error) {
	signedScope, sig := SignToken(meta.Scope, s.lifecycleSecret)
	meta.Scope = signedScope

	ciphertext, err := cryptoutil.Encrypt(s.lifecycleSecret, sig)
	if err != nil {
		return Persisted{}, "", err
	}
	meta.Token = ciphertext

	p := Persisted{
		ID:         uuid.New(),
		Expiration: expiration,
		Meta:       meta,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return Persisted{}, "", err
	}
	return p, sig, nil
}

// ConsumeCandidate implements get_and_invalidate: locate candidates by
// (kind, email, userID), take the earliest by expiration, verify it
// hasn't expired, recompute the signature and compare it constant-time
// against the caller-supplied raw token, then delete it (failing if the
// delete removed no row).
// rawToken is the plaintext signature the caller presented (e.g. parsed
// out of a connection string), not the encrypted meta.Token.
func (s *Service) ConsumeCandidate(ctx context.Context, kind MetaKind, email profile.Email, userID uuid.UUID, rawToken string, now time.Time) (Persisted, error) {
	candidates, err := s.repo.CandidatesByEmail(ctx, kind, email, userID)
	if err != nil {
		return Persisted{}, err
	}
	if len(candidates) == 0 {
		return Persisted{}, merr.ErrInvalidConnectionString
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Expiration.Before(candidates[j].Expiration)
	})
	candidate := candidates[0]

	if now.After(candidate.Expiration) {
		return Persisted{}, merr.ErrInvalidConnectionString
	}

	if !CheckToken(candidate.Meta.Scope, s.lifecycleSecret, rawToken) {
		return Persisted{}, merr.ErrInvalidConnectionString
	}

	deleted, err := s.repo.Delete(ctx, candidate.ID)
	if err != nil {
		return Persisted{}, err
	}
	if !deleted {
		return Persisted{}, merr.ErrInvalidConnectionString
	}

	return candidate, nil
}
