package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/profile"
)

// UserRepository implements resolver.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (profile.User, bool, error) {
	e, err := profile.ParseEmail(email)
	if err != nil {
		return profile.User{}, false, err
	}

	row := r.pool.QueryRow(ctx, `
		select id, username, email_username, email_domain, first_name, last_name, is_active, is_principal,
		       account_id, provider_kind, password_hash, provider_name
		from app_user where email_username = $1 and email_domain = $2`, e.Username, e.Domain)

	var u profile.User
	var providerKind string
	err = row.Scan(&u.ID, &u.Username, &u.Email.Username, &u.Email.Domain, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsPrincipal, &u.AccountID, &providerKind, &u.Provider.PasswordHash, &u.Provider.Name)
	if isNoRows(err) {
		return profile.User{}, false, nil
	}
	if err != nil {
		return profile.User{}, false, err
	}
	u.Provider.Kind = profile.ProviderKind(providerKind)

	mfa, found, err := r.mfa(ctx, u.ID)
	if err != nil {
		return profile.User{}, false, err
	}
	if found {
		u.MFA = &mfa
	}

	return u, true, nil
}

func (r *UserRepository) mfa(ctx context.Context, userID uuid.UUID) (profile.MFADescriptor, bool, error) {
	row := r.pool.QueryRow(ctx, `
		select enabled, totp_secret, backup_hashes, enrolled_at
		from user_mfa where user_id = $1`, userID)

	var m profile.MFADescriptor
	err := row.Scan(&m.Enabled, &m.TOTPSecret, &m.BackupHashes, &m.EnrolledAt)
	if isNoRows(err) {
		return profile.MFADescriptor{}, false, nil
	}
	if err != nil {
		return profile.MFADescriptor{}, false, err
	}
	return m, true, nil
}
