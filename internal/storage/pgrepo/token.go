// Package pgrepo implements every repository interface the gateway's
// domain packages declare (internal/token, internal/gateway/resolver,
// internal/usecase, internal/webhook) against PostgreSQL via pgx. Each
// statement runs directly on the pool; no repository here opens a
// transaction.
package pgrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/token"
)

// TokenRepository implements token.Repository.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Insert(ctx context.Context, t token.Persisted) error {
	_, err := r.pool.Exec(ctx, `
		insert into lifecycle_token
			(id, expiration, kind, user_id, email_username, email_domain, scope, signed_token, tenant_id, roles)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Expiration, string(t.Meta.Kind), t.Meta.UserID, t.Meta.Email.Username, t.Meta.Email.Domain,
		t.Meta.Scope.Serialize(), t.Meta.Token, nullableUUID(t.Meta.TenantID), t.Meta.Roles,
	)
	return err
}

func (r *TokenRepository) CandidatesByEmail(ctx context.Context, kind token.MetaKind, email profile.Email, userID uuid.UUID) ([]token.Persisted, error) {
	rows, err := r.pool.Query(ctx, `
		select id, expiration, kind, user_id, email_username, email_domain, scope, signed_token, tenant_id, roles
		from lifecycle_token
		where kind = $1 and email_username = $2 and email_domain = $3 and user_id = $4`,
		string(kind), email.Username, email.Domain, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []token.Persisted
	for rows.Next() {
		var (
			p          token.Persisted
			kindStr    string
			scopeRaw   string
			tenantID   *uuid.UUID
			roles      []string
		)
		if err := rows.Scan(&p.ID, &p.Expiration, &kindStr, &p.Meta.UserID, &p.Meta.Email.Username, &p.Meta.Email.Domain,
			&scopeRaw, &p.Meta.Token, &tenantID, &roles); err != nil {
			return nil, err
		}
		p.Meta.Kind = token.MetaKind(kindStr)
		p.Meta.Roles = roles
		if tenantID != nil {
			p.Meta.TenantID = *tenantID
		}
		scope, err := token.ParseScope(scopeRaw)
		if err != nil {
			return nil, err
		}
		p.Meta.Scope = scope
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *TokenRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `delete from lifecycle_token where id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func nullableUUID(u uuid.UUID) *uuid.UUID {
	if u == uuid.Nil {
		return nil
	}
	return &u
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
