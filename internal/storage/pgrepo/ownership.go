package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantOwnershipRepository implements resolver.TenantOwnershipRepository.
type TenantOwnershipRepository struct {
	pool *pgxpool.Pool
}

func NewTenantOwnershipRepository(pool *pgxpool.Pool) *TenantOwnershipRepository {
	return &TenantOwnershipRepository{pool: pool}
}

func (r *TenantOwnershipRepository) OwnedTenants(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `select tenant_id from tenant_owner where user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool)
	for rows.Next() {
		var tenantID uuid.UUID
		if err := rows.Scan(&tenantID); err != nil {
			return nil, err
		}
		out[tenantID] = true
	}
	return out, rows.Err()
}
