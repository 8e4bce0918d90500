package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/profile"
)

// LicensedResourceRepository implements resolver.LicensedResourceRepository.
type LicensedResourceRepository struct {
	pool *pgxpool.Pool
}

func NewLicensedResourceRepository(pool *pgxpool.Pool) *LicensedResourceRepository {
	return &LicensedResourceRepository{pool: pool}
}

func (r *LicensedResourceRepository) ForUser(ctx context.Context, userID uuid.UUID) ([]profile.LicensedResource, error) {
	rows, err := r.pool.Query(ctx, `
		select lr.tenant_id, lr.account_id, lr.role, lr.permission, lr.sys_acc, lr.verified, a.name
		from licensed_resource lr join account a on a.id = lr.account_id
		where lr.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.LicensedResource
	for rows.Next() {
		var lr profile.LicensedResource
		var perm string
		if err := rows.Scan(&lr.TenantID, &lr.AccountID, &lr.Role, &perm, &lr.SysAcc, &lr.Verified, &lr.AccountName); err != nil {
			return nil, err
		}
		permission, ok := profile.ParsePermission(perm)
		if !ok {
			permission = profile.PermissionRead
		}
		lr.Permission = permission
		out = append(out, lr)
	}
	return out, rows.Err()
}
