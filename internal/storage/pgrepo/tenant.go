package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/profile"
)

// TenantRepository backs the admin API's read-only tenant listing.
type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

func (r *TenantRepository) List(ctx context.Context) ([]profile.Tenant, error) {
	rows, err := r.pool.Query(ctx, `
		select id, name, description, manager_id, created_at, updated_at
		from tenant order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Tenant
	for rows.Next() {
		var t profile.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.ManagerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		owners, err := r.owners(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Owners = owners
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TenantRepository) owners(ctx context.Context, tenantID uuid.UUID) ([]profile.Owner, error) {
	rows, err := r.pool.Query(ctx, `
		select u.id, u.email_username, u.email_domain, u.first_name, u.last_name, u.is_principal
		from tenant_owner t join app_user u on u.id = t.user_id
		where t.tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Owner
	for rows.Next() {
		var o profile.Owner
		var username, domain string
		if err := rows.Scan(&o.ID, &username, &domain, &o.FirstName, &o.LastName, &o.IsPrincipal); err != nil {
			return nil, err
		}
		o.Email = profile.Email{Username: username, Domain: domain}.String()
		out = append(out, o)
	}
	return out, rows.Err()
}
