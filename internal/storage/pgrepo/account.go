package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/merr"
	"github.com/opsmycelium/gateway/internal/profile"
)

// AccountRepository implements resolver.AccountRepository and
// usecase.AccountRepository, plus the admin API's read-only listing.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// List returns every account's own row, unjoined with owners/guests --
// the admin API's account listing is a directory view, not a full
// profile resolution.
func (r *AccountRepository) List(ctx context.Context) ([]profile.Account, error) {
	rows, err := r.pool.Query(ctx, `
		select id, name, slug, tags, is_active, is_checked, is_archived, is_deleted,
		       is_system_account, type_kind, tenant_id, created_at, updated_at
		from account order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []profile.Account
	for rows.Next() {
		var a profile.Account
		var typeKind string
		var tenantID *uuid.UUID
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &a.Tags, &a.Flags.Active, &a.Flags.Checked, &a.Flags.Archived,
			&a.Flags.Deleted, &a.IsSystemAccount, &typeKind, &tenantID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Type.Kind = profile.AccountTypeKind(typeKind)
		if tenantID != nil {
			a.Type.TenantID = *tenantID
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) Find(ctx context.Context, id uuid.UUID) (profile.Account, bool, error) {
	row := r.pool.QueryRow(ctx, `
		select id, name, slug, tags, is_active, is_checked, is_archived, is_deleted,
		       is_system_account, type_kind, tenant_id, role_name, read_role_id, write_role_id, actor_account,
		       created_at, updated_at, created_by, updated_by
		from account where id = $1`, id)

	var a profile.Account
	var typeKind string
	var tenantID, actorAccount, readRoleID, writeRoleID *uuid.UUID
	err := row.Scan(&a.ID, &a.Name, &a.Slug, &a.Tags, &a.Flags.Active, &a.Flags.Checked, &a.Flags.Archived, &a.Flags.Deleted,
		&a.IsSystemAccount, &typeKind, &tenantID, &a.Type.RoleName, &readRoleID, &writeRoleID, &actorAccount,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy)
	if isNoRows(err) {
		return profile.Account{}, false, nil
	}
	if err != nil {
		return profile.Account{}, false, err
	}
	a.Type.Kind = profile.AccountTypeKind(typeKind)
	if tenantID != nil {
		a.Type.TenantID = *tenantID
	}
	if readRoleID != nil {
		a.Type.ReadRoleID = *readRoleID
	}
	if writeRoleID != nil {
		a.Type.WriteRoleID = *writeRoleID
	}
	if actorAccount != nil {
		a.Type.ActorAccount = *actorAccount
	}

	owners, err := r.owners(ctx, id, false)
	if err != nil {
		return profile.Account{}, false, err
	}
	a.Owners = owners

	guests, err := r.owners(ctx, id, true)
	if err != nil {
		return profile.Account{}, false, err
	}
	a.GuestUsers = guests

	return a, true, nil
}

func (r *AccountRepository) owners(ctx context.Context, accountID uuid.UUID, guests bool) ([]profile.Owner, error) {
	rows, err := r.pool.Query(ctx, `
		select u.id, u.email_username, u.email_domain, u.first_name, u.last_name, u.is_principal
		from account_owner ao join app_user u on u.id = ao.user_id
		where ao.account_id = $1 and ao.is_guest = $2`, accountID, guests)
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

func (r *AccountRepository) Insert(ctx context.Context, a profile.Account) error {
	_, err := r.pool.Exec(ctx, `
		insert into account
			(id, name, slug, tags, is_active, is_checked, is_archived, is_deleted,
			 is_system_account, type_kind, tenant_id, role_name, read_role_id, write_role_id, actor_account,
			 created_by, updated_by)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.Name, a.Slug, a.Tags, a.Flags.Active, a.Flags.Checked, a.Flags.Archived, a.Flags.Deleted,
		a.IsSystemAccount, string(a.Type.Kind), nullableUUID(a.Type.TenantID), a.Type.RoleName,
		nullableUUID(a.Type.ReadRoleID), nullableUUID(a.Type.WriteRoleID), nullableUUID(a.Type.ActorAccount),
		a.CreatedBy, a.UpdatedBy,
	)
	if isUniqueViolation(err) {
		return merr.ErrDuplicateResource.Wrap(err)
	}
	if err != nil {
		return err
	}
	return r.insertOwners(ctx, a.ID, a.Owners, false)
}

func (r *AccountRepository) Update(ctx context.Context, a profile.Account) error {
	_, err := r.pool.Exec(ctx, `
		update account set name = $2, slug = $3, tags = $4, is_active = $5, is_checked = $6,
		       is_archived = $7, is_deleted = $8, updated_by = $9, updated_at = now()
		where id = $1`,
		a.ID, a.Name, a.Slug, a.Tags, a.Flags.Active, a.Flags.Checked, a.Flags.Archived, a.Flags.Deleted, a.UpdatedBy,
	)
	if err != nil {
		return err
	}

	if _, execErr := r.pool.Exec(ctx, `delete from account_owner where account_id = $1 and is_guest = true`, a.ID); execErr != nil {
		return execErr
	}
	return r.insertOwners(ctx, a.ID, a.GuestUsers, true)
}

func (r *AccountRepository) insertOwners(ctx context.Context, accountID uuid.UUID, owners []profile.Owner, guests bool) error {
	for _, o := range owners {
		email, err := profile.ParseEmail(o.Email)
		if err != nil {
			return merr.ErrBadFormat.Wrap(err)
		}
		_, err = r.pool.Exec(ctx, `
			insert into account_owner (account_id, user_id, is_guest)
			values ($1, $2, $3)
			on conflict (account_id, user_id) do nothing`,
			accountID, o.ID, guests,
		)
		if err != nil {
			return err
		}
		_, err = r.pool.Exec(ctx, `
			insert into app_user (id, email_username, email_domain, first_name, last_name, is_principal)
			values ($1, $2, $3, $4, $5, $6)
			on conflict (id) do nothing`,
			o.ID, email.Username, email.Domain, o.FirstName, o.LastName, o.IsPrincipal,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
