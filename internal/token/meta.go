package token

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/profile"
)

// MetaKind discriminates the closed Meta sum (spec.md §3).
type MetaKind string

const (
	MetaEmailConfirmation           MetaKind = "email_confirmation"
	MetaPasswordChange              MetaKind = "password_change"
	MetaUserAccountConnectionString MetaKind = "user_account_connection_string"
	MetaRoleScopedConnectionString  MetaKind = "role_scoped_connection_string"
	MetaTenantScopedConnectionString MetaKind = "tenant_scoped_connection_string"
)

// Meta carries the fields relevant to its Kind. UserID and Email are
// common to every variant (the email/username/domain filter used by
// get_and_invalidate's candidate lookup, spec.md §4.3 step 1). Scope
// holds the Bean sequence for the connection-string variants; Token
// stores the HMAC signature as AES-GCM ciphertext once Service.Issue has
// encrypted it; constructors leave it empty (spec.md §4.3 step 2).
type Meta struct {
	Kind  MetaKind
	UserID uuid.UUID
	Email  profile.Email
	Scope  Scope
	Token  string

	// RoleScoped / TenantScoped extras, populated only for those kinds.
	TenantID uuid.UUID
	Roles    []string
}

// NewEmailConfirmation builds the activation-token meta. Scope carries
// just the expiration bean; the signature secures it against tampering
// with the delivered link.
func NewEmailConfirmation(userID uuid.UUID, email profile.Email, expiration time.Time) Meta {
	return Meta{
		Kind:   MetaEmailConfirmation,
		UserID: userID,
		Email:  email,
		Scope:  Scope{EdtBean(expiration)},
	}
}

// NewPasswordChange builds the password-reset token meta.
func NewPasswordChange(userID uuid.UUID, email profile.Email, expiration time.Time) Meta {
	return Meta{
		Kind:   MetaPasswordChange,
		UserID: userID,
		Email:  email,
		Scope:  Scope{EdtBean(expiration)},
	}
}

// NewUserAccountConnectionString builds a connection string scoped to a
// single account id, with no role/permission narrowing.
func NewUserAccountConnectionString(userID, accountID uuid.UUID, email profile.Email, expiration time.Time) Meta {
	return Meta{
		Kind:   MetaUserAccountConnectionString,
		UserID: userID,
		Email:  email,
		Scope:  Scope{Aid(accountID), EdtBean(expiration)},
	}
}

// NewRoleScopedConnectionString builds a connection string scoped to an
// account plus a set of permissioned roles.
func NewRoleScopedConnectionString(userID, accountID uuid.UUID, email profile.Email, roles []profile.RoleWithPermission, expiration time.Time) Meta {
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = r.Role
	}
	return Meta{
		Kind:   MetaRoleScopedConnectionString,
		UserID: userID,
		Email:  email,
		Roles:  roleNames,
		Scope:  Scope{Aid(accountID), Pr(roles), EdtBean(expiration)},
	}
}

// NewTenantScopedConnectionString builds a connection string scoped to a
// tenant plus a set of permissioned roles.
func NewTenantScopedConnectionString(userID uuid.UUID, tenantID uuid.UUID, email profile.Email, roles []profile.RoleWithPermission, expiration time.Time) Meta {
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = r.Role
	}
	return Meta{
		Kind:     MetaTenantScopedConnectionString,
		UserID:   userID,
		Email:    email,
		TenantID: tenantID,
		Roles:    roleNames,
		Scope:    Scope{Tid(tenantID), Pr(roles), EdtBean(expiration)},
	}
}

// Expiration reads the meta's EDT bean back out of Scope. Every variant
// carries exactly one.
func (m Meta) Expiration() (time.Time, bool) {
	for _, b := range m.Scope {
		if b.Tag == TagEdt {
			t, err := ParseEdt(b)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// Persisted is the persisted token row (spec.md §3): an expiration and a Meta. ID
// is assigned by the repository on insert.
type Persisted struct {
	ID         uuid.UUID
	Expiration time.Time
	Meta       Meta
}
