package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/gateway/identity"
	"github.com/opsmycelium/gateway/internal/gateway/resolver"
	"github.com/opsmycelium/gateway/internal/merr"
)

// TenantHeader is the header a tenant-scoped admin endpoint reads its
// tenant id from, matching the gateway pipeline's x-mycelium-tenant-id.
const TenantHeader = "x-mycelium-tenant-id"

// Authenticate verifies the caller's bearer token and resolves it to a
// Profile, storing it in the request context under ProfileKey.
// Adapted from the teacher's AuthMiddleware: there, a token claim
// carried a flat role string; here the resolver's Profile carries the
// full licensed-resource set the RBAC checks below narrow against.
func Authenticate(verifier *identity.Verifier, res *resolver.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, err := bearerToken(r)
			if err != nil {
				merr.WriteHTTP(w, r, err)
				return
			}

			result, err := verifier.Verify(r.Context(), bearer)
			if err != nil {
				merr.WriteHTTP(w, r, err)
				return
			}

			hints := resolver.Hints{}
			if tenantID, ok := tenantIDFromHeader(r); ok {
				hints.TenantID = tenantID
				hints.HasTenant = true
			}

			prof, err := res.Resolve(r.Context(), result.Email, hints)
			if err != nil {
				merr.WriteHTTP(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ProfileKey, prof)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", merr.ErrMissingBearerToken
	}
	return strings.TrimPrefix(header, prefix), nil
}

func tenantIDFromHeader(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(TenantHeader)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireStaff gates webhook and route-table administration: only a
// caller whose resolved Profile carries IsStaff may reach the handler.
// These resources are global, not tenant-scoped, so there is no
// ProtectedByRoles narrowing to apply -- RequireStaff is the admin
// API's equivalent of the teacher's RoleAdmin weight tier.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prof, err := GetProfile(r.Context())
		if err != nil {
			merr.WriteHTTP(w, r, merr.ErrMissingBearerToken)
			return
		}
		if !prof.IsStaff {
			slog.WarnContext(r.Context(), "rbac_denied", "path", r.URL.Path, "need", "staff")
			merr.WriteHTTP(w, r, merr.ErrInsufficientPrivileges)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenantRoles gates a tenant-scoped read endpoint: the caller
// must supply x-mycelium-tenant-id and hold one of roles within that
// tenant, mirroring the gateway pipeline's ProtectedByRoles branch.
func RequireTenantRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prof, err := GetProfile(r.Context())
			if err != nil {
				merr.WriteHTTP(w, r, merr.ErrMissingBearerToken)
				return
			}
			tenantID, ok := tenantIDFromHeader(r)
			if !ok {
				merr.WriteHTTP(w, r, merr.ErrTenantRequired)
				return
			}
			narrowed := prof.OnTenant(tenantID).WithRoles(roles...)
			if _, err := narrowed.GetRelatedAccountOrError(); err != nil {
				slog.WarnContext(r.Context(), "rbac_denied", "path", r.URL.Path, "need", roles)
				merr.WriteHTTP(w, r, merr.ErrInsufficientPrivileges)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
