package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
)

// TenantCORSConfig is the allowed-origins view a CorsConfigProvider
// returns for one tenant.
type TenantCORSConfig struct {
	AllowedOrigins []string
}

// ErrTenantNotFound is returned by a CorsConfigProvider when the tenant
// id carries no CORS configuration.
var ErrTenantNotFound = errors.New("middleware: tenant not found")

type CorsConfigProvider interface {
	GetTenantConfig(ctx context.Context, id uuid.UUID) (TenantCORSConfig, error)
}

// DynamicCorsMiddleware enforces per-tenant CORS policy on the control
// API. The tenant id is read from the TenantHeader request header.
// Preflight requests are reflected without a tenant lookup so the
// browser can send the actual request.
func DynamicCorsMiddleware(q CorsConfigProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Mycelium-Tenant-Id, X-Requested-With")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.WriteHeader(http.StatusOK)
				return
			}

			tenantID, ok := tenantIDFromHeader(r)
			if !ok {
				// No tenant id on the request: nothing to validate the
				// origin against. Proceed without CORS headers; a
				// browser client gets a response it can't read.
				next.ServeHTTP(w, r)
				return
			}

			config, err := q.GetTenantConfig(r.Context(), tenantID)
			if err != nil {
				if errors.Is(err, ErrTenantNotFound) {
					slog.WarnContext(r.Context(), "cors_tenant_not_found", "tenant_id", tenantID)
					http.Error(w, "invalid tenant", http.StatusForbidden)
					return
				}
				slog.ErrorContext(r.Context(), "cors_config_lookup_failed", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			if slices.Contains(config.AllowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			} else {
				slog.WarnContext(r.Context(), "cors_origin_rejected", "tenant_id", tenantID, "origin", origin)
				http.Error(w, "cors policy violation", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
