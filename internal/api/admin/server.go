// Package admin implements the gateway's control plane: a chi router,
// separate from the data-plane pipeline, exposing webhook CRUD,
// route-table CRUD, and read-only account/tenant listing to the
// out-of-scope operator CLI/TUI/web UI. Grounded on the teacher's
// internal/api/router.go middleware stack, adapted from AuthMiddleware
// plus a flat RBACMiddleware role weight to this domain's
// identity.Verifier/resolver.Resolver plus Profile-based RBAC.
package admin

import (
	"context"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/opsmycelium/gateway/internal/api/middleware"
	"github.com/opsmycelium/gateway/internal/gateway/identity"
	"github.com/opsmycelium/gateway/internal/gateway/ratelimit"
	"github.com/opsmycelium/gateway/internal/gateway/resolver"
	"github.com/opsmycelium/gateway/internal/gateway/routetable"
	"github.com/opsmycelium/gateway/internal/profile"
	"github.com/opsmycelium/gateway/internal/usecase"
	"github.com/opsmycelium/gateway/internal/webhook"
)

// WebhookStore is the persistence contract the webhook handlers need
// beyond webhook.Registry's read path.
type WebhookStore interface {
	webhook.Registry
	Insert(ctx context.Context, w webhook.WebHook) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context) ([]webhook.WebHook, error)
}

// AccountLister backs the read-only account directory.
type AccountLister interface {
	List(ctx context.Context) ([]profile.Account, error)
}

// TenantLister backs the read-only tenant directory.
type TenantLister interface {
	List(ctx context.Context) ([]profile.Tenant, error)
}

// Server assembles the admin/control API.
type Server struct {
	Router *chi.Mux
}

// Deps collects everything the admin API's handlers need.
type Deps struct {
	Verifier    *identity.Verifier
	Resolver    *resolver.Resolver
	Routes      *routetable.Table
	Webhooks    WebhookStore
	Accounts    AccountLister
	Tenants     TenantLister
	RateLimiter *ratelimit.IPRateLimiter

	// AccountWriter and Dispatcher back the two representative use
	// cases (spec.md §4.9): CreateSubscriptionAccount and
	// RegisterGuestUser. Both use cases perform their own
	// authorize-against-Profile step, so these routes sit behind
	// Authenticate only, not a role-gating middleware group.
	AccountWriter usecase.AccountRepository
	Dispatcher    usecase.WebhookDispatcher
}

func NewServer(deps Deps) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})
	r.Use(sentryHandler.Handle)

	r.Use(middleware.RequestLogger)
	r.Use(middleware.PanicRecovery)

	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware)
	}

	r.Get("/health", healthHandler())

	h := &handlers{
		routes:        deps.Routes,
		webhooks:      deps.Webhooks,
		accounts:      deps.Accounts,
		tenants:       deps.Tenants,
		accountWriter: deps.AccountWriter,
		dispatcher:    deps.Dispatcher,
	}

	r.Route("/adm/ctl", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Verifier, deps.Resolver))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff)

			r.Get("/webhooks", h.listWebhooks)
			r.Post("/webhooks", h.createWebhook)
			r.Delete("/webhooks/{id}", h.deleteWebhook)

			r.Get("/routes", h.listRoutes)
			r.Put("/routes", h.upsertRoute)
			r.Delete("/routes/{prefix}", h.deleteRoute)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenantRoles("manager"))

			r.Get("/accounts", h.listAccounts)
			r.Get("/tenants", h.listTenants)
		})

		// CreateSubscriptionAccount and RegisterGuestUser run their own
		// authorize() step against the resolved Profile, so they only
		// need an authenticated caller here, not a pre-narrowed one.
		r.Post("/accounts", h.createSubscriptionAccount)
		r.Post("/accounts/{id}/guests", h.registerGuestUser)
	})

	return &Server{Router: r}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
