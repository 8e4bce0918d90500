package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/opsmycelium/gateway/internal/api/admin"
	"github.com/opsmycelium/gateway/internal/audit"
	"github.com/opsmycelium/gateway/internal/config"
	"github.com/opsmycelium/gateway/internal/gateway/identity"
	"github.com/opsmycelium/gateway/internal/gateway/pipeline"
	"github.com/opsmycelium/gateway/internal/gateway/ratelimit"
	"github.com/opsmycelium/gateway/internal/gateway/resolver"
	"github.com/opsmycelium/gateway/internal/gateway/routetable"
	"github.com/opsmycelium/gateway/internal/storage"
	"github.com/opsmycelium/gateway/internal/storage/pgrepo"
	"github.com/opsmycelium/gateway/internal/webhook"
	"github.com/opsmycelium/gateway/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Setup(cfg.Env)
	log.Info("application_startup", "env", cfg.Env)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env, TracesSampleRate: 1.0}); err != nil {
			log.Error("sentry_init_failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			log.Info("sentry_initialized")
		}
	} else {
		log.Warn("sentry_dsn_missing", "details", "skipping_init")
	}

	ctx := context.Background()
	pool, err := storage.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Error("database_connect_failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Error("database_ping_failed", "error", err)
		os.Exit(1)
	}
	log.Info("database_connected")

	accountRepo := pgrepo.NewAccountRepository(pool)
	userRepo := pgrepo.NewUserRepository(pool)
	licensedResourceRepo := pgrepo.NewLicensedResourceRepository(pool)
	ownershipRepo := pgrepo.NewTenantOwnershipRepository(pool)
	webhookRepo := pgrepo.NewWebhookRepository(pool)
	tenantRepo := pgrepo.NewTenantRepository(pool)

	res := resolver.New(userRepo, accountRepo, licensedResourceRepo, ownershipRepo)

	issuers, internalIssuer := splitIssuers(cfg.Issuers)
	verifier := identity.NewVerifier(issuers, internalIssuer, identity.NewJWKSCache(cfg.JWKSCacheTTL))

	routes := routetable.NewTable()

	auditLogger := audit.NewDBLogger(pool, log)
	dispatcher := webhook.NewDispatcher(webhookRepo, cfg.LifecycleSecret, cfg.WebhookWorkers, cfg.WebhookQueueDepth, cfg.WebhookMaxAttempts, cfg.WebhookBackoff, auditLogger)

	limiter := ratelimit.New(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	gw := pipeline.New(routes, verifier, res, cfg.LifecycleSecret)

	adminServer := admin.NewServer(admin.Deps{
		Verifier:      verifier,
		Resolver:      res,
		Routes:        routes,
		Webhooks:      webhookRepo,
		Accounts:      accountRepo,
		Tenants:       tenantRepo,
		RateLimiter:   limiter,
		AccountWriter: accountRepo,
		Dispatcher:    dispatcher,
	})

	mux := http.NewServeMux()
	mux.Handle(pipeline.GatewayScope+"/", limiter.Middleware(gw))
	mux.Handle("/", adminServer.Router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.GatewayTimeout + 5*time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server_startup_failed", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		log.Info("shutdown_signal_received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful_shutdown_failed", "error", err)
			_ = srv.Close()
		}

		pool.Close()
		log.Info("server_shutdown_complete")
	}
}

// splitIssuers separates the internal HS-512 issuer (the one entry
// carrying a shared secret) from the external RS-256/JWKS issuers.
func splitIssuers(entries []config.IssuerEntry) ([]identity.Issuer, identity.InternalIssuer) {
	var external []identity.Issuer
	var internal identity.InternalIssuer
	for _, e := range entries {
		if e.Secret != "" {
			internal = identity.InternalIssuer{IssuerURL: e.IssuerURL, Audience: e.Audience, Secret: e.Secret}
			continue
		}
		external = append(external, identity.Issuer{
			IssuerURL:           e.IssuerURL,
			JWKSURI:             e.JWKSURI,
			Audience:            e.Audience,
			X5CVerificationMode: identity.X5CLeafSelfSigned,
		})
	}
	return external, internal
}
