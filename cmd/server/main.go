package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"pointer/internal/audit"
	auditkafka "pointer/internal/audit/store/kafka"
	auditmemory "pointer/internal/audit/store/memory"
	"pointer/internal/authform"
	"pointer/internal/browser"
	"pointer/internal/identity"
	"pointer/internal/identity/events"
	"pointer/internal/identity/store"
	"pointer/internal/platform/config"
	"pointer/internal/platform/httpserver"
	"pointer/internal/platform/kafka"
	"pointer/internal/platform/logger"
	"pointer/internal/platform/metrics"
	"pointer/internal/platform/postgres"
	"pointer/internal/platform/redis"
	"pointer/internal/pricing"
	"pointer/internal/redirect"
	"pointer/internal/session"
	httptransport "pointer/internal/transport/http"
	"pointer/pkg/platform/circuit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logg *slog.Logger) error {
	if err := cfg.Supabase.ValidateIdentity(); err != nil {
		return err
	}
	if err := cfg.Session.Validate(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g, gctx := errgroup.WithContext(ctx)

	// Identity: sessions and auth events live in Redis when configured so
	// every instance sees the same browser state.
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var (
		sessions identity.SessionStore = store.NewInMemorySessionStore(cfg.Session.MaxAge)
		bus      identity.EventBus     = events.NewMemoryBus()
	)
	if rdb != nil {
		defer rdb.Close()
		sessions = store.NewRedisSessionStore(rdb.Client, cfg.Session.MaxAge)
		redisBus := events.NewRedisBus(rdb.Client, logg)
		bus = redisBus
		g.Go(func() error { return redisBus.Run(gctx) })
		logg.InfoContext(ctx, "identity state shared through redis")
	}

	// An empty secret decodes token claims without checking signatures.
	verifier := identity.NewTokenVerifier(cfg.Supabase.JWTSecret)
	gotrue := identity.NewGoTrueClient(cfg.Supabase.IdentityURL(), cfg.Supabase.AnonKey, cfg.Supabase.HTTPTimeout,
		identity.WithTokenVerifier(verifier))
	factory := identity.NewFactory(gotrue, sessions, bus, identity.WithLogger(logg), identity.WithVerifier(verifier),
		identity.WithCapacity(cfg.Session.MaxProviders, cfg.Session.ProviderTTL))

	registry := session.NewRegistry(
		func(browserID string) session.IdentityProvider { return factory.ForBrowser(browserID) },
		cfg.Session.MaxProviders, cfg.Session.ProviderTTL,
		session.WithLogger(logg),
		session.WithMetrics(m),
		session.WithRelease(factory.Forget),
	)
	defer registry.Close()

	// Audit: Kafka when configured, with the in-memory store as fallback.
	var auditStore audit.Store = auditmemory.NewInMemoryStore(cfg.Audit.MemoryCapacity)
	kc, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	if kc != nil {
		defer kc.Close()
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions); err != nil {
			return err
		}
		breaker := circuit.New("kafka-audit", circuit.WithCooldown(cfg.Audit.BreakerCooldown))
		auditStore = audit.NewResilientStore(auditkafka.NewSink(kc, cfg.Kafka.AuditTopic), auditStore, breaker, logg)
	}
	publisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.Audit.BufferSize),
		audit.WithLogger(logg),
		audit.WithMetrics(m),
	)
	defer publisher.Close()

	// Pricing: direct Postgres when DATABASE_URL is set, PostgREST otherwise.
	pool, err := postgres.Connect(ctx, cfg.Postgres, logg)
	if err != nil {
		return err
	}
	var plans *pricing.Service
	if pool != nil {
		defer pool.Close()
		plans = pricing.NewService(pricing.NewPostgresRepository(pool), "postgres", pricing.WithMetrics(m), pricing.WithLogger(logg))
	} else {
		if err := cfg.Supabase.ValidatePricing(); err != nil {
			return err
		}
		repo := pricing.NewRESTRepository(cfg.Supabase.DataURL(), cfg.Supabase.ServiceRoleKey, cfg.Supabase.HTTPTimeout)
		plans = pricing.NewService(repo, "rest", pricing.WithMetrics(m), pricing.WithLogger(logg))
	}
	var landingPlans pricing.Lister = plans
	if cfg.Pricing.APIURL != "" {
		landingPlans = pricing.NewAPIClient(cfg.Pricing.APIURL, cfg.Supabase.HTTPTimeout)
	}

	jar, err := browser.NewJar(cfg.Session, logg)
	if err != nil {
		return err
	}
	pages, err := httptransport.NewPages(logg)
	if err != nil {
		return err
	}

	handler := httptransport.NewHandler(httptransport.Deps{
		Providers: registry,
		Identity:  func(browserID string) identity.Provider { return factory.ForBrowser(browserID) },
		Redirects: redirect.NewService(redirect.WithMetrics(m)),
		Forms: authform.NewController(cfg.Server.SiteURL,
			authform.WithAudit(publisher),
			authform.WithMetrics(m),
			authform.WithLogger(logg),
		),
		Plans:  landingPlans,
		Jar:    jar,
		Pages:  pages,
		Logger: logg,
	})
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:         logg,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		PricingAPI:     pricing.NewHandler(plans, logg).HandleList,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g.Go(func() error {
		logg.InfoContext(gctx, "starting pointer", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		logg.InfoContext(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

