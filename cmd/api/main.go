package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/rollcall/internal/auth"
	"github.com/geocoder89/rollcall/internal/cache"
	"github.com/geocoder89/rollcall/internal/config"
	"github.com/geocoder89/rollcall/internal/db"
	"github.com/geocoder89/rollcall/internal/domain/event"
	httpx "github.com/geocoder89/rollcall/internal/http"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/queue"
	"github.com/geocoder89/rollcall/internal/queue/redisclient"
	"github.com/geocoder89/rollcall/internal/repo/memory"
	"github.com/geocoder89/rollcall/internal/repo/postgres"
	"github.com/geocoder89/rollcall/internal/service"
	"github.com/geocoder89/rollcall/internal/tickets"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(observability.LoggerConfig{Env: cfg.Env, Service: cfg.ServiceName, Level: cfg.LogLevel})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracer(cfg.ServiceName))
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(registry)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	readyChecks := map[string]func(context.Context) error{}

	var (
		store  service.RegistrationStore
		source cache.EventSource
	)

	switch cfg.Store {
	case config.StorePostgres:
		if cfg.DBAutoMigrate {
			if err := db.Migrate(cfg.DBURL()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.DBURL(), cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		events := postgres.NewEventsRepo(pool)
		if cfg.SeedEventsFile != "" {
			seed, err := memory.ReadEventsFile(cfg.SeedEventsFile)
			if err != nil {
				return err
			}
			for _, e := range seed {
				if err := events.Upsert(ctx, e); err != nil {
					return fmt.Errorf("seed event %s: %w", e.ID, err)
				}
			}
			log.Info("events seeded", "count", len(seed))
		}

		store = postgres.NewRegistrationsRepo(pool, prom)
		source = events

	default:
		events := memory.NewEventsRepo()
		if cfg.SeedEventsFile != "" {
			if events, err = memory.LoadEventsFile(cfg.SeedEventsFile); err != nil {
				return err
			}
		}
		store = memory.NewRegistrationsRepo()
		source = events
		log.Warn("using in-memory store; registrations are lost on restart")
	}
	readyChecks["store"] = store.Ping

	catalog := cache.NewCachedCatalog(source, cache.New[event.Event](cfg.EventCacheTTL))

	var notifier notifications.Notifier
	if cfg.RedisAddr != "" {
		rc, err := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rc.Close()

		q := queue.New(rc.Raw(), "")
		notifier = queue.NewNotifier(q)
		readyChecks["redis"] = q.Ping
	} else {
		log.Warn("REDIS_ADDR not set; notifications are logged, not delivered")
		notifier = notifications.NewLogNotifier(log)
	}

	opts := service.Options{Location: loc, Log: log, Prom: prom}

	regs := service.NewRegistrationService(store, catalog, notifier, tickets.NewGenerator(), cfg.PublicBaseURL, opts)
	invites := service.NewInvitationWorkflow(store, catalog, opts)
	checkins := service.NewCheckInEngine(store, catalog, opts)

	router := httpx.NewRouter(httpx.RouterDeps{
		Env:             cfg.Env,
		ServiceName:     serviceNameIf(cfg.OTelEnabled, cfg.ServiceName),
		Log:             log,
		Prom:            prom,
		Gatherer:        registry,
		Tokens:          auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, auth.WithIssuer(cfg.JWTIssuer), auth.WithLeeway(30*time.Second)),
		Registrations:   regs,
		Attendance:      checkins,
		Invitations:     invites,
		ReadyChecks:     readyChecks,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		PublicRateLimit: cfg.PublicRateLimit,
		StaffRateLimit:  cfg.StaffRateLimit,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	// in-flight invitation sends finish before the queue and pool close
	regs.Wait()

	log.Info("shutdown complete")
	return nil
}

// otelgin is only mounted when a tracer provider is installed.
func serviceNameIf(enabled bool, name string) string {
	if !enabled {
		return ""
	}
	return name
}
