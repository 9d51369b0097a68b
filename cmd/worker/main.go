package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/rollcall/internal/config"
	"github.com/geocoder89/rollcall/internal/notifications"
	"github.com/geocoder89/rollcall/internal/observability"
	"github.com/geocoder89/rollcall/internal/queue"
	"github.com/geocoder89/rollcall/internal/queue/redisclient"
	"github.com/geocoder89/rollcall/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(observability.LoggerConfig{Env: cfg.Env, Service: cfg.ServiceName + "-worker", Level: cfg.LogLevel})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("worker shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, cfg.Tracer(cfg.ServiceName+"-worker"))
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
	prom := observability.NewProm(registry)

	rc, err := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.WorkerConcurrency + 2,
	})
	if err != nil {
		return err
	}
	defer rc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err = rc.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	provider, err := buildProvider(ctx, cfg, log)
	if err != nil {
		return err
	}
	notifier := notifications.NewProtectedNotifier(provider, notifications.ProtectedNotifierConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
		OnStateChange: func(from, to notifications.BreakerState) {
			log.Warn("notifier.breaker", "from", from, "to", to)
			if to == notifications.BreakerClosed {
				prom.NotifierBreakerOpen.Set(0)
			} else {
				prom.NotifierBreakerOpen.Set(1)
			}
		},
	})

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  cfg.WorkerPollInterval,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
	}, queue.New(rc.Raw(), ""), notifier, log, prom)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", w.HealthHandler())

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()
	defer func() {
		sctx, cancel := config.WithTimeout(3 * time.Second)
		defer cancel()
		_ = healthSrv.Shutdown(sctx)
	}()

	log.Info("worker has started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency, "notifier", cfg.Notifier)

	return w.Run(ctx)
}

func buildProvider(ctx context.Context, cfg config.Config, log *slog.Logger) (notifications.Notifier, error) {
	if cfg.Notifier != config.NotifierSES {
		return notifications.NewLogNotifier(log), nil
	}

	templates, err := notifications.NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("email templates: %w", err)
	}

	ses, err := notifications.NewSESNotifier(ctx, notifications.SESConfig{
		Region:    cfg.SESRegion,
		AccessKey: cfg.SESAccessKey,
		SecretKey: cfg.SESSecretKey,
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
	}, templates)
	if err != nil {
		return nil, fmt.Errorf("ses notifier: %w", err)
	}
	return ses, nil
}
