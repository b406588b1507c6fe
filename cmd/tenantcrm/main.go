// tenantcrm: multi-tenant CRM admin backend
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d9705996/tenantcrm/internal/api"
	"github.com/d9705996/tenantcrm/internal/api/middleware"
	"github.com/d9705996/tenantcrm/internal/config"
	"github.com/d9705996/tenantcrm/internal/db"
	"github.com/d9705996/tenantcrm/internal/events"
	"github.com/d9705996/tenantcrm/internal/health"
	"github.com/d9705996/tenantcrm/internal/observability"
	"github.com/d9705996/tenantcrm/internal/seed"
	"github.com/d9705996/tenantcrm/internal/store"
	"github.com/d9705996/tenantcrm/internal/version"
	"github.com/d9705996/tenantcrm/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = issueToken(os.Args[2:])
	} else {
		err = run()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability -------------------------------------------------------
	obs, log, err := observability.New(ctx, &observability.Config{
		ServiceName:    "tenantcrm",
		ServiceVersion: version.Version,
		LogLevel:       cfg.Log.Level,
		LogFormat:      cfg.Log.Format,
		OTLPEndpoint:   cfg.OTel.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	slog.SetDefault(log)
	log.Info("starting tenantcrm", "version", version.Version, "commit", version.Commit, "db_driver", cfg.DB.Driver)

	// --- Database ------------------------------------------------------------
	// pool is only non-nil for postgres; River needs it.
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	log.Info("database ready", "driver", cfg.DB.Driver)

	// --- Seed admin ----------------------------------------------------------
	if err := seed.EnsureAdmin(ctx, gormDB, seed.AdminOptions{
		Email:            cfg.App.SeedAdminEmail,
		OrganizationName: cfg.App.SeedOrganizationName,
	}, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// --- Worker queue --------------------------------------------------------
	if pool != nil {
		if err := worker.MigrateRiver(ctx, pool); err != nil {
			return fmt.Errorf("river migrations: %w", err)
		}
		log.Info("river migrations applied")
	}

	wq, err := worker.New(pool, gormDB, cfg.DB.Driver, cfg.Worker.Concurrency, log)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	if err := wq.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wq.Stop(stopCtx); err != nil {
			log.Error("worker stop error", "err", err)
		}
	}()

	// --- Change events -------------------------------------------------------
	pub, err := events.Connect(cfg.Events.NATSURL, log)
	if err != nil {
		return fmt.Errorf("connect events: %w", err)
	}
	defer pub.Close()

	st := store.New(gormDB, store.Options{
		Events:        pub,
		Jobs:          wq,
		StrictOptions: cfg.App.StrictDropdown,
		Logger:        log,
	})

	// --- HTTP routes ---------------------------------------------------------
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Options{
		Store:        st,
		Health:       health.New(db.NewPinger(gormDB)),
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
		CookieSecure: cfg.HTTP.CookieSecure,
		Logger:       log,
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      middleware.Logger(log)(metrics.Middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Start server --------------------------------------------------------
	log.Info("http server listening", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
