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
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"

	"escuela/internal/admin/lockout"
	adminservice "escuela/internal/admin/service"
	jwttoken "escuela/internal/jwt_token"
	"escuela/internal/platform/config"
	"escuela/internal/platform/httpserver"
	"escuela/internal/platform/logger"
	"escuela/internal/platform/metrics"
	"escuela/internal/platform/redis"
	"escuela/internal/registration/export"
	regservice "escuela/internal/registration/service"
	"escuela/internal/registration/store"
	httptransport "escuela/internal/transport/http"
)

const (
	tokenIssuer     = "escuela"
	connectTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	records, err := store.Open(connectCtx, cfg.Store.URI, cfg.Store.Database)
	cancel()
	if err != nil {
		log.Error("failed to connect to record store", "error", err)
		os.Exit(1)
	}
	log.Info("record store connected")

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		_ = records.Close(context.Background())
		os.Exit(1)
	}

	var lockouts lockout.Store = lockout.NewInMemory()
	checks := healthChecks{records.Ping}
	if redisClient != nil {
		lockouts = lockout.NewFallback(lockout.NewRedis(redisClient.Client), lockouts, lockout.WithLogger(log))
		checks = append(checks, redisClient.Health)
		log.Info("login lockout backed by redis")
	}

	loc, err := time.LoadLocation(cfg.Export.Timezone)
	if err != nil {
		log.Warn("unknown export timezone, using UTC", "timezone", cfg.Export.Timezone, "error", err)
		loc = time.UTC
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSecret, tokenIssuer)
	admin, err := adminservice.New(
		adminservice.Credentials{
			Username:     cfg.Auth.AdminUser,
			Password:     cfg.Auth.AdminPassword,
			PasswordHash: cfg.Auth.AdminPasswordHash,
		},
		jwtService,
		lockouts,
		adminservice.WithLogger(log),
		adminservice.WithMetrics(m),
		adminservice.WithTokenTTL(cfg.Auth.TokenTTL),
		adminservice.WithLockout(cfg.Lockout.MaxAttempts, cfg.Lockout.Window),
		adminservice.WithUserLockout(cfg.Lockout.MaxUserAttempts),
	)
	if err != nil {
		log.Error("invalid admin configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD is stored in plaintext; prefer ADMIN_PASSWORD_HASH")
	}

	handler := httptransport.NewHandler(
		regservice.New(records, regservice.WithLogger(log), regservice.WithMetrics(m)),
		admin,
		export.New(loc, export.WithLogger(log), export.WithMetrics(m)),
		log,
	)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:                  log,
		Validator:               jwttoken.NewJWTServiceAdapter(jwtService),
		Metrics:                 m,
		Gatherer:                prometheus.DefaultGatherer,
		Health:                  checks,
		TrustedProxies:          cfg.TrustedProxies,
		PublicDepartmentListing: cfg.Features.PublicDepartmentListing,
	})

	srv := httpserver.New(cfg.Addr(), router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting escuela", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}
	if err := records.Close(shutdownCtx); err != nil {
		log.Error("failed to close record store", "error", err)
	} else {
		log.Info("record store closed")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis", "error", err)
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// healthChecks pings every dependency in order and reports the first failure.
type healthChecks []func(context.Context) error

func (h healthChecks) Ping(ctx context.Context) error {
	for _, ping := range h {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
