// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fitpay-billing/internal/config"
	"fitpay-billing/internal/domain/ports/adapter"
	pg "fitpay-billing/internal/infra/db/postgres"
	httpapi "fitpay-billing/internal/infra/http"
	"fitpay-billing/internal/infra/logging"
	"fitpay-billing/internal/infra/memory"
	"fitpay-billing/internal/infra/metrics"
	"fitpay-billing/internal/infra/payment"
	red "fitpay-billing/internal/infra/redis"
	"fitpay-billing/internal/infra/sched"
	"fitpay-billing/internal/infra/security"
	"fitpay-billing/internal/infra/web"
	"fitpay-billing/internal/infra/worker"
	"fitpay-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Rate limiter (Redis when configured, in-process otherwise) ----
	limiterCfg := memory.LimiterConfig{
		SourceWindow:  cfg.RateLimit.SourceWindow,
		SourceCap:     cfg.RateLimit.SourceCap,
		ChargeSpacing: cfg.RateLimit.ChargeSpacing,
		ChargeWindow:  cfg.RateLimit.ChargeWindow,
		ChargeCap:     cfg.RateLimit.ChargeCap,
	}
	var limiter adapter.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect")
		}
		limiter = red.NewRateLimiter(redisClient, limiterCfg)
		logger.Info().Msg("rate limiter: redis")
	} else {
		limiter = memory.NewRateLimiter(limiterCfg)
		logger.Info().Msg("rate limiter: in-process")
	}

	// ---- Payload encryption (optional) ----
	var encSvc *security.EncryptionService
	if cfg.Security.EncryptionKey != "" {
		encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption key")
		}
	}

	// ---- Repositories ----
	eventRepo := pg.NewProcessedEventRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	discountRepo := pg.NewDiscountRepo(pool)
	txm := pg.NewTxManager(pool)

	auditPool := worker.NewPool(2, logger)
	auditPool.Start(ctx)
	defer auditPool.Stop()
	auditRepo := worker.NewAsyncAuditLog(pg.NewAuditLogRepo(pool, encSvc), auditPool)

	// ---- Gateway adapters ----
	sig := payment.NewSignatureVerifier(cfg.Gateway.WebhookSecret, logger)
	var gateway adapter.ChargeFetcher
	if cfg.Gateway.Provider == "noop" {
		gateway = payment.NewNoopGateway()
		logger.Warn().Msg("gateway: noop (no real charge verification)")
	} else {
		gateway = payment.NewTapClient(cfg.Gateway.SecretKey, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	}

	// ---- Use cases ----
	engine := usecase.NewTransitionEngine(
		subRepo, payRepo, discountRepo, txm,
		cfg.Billing.AmountTolerance, cfg.Billing.CycleDays, logger,
	)
	webhookUC := usecase.NewWebhookUseCase(
		limiter, sig, gateway, eventRepo, subRepo, engine, auditRepo, logger,
	)

	// ---- Webhook server ----
	srv := httpapi.NewServer(cfg, webhookUC, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("webhook server stopped")
			cancel()
		}
	}()

	// ---- Ops API (separate listener, off by default) ----
	var opsServer *http.Server
	if cfg.Ops.Port != 0 {
		auth := web.NewAuthManager(cfg.Ops.JWTSecret, cfg.Ops.JWTTTL)
		ops := web.NewServer(eventRepo, auditRepo, cfg.Ops.APIKey, auth, logger)
		r := chi.NewRouter()
		r.Use(chimw.RealIP)
		r.Use(chimw.Recoverer)
		ops.RegisterRoutes(r)
		opsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Ops.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", opsServer.Addr).Msg("ops server listening")
			if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("ops server stopped")
			}
		}()
	}

	// ---- Reconciler ----
	reconciler := sched.NewPaymentReconciler(
		webhookUC,
		cfg.Reconciler.Interval, cfg.Reconciler.Grace, cfg.Reconciler.BatchSize,
		logger,
	)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("webhook server shutdown")
	}
	if opsServer != nil {
		if err := opsServer.Shutdown(shCtx); err != nil {
			logger.Error().Err(err).Msg("ops server shutdown")
		}
	}
	logger.Info().Msg("shutdown complete")
}
