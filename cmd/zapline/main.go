package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/config"
	dbRedis "github.com/zaplinehq/zapline/internal/db/redis"
	"github.com/zaplinehq/zapline/internal/domain/budget"
	"github.com/zaplinehq/zapline/internal/domain/pacing"
	logpkg "github.com/zaplinehq/zapline/internal/logger"
	"github.com/zaplinehq/zapline/internal/metrics"
	campaignrepo "github.com/zaplinehq/zapline/internal/repository/campaign"
	ledgerrepo "github.com/zaplinehq/zapline/internal/repository/ledger"
	policyrepo "github.com/zaplinehq/zapline/internal/repository/policy"
	quotarepo "github.com/zaplinehq/zapline/internal/repository/quota"
	usagerepo "github.com/zaplinehq/zapline/internal/repository/usage"
	chiTransport "github.com/zaplinehq/zapline/internal/transport/chi"
	"github.com/zaplinehq/zapline/internal/transport/contacts"
	"github.com/zaplinehq/zapline/internal/transport/outbox"
	budgetuc "github.com/zaplinehq/zapline/internal/usecase/budget"
	campaignuc "github.com/zaplinehq/zapline/internal/usecase/campaign"
	dispatchuc "github.com/zaplinehq/zapline/internal/usecase/dispatch"
	healthuc "github.com/zaplinehq/zapline/internal/usecase/health"
	quotauc "github.com/zaplinehq/zapline/internal/usecase/quota"
	usageuc "github.com/zaplinehq/zapline/internal/usecase/usage"
	"github.com/zaplinehq/zapline/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting zapline API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register dispatch metrics explicitly (no init())
	metrics.RegisterDispatchMetrics()

	// Repositories. Usage counters outlive the month they bill so that
	// the snapshot endpoint can still read last month's totals.
	usageRepo := usagerepo.New(store, 62*24*time.Hour)
	policyRepo := policyrepo.New(store)
	quotaRepo := quotarepo.New(store, 48*time.Hour)
	ledgerRepo := ledgerrepo.New(store)
	campaignRepo := campaignrepo.New(store)

	// Pacing scheduler from the configured window and profiles.
	scheduler, err := buildScheduler(cfg.Pacing)
	if err != nil {
		logger.Fatal("Failed to build pacing scheduler", zap.Error(err))
	}

	// Daily quota allocator with tenant-local calendar days.
	defaultLoc, tenantZones, err := loadQuotaZones(cfg.Quota)
	if err != nil {
		logger.Fatal("Failed to load quota timezones", zap.Error(err))
	}
	quotaSvc := quotauc.NewAllocator(quotaRepo, cfg.Quota.DailySendLimit, defaultLoc, tenantZones, logger)

	// Budget policy engine with the configured default policy.
	defaultPolicy := budget.NewPolicy(cfg.Budget.MonthlyTokenLimit, budget.OverLimitMode(cfg.Budget.OverLimitMode))
	budgetSvc := budgetuc.New(policyRepo, usageRepo, defaultPolicy, logger)
	usageSvc := usageuc.New(usageRepo, logger)

	// Downstream services
	outboxClient := outbox.NewClient(outbox.Config{
		BaseURL:        cfg.Outbox.BaseURL,
		APIKey:         cfg.Outbox.APIKey,
		RequestsPerSec: cfg.Outbox.RequestsPerSec,
		Timeout:        time.Duration(cfg.Outbox.TimeoutSec) * time.Second,
		Logger:         logger,
	})
	contactsClient := contacts.NewClient(contacts.Config{
		BaseURL: cfg.Contacts.BaseURL,
		APIKey:  cfg.Contacts.APIKey,
		Timeout: time.Duration(cfg.Contacts.TimeoutSec) * time.Second,
	})

	dispatchSvc := dispatchuc.New(
		campaignRepo, ledgerRepo, budgetSvc, quotaSvc,
		scheduler, contactsClient, outboxClient,
		cfg.Dispatch.MaxPerCampaign, logger,
	)
	campaignSvc := campaignuc.New(campaignRepo, ledgerRepo, scheduler, logger)
	healthSvc := healthuc.New(store, outboxClient, contactsClient)

	server := chiTransport.NewServer(dispatchSvc, campaignSvc, budgetSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildScheduler assembles the pacing scheduler from config.
func buildScheduler(cfg config.PacingConfig) (*pacing.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("pacing timezone %q: %w", cfg.Timezone, err)
	}

	window, err := pacing.NewWindow(cfg.WindowOpenHour, cfg.WindowCloseHour, loc)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]pacing.Profile, len(cfg.Profiles))
	for name, pc := range cfg.Profiles {
		p, err := pacing.NewProfile(name, time.Duration(pc.DelaySec)*time.Second, pc.JitterPct)
		if err != nil {
			return nil, err
		}
		profiles[name] = p
	}

	return pacing.NewScheduler(window, profiles), nil
}

// loadQuotaZones resolves the default quota timezone and per-tenant overrides.
func loadQuotaZones(cfg config.QuotaConfig) (*time.Location, map[string]*time.Location, error) {
	defaultLoc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, nil, fmt.Errorf("quota timezone %q: %w", cfg.Timezone, err)
	}

	zones := make(map[string]*time.Location, len(cfg.TenantTimezones))
	for tenantID, name := range cfg.TenantTimezones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, nil, fmt.Errorf("quota timezone %q for tenant %s: %w", name, tenantID, err)
		}
		zones[tenantID] = loc
	}
	return defaultLoc, zones, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
