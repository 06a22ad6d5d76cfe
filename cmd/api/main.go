package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/config"
	httphandler "github.com/eventpass/server/internal/http"
	"github.com/eventpass/server/internal/http/handlers"
	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/metrics"
	"github.com/eventpass/server/internal/middleware"
	"github.com/eventpass/server/internal/telemetry"
)

const (
	serviceName            = "eventpass-api"
	challengeRateKeyPrefix = "ep:ratelimit:challenge"
)

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server exited with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
	_ = zlog.Sync()
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.NewMeterProvider(ctx, cfg.OTLPEndpoint, serviceName, zlog)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	authMetrics, err := metrics.NewAuth(tel.MeterProvider)
	if err != nil {
		return fmt.Errorf("failed to create auth metrics: %w", err)
	}

	b, err := openBackends(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("failed to open storage backends: %w", err)
	}
	defer b.Close()

	emailChannel, err := newEmailChannel(ctx, cfg, b, zlog)
	if err != nil {
		return fmt.Errorf("failed to set up email delivery: %w", err)
	}
	whatsAppChannel, err := newWhatsAppChannel(ctx, cfg, b, zlog)
	if err != nil {
		return fmt.Errorf("failed to set up whatsapp delivery: %w", err)
	}

	authOpts := []auth.Option{
		auth.WithLogger(logger.WithComponent(zlog, "auth")),
		auth.WithMetrics(authMetrics),
	}
	cipher, err := auth.NewCipher(cfg.ChallengeSecret)
	if err != nil {
		return fmt.Errorf("failed to create challenge cipher: %w", err)
	}
	issuer, err := auth.NewIssuer(b.accounts, b.challenges, cipher, emailChannel, whatsAppChannel,
		cfg.ChallengeTTL(), cfg.MagicLinkBaseURL, authOpts...)
	if err != nil {
		return fmt.Errorf("failed to create challenge issuer: %w", err)
	}
	machine := auth.NewStateMachine(authOpts...)
	binder := auth.NewBinder(b.challenges, authOpts...)
	verifier := auth.NewVerifier(cipher, b.challenges, authOpts...)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL())
	authService := auth.NewAuthService(b.accounts, machine, binder, verifier, jwtService, cfg.AuthSessionTTL(), authOpts...)

	var limiter middleware.Limiter
	if b.redis != nil {
		limiter = middleware.NewRedisRateLimiter(b.redis, challengeRateKeyPrefix, cfg.ChallengeRateWindow(), cfg.ChallengeRateLimit)
	} else {
		local := middleware.NewRateLimiter(cfg.ChallengeRateWindow(), cfg.ChallengeRateLimit)
		defer local.Stop()
		limiter = local
	}

	httpLog := logger.WithComponent(zlog, "http")
	router := httphandler.NewRouter(httphandler.Handlers{
		Health:    handlers.NewHealthHandler(b.pingers),
		Challenge: handlers.NewChallengeHandler(issuer, httpLog),
		Session:   handlers.NewSessionHandler(authService, httpLog),
		Triggers:  handlers.NewTriggerHandler(machine, binder, verifier, httpLog),
	}, jwtService, b.accounts, httphandler.Options{
		CORSOrigins:      cfg.CORSOrigins(),
		ChallengeLimiter: limiter,
		TriggerAPIKey:    cfg.TriggerAPIKey,
		Log:              httpLog,
	})
	if cfg.TriggerAPIKey == "" {
		zlog.Info("TRIGGER_API_KEY not set; identity-provider trigger routes are disabled")
	}

	if b.sweeper != nil {
		go runSweeper(ctx, b.sweeper, sweepInterval, logger.WithComponent(zlog, "sweeper"))
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("challenge_store", cfg.ChallengeBackend()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serverErr:
	}

	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("telemetry shutdown failed", zap.Error(err))
	}

	zlog.Info("server exited")
	return serveErr
}
