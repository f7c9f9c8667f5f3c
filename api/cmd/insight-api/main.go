package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/irgordon/insight/api/internal/api/handlers"
	"github.com/irgordon/insight/api/internal/api/middleware"
	"github.com/irgordon/insight/api/internal/api/router"
	"github.com/irgordon/insight/api/internal/config"
	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/core/services"
	"github.com/irgordon/insight/api/internal/db/memory"
	"github.com/irgordon/insight/api/internal/db/postgres"
	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
	"github.com/irgordon/insight/api/internal/storage/filesystem"
	"github.com/irgordon/insight/api/internal/telemetry"
	"github.com/irgordon/insight/api/internal/workers"
)

// memoryDatabaseURL runs the API without Postgres. Development only.
const memoryDatabaseURL = "memory://"

type repositories struct {
	databases domain.DatabaseRepository
	settings  domain.SettingRepository
	secrets   domain.SecretRepository
	sweeps    domain.SweepRepository
	health    func(context.Context) error
	close     func()
}

func main() {
	// --- 1. Core Telemetry & Configuration ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("🚀 Booting Insight API...")
	cfg := config.Load()

	// --- 2. At-rest Encryption ---
	// The key is derived once; the secret itself is not kept around.
	key, err := crypto.LoadKey(cfg.EncryptionSecretKey)
	if err != nil {
		logger.Error("FATAL: encryption secret rejected", slog.Any("error", err))
		os.Exit(1)
	}
	cfg.EncryptionSecretKey = ""
	cryptoService := crypto.NewService(key, logger)
	if !cryptoService.Enabled() {
		logger.Warn("INSIGHT_ENCRYPTION_SECRET_KEY not set; secrets are stored in plaintext")
	}

	// --- 3. Outbound Infrastructure ---
	repos, err := openRepositories(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("FATAL: DB failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer repos.close()

	store, err := filesystem.NewStore(cfg.AttachmentDir)
	if err != nil {
		logger.Error("FATAL: attachment store unavailable", slog.Any("error", err))
		os.Exit(1)
	}

	// --- 4. Hardened Dependency Injection ---
	settingService := services.NewSettingService(repos.settings, cryptoService, logger)
	credentialService := services.NewCredentialService(repos.databases, cryptoService, logger)
	secretService := services.NewSecretService(repos.secrets, cryptoService, logger)
	attachmentService := services.NewAttachmentService(store, cryptoService, logger)
	tokenService := services.NewTokenService(cfg.JWTSecret)

	hub := telemetry.NewHub()
	sweeper := workers.NewEncryptionSweeper(
		[]domain.SweepTarget{settingService, credentialService, secretService},
		repos.sweeps,
		cryptoService,
		logger,
		cfg.SweepInterval,
		cfg.SweepConcurrency,
	).WithEvents(hub)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer authMiddleware.Stop()

	// --- 5. Background Workers ---
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	// --- 6. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		SettingHandler:    handlers.NewSettingHandler(settingService),
		DatabaseHandler:   handlers.NewDatabaseHandler(credentialService),
		SecretHandler:     handlers.NewSecretHandler(secretService),
		AttachmentHandler: handlers.NewAttachmentHandler(attachmentService, cfg.MaxAttachmentBytes),
		EncryptionHandler: handlers.NewEncryptionHandler(cryptoService, sweeper, repos.sweeps, hub),
		EventStream:       handlers.NewEventStream(hub, logger),
		HealthHandler:     handlers.NewHealthHandler(repos.health, cryptoService),
		AuthMiddleware:    authMiddleware,
		Logger:            logger,
	})

	// Attachments stream in both directions; large files need room.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
	}

	// --- 7. Graceful Exit ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("🌐 Insight API active",
			slog.String("port", cfg.Port),
			slog.Bool("encryption", cryptoService.Enabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("CRITICAL: Server crashed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("🛑 Shutting down...")
	cancelWorkers() // Stop the sweeper before the pool goes away

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", slog.Any("error", err))
	}
	logger.Info("✅ Insight API shutdown complete.")
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	if cfg.DatabaseURL == memoryDatabaseURL {
		if cfg.Environment == config.EnvProduction {
			return nil, errors.New("in-memory storage is not allowed in production")
		}
		logger.Warn("Using in-memory storage; nothing survives a restart")
		return &repositories{
			databases: memory.NewDatabaseRepo(),
			settings:  memory.NewSettingRepo(),
			secrets:   memory.NewSecretRepo(),
			sweeps:    memory.NewSweepRepo(),
			health:    func(context.Context) error { return nil },
			close:     func() {},
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(connectCtx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	sqlDB := postgres.OpenSQL(pool)
	if err := postgres.Migrate(connectCtx, sqlDB, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return &repositories{
		databases: postgres.NewDatabaseRepo(pool),
		settings:  postgres.NewSettingRepo(postgres.OpenSQLX(pool)),
		secrets:   postgres.NewSecretRepo(pool),
		sweeps:    postgres.NewAuditRepository(pool),
		health:    postgres.Healthcheck(pool),
		close: func() {
			sqlDB.Close()
			pool.Close()
		},
	}, nil
}
