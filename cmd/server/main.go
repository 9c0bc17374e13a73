package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/authn"
	"github.com/Ko-stant/dungeon-ai-server/internal/config"
	"github.com/Ko-stant/dungeon-ai-server/internal/eventbus"
	"github.com/Ko-stant/dungeon-ai-server/internal/game"
	"github.com/Ko-stant/dungeon-ai-server/internal/monsterai"
	"github.com/Ko-stant/dungeon-ai-server/internal/playerreg"
	"github.com/Ko-stant/dungeon-ai-server/internal/registry"
	"github.com/Ko-stant/dungeon-ai-server/internal/species"
	"github.com/Ko-stant/dungeon-ai-server/internal/storage"
	"github.com/Ko-stant/dungeon-ai-server/internal/wsserver"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("DUNGEON_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	store, err := buildStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	speciesStore := species.NewStore(store)
	if err := speciesStore.Load(ctx); err != nil {
		logger.Warn("failed loading species knowledge", zap.Error(err))
	}

	bus := eventbus.New(logger.Sugar())

	aiService := monsterai.NewService(
		monsterai.DefaultRegistry(),
		monsterai.DefaultSpawnConfig(),
		speciesStore,
		bus,
		cfg.AI.MaxGenerationCap,
		time.Now().UnixNano(),
	)

	stats := playerreg.NewRegistry(store)
	if err := stats.Load(ctx); err != nil {
		logger.Warn("failed loading player stats", zap.Error(err))
	}

	reg := registry.New(registry.Config{
		MaxPlayersPerGame:   cfg.Game.MaxPlayersPerGame,
		InactiveTimeout:     cfg.Game.GameInactiveTimeout,
		CompletedGamePeriod: cfg.Game.CompletedGameGracePeriod,
		CleanupInterval:     cfg.Game.RegistryCleanupInterval,
		GameConfig: game.Config{
			Width: cfg.Dungeon.Width, Height: cfg.Dungeon.Height,
			RoomCount: cfg.Dungeon.RoomCount,
			MinRoomSize: cfg.Dungeon.MinRoomSize, MaxRoomSize: cfg.Dungeon.MaxRoomSize,
			ChestRoomDivisor:      cfg.Dungeon.ChestRoomDivisor,
			TickInterval:          cfg.Game.TickInterval,
			AutosaveInterval:      cfg.Game.AutosaveInterval,
			FightTurnDuration:     cfg.Game.FightTurnDuration,
			FightImmunityDuration: cfg.Game.FightImmunityDuration,
		},
	}, bus, aiService, stats, store, nil, logger)

	if n := reg.RestoreGames(ctx); n > 0 {
		logger.Info("restored games from storage", zap.Int("count", n))
	}
	reg.Start(ctx)

	profiles := newProfileStore(store)
	if err := profiles.load(ctx); err != nil {
		logger.Warn("failed loading profiles", zap.Error(err))
	}

	checker := authn.NewChecker([]byte(cfg.Auth.JWTSigningKey), profiles)

	wss := wsserver.New(
		reg, checker,
		cfg.Game.ViewportWidth, cfg.Game.ViewportHeight,
		cfg.Game.HandshakeDeadline, 5*time.Second,
		logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/ws", wss)

	httpServer := &http.Server{
		Addr:    cfg.Server.BindAddress,
		Handler: mux,
	}

	statsSaveTicker := time.NewTicker(30 * time.Second)
	defer statsSaveTicker.Stop()
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsSaveTicker.C:
				if err := stats.Save(context.Background()); err != nil {
					logger.Warn("failed saving player stats", zap.Error(err))
				}
			}
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", cfg.Server.BindAddress))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	<-statsDone
	reg.Stop(shutdownCtx)
	if err := stats.Save(shutdownCtx); err != nil {
		logger.Warn("failed final save of player stats", zap.Error(err))
	}
	if err := speciesStore.Save(shutdownCtx); err != nil {
		logger.Warn("failed final save of species knowledge", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func buildStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return storage.NewRedisStore(client, "dungeon:"), nil
	default:
		return storage.NewFileStore(cfg.FileDir)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
