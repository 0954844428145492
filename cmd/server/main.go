package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hot-seat/internal/broadcast"
	"hot-seat/internal/config"
	"hot-seat/internal/db"
	"hot-seat/internal/game"
	"hot-seat/internal/logging"
	"hot-seat/internal/metrics"
	"hot-seat/internal/progression"
	"hot-seat/internal/scenario"
	"hot-seat/internal/scoring"
	"hot-seat/internal/server"
	"hot-seat/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
	}
	cfg := config.Load()
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		os.Stderr.WriteString("logger setup failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	feed := store.NewFeed(64)
	m := metrics.New()

	var conn *gorm.DB
	var st store.Store
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(db.Options{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		if err := db.Migrate(conn, logger); err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		st = store.NewGorm(conn, feed)
	} else {
		logger.Warn("DATABASE_URL is not set, using in-memory store")
		st = store.NewMemory(feed)
	}

	var bc broadcast.Broadcaster
	if cfg.RedisURL != "" {
		redisBC, err := broadcast.NewRedis(cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		bc = redisBC
	} else {
		bc = broadcast.NewLocal()
	}

	var scorer scoring.Scorer
	var generator scenario.Generator
	if cfg.OpenAIAPIKey != "" {
		openaiScorer, err := scoring.NewOpenAIScorer(scoring.OpenAIConfig{
			APIKey:           cfg.OpenAIAPIKey,
			Model:            cfg.OpenAIModel,
			BaseURL:          cfg.OpenAIBaseURL,
			SystemPromptPath: cfg.OpenAIScoringSystemPath,
		})
		if err != nil {
			logger.Fatal("openai scorer setup failed", zap.Error(err))
		}
		scorer = openaiScorer
		openaiGenerator, err := scenario.NewOpenAIGenerator(scenario.OpenAIConfig{
			APIKey:           cfg.OpenAIAPIKey,
			Model:            cfg.OpenAIModel,
			BaseURL:          cfg.OpenAIBaseURL,
			SystemPromptPath: cfg.OpenAIScenarioSystemPath,
		})
		if err != nil {
			logger.Fatal("openai generator setup failed", zap.Error(err))
		}
		generator = openaiGenerator
	} else {
		logger.Warn("OPENAI_API_KEY is not set, answers get the fallback score")
	}
	var library scenario.Library
	if conn != nil {
		library = scenario.NewGormLibrary(conn)
	}

	picker := game.RandomPicker{}
	orch := progression.New(progression.Deps{
		Store:       st,
		Broadcaster: bc,
		Scorer:      scorer,
		Scenarios:   scenario.NewProvider(generator, library, picker, logger),
		Picker:      picker,
		Logger:      logger,
		Metrics:     m,
	}, progression.Config{
		DefaultTotalRounds: cfg.DefaultTotalRounds,
		MaxTotalRounds:     cfg.MaxTotalRounds,
		MaxPlayers:         cfg.MaxPlayers,
		Categories:         cfg.Categories,
		ScenarioBatchSize:  cfg.ScenarioBatchSize,
		ScoringTimeout:     time.Duration(cfg.ScoringTimeoutSeconds) * time.Second,
		ScoringConcurrency: cfg.ScoringConcurrency,
		FallbackScore:      cfg.FallbackScore,
	})

	srv := server.New(server.Options{
		Orchestrator: orch,
		Feed:         feed,
		Broadcaster:  bc,
		Metrics:      m,
		Logger:       logger,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("hot-seat server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := orch.Shutdown(ctx); err != nil {
		logger.Error("background work did not finish", zap.Error(err))
	}
	if err := bc.Close(); err != nil {
		logger.Error("broadcaster close failed", zap.Error(err))
	}
	if err := db.Close(conn); err != nil {
		logger.Error("database close failed", zap.Error(err))
	}
}
