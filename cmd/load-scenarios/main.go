package main

import (
	"flag"
	"os"
	"time"

	"hot-seat/internal/config"
	"hot-seat/internal/db"
	"hot-seat/internal/logging"

	"go.uber.org/zap"
)

func main() {
	filePath := flag.String("file", "scenarios.csv", "path to a category,text scenario csv")
	flag.Parse()

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

	conn, err := db.Open(db.Options{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
	})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close(conn)

	inserted, err := db.LoadScenarioLibrary(conn, *filePath)
	if err != nil {
		logger.Fatal("failed to load scenarios", zap.String("file", *filePath), zap.Int("inserted", inserted), zap.Error(err))
	}
	logger.Info("loaded scenarios", zap.String("file", *filePath), zap.Int("inserted", inserted))
}
