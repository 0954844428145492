package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	DatabaseURL              string
	RedisURL                 string
	LogLevel                 string
	LogEncoding              string
	DefaultTotalRounds       int
	MaxTotalRounds           int
	MaxPlayers               int
	Categories               []string
	ScenarioBatchSize        int
	ScoringTimeoutSeconds    int
	ScoringConcurrency       int
	FallbackScore            int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	OpenAIAPIKey             string
	OpenAIModel              string
	OpenAIBaseURL            string
	OpenAIScoringSystemPath  string
	OpenAIScenarioSystemPath string
}

func Default() Config {
	return Config{
		Port:                     "8080",
		LogLevel:                 "info",
		LogEncoding:              "json",
		DefaultTotalRounds:       3,
		MaxTotalRounds:           10,
		MaxPlayers:               12,
		Categories:               []string{"Technology", "Work", "Dating", "Travel", "Food", "School"},
		ScenarioBatchSize:        3,
		ScoringTimeoutSeconds:    20,
		ScoringConcurrency:       4,
		FallbackScore:            5,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		OpenAIModel:              "gpt-4o-mini",
		OpenAIScoringSystemPath:  "prompts/openai_scoring_system.txt",
		OpenAIScenarioSystemPath: "prompts/openai_scenario_system.txt",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		cfg.RedisURL = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_ENCODING"); raw != "" {
		cfg.LogEncoding = raw
	}
	if raw := os.Getenv("DEFAULT_TOTAL_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefaultTotalRounds = value
		}
	}
	if raw := os.Getenv("MAX_TOTAL_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxTotalRounds = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 1 {
			cfg.MaxPlayers = value
		}
	}
	if raw := os.Getenv("CATEGORIES"); raw != "" {
		if categories := splitList(raw); len(categories) > 0 {
			cfg.Categories = categories
		}
	}
	if raw := os.Getenv("SCENARIO_BATCH_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ScenarioBatchSize = value
		}
	}
	if raw := os.Getenv("SCORING_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ScoringTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("SCORING_CONCURRENCY"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ScoringConcurrency = value
		}
	}
	if raw := os.Getenv("FALLBACK_SCORE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 1 && value <= 10 {
			cfg.FallbackScore = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("OPENAI_API_KEY"); raw != "" {
		cfg.OpenAIAPIKey = raw
	}
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	if raw := os.Getenv("OPENAI_BASE_URL"); raw != "" {
		cfg.OpenAIBaseURL = raw
	}
	if raw := os.Getenv("OPENAI_SCORING_SYSTEM_PATH"); raw != "" {
		cfg.OpenAIScoringSystemPath = raw
	}
	if raw := os.Getenv("OPENAI_SCENARIO_SYSTEM_PATH"); raw != "" {
		cfg.OpenAIScenarioSystemPath = raw
	}
	return cfg
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
