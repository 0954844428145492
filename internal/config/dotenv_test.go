package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv("SCENARIO_BATCH_SIZE", "5")
	t.Setenv("SCORING_CONCURRENCY", "not-a-number")
	t.Setenv("FALLBACK_SCORE", "11")
	t.Setenv("CATEGORIES", " Space , , Pets ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()
	assert.Equal(t, 5, cfg.ScenarioBatchSize)
	assert.Equal(t, Default().ScoringConcurrency, cfg.ScoringConcurrency)
	assert.Equal(t, 5, cfg.FallbackScore)
	assert.Equal(t, []string{"Space", "Pets"}, cfg.Categories)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOT_SEAT_TEST_A=file\nHOT_SEAT_TEST_B=file\n"), 0o644))
	t.Setenv("HOT_SEAT_TEST_A", "env")
	t.Cleanup(func() { _ = os.Unsetenv("HOT_SEAT_TEST_B") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "env", os.Getenv("HOT_SEAT_TEST_A"))
	assert.Equal(t, "file", os.Getenv("HOT_SEAT_TEST_B"))
}
