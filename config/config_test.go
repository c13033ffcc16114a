package config

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doshiMiraj/MGNREGA-Dashboard/calc"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_GOV_API_KEY", "test-key")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "5000")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CORS_ORIGIN", "http://localhost:3000, https://mgnrega.example ")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")
	t.Setenv("MONGO_URI", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.False(t, cfg.Development())
	assert.Equal(t, []string{"http://localhost:3000", "https://mgnrega.example"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.HTTP.RateLimitWindow)
	assert.Equal(t, 100, cfg.HTTP.RateLimitMax)
	assert.Equal(t, calc.DefaultConfig(), cfg.Scoring)
	assert.Equal(t, "test-key", cfg.DataGov.APIKey)
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	setRequired(t)
	t.Setenv("DATA_GOV_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestLoadPostgresNeedsPassword(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password")

	t.Setenv("DB_DRIVER", "sqlite3")
	_, err = Load()
	assert.NoError(t, err)
}

func TestScoringOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SCORE_WAGE_RATE_GOOD", "260")
	t.Setenv("SCORE_WEIGHT_EMPLOYMENT", "0.5")

	_, err := Load()
	require.Error(t, err, "weights no longer sum to one")

	t.Setenv("SCORE_WEIGHT_EMPLOYMENT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 260.0, cfg.Scoring.Thresholds.WageRate.Good)
}

func TestDSN(t *testing.T) {
	pg := DBConfig{Driver: "postgres", Host: "db", Port: "5432", Name: "mgnrega", User: "app", Password: "pw"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=mgnrega sslmode=disable", pg.DSN())

	pg.SSLMode = "require"
	assert.Contains(t, pg.DSN(), "sslmode=require")

	lite := DBConfig{Driver: "sqlite3", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", lite.DSN())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "# comment\nMGNREGA_TEST_ALPHA=\"one\"\nexport MGNREGA_TEST_BETA=two\nMGNREGA_TEST_PRESET=replaced\nnot a pair\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("MGNREGA_ENV", path)
	t.Setenv("MGNREGA_TEST_PRESET", "kept")
	t.Cleanup(func() {
		os.Unsetenv("MGNREGA_TEST_ALPHA")
		os.Unsetenv("MGNREGA_TEST_BETA")
	})

	loaded, err := LoadEnv(nil)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	assert.Equal(t, "one", os.Getenv("MGNREGA_TEST_ALPHA"))
	assert.Equal(t, "two", os.Getenv("MGNREGA_TEST_BETA"))
	assert.Equal(t, "kept", os.Getenv("MGNREGA_TEST_PRESET"))
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDBWithRetry(context.Background(), DBConfig{Driver: "sqlite3", Path: ":memory:"}, 1, quietLogger())
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, CheckDBHealth(context.Background(), db))
}

func TestInitDBWithRetryGivesUp(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = old })

	cfg := DBConfig{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "missing", "dir", "x.db")}
	_, err := InitDBWithRetry(context.Background(), cfg, 2, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestInitCacheFallsBackToMemory(t *testing.T) {
	c, closeFn := InitCache(context.Background(), RedisConfig{}, quietLogger())
	assert.Equal(t, "memory", c.Backend())
	assert.NoError(t, closeFn())

	c, closeFn = InitCache(context.Background(), RedisConfig{Host: "127.0.0.1", Port: "1"}, quietLogger())
	assert.Equal(t, "memory", c.Backend())
	assert.NoError(t, closeFn())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"service":"mgnrega-api"`)

	buf.Reset()
	logger = NewLogger(&buf, "nonsense", "text")
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}
