package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_API_KEY", "anon")
	t.Setenv("PREDICTION_TIMEOUT", "3s")
	t.Setenv("PREDICTION_MODEL_VARIANT", "dual")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:8081, https://app.example.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, 3*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, 2, cfg.Prediction.MinPredictions())
	assert.Equal(t, []string{"http://localhost:8081", "https://app.example.com"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sleepwise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: postgres
auth:
  mode: jwt
  jwt_secret: from-file
database:
  host: db.internal
  port: 6543
prediction:
  timeout: 2s
`), 0o600))

	t.Setenv("DB_HOST", "db.override")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 2*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, 1, cfg.Prediction.MinPredictions())
}

func TestValidate_Rejects(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "mongo"
	cfg.Auth.Mode = AuthModeJWT
	cfg.Events.Sink = SinkRedis
	cfg.Journal.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store backend "mongo"`)
	assert.Contains(t, err.Error(), "SUPABASE_JWT_SECRET")
	assert.Contains(t, err.Error(), "redis events sink")
	assert.Contains(t, err.Error(), "journal requires")
}

func TestDatabaseConfig_DSNs(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p@ss", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p@ss dbname=d sslmode=disable", c.GetDSN())
	assert.Equal(t, "postgres://u:p%40ss@h:5432/d?sslmode=disable", c.URL())
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SLEEPWISE_TEST_ONLY=loaded\n"), 0o600))
	t.Setenv("SLEEPWISE_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("SLEEPWISE_TEST_ONLY"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("SLEEPWISE_TEST_ONLY"))
}
