package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Store.TimeoutSecs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.LLM.TimeoutSecs)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 3, cfg.Retry.LLM.MaxAttempts)
	assert.Equal(t, 5000, cfg.Retry.LLM.WaitMs)
	assert.Equal(t, 1000, cfg.Retry.LLM.JitterMs)
	assert.Equal(t, 2, cfg.Retry.RPC.MaxAttempts)
	assert.Equal(t, 2000, cfg.Retry.RPC.WaitMs)
	assert.Equal(t, 10, cfg.Jobs.Workers)
	assert.Equal(t, 100, cfg.Jobs.QueueDepth)
	assert.Equal(t, 60, cfg.Jobs.RetentionMins)
	assert.Equal(t, 1000, cfg.Jobs.MaxTracked)
	assert.False(t, cfg.Metrics.CountFallbackAsError)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/noticias
log:
  level: debug
  format: console
server:
  port: 9090
retry:
  llm:
    max_attempts: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Retry.LLM.MaxAttempts)
	// Defaults still apply for unset values
	assert.Equal(t, 5000, cfg.Retry.LLM.WaitMs)
	assert.Equal(t, 2, cfg.Retry.RPC.MaxAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("NOTICIAS_STORE_DRIVER", "postgres")
	t.Setenv("NOTICIAS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("NOTICIAS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "noticias.db"
	cfg.LLM.Key = "sk-ant-key"
	cfg.Retry.LLM.MaxAttempts = 3
	cfg.Retry.RPC.MaxAttempts = 2
	cfg.Server.Port = 8080
	cfg.Jobs.Workers = 10
	cfg.Jobs.QueueDepth = 100
	cfg.Jobs.MaxTracked = 1000
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.LLM.Key = ""

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "llm.key is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_WorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Jobs.Workers = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "jobs.workers must be between 1 and 100")

	cfg.Jobs.Workers = 101
	err = cfg.Validate("serve")
	assert.Error(t, err)

	cfg.Jobs.Workers = 100
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateRetryBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Retry.LLM.MaxAttempts = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry.llm.max_attempts must be between 1 and 10")

	cfg.Retry.LLM.MaxAttempts = 3
	cfg.Retry.RPC.MaxAttempts = 11
	err = cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry.rpc.max_attempts must be between 1 and 10")
}

func TestValidateBadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
