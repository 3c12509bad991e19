package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/shop", cfg.DatabaseURL)
	assert.Equal(t, DriverPgx, cfg.DBDriver)
	assert.Equal(t, 1000, cfg.MaxRows)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, "http://localhost:11434", cfg.LLMBaseURL)
	assert.Equal(t, "llama3.2", cfg.Model)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.StrictParse)
	assert.False(t, cfg.ExplainOnly)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_OfflineSkipsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load(Overrides{Offline: true})
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("DB_DRIVER", "stdlib")
	t.Setenv("MAX_ROWS", "0")
	t.Setenv("QUERY_TIMEOUT", "30s")
	t.Setenv("OLLAMA_MODEL", "qwen2.5-coder")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("LLM_TIMEOUT", "45s")
	t.Setenv("STRICT_PARSE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLICY_FILE", "/etc/askdb/policy.yaml")
	t.Setenv("AUDIT_LOG", "/var/log/askdb.jsonl")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("POOL_MAX_CONNS", "10")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DriverStdlib, cfg.DBDriver)
	assert.Equal(t, 0, cfg.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "qwen2.5-coder", cfg.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.LLMBaseURL)
	assert.Equal(t, 45*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.StrictParse)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/etc/askdb/policy.yaml", cfg.PolicyFile)
	assert.Equal(t, "/var/log/askdb.jsonl", cfg.AuditLog)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, int32(10), cfg.PoolMaxConns)
}

func TestLoad_LLMBaseURLWinsOverOllamaHost(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("OLLAMA_HOST", "http://a:11434")
	t.Setenv("LLM_BASE_URL", "http://b:8080")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "http://b:8080", cfg.LLMBaseURL)
}

func TestLoad_OpenAIProvider(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("LLM_PROVIDER", "openai")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")

	t.Setenv("LLM_API_KEY", "sk-test")
	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com", cfg.LLMBaseURL)
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"MAX_ROWS", "-1"},
		{"MAX_ROWS", "many"},
		{"QUERY_TIMEOUT", "soon"},
		{"LLM_TIMEOUT", "forever"},
		{"STRICT_PARSE", "maybe"},
		{"EXPLAIN_ONLY", "sometimes"},
		{"OTEL_ENABLED", "nope"},
		{"LOG_LEVEL", "verbose"},
		{"DB_DRIVER", "mysql"},
		{"LLM_PROVIDER", "anthropic"},
		{"POOL_MAX_CONNS", "0"},
		{"POOL_MIN_CONNS", "-2"},
		{"POOL_MAX_CONN_LIFETIME", "1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/shop")
			t.Setenv(tt.key, tt.value)

			_, err := Load(Overrides{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_QueryTimeoutBelowOneMillisecond(t *testing.T) {
	for _, v := range []string{"0s", "-1s", "500us", "999999ns"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/shop")
			t.Setenv("QUERY_TIMEOUT", v)

			_, err := Load(Overrides{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "QUERY_TIMEOUT")
			assert.Contains(t, err.Error(), "at least 1ms")
		})
	}

	t.Run("flag override is checked too", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/shop")
		t.Setenv("QUERY_TIMEOUT", "")
		d := 300 * time.Microsecond

		_, err := Load(Overrides{QueryTimeout: &d})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "QUERY_TIMEOUT")
	})

	t.Run("one millisecond is accepted", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/shop")
		t.Setenv("QUERY_TIMEOUT", "1ms")

		cfg, err := Load(Overrides{})
		require.NoError(t, err)
		assert.Equal(t, time.Millisecond, cfg.QueryTimeout)
	})
}

func TestLoad_PoolMinExceedsMax(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("POOL_MAX_CONNS", "2")
	t.Setenv("POOL_MIN_CONNS", "5")

	_, err := Load(Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/shop")
	t.Setenv("MAX_ROWS", "50")

	url := "postgres://flag/shop"
	rows := 7
	level := "warn"
	model := "sqlcoder"
	timeout := 3 * time.Second

	cfg, err := Load(Overrides{
		DatabaseURL:  &url,
		MaxRows:      &rows,
		LogLevel:     &level,
		Model:        &model,
		QueryTimeout: &timeout,
		StrictParse:  true,
		ExplainOnly:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "postgres://flag/shop", cfg.DatabaseURL)
	assert.Equal(t, 7, cfg.MaxRows)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "sqlcoder", cfg.Model)
	assert.Equal(t, 3*time.Second, cfg.QueryTimeout)
	assert.True(t, cfg.StrictParse)
	assert.True(t, cfg.ExplainOnly)
}

func TestLoad_InvalidOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	rows := -5
	_, err := Load(Overrides{MaxRows: &rows})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-rows")
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://file/shop
max_rows: 25
query_timeout: 5s
llm:
  model: mistral
  timeout: 1m
strict_parse: true
log_level: error
http:
  addr: ":9100"
pool:
  max_conns: 8
  max_conn_lifetime: 10m
`)
	t.Setenv("MAX_ROWS", "30")

	cfg, err := Load(Overrides{ConfigFile: &path})
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/shop", cfg.DatabaseURL)
	assert.Equal(t, 30, cfg.MaxRows, "env beats file")
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, time.Minute, cfg.LLMTimeout)
	assert.True(t, cfg.StrictParse)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)
	assert.Equal(t, ":9100", cfg.HTTPAddr)
	assert.Equal(t, int32(8), cfg.PoolMaxConns)
	assert.Equal(t, 10*time.Minute, cfg.PoolMaxConnLifetime)
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := writeConfig(t, "database_url: postgres://file/shop\n")
	t.Setenv("ASKDB_CONFIG", path)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/shop", cfg.DatabaseURL)
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "databse_url: x\n", "databse_url"},
		{"bad duration", "query_timeout: fast\n", "query_timeout"},
		{"negative rows", "max_rows: -1\n", "max_rows"},
		{"bad log level", "log_level: loud\n", "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(Overrides{ConfigFile: &path, Offline: true})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	missing := filepath.Join(t.TempDir(), "nope.yaml")
	_, err := Load(Overrides{ConfigFile: &missing, Offline: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_EmptyConfigFile(t *testing.T) {
	path := writeConfig(t, "")
	_, err := Load(Overrides{ConfigFile: &path, Offline: true})
	assert.NoError(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "askdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
