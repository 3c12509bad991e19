package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPgx    = "pgx"
	DriverStdlib = "stdlib"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	defaultOllamaURL = "http://localhost:11434"
	defaultOpenAIURL = "https://api.openai.com"
)

type Config struct {
	// Database connection.
	DatabaseURL  string
	DBDriver     string // "pgx" (default) or "stdlib"
	MaxRows      int    // 0 means unlimited
	QueryTimeout time.Duration

	// Language model.
	LLMProvider string // "ollama" (default) or "openai"
	LLMBaseURL  string
	LLMAPIKey   string
	Model       string
	LLMTimeout  time.Duration

	// Statement gate.
	StrictParse bool // also parse with the PostgreSQL grammar
	ExplainOnly bool // return plans instead of rows

	PolicyFile string // optional path to policy YAML
	AuditLog   string // optional path to NDJSON audit log

	// Logging.
	LogLevel slog.Level

	// HTTP transport.
	HTTPAddr        string
	HTTPBearerToken string // optional; protects /ask and /mcp when set

	// Connection pool.
	PoolMaxConns        int32
	PoolMinConns        int32
	PoolMaxConnLifetime time.Duration

	// Observability.
	OTelEnabled bool
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	ConfigFile      *string
	DatabaseURL     *string
	DBDriver        *string
	LLMProvider     *string
	LLMBaseURL      *string
	Model           *string
	LogLevel        *string
	MaxRows         *int
	QueryTimeout    *time.Duration
	PolicyFile      *string
	AuditLog        *string
	HTTPAddr        *string
	HTTPBearerToken *string
	StrictParse     bool
	ExplainOnly     bool
	OTelEnabled     bool

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration

	// Offline skips the checks that only matter when talking to the
	// database or the model, for commands that do neither.
	Offline bool
}

// Load builds a Config from defaults, an optional YAML file, environment
// variables and CLI overrides, in that order, then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	path := os.Getenv("ASKDB_CONFIG")
	if overrides.ConfigFile != nil {
		path = *overrides.ConfigFile
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg, overrides.Offline); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DBDriver:            DriverPgx,
		MaxRows:             1000,
		QueryTimeout:        10 * time.Second,
		LLMProvider:         ProviderOllama,
		Model:               "llama3.2",
		LLMTimeout:          120 * time.Second,
		LogLevel:            slog.LevelInfo,
		HTTPAddr:            ":8000",
		PoolMaxConns:        5,
		PoolMinConns:        1,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.DBDriver, "DB_DRIVER")

	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MAX_ROWS value %q: must be a non-negative integer", v)
		}
		cfg.MaxRows = n
	}
	if err := setDuration(&cfg.QueryTimeout, "QUERY_TIMEOUT"); err != nil {
		return err
	}

	setString(&cfg.LLMProvider, "LLM_PROVIDER")
	setString(&cfg.LLMBaseURL, "OLLAMA_HOST")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.Model, "OLLAMA_MODEL")
	setString(&cfg.Model, "LLM_MODEL")
	if err := setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT"); err != nil {
		return err
	}

	if err := setBool(&cfg.StrictParse, "STRICT_PARSE"); err != nil {
		return err
	}
	if err := setBool(&cfg.ExplainOnly, "EXPLAIN_ONLY"); err != nil {
		return err
	}

	setString(&cfg.PolicyFile, "POLICY_FILE")
	setString(&cfg.AuditLog, "AUDIT_LOG")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.HTTPBearerToken, "HTTP_BEARER_TOKEN")

	if err := setBool(&cfg.OTelEnabled, "OTEL_ENABLED"); err != nil {
		return err
	}

	return loadPoolEnvVars(cfg)
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	return setDuration(&cfg.PoolMaxConnLifetime, "POOL_MAX_CONN_LIFETIME")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.DBDriver != nil {
		cfg.DBDriver = *o.DBDriver
	}
	if o.LLMProvider != nil {
		cfg.LLMProvider = *o.LLMProvider
	}
	if o.LLMBaseURL != nil {
		cfg.LLMBaseURL = *o.LLMBaseURL
	}
	if o.Model != nil {
		cfg.Model = *o.Model
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.MaxRows != nil {
		if *o.MaxRows < 0 {
			return fmt.Errorf("invalid --max-rows value: must be a non-negative integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.StrictParse = cfg.StrictParse || o.StrictParse
	cfg.ExplainOnly = cfg.ExplainOnly || o.ExplainOnly
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config and fills in
// the provider's default base URL.
func validate(cfg *Config, offline bool) error {
	switch cfg.DBDriver {
	case DriverPgx, DriverStdlib:
	default:
		return fmt.Errorf("invalid DB_DRIVER value %q: must be %q or %q", cfg.DBDriver, DriverPgx, DriverStdlib)
	}

	switch cfg.LLMProvider {
	case ProviderOllama:
		if cfg.LLMBaseURL == "" {
			cfg.LLMBaseURL = defaultOllamaURL
		}
	case ProviderOpenAI:
		if cfg.LLMBaseURL == "" {
			cfg.LLMBaseURL = defaultOpenAIURL
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER value %q: must be %q or %q", cfg.LLMProvider, ProviderOllama, ProviderOpenAI)
	}

	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("OLLAMA_MODEL must not be empty")
	}
	// statement_timeout is set in whole milliseconds and 0 disables it.
	if cfg.QueryTimeout < time.Millisecond {
		return fmt.Errorf("invalid QUERY_TIMEOUT value %s: must be at least 1ms", cfg.QueryTimeout)
	}
	if cfg.LLMTimeout <= 0 {
		return fmt.Errorf("invalid LLM_TIMEOUT value %s: must be positive", cfg.LLMTimeout)
	}
	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	if offline {
		return nil
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var or --database-url flag)")
	}
	if cfg.LLMProvider == ProviderOpenAI && cfg.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER is %q", ProviderOpenAI)
	}

	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
