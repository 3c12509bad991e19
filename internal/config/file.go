package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config in YAML. Pointers leave unset keys at their
// defaults; durations are Go duration strings ("10s", "2m").
type fileConfig struct {
	DatabaseURL  *string `yaml:"database_url"`
	DBDriver     *string `yaml:"db_driver"`
	MaxRows      *int    `yaml:"max_rows"`
	QueryTimeout *string `yaml:"query_timeout"`

	LLM struct {
		Provider *string `yaml:"provider"`
		BaseURL  *string `yaml:"base_url"`
		APIKey   *string `yaml:"api_key"`
		Model    *string `yaml:"model"`
		Timeout  *string `yaml:"timeout"`
	} `yaml:"llm"`

	StrictParse *bool   `yaml:"strict_parse"`
	ExplainOnly *bool   `yaml:"explain_only"`
	PolicyFile  *string `yaml:"policy_file"`
	AuditLog    *string `yaml:"audit_log"`
	LogLevel    *string `yaml:"log_level"`

	HTTP struct {
		Addr        *string `yaml:"addr"`
		BearerToken *string `yaml:"bearer_token"`
	} `yaml:"http"`

	Pool struct {
		MaxConns        *int32  `yaml:"max_conns"`
		MinConns        *int32  `yaml:"min_conns"`
		MaxConnLifetime *string `yaml:"max_conn_lifetime"`
	} `yaml:"pool"`

	OTelEnabled *bool `yaml:"otel_enabled"`
}

// loadFile applies the YAML file at path on top of cfg. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func loadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	assign(&cfg.DatabaseURL, fc.DatabaseURL)
	assign(&cfg.DBDriver, fc.DBDriver)
	if fc.MaxRows != nil {
		if *fc.MaxRows < 0 {
			return fmt.Errorf("invalid max_rows value %d: must be a non-negative integer", *fc.MaxRows)
		}
		cfg.MaxRows = *fc.MaxRows
	}

	assign(&cfg.LLMProvider, fc.LLM.Provider)
	assign(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	assign(&cfg.LLMAPIKey, fc.LLM.APIKey)
	assign(&cfg.Model, fc.LLM.Model)

	assign(&cfg.StrictParse, fc.StrictParse)
	assign(&cfg.ExplainOnly, fc.ExplainOnly)
	assign(&cfg.PolicyFile, fc.PolicyFile)
	assign(&cfg.AuditLog, fc.AuditLog)
	assign(&cfg.HTTPAddr, fc.HTTP.Addr)
	assign(&cfg.HTTPBearerToken, fc.HTTP.BearerToken)
	assign(&cfg.PoolMaxConns, fc.Pool.MaxConns)
	assign(&cfg.PoolMinConns, fc.Pool.MinConns)
	assign(&cfg.OTelEnabled, fc.OTelEnabled)

	if fc.LogLevel != nil {
		level, err := parseLogLevel(*fc.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"query_timeout", fc.QueryTimeout, &cfg.QueryTimeout},
		{"llm.timeout", fc.LLM.Timeout, &cfg.LLMTimeout},
		{"pool.max_conn_lifetime", fc.Pool.MaxConnLifetime, &cfg.PoolMaxConnLifetime},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", d.key, *d.src, err)
		}
		*d.dst = v
	}

	return nil
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
