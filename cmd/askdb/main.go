package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermoBallester/askdb/internal/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "askdb",
		Short: "Answer questions about a PostgreSQL database with model-generated, validated SQL",
		Long: `askdb turns a natural-language question into a single read-only SELECT.
The model's output is stripped of markdown fences, checked against a keyword
gate and run inside a read-only transaction with a row cap and a timeout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.String("config", "", "path to a YAML config file (env: ASKDB_CONFIG)")
	f.String("database-url", "", "PostgreSQL connection URL (env: DATABASE_URL)")
	f.String("db-driver", "", "database driver: pgx or stdlib (env: DB_DRIVER)")
	f.String("llm-provider", "", "model provider: ollama or openai (env: LLM_PROVIDER)")
	f.String("llm-base-url", "", "model server base URL (env: OLLAMA_HOST, LLM_BASE_URL)")
	f.String("model", "", "model name (env: OLLAMA_MODEL)")
	f.String("log-level", "", "debug, info, warn or error (env: LOG_LEVEL)")
	f.Int("max-rows", 0, "row cap per query, 0 for none (env: MAX_ROWS)")
	f.Duration("query-timeout", 0, "statement timeout (env: QUERY_TIMEOUT)")
	f.String("policy-file", "", "policy YAML with table context, examples and masks (env: POLICY_FILE)")
	f.String("audit-log", "", "append one NDJSON line per request to this file (env: AUDIT_LOG)")
	f.String("http-addr", "", "HTTP listen address (env: HTTP_ADDR)")
	f.String("http-bearer-token", "", "bearer token protecting /ask and /mcp (env: HTTP_BEARER_TOKEN)")
	f.Int32("pool-max-conns", 0, "maximum pool connections (env: POOL_MAX_CONNS)")
	f.Int32("pool-min-conns", 0, "minimum pool connections (env: POOL_MIN_CONNS)")
	f.Duration("pool-max-conn-lifetime", 0, "maximum connection lifetime (env: POOL_MAX_CONN_LIFETIME)")
	f.Bool("strict-parse", false, "also parse statements with the PostgreSQL grammar (env: STRICT_PARSE)")
	f.Bool("explain-only", false, "return query plans instead of rows (env: EXPLAIN_ONLY)")
	f.Bool("otel", false, "export traces and metrics over OTLP (env: OTEL_ENABLED)")

	root.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newAskCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

// overridesFromFlags collects the flags the user actually set. Unset flags
// stay nil so environment variables and the config file keep precedence.
func overridesFromFlags(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()

	strs := []struct {
		name string
		dst  **string
	}{
		{"config", &o.ConfigFile},
		{"database-url", &o.DatabaseURL},
		{"db-driver", &o.DBDriver},
		{"llm-provider", &o.LLMProvider},
		{"llm-base-url", &o.LLMBaseURL},
		{"model", &o.Model},
		{"log-level", &o.LogLevel},
		{"policy-file", &o.PolicyFile},
		{"audit-log", &o.AuditLog},
		{"http-addr", &o.HTTPAddr},
		{"http-bearer-token", &o.HTTPBearerToken},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, err := flags.GetString(s.name)
		if err != nil {
			return o, err
		}
		*s.dst = &v
	}

	if flags.Changed("max-rows") {
		v, err := flags.GetInt("max-rows")
		if err != nil {
			return o, err
		}
		o.MaxRows = &v
	}
	if flags.Changed("query-timeout") {
		v, err := flags.GetDuration("query-timeout")
		if err != nil {
			return o, err
		}
		o.QueryTimeout = &v
	}
	if flags.Changed("pool-max-conns") {
		v, err := flags.GetInt32("pool-max-conns")
		if err != nil {
			return o, err
		}
		o.PoolMaxConns = &v
	}
	if flags.Changed("pool-min-conns") {
		v, err := flags.GetInt32("pool-min-conns")
		if err != nil {
			return o, err
		}
		o.PoolMinConns = &v
	}
	if flags.Changed("pool-max-conn-lifetime") {
		v, err := flags.GetDuration("pool-max-conn-lifetime")
		if err != nil {
			return o, err
		}
		o.PoolMaxConnLifetime = &v
	}

	var err error
	if o.StrictParse, err = flags.GetBool("strict-parse"); err != nil {
		return o, err
	}
	if o.ExplainOnly, err = flags.GetBool("explain-only"); err != nil {
		return o, err
	}
	if o.OTelEnabled, err = flags.GetBool("otel"); err != nil {
		return o, err
	}
	return o, nil
}

// loadConfig resolves the layered configuration for cmd.
func loadConfig(cmd *cobra.Command, offline bool) (*config.Config, error) {
	o, err := overridesFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	o.Offline = offline
	cfg, err := config.Load(o)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
