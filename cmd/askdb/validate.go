package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/service"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [sql]",
		Short: "Run the statement gate on SQL without a database or model",
		Long: `validate applies the same fence stripping and statement checks that guard
model output, then prints the cleaned statement. With no argument, or "-",
the SQL is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, true)
			if err != nil {
				return err
			}

			text, err := readStatement(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			var opts []service.Option
			if cfg.StrictParse {
				opts = append(opts, service.WithChecks(domain.NewParserCheck()))
			}
			svc := service.NewTranslationService(nil, cfg.Model, domain.NewStatementValidator(), nil, newLogger(cfg.LogLevel), opts...)

			stmt, err := svc.Check(text)
			if err != nil {
				return fmt.Errorf("rejected: %w", err)
			}
			if cfg.ExplainOnly {
				stmt = domain.Explain(stmt)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stmt.SQL())
			return nil
		},
	}
}

func readStatement(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}
