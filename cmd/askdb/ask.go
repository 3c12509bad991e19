package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/guillermoBallester/askdb/internal/core/domain"
	"github.com/guillermoBallester/askdb/internal/core/service"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var errAnswerFailed = errors.New("question could not be answered")

func newAskCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputTable && output != outputJSON {
				return fmt.Errorf("invalid --output value %q: must be %q or %q", output, outputTable, outputJSON)
			}
			cfg, err := loadConfig(cmd, false)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			ctx := service.WithSource(cmd.Context(), "cli")
			result := a.svc.Answer(ctx, strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if output == outputJSON {
				if err := json.NewEncoder(out).Encode(result); err != nil {
					return fmt.Errorf("encoding result: %w", err)
				}
			} else if err := renderResult(out, result); err != nil {
				return err
			}
			if !result.OK {
				return errAnswerFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table or json")
	return cmd
}

// renderResult prints the statement and a table of rows, or the failure and
// the SQL that caused it.
func renderResult(w io.Writer, result domain.Result) error {
	if !result.OK {
		f := result.Failure
		fmt.Fprintln(w, pterm.Error.Sprintf("%s (stage: %s)", f.Message, f.Stage))
		if f.PartialData != "" {
			fmt.Fprintln(w, pterm.Gray(f.PartialData))
		}
		return nil
	}

	fmt.Fprintln(w, pterm.Info.Sprint(result.SQL))
	if len(result.Rows) == 0 {
		fmt.Fprintln(w, pterm.Warning.Sprint("no rows"))
		return nil
	}

	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(tableData(result.Rows)).
		Srender()
	if err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	fmt.Fprintln(w, table)
	fmt.Fprintln(w, pterm.Gray(fmt.Sprintf("%d row(s)", len(result.Rows))))
	return nil
}

// tableData lays rows out under a header of their column names. Rows are
// maps, so columns are sorted for a stable layout.
func tableData(rows []domain.Row) pterm.TableData {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				cols = append(cols, col)
			}
		}
	}
	slices.Sort(cols)

	data := pterm.TableData{cols}
	for _, row := range rows {
		line := make([]string, len(cols))
		for i, col := range cols {
			line[i] = formatCell(row[col])
		}
		data = append(data, line)
	}
	return data
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
