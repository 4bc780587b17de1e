package query

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/cli/helpers"
	"github.com/coral-mesh/listquery/internal/duckdb"
	lq "github.com/coral-mesh/listquery/pkg/query"
)

var (
	indexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	opStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	exprStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// NewCompileCmd creates the compile command.
func NewCompileCmd() *cobra.Command {
	var (
		settings     helpers.SettingsFlags
		propertyCase string
		sql          bool
		table        string
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Show how filters compile without running them",
		Long: `Prints the expression and bound value each filter compiles to. Filters with
an unknown operation are reported as skipped. With --sql, also prints the SQL
the DuckDB adapter would run for the count and for the page.

Example:
  listquery compile --sql --table users \
    --filter '[{"operation":"StartsWith","property":"name","value":"Ad","transform":"lower"}]' \
    --orderby 'age desc' --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Settings()
			if err != nil {
				return err
			}
			compiler := helpers.NewCompiler(propertyCase)

			w := cmd.OutOrStdout()
			printFilters(w, compiler, s)
			if !sql {
				return nil
			}
			if !duckdb.IsIdentifier(table) {
				return fmt.Errorf("invalid table name %q", table)
			}
			return printSQL(w, compiler, table, s)
		},
	}

	helpers.AddSettingsFlags(cmd, &settings)
	cmd.Flags().StringVar(&propertyCase, "property-case", "upper-first", `Property name mapping ("upper-first" or "none")`)
	cmd.Flags().BoolVar(&sql, "sql", false, "Also print the DuckDB SQL")
	cmd.Flags().StringVar(&table, "table", "dataset", "Table name used in the SQL")
	return cmd
}

func printFilters(w io.Writer, compiler *lq.Compiler, s *lq.Settings) {
	if len(s.Filters) == 0 {
		if s.Where != "" {
			_, _ = fmt.Fprintf(w, "%s %s %s\n", opStyle.Render("where"), exprStyle.Render(s.Where), valueStyle.Render(fmt.Sprint(s.WhereParams)))
		} else {
			_, _ = fmt.Fprintln(w, indexStyle.Render("no filters"))
		}
		return
	}

	for i, spec := range s.Filters {
		index := indexStyle.Render("[" + strconv.Itoa(i) + "]")
		op := opStyle.Render(spec.Operation.String())

		if spec.Operation.IsRaw() {
			_, _ = fmt.Fprintf(w, "%s %s %s %s\n", index, op, exprStyle.Render(spec.Sql), valueStyle.Render(fmt.Sprint(spec.RawArgs())))
			continue
		}
		expr, value := compiler.CompileExpression(spec)
		if expr == "" {
			_, _ = fmt.Fprintf(w, "%s %s %s\n", index, op, skipStyle.Render("skipped: unknown operation"))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s %s %s\n", index, op, exprStyle.Render(expr), valueStyle.Render(fmt.Sprintf("@0=%#v", value)))
	}
}

func printSQL(w io.Writer, compiler *lq.Compiler, table string, s *lq.Settings) error {
	pipeline := lq.NewPipeline(lq.WithCompiler(compiler))
	filtered, items := lq.Plan(pipeline, lq.Queryable[map[string]any](duckdb.Rows(nil, table)), s)

	for _, part := range []struct {
		title string
		q     lq.Queryable[map[string]any]
	}{
		{"count", filtered},
		{"page", items},
	} {
		rendered, ok := part.q.(*duckdb.Queryable[map[string]any])
		if !ok {
			return fmt.Errorf("unexpected queryable %T", part.q)
		}
		stmt, args, err := rendered.SQL()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "\n%s\n%s\n", titleStyle.Render(part.title), duckdb.InterpolateQuery(stmt, args))
	}
	return nil
}
