// Package query provides the commands that run, explain and describe list
// queries locally.
package query

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/catalog"
	"github.com/coral-mesh/listquery/internal/cli/helpers"
	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/constants"
	lq "github.com/coral-mesh/listquery/pkg/query"
)

type sourceFlags struct {
	dataset string
	json    string
	duckdb  string
	table   string
}

// resolve turns the flags into a single dataset definition. --dataset
// reads it from the configuration; --json and --duckdb define it inline.
func (f sourceFlags) resolve(cfg *config.Config) (config.DatasetConfig, error) {
	switch {
	case f.dataset != "":
		ds, ok := cfg.Dataset(f.dataset)
		if !ok {
			return config.DatasetConfig{}, fmt.Errorf("%w: %s", catalog.ErrDatasetNotFound, f.dataset)
		}
		return ds, nil
	case f.json != "":
		return config.DatasetConfig{Name: "json", Source: constants.SourceJSON, Path: f.json}, nil
	case f.duckdb != "":
		if f.table == "" {
			return config.DatasetConfig{}, fmt.Errorf("--table is required with --duckdb")
		}
		return config.DatasetConfig{Name: f.table, Source: constants.SourceDuckDB, Path: f.duckdb, Table: f.table}, nil
	default:
		return config.DatasetConfig{}, fmt.Errorf("one of --dataset, --json or --duckdb is required")
	}
}

// NewQueryCmd creates the query command.
func NewQueryCmd() *cobra.Command {
	var (
		source   sourceFlags
		settings helpers.SettingsFlags
		format   string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a list query against a dataset",
		Long: `Runs a list query against a configured dataset, a JSON file or a DuckDB table
and prints the matching page. The total number of matches is printed after
table and CSV output and included in JSON output.

Examples:
  # Active users, newest first, second page of ten
  listquery query --json users.json \
    --filter '[{"operation":"Eq","property":"status","value":"active"}]' \
    --orderby 'createdAt desc' --skip 10 --top 10

  # Same parameters as the HTTP API
  listquery query --duckdb shop.duckdb --table orders -q '$top=5&$orderby=total desc'

  # Raw expression against a configured dataset
  listquery query --dataset users --where 'Age >= int(@0)' --params 30 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.RecordFormats); err != nil {
				return err
			}
			cfg, err := helpers.LoadConfig(cmd)
			if err != nil {
				return err
			}
			ds, err := source.resolve(cfg)
			if err != nil {
				return err
			}
			s, err := settings.Settings()
			if err != nil {
				return err
			}

			logger := helpers.NewLogger(cmd, cfg)
			pipeline := lq.NewPipeline(
				lq.WithCompiler(helpers.NewCompiler(cfg.Query.PropertyCase)),
				lq.WithLogger(logger),
			)
			cat, err := catalog.Open(cmd.Context(), []config.DatasetConfig{ds}, pipeline, logger)
			if err != nil {
				return err
			}
			defer cat.Close()

			page, err := cat.List(cmd.Context(), ds.Name, s)
			if err != nil {
				return err
			}
			return printPage(cmd.OutOrStdout(), helpers.OutputFormat(format), page)
		},
	}

	cmd.Flags().StringVarP(&source.dataset, "dataset", "d", "", "Dataset name from the configuration")
	cmd.Flags().StringVar(&source.json, "json", "", "JSON array or JSON lines file")
	cmd.Flags().StringVar(&source.duckdb, "duckdb", "", "DuckDB database file")
	cmd.Flags().StringVar(&source.table, "table", "", "Table in the DuckDB database")
	cmd.MarkFlagsMutuallyExclusive("dataset", "json", "duckdb")
	helpers.AddSettingsFlags(cmd, &settings)
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.RecordFormats)

	return cmd
}

func printPage(w io.Writer, format helpers.OutputFormat, page *lq.Page[map[string]any]) error {
	formatter, err := helpers.NewFormatter(format)
	if err != nil {
		return err
	}
	if format == helpers.FormatJSON {
		return formatter.Format(page, w)
	}
	if err := formatter.Format(page.Items, w); err != nil {
		return err
	}
	if format == helpers.FormatTable {
		_, err = fmt.Fprintf(w, "\n%d of %d records\n", len(page.Items), page.Count)
	}
	return err
}
