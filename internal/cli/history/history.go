// Package history provides the command listing recorded queries.
package history

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/cli/helpers"
	lqerrors "github.com/coral-mesh/listquery/internal/errors"
	"github.com/coral-mesh/listquery/internal/querylog"
)

// row is the tabular view of a query log entry.
type row struct {
	Time     string `header:"TIME"`
	Dataset  string `header:"DATASET"`
	Count    int64  `header:"COUNT"`
	Returned int    `header:"RETURNED"`
	Duration string `header:"DURATION"`
	Query    string `header:"QUERY"`
	Error    string `header:"ERROR"`
}

func toRows(entries []querylog.Entry) []row {
	rows := make([]row, len(entries))
	for i, e := range entries {
		rows[i] = row{
			Time:     e.CreatedAt.Local().Format(time.DateTime),
			Dataset:  e.Dataset,
			Count:    e.Count,
			Returned: e.Returned,
			Duration: time.Duration(e.DurationMs * float64(time.Millisecond)).Round(time.Microsecond).String(),
			Query:    e.RawQuery,
			Error:    e.Error,
		}
	}
	return rows
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var (
		settings helpers.SettingsFlags
		format   string
		path     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List queries recorded by the HTTP API",
		Long: `Lists entries of the query log written by "listquery serve" when history.path
is configured. The log is itself queried with the usual filter flags; entries
are newest first unless --orderby is given.

Examples:
  listquery history --top 20
  listquery history --filter '[{"operation":"Eq","property":"dataset","value":"users"}]'
  listquery history --where "error <> ''" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.RecordFormats); err != nil {
				return err
			}
			cfg, err := helpers.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.History.Path
			}
			if path == "" {
				return fmt.Errorf("no query log configured: set history.path or pass --path")
			}
			s, err := settings.Settings()
			if err != nil {
				return err
			}

			logger := helpers.NewLogger(cmd, cfg)
			store, err := querylog.Open(path, logger)
			if err != nil {
				return err
			}
			defer lqerrors.DeferClose(logger, store, "failed to close query log")

			page, err := store.List(cmd.Context(), s)
			if err != nil {
				return err
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			if helpers.OutputFormat(format) == helpers.FormatJSON {
				return formatter.Format(page, cmd.OutOrStdout())
			}
			return formatter.Format(toRows(page.Items), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Query log database (overrides history.path)")
	helpers.AddSettingsFlags(cmd, &settings)
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.RecordFormats)
	return cmd
}
