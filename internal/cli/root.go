// Package cli wires the listquery commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/cli/helpers"
	"github.com/coral-mesh/listquery/internal/cli/history"
	"github.com/coral-mesh/listquery/internal/cli/query"
	"github.com/coral-mesh/listquery/internal/cli/serve"
	"github.com/coral-mesh/listquery/pkg/version"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "listquery",
		Short: "Filter, sort and page datasets with list query parameters",
		Long: `listquery translates list request parameters ($filter, $where, $orderby,
$skip, $top) into queries over in-memory JSON datasets and DuckDB tables, and
returns one page of results together with the total match count.

Run "listquery serve" for the HTTP API, or "listquery query" to try a query
from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(helpers.FlagConfig, "", "Config file (default $LISTQUERY_CONFIG or ~/.listquery/config.yaml)")
	rootCmd.PersistentFlags().String(helpers.FlagLogLevel, "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serve.NewServeCmd())
	rootCmd.AddCommand(query.NewQueryCmd())
	rootCmd.AddCommand(query.NewCompileCmd())
	rootCmd.AddCommand(query.NewSchemaCmd())
	rootCmd.AddCommand(history.NewHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			if short {
				cmd.Println(info.Version)
				return
			}
			cmd.Printf("listquery version %s\n", info.Version)
			cmd.Printf("Git commit: %s\n", info.GitCommit)
			cmd.Printf("Build date: %s\n", info.BuildDate)
			cmd.Printf("Go version: %s\n", info.GoVersion)
			cmd.Printf("Platform: %s\n", info.Platform)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
