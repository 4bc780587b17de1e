// Package serve provides the command running the HTTP API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/listquery/internal/catalog"
	"github.com/coral-mesh/listquery/internal/cli/helpers"
	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/constants"
	lqerrors "github.com/coral-mesh/listquery/internal/errors"
	"github.com/coral-mesh/listquery/internal/httpapi"
	"github.com/coral-mesh/listquery/internal/querylog"
	"github.com/coral-mesh/listquery/pkg/query"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve configured datasets over HTTP",
		Long: `Serves every dataset from the configuration file under /v1/datasets/{name}.

List requests accept $filter, $where, $params, $orderby, $skip, $top, $page
and $pagesize and answer with {"items": [...], "count": n, "nextPageLink": "..."}.

Examples:
  listquery serve --config ./listquery.yaml
  curl 'http://127.0.0.1:8080/v1/datasets/users?$top=10&$orderby=name'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := helpers.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", constants.DefaultHost, "Listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", constants.DefaultPort, "Listen port (overrides config)")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := helpers.NewLogger(cmd, cfg)

	if len(cfg.Datasets) == 0 {
		logger.Warn().Msg("No datasets configured")
	}

	pipeline := query.NewPipeline(
		query.WithCompiler(helpers.NewCompiler(cfg.Query.PropertyCase)),
		query.WithLogger(logger),
	)
	cat, err := catalog.Open(ctx, cfg.Datasets, pipeline, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	var history httpapi.Recorder
	if cfg.History.Path != "" {
		store, err := querylog.Open(cfg.History.Path, logger)
		if err != nil {
			return err
		}
		defer lqerrors.DeferClose(logger, store, "failed to close query log")
		history = store
	}

	srv, err := httpapi.New(httpapi.Config{
		Server:  cfg.Server,
		Catalog: cat,
		History: history,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	return srv.ListenAndServe(ctx)
}
