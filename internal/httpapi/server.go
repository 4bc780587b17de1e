// Package httpapi serves datasets over HTTP. List endpoints accept the
// $filter, $where, $params, $orderby, $skip, $top, $page and $pagesize query
// parameters and answer with {"items": [...], "count": n, "nextPageLink": ...}.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/internal/querylog"
	"github.com/coral-mesh/listquery/pkg/query"
)

// Catalog is the dataset source served by the API.
type Catalog interface {
	Names() []string
	List(ctx context.Context, name string, settings *query.Settings) (*query.Page[map[string]any], error)
}

// Recorder stores executed queries. Optional.
type Recorder interface {
	Record(ctx context.Context, e *querylog.Entry) error
}

// Config contains dependencies for creating a Server.
type Config struct {
	Server  config.ServerConfig
	Catalog Catalog
	// History records every list request when set.
	History Recorder
	Logger  zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          zerolog.Logger
}

// New creates a Server. Nothing is bound until Start or Serve.
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	logger := cfg.Logger.With().Str("component", "httpapi").Logger()

	host := cfg.Server.Host
	if host == "" {
		host = constants.DefaultHost
	}
	shutdown := cfg.Server.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = constants.DefaultShutdownTimeout
	}

	h := &handlers{
		catalog:      cfg.Catalog,
		history:      cfg.History,
		maxTop:       cfg.Server.MaxTop,
		queryTimeout: cfg.Server.QueryTimeout,
		logger:       logger,
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port)),
			Handler:           h2c.NewHandler(h.routes(), &http2.Server{}),
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			IdleTimeout:       120 * time.Second,
		},
		shutdownTimeout: shutdown,
		logger:          logger,
	}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve listens on ln until ctx is canceled, then shuts down gracefully,
// waiting up to the configured shutdown timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP API server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Stopping HTTP API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}
