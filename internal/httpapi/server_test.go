package httpapi

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/testutil"
	"github.com/coral-mesh/listquery/pkg/query"
)

type staticCatalog struct{}

func (staticCatalog) Names() []string { return []string{"a", "b"} }

func (staticCatalog) List(context.Context, string, *query.Settings) (*query.Page[map[string]any], error) {
	return &query.Page[map[string]any]{Items: []map[string]any{}}, nil
}

func TestNew_RequiresCatalog(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{Server: config.ServerConfig{Port: 9999}, Catalog: staticCatalog{}})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", srv.Addr())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	srv, err := New(Config{
		Server:  config.ServerConfig{ShutdownTimeout: 2 * time.Second},
		Catalog: staticCatalog{},
		Logger:  testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))

	resp, err = http.Get("http://" + ln.Addr().String() + "/v1/datasets")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
