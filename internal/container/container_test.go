package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"roadwatch/config"
	"roadwatch/internal/domain/entity"
)

func testConfig(t *testing.T, backend, transport string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.StoreBackend = backend
	cfg.DetectorTransport = transport
	return cfg
}

func TestNew_JSONBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendJSON, config.TransportHTTP)

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	require.DirExists(t, cfg.DataDir)
	require.NotNil(t, c.UserService)
	require.NotNil(t, c.Pipeline)
	require.Equal(t, entity.DefaultPipelineConfig(), c.Pipeline.Config())

	balance, err := c.ReportService.Wallet(context.Background())
	require.NoError(t, err)
	require.Zero(t, balance)

	reports, err := c.ReportService.Reports(context.Background())
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestNew_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite, config.TransportWebSocket)

	c, err := New(cfg, nil)
	require.NoError(t, err)

	balance, err := c.ReportService.Wallet(context.Background())
	require.NoError(t, err)
	require.Zero(t, balance)

	require.FileExists(t, filepath.Join(cfg.DataDir, sqliteFile))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNew_MemoryBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory, config.TransportHTTP)
	require.NoError(t, cfg.Validate())

	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	reports, err := c.ReportService.Reports(context.Background())
	require.NoError(t, err)
	require.Empty(t, reports)
	require.NoFileExists(t, filepath.Join(cfg.DataDir, reportsFile))
	require.NoFileExists(t, filepath.Join(cfg.DataDir, sqliteFile))
}

func TestContainer_CheckDetector(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() && r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t, config.BackendJSON, config.TransportHTTP)
	cfg.DetectorURL = srv.URL + "/predict"
	c, err := New(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.CheckDetector(context.Background()))
	healthy.Store(false)
	require.Error(t, c.CheckDetector(context.Background()))

	ws := testConfig(t, config.BackendJSON, config.TransportWebSocket)
	c, err = New(ws, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.CheckDetector(context.Background()))
}

func TestNew_DataDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := config.Default()
	cfg.DataDir = path
	_, err := New(cfg, nil)
	require.Error(t, err)
}
