package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/binpusher/internal/config"
)

// fakeFirebase keeps bin statuses and waste logs in memory
type fakeFirebase struct {
	mu       sync.Mutex
	statuses map[string]json.RawMessage
	logs     []json.RawMessage
}

func newFakeFirebase(t *testing.T) *httptest.Server {
	t.Helper()
	fb := &fakeFirebase{statuses: map[string]json.RawMessage{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/binStatuses/"):
			fb.statuses[r.URL.Path] = body
			_, _ = w.Write(body)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/binStatuses/"):
			if s, ok := fb.statuses[r.URL.Path]; ok {
				_, _ = w.Write(s)
				return
			}
			_, _ = w.Write([]byte("null"))
		case r.Method == http.MethodPost && r.URL.Path == "/wasteLogs.json":
			fb.logs = append(fb.logs, body)
			_, _ = w.Write([]byte(`{"name":"-Ntest1"}`))
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// resetFlags puts the package-level flag vars back to their defaults,
// since cobra leaves them set between invocations
func resetFlags() {
	cfgFile = ""
	dbPath = ""
	listLimit = 20
	statusBinID = ""
	initEndpoint = ""
	initForce = false
	rootCmd.SetContext(context.Background())
}

func writeConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Endpoint = endpoint
	cfg.Sensor.Seed = 7
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(dir, "journal.db")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestOnceListAndStatus(t *testing.T) {
	srv := newFakeFirebase(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "once", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Pushed: Level=")
	assert.Contains(t, out, "Waste log key: -Ntest1")

	out, err = execute(t, "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 cycles (1 published, 0 failed)")

	out, err = execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Bin:          h1")
	assert.Contains(t, out, "Last updated:")
}

func TestOnceFailsOnStoreError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Permission denied", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	_, err := execute(t, "once", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating bin status")
	assert.Contains(t, err.Error(), "status 401")

	out, err := execute(t, "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "FAILED:")
	assert.Contains(t, out, "(0 published, 1 failed)")
}

func TestStatusForUnknownBin(t *testing.T) {
	srv := newFakeFirebase(t)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "status", "--config", cfgPath, "--bin", "h9")
	require.NoError(t, err)
	assert.Contains(t, out, "No status found for h9")
}

func TestInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "init", "--config", path, "--endpoint", "https://bins.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://bins.example.com", cfg.Endpoint)
	assert.Equal(t, "h1", cfg.GetBinID())

	_, err = execute(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: ftp://nope\n"), 0600))

	_, err := execute(t, "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRunPrintsBannerAndShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var puts atomic.Int32
	fb := newFakeFirebase(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the second cycle's status update stops the loop
		if r.Method == http.MethodPut && puts.Add(1) == 2 {
			cancel()
		}
		fb.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cfgPath := writeConfig(t, srv.URL)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.IntervalSeconds = 0.01
	require.NoError(t, config.Save(cfgPath, cfg))

	out, err := executeContext(t, ctx, "--config", cfgPath)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Starting sensor push loop...\nTarget: "+srv.URL+"\n"), out)
	assert.Contains(t, out, "Pushed: Level=")
	assert.True(t, strings.HasSuffix(out, "Shutting down...\n"), out)
	assert.GreaterOrEqual(t, puts.Load(), int32(2))
}
