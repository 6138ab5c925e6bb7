package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sql-lab/configs"
	"sql-lab/internal/scripts"
	"sql-lab/internal/testutil"
	"sql-lab/pkg/api"
	"sql-lab/pkg/db"
	"sql-lab/pkg/redis"
)

func newDeps(t *testing.T, watch bool) (Deps, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.sql"),
		[]byte("-- Query 1\nSELECT name FROM colors ORDER BY name;\n"), 0o600))

	conn, err := db.Open(configs.DbConfig{
		Dialect: "sqlite",
		DSN:     fmt.Sprintf("file:server_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_, err = conn.Exec(`CREATE TABLE colors (name TEXT); INSERT INTO colors VALUES ('red'), ('blue');`)
	require.NoError(t, err)

	log := testutil.NewTestLogger(t)
	cfg := &configs.Config{
		Server: configs.ServerConfig{Addr: "127.0.0.1:0", RequestTimeout: 5 * time.Second},
		Sql:    configs.SqlConfig{Dir: dir, Catalog: "queries.sql", Source: "file", Watch: watch},
	}
	return Deps{
		Config: cfg,
		Db:     conn,
		Store:  scripts.NewFSStore(dir, log),
		Cache:  redis.NewRedis(configs.RedisConfig{}),
		Logger: log,
	}, dir
}

func run(t *testing.T, base, qid string) (int, api.RunQueryResponse) {
	t.Helper()
	resp, err := http.Post(base+api.PathRunQuery, "application/json", bytes.NewBufferString(`{"qid":"`+qid+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out api.RunQueryResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestHandler_Routes(t *testing.T) {
	deps, _ := newDeps(t, false)
	srv := httptest.NewServer(New(deps).Handler())
	defer srv.Close()

	code, out := run(t, srv.URL, "1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"name"}, out.Columns)
	assert.Len(t, out.Rows, 2)

	for _, path := range []string{api.PathHealth, api.PathQueries, api.PathCatalog, api.PathIntrospect, api.PathScripts} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.NotEmpty(t, resp.Header.Get("Content-Type"), path)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sqllab_query_runs_total{status="success"} 1`)
}

func TestServeListener_ReloadsCatalog(t *testing.T) {
	deps, dir := newDeps(t, true)
	s := New(deps)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + api.PathHealth)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	code, _ := run(t, base, "2")
	assert.Equal(t, http.StatusNotFound, code)

	// Rewritten on every tick: the watcher may not be registered yet on the first.
	updated := []byte("-- Query 1\nSELECT name FROM colors;\n\n-- Query 2\nSELECT COUNT(*) AS n FROM colors;\n")
	require.Eventually(t, func() bool {
		if err := os.WriteFile(filepath.Join(dir, "queries.sql"), updated, 0o600); err != nil {
			return false
		}
		resp, err := http.Post(base+api.PathRunQuery, "application/json", strings.NewReader(`{"qid":"2"}`))
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 400*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOpenStore(t *testing.T) {
	cfg := &configs.Config{Sql: configs.SqlConfig{Dir: "scripts", Source: "file"}}
	store, err := OpenStore(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)

	fs, ok := store.(*scripts.FSStore)
	require.True(t, ok)
	assert.Equal(t, "scripts", fs.Dir())
}
