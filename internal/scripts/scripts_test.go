package scripts

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
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sql-lab/internal/testutil"
	"sql-lab/pkg/api"
)

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestFSStore(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"queries.sql": "-- Query 1\nSELECT 1;",
		"schema.sql":  "CREATE TABLE t (id int);",
		"notes.txt":   "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.sql"), 0o700))
	s := NewFSStore(dir, testutil.NewTestLogger(t))
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"queries.sql", "schema.sql"}, names)

	b, err := s.Read(ctx, "queries.sql")
	require.NoError(t, err)
	assert.Equal(t, "-- Query 1\nSELECT 1;", string(b))

	_, err = s.Read(ctx, "seed.sql")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Read(ctx, "../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFSStore_Watch(t *testing.T) {
	dir := writeScripts(t, map[string]string{"queries.sql": "-- Query 1\nSELECT 1;"})
	s := NewFSStore(dir, testutil.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, 20*time.Millisecond, func(name string) { changed <- name })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queries.sql"), []byte("-- Query 1\nSELECT 2;"), 0o600))

	select {
	case name := <-changed:
		assert.Equal(t, "queries.sql", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	assert.NoError(t, <-done)
}

type fakeS3 struct {
	objects map[string]string
	pages   int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

// ListObjectsV2 returns one object per page to exercise pagination.
func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.pages++
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	keys = sorted(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		for i, k := range keys {
			if k == tok {
				start = i
			}
		}
	}
	out := &s3.ListObjectsV2Output{Contents: []types.Object{{Key: aws.String(keys[start])}}}
	if start+1 < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[start+1])
	}
	return out, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{
		"lab/queries.sql":     "-- Query 1\nSELECT 1;",
		"lab/schema.sql":      "CREATE TABLE t (id int);",
		"lab/readme.md":       "skip",
		"lab/old/queries.sql": "skip",
	}}
	s := NewS3Store(fake, "bucket", "lab")
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"queries.sql", "schema.sql"}, names)
	assert.Equal(t, 4, fake.pages)

	b, err := s.Read(ctx, "queries.sql")
	require.NoError(t, err)
	assert.Equal(t, "-- Query 1\nSELECT 1;", string(b))

	_, err = s.Read(ctx, "seed.sql")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newScriptsServer(t *testing.T, store Store) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	NewController(r, ControllerDeps{Store: store, Logger: testutil.NewTestLogger(t)})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestController(t *testing.T) {
	dir := writeScripts(t, map[string]string{"queries.sql": "-- Query 1\nSELECT 1;"})
	srv := newScriptsServer(t, NewFSStore(dir, testutil.NewTestLogger(t)))

	resp, err := http.Get(srv.URL + api.PathScripts)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list api.ScriptsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []string{"queries.sql"}, list.Scripts)

	resp2, err := http.Get(srv.URL + api.PathScripts + "/queries.sql")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "-- Query 1\nSELECT 1;", string(body))
}

func TestController_Errors(t *testing.T) {
	dir := writeScripts(t, nil)
	srv := newScriptsServer(t, NewFSStore(dir, testutil.NewTestLogger(t)))

	tests := []struct {
		path   string
		status int
		detail string
	}{
		{"/seed.sql", http.StatusNotFound, "Script seed.sql not found"},
		{"/notes.txt", http.StatusBadRequest, "Invalid script name"},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + api.PathScripts + tt.path)
		require.NoError(t, err)
		var body api.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, tt.status, resp.StatusCode, tt.path)
		assert.Equal(t, tt.detail, body.Detail)
	}

	resp, err := http.Get(srv.URL + api.PathScripts)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.JSONEq(t, `{"scripts":[]}`, buf.String())
}
