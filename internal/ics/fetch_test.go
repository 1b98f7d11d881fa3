package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ics"), sourceB(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.ICS"), sourceA(), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.ics"), 0o700))

	sources, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "A.ICS", sources[0].Name)
	assert.Equal(t, "b.ics", sources[1].Name)
	assert.Equal(t, sourceB(), sources[1].Body)

	_, err = LoadDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFetcherUsesCacheOnNotModified(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(sourceC())
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	feed := Feed{ID: "fisica", URL: srv.URL + "/cal.ics?token=secret"}

	body, err := f.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, sourceC(), body)

	body, err = f.Fetch(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, sourceC(), body)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcherFallsBackToCacheOnError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(sourceA())
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	feeds := []Feed{{ID: "a", URL: srv.URL}, {ID: "empty"}}

	sources, errs := f.FetchAll(context.Background(), feeds)
	require.Len(t, sources, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "a.ics", sources[0].Name)

	fail.Store(true)
	body, err := f.Fetch(context.Background(), feeds[0])
	require.NoError(t, err)
	assert.Equal(t, sourceA(), body)

	_, err = NewFetcher(t.TempDir(), srv.Client()).Fetch(context.Background(), feeds[0])
	assert.ErrorContains(t, err, "500")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/cal.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
