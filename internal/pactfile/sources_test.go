package pactfile_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/pactfile"
)

const minimalPact = `{
	"consumer": {"name": "Consumer"},
	"provider": {"name": "Provider"},
	"interactions": [
		{"description": "a request", "request": {"method": "GET", "path": "/"},
		 "response": {"status": 200}}
	]
}`

func TestFileSource(t *testing.T) {
	t.Run("loads a pact file", func(t *testing.T) {
		path := writePact(t, t.TempDir(), "consumer-provider.json", minimalPact)
		pacts, err := pactfile.FileSource{Path: path}.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, pacts, 1)
		assert.Equal(t, "Consumer", pacts[0].Consumer)
		assert.Equal(t, path, pacts[0].Source)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := pactfile.FileSource{Path: "/does/not/exist.json"}.Fetch(context.Background())
		assert.Error(t, err)
	})
}

func TestDirSource(t *testing.T) {
	t.Run("loads every pact in name order", func(t *testing.T) {
		dir := t.TempDir()
		writePact(t, dir, "b.json", minimalPact)
		writePact(t, dir, "a.json", minimalPact)

		pacts, err := pactfile.DirSource{Dir: dir}.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, pacts, 2)
		assert.Equal(t, filepath.Join(dir, "a.json"), pacts[0].Source)
		assert.Equal(t, filepath.Join(dir, "b.json"), pacts[1].Source)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := pactfile.DirSource{Dir: t.TempDir()}.Fetch(context.Background())
		assert.Error(t, err)
	})
}

func TestURLSource(t *testing.T) {
	t.Run("fetches with a bearer token", func(t *testing.T) {
		var auth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.Write([]byte(minimalPact))
		}))
		defer server.Close()

		source := pactfile.URLSource{URL: server.URL, Auth: pactfile.Auth{Token: "secret"}}
		pacts, err := source.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, pacts, 1)
		assert.Equal(t, "Bearer secret", auth)
		assert.Equal(t, server.URL, pacts[0].Source)
	})

	t.Run("unauthorised", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := pactfile.URLSource{URL: server.URL}.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := pactfile.URLSource{URL: server.URL}.Fetch(context.Background())
		assert.Error(t, err)
	})
}

func writePact(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
