package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfolio/service/internal/settings"
)

type fixedSettings struct{ root string }

func (f fixedSettings) Current(context.Context) (settings.Snapshot, error) {
	return settings.Snapshot{LocalStoragePath: f.root}, nil
}

func TestFileServer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "portfolios", "c1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "portfolios", "c1", "a.txt"), []byte("hello"), 0o644))
	srv := FileServer(fixedSettings{root: root})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/portfolios/c1/a.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/portfolios/c1/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/portfolios", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
