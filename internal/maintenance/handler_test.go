package maintenance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gallery-api/internal/media"
	"gallery-api/internal/observability"
)

type fakeSrcs struct {
	srcs map[string]struct{}
}

func (f *fakeSrcs) ReferencedSrcs(context.Context) (map[string]struct{}, error) {
	return f.srcs, nil
}

func cleanupFixture(t *testing.T, secret string) (*CleanupHandler, *media.DiskStore, *fakeSrcs) {
	t.Helper()

	files, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	srcs := &fakeSrcs{srcs: make(map[string]struct{})}
	handler := NewCleanupHandler(srcs, files, observability.NewLogger(), secret, time.Hour)
	return handler, files, srcs
}

func cleanupRequest(secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	return req
}

func TestCleanup_HiddenWithoutSecret(t *testing.T) {
	t.Parallel()

	handler, _, _ := cleanupFixture(t, "")

	rec := httptest.NewRecorder()
	handler.Handle(rec, cleanupRequest("anything"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanup_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	handler, _, _ := cleanupFixture(t, "cron-secret")

	rec := httptest.NewRecorder()
	handler.Handle(rec, cleanupRequest("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.Handle(rec, cleanupRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCleanup_RemovesOrphans(t *testing.T) {
	t.Parallel()

	handler, files, srcs := cleanupFixture(t, "cron-secret")

	kept, err := files.Save([]byte("kept"), "image/png")
	require.NoError(t, err)
	orphan, err := files.Save([]byte("orphan"), "image/png")
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(files.Dir(), name), old, old))
	}
	srcs.srcs["/uploads/"+kept] = struct{}{}

	rec := httptest.NewRecorder()
	handler.Handle(rec, cleanupRequest("cron-secret"))

	require.Equal(t, http.StatusOK, rec.Code)
	_, err = os.Stat(filepath.Join(files.Dir(), kept))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(files.Dir(), orphan))
	assert.True(t, os.IsNotExist(err))
}
