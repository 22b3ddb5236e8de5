package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T, maxSize int64) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(&LocalStorageConfig{
		BasePath:    t.TempDir(),
		MaxFileSize: maxSize,
	}, testLogger())
	require.NoError(t, err)
	return s
}

func TestSaveAndGetUpload(t *testing.T) {
	s := newTestStorage(t, 0)
	uploadID := uuid.NewString()

	meta, err := s.SaveUpload(context.Background(), uploadID, "contacts.xlsx", strings.NewReader("spreadsheet bytes"))
	require.NoError(t, err)

	assert.Equal(t, uploadID, meta.ID)
	assert.Equal(t, "contacts.xlsx", meta.OriginalName)
	assert.Equal(t, int64(len("spreadsheet bytes")), meta.Size)
	assert.NotEmpty(t, meta.Hash)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", meta.ContentType)
	assert.FileExists(t, meta.StoredPath)
	assert.Equal(t, meta.StoredPath, s.UploadPath(uploadID, "contacts.xlsx"))

	rc, err := s.GetUpload(context.Background(), uploadID, "contacts.xlsx")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "spreadsheet bytes", string(data))
}

func TestSaveUploadSanitizesFilename(t *testing.T) {
	s := newTestStorage(t, 0)

	meta, err := s.SaveUpload(context.Background(), uuid.NewString(), "../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", meta.StoredPath[strings.LastIndex(meta.StoredPath, "/")+1:])
}

func TestSaveUploadTooLarge(t *testing.T) {
	s := newTestStorage(t, 8)

	_, err := s.SaveUpload(context.Background(), uuid.NewString(), "big.csv", strings.NewReader("more than eight bytes"))
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestGetUploadMissing(t *testing.T) {
	s := newTestStorage(t, 0)

	_, err := s.GetUpload(context.Background(), uuid.NewString(), "nope.csv")
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestTemplates(t *testing.T) {
	s := newTestStorage(t, 0)

	path, err := s.SaveTemplate(context.Background(), "contacts", "template.xlsx", []byte("header row"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	data, err := s.GetTemplate(context.Background(), "contacts", "template.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "header row", string(data))

	_, err = s.GetTemplate(context.Background(), "contacts", "missing.xlsx")
	require.Error(t, err)
}

func TestDeleteUpload(t *testing.T) {
	s := newTestStorage(t, 0)
	uploadID := uuid.NewString()

	meta, err := s.SaveUpload(context.Background(), uploadID, "contacts.csv", strings.NewReader("a,b,c"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteUpload(context.Background(), uploadID))
	assert.NoFileExists(t, meta.StoredPath)

	// Deleting again is a no-op.
	require.NoError(t, s.DeleteUpload(context.Background(), uploadID))
}

func TestCleanupOldUploads(t *testing.T) {
	s := newTestStorage(t, 0)

	oldID := uuid.NewString()
	oldMeta, err := s.SaveUpload(context.Background(), oldID, "old.csv", strings.NewReader("old"))
	require.NoError(t, err)

	newID := uuid.NewString()
	newMeta, err := s.SaveUpload(context.Background(), newID, "new.csv", strings.NewReader("new"))
	require.NoError(t, err)

	oldDir := s.UploadPath(oldID, "")
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, past, past))

	require.NoError(t, s.CleanupOldUploads(context.Background(), 24*time.Hour))

	assert.NoFileExists(t, oldMeta.StoredPath)
	assert.FileExists(t, newMeta.StoredPath)
}
