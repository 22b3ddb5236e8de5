package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uselessvevo/fuse-sheets/internal/core/readers"
	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func contactsSchema() schema.Schema {
	return schema.Schema{
		schema.NewField("firstname", "Firstname", schema.String{Required: true}),
		schema.NewField("surname", "Surname", schema.String{Required: true}),
		schema.NewField("age", "Age", schema.Integer{}),
	}
}

type dirUploads struct {
	base string
}

func (u *dirUploads) UploadPath(uploadID, filename string) string {
	return filepath.Join(u.base, uploadID, filepath.Base(filename))
}

func writeUpload(t *testing.T, uploads *dirUploads, uploadID, filename, content string) {
	t.Helper()
	dir := filepath.Join(uploads.base, uploadID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func newIngestHandler(t *testing.T, uploads *dirUploads, saved *[]*tasks.Entry) *IngestHandler {
	t.Helper()
	return NewIngestHandler(IngestHandlerConfig{
		Registry:   readers.DefaultRegistry(testLogger()),
		Schemas:    map[string]schema.Schema{"contacts": contactsSchema()},
		Uploads:    uploads,
		RowHandler: func(context.Context, *schema.Record) error { return nil },
		SaveFor: func(runID, uploadID string) tasks.SaveFunc {
			return func(_ context.Context, _ string, entries []*tasks.Entry) error {
				*saved = entries
				return nil
			}
		},
	}, testLogger())
}

func TestNewIngestTask(t *testing.T) {
	task, err := NewIngestTask(IngestPayload{UploadID: "u1", FileName: "contacts.csv", Schema: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeIngestSheet, task.Type())

	var payload IngestPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "u1", payload.UploadID)
	assert.Equal(t, "contacts.csv", payload.FileName)
	assert.Equal(t, "contacts", payload.Schema)
}

func TestIngestHandlerProcessTask(t *testing.T) {
	uploads := &dirUploads{base: t.TempDir()}
	writeUpload(t, uploads, "u1", "contacts.csv",
		"Firstname,Surname,Age\nJane,Doe,30\nJohn,Smith,25\n")

	var saved []*tasks.Entry
	handler := newIngestHandler(t, uploads, &saved)

	task, err := NewIngestTask(IngestPayload{UploadID: "u1", FileName: "contacts.csv", Schema: "contacts"})
	require.NoError(t, err)

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	assert.Len(t, saved, 2)
}

func TestIngestHandlerUnknownSchema(t *testing.T) {
	uploads := &dirUploads{base: t.TempDir()}
	var saved []*tasks.Entry
	handler := newIngestHandler(t, uploads, &saved)

	task, err := NewIngestTask(IngestPayload{UploadID: "u1", FileName: "contacts.csv", Schema: "unknown"})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIngestHandlerUnsupportedFormat(t *testing.T) {
	uploads := &dirUploads{base: t.TempDir()}
	writeUpload(t, uploads, "u1", "contacts.pdf", "%PDF")

	var saved []*tasks.Entry
	handler := newIngestHandler(t, uploads, &saved)

	task, err := NewIngestTask(IngestPayload{UploadID: "u1", FileName: "contacts.pdf", Schema: "contacts"})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, saved)
}

func TestIngestHandlerSheetNotFound(t *testing.T) {
	uploads := &dirUploads{base: t.TempDir()}
	writeUpload(t, uploads, "u1", "contacts.csv", "Wrong,Headers\na,b\n")

	var saved []*tasks.Entry
	handler := newIngestHandler(t, uploads, &saved)

	task, err := NewIngestTask(IngestPayload{UploadID: "u1", FileName: "contacts.csv", Schema: "contacts"})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, saved)
}

type captureStore struct {
	schemaName string
	fileName   string
	data       []byte
}

func (s *captureStore) SaveTemplate(_ context.Context, schemaName, filename string, data []byte) (string, error) {
	s.schemaName = schemaName
	s.fileName = filename
	s.data = data
	return "/templates/" + schemaName + "/" + filename, nil
}

func TestTemplateHandler(t *testing.T) {
	store := &captureStore{}
	handler := NewTemplateHandler(map[string]schema.Schema{"contacts": contactsSchema()}, store, testLogger())

	task, err := NewTemplateTask(TemplatePayload{Schema: "contacts", Sheet: "Contacts"})
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))

	assert.Equal(t, "contacts", store.schemaName)
	assert.Equal(t, "contacts_template.xlsx", store.fileName)

	f, err := excelize.OpenReader(bytes.NewReader(store.data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Contacts")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Firstname", "Surname", "Age"}, rows[0])
}

type captureJanitor struct {
	olderThan time.Duration
}

func (j *captureJanitor) CleanupOldUploads(_ context.Context, olderThan time.Duration) error {
	j.olderThan = olderThan
	return nil
}

func TestCleanupHandler(t *testing.T) {
	janitor := &captureJanitor{}
	handler := NewCleanupHandler(janitor, testLogger())

	task, err := NewCleanupTask(CleanupPayload{OlderThanHours: 24})
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	assert.Equal(t, 24*time.Hour, janitor.olderThan)

	task, err = NewCleanupTask(CleanupPayload{})
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	assert.Equal(t, 72*time.Hour, janitor.olderThan)
}
