package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/uselessvevo/fuse-sheets/internal/core/readers"
	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
)

// TemplatePayload asks for a downloadable template workbook whose header
// row matches a schema's verbose names.
type TemplatePayload struct {
	Schema   string `json:"schema"`
	Sheet    string `json:"sheet"`
	FileName string `json:"file_name"`
}

// NewTemplateTask builds the queue task for template generation
func NewTemplateTask(p TemplatePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template payload: %w", err)
	}
	return asynq.NewTask(TaskTypeWriteTemplate, payload, asynq.MaxRetry(2)), nil
}

// TemplateStore persists generated template files.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, schemaName string, filename string, data []byte) (string, error)
}

// TemplateHandler renders template workbooks from registered schemas.
type TemplateHandler struct {
	schemas map[string]schema.Schema
	store   TemplateStore
	logger  *slog.Logger
}

func NewTemplateHandler(schemas map[string]schema.Schema, store TemplateStore, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{schemas: schemas, store: store, logger: logger}
}

func (h *TemplateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload TemplatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal template payload: %v: %w", err, asynq.SkipRetry)
	}

	s, ok := h.schemas[payload.Schema]
	if !ok {
		return fmt.Errorf("unknown schema %q: %w", payload.Schema, asynq.SkipRetry)
	}

	buf, err := readers.WriteTemplate(s, payload.Sheet)
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	fileName := payload.FileName
	if fileName == "" {
		fileName = payload.Schema + "_template.xlsx"
	}

	path, err := h.store.SaveTemplate(ctx, payload.Schema, fileName, buf.Bytes())
	if err != nil {
		return err
	}

	h.logger.Info("template rendered",
		slog.String("schema", payload.Schema),
		slog.String("path", path))
	return nil
}

// CleanupPayload bounds the retention window for stored uploads.
type CleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

// NewCleanupTask builds the periodic upload-retention task
func NewCleanupTask(p CleanupPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TaskTypeCleanupUploads, payload, asynq.MaxRetry(1)), nil
}

// UploadJanitor removes expired uploads.
type UploadJanitor interface {
	CleanupOldUploads(ctx context.Context, olderThan time.Duration) error
}

// CleanupHandler applies the retention window to stored uploads.
type CleanupHandler struct {
	janitor UploadJanitor
	logger  *slog.Logger
}

func NewCleanupHandler(janitor UploadJanitor, logger *slog.Logger) *CleanupHandler {
	return &CleanupHandler{janitor: janitor, logger: logger}
}

func (h *CleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal cleanup payload: %v: %w", err, asynq.SkipRetry)
	}

	olderThan := time.Duration(payload.OlderThanHours) * time.Hour
	if olderThan <= 0 {
		olderThan = 72 * time.Hour
	}

	if err := h.janitor.CleanupOldUploads(ctx, olderThan); err != nil {
		return err
	}

	h.logger.Info("upload cleanup finished",
		slog.Duration("older_than", olderThan))
	return nil
}
