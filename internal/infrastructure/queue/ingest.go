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
	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// IngestPayload identifies one uploaded file and the schema to map it
// against.
type IngestPayload struct {
	UploadID string `json:"upload_id"`
	FileName string `json:"file_name"`
	Schema   string `json:"schema"`
}

// NewIngestTask builds the queue task for one ingestion run
func NewIngestTask(p IngestPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}
	return asynq.NewTask(TaskTypeIngestSheet, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}

// UploadSource resolves stored uploads to local paths.
type UploadSource interface {
	UploadPath(uploadID, filename string) string
}

// IngestHandler processes queued ingestion runs. One Task instance is
// built per delivery, so concurrent deliveries never share run state.
type IngestHandler struct {
	registry   *readers.Registry
	schemas    map[string]schema.Schema
	uploads    UploadSource
	rowHandler tasks.Handler
	progress   tasks.ProgressSink
	// saveFor builds the fault-log sink for one run.
	saveFor func(runID, schemaName string) tasks.SaveFunc
	logger  *slog.Logger
}

// IngestHandlerConfig wires the handler's collaborators.
type IngestHandlerConfig struct {
	Registry   *readers.Registry
	Schemas    map[string]schema.Schema
	Uploads    UploadSource
	RowHandler tasks.Handler
	Progress   tasks.ProgressSink
	SaveFor    func(runID, schemaName string) tasks.SaveFunc
}

func NewIngestHandler(cfg IngestHandlerConfig, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{
		registry:   cfg.Registry,
		schemas:    cfg.Schemas,
		uploads:    cfg.Uploads,
		rowHandler: cfg.RowHandler,
		progress:   cfg.Progress,
		saveFor:    cfg.SaveFor,
		logger:     logger,
	}
}

// ProcessTask runs one ingestion from the queue
func (h *IngestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	s, ok := h.schemas[payload.Schema]
	if !ok {
		return fmt.Errorf("unknown schema %q: %w", payload.Schema, asynq.SkipRetry)
	}

	opts := []tasks.Option{tasks.WithRunID(payload.UploadID)}
	if h.progress != nil {
		opts = append(opts, tasks.WithProgress(h.progress))
	}
	if h.saveFor != nil {
		opts = append(opts, tasks.WithSave(h.saveFor(payload.UploadID, payload.Schema)))
	}

	run := tasks.NewTask(h.registry, s, h.rowHandler, h.logger, opts...)

	path := h.uploads.UploadPath(payload.UploadID, payload.FileName)
	if err := run.Prepare(path); err != nil {
		// An unmapped extension will not fix itself on retry.
		if appErr, ok := apperrors.GetAppError(err); ok && appErr.Code == apperrors.ErrCodeUnsupportedFormat {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Info("ingest run starting",
		slog.String("upload_id", payload.UploadID),
		slog.String("file", payload.FileName),
		slog.String("schema", payload.Schema))

	if err := run.Handle(ctx); err != nil {
		if appErr, ok := apperrors.GetAppError(err); ok {
			switch appErr.Code {
			case apperrors.ErrCodeSheetNotFound, apperrors.ErrCodeInvalidFile, apperrors.ErrCodeDecodeError, apperrors.ErrCodeMissingPart:
				// Structural faults in the uploaded file are permanent.
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
		}
		return err
	}

	h.logger.Info("ingest run finished",
		slog.String("upload_id", payload.UploadID),
		slog.Int("rows", run.Faults().Len()),
		slog.Int("broken_rows", run.Faults().BrokenRows()))

	return nil
}
