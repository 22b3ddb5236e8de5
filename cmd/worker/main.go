// The worker consumes queued ingestion jobs: it resolves the uploaded
// file to a reader backend, maps its rows against the configured schema
// and persists the resulting fault log, publishing per-row progress
// along the way.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/uselessvevo/fuse-sheets/internal/core/domain"
	"github.com/uselessvevo/fuse-sheets/internal/core/readers"
	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
	"github.com/uselessvevo/fuse-sheets/internal/infrastructure/database"
	"github.com/uselessvevo/fuse-sheets/internal/infrastructure/database/repositories"
	"github.com/uselessvevo/fuse-sheets/internal/infrastructure/progress"
	"github.com/uselessvevo/fuse-sheets/internal/infrastructure/queue"
	"github.com/uselessvevo/fuse-sheets/internal/infrastructure/storage"
	"github.com/uselessvevo/fuse-sheets/internal/pkg/config"
	"github.com/uselessvevo/fuse-sheets/internal/pkg/logger"
)

// ingestSchemas are the sheet layouts this deployment accepts.
func ingestSchemas() map[string]schema.Schema {
	return map[string]schema.Schema{
		"contacts": {
			schema.NewField("firstname", "Firstname", schema.String{Required: true}),
			schema.NewField("surname", "Surname", schema.String{Required: true}),
			schema.NewField("patronymic", "Patronymic", schema.String{}),
			schema.NewField("age", "Age", schema.Integer{Min: 0, Max: 150, Bounded: true}),
			schema.NewField("address", "Address", schema.String{}),
			schema.NewField("email", "Email", schema.Email{}),
			schema.NewField("date_of_birth", "Date of birth", schema.Date{}),
		},
	}
}

// skipBlankRows drops rows whose every mapped value is empty
func skipBlankRows(_ context.Context, record *schema.Record) error {
	for _, slot := range record.Slots() {
		if slot.Failed() {
			return nil
		}
		if value := slot.Value(); value != nil && value != "" {
			return nil
		}
	}
	return tasks.ErrSkipRow
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{
		BasePath:    cfg.Storage.BasePath,
		MaxFileSize: cfg.Storage.MaxFileSize * 1024 * 1024,
	}, logger.NewServiceLogger(log, "storage"))
	if err != nil {
		return err
	}

	db, err := database.NewPostgresDB(&cfg.Database, logger.NewServiceLogger(log, "database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(&domain.IngestRun{}, &domain.RowFault{}); err != nil {
		return err
	}

	publisher, err := progress.NewRedisPublisher(&cfg.Progress, logger.NewServiceLogger(log, "progress"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	faultLogs := repositories.NewFaultLogRepository(db.DB, logger.NewServiceLogger(log, "repository"))
	registry := readers.DefaultRegistry(logger.NewServiceLogger(log, "readers"))

	ingest := queue.NewIngestHandler(queue.IngestHandlerConfig{
		Registry:   registry,
		Schemas:    ingestSchemas(),
		Uploads:    store,
		RowHandler: skipBlankRows,
		Progress:   publisher,
		SaveFor: func(runID, schemaName string) tasks.SaveFunc {
			id, err := uuid.Parse(runID)
			if err != nil {
				id = uuid.New()
			}
			return faultLogs.AsSaveFunc(id, schemaName)
		},
	}, logger.NewServiceLogger(log, "ingest"))

	templates := queue.NewTemplateHandler(ingestSchemas(), store, logger.NewServiceLogger(log, "templates"))
	cleanup := queue.NewCleanupHandler(store, logger.NewServiceLogger(log, "cleanup"))

	server, err := queue.NewAsynqServer(&cfg.Queue, logger.NewServiceLogger(log, "queue"))
	if err != nil {
		return err
	}

	server.HandleFunc(queue.TaskTypeIngestSheet, ingest.ProcessTask)
	server.HandleFunc(queue.TaskTypeWriteTemplate, templates.ProcessTask)
	server.HandleFunc(queue.TaskTypeCleanupUploads, cleanup.ProcessTask)

	log.Info("worker starting",
		slog.String("environment", cfg.Environment),
		slog.Int("concurrency", cfg.Queue.Concurrency))

	return server.Start()
}
