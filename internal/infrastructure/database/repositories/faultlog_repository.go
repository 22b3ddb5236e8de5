package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uselessvevo/fuse-sheets/internal/core/domain"
	"github.com/uselessvevo/fuse-sheets/internal/core/tasks"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// FaultLogRepository persists ingestion runs and their per-field fault
// logs using GORM.
type FaultLogRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewFaultLogRepository creates a new repository instance
func NewFaultLogRepository(db *gorm.DB, logger *slog.Logger) *FaultLogRepository {
	return &FaultLogRepository{
		db:     db,
		logger: logger,
	}
}

// CreateRun records a queued ingestion run
func (r *FaultLogRepository) CreateRun(ctx context.Context, run *domain.IngestRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logger.Error("failed to create ingest run",
			slog.String("file", run.FileName),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}
	return nil
}

// GetRun loads a run by id
func (r *FaultLogRepository) GetRun(ctx context.Context, runID uuid.UUID) (*domain.IngestRun, error) {
	var run domain.IngestRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound(fmt.Sprintf("ingest run not found: %s", runID))
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return &run, nil
}

// SetRunStatus updates a run's lifecycle status
func (r *FaultLogRepository) SetRunStatus(ctx context.Context, runID uuid.UUID, status string) error {
	if !domain.IsValidRunStatus(status) {
		return apperrors.BadRequest(fmt.Sprintf("invalid run status %q", status))
	}

	updates := map[string]interface{}{"status": status}
	if status == domain.RunStatusCompleted || status == domain.RunStatusFailed {
		now := time.Now().UTC()
		updates["completed_at"] = &now
	}

	err := r.db.WithContext(ctx).
		Model(&domain.IngestRun{}).
		Where("id = ?", runID).
		Updates(updates).
		Error
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	return nil
}

// SaveEntries persists a completed fault log and closes out the run's
// row totals. One RowFault record is written per (row, field).
func (r *FaultLogRepository) SaveEntries(ctx context.Context, runID uuid.UUID, entries []*tasks.Entry) error {
	faults := make([]domain.RowFault, 0, len(entries))
	brokenRows := 0
	for _, entry := range entries {
		if entry.Broken() {
			brokenRows++
		}

		// Deterministic field order keeps inserts reproducible.
		names := make([]string, 0, len(entry.Fields))
		for name := range entry.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			fault := entry.Fields[name]
			faults = append(faults, domain.RowFault{
				RunID:       runID,
				RowIndex:    entry.Row,
				FieldName:   name,
				VerboseName: fault.VerboseName,
				Value:       valueText(fault.Value),
				Broken:      fault.Broken,
				Comment:     fault.Comment,
				State:       string(fault.State),
			})
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(faults) > 0 {
			if err := tx.CreateInBatches(faults, 1000).Error; err != nil {
				return err
			}
		}
		return tx.Model(&domain.IngestRun{}).
			Where("id = ?", runID).
			Updates(map[string]interface{}{
				"total_rows":  len(entries),
				"broken_rows": brokenRows,
			}).
			Error
	})
	if err != nil {
		r.logger.Error("failed to save fault log",
			slog.String("run_id", runID.String()),
			slog.Int("entries", len(entries)),
			slog.Any("error", err))
		return apperrors.DatabaseError(err)
	}

	r.logger.Info("fault log saved",
		slog.String("run_id", runID.String()),
		slog.Int("rows", len(entries)),
		slog.Int("broken_rows", brokenRows))
	return nil
}

func valueText(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// GetRunFaults returns a run's fault records in row and field order
func (r *FaultLogRepository) GetRunFaults(ctx context.Context, runID uuid.UUID) ([]domain.RowFault, error) {
	var faults []domain.RowFault
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("row_index ASC, field_name ASC").
		Find(&faults).
		Error
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return faults, nil
}

// GetBrokenFaults returns only the faulted records of a run
func (r *FaultLogRepository) GetBrokenFaults(ctx context.Context, runID uuid.UUID) ([]domain.RowFault, error) {
	var faults []domain.RowFault
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND broken = ?", runID, true).
		Order("row_index ASC, field_name ASC").
		Find(&faults).
		Error
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return faults, nil
}

// AsSaveFunc adapts the repository to the task pipeline's save sink.
// The run record is created up front so the fault rows always have a
// parent to attach to.
func (r *FaultLogRepository) AsSaveFunc(runID uuid.UUID, schemaName string) tasks.SaveFunc {
	return func(ctx context.Context, fileName string, entries []*tasks.Entry) error {
		run := &domain.IngestRun{
			ID:         runID,
			FileName:   fileName,
			SchemaName: schemaName,
			Status:     domain.RunStatusRunning,
		}
		err := r.db.WithContext(ctx).
			Where("id = ?", runID).
			FirstOrCreate(run).
			Error
		if err != nil {
			return apperrors.DatabaseError(err)
		}

		if err := r.SaveEntries(ctx, runID, entries); err != nil {
			return err
		}
		return r.SetRunStatus(ctx, runID, domain.RunStatusCompleted)
	}
}
