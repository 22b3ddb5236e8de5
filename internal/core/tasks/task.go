// Package tasks runs one sheet ingestion from file to fault log: resolve
// a backend for the file, locate the sheet matching the schema's header
// sequence, then feed each mapped record to the caller's handler while
// recording per-row outcomes.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/uselessvevo/fuse-sheets/internal/core/readers"
	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// TaskState is the lifecycle position of one ingestion run.
type TaskState int

const (
	StateUnprepared TaskState = iota
	StatePrepared
	StateLocatingSheet
	StateIterating
	StateDone
	StateFailed
)

func (s TaskState) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateLocatingSheet:
		return "locating_sheet"
	case StateIterating:
		return "iterating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler processes one mapped record. Return ErrSkipRow to drop the
// row, a RowError to log a soft fault, or any other error to abort the
// run unless the recover hook accepts it.
type Handler func(ctx context.Context, record *schema.Record) error

// Task is the per-run ingestion state machine. A Task is not safe for
// concurrent Handle calls; give each run its own instance.
type Task struct {
	registry *readers.Registry
	schema   schema.Schema
	handler  Handler
	log      *slog.Logger

	progress ProgressSink
	save     SaveFunc
	// recoverHandlerError turns an accepted handler error into a warning
	// entry instead of a fatal abort.
	recoverHandlerError func(error) bool

	runID    string
	state    TaskState
	path     string
	fileName string
	reader   readers.SheetReader
	faults   *Log
}

// Option configures optional task collaborators.
type Option func(*Task)

// WithProgress wires an external progress publisher
func WithProgress(sink ProgressSink) Option {
	return func(t *Task) {
		t.progress = sink
	}
}

// WithSave wires the fault-log persistence sink
func WithSave(save SaveFunc) Option {
	return func(t *Task) {
		t.save = save
	}
}

// WithRecoverHandlerError accepts specific handler errors as warnings
// instead of fatal aborts.
func WithRecoverHandlerError(accept func(error) bool) Option {
	return func(t *Task) {
		t.recoverHandlerError = accept
	}
}

// WithRunID pins the run identifier instead of generating one
func WithRunID(id string) Option {
	return func(t *Task) {
		t.runID = id
	}
}

// NewTask builds an unprepared ingestion run
func NewTask(registry *readers.Registry, s schema.Schema, handler Handler, log *slog.Logger, opts ...Option) *Task {
	t := &Task{
		registry: registry,
		schema:   s,
		handler:  handler,
		log:      log,
		runID:    uuid.NewString(),
		state:    StateUnprepared,
		faults:   &Log{},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.progress == nil {
		t.progress = NewLogSink(log)
	}
	return t
}

// RunID identifies this run in progress reports and persisted logs
func (t *Task) RunID() string {
	return t.runID
}

// State returns the current lifecycle position
func (t *Task) State() TaskState {
	return t.state
}

// Faults returns the accumulated fault log
func (t *Task) Faults() *Log {
	return t.faults
}

// Prepare resolves the file's extension to a reader backend
func (t *Task) Prepare(path string) error {
	if t.state == StateLocatingSheet || t.state == StateIterating {
		return apperrors.TaskState(fmt.Sprintf("cannot prepare while %s", t.state))
	}

	reader, err := t.registry.ForFile(path)
	if err != nil {
		t.state = StateFailed
		return err
	}

	t.reader = reader
	t.path = path
	t.fileName = filepath.Base(path)
	t.faults = &Log{}
	t.state = StatePrepared
	return nil
}

// Handle runs the ingestion: locate the sheet, iterate its mapped
// records through the handler, report progress per row, then flush the
// fault log through the save sink.
func (t *Task) Handle(ctx context.Context) error {
	if t.state != StatePrepared {
		return apperrors.TaskState(fmt.Sprintf("handle requires a prepared task, state is %s", t.state))
	}

	t.state = StateLocatingSheet

	file, err := t.reader.ReadFile(ctx, t.path)
	if err != nil {
		t.state = StateFailed
		return err
	}
	defer file.Close()

	sheet, err := file.FindSheet(t.schema.VerboseNames())
	if err != nil {
		t.state = StateFailed
		return err
	}

	t.log.Info("sheet located",
		slog.String("run_id", t.runID),
		slog.String("file", t.fileName),
		slog.String("sheet", sheet.Name()),
		slog.Int("rows", sheet.MaxRow()))

	t.state = StateIterating

	if err := t.iterate(ctx, sheet); err != nil {
		t.state = StateFailed
		return err
	}

	if t.save != nil {
		if err := t.save(ctx, t.fileName, t.faults.Entries()); err != nil {
			t.state = StateFailed
			return fmt.Errorf("failed to save fault log: %w", err)
		}
	}

	t.state = StateDone
	return nil
}

func (t *Task) iterate(ctx context.Context, sheet readers.Sheet) error {
	maxRow := sheet.MaxRow()
	if maxRow == 0 {
		return nil
	}
	percentEach := 100.0 / float64(maxRow)

	records := sheet.Records(t.schema)
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, ok := records.Next()
		if !ok {
			return nil
		}

		if err := t.processRecord(ctx, record); err != nil {
			return err
		}

		percent := int(math.Round(float64(i+1) * percentEach))
		progress := Progress{
			RunID:    t.runID,
			FileName: t.fileName,
			Sheet:    sheet.Name(),
			Row:      i + 1,
			Percent:  percent,
		}
		if err := t.progress.Publish(ctx, progress); err != nil {
			t.log.Warn("progress publish failed",
				slog.String("run_id", t.runID),
				slog.Any("error", err))
		}
	}
}

func (t *Task) processRecord(ctx context.Context, record *schema.Record) error {
	entry := NewEntry(record)

	err := t.handler(ctx, record)
	switch {
	case err == nil:
		t.faults.Append(entry)
	case errors.Is(err, ErrSkipRow):
		// Dropped silently, no entry.
	default:
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			entry.MarkFields(rowErr.Fields, rowErr.Comment)
			t.faults.Append(entry)
			return nil
		}
		if t.recoverHandlerError != nil && t.recoverHandlerError(err) {
			entry.MarkAll(FaultStateWarning, err.Error())
			t.faults.Append(entry)
			t.log.Warn("handler error recovered",
				slog.String("run_id", t.runID),
				slog.Int("row", record.RowIndex),
				slog.Any("error", err))
			return nil
		}
		return fmt.Errorf("row %d handler: %w", record.RowIndex, err)
	}
	return nil
}
