package readers

import (
	"log/slog"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
)

// Records is a lazy, single-pass sequence of mapped rows. Each row is
// zipped positionally against the schema; validation failures mark the
// slot and never interrupt the row or its siblings.
type Records struct {
	schema schema.Schema
	rows   [][]any
	pos    int
	log    *slog.Logger
}

func newRecords(s schema.Schema, rows [][]any, log *slog.Logger) *Records {
	return &Records{schema: s, rows: rows, log: log}
}

// Len returns the number of data rows backing the sequence
func (it *Records) Len() int {
	return len(it.rows)
}

// Next maps and returns the next data row, or false when exhausted
func (it *Records) Next() (*schema.Record, bool) {
	if it.pos >= len(it.rows) {
		return nil, false
	}

	row := it.rows[it.pos]
	it.pos++

	record := schema.NewRecord(it.schema, it.pos)
	for i, field := range it.schema {
		// Zip semantics: fields beyond the row's width keep their empty
		// slot and are not validated.
		if i >= len(row) {
			break
		}

		slot := record.Slot(i)
		raw := row[i]

		normalized, err := field.Validate(raw)
		if err != nil {
			slot.MarkFailed(raw, err.Error())
			it.log.Debug("field validation failed",
				slog.String("field", field.Name),
				slog.Int("row", it.pos),
				slog.Any("error", err))
			continue
		}
		slot.Set(raw, normalized)
	}

	return record, true
}
