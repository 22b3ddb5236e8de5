package tasks

import (
	"context"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
)

// FaultState grades a field's outcome within one row.
type FaultState string

const (
	FaultStateOK      FaultState = "ok"
	FaultStateWarning FaultState = "warning"
	FaultStateError   FaultState = "error"
)

// FieldFault is one field's outcome within a row entry.
type FieldFault struct {
	Value       any        `json:"value"`
	Broken      bool       `json:"broken"`
	Comment     string     `json:"comment"`
	State       FaultState `json:"state"`
	VerboseName string     `json:"verbose_name"`
}

// Entry is the fault-log record for one processed row. Every schema
// field is present, defaulting to ok unless a validation or row-level
// fault overwrote it.
type Entry struct {
	Row    int                    `json:"row"`
	Fields map[string]*FieldFault `json:"fields"`
}

// NewEntry builds a row entry from a mapped record, folding in any
// per-cell validation failures.
func NewEntry(record *schema.Record) *Entry {
	entry := &Entry{
		Row:    record.RowIndex,
		Fields: make(map[string]*FieldFault, record.Len()),
	}
	for _, slot := range record.Slots() {
		fault := &FieldFault{
			Value:       slot.Value(),
			State:       FaultStateOK,
			VerboseName: slot.Field.VerboseName,
		}
		if slot.Failed() {
			fault.Value = slot.Raw()
			fault.Broken = true
			fault.Comment = slot.Failure()
			fault.State = FaultStateError
		}
		entry.Fields[slot.Field.Name] = fault
	}
	return entry
}

// MarkFields overwrites the named fields with an error fault
func (e *Entry) MarkFields(fields []string, comment string) {
	for _, name := range fields {
		fault, ok := e.Fields[name]
		if !ok {
			continue
		}
		fault.Broken = true
		fault.Comment = comment
		fault.State = FaultStateError
	}
}

// MarkAll grades every field of the row with the same state and comment
func (e *Entry) MarkAll(state FaultState, comment string) {
	for _, fault := range e.Fields {
		fault.State = state
		fault.Comment = comment
	}
}

// Broken reports whether any field in the entry carries a fault
func (e *Entry) Broken() bool {
	for _, fault := range e.Fields {
		if fault.Broken || fault.State != FaultStateOK {
			return true
		}
	}
	return false
}

// SaveFunc persists a completed fault log. Injected by the caller, it is
// invoked once, after the last row.
type SaveFunc func(ctx context.Context, fileName string, entries []*Entry) error

// Log accumulates one entry per processed, non-skipped row.
type Log struct {
	entries []*Entry
}

// Append adds a row entry, keeping row order
func (l *Log) Append(entry *Entry) {
	l.entries = append(l.entries, entry)
}

// Entries returns the accumulated entries in row order
func (l *Log) Entries() []*Entry {
	return l.entries
}

// Len returns the number of logged rows
func (l *Log) Len() int {
	return len(l.entries)
}

// BrokenRows counts entries carrying at least one fault
func (l *Log) BrokenRows() int {
	n := 0
	for _, entry := range l.entries {
		if entry.Broken() {
			n++
		}
	}
	return n
}
