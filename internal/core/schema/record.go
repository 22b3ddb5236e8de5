package schema

// FieldValue is one field's value slot within a record. Slots are
// allocated fresh for every row, so records never share mutable state.
type FieldValue struct {
	Field Field

	value   any
	raw     any
	failed  bool
	failure string
}

// Set stores the raw cell value and its normalized form
func (fv *FieldValue) Set(raw, normalized any) {
	fv.raw = raw
	fv.value = normalized
}

// Value returns the normalized value, nil if validation failed or the
// cell was absent.
func (fv *FieldValue) Value() any {
	return fv.value
}

// Raw returns the cell value as decoded, before validation
func (fv *FieldValue) Raw() any {
	return fv.raw
}

// MarkFailed records that validation rejected this row's raw value
func (fv *FieldValue) MarkFailed(raw any, reason string) {
	fv.raw = raw
	fv.value = nil
	fv.failed = true
	fv.failure = reason
}

// Failed reports whether validation rejected this row's raw value
func (fv *FieldValue) Failed() bool {
	return fv.failed
}

// Failure returns the validation rejection reason, empty when ok
func (fv *FieldValue) Failure() string {
	return fv.failure
}

// Record is one mapped data row: an ordered set of field value slots
// keyed by field name.
type Record struct {
	// RowIndex is the 1-based data-row position below the header.
	RowIndex int

	slots []*FieldValue
	index map[string]int
}

// NewRecord allocates a record with one empty slot per schema field
func NewRecord(s Schema, rowIndex int) *Record {
	r := &Record{
		RowIndex: rowIndex,
		slots:    make([]*FieldValue, len(s)),
		index:    make(map[string]int, len(s)),
	}
	for i, f := range s {
		r.slots[i] = &FieldValue{Field: f}
		r.index[f.Name] = i
	}
	return r
}

// Slot returns the value slot at the schema position
func (r *Record) Slot(i int) *FieldValue {
	return r.slots[i]
}

// Slots returns the value slots in schema order
func (r *Record) Slots() []*FieldValue {
	return r.slots
}

// Len returns the number of fields
func (r *Record) Len() int {
	return len(r.slots)
}

// Get returns the value stored under a field name
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.slots[i].Value(), true
}

// FieldByName returns the value slot for a field name
func (r *Record) FieldByName(name string) (*FieldValue, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.slots[i], true
}

// Values snapshots the record as a field-name keyed map
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.slots))
	for _, slot := range r.slots {
		out[slot.Field.Name] = slot.Value()
	}
	return out
}
