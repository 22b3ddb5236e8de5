// Package readers defines the backend contract for ingesting tabular
// files and maps their rows onto a caller's field schema. Backends are
// selected by file extension through a fixed registry.
package readers

import (
	"context"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
)

// SheetReader is a format backend. Implementations open a source file
// and expose its sheets through the File handle.
type SheetReader interface {
	// ReadFile opens the source. The returned File owns the underlying
	// handle until Close.
	ReadFile(ctx context.Context, path string) (File, error)

	// SupportedFormats returns the file extensions this backend handles.
	SupportedFormats() []string
}

// File is an open source file.
type File interface {
	// FindSheet returns the first sheet whose first-row non-empty cell
	// texts, in order, exactly equal the expected sequence. Extra,
	// missing or reordered headers disqualify a sheet.
	FindSheet(expectedHeaders []string) (Sheet, error)

	Close() error
}

// Sheet is a located sheet ready for row mapping.
type Sheet interface {
	Name() string

	// MaxRow is the number of data rows below the header, used as the
	// progress-percentage denominator.
	MaxRow() int

	// Records maps the data rows against the schema. The sequence is
	// finite and single-pass; call Records again to re-iterate.
	Records(s schema.Schema) *Records
}

// headersMatch compares a sheet's first-row texts against the expected
// sequence, order-sensitive.
func headersMatch(got, expected []string) bool {
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}
