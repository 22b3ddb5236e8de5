package xlsx

import (
	"errors"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

const sharedStringsPart = "xl/sharedStrings.xml"

// SharedStrings is the deduplicated string pool referenced by index from
// cell data. Built once per workbook, read-only afterwards.
type SharedStrings struct {
	entries []string
}

// Lookup returns the string at the given index
func (s *SharedStrings) Lookup(index int) (string, bool) {
	if s == nil || index < 0 || index >= len(s.entries) {
		return "", false
	}
	return s.entries[index], true
}

// Len returns the number of pooled strings
func (s *SharedStrings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// decodeSharedStrings builds the string pool from xl/sharedStrings.xml.
// A missing part is valid and yields an empty pool.
func decodeSharedStrings(c *Container) (*SharedStrings, error) {
	root, ns, err := c.resolvePart(sharedStringsPart)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeMissingPart {
			return &SharedStrings{}, nil
		}
		return nil, err
	}

	def := ns["default"]
	pool := &SharedStrings{}

	for _, si := range root.Find(def, "si") {
		// An entry is either a single <t> or a series of <r> runs whose
		// <t> texts concatenate in document order.
		runs := si.Find(def, "r")
		if len(runs) > 0 {
			var text string
			for _, run := range runs {
				if t := run.First(def, "t"); t != nil {
					text += t.Text
				}
			}
			pool.entries = append(pool.entries, text)
			continue
		}

		if t := si.First(def, "t"); t != nil {
			pool.entries = append(pool.entries, t.Text)
		} else {
			pool.entries = append(pool.entries, "")
		}
	}

	return pool, nil
}
