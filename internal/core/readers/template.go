package readers

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
)

// WriteTemplate renders an empty workbook whose first row is exactly the
// schema's verbose-name sequence, the shape FindSheet will later match.
func WriteTemplate(s schema.Schema, sheetName string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return nil, fmt.Errorf("failed to name template sheet: %w", err)
		}
	}

	for i, label := range s.VerboseNames() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to place header %q: %w", label, err)
		}
		if err := f.SetCellValue(sheetName, cell, label); err != nil {
			return nil, fmt.Errorf("failed to write header %q: %w", label, err)
		}
	}

	return f.WriteToBuffer()
}

// WriteTemplateFile renders the template workbook to disk
func WriteTemplateFile(s schema.Schema, sheetName, path string) error {
	buf, err := WriteTemplate(s, sheetName)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
