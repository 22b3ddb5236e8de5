package readers

import (
	"context"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// ExcelizeReader ingests the macro and template workbook variants that
// the native decoder does not cover, through the excelize library.
type ExcelizeReader struct {
	log *slog.Logger
}

func NewExcelizeReader(log *slog.Logger) *ExcelizeReader {
	return &ExcelizeReader{log: log}
}

func (r *ExcelizeReader) SupportedFormats() []string {
	return []string{".xlsm", ".xltx", ".xltm"}
}

func (r *ExcelizeReader) ReadFile(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.InvalidFile(err.Error())
	}
	return &excelizeFile{f: f, log: r.log}, nil
}

type excelizeFile struct {
	f   *excelize.File
	log *slog.Logger
}

func (f *excelizeFile) FindSheet(expectedHeaders []string) (Sheet, error) {
	for _, name := range f.f.GetSheetList() {
		rows, err := f.f.GetRows(name)
		if err != nil {
			f.log.Warn("skipping unreadable sheet",
				slog.String("sheet", name),
				slog.Any("error", err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		var headers []string
		for _, text := range rows[0] {
			if text != "" {
				headers = append(headers, text)
			}
		}
		if headersMatch(headers, expectedHeaders) {
			return &excelizeSheet{name: name, rows: rows, log: f.log}, nil
		}
	}
	return nil, apperrors.SheetNotFound(expectedHeaders)
}

func (f *excelizeFile) Close() error {
	return f.f.Close()
}

type excelizeSheet struct {
	name string
	rows [][]string
	log  *slog.Logger
}

func (s *excelizeSheet) Name() string {
	return s.name
}

func (s *excelizeSheet) MaxRow() int {
	if n := len(s.rows) - 1; n > 0 {
		return n
	}
	return 0
}

func (s *excelizeSheet) Records(sc schema.Schema) *Records {
	data := make([][]any, 0, s.MaxRow())
	for _, row := range s.rows[1:] {
		cells := make([]any, len(row))
		for i, text := range row {
			cells[i] = text
		}
		data = append(data, cells)
	}
	return newRecords(sc, data, s.log)
}
