package readers

import (
	"context"
	"log/slog"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	"github.com/uselessvevo/fuse-sheets/internal/core/xlsx"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// NativeReader ingests .xlsx files through the in-house package decoder.
type NativeReader struct {
	log *slog.Logger
}

func NewNativeReader(log *slog.Logger) *NativeReader {
	return &NativeReader{log: log}
}

func (r *NativeReader) SupportedFormats() []string {
	return []string{".xlsx"}
}

func (r *NativeReader) ReadFile(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := xlsx.ReadFile(path, r.log)
	if err != nil {
		return nil, err
	}
	return &nativeFile{wb: wb, log: r.log}, nil
}

type nativeFile struct {
	wb  *xlsx.Workbook
	log *slog.Logger
}

func (f *nativeFile) FindSheet(expectedHeaders []string) (Sheet, error) {
	for _, ws := range f.wb.Worksheets() {
		rows := ws.Rows()
		if len(rows) == 0 {
			continue
		}

		var headers []string
		for _, cell := range rows[0].Cells {
			if text := cell.Text(); text != "" {
				headers = append(headers, text)
			}
		}
		if headersMatch(headers, expectedHeaders) {
			return &nativeSheet{ws: ws, log: f.log}, nil
		}
	}
	return nil, apperrors.SheetNotFound(expectedHeaders)
}

func (f *nativeFile) Close() error {
	return f.wb.Close()
}

type nativeSheet struct {
	ws  *xlsx.Worksheet
	log *slog.Logger
}

func (s *nativeSheet) Name() string {
	return s.ws.Name
}

func (s *nativeSheet) MaxRow() int {
	if n := s.ws.Len() - 1; n > 0 {
		return n
	}
	return 0
}

func (s *nativeSheet) Records(sc schema.Schema) *Records {
	rows := s.ws.Rows()
	data := make([][]any, 0, s.MaxRow())
	for _, row := range rows[1:] {
		cells := make([]any, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.Any()
		}
		data = append(data, cells)
	}
	return newRecords(sc, data, s.log)
}
