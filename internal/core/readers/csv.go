package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// CSVReader ingests delimiter-separated files as a single-sheet source.
// The sheet is named after the file.
type CSVReader struct {
	log *slog.Logger
}

func NewCSVReader(log *slog.Logger) *CSVReader {
	return &CSVReader{log: log}
}

func (r *CSVReader) SupportedFormats() []string {
	return []string{".csv"}
}

func (r *CSVReader) ReadFile(ctx context.Context, path string) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.InvalidFile(err.Error())
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &csvFile{name: name, rows: rows, log: r.log}, nil
}

type csvFile struct {
	name string
	rows [][]string
	log  *slog.Logger
}

func (f *csvFile) FindSheet(expectedHeaders []string) (Sheet, error) {
	if len(f.rows) > 0 {
		var headers []string
		for _, text := range f.rows[0] {
			if text != "" {
				headers = append(headers, text)
			}
		}
		if headersMatch(headers, expectedHeaders) {
			return &csvSheet{name: f.name, rows: f.rows, log: f.log}, nil
		}
	}
	return nil, apperrors.SheetNotFound(expectedHeaders)
}

// Close is a no-op, the file is fully read up front
func (f *csvFile) Close() error {
	return nil
}

type csvSheet struct {
	name string
	rows [][]string
	log  *slog.Logger
}

func (s *csvSheet) Name() string {
	return s.name
}

func (s *csvSheet) MaxRow() int {
	if n := len(s.rows) - 1; n > 0 {
		return n
	}
	return 0
}

func (s *csvSheet) Records(sc schema.Schema) *Records {
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
