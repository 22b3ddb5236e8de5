package readers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uselessvevo/fuse-sheets/internal/core/schema"
	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func contactsSchema() schema.Schema {
	return schema.Schema{
		schema.NewField("firstname", "Firstname", schema.String{Required: true}),
		schema.NewField("surname", "Surname", schema.String{Required: true}),
		schema.NewField("age", "Age", schema.Integer{}),
	}
}

func writeWorkbook(t *testing.T, path, sheetName string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))

	for ri, row := range rows {
		for ci, value := range row {
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, cell, value))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestNativeReaderEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	writeWorkbook(t, path, "Contacts", [][]any{
		{"Firstname", "Surname", "Age"},
		{"Jane", "Doe", 30},
		{"John", "Smith", "thirty"},
	})

	reader := NewNativeReader(testLogger())
	file, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	defer file.Close()

	sheet, err := file.FindSheet([]string{"Firstname", "Surname", "Age"})
	require.NoError(t, err)
	assert.Equal(t, "Contacts", sheet.Name())
	assert.Equal(t, 2, sheet.MaxRow())

	records := sheet.Records(contactsSchema())
	require.Equal(t, 2, records.Len())

	first, ok := records.Next()
	require.True(t, ok)
	assert.Equal(t, 1, first.RowIndex)
	name, _ := first.Get("firstname")
	assert.Equal(t, "Jane", name)
	age, _ := first.Get("age")
	assert.Equal(t, int64(30), age)

	second, ok := records.Next()
	require.True(t, ok)
	assert.Equal(t, 2, second.RowIndex)
	slot, ok := second.FieldByName("age")
	require.True(t, ok)
	assert.True(t, slot.Failed())
	assert.NotEmpty(t, slot.Failure())
	assert.Nil(t, slot.Value())

	_, ok = records.Next()
	assert.False(t, ok)
}

func TestFindSheetIsOrderSensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	writeWorkbook(t, path, "Contacts", [][]any{
		{"Surname", "Firstname"},
		{"Doe", "Jane"},
	})

	reader := NewNativeReader(testLogger())
	file, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	defer file.Close()

	_, err = file.FindSheet([]string{"Firstname", "Surname"})
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSheetNotFound, appErr.Code)
}

func TestCSVReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := "Firstname,Surname,Age\nJane,Doe,30\nJohn,Smith,25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reader := NewCSVReader(testLogger())
	file, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	defer file.Close()

	sheet, err := file.FindSheet([]string{"Firstname", "Surname", "Age"})
	require.NoError(t, err)
	assert.Equal(t, "contacts", sheet.Name())
	assert.Equal(t, 2, sheet.MaxRow())

	records := sheet.Records(contactsSchema())
	first, ok := records.Next()
	require.True(t, ok)
	age, _ := first.Get("age")
	assert.Equal(t, int64(30), age)
}

func TestRecordsZipShorterRow(t *testing.T) {
	records := newRecords(contactsSchema(), [][]any{{"Jane"}}, testLogger())

	record, ok := records.Next()
	require.True(t, ok)

	name, _ := record.Get("firstname")
	assert.Equal(t, "Jane", name)

	slot, _ := record.FieldByName("age")
	assert.False(t, slot.Failed())
	assert.Nil(t, slot.Value())
}

func TestRegistry(t *testing.T) {
	registry := DefaultRegistry(testLogger())

	assert.True(t, registry.IsSupported(".xlsx"))
	assert.True(t, registry.IsSupported("XLSX"))
	assert.True(t, registry.IsSupported(".csv"))
	assert.True(t, registry.IsSupported(".xlsm"))

	backend, err := registry.ForFile("/uploads/contacts.xlsx")
	require.NoError(t, err)
	assert.IsType(t, &NativeReader{}, backend)

	_, err = registry.ForFile("/uploads/contacts.pdf")
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnsupportedFormat, appErr.Code)
}

func TestWriteTemplate(t *testing.T) {
	s := contactsSchema()

	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, WriteTemplateFile(s, "Contacts", path))

	// The produced template must be locatable by its own header sequence.
	reader := NewNativeReader(testLogger())
	file, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	defer file.Close()

	sheet, err := file.FindSheet(s.VerboseNames())
	require.NoError(t, err)
	assert.Equal(t, "Contacts", sheet.Name())
	assert.Equal(t, 0, sheet.MaxRow())
}
