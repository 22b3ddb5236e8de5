package xlsx

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// Row is one decoded worksheet row. Cells are dense: gaps between the
// cell references present in the file are padded with empty values.
type Row struct {
	// Index is the 1-based row number from the file.
	Index int
	Cells []Value
}

// Extents bounds the used range of a worksheet, 1-based and inclusive.
type Extents struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Worksheet is an ordered, append-only sequence of decoded rows for one
// sheet. It is owned by the workbook that produced it and is not modified
// after the read finishes.
type Worksheet struct {
	Name    string
	Extents Extents

	rows []Row
}

// Append adds a decoded row, keeping document order
func (w *Worksheet) Append(row Row) {
	w.rows = append(w.rows, row)
}

// Rows returns the decoded rows in document order
func (w *Worksheet) Rows() []Row {
	return w.rows
}

// Len returns the number of decoded rows
func (w *Worksheet) Len() int {
	return len(w.rows)
}

// parseCellRef splits a reference like "B3" into a 0-based column index
// and a 1-based row number.
func parseCellRef(ref string) (col, row int, err error) {
	split := 0
	for split < len(ref) {
		ch := ref[split]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			split++
			continue
		}
		break
	}
	if split == 0 || split == len(ref) {
		return 0, 0, fmt.Errorf("malformed cell reference %q", ref)
	}

	for i := 0; i < split; i++ {
		ch := ref[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		col = col*26 + int(ch-'A') + 1
	}

	row, err = strconv.Atoi(ref[split:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("malformed cell reference %q", ref)
	}
	return col - 1, row, nil
}

// parseDimensionRef parses a declared range like "A1:F20" into extents.
// A single-cell ref bounds a one-cell range.
func parseDimensionRef(ref string) (Extents, error) {
	first, rest, found := strings.Cut(ref, ":")
	if !found {
		rest = first
	}
	minCol, minRow, err := parseCellRef(first)
	if err != nil {
		return Extents{}, err
	}
	maxCol, maxRow, err := parseCellRef(rest)
	if err != nil {
		return Extents{}, err
	}
	return Extents{MinRow: minRow, MaxRow: maxRow, MinCol: minCol + 1, MaxCol: maxCol + 1}, nil
}

// decodeWorksheet reads one worksheet part into a dense row model
func decodeWorksheet(c *Container, partName, sheetName string, sst *SharedStrings, styles *StyleTable, log *slog.Logger) (*Worksheet, error) {
	root, ns, err := c.resolvePart(partName)
	if err != nil {
		return nil, err
	}

	def := ns["default"]
	sheet := &Worksheet{Name: sheetName}

	declared := false
	if dim := root.First(def, "dimension"); dim != nil {
		if ref, ok := dim.Attr("", "ref"); ok {
			if ext, err := parseDimensionRef(ref); err == nil {
				sheet.Extents = ext
				declared = true
			} else {
				log.Warn("ignoring malformed dimension ref",
					slog.String("sheet", sheetName),
					slog.String("ref", ref))
			}
		}
	}

	sheetData := root.First(def, "sheetData")
	if sheetData == nil {
		return sheet, nil
	}

	for _, rowNode := range sheetData.Find(def, "row") {
		rowIndex := sheet.Len() + 1
		if rText, ok := rowNode.Attr("", "r"); ok {
			if r, err := strconv.Atoi(rText); err == nil && r >= 1 {
				rowIndex = r
			}
		}

		row := Row{Index: rowIndex}
		nextCol := 0
		for _, cellNode := range rowNode.Find(def, "c") {
			col := nextCol
			if ref, ok := cellNode.Attr("", "r"); ok {
				if parsedCol, _, err := parseCellRef(ref); err == nil {
					col = parsedCol
				}
			}
			if col < len(row.Cells) {
				log.Warn("skipping out-of-order cell reference",
					slog.String("sheet", sheetName),
					slog.Int("row", rowIndex),
					slog.Int("column", col+1))
				continue
			}

			typeAttr, typePresent := cellNode.Attr("", "t")
			cellType, known := parseCellType(typeAttr, typePresent)
			if !known {
				log.Warn("skipping cell with unknown type",
					slog.String("sheet", sheetName),
					slog.Int("row", rowIndex),
					slog.String("type", typeAttr))
				continue
			}

			class := ClassGeneral
			if sText, ok := cellNode.Attr("", "s"); ok {
				if styleIndex, err := strconv.Atoi(sText); err == nil {
					class = styles.Classify(styleIndex)
				}
			}

			raw := ""
			if v := cellNode.First(def, "v"); v != nil {
				raw = v.Text
			}

			value, err := decodeCellValue(raw, cellType, class, sst)
			if err != nil {
				return nil, apperrors.DecodeError(err, partName)
			}

			for len(row.Cells) < col {
				row.Cells = append(row.Cells, EmptyValue())
			}
			row.Cells = append(row.Cells, value)
			nextCol = col + 1
		}

		sheet.Append(row)

		if !declared {
			if sheet.Extents.MinRow == 0 || rowIndex < sheet.Extents.MinRow {
				sheet.Extents.MinRow = rowIndex
			}
			if rowIndex > sheet.Extents.MaxRow {
				sheet.Extents.MaxRow = rowIndex
			}
			if len(row.Cells) > 0 {
				if sheet.Extents.MinCol == 0 {
					sheet.Extents.MinCol = 1
				}
				if len(row.Cells) > sheet.Extents.MaxCol {
					sheet.Extents.MaxCol = len(row.Cells)
				}
			}
		}
	}

	return sheet, nil
}
