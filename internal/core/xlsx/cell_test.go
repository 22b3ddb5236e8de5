package xlsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFormatCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected Classification
	}{
		{name: "combined date time", code: `m/d/yy\ h:mm`, expected: ClassDateTime},
		{name: "iso date", code: `yyyy\-mm\-dd`, expected: ClassDate},
		{name: "short date", code: `mm/dd/yy`, expected: ClassDate},
		{name: "long date", code: `dddd\,\ mmmm\ dd\,\ yyyy`, expected: ClassDate},
		{name: "minutes seconds", code: `mm:ss`, expected: ClassTime},
		{name: "hours minutes", code: `h:mm`, expected: ClassTime},
		{name: "currency", code: `#,##0.00`, expected: ClassGeneral},
		{name: "empty", code: "", expected: ClassGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyFormatCode(tt.code))
		})
	}
}

func TestClassifyNumFmtID(t *testing.T) {
	custom := map[int]Classification{164: ClassDate, 22: ClassDateTime}

	tests := []struct {
		name     string
		id       int
		expected Classification
	}{
		{name: "builtin date low", id: 14, expected: ClassDate},
		{name: "builtin date high", id: 17, expected: ClassDate},
		{name: "builtin time low", id: 18, expected: ClassTime},
		{name: "builtin time high", id: 21, expected: ClassTime},
		{name: "custom date", id: 164, expected: ClassDate},
		{name: "custom overrides builtin range", id: 22, expected: ClassDateTime},
		{name: "general", id: 0, expected: ClassGeneral},
		{name: "unknown custom", id: 200, expected: ClassGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyNumFmtID(tt.id, custom))
		})
	}
}

func TestStyleTableClassify(t *testing.T) {
	table := &StyleTable{classes: []Classification{ClassGeneral, ClassDate, ClassTime}}

	assert.Equal(t, ClassGeneral, table.Classify(0))
	assert.Equal(t, ClassDate, table.Classify(1))
	assert.Equal(t, ClassTime, table.Classify(2))
	assert.Equal(t, ClassGeneral, table.Classify(3))
	assert.Equal(t, ClassGeneral, table.Classify(-1))

	var empty *StyleTable
	assert.Equal(t, ClassGeneral, empty.Classify(0))
}

func TestParseCellType(t *testing.T) {
	tests := []struct {
		name     string
		attr     string
		present  bool
		expected CellType
		known    bool
	}{
		{name: "absent", attr: "", present: false, expected: CellTypeUntyped, known: true},
		{name: "shared string", attr: "s", present: true, expected: CellTypeSharedString, known: true},
		{name: "number", attr: "n", present: true, expected: CellTypeNumber, known: true},
		{name: "boolean", attr: "b", present: true, expected: CellTypeBoolean, known: true},
		{name: "formula string", attr: "str", present: true, expected: CellTypeEmpty, known: true},
		{name: "error", attr: "e", present: true, expected: CellTypeEmpty, known: true},
		{name: "explicit empty", attr: "", present: true, expected: CellTypeEmpty, known: true},
		{name: "unknown", attr: "inlineStr", present: true, known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cellType, known := parseCellType(tt.attr, tt.present)
			assert.Equal(t, tt.known, known)
			if known {
				assert.Equal(t, tt.expected, cellType)
			}
		})
	}
}

func TestFormatSerial(t *testing.T) {
	assert.Equal(t, "2024/01/01", formatSerialDate(45292))
	assert.Equal(t, "2024/01/01", formatSerialDate(45292.75))
	assert.Equal(t, "1900/03/01", formatSerialDate(61))

	assert.Equal(t, "12:00:00", formatSerialTime(45292.5))
	assert.Equal(t, "18:00:00", formatSerialTime(0.75))
	assert.Equal(t, "00:00:00", formatSerialTime(45292))
	assert.Equal(t, "23:59:59", formatSerialTime(45292.9999999))

	assert.Equal(t, "2024/01/01 12:00:00", formatSerialDateTime(45292.5))
	assert.Equal(t, "2024/01/01 23:59:59", formatSerialDateTime(45292.9999999))
}

func TestDecodeCellValue(t *testing.T) {
	pool := &SharedStrings{entries: []string{"hello", "world"}}

	tests := []struct {
		name     string
		raw      string
		cellType CellType
		class    Classification
		expected any
	}{
		{name: "shared string", raw: "1", cellType: CellTypeSharedString, expected: "world"},
		{name: "integer", raw: "42", cellType: CellTypeNumber, expected: int64(42)},
		{name: "float", raw: "1.5", cellType: CellTypeNumber, expected: 1.5},
		{name: "comma separator", raw: "1,5", cellType: CellTypeNumber, expected: 1.5},
		{name: "bool true", raw: "1", cellType: CellTypeBoolean, expected: true},
		{name: "bool false", raw: "0", cellType: CellTypeBoolean, expected: false},
		{name: "formula result discarded", raw: "=A1&B1 result", cellType: CellTypeEmpty, expected: ""},
		{name: "error payload discarded", raw: "#N/A", cellType: CellTypeEmpty, expected: ""},
		{name: "empty typed cell", raw: "", cellType: CellTypeEmpty, expected: ""},
		{name: "untyped date", raw: "45292", cellType: CellTypeUntyped, class: ClassDate, expected: "2024/01/01"},
		{name: "untyped time", raw: "0.75", cellType: CellTypeUntyped, class: ClassTime, expected: "18:00:00"},
		{name: "untyped date time", raw: "45292.5", cellType: CellTypeUntyped, class: ClassDateTime, expected: "2024/01/01 12:00:00"},
		{name: "untyped general stays text", raw: "42", cellType: CellTypeUntyped, class: ClassGeneral, expected: "42"},
		{name: "untyped non serial", raw: "12a", cellType: CellTypeUntyped, class: ClassDate, expected: "12a"},
		{name: "untyped empty", raw: "", cellType: CellTypeUntyped, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := decodeCellValue(tt.raw, tt.cellType, tt.class, pool)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value.Any())
		})
	}
}

func TestDecodeCellValueErrors(t *testing.T) {
	pool := &SharedStrings{entries: []string{"only"}}

	_, err := decodeCellValue("5", CellTypeSharedString, ClassGeneral, pool)
	assert.ErrorContains(t, err, "out of range")

	_, err = decodeCellValue("nan", CellTypeSharedString, ClassGeneral, pool)
	assert.Error(t, err)

	_, err = decodeCellValue("abc", CellTypeNumber, ClassGeneral, pool)
	assert.Error(t, err)
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "hello", StringValue("hello").Text())
	assert.Equal(t, "42", IntValue(42).Text())
	assert.Equal(t, "1.5", FloatValue(1.5).Text())
	assert.Equal(t, "true", BoolValue(true).Text())
	assert.Equal(t, "", EmptyValue().Text())
}
