package xlsx

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellType is the storage type of a cell, taken from the "t" attribute.
type CellType int

const (
	// CellTypeUntyped marks cells without a "t" attribute. Their raw text
	// is interpreted through the cell's style classification.
	CellTypeUntyped CellType = iota
	CellTypeSharedString
	CellTypeNumber
	CellTypeBoolean
	// CellTypeEmpty covers "str", "e" and an explicit empty attribute.
	// Formula results are never evaluated and error payloads carry no data,
	// so these always decode to the empty value.
	CellTypeEmpty
)

// parseCellType maps a "t" attribute to a cell type. The second return is
// false for types this decoder does not handle.
func parseCellType(attr string, present bool) (CellType, bool) {
	if !present {
		return CellTypeUntyped, true
	}
	switch attr {
	case "s":
		return CellTypeSharedString, true
	case "n":
		return CellTypeNumber, true
	case "b":
		return CellTypeBoolean, true
	case "", "str", "e":
		return CellTypeEmpty, true
	default:
		return CellTypeUntyped, false
	}
}

// ValueKind discriminates the decoded value union.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// Value is a decoded cell value. Exactly one of the underlying slots is
// meaningful, selected by Kind.
type Value struct {
	Kind ValueKind

	str string
	i   int64
	f   float64
	b   bool
}

func StringValue(s string) Value { return Value{Kind: KindString, str: s} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, i: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, f: f} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, b: b} }
func EmptyValue() Value          { return Value{Kind: KindEmpty} }

// Any returns the value as its natural Go type. Empty values are the
// empty string.
func (v Value) Any() any {
	switch v.Kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return ""
	}
}

// Text renders the value for display and fault reporting
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// serialEpoch is the zero point of spreadsheet serial dates. Day 1 is
// 1899-12-31, which keeps the off-by-two 1900 leap-year convention intact.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	dateLayout     = "2006/01/02"
	secondsPerDay  = 86400
	dateTimeLayout = dateLayout + " 15:04:05"
)

// serialPattern matches a serial-number token, an optional minus sign
// followed by digits with an optional fractional part.
var serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

func isSerialToken(raw string) bool {
	return serialPattern.MatchString(strings.TrimPrefix(raw, "-"))
}

// formatSerialDate renders the whole-day part of a serial as YYYY/MM/DD
func formatSerialDate(serial float64) string {
	days := int(math.Floor(serial))
	return serialEpoch.AddDate(0, 0, days).Format(dateLayout)
}

// formatSerialTime renders the fractional-day part of a serial as HH:MM:SS.
// The fraction is truncated, not rounded: rounding a value within half a
// second of midnight would wrap to 00:00:00 without moving the day.
func formatSerialTime(serial float64) string {
	frac := serial - math.Floor(serial)
	secs := int(frac * secondsPerDay)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

func formatSerialDateTime(serial float64) string {
	return formatSerialDate(serial) + " " + formatSerialTime(serial)
}

// decodeNumber parses a numeric token. A decimal separator, either "." or
// the locale comma, makes it a float; otherwise it is an integer.
func decodeNumber(raw string) (Value, error) {
	normalized := strings.ReplaceAll(raw, ",", ".")
	if strings.Contains(normalized, ".") {
		f, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse number %q: %w", raw, err)
		}
		return FloatValue(f), nil
	}
	i, err := strconv.ParseInt(normalized, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return IntValue(i), nil
}

// decodeUntyped interprets a cell without a storage type. Serial tokens
// with a date or time classification are rendered as calendar text; every
// other value passes through untouched, final typing belongs to the
// caller's field schema.
func decodeUntyped(raw string, class Classification) (Value, error) {
	if raw == "" {
		return EmptyValue(), nil
	}
	if !isSerialToken(raw) {
		return StringValue(raw), nil
	}

	switch class {
	case ClassDate, ClassTime, ClassDateTime:
		serial, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse serial %q: %w", raw, err)
		}
		switch class {
		case ClassDate:
			return StringValue(formatSerialDate(serial)), nil
		case ClassTime:
			return StringValue(formatSerialTime(serial)), nil
		default:
			return StringValue(formatSerialDateTime(serial)), nil
		}
	default:
		return StringValue(raw), nil
	}
}

// decodeCellValue produces the final value of a cell from its raw <v> text
func decodeCellValue(raw string, cellType CellType, class Classification, sst *SharedStrings) (Value, error) {
	switch cellType {
	case CellTypeSharedString:
		index, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, fmt.Errorf("shared string index %q: %w", raw, err)
		}
		text, ok := sst.Lookup(index)
		if !ok {
			return Value{}, fmt.Errorf("shared string index %d out of range", index)
		}
		return StringValue(text), nil
	case CellTypeNumber:
		if raw == "" {
			return EmptyValue(), nil
		}
		return decodeNumber(raw)
	case CellTypeBoolean:
		return BoolValue(raw == "1"), nil
	case CellTypeEmpty:
		return EmptyValue(), nil
	default:
		return decodeUntyped(raw, class)
	}
}
