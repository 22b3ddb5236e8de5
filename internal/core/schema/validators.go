package schema

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Validator normalizes a raw cell value or rejects it with a ValidationError.
type Validator interface {
	Validate(value any) (any, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(value any) (any, error)

func (f ValidatorFunc) Validate(value any) (any, error) {
	return f(value)
}

// ValidationError is a per-cell rejection. It is recorded against the
// field in the fault log and never aborts the row.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError
func Invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a per-cell rejection
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Chain runs validators left to right, feeding each the previous output.
type Chain []Validator

func (c Chain) Validate(value any) (any, error) {
	var err error
	for _, v := range c {
		value, err = v.Validate(value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func rawText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// String trims surrounding whitespace and strips combining diacritics,
// so visually identical inputs normalize to one canonical form.
type String struct {
	// Required rejects empty values after trimming.
	Required bool
	// MaxLen rejects values longer than this rune count when positive.
	MaxLen int
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func (s String) Validate(value any) (any, error) {
	text := strings.TrimSpace(rawText(value))
	normalized, _, err := transform.String(stripMarks, text)
	if err != nil {
		return nil, Invalid("cannot normalize %q: %v", text, err)
	}
	if s.Required && normalized == "" {
		return nil, Invalid("value is required")
	}
	if s.MaxLen > 0 && len([]rune(normalized)) > s.MaxLen {
		return nil, Invalid("value longer than %d characters", s.MaxLen)
	}
	return normalized, nil
}

// Integer accepts integral numbers and strings of digits.
type Integer struct {
	Min, Max int64
	// Bounded enables the Min/Max range check.
	Bounded bool
}

func (iv Integer) Validate(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, Invalid("%v is not an integer", v)
		}
		n = int64(v)
	default:
		text := strings.TrimSpace(rawText(value))
		parsed, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, Invalid("%q is not an integer", text)
		}
		n = parsed
	}
	if iv.Bounded && (n < iv.Min || n > iv.Max) {
		return nil, Invalid("%d outside range [%d, %d]", n, iv.Min, iv.Max)
	}
	return n, nil
}

// Float accepts numbers and numeric strings with either decimal separator.
type Float struct{}

func (Float) Validate(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	text := strings.ReplaceAll(strings.TrimSpace(rawText(value)), ",", ".")
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, Invalid("%q is not a number", text)
	}
	return parsed, nil
}

// Date accepts date text in any of its layouts and normalizes to YYYY/MM/DD.
type Date struct {
	// Layouts defaults to the decoder's own output plus common manual forms.
	Layouts []string
}

var defaultDateLayouts = []string{"2006/01/02", "2006-01-02", "02.01.2006", "02/01/2006"}

func (d Date) Validate(value any) (any, error) {
	text := strings.TrimSpace(rawText(value))
	layouts := d.Layouts
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed.Format("2006/01/02"), nil
		}
	}
	return nil, Invalid("%q is not a date", text)
}

// Email accepts a plausible address shape.
type Email struct{}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (Email) Validate(value any) (any, error) {
	text := strings.TrimSpace(rawText(value))
	if !emailPattern.MatchString(text) {
		return nil, Invalid("%q is not an email address", text)
	}
	return strings.ToLower(text), nil
}
