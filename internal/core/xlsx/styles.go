package xlsx

import (
	"errors"
	"strconv"
	"strings"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

const stylesPart = "xl/styles.xml"

// Classification is the semantic category of a cell style's number format.
type Classification int

const (
	ClassGeneral Classification = iota
	ClassDate
	ClassTime
	ClassDateTime
)

func (c Classification) String() string {
	switch c {
	case ClassDate:
		return "date"
	case ClassTime:
		return "time"
	case ClassDateTime:
		return "datetime"
	default:
		return "general"
	}
}

// Known format-code pattern families. A custom format code is classified by
// substring match, combined date-time patterns first, then short dates,
// then times.
var (
	dateTimePatterns = []string{`m/d/yy\ h:mm`}

	datePatterns = []string{
		`dddd\,\ mmmm\ dd\,\ yyyy`, `m/d`, `yyyy\-mm\-dd`,
		`mm/dd/yy`, `d\-mmm`, `mmm\-yy`, `mmmm\ d\,\ yyyy`, `mmmmm`, `d\-mmm\-yyyy`,
	}

	timePatterns = []string{`mm:ss`, `h:mm`}
)

// classifyFormatCode classifies a custom number-format code string
func classifyFormatCode(code string) Classification {
	for _, p := range dateTimePatterns {
		if strings.Contains(code, p) {
			return ClassDateTime
		}
	}
	for _, p := range datePatterns {
		if strings.Contains(code, p) {
			return ClassDate
		}
	}
	for _, p := range timePatterns {
		if strings.Contains(code, p) {
			return ClassTime
		}
	}
	return ClassGeneral
}

// classifyNumFmtID classifies a number-format id, consulting the custom
// table first and the built-in ranges second. Built-in ids 14-17 are dates,
// 18-21 are times.
func classifyNumFmtID(id int, custom map[int]Classification) Classification {
	if class, ok := custom[id]; ok {
		return class
	}
	switch {
	case id >= 14 && id <= 17:
		return ClassDate
	case id >= 18 && id <= 21:
		return ClassTime
	default:
		return ClassGeneral
	}
}

// StyleTable maps each cell-format (style) index used by cells to its
// number-format classification. Classification is resolved once at build
// time, so lookups are constant.
type StyleTable struct {
	classes []Classification
}

// Classify returns the classification for a style index.
// Unknown indexes, including the default index 0 of an absent styles part,
// classify as general.
func (t *StyleTable) Classify(styleIndex int) Classification {
	if t == nil || styleIndex < 0 || styleIndex >= len(t.classes) {
		return ClassGeneral
	}
	return t.classes[styleIndex]
}

// Len returns the number of classified style indexes
func (t *StyleTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.classes)
}

// decodeStyles builds the style table from xl/styles.xml.
// A missing part is valid and yields an empty table.
func decodeStyles(c *Container) (*StyleTable, error) {
	root, ns, err := c.resolvePart(stylesPart)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeMissingPart {
			return &StyleTable{}, nil
		}
		return nil, err
	}

	def := ns["default"]

	// Custom number formats: caller-defined format id -> format code.
	custom := make(map[int]Classification)
	if numFmts := root.First(def, "numFmts"); numFmts != nil {
		for _, numFmt := range numFmts.Find(def, "numFmt") {
			idText, ok := numFmt.Attr("", "numFmtId")
			if !ok {
				continue
			}
			id, err := strconv.Atoi(idText)
			if err != nil {
				continue
			}
			code, _ := numFmt.Attr("", "formatCode")
			if class := classifyFormatCode(code); class != ClassGeneral {
				custom[id] = class
			}
		}
	}

	table := &StyleTable{}
	if cellXfs := root.First(def, "cellXfs"); cellXfs != nil {
		for _, xf := range cellXfs.Find(def, "xf") {
			id := 0
			if idText, ok := xf.Attr("", "numFmtId"); ok {
				if parsed, err := strconv.Atoi(idText); err == nil {
					id = parsed
				}
			}
			table.classes = append(table.classes, classifyNumFmtID(id, custom))
		}
	}

	return table, nil
}
