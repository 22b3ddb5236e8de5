package xlsx

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

const (
	workbookPart     = "xl/workbook.xml"
	relationshipPart = "xl/_rels/workbook.xml.rels"
)

// SheetInfo describes one entry of the workbook directory.
type SheetInfo struct {
	Name string
	// Order is the numeric suffix of the relationship id, which fixes the
	// physical sheet order regardless of directory position.
	Order int
	RelID string
	// PartName is the archive part holding the sheet data, resolved
	// through the relationships table.
	PartName string
}

// NamedRange is an informational workbook-level defined name.
type NamedRange struct {
	Name  string
	Sheet string
	Ref   string
}

// Workbook aggregates the decoded sheets of one archive. It owns the
// container and the worksheets it produced.
type Workbook struct {
	Sheets      []SheetInfo
	NamedRanges []NamedRange

	container  *Container
	worksheets map[string]*Worksheet
}

var relIDSuffix = regexp.MustCompile(`(\d+)$`)

// ReadFile opens and decodes a workbook from disk. Pass sheet names to
// restrict decoding, or none to decode every sheet in the directory.
func ReadFile(path string, log *slog.Logger, sheetNames ...string) (*Workbook, error) {
	c, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return Read(c, log, sheetNames...)
}

// ReadBytes decodes a workbook held in memory
func ReadBytes(data []byte, log *slog.Logger, sheetNames ...string) (*Workbook, error) {
	c, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return Read(c, log, sheetNames...)
}

// Read decodes the workbook directory, shared tables and the requested
// worksheets. On error the container is closed; on success the returned
// workbook owns it until Close.
func Read(c *Container, log *slog.Logger, sheetNames ...string) (*Workbook, error) {
	wb, err := read(c, log, sheetNames)
	if err != nil {
		c.Close()
		return nil, err
	}
	return wb, nil
}

func read(c *Container, log *slog.Logger, sheetNames []string) (*Workbook, error) {
	relTargets, err := decodeRelationships(c)
	if err != nil {
		return nil, err
	}

	wb := &Workbook{container: c, worksheets: make(map[string]*Worksheet)}
	if err := wb.decodeDirectory(c, relTargets, log); err != nil {
		return nil, err
	}

	sst, err := decodeSharedStrings(c)
	if err != nil {
		return nil, err
	}
	styles, err := decodeStyles(c)
	if err != nil {
		return nil, err
	}

	wanted, err := wb.selectSheets(sheetNames)
	if err != nil {
		return nil, err
	}

	for _, info := range wanted {
		sheet, err := decodeWorksheet(c, info.PartName, info.Name, sst, styles, log)
		if err != nil {
			return nil, err
		}
		wb.worksheets[info.Name] = sheet
	}

	return wb, nil
}

// decodeRelationships maps relationship ids to archive part names
func decodeRelationships(c *Container) (map[string]string, error) {
	root, ns, err := c.resolvePart(relationshipPart)
	if err != nil {
		return nil, err
	}

	def := ns["default"]
	targets := make(map[string]string)
	for _, rel := range root.Find(def, "Relationship") {
		id, ok := rel.Attr("", "Id")
		if !ok {
			continue
		}
		target, ok := rel.Attr("", "Target")
		if !ok {
			continue
		}
		targets[id] = partNameFromTarget(target)
	}
	return targets, nil
}

// partNameFromTarget normalizes a relationship target to an archive part
// name. Targets are either absolute ("/xl/worksheets/sheet1.xml") or
// relative to the xl directory.
func partNameFromTarget(target string) string {
	if after, ok := strings.CutPrefix(target, "/"); ok {
		return after
	}
	return "xl/" + target
}

func (wb *Workbook) decodeDirectory(c *Container, relTargets map[string]string, log *slog.Logger) error {
	root, ns, err := c.resolvePart(workbookPart)
	if err != nil {
		return err
	}

	def := ns["default"]
	relNS := ns["r"]

	sheetsNode := root.First(def, "sheets")
	if sheetsNode == nil {
		return apperrors.DecodeError(fmt.Errorf("no sheets element"), workbookPart)
	}

	for pos, sheetNode := range sheetsNode.Find(def, "sheet") {
		name, _ := sheetNode.Attr("", "name")
		relID, ok := sheetNode.Attr(relNS, "id")
		if !ok {
			relID, _ = sheetNode.Attr("", "id")
		}

		order := pos + 1
		if m := relIDSuffix.FindString(relID); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				order = n
			}
		}

		partName, ok := relTargets[relID]
		if !ok {
			return apperrors.DecodeError(fmt.Errorf("sheet %q: unresolved relationship %q", name, relID), relationshipPart)
		}

		wb.Sheets = append(wb.Sheets, SheetInfo{
			Name:     name,
			Order:    order,
			RelID:    relID,
			PartName: partName,
		})
	}
	sort.SliceStable(wb.Sheets, func(i, j int) bool {
		return wb.Sheets[i].Order < wb.Sheets[j].Order
	})

	if definedNames := root.First(def, "definedNames"); definedNames != nil {
		for _, dn := range definedNames.Find(def, "definedName") {
			name, _ := dn.Attr("", "name")
			ref := strings.ReplaceAll(dn.Text, "$", "")
			sheet, addr, found := strings.Cut(ref, "!")
			if !found {
				log.Warn("skipping malformed named range",
					slog.String("name", name),
					slog.String("ref", dn.Text))
				continue
			}
			wb.NamedRanges = append(wb.NamedRanges, NamedRange{Name: name, Sheet: sheet, Ref: addr})
		}
	}

	return nil
}

// selectSheets resolves the requested names against the directory, or the
// whole directory when no names were given.
func (wb *Workbook) selectSheets(names []string) ([]SheetInfo, error) {
	if len(names) == 0 {
		return wb.Sheets, nil
	}

	byName := make(map[string]SheetInfo, len(wb.Sheets))
	for _, info := range wb.Sheets {
		byName[info.Name] = info
	}

	out := make([]SheetInfo, 0, len(names))
	for _, name := range names {
		info, ok := byName[name]
		if !ok {
			return nil, apperrors.NotFound(fmt.Sprintf("sheet %q not in workbook", name))
		}
		out = append(out, info)
	}
	return out, nil
}

// Worksheet returns a decoded sheet by name
func (wb *Workbook) Worksheet(name string) (*Worksheet, bool) {
	sheet, ok := wb.worksheets[name]
	return sheet, ok
}

// Worksheets returns the decoded sheets in directory order
func (wb *Workbook) Worksheets() []*Worksheet {
	out := make([]*Worksheet, 0, len(wb.worksheets))
	for _, info := range wb.Sheets {
		if sheet, ok := wb.worksheets[info.Name]; ok {
			out = append(out, sheet)
		}
	}
	return out
}

// Close releases the underlying archive
func (wb *Workbook) Close() error {
	return wb.container.Close()
}
