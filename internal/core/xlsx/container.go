package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// Container wraps the ZIP package that holds the spreadsheet's XML parts.
type Container struct {
	reader *zip.Reader
	closer io.Closer
}

// OpenFile opens a spreadsheet package from disk
func OpenFile(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat package: %w", err)
	}

	zr, err := zip.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, apperrors.InvalidFile(fmt.Sprintf("not a valid spreadsheet package: %v", err))
	}

	return &Container{reader: zr, closer: f}, nil
}

// OpenBytes opens a spreadsheet package held in memory
func OpenBytes(data []byte) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.InvalidFile(fmt.Sprintf("not a valid spreadsheet package: %v", err))
	}
	return &Container{reader: zr}, nil
}

// Close releases the underlying file handle, if any
func (c *Container) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// HasPart reports whether the package contains the named part
func (c *Container) HasPart(name string) bool {
	for _, f := range c.reader.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Part opens the named XML part for reading.
// The caller must close the returned reader.
func (c *Container) Part(name string) (io.ReadCloser, error) {
	for _, f := range c.reader.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open part %s: %w", name, err)
			}
			return rc, nil
		}
	}
	return nil, apperrors.MissingPart(name)
}

// ResolveNamespaces scans an XML stream until the first element opens and
// returns the namespace declarations active at that point, keyed by prefix.
// The unprefixed (default) declaration is stored under the "default" key.
// Parts written without an explicit default but with an "x" prefix get that
// prefix promoted to default; some writers omit the default declaration.
func ResolveNamespaces(r io.Reader) (map[string]string, error) {
	dec := xml.NewDecoder(r)
	namespaces := make(map[string]string)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan namespaces: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		for _, attr := range start.Attr {
			switch {
			case attr.Name.Space == "xmlns":
				namespaces[attr.Name.Local] = attr.Value
			case attr.Name.Space == "" && attr.Name.Local == "xmlns":
				namespaces["default"] = attr.Value
			}
		}
		break
	}

	if _, ok := namespaces["default"]; !ok {
		x, ok := namespaces["x"]
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeDecodeError,
				"no default namespace declared", 422)
		}
		namespaces["default"] = x
	}

	return namespaces, nil
}

// Node is a decoded XML element tree. Child elements keep their resolved
// namespace URI in XMLName.Space, so lookups go through the prefixes
// returned by ResolveNamespaces.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

// DecodePart decodes a whole XML part into a Node tree
func DecodePart(r io.Reader) (*Node, error) {
	var root Node
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Find returns the direct children matching the namespace URI and local name
func (n *Node) Find(space, local string) []*Node {
	var out []*Node
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == space && c.XMLName.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first direct child matching the namespace URI and local
// name, or nil
func (n *Node) First(space, local string) *Node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == space && c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// Attr returns the attribute value for the given namespace URI and local
// name. Unprefixed attributes carry an empty namespace.
func (n *Node) Attr(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// resolvePart resolves a part's namespaces and decodes its element tree.
// The part is opened twice: once for the namespace scan, once for the
// full decode.
func (c *Container) resolvePart(name string) (*Node, map[string]string, error) {
	rc, err := c.Part(name)
	if err != nil {
		return nil, nil, err
	}
	ns, err := ResolveNamespaces(rc)
	rc.Close()
	if err != nil {
		return nil, nil, apperrors.DecodeError(err, name)
	}

	rc, err = c.Part(name)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	root, err := DecodePart(rc)
	if err != nil {
		return nil, nil, apperrors.DecodeError(err, name)
	}
	return root, ns, nil
}
