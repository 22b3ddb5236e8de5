package readers

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/uselessvevo/fuse-sheets/internal/pkg/errors"
)

// Registry maps file extensions to reader backends. Build it once at
// startup; lookups are read-only afterwards.
type Registry struct {
	readers map[string]SheetReader
}

// NewRegistry builds a registry over the given backends
func NewRegistry(backends ...SheetReader) *Registry {
	r := &Registry{readers: make(map[string]SheetReader)}
	for _, backend := range backends {
		r.Register(backend)
	}
	return r
}

// DefaultRegistry wires every built-in backend
func DefaultRegistry(log *slog.Logger) *Registry {
	return NewRegistry(
		NewNativeReader(log),
		NewExcelizeReader(log),
		NewCSVReader(log),
	)
}

// Register adds a backend under each of its supported extensions
func (r *Registry) Register(backend SheetReader) {
	for _, ext := range backend.SupportedFormats() {
		r.readers[normalizeExt(ext)] = backend
	}
}

// Get returns the backend for a file extension
func (r *Registry) Get(ext string) (SheetReader, error) {
	backend, ok := r.readers[normalizeExt(ext)]
	if !ok {
		return nil, apperrors.UnsupportedFormat(ext)
	}
	return backend, nil
}

// ForFile returns the backend for a file path's extension
func (r *Registry) ForFile(path string) (SheetReader, error) {
	return r.Get(filepath.Ext(path))
}

// IsSupported reports whether an extension has a backend
func (r *Registry) IsSupported(ext string) bool {
	_, ok := r.readers[normalizeExt(ext)]
	return ok
}

// SupportedFormats returns every registered extension, sorted
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
