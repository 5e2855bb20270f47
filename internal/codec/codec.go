package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"assetgraph/internal/domain"
)

// Importer interface for importing data models from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.DataModel, error)
	Format() string
}

// Exporter interface for exporting data models to various formats
type Exporter interface {
	Export(model *domain.DataModel, w io.Writer) error
	Format() string
}

// Codec reads and writes one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unsupported data model format %q", format)
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer data model format of %s", path)
	}
	return ForFormat(ext)
}

// normalize fills in what a hand-written document may leave out
func normalize(model *domain.DataModel) {
	if model.Version == "" {
		model.Version = domain.DataModelVersion
	}
	if model.Classes == nil {
		model.Classes = make([]domain.ClassDefinition, 0)
	}
}
