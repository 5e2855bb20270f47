package codec

import (
	"errors"
	"fmt"
	"io"

	"assetgraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML data models
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse reads a data model from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.DataModel, error) {
	var model domain.DataModel
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&model); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	normalize(&model)
	return &model, nil
}

// Export writes a data model as YAML
func (c *YAMLCodec) Export(model *domain.DataModel, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(model); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
