package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"assetgraph/internal/domain"
)

// JSONCodec handles JSON data models
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse reads a data model from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.DataModel, error) {
	var model domain.DataModel
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&model); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("failed to parse JSON: trailing data after the data model")
	}
	normalize(&model)
	return &model, nil
}

// Export writes a data model as JSON
func (c *JSONCodec) Export(model *domain.DataModel, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	// Descriptions are free text
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(model); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
