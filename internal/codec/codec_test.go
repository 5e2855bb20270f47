package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
)

const sampleYAML = `
version: "1"
classes:
  - name: InventoryObject
    abstract: true
    attributes:
      - name: name
        type: String
        visible: true
  - name: GenericObjectList
    parent: InventoryObject
    abstract: true
  - name: EquipmentVendor
    parent: GenericObjectList
  - name: Router
    parent: InventoryObject
    display_name: Router
    color: 255
    attributes:
      - name: serialNumber
        type: String
        unique: true
        mandatory: true
      - name: vendor
        type: EquipmentVendor
      - name: ports
        type: Integer
        order: 3
rules:
  - children: [Router]
  - parent: Router
    children: [Card]
    special: true
list_items:
  - class: EquipmentVendor
    items:
      - name: cisco
        display_name: Cisco Systems
`

var attributeTypes = cmp.Comparer(func(a, b domain.AttributeType) bool {
	return a.String() == b.String()
})

func TestYAMLParse(t *testing.T) {
	model, err := NewYAMLCodec().Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	require.Len(t, model.Classes, 4)
	router := model.Classes[3]
	assert.Equal(t, "InventoryObject", router.ParentClassName)
	assert.Equal(t, 255, router.Color)

	require.Len(t, router.Attributes, 3)
	assert.True(t, router.Attributes[0].Unique)
	assert.True(t, router.Attributes[1].Type.IsListType())
	assert.Equal(t, "EquipmentVendor", router.Attributes[1].Type.ListClass())
	assert.Equal(t, domain.KindInteger, router.Attributes[2].Type.Kind())
	assert.Equal(t, 3, router.Attributes[2].Order)

	want := []domain.ContainmentRule{
		{Children: []string{"Router"}},
		{Parent: "Router", Children: []string{"Card"}, Special: true},
	}
	if diff := cmp.Diff(want, model.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []domain.ListTypeItemGroup{{
		Class: "EquipmentVendor",
		Items: []domain.ListTypeItem{{Name: "cisco", DisplayName: "Cisco Systems"}},
	}}, model.ListItems)
}

func TestYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := NewYAMLCodec().Parse(strings.NewReader("classes:\n  - name: A\n    colour: 3\n"))
	assert.Error(t, err)
}

func TestEmptyDocument(t *testing.T) {
	model, err := NewYAMLCodec().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, domain.DataModelVersion, model.Version)
	assert.Empty(t, model.Classes)
}

func TestExportThenParse(t *testing.T) {
	original, err := NewYAMLCodec().Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	for _, c := range []Codec{NewYAMLCodec(), NewJSONCodec()} {
		t.Run(c.Format(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, c.Export(original, &buf))

			parsed, err := c.Parse(&buf)
			require.NoError(t, err)
			if diff := cmp.Diff(original, parsed, attributeTypes); diff != "" {
				t.Errorf("data model mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONParse(t *testing.T) {
	doc := `{
  "classes": [
    {"name": "Card", "parent_class_name": "InventoryObject",
     "attributes": [{"name": "model", "type": "String", "visible": true}]}
  ],
  "rules": [{"parent": "Router", "children": ["Card"]}]
}`
	model, err := NewJSONCodec().Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, domain.DataModelVersion, model.Version)
	require.Len(t, model.Classes, 1)
	assert.Equal(t, "InventoryObject", model.Classes[0].ParentClassName)
	assert.Equal(t, domain.KindString, model.Classes[0].Attributes[0].Type.Kind())
	assert.Equal(t, []string{"Card"}, model.Rules[0].Children)

	_, err = NewJSONCodec().Parse(strings.NewReader(`{"nodes": []}`))
	assert.Error(t, err)

	_, err = NewJSONCodec().Parse(strings.NewReader(`{"classes": []} {"classes": []}`))
	assert.Error(t, err, "trailing document")
}

func TestJSONExportKeepsMarkup(t *testing.T) {
	model := domain.NewDataModel()
	model.AddClass(domain.ClassDefinition{Name: "Rack", Description: "holds <19\"> equipment & cabling"})

	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(model, &buf))
	assert.Contains(t, buf.String(), `<19\"> equipment & cabling`)
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"model.yaml", "yaml"},
		{"/etc/assetgraph/model.YML", "yaml"},
		{"model.json", "json"},
	}
	for _, tt := range tests {
		c, err := ForPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.format, c.Format())
	}

	for _, path := range []string{"model", "model.toml"} {
		_, err := ForPath(path)
		assert.Error(t, err, path)
	}
}
