package domain

// DataModel is a portable description of a schema: classes with their own
// attributes, containment rules and list type items
type DataModel struct {
	Version   string              `json:"version" yaml:"version"`
	Classes   []ClassDefinition   `json:"classes" yaml:"classes"`
	Rules     []ContainmentRule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	ListItems []ListTypeItemGroup `json:"list_items,omitempty" yaml:"list_items,omitempty"`
}

// ContainmentRule allows instances of Children under instances of Parent.
// An empty Parent designates the dummy root.
type ContainmentRule struct {
	Parent   string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children []string `json:"children" yaml:"children"`
	Special  bool     `json:"special,omitempty" yaml:"special,omitempty"`
}

// ListTypeItemGroup holds the items of one list type class
type ListTypeItemGroup struct {
	Class string         `json:"class" yaml:"class"`
	Items []ListTypeItem `json:"items" yaml:"items"`
}

// ListTypeItem is one entry of a list type
type ListTypeItem struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
}

// DataModelVersion is written into exported data models
const DataModelVersion = "1"

// NewDataModel creates an empty data model
func NewDataModel() *DataModel {
	return &DataModel{
		Version: DataModelVersion,
		Classes: make([]ClassDefinition, 0),
	}
}

// AddClass appends a class
func (m *DataModel) AddClass(def ClassDefinition) {
	m.Classes = append(m.Classes, def)
}

// AddRule appends a containment rule
func (m *DataModel) AddRule(rule ContainmentRule) {
	m.Rules = append(m.Rules, rule)
}
