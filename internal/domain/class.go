package domain

import (
	"slices"
	"sort"
	"time"
)

// DummyRoot is the sentinel parent of every top-level object. It is
// addressed by id "-1" or by class name "DummyRoot", and an empty parent
// class means the same thing.
const (
	DummyRootID    = "-1"
	DummyRootClass = "DummyRoot"
)

// IsDummyRoot reports whether a (class, id) pair designates the sentinel.
// The id "-1" only does so without a class: "-1" under a real class is an
// ordinary, missing object.
func IsDummyRoot(className, id string) bool {
	if className == DummyRootClass {
		return true
	}
	return className == "" && (id == "" || id == DummyRootID)
}

// CoreClasses names the classes the engine treats specially
type CoreClasses struct {
	// BusinessObject is the ancestor of every class that can be placed in
	// the containment hierarchy.
	BusinessObject string `yaml:"business_object"`
	// ListType is the ancestor of every list-type class.
	ListType string `yaml:"list_type"`
	// PhysicalConnection descendants can be moved specially without a
	// possible-special-child rule.
	PhysicalConnection string `yaml:"physical_connection"`
}

// DefaultCoreClasses returns the stock class names
func DefaultCoreClasses() CoreClasses {
	return CoreClasses{
		BusinessObject:     "InventoryObject",
		ListType:           "GenericObjectList",
		PhysicalConnection: "GenericPhysicalConnection",
	}
}

// ClassDefinition is a class of the hierarchy with its attributes resolved
// through inheritance
type ClassDefinition struct {
	ID              string    `json:"id,omitempty" yaml:"-"`
	Name            string    `json:"name" yaml:"name"`
	ParentClassName string    `json:"parent_class_name,omitempty" yaml:"parent,omitempty"`
	DisplayName     string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description     string    `json:"description,omitempty" yaml:"description,omitempty"`
	Abstract        bool      `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	InDesign        bool      `json:"in_design,omitempty" yaml:"in_design,omitempty"`
	Custom          bool      `json:"custom,omitempty" yaml:"custom,omitempty"`
	Countable       bool      `json:"countable,omitempty" yaml:"countable,omitempty"`
	Color           int       `json:"color,omitempty" yaml:"color,omitempty"`
	Icon            []byte    `json:"icon,omitempty" yaml:"-"`
	SmallIcon       []byte    `json:"small_icon,omitempty" yaml:"-"`
	CreationDate    time.Time `json:"creation_date,omitempty" yaml:"-"`

	Attributes []AttributeDefinition `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ClassDefinitionLight is the summary view of a class used in listings
type ClassDefinitionLight struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ParentClassName string `json:"parent_class_name,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	Abstract        bool   `json:"abstract,omitempty"`
	InDesign        bool   `json:"in_design,omitempty"`
}

// Light returns the summary view of the class
func (c *ClassDefinition) Light() ClassDefinitionLight {
	return ClassDefinitionLight{
		ID:              c.ID,
		Name:            c.Name,
		ParentClassName: c.ParentClassName,
		DisplayName:     c.DisplayName,
		Abstract:        c.Abstract,
		InDesign:        c.InDesign,
	}
}

// Attribute looks up a resolved attribute by name
func (c *ClassDefinition) Attribute(name string) (*AttributeDefinition, bool) {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i], true
		}
	}
	return nil, false
}

// HasAttribute reports whether the resolved attribute set contains name
func (c *ClassDefinition) HasAttribute(name string) bool {
	_, ok := c.Attribute(name)
	return ok
}

// IsRoot reports whether the class is the root of the hierarchy
func (c *ClassDefinition) IsRoot() bool {
	return c.ParentClassName == ""
}

// Clone returns a deep copy that callers may modify freely
func (c *ClassDefinition) Clone() *ClassDefinition {
	cp := *c
	cp.Icon = slices.Clone(c.Icon)
	cp.SmallIcon = slices.Clone(c.SmallIcon)
	cp.Attributes = slices.Clone(c.Attributes)
	return &cp
}

// SortAttributes orders attributes by their order field, then by name
func SortAttributes(attrs []AttributeDefinition) {
	sort.SliceStable(attrs, func(i, j int) bool {
		if attrs[i].Order != attrs[j].Order {
			return attrs[i].Order < attrs[j].Order
		}
		return attrs[i].Name < attrs[j].Name
	})
}

// ClassPatch is a partial update of a class. Nil fields are left untouched.
type ClassPatch struct {
	Name        *string `json:"name,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        []byte  `json:"icon,omitempty"`
	SmallIcon   []byte  `json:"small_icon,omitempty"`
	Color       *int    `json:"color,omitempty"`
	Countable   *bool   `json:"countable,omitempty"`
	Abstract    *bool   `json:"abstract,omitempty"`
	InDesign    *bool   `json:"in_design,omitempty"`
}

// ChangeDescriptor summarizes a successful update
type ChangeDescriptor struct {
	AffectedProperties []string `json:"affected_properties"`
	OldValues          []string `json:"old_values"`
	NewValues          []string `json:"new_values"`
	Notes              string   `json:"notes,omitempty"`
}

// Record appends one property change
func (d *ChangeDescriptor) Record(property, oldValue, newValue string) {
	d.AffectedProperties = append(d.AffectedProperties, property)
	d.OldValues = append(d.OldValues, oldValue)
	d.NewValues = append(d.NewValues, newValue)
}

// Empty reports whether nothing changed
func (d *ChangeDescriptor) Empty() bool {
	return len(d.AffectedProperties) == 0
}
