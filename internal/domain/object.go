package domain

import "time"

// BusinessObject is an instance of a concrete class. Primitive attribute
// values are rendered in canonical string form; list-type attributes hold
// the referenced item ids joined by ";".
type BusinessObject struct {
	ID           string            `json:"id"`
	ClassName    string            `json:"class_name"`
	Name         string            `json:"name"`
	CreationDate time.Time         `json:"creation_date"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Light returns the summary view of the object
func (o *BusinessObject) Light() BusinessObjectLight {
	return BusinessObjectLight{ID: o.ID, ClassName: o.ClassName, Name: o.Name}
}

// BusinessObjectLight identifies an object in listings and paths
type BusinessObjectLight struct {
	ID        string `json:"id"`
	ClassName string `json:"class_name"`
	Name      string `json:"name"`
}

// DummyRootLight is the light view of the containment sentinel
func DummyRootLight() BusinessObjectLight {
	return BusinessObjectLight{ID: DummyRootID, ClassName: DummyRootClass, Name: DummyRootClass}
}

// ObjectsByClass groups object ids by their class name
type ObjectsByClass map[string][]string

// Pool is a container grouping objects of a given class outside the
// containment rules
type Pool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ClassName   string `json:"class_name"`
	Type        int    `json:"type"`
	ParentID    string `json:"parent_id,omitempty"`
}

// Template is the root of a reusable subgraph attached to a class
type Template struct {
	ID        string `json:"id"`
	ClassName string `json:"class_name"`
	Name      string `json:"name"`
}

// SpecialRelationship is one named peer link seen from one endpoint
type SpecialRelationship struct {
	Name       string              `json:"name"`
	Object     BusinessObjectLight `json:"object"`
	Properties map[string]any      `json:"properties,omitempty"`
}

// Page bounds a listing. A zero Limit returns everything after Skip.
type Page struct {
	Skip  int `json:"skip,omitempty"`
	Limit int `json:"limit,omitempty"`
}
