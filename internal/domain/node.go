package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Node labels used to index the backing graph store.
const (
	LabelClass           = "classes"
	LabelAttribute       = "attributes"
	LabelInventoryObject = "inventoryObjects"
	LabelListTypeItem    = "listTypeItems"
	LabelPool            = "pools"
	LabelTemplate        = "templates"
	LabelTemplateElement = "templateElements"
	LabelProcessInstance = "processInstances"
	LabelDummyRoot       = "dummyRoot"
)

// Well-known property keys shared by every node kind.
const (
	PropName         = "name"
	PropCreationDate = "creationDate"
)

// Node is a labelled vertex of the backing graph store with a free-form
// property bag.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NewNode creates a node carrying the given labels
func NewNode(id string, labels ...string) *Node {
	return &Node{
		ID:         id,
		Labels:     labels,
		Properties: make(map[string]any),
	}
}

// HasLabel reports whether the node carries label
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// SetProperty sets a property value
func (n *Node) SetProperty(key string, value any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (any, bool) {
	if n.Properties == nil {
		return nil, false
	}
	val, ok := n.Properties[key]
	return val, ok
}

// String returns a property as a string, "" when absent
func (n *Node) String(key string) string {
	v, ok := n.GetProperty(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns a boolean property, false when absent
func (n *Node) Bool(key string) bool {
	v, _ := n.GetProperty(key)
	return toBool(v)
}

// Int returns an integer property, 0 when absent or not numeric
func (n *Node) Int(key string) int64 {
	v, _ := n.GetProperty(key)
	i, _ := toInt64(v)
	return i
}

// Name is shorthand for the "name" property
func (n *Node) Name() string {
	return n.String(PropName)
}

// Clone returns a deep copy of the node's labels and top-level properties
func (n *Node) Clone() *Node {
	c := &Node{
		ID:         n.ID,
		Labels:     slices.Clone(n.Labels),
		Properties: make(map[string]any, len(n.Properties)),
	}
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	return c
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	case json.Number:
		i, err := b.Int64()
		return err == nil && i != 0
	case float64:
		return b != 0
	case int64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
