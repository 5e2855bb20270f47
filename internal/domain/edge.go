package domain

// EdgeType represents the kind of relationship between two nodes
type EdgeType string

const (
	// Containment
	EdgeChildOf        EdgeType = "CHILD_OF"
	EdgeChildOfSpecial EdgeType = "CHILD_OF_SPECIAL"

	// Non-containment relationships between business objects
	EdgeRelatedTo          EdgeType = "RELATED_TO"
	EdgeRelatedToSpecial   EdgeType = "RELATED_TO_SPECIAL"
	EdgeHasProcessInstance EdgeType = "HAS_PROCESS_INSTANCE"

	// Instance to class
	EdgeInstanceOf        EdgeType = "INSTANCE_OF"
	EdgeInstanceOfSpecial EdgeType = "INSTANCE_OF_SPECIAL"

	// Schema
	EdgeExtends              EdgeType = "EXTENDS"
	EdgeHasAttribute         EdgeType = "HAS_ATTRIBUTE"
	EdgeHasTemplate          EdgeType = "HAS_TEMPLATE"
	EdgePossibleChild        EdgeType = "POSSIBLE_CHILD"
	EdgePossibleSpecialChild EdgeType = "POSSIBLE_SPECIAL_CHILD"
)

// PoolEdgeName tags CHILD_OF_SPECIAL edges that place an item in a pool
const PoolEdgeName = "pool"

// Edge represents a directed relationship between two nodes
type Edge struct {
	ID         string         `json:"id"`
	FromID     string         `json:"from_id"`
	ToID       string         `json:"to_id"`
	Type       EdgeType       `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NewEdge creates a new edge. The store assigns the ID when it is empty.
func NewEdge(fromID, toID string, edgeType EdgeType) *Edge {
	return &Edge{
		FromID:     fromID,
		ToID:       toID,
		Type:       edgeType,
		Properties: make(map[string]any),
	}
}

// NewNamedEdge creates an edge carrying a "name" property
func NewNamedEdge(fromID, toID string, edgeType EdgeType, name string) *Edge {
	e := NewEdge(fromID, toID, edgeType)
	e.SetProperty(PropName, name)
	return e
}

// SetProperty sets a property value
func (e *Edge) SetProperty(key string, value any) {
	if e.Properties == nil {
		e.Properties = make(map[string]any)
	}
	e.Properties[key] = value
}

// GetProperty gets a property value
func (e *Edge) GetProperty(key string) (any, bool) {
	if e.Properties == nil {
		return nil, false
	}
	val, ok := e.Properties[key]
	return val, ok
}

// Name returns the edge's "name" property, "" when unnamed
func (e *Edge) Name() string {
	v, ok := e.GetProperty(PropName)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Other returns the endpoint opposite to id
func (e *Edge) Other(id string) string {
	if e.FromID == id {
		return e.ToID
	}
	return e.FromID
}

// IsPoolEdge reports whether the edge places an item in a pool
func (e *Edge) IsPoolEdge() bool {
	return e.Type == EdgeChildOfSpecial && e.Name() == PoolEdgeName
}
