package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalProperties decodes a nullable JSON object, keeping numbers as
// json.Number so 64-bit integers survive the round trip
func unmarshalProperties(ns sql.NullString) (map[string]any, error) {
	props := make(map[string]any)
	if !ns.Valid || ns.String == "" {
		return props, nil
	}
	dec := json.NewDecoder(strings.NewReader(ns.String))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, err
	}
	return props, nil
}

// marshalToNull marshals a property bag to nullable JSON
// Returns empty NullString for nil or empty maps
func marshalToNull(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: strings.TrimSpace(buf.String()), Valid: true}, nil
}

// mergeProperties applies a patch onto props. Nil values delete the key.
func mergeProperties(props, patch map[string]any) map[string]any {
	if props == nil {
		props = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(props, k)
			continue
		}
		props[k] = v
	}
	return props
}

// ============================================================================
// Query Building Helpers
// ============================================================================

// jsonPath returns the json_extract path for a top-level property key
func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

// sqlValue converts a property value into a parameter comparable with the
// result of json_extract
func sqlValue(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	}
	return v
}

// edgeTypeFilter renders "AND e.type IN (?, ...)" for a non-empty type list
func edgeTypeFilter(alias string, types []domain.EdgeType) (string, []any) {
	if len(types) == 0 {
		return "", nil
	}
	args := make([]any, len(types))
	for i, t := range types {
		args[i] = string(t)
	}
	return fmt.Sprintf(" AND %s.type IN (%s)", alias, placeholders(len(types))), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// pageClause renders LIMIT/OFFSET for a page
func pageClause(page domain.Page) (string, []any) {
	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	skip := page.Skip
	if skip < 0 {
		skip = 0
	}
	return " LIMIT ? OFFSET ?", []any{limit, skip}
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() to map the new field
// 5. Add migration in sqlite.go migrate() using addColumnIfNotExists()
//
// CRITICAL: Column order must match between:
// - nodeColumns constant
// - scanArgs() return slice
// - All SELECT queries using nodeColumns
//
// Same pattern applies to edges.

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	PropertiesJSON sql.NullString
	Labels         sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, properties, labels
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.PropertiesJSON, // 2
		&r.Labels,         // 3
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	props, err := unmarshalProperties(r.PropertiesJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}

	node := &domain.Node{
		ID:         r.ID,
		Properties: props,
	}
	if labels := nullToString(r.Labels); labels != "" {
		node.Labels = strings.Split(labels, ",")
	}
	return node, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `n.id, n.properties,
	(SELECT group_concat(l.label, ',') FROM node_labels l WHERE l.node_id = n.id) AS labels`

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	ID             string
	FromID         string
	ToID           string
	Type           string
	PropertiesJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly:
// id, from_id, to_id, type, properties
func (r *edgeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.FromID,         // 2
		&r.ToID,           // 3
		&r.Type,           // 4
		&r.PropertiesJSON, // 5
	}
}

// toDomain converts the scanned row to a domain.Edge
func (r *edgeRow) toDomain() (*domain.Edge, error) {
	props, err := unmarshalProperties(r.PropertiesJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}

	return &domain.Edge{
		ID:         r.ID,
		FromID:     r.FromID,
		ToID:       r.ToID,
		Type:       domain.EdgeType(r.Type),
		Properties: props,
	}, nil
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `e.id, e.from_id, e.to_id, e.type, e.properties`

// ============================================================================
// Edge Write Helpers
// ============================================================================

// edgeInsertArgs prepares arguments for edge INSERT
// Returns: id, from_id, to_id, type, properties
func edgeInsertArgs(edge *domain.Edge) ([]interface{}, error) {
	propsJSON, err := marshalToNull(edge.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	return []interface{}{
		edge.ID,
		edge.FromID,
		edge.ToID,
		string(edge.Type),
		propsJSON,
	}, nil
}

// directionFilter renders the endpoint condition for an edge query
func directionFilter(dir repository.Direction) string {
	switch dir {
	case repository.Outgoing:
		return "e.from_id = ?"
	case repository.Incoming:
		return "e.to_id = ?"
	default:
		return "(e.from_id = ? OR e.to_id = ?)"
	}
}
