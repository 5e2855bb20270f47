package repository

import (
	"context"
	"errors"

	"assetgraph/internal/domain"
)

// Direction selects which edges of a node are visited
type Direction int

const (
	// Outgoing edges start at the node
	Outgoing Direction = iota
	// Incoming edges end at the node
	Incoming
	// Both directions
	Both
)

// Store opens transactions against the backing graph store
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is one unit of work. Reads observe the transaction's own writes.
type Tx interface {
	// ID identifies the transaction for per-transaction bookkeeping
	ID() string

	// Node operations. GetNode and FindNode return nil, nil when nothing
	// matches.
	CreateNode(ctx context.Context, node *domain.Node) error
	GetNode(ctx context.Context, id string) (*domain.Node, error)
	FindNode(ctx context.Context, label, key string, value any) (*domain.Node, error)
	ListNodes(ctx context.Context, label string, filter map[string]any, page domain.Page) ([]domain.Node, error)
	CountNodes(ctx context.Context, label string) (int, error)
	SetProperties(ctx context.Context, id string, props map[string]any) error
	DeleteNode(ctx context.Context, id string) error

	// Edge operations
	CreateEdge(ctx context.Context, edge *domain.Edge) error
	Edges(ctx context.Context, nodeID string, dir Direction, types ...domain.EdgeType) ([]domain.Edge, error)
	SetEdgeProperties(ctx context.Context, id string, props map[string]any) error
	DeleteEdge(ctx context.Context, id string) error

	// Traverse returns the ids of nodes reachable from start over edges of
	// the given types, nearest first, excluding start. maxDepth <= 0 means
	// unbounded.
	Traverse(ctx context.Context, start string, dir Direction, maxDepth int, types ...domain.EdgeType) ([]string, error)

	// Outcome hooks run after the transaction commits or rolls back
	OnCommit(fn func())
	OnRollback(fn func())

	Commit() error
	Rollback() error
}

// ErrNodeNotFound is returned when a write targets a node or edge that does
// not exist
var ErrNodeNotFound = errors.New("node not found")
