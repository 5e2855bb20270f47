// Package objects implements the business object operations: creation,
// placement, copying, deletion and the queries over the containment and
// relationship graph. Every method runs inside the caller's transaction.
package objects

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"assetgraph/internal/containment"
	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
	"assetgraph/internal/unique"
)

// Defaults for route searches through special relationships
const (
	DefaultMaxRoutes = 10
	DefaultMaxHops   = 30
)

// Options tunes a Store
type Options struct {
	MaxRoutes int
	MaxHops   int
	Names     NameGenerator
}

// Store performs business object operations against the graph
type Store struct {
	cache  *metadata.Cache
	rules  *containment.Engine
	index  *unique.Index
	core   domain.CoreClasses
	names  NameGenerator
	logger *zap.Logger

	maxRoutes int
	maxHops   int
}

// New creates a business object store
func New(cache *metadata.Cache, rules *containment.Engine, index *unique.Index, core domain.CoreClasses, opts Options, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRoutes <= 0 {
		opts.MaxRoutes = DefaultMaxRoutes
	}
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.Names == nil {
		opts.Names = PatternGenerator{}
	}
	return &Store{
		cache:     cache,
		rules:     rules,
		index:     index,
		core:      core,
		names:     opts.Names,
		logger:    logger.Named("objects"),
		maxRoutes: opts.MaxRoutes,
		maxHops:   opts.MaxHops,
	}
}

// ============================================================================
// Instance Lookup
// ============================================================================

// lookup resolves an instance of className (or of one of its subclasses)
// by id. It is the only place that knows about the dummy root: the
// sentinel resolves to the materialized root node with a nil class. An
// empty className resolves the class from the node.
func (s *Store) lookup(ctx context.Context, tx repository.Tx, className, id string) (*domain.Node, *domain.ClassDefinition, error) {
	if domain.IsDummyRoot(className, id) {
		if err := metadata.EnsureDummyRoot(ctx, tx); err != nil {
			return nil, nil, err
		}
		root, err := tx.GetNode(ctx, domain.DummyRootID)
		if err != nil {
			return nil, nil, err
		}
		return root, nil, nil
	}
	if id == "" {
		return nil, nil, domain.InvalidArgumentf("the id of an object of class %s cannot be empty", className).
			WithClass(className)
	}
	if className != "" {
		if _, err := s.cache.Class(ctx, tx, className); err != nil {
			return nil, nil, err
		}
	}

	node, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object %s: %w", id, err)
	}
	if node == nil || !(node.HasLabel(domain.LabelInventoryObject) || node.HasLabel(domain.LabelListTypeItem)) {
		return nil, nil, domain.ObjectNotFound(className, id)
	}

	def, err := s.classOf(ctx, tx, node)
	if err != nil {
		return nil, nil, err
	}
	if className != "" {
		ok, err := s.cache.IsSubclassOf(ctx, tx, className, def.Name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, domain.ObjectNotFound(className, id)
		}
	}
	return node, def, nil
}

// classOf resolves the class a node instantiates, normally or as a
// template element
func (s *Store) classOf(ctx context.Context, tx repository.Tx, node *domain.Node) (*domain.ClassDefinition, error) {
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeInstanceOf, domain.EdgeInstanceOfSpecial)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, domain.NotFoundf("node %s is not an instance of any class", node.ID).WithID(node.ID)
	}
	name, err := s.cache.ClassNameByID(ctx, tx, edges[0].ToID)
	if err != nil {
		return nil, err
	}
	return s.cache.Class(ctx, tx, name)
}

// light builds the summary view of a node. Pools and the dummy root have
// no class edge and are named after their kind.
func (s *Store) light(ctx context.Context, tx repository.Tx, node *domain.Node) (domain.BusinessObjectLight, error) {
	switch {
	case node.ID == domain.DummyRootID:
		return domain.DummyRootLight(), nil
	case node.HasLabel(domain.LabelPool):
		return domain.BusinessObjectLight{ID: node.ID, ClassName: node.String("className"), Name: node.Name()}, nil
	}
	def, err := s.classOf(ctx, tx, node)
	if err != nil {
		return domain.BusinessObjectLight{}, err
	}
	return domain.BusinessObjectLight{ID: node.ID, ClassName: def.Name, Name: node.Name()}, nil
}

func (s *Store) lights(ctx context.Context, tx repository.Tx, ids []string) ([]domain.BusinessObjectLight, error) {
	result := make([]domain.BusinessObjectLight, 0, len(ids))
	for _, id := range ids {
		node, err := tx.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		l, err := s.light(ctx, tx, node)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}

// toObject renders a node with its resolved attribute values
func (s *Store) toObject(ctx context.Context, tx repository.Tx, node *domain.Node, def *domain.ClassDefinition) (*domain.BusinessObject, error) {
	obj := &domain.BusinessObject{
		ID:         node.ID,
		ClassName:  def.Name,
		Name:       node.Name(),
		Attributes: make(map[string]string),
	}
	if ms := node.Int(domain.PropCreationDate); ms != 0 {
		obj.CreationDate = time.UnixMilli(ms)
	}

	lists, err := s.loadLists(ctx, tx, node.ID)
	if err != nil {
		return nil, err
	}
	for i := range def.Attributes {
		attr := &def.Attributes[i]
		if attr.Name == domain.PropName || attr.Name == domain.PropCreationDate {
			continue
		}
		if attr.Type.IsPrimitive() {
			if v, ok := node.GetProperty(attr.Name); ok && !domain.IsEmptyValue(v) {
				obj.Attributes[attr.Name] = domain.FormatValue(attr.Type.Kind(), v)
			}
			continue
		}
		if ids := lists[attr.Name]; len(ids) > 0 {
			obj.Attributes[attr.Name] = joinIDs(ids)
		}
	}
	return obj, nil
}

// loadLists returns the list-type references of a node by attribute name
func (s *Store) loadLists(ctx context.Context, tx repository.Tx, nodeID string) (map[string][]string, error) {
	edges, err := tx.Edges(ctx, nodeID, repository.Outgoing, domain.EdgeRelatedTo)
	if err != nil {
		return nil, err
	}
	lists := make(map[string][]string)
	for _, e := range edges {
		lists[e.Name()] = append(lists[e.Name()], e.ToID)
	}
	return lists, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ";")
}

func sortLights(objs []domain.BusinessObjectLight) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].Name != objs[j].Name {
			return objs[i].Name < objs[j].Name
		}
		return objs[i].ID < objs[j].ID
	})
}

func paginate[T any](items []T, page domain.Page) []T {
	if page.Skip > 0 {
		if page.Skip >= len(items) {
			return nil
		}
		items = items[page.Skip:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
