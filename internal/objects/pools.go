package objects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// CreatePool creates a pool holding instances of className. With an empty
// parent id the pool is a root pool; otherwise it hangs from the parent
// pool or object.
func (s *Store) CreatePool(ctx context.Context, tx repository.Tx, parentID, name, description, className string, poolType int) (string, error) {
	if name == "" {
		return "", domain.InvalidArgumentf("the pool name cannot be empty")
	}
	if _, err := s.cache.Class(ctx, tx, className); err != nil {
		return "", err
	}

	var parent *domain.Node
	if parentID != "" {
		var err error
		if parent, err = tx.GetNode(ctx, parentID); err != nil {
			return "", err
		}
		if parent == nil || !(parent.HasLabel(domain.LabelPool) || parent.HasLabel(domain.LabelInventoryObject)) {
			return "", domain.ObjectNotFound("", parentID)
		}
	}

	node := domain.NewNode("", domain.LabelPool)
	node.SetProperty(domain.PropName, name)
	node.SetProperty("description", description)
	node.SetProperty("className", className)
	node.SetProperty("type", int64(poolType))
	node.SetProperty(domain.PropCreationDate, nowMillis())
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create pool %s: %w", name, err)
	}
	if parent != nil {
		if err := tx.CreateEdge(ctx, domain.NewNamedEdge(node.ID, parent.ID, domain.EdgeChildOfSpecial, domain.PoolEdgeName)); err != nil {
			return "", fmt.Errorf("failed to attach pool %s: %w", name, err)
		}
	}

	s.logger.Debug("pool created", zap.String("pool", node.ID), zap.String("class", className))
	return node.ID, nil
}

// Pool returns a pool by id
func (s *Store) Pool(ctx context.Context, tx repository.Tx, id string) (*domain.Pool, error) {
	node, err := s.poolNode(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	pool := &domain.Pool{
		ID:          node.ID,
		Name:        node.Name(),
		Description: node.String("description"),
		ClassName:   node.String("className"),
		Type:        int(node.Int("type")),
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeChildOfSpecial)
	if err != nil {
		return nil, err
	}
	if len(edges) > 0 {
		pool.ParentID = edges[0].ToID
	}
	return pool, nil
}

// RootPools lists the pools without a parent, optionally those of one
// class only
func (s *Store) RootPools(ctx context.Context, tx repository.Tx, className string) ([]domain.Pool, error) {
	var filter map[string]any
	if className != "" {
		filter = map[string]any{"className": className}
	}
	nodes, err := tx.ListNodes(ctx, domain.LabelPool, filter, domain.Page{})
	if err != nil {
		return nil, err
	}
	var pools []domain.Pool
	for _, n := range nodes {
		pool, err := s.Pool(ctx, tx, n.ID)
		if err != nil {
			return nil, err
		}
		if pool.ParentID == "" {
			pools = append(pools, *pool)
		}
	}
	return pools, nil
}

// CreatePoolItem creates an instance of className inside a pool. The class
// must be the pool's class or one of its subclasses.
func (s *Store) CreatePoolItem(ctx context.Context, tx repository.Tx, poolID, className string, attrs map[string]string, templateID string) (string, error) {
	pool, err := s.poolNode(ctx, tx, poolID)
	if err != nil {
		return "", err
	}
	def, err := s.instantiable(ctx, tx, className)
	if err != nil {
		return "", err
	}
	if err := s.checkPoolClass(ctx, tx, pool, def.Name); err != nil {
		return "", err
	}

	id, err := s.build(ctx, tx, def, attrs, templateID)
	if err != nil {
		return "", err
	}
	if err := tx.CreateEdge(ctx, domain.NewNamedEdge(id, pool.ID, domain.EdgeChildOfSpecial, domain.PoolEdgeName)); err != nil {
		return "", fmt.Errorf("failed to put %s in pool %s: %w", id, pool.ID, err)
	}
	return id, nil
}

// PoolItems lists the objects held by a pool
func (s *Store) PoolItems(ctx context.Context, tx repository.Tx, poolID string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	pool, err := s.poolNode(ctx, tx, poolID)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, pool.ID, repository.Incoming, domain.EdgeChildOfSpecial)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range edges {
		if e.IsPoolEdge() {
			ids = append(ids, e.FromID)
		}
	}
	items, err := s.lights(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	var objects []domain.BusinessObjectLight
	for i, item := range items {
		node, err := tx.GetNode(ctx, ids[i])
		if err != nil {
			return nil, err
		}
		if node != nil && node.HasLabel(domain.LabelInventoryObject) {
			objects = append(objects, item)
		}
	}
	sortLights(objects)
	return paginate(objects, page), nil
}

// DeletePools deletes pools with their items and nested pools
func (s *Store) DeletePools(ctx context.Context, tx repository.Tx, ids []string, release bool) error {
	for _, id := range ids {
		node, err := tx.GetNode(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			continue
		}
		if !node.HasLabel(domain.LabelPool) {
			return domain.InvalidArgumentf("%s is not a pool", id).WithID(id)
		}
		if err := s.deleteTree(ctx, tx, id, release); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) poolNode(ctx context.Context, tx repository.Tx, id string) (*domain.Node, error) {
	node, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil || !node.HasLabel(domain.LabelPool) {
		return nil, domain.NotFoundf("pool %s could not be found", id).WithID(id)
	}
	return node, nil
}

func (s *Store) checkPoolClass(ctx context.Context, tx repository.Tx, pool *domain.Node, className string) error {
	ok, err := s.cache.IsSubclassOf(ctx, tx, pool.String("className"), className)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotPermittedf("pool %s only holds instances of %s", pool.Name(), pool.String("className")).
			WithClass(className).WithID(pool.ID)
	}
	return nil
}
