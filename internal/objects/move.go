package objects

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Move places every object under the target with a CHILD_OF edge,
// replacing its current containment edges
func (s *Store) Move(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass) error {
	return s.move(ctx, tx, targetClass, targetID, objects, false)
}

// MoveSpecial is Move with special containment. Physical connections may
// move without a special containment rule.
func (s *Store) MoveSpecial(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass) error {
	return s.move(ctx, tx, targetClass, targetID, objects, true)
}

func (s *Store) move(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass, special bool) error {
	target, targetDef, err := s.lookup(ctx, tx, targetClass, targetID)
	if err != nil {
		return err
	}
	targetName := domain.DummyRootClass
	if targetDef != nil {
		targetName = targetDef.Name
	}

	edgeType := domain.EdgeChildOf
	if special {
		edgeType = domain.EdgeChildOfSpecial
	}

	moved := 0
	for _, className := range sortedClasses(objects) {
		for _, id := range objects[className] {
			node, def, err := s.lookup(ctx, tx, className, id)
			if err != nil {
				return err
			}
			if err := s.checkPlacement(ctx, tx, targetName, def.Name, special); err != nil {
				return err
			}
			if err := s.checkNotDescendant(ctx, tx, node.ID, target.ID); err != nil {
				return err
			}
			if err := s.detachContainment(ctx, tx, node.ID); err != nil {
				return err
			}
			if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, target.ID, edgeType)); err != nil {
				return fmt.Errorf("failed to move object %s: %w", node.ID, err)
			}
			moved++
		}
	}

	s.logger.Debug("objects moved",
		zap.String("target", target.ID),
		zap.Int("count", moved),
		zap.Bool("special", special))
	return nil
}

// checkPlacement applies the containment rules to a move or copy
func (s *Store) checkPlacement(ctx context.Context, tx repository.Tx, parentClass, childClass string, special bool) error {
	var ok bool
	var err error
	if special {
		if ok, err = s.cache.IsSubclassOf(ctx, tx, s.core.PhysicalConnection, childClass); err != nil {
			return err
		}
		if !ok {
			ok, err = s.rules.CanBeSpecialChild(ctx, tx, parentClass, childClass)
		}
	} else {
		ok, err = s.rules.CanBeChild(ctx, tx, parentClass, childClass)
	}
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotPermittedf("an instance of %s cannot be a child of an instance of %s", childClass, parentClass).
			WithClass(childClass)
	}
	return nil
}

// checkNotDescendant refuses to put an object under itself or under one of
// its own descendants
func (s *Store) checkNotDescendant(ctx context.Context, tx repository.Tx, objectID, targetID string) error {
	if objectID == targetID {
		return domain.NotPermittedf("object %s cannot be its own parent", objectID).WithID(objectID)
	}
	descendants, err := tx.Traverse(ctx, objectID, repository.Incoming, 0, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
	if err != nil {
		return err
	}
	if slices.Contains(descendants, targetID) {
		return domain.NotPermittedf("object %s cannot be moved under its own descendant %s", objectID, targetID).
			WithID(objectID)
	}
	return nil
}

// detachContainment removes every CHILD_OF and CHILD_OF_SPECIAL edge of a
// node, pool membership included
func (s *Store) detachContainment(ctx context.Context, tx repository.Tx, nodeID string) error {
	edges, err := tx.Edges(ctx, nodeID, repository.Outgoing, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := tx.DeleteEdge(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// MovePoolItem moves an object into another pool
func (s *Store) MovePoolItem(ctx context.Context, tx repository.Tx, poolID, className, id string) error {
	pool, err := s.poolNode(ctx, tx, poolID)
	if err != nil {
		return err
	}
	node, def, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	if err := s.checkPoolClass(ctx, tx, pool, def.Name); err != nil {
		return err
	}

	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeChildOfSpecial)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if e.IsPoolEdge() {
			if err := tx.DeleteEdge(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return tx.CreateEdge(ctx, domain.NewNamedEdge(node.ID, pool.ID, domain.EdgeChildOfSpecial, domain.PoolEdgeName))
}

func sortedClasses(objects domain.ObjectsByClass) []string {
	classes := make([]string, 0, len(objects))
	for c := range objects {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}
