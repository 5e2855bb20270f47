package objects

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Delete removes an object and everything it contains. Unless release is
// set, objects holding special relationships or process instances are
// protected and the whole deletion is refused.
func (s *Store) Delete(ctx context.Context, tx repository.Tx, className, id string, release bool) error {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	if node.ID == domain.DummyRootID {
		return domain.NotPermittedf("the dummy root cannot be deleted").WithID(id)
	}
	return s.deleteTree(ctx, tx, node.ID, release)
}

// DeleteObjects deletes several objects in one go
func (s *Store) DeleteObjects(ctx context.Context, tx repository.Tx, objects domain.ObjectsByClass, release bool) error {
	for _, className := range sortedClasses(objects) {
		for _, id := range objects[className] {
			node, err := tx.GetNode(ctx, id)
			if err != nil {
				return err
			}
			if node == nil {
				// Already removed as the descendant of an earlier object
				if _, err := s.cache.Class(ctx, tx, className); err != nil {
					return err
				}
				continue
			}
			if err := s.Delete(ctx, tx, className, id, release); err != nil {
				return err
			}
		}
	}
	return nil
}

// CanDelete reports whether Delete would succeed without releasing
// relationships
func (s *Store) CanDelete(ctx context.Context, tx repository.Tx, className, id string) (bool, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return false, err
	}
	nodes, err := s.collectTree(ctx, tx, node.ID)
	if err != nil {
		return false, err
	}
	for _, n := range nodes {
		if err := s.checkUnreferenced(ctx, tx, n); err != nil {
			if errors.Is(err, domain.ErrOperationNotPermitted) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// deleteTree visits every descendant of rootID before severing any edge,
// then deletes them all
func (s *Store) deleteTree(ctx context.Context, tx repository.Tx, rootID string, release bool) error {
	nodes, err := s.collectTree(ctx, tx, rootID)
	if err != nil {
		return err
	}

	if !release {
		for _, n := range nodes {
			if err := s.checkUnreferenced(ctx, tx, n); err != nil {
				return err
			}
		}
	}

	for i := range nodes {
		n := &nodes[i]
		if n.HasLabel(domain.LabelInventoryObject) {
			def, err := s.classOf(ctx, tx, n)
			if err != nil {
				return err
			}
			s.releaseUnique(tx, def, n)
		}
		if err := tx.DeleteNode(ctx, n.ID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", n.ID, err)
		}
	}

	s.logger.Debug("object tree deleted", zap.String("root", rootID), zap.Int("nodes", len(nodes)))
	return nil
}

// collectTree returns rootID and every node contained in it, normally or
// specially, root first
func (s *Store) collectTree(ctx context.Context, tx repository.Tx, rootID string) ([]domain.Node, error) {
	root, err := tx.GetNode(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, domain.NotFoundf("node %s could not be found", rootID).WithID(rootID)
	}

	visited := map[string]bool{rootID: true}
	nodes := []domain.Node{*root}
	stack := []string{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		edges, err := tx.Edges(ctx, id, repository.Incoming, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if visited[e.FromID] {
				continue
			}
			visited[e.FromID] = true
			child, err := tx.GetNode(ctx, e.FromID)
			if err != nil {
				return nil, err
			}
			if child == nil {
				continue
			}
			nodes = append(nodes, *child)
			stack = append(stack, child.ID)
		}
	}
	return nodes, nil
}

// checkUnreferenced refuses nodes that another subsystem still points at
func (s *Store) checkUnreferenced(ctx context.Context, tx repository.Tx, n domain.Node) error {
	edges, err := tx.Edges(ctx, n.ID, repository.Both, domain.EdgeRelatedToSpecial, domain.EdgeHasProcessInstance)
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}
	kind := "special relationship " + edges[0].Name()
	if edges[0].Type == domain.EdgeHasProcessInstance {
		kind = "process instance"
	}
	return domain.NotPermittedf("object %s (%s) is still referenced by a %s, release it first", n.Name(), n.ID, kind).
		WithID(n.ID)
}
