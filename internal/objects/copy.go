package objects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Copy clones every object, and with recursive set its whole containment
// subtree, under the target with a CHILD_OF edge. It returns the ids of the
// cloned roots in input order.
func (s *Store) Copy(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass, recursive bool) ([]string, error) {
	return s.copyObjects(ctx, tx, targetClass, targetID, objects, recursive, false)
}

// CopySpecial is Copy with special containment
func (s *Store) CopySpecial(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass, recursive bool) ([]string, error) {
	return s.copyObjects(ctx, tx, targetClass, targetID, objects, recursive, true)
}

func (s *Store) copyObjects(ctx context.Context, tx repository.Tx, targetClass, targetID string, objects domain.ObjectsByClass, recursive, special bool) ([]string, error) {
	target, targetDef, err := s.lookup(ctx, tx, targetClass, targetID)
	if err != nil {
		return nil, err
	}
	targetName := domain.DummyRootClass
	if targetDef != nil {
		targetName = targetDef.Name
	}

	edge := domain.NewEdge("", target.ID, domain.EdgeChildOf)
	if special {
		edge.Type = domain.EdgeChildOfSpecial
	}

	var ids []string
	for _, className := range sortedClasses(objects) {
		for _, id := range objects[className] {
			node, def, err := s.lookup(ctx, tx, className, id)
			if err != nil {
				return nil, err
			}
			if err := s.checkPlacement(ctx, tx, targetName, def.Name, special); err != nil {
				return nil, err
			}
			cloneID, err := s.copyTree(ctx, tx, node, recursive, edge)
			if err != nil {
				return nil, err
			}
			ids = append(ids, cloneID)
		}
	}

	s.logger.Debug("objects copied",
		zap.String("target", target.ID),
		zap.Int("count", len(ids)),
		zap.Bool("recursive", recursive))
	return ids, nil
}

// CopyPoolItem clones an object into a pool
func (s *Store) CopyPoolItem(ctx context.Context, tx repository.Tx, poolID, className, id string, recursive bool) (string, error) {
	pool, err := s.poolNode(ctx, tx, poolID)
	if err != nil {
		return "", err
	}
	node, def, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return "", err
	}
	if err := s.checkPoolClass(ctx, tx, pool, def.Name); err != nil {
		return "", err
	}
	return s.copyTree(ctx, tx, node, recursive, domain.NewNamedEdge("", pool.ID, domain.EdgeChildOfSpecial, domain.PoolEdgeName))
}

type copyFrame struct {
	source *domain.Node
	attach *domain.Edge // edge from the clone to its new parent
}

// copyTree clones root and, when recursive, its inventory descendants.
// No-copy attribute values are left behind. Unique values are copied and
// must be reservable, so copying an object that holds one fails with a
// conflict.
func (s *Store) copyTree(ctx context.Context, tx repository.Tx, root *domain.Node, recursive bool, attach *domain.Edge) (string, error) {
	var rootClone string
	cloned := make(map[string]bool)
	stack := []copyFrame{{source: root, attach: attach}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cloned[f.source.ID] {
			return "", domain.InvalidArgumentf("object %s is reachable twice from %s", f.source.ID, root.ID).WithID(f.source.ID)
		}
		cloned[f.source.ID] = true

		def, err := s.classOf(ctx, tx, f.source)
		if err != nil {
			return "", err
		}
		cloneID, err := s.copyNode(ctx, tx, f.source, def)
		if err != nil {
			return "", err
		}

		edge := domain.NewEdge(cloneID, f.attach.ToID, f.attach.Type)
		for k, v := range f.attach.Properties {
			edge.SetProperty(k, v)
		}
		if err := tx.CreateEdge(ctx, edge); err != nil {
			return "", fmt.Errorf("failed to attach copy of %s: %w", f.source.ID, err)
		}
		if rootClone == "" {
			rootClone = cloneID
		}

		if !recursive {
			continue
		}
		children, err := tx.Edges(ctx, f.source.ID, repository.Incoming, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
		if err != nil {
			return "", err
		}
		for i := len(children) - 1; i >= 0; i-- {
			c := children[i]
			if c.IsPoolEdge() {
				continue
			}
			child, err := tx.GetNode(ctx, c.FromID)
			if err != nil {
				return "", err
			}
			if child == nil || !child.HasLabel(domain.LabelInventoryObject) {
				continue
			}
			link := domain.NewEdge("", cloneID, c.Type)
			for k, v := range c.Properties {
				link.SetProperty(k, v)
			}
			stack = append(stack, copyFrame{source: child, attach: link})
		}
	}
	return rootClone, nil
}

// copyNode writes an unattached copy of one object. The copy goes through
// the same mandatory and unique checks as a new object.
func (s *Store) copyNode(ctx context.Context, tx repository.Tx, source *domain.Node, def *domain.ClassDefinition) (string, error) {
	d := newDraft(domain.LabelInventoryObject)
	skip := make(map[string]bool)
	for _, a := range def.Attributes {
		if a.NoCopy {
			skip[a.Name] = true
		}
	}
	for k, v := range source.Properties {
		if k == domain.PropCreationDate || skip[k] {
			continue
		}
		d.node.SetProperty(k, v)
	}

	lists, err := s.loadLists(ctx, tx, source.ID)
	if err != nil {
		return "", err
	}
	for name, ids := range lists {
		if !skip[name] {
			d.lists[name] = ids
		}
	}

	if err := s.applyAttributes(ctx, tx, def, d, nil, modeCopy); err != nil {
		return "", err
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(d.node.ID, def.ID, domain.EdgeInstanceOf)); err != nil {
		return "", fmt.Errorf("failed to link copy to class %s: %w", def.Name, err)
	}
	return d.node.ID, nil
}
