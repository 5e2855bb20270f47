package objects

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// CreateSpecialRelationship links two objects with a named
// RELATED_TO_SPECIAL edge and returns the edge id. With unique set, a
// second link of the same name between the pair is refused.
func (s *Store) CreateSpecialRelationship(ctx context.Context, tx repository.Tx, aClass, aID, bClass, bID, name string, unique bool, props map[string]any) (string, error) {
	if err := domain.ValidateRelationshipName(name); err != nil {
		return "", err
	}
	if aID == bID {
		return "", domain.InvalidArgumentf("an object cannot be related to itself").WithID(aID)
	}
	a, _, err := s.lookup(ctx, tx, aClass, aID)
	if err != nil {
		return "", err
	}
	b, _, err := s.lookup(ctx, tx, bClass, bID)
	if err != nil {
		return "", err
	}
	if a.ID == domain.DummyRootID || b.ID == domain.DummyRootID {
		return "", domain.InvalidArgumentf("the dummy root cannot hold special relationships")
	}

	if unique {
		edges, err := tx.Edges(ctx, a.ID, repository.Both, domain.EdgeRelatedToSpecial)
		if err != nil {
			return "", err
		}
		for _, e := range edges {
			if e.Name() == name && e.Other(a.ID) == b.ID {
				return "", domain.InvalidArgumentf("objects %s and %s are already related through %s", a.ID, b.ID, name).
					WithID(a.ID)
			}
		}
	}

	edge := domain.NewNamedEdge(a.ID, b.ID, domain.EdgeRelatedToSpecial, name)
	for k, v := range props {
		if k != domain.PropName {
			edge.SetProperty(k, v)
		}
	}
	if err := tx.CreateEdge(ctx, edge); err != nil {
		return "", fmt.Errorf("failed to relate %s to %s: %w", a.ID, b.ID, err)
	}

	s.logger.Debug("special relationship created",
		zap.String("name", name),
		zap.String("from", a.ID),
		zap.String("to", b.ID))
	return edge.ID, nil
}

// relate creates an unchecked special relationship between two known nodes
func (s *Store) relate(ctx context.Context, tx repository.Tx, fromID, toID, name string, props map[string]any) error {
	edge := domain.NewNamedEdge(fromID, toID, domain.EdgeRelatedToSpecial, name)
	for k, v := range props {
		edge.SetProperty(k, v)
	}
	if err := tx.CreateEdge(ctx, edge); err != nil {
		return fmt.Errorf("failed to relate %s to %s: %w", fromID, toID, err)
	}
	return nil
}

// ReleaseSpecialRelationship removes the relationships called name between
// an object and otherID. An otherID of "-1" releases every relationship of
// that name.
func (s *Store) ReleaseSpecialRelationship(ctx context.Context, tx repository.Tx, className, id, otherID, name string) error {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Both, domain.EdgeRelatedToSpecial)
	if err != nil {
		return err
	}
	released := 0
	for _, e := range edges {
		if e.Name() != name {
			continue
		}
		if otherID != domain.DummyRootID && e.Other(node.ID) != otherID {
			continue
		}
		if err := tx.DeleteEdge(ctx, e.ID); err != nil {
			return err
		}
		released++
	}

	s.logger.Debug("special relationships released",
		zap.String("name", name),
		zap.String("object", node.ID),
		zap.Int("count", released))
	return nil
}

// SpecialAttribute returns the objects related to an object through the
// relationship called name, in either direction
func (s *Store) SpecialAttribute(ctx context.Context, tx repository.Tx, className, id, name string) ([]domain.BusinessObjectLight, error) {
	rels, err := s.SpecialRelationships(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	var result []domain.BusinessObjectLight
	for _, r := range rels {
		if r.Name == name {
			result = append(result, r.Object)
		}
	}
	return result, nil
}

// SpecialRelationships returns every special relationship of an object,
// ordered by name
func (s *Store) SpecialRelationships(ctx context.Context, tx repository.Tx, className, id string) ([]domain.SpecialRelationship, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Both, domain.EdgeRelatedToSpecial)
	if err != nil {
		return nil, err
	}

	rels := make([]domain.SpecialRelationship, 0, len(edges))
	for _, e := range edges {
		other, err := tx.GetNode(ctx, e.Other(node.ID))
		if err != nil {
			return nil, err
		}
		if other == nil {
			continue
		}
		l, err := s.light(ctx, tx, other)
		if err != nil {
			return nil, err
		}
		props := make(map[string]any)
		for k, v := range e.Properties {
			if k != domain.PropName {
				props[k] = v
			}
		}
		rels = append(rels, domain.SpecialRelationship{Name: e.Name(), Object: l, Properties: props})
	}
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Name < rels[j].Name })
	return rels, nil
}

// HasSpecialRelationship reports whether an object holds at least one
// relationship called name
func (s *Store) HasSpecialRelationship(ctx context.Context, tx repository.Tx, className, id, name string) (bool, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return false, err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Both, domain.EdgeRelatedToSpecial)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

// AttachProcessInstance links an object to an external process instance.
// Linked objects cannot be deleted until released.
func (s *Store) AttachProcessInstance(ctx context.Context, tx repository.Tx, className, id, processID string) error {
	if processID == "" {
		return domain.InvalidArgumentf("the process instance id cannot be empty")
	}
	node, def, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	if def == nil {
		return domain.InvalidArgumentf("the dummy root cannot hold process instances")
	}

	process, err := tx.GetNode(ctx, processID)
	if err != nil {
		return err
	}
	if process == nil {
		process = domain.NewNode(processID, domain.LabelProcessInstance)
		process.SetProperty(domain.PropCreationDate, nowMillis())
		if err := tx.CreateNode(ctx, process); err != nil {
			return fmt.Errorf("failed to create process instance %s: %w", processID, err)
		}
	} else if !process.HasLabel(domain.LabelProcessInstance) {
		return domain.InvalidArgumentf("%s is not a process instance", processID).WithID(processID)
	}
	return tx.CreateEdge(ctx, domain.NewEdge(node.ID, process.ID, domain.EdgeHasProcessInstance))
}

// DetachProcessInstance removes the link created by AttachProcessInstance
func (s *Store) DetachProcessInstance(ctx context.Context, tx repository.Tx, className, id, processID string) error {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeHasProcessInstance)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if e.ToID == processID {
			if err := tx.DeleteEdge(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
