package objects

import (
	"context"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
)

// Get returns an object with its attribute values
func (s *Store) Get(ctx context.Context, tx repository.Tx, className, id string) (*domain.BusinessObject, error) {
	node, def, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return &domain.BusinessObject{ID: domain.DummyRootID, ClassName: domain.DummyRootClass, Name: domain.DummyRootClass}, nil
	}
	return s.toObject(ctx, tx, node, def)
}

// GetLight returns the summary view of an object
func (s *Store) GetLight(ctx context.Context, tx repository.Tx, className, id string) (domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return domain.BusinessObjectLight{}, err
	}
	return s.light(ctx, tx, node)
}

// Update applies attribute changes to an object. Unique values are
// re-reserved, list-type references relinked, and mandatory attributes
// cannot be emptied.
func (s *Store) Update(ctx context.Context, tx repository.Tx, className, id string, attrs map[string]string) (*domain.ChangeDescriptor, error) {
	node, def, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, domain.NotPermittedf("the dummy root cannot be updated").WithID(id)
	}

	before, err := s.toObject(ctx, tx, node, def)
	if err != nil {
		return nil, err
	}
	lists, err := s.loadLists(ctx, tx, node.ID)
	if err != nil {
		return nil, err
	}
	if err := s.applyAttributes(ctx, tx, def, &draft{node: node, lists: lists}, attrs, modeUpdate); err != nil {
		return nil, err
	}
	after, err := s.toObject(ctx, tx, node, def)
	if err != nil {
		return nil, err
	}

	changes := &domain.ChangeDescriptor{}
	if before.Name != after.Name {
		changes.Record(domain.PropName, before.Name, after.Name)
	}
	for _, a := range def.Attributes {
		if _, touched := attrs[a.Name]; !touched || a.Name == domain.PropName {
			continue
		}
		if before.Attributes[a.Name] != after.Attributes[a.Name] {
			changes.Record(a.Name, before.Attributes[a.Name], after.Attributes[a.Name])
		}
	}
	return changes, nil
}

// ObjectsOfClass lists the instances of className and its subclasses by
// name
func (s *Store) ObjectsOfClass(ctx context.Context, tx repository.Tx, className string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	nodes, err := metadata.Instances(ctx, tx, s.cache, className, false)
	if err != nil {
		return nil, err
	}
	result := make([]domain.BusinessObjectLight, 0, len(nodes))
	for i := range nodes {
		l, err := s.light(ctx, tx, &nodes[i])
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	sortLights(result)
	return paginate(result, page), nil
}

// Parent returns the parent of an object: its CHILD_OF parent, else its
// first special parent
func (s *Store) Parent(ctx context.Context, tx repository.Tx, className, id string) (domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return domain.BusinessObjectLight{}, err
	}
	parentID, err := s.parentID(ctx, tx, node.ID)
	if err != nil {
		return domain.BusinessObjectLight{}, err
	}
	if parentID == "" {
		return domain.BusinessObjectLight{}, domain.NotFoundf("object %s has no parent", id).WithClass(className).WithID(id)
	}
	parent, err := tx.GetNode(ctx, parentID)
	if err != nil {
		return domain.BusinessObjectLight{}, err
	}
	return s.light(ctx, tx, parent)
}

func (s *Store) parentID(ctx context.Context, tx repository.Tx, nodeID string) (string, error) {
	edges, err := tx.Edges(ctx, nodeID, repository.Outgoing, domain.EdgeChildOf)
	if err != nil {
		return "", err
	}
	if len(edges) > 0 {
		return edges[0].ToID, nil
	}
	if edges, err = tx.Edges(ctx, nodeID, repository.Outgoing, domain.EdgeChildOfSpecial); err != nil {
		return "", err
	}
	if len(edges) > 0 {
		return edges[0].ToID, nil
	}
	return "", nil
}

// Parents returns the chain of parents from the direct parent up to the
// dummy root, or up to the first parentless ancestor
func (s *Store) Parents(ctx context.Context, tx repository.Tx, className, id string) ([]domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}

	var chain []string
	seen := map[string]bool{node.ID: true}
	current := node.ID
	for current != domain.DummyRootID {
		next, err := s.parentID(ctx, tx, current)
		if err != nil {
			return nil, err
		}
		if next == "" || seen[next] {
			break
		}
		seen[next] = true
		chain = append(chain, next)
		current = next
	}
	return s.lights(ctx, tx, chain)
}

// Children returns the CHILD_OF children of an object by name
func (s *Store) Children(ctx context.Context, tx repository.Tx, className, id string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return s.childrenOf(ctx, tx, className, id, "", false, page)
}

// ChildrenOfClass returns the children that are instances of childClass or
// of its subclasses
func (s *Store) ChildrenOfClass(ctx context.Context, tx repository.Tx, className, id, childClass string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	if _, err := s.cache.Class(ctx, tx, childClass); err != nil {
		return nil, err
	}
	return s.childrenOf(ctx, tx, className, id, childClass, false, page)
}

// SpecialChildren returns the objects specially contained in an object,
// pool items excluded
func (s *Store) SpecialChildren(ctx context.Context, tx repository.Tx, className, id string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return s.childrenOf(ctx, tx, className, id, "", true, page)
}

func (s *Store) childrenOf(ctx context.Context, tx repository.Tx, className, id, filter string, special bool, page domain.Page) ([]domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	edgeType := domain.EdgeChildOf
	if special {
		edgeType = domain.EdgeChildOfSpecial
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Incoming, edgeType)
	if err != nil {
		return nil, err
	}

	var result []domain.BusinessObjectLight
	for _, e := range edges {
		if e.IsPoolEdge() {
			continue
		}
		child, err := tx.GetNode(ctx, e.FromID)
		if err != nil {
			return nil, err
		}
		if child == nil || !child.HasLabel(domain.LabelInventoryObject) {
			continue
		}
		l, err := s.light(ctx, tx, child)
		if err != nil {
			return nil, err
		}
		if filter != "" {
			ok, err := s.cache.IsSubclassOf(ctx, tx, filter, l.ClassName)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		result = append(result, l)
	}
	sortLights(result)
	return paginate(result, page), nil
}

// SpecialParents returns the objects an object is specially contained in,
// pools excluded
func (s *Store) SpecialParents(ctx context.Context, tx repository.Tx, className, id string) ([]domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeChildOfSpecial)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range edges {
		if !e.IsPoolEdge() {
			ids = append(ids, e.ToID)
		}
	}
	return s.lights(ctx, tx, ids)
}

// Siblings returns the other CHILD_OF children of the object's parent
func (s *Store) Siblings(ctx context.Context, tx repository.Tx, className, id string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeChildOf)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}

	children, err := s.childrenOf(ctx, tx, "", edges[0].ToID, "", false, domain.Page{})
	if err != nil {
		return nil, err
	}
	siblings := children[:0]
	for _, c := range children {
		if c.ID != node.ID {
			siblings = append(siblings, c)
		}
	}
	return paginate(siblings, page), nil
}
