package metadata

import (
	"context"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Instances returns the nodes instantiating className or any of its
// subclasses. With templates set, template elements are returned as well.
func Instances(ctx context.Context, tx repository.Tx, cache *Cache, className string, templates bool) ([]domain.Node, error) {
	classes, err := cache.SubClasses(ctx, tx, className, SubClassOptions{
		IncludeAbstract: true,
		IncludeSelf:     true,
		Recursive:       true,
	})
	if err != nil {
		return nil, err
	}

	types := []domain.EdgeType{domain.EdgeInstanceOf}
	if templates {
		types = append(types, domain.EdgeInstanceOfSpecial)
	}

	var nodes []domain.Node
	for _, class := range classes {
		edges, err := tx.Edges(ctx, class.ID, repository.Incoming, types...)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			node, err := tx.GetNode(ctx, e.FromID)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, *node)
			}
		}
	}
	return nodes, nil
}

// HasValue reports whether an instance holds a value for attr. List-type
// values are RELATED_TO edges named after the attribute.
func HasValue(ctx context.Context, tx repository.Tx, node *domain.Node, attr *domain.AttributeDefinition) (bool, error) {
	if attr.Type.IsPrimitive() {
		v, ok := node.GetProperty(attr.Name)
		return ok && !domain.IsEmptyValue(v), nil
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeRelatedTo)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.Name() == attr.Name {
			return true, nil
		}
	}
	return false, nil
}

func hasDirectInstances(ctx context.Context, tx repository.Tx, classID string) (bool, error) {
	edges, err := tx.Edges(ctx, classID, repository.Incoming, domain.EdgeInstanceOf)
	if err != nil {
		return false, err
	}
	return len(edges) > 0, nil
}
