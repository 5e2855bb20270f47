package objects

import (
	"context"
	"fmt"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// CreateListTypeItem creates an item of a list type class
func (s *Store) CreateListTypeItem(ctx context.Context, tx repository.Tx, className, name, displayName string) (string, error) {
	def, err := s.cache.Class(ctx, tx, className)
	if err != nil {
		return "", err
	}
	isList, err := s.cache.IsSubclassOf(ctx, tx, s.core.ListType, def.Name)
	if err != nil {
		return "", err
	}
	if !isList || def.Abstract {
		return "", domain.InvalidArgumentf("class %s is not a concrete list type", className).WithClass(className)
	}

	node := domain.NewNode("", domain.LabelListTypeItem)
	node.SetProperty(domain.PropName, name)
	node.SetProperty("displayName", displayName)
	node.SetProperty(domain.PropCreationDate, nowMillis())
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create list type item %s: %w", name, err)
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, def.ID, domain.EdgeInstanceOf)); err != nil {
		return "", fmt.Errorf("failed to link list type item %s: %w", name, err)
	}
	return node.ID, nil
}

// ListTypeItems lists the items of a list type, subclasses included
func (s *Store) ListTypeItems(ctx context.Context, tx repository.Tx, className string) ([]domain.BusinessObjectLight, error) {
	isList, err := s.cache.IsSubclassOf(ctx, tx, s.core.ListType, className)
	if err != nil {
		return nil, err
	}
	if !isList {
		if _, err := s.cache.Class(ctx, tx, className); err != nil {
			return nil, err
		}
		return nil, domain.InvalidArgumentf("class %s is not a list type", className).WithClass(className)
	}
	return s.ObjectsOfClass(ctx, tx, className, domain.Page{})
}

// DeleteListTypeItem deletes a list type item. Items still referenced by
// an attribute are protected unless release is set.
func (s *Store) DeleteListTypeItem(ctx context.Context, tx repository.Tx, className, id string, release bool) error {
	node, _, err := s.lookup(ctx, tx, className, id)
	if err != nil {
		return err
	}
	if !node.HasLabel(domain.LabelListTypeItem) {
		return domain.InvalidArgumentf("%s is not a list type item", id).WithClass(className).WithID(id)
	}
	if !release {
		refs, err := tx.Edges(ctx, node.ID, repository.Incoming, domain.EdgeRelatedTo)
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return domain.NotPermittedf("list type item %s is used by %d objects", node.Name(), len(refs)).
				WithClass(className).WithID(id)
		}
	}
	return tx.DeleteNode(ctx, node.ID)
}
