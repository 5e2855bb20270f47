package service

import (
	"context"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// PoolSpec describes a pool to create. An empty ParentID makes a root
// pool.
type PoolSpec struct {
	ParentID    string `json:"parent_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ClassName   string `json:"class_name"`
	Type        int    `json:"type,omitempty"`
}

// TemplateElementSpec describes an element to add under a template or
// another element
type TemplateElementSpec struct {
	ClassName   string `json:"class_name"`
	ParentClass string `json:"parent_class"`
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	Special     bool   `json:"special,omitempty"`
}

// ============================================================================
// List Types
// ============================================================================

// CreateListTypeItem creates an item of a list type
func (s *Inventory) CreateListTypeItem(ctx context.Context, className, name, displayName string) (string, error) {
	return updateValue(ctx, s, "create list type item", func(tx repository.Tx) (string, error) {
		id, err := s.objects.CreateListTypeItem(ctx, tx, className, name, displayName)
		if err == nil {
			s.publish(tx, EventListTypeItemsUpdated, map[string]string{"class": className, "id": id})
		}
		return id, err
	})
}

// ListTypeItems lists the items of a list type
func (s *Inventory) ListTypeItems(ctx context.Context, className string) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.ListTypeItems(ctx, tx, className)
	})
}

// DeleteListTypeItem deletes an item. Referenced items need release.
func (s *Inventory) DeleteListTypeItem(ctx context.Context, className, id string, release bool) error {
	return s.update(ctx, "delete list type item", func(tx repository.Tx) error {
		if err := s.objects.DeleteListTypeItem(ctx, tx, className, id, release); err != nil {
			return err
		}
		s.publish(tx, EventListTypeItemsUpdated, map[string]string{"class": className, "id": id})
		return nil
	})
}

// ============================================================================
// Pools
// ============================================================================

// CreatePool creates a pool and returns its id
func (s *Inventory) CreatePool(ctx context.Context, spec PoolSpec) (string, error) {
	return updateValue(ctx, s, "create pool", func(tx repository.Tx) (string, error) {
		id, err := s.objects.CreatePool(ctx, tx, spec.ParentID, spec.Name, spec.Description, spec.ClassName, spec.Type)
		if err == nil {
			s.publish(tx, EventPoolsUpdated, map[string]string{"created": id})
		}
		return id, err
	})
}

// Pool returns a pool by id
func (s *Inventory) Pool(ctx context.Context, id string) (*domain.Pool, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (*domain.Pool, error) {
		return s.objects.Pool(ctx, tx, id)
	})
}

// RootPools lists root pools, restricted to className when set
func (s *Inventory) RootPools(ctx context.Context, className string) ([]domain.Pool, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.Pool, error) {
		return s.objects.RootPools(ctx, tx, className)
	})
}

// CreatePoolItem creates an object inside a pool
func (s *Inventory) CreatePoolItem(ctx context.Context, poolID, className string, attrs map[string]string, templateID string) (string, error) {
	return updateValue(ctx, s, "create pool item", func(tx repository.Tx) (string, error) {
		id, err := s.objects.CreatePoolItem(ctx, tx, poolID, className, attrs, templateID)
		if err == nil {
			s.publish(tx, EventObjectCreated, map[string]string{"class": className, "id": id, "pool": poolID})
		}
		return id, err
	})
}

// PoolItems lists the objects of a pool
func (s *Inventory) PoolItems(ctx context.Context, poolID string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.PoolItems(ctx, tx, poolID, page)
	})
}

// DeletePools deletes pools with their nested pools and items
func (s *Inventory) DeletePools(ctx context.Context, ids []string, release bool) error {
	return s.update(ctx, "delete pools", func(tx repository.Tx) error {
		if err := s.objects.DeletePools(ctx, tx, ids, release); err != nil {
			return err
		}
		s.publish(tx, EventPoolsUpdated, map[string][]string{"deleted": ids})
		return nil
	})
}

// MovePoolItem moves an object into another pool
func (s *Inventory) MovePoolItem(ctx context.Context, poolID, className, id string) error {
	return s.update(ctx, "move pool item", func(tx repository.Tx) error {
		if err := s.objects.MovePoolItem(ctx, tx, poolID, className, id); err != nil {
			return err
		}
		s.publish(tx, EventObjectsMoved, map[string]any{"target": poolID, "objects": domain.ObjectsByClass{className: {id}}})
		return nil
	})
}

// CopyPoolItem copies an object into a pool
func (s *Inventory) CopyPoolItem(ctx context.Context, poolID, className, id string, recursive bool) (string, error) {
	return updateValue(ctx, s, "copy pool item", func(tx repository.Tx) (string, error) {
		copied, err := s.objects.CopyPoolItem(ctx, tx, poolID, className, id, recursive)
		if err == nil {
			s.publish(tx, EventObjectsCopied, map[string]any{"target": poolID, "ids": []string{copied}})
		}
		return copied, err
	})
}

// ============================================================================
// Templates
// ============================================================================

// CreateTemplate creates an empty template for a class
func (s *Inventory) CreateTemplate(ctx context.Context, className, name string) (string, error) {
	return updateValue(ctx, s, "create template", func(tx repository.Tx) (string, error) {
		id, err := s.objects.CreateTemplate(ctx, tx, className, name)
		if err == nil {
			s.publish(tx, EventTemplatesUpdated, map[string]string{"class": className, "id": id})
		}
		return id, err
	})
}

// Templates lists the templates of a class
func (s *Inventory) Templates(ctx context.Context, className string) ([]domain.Template, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.Template, error) {
		return s.objects.Templates(ctx, tx, className)
	})
}

// CreateTemplateElement adds an element to a template
func (s *Inventory) CreateTemplateElement(ctx context.Context, spec TemplateElementSpec) (string, error) {
	return updateValue(ctx, s, "create template element", func(tx repository.Tx) (string, error) {
		create := s.objects.CreateTemplateElement
		if spec.Special {
			create = s.objects.CreateTemplateSpecialElement
		}
		id, err := create(ctx, tx, spec.ClassName, spec.ParentClass, spec.ParentID, spec.Name)
		if err == nil {
			s.publish(tx, EventTemplatesUpdated, map[string]string{"class": spec.ClassName, "id": id})
		}
		return id, err
	})
}

// UpdateTemplateElement changes attribute values of a template element
func (s *Inventory) UpdateTemplateElement(ctx context.Context, className, id string, attrs map[string]string) error {
	return s.update(ctx, "update template element", func(tx repository.Tx) error {
		if err := s.objects.UpdateTemplateElement(ctx, tx, className, id, attrs); err != nil {
			return err
		}
		s.publish(tx, EventTemplatesUpdated, map[string]string{"class": className, "id": id})
		return nil
	})
}

// DeleteTemplateElement deletes an element with everything below it
func (s *Inventory) DeleteTemplateElement(ctx context.Context, className, id string) error {
	return s.update(ctx, "delete template element", func(tx repository.Tx) error {
		if err := s.objects.DeleteTemplateElement(ctx, tx, className, id); err != nil {
			return err
		}
		s.publish(tx, EventTemplatesUpdated, map[string]string{"class": className, "id": id})
		return nil
	})
}

// RelateTemplateElements links two elements so clones are linked too
func (s *Inventory) RelateTemplateElements(ctx context.Context, aID, bID, name string) error {
	return s.update(ctx, "relate template elements", func(tx repository.Tx) error {
		return s.objects.RelateTemplateElements(ctx, tx, aID, bID, name)
	})
}

// TemplateElement returns a template element with its attribute values
func (s *Inventory) TemplateElement(ctx context.Context, className, id string) (*domain.BusinessObject, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (*domain.BusinessObject, error) {
		return s.objects.TemplateElement(ctx, tx, className, id)
	})
}

// TemplateElementChildren lists the elements directly below a template or
// element
func (s *Inventory) TemplateElementChildren(ctx context.Context, className, id string) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.TemplateElementChildren(ctx, tx, className, id)
	})
}

// CloneTemplate materializes a template as a detached object tree and
// returns the root id with the element to object mapping
func (s *Inventory) CloneTemplate(ctx context.Context, templateID string, recursive bool) (string, map[string]string, error) {
	var root string
	var mapping map[string]string
	err := s.update(ctx, "clone template", func(tx repository.Tx) error {
		var err error
		root, mapping, err = s.objects.CloneTemplate(ctx, tx, templateID, recursive)
		return err
	})
	return root, mapping, err
}
