package service

import (
	"context"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
)

// ============================================================================
// Classes
// ============================================================================

// CreateClass stores a new class and returns its id
func (s *Inventory) CreateClass(ctx context.Context, def domain.ClassDefinition) (string, error) {
	return updateValue(ctx, s, "create class", func(tx repository.Tx) (string, error) {
		id, err := s.schema.CreateClass(ctx, tx, def)
		if err == nil {
			s.publish(tx, EventClassCreated, map[string]string{"class": def.Name, "id": id})
		}
		return id, err
	})
}

// Class returns the resolved definition of a class
func (s *Inventory) Class(ctx context.Context, name string) (*domain.ClassDefinition, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (*domain.ClassDefinition, error) {
		return s.schema.Class(ctx, tx, name)
	})
}

// Classes lists every class by name
func (s *Inventory) Classes(ctx context.Context, includeListTypes bool) ([]domain.ClassDefinitionLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.ClassDefinitionLight, error) {
		return s.schema.Classes(ctx, tx, includeListTypes)
	})
}

// SubClasses lists the subclasses of a class
func (s *Inventory) SubClasses(ctx context.Context, className string, opts metadata.SubClassOptions) ([]domain.ClassDefinitionLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.ClassDefinitionLight, error) {
		return s.cache.SubClasses(ctx, tx, className, opts)
	})
}

// UpstreamClassHierarchy lists the ancestors of a class up to the root
func (s *Inventory) UpstreamClassHierarchy(ctx context.Context, className string, includeSelf bool) ([]domain.ClassDefinitionLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.ClassDefinitionLight, error) {
		return s.cache.UpstreamClassHierarchy(ctx, tx, className, includeSelf)
	})
}

// SetClassProperties applies a partial update to a class
func (s *Inventory) SetClassProperties(ctx context.Context, className string, patch domain.ClassPatch) (*domain.ChangeDescriptor, error) {
	return updateValue(ctx, s, "set class properties", func(tx repository.Tx) (*domain.ChangeDescriptor, error) {
		changes, err := s.schema.SetClassProperties(ctx, tx, className, patch)
		if err == nil && !changes.Empty() {
			s.publish(tx, EventClassUpdated, map[string]any{"class": className, "changes": changes})
		}
		return changes, err
	})
}

// DeleteClass removes a class, its subclasses and their instances
func (s *Inventory) DeleteClass(ctx context.Context, className string) error {
	return s.update(ctx, "delete class", func(tx repository.Tx) error {
		if err := s.schema.DeleteClass(ctx, tx, className); err != nil {
			return err
		}
		s.publish(tx, EventClassDeleted, map[string]string{"class": className})
		return nil
	})
}

// ============================================================================
// Attributes
// ============================================================================

// CreateAttribute adds an attribute to a class
func (s *Inventory) CreateAttribute(ctx context.Context, className string, attr domain.AttributeDefinition) (string, error) {
	return updateValue(ctx, s, "create attribute", func(tx repository.Tx) (string, error) {
		id, err := s.schema.CreateAttribute(ctx, tx, className, attr)
		if err == nil {
			s.publish(tx, EventAttributeCreated, map[string]string{"class": className, "attribute": attr.Name})
		}
		return id, err
	})
}

// SetAttributeProperties applies a partial update to an attribute
func (s *Inventory) SetAttributeProperties(ctx context.Context, className, attribute string, patch domain.AttributePatch) (*domain.ChangeDescriptor, error) {
	return updateValue(ctx, s, "set attribute properties", func(tx repository.Tx) (*domain.ChangeDescriptor, error) {
		changes, err := s.schema.SetAttributeProperties(ctx, tx, className, attribute, patch)
		if err == nil && !changes.Empty() {
			s.publish(tx, EventAttributeUpdated, map[string]any{"class": className, "attribute": attribute, "changes": changes})
		}
		return changes, err
	})
}

// DeleteAttribute removes an attribute and every value held for it
func (s *Inventory) DeleteAttribute(ctx context.Context, className, attribute string) error {
	return s.update(ctx, "delete attribute", func(tx repository.Tx) error {
		if err := s.schema.DeleteAttribute(ctx, tx, className, attribute); err != nil {
			return err
		}
		s.publish(tx, EventAttributeDeleted, map[string]string{"class": className, "attribute": attribute})
		return nil
	})
}

// ============================================================================
// Containment Rules
// ============================================================================

// AddPossibleChildren allows children under parentClass. An empty
// parentClass designates the dummy root.
func (s *Inventory) AddPossibleChildren(ctx context.Context, parentClass string, children []string, special bool) error {
	return s.update(ctx, "add possible children", func(tx repository.Tx) error {
		if err := s.rules.AddPossibleChildren(ctx, tx, parentClass, children, special); err != nil {
			return err
		}
		s.publish(tx, EventRulesUpdated, domain.ContainmentRule{Parent: parentClass, Children: children, Special: special})
		return nil
	})
}

// RemovePossibleChildren withdraws rules of parentClass
func (s *Inventory) RemovePossibleChildren(ctx context.Context, parentClass string, children []string, special bool) error {
	return s.update(ctx, "remove possible children", func(tx repository.Tx) error {
		if err := s.rules.RemovePossibleChildren(ctx, tx, parentClass, children, special); err != nil {
			return err
		}
		s.publish(tx, EventRulesUpdated, domain.ContainmentRule{Parent: parentClass, Special: special})
		return nil
	})
}

// PossibleChildren lists the classes allowed under parentClass. Unless
// recursive is false, abstract rules are expanded to their concrete
// subclasses.
func (s *Inventory) PossibleChildren(ctx context.Context, parentClass string, special, recursive bool) ([]domain.ClassDefinitionLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.ClassDefinitionLight, error) {
		if recursive {
			return s.rules.PossibleChildren(ctx, tx, parentClass, special)
		}
		return s.rules.PossibleChildrenNoRecursive(ctx, tx, parentClass, special)
	})
}

// CanBeChild reports whether childClass may be placed under parentClass
func (s *Inventory) CanBeChild(ctx context.Context, parentClass, childClass string, special bool) (bool, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (bool, error) {
		if special {
			return s.rules.CanBeSpecialChild(ctx, tx, parentClass, childClass)
		}
		return s.rules.CanBeChild(ctx, tx, parentClass, childClass)
	})
}

// UpstreamContainmentHierarchy lists the classes that may contain
// className
func (s *Inventory) UpstreamContainmentHierarchy(ctx context.Context, className string, recursive bool) ([]domain.ClassDefinitionLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.ClassDefinitionLight, error) {
		return s.rules.UpstreamContainmentHierarchy(ctx, tx, className, recursive)
	})
}
