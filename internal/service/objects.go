package service

import (
	"context"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// ObjectSpec describes an object to create
type ObjectSpec struct {
	ClassName   string            `json:"class_name"`
	ParentClass string            `json:"parent_class,omitempty"`
	ParentID    string            `json:"parent_id,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	TemplateID  string            `json:"template_id,omitempty"`
	Special     bool              `json:"special,omitempty"`
}

// BulkSpec describes a batch of sibling objects named from a pattern
type BulkSpec struct {
	ClassName   string `json:"class_name"`
	ParentClass string `json:"parent_class,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	NamePattern string `json:"name_pattern"`
	TemplateID  string `json:"template_id,omitempty"`
	Special     bool   `json:"special,omitempty"`
}

// RelationshipSpec describes a special relationship between two objects
type RelationshipSpec struct {
	AClass     string         `json:"a_class,omitempty"`
	AID        string         `json:"a_id"`
	BClass     string         `json:"b_class,omitempty"`
	BID        string         `json:"b_id"`
	Name       string         `json:"name"`
	Unique     bool           `json:"unique,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// ============================================================================
// Creation and Updates
// ============================================================================

// CreateObject creates one object and returns its id
func (s *Inventory) CreateObject(ctx context.Context, spec ObjectSpec) (string, error) {
	return updateValue(ctx, s, "create object", func(tx repository.Tx) (string, error) {
		create := s.objects.Create
		if spec.Special {
			create = s.objects.CreateSpecial
		}
		id, err := create(ctx, tx, spec.ClassName, spec.ParentClass, spec.ParentID, spec.Attributes, spec.TemplateID)
		if err == nil {
			s.publish(tx, EventObjectCreated, map[string]string{"class": spec.ClassName, "id": id})
		}
		return id, err
	})
}

// CreateObjects creates one object per name the pattern expands to. Either
// every object is created or none is.
func (s *Inventory) CreateObjects(ctx context.Context, spec BulkSpec) ([]string, error) {
	return updateValue(ctx, s, "create objects", func(tx repository.Tx) ([]string, error) {
		create := s.objects.CreateBulk
		if spec.Special {
			create = s.objects.CreateBulkSpecial
		}
		ids, err := create(ctx, tx, spec.ClassName, spec.ParentClass, spec.ParentID, spec.NamePattern, spec.TemplateID)
		if err == nil {
			s.publish(tx, EventObjectCreated, map[string]any{"class": spec.ClassName, "ids": ids})
		}
		return ids, err
	})
}

// Object returns an object with its attribute values
func (s *Inventory) Object(ctx context.Context, className, id string) (*domain.BusinessObject, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (*domain.BusinessObject, error) {
		return s.objects.Get(ctx, tx, className, id)
	})
}

// ObjectLight returns the summary view of an object
func (s *Inventory) ObjectLight(ctx context.Context, className, id string) (domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (domain.BusinessObjectLight, error) {
		return s.objects.GetLight(ctx, tx, className, id)
	})
}

// UpdateObject changes attribute values of an object
func (s *Inventory) UpdateObject(ctx context.Context, className, id string, attrs map[string]string) (*domain.ChangeDescriptor, error) {
	return updateValue(ctx, s, "update object", func(tx repository.Tx) (*domain.ChangeDescriptor, error) {
		changes, err := s.objects.Update(ctx, tx, className, id, attrs)
		if err == nil && !changes.Empty() {
			s.publish(tx, EventObjectUpdated, map[string]any{"class": className, "id": id, "changes": changes})
		}
		return changes, err
	})
}

// ObjectsOfClass lists instances of a class and its subclasses
func (s *Inventory) ObjectsOfClass(ctx context.Context, className string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.ObjectsOfClass(ctx, tx, className, page)
	})
}

// ============================================================================
// Navigation
// ============================================================================

// Parent returns the direct parent of an object
func (s *Inventory) Parent(ctx context.Context, className, id string) (domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (domain.BusinessObjectLight, error) {
		return s.objects.Parent(ctx, tx, className, id)
	})
}

// Parents returns the containment chain up to the dummy root
func (s *Inventory) Parents(ctx context.Context, className, id string) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.Parents(ctx, tx, className, id)
	})
}

// Children lists the direct children of an object, restricted to
// childClass and its subclasses when childClass is set
func (s *Inventory) Children(ctx context.Context, className, id, childClass string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		if childClass != "" {
			return s.objects.ChildrenOfClass(ctx, tx, className, id, childClass, page)
		}
		return s.objects.Children(ctx, tx, className, id, page)
	})
}

// SpecialChildren lists the special children of an object
func (s *Inventory) SpecialChildren(ctx context.Context, className, id string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.SpecialChildren(ctx, tx, className, id, page)
	})
}

// SpecialParents lists the special parents of an object
func (s *Inventory) SpecialParents(ctx context.Context, className, id string) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.SpecialParents(ctx, tx, className, id)
	})
}

// Siblings lists the other children of an object's parent
func (s *Inventory) Siblings(ctx context.Context, className, id string, page domain.Page) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.Siblings(ctx, tx, className, id, page)
	})
}

// ============================================================================
// Move, Copy and Delete
// ============================================================================

// MoveObjects places objects under a new parent
func (s *Inventory) MoveObjects(ctx context.Context, targetClass, targetID string, objs domain.ObjectsByClass, special bool) error {
	return s.update(ctx, "move objects", func(tx repository.Tx) error {
		move := s.objects.Move
		if special {
			move = s.objects.MoveSpecial
		}
		if err := move(ctx, tx, targetClass, targetID, objs); err != nil {
			return err
		}
		s.publish(tx, EventObjectsMoved, map[string]any{"target": targetID, "objects": objs})
		return nil
	})
}

// CopyObjects copies objects under a target and returns the new ids
func (s *Inventory) CopyObjects(ctx context.Context, targetClass, targetID string, objs domain.ObjectsByClass, recursive, special bool) ([]string, error) {
	return updateValue(ctx, s, "copy objects", func(tx repository.Tx) ([]string, error) {
		cp := s.objects.Copy
		if special {
			cp = s.objects.CopySpecial
		}
		ids, err := cp(ctx, tx, targetClass, targetID, objs, recursive)
		if err == nil {
			s.publish(tx, EventObjectsCopied, map[string]any{"target": targetID, "ids": ids})
		}
		return ids, err
	})
}

// DeleteObjects deletes objects with their subtrees. Without release,
// objects still referenced by relationships are protected.
func (s *Inventory) DeleteObjects(ctx context.Context, objs domain.ObjectsByClass, release bool) error {
	return s.update(ctx, "delete objects", func(tx repository.Tx) error {
		if err := s.objects.DeleteObjects(ctx, tx, objs, release); err != nil {
			return err
		}
		s.publish(tx, EventObjectsDeleted, objs)
		return nil
	})
}

// CanDeleteObject reports whether an object could be deleted without
// release
func (s *Inventory) CanDeleteObject(ctx context.Context, className, id string) (bool, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (bool, error) {
		return s.objects.CanDelete(ctx, tx, className, id)
	})
}

// ============================================================================
// Special Relationships
// ============================================================================

// CreateSpecialRelationship links two objects and returns the edge id
func (s *Inventory) CreateSpecialRelationship(ctx context.Context, spec RelationshipSpec) (string, error) {
	return updateValue(ctx, s, "create special relationship", func(tx repository.Tx) (string, error) {
		id, err := s.objects.CreateSpecialRelationship(ctx, tx, spec.AClass, spec.AID, spec.BClass, spec.BID, spec.Name, spec.Unique, spec.Properties)
		if err == nil {
			s.publish(tx, EventRelationshipCreated, map[string]string{"name": spec.Name, "a": spec.AID, "b": spec.BID})
		}
		return id, err
	})
}

// ReleaseSpecialRelationship removes the named relationships between an
// object and otherID, or all of them when otherID is the dummy root id
func (s *Inventory) ReleaseSpecialRelationship(ctx context.Context, className, id, otherID, name string) error {
	return s.update(ctx, "release special relationship", func(tx repository.Tx) error {
		if err := s.objects.ReleaseSpecialRelationship(ctx, tx, className, id, otherID, name); err != nil {
			return err
		}
		s.publish(tx, EventRelationshipReleased, map[string]string{"name": name, "a": id, "b": otherID})
		return nil
	})
}

// SpecialAttribute lists the objects related to an object through name
func (s *Inventory) SpecialAttribute(ctx context.Context, className, id, name string) ([]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.BusinessObjectLight, error) {
		return s.objects.SpecialAttribute(ctx, tx, className, id, name)
	})
}

// SpecialRelationships lists every special relationship of an object
func (s *Inventory) SpecialRelationships(ctx context.Context, className, id string) ([]domain.SpecialRelationship, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([]domain.SpecialRelationship, error) {
		return s.objects.SpecialRelationships(ctx, tx, className, id)
	})
}

// HasSpecialRelationship reports whether an object holds at least one
// relationship called name
func (s *Inventory) HasSpecialRelationship(ctx context.Context, className, id, name string) (bool, error) {
	return viewValue(ctx, s, func(tx repository.Tx) (bool, error) {
		return s.objects.HasSpecialRelationship(ctx, tx, className, id, name)
	})
}

// FindRoutes lists the paths between two objects over relationships
// called name, shortest first
func (s *Inventory) FindRoutes(ctx context.Context, aClass, aID, bClass, bID, name string) ([][]domain.BusinessObjectLight, error) {
	return viewValue(ctx, s, func(tx repository.Tx) ([][]domain.BusinessObjectLight, error) {
		return s.objects.FindRoutes(ctx, tx, aClass, aID, bClass, bID, name)
	})
}

// AttachProcessInstance links an object to a running process
func (s *Inventory) AttachProcessInstance(ctx context.Context, className, id, processID string) error {
	return s.update(ctx, "attach process instance", func(tx repository.Tx) error {
		return s.objects.AttachProcessInstance(ctx, tx, className, id, processID)
	})
}

// DetachProcessInstance removes a process link
func (s *Inventory) DetachProcessInstance(ctx context.Context, className, id, processID string) error {
	return s.update(ctx, "detach process instance", func(tx repository.Tx) error {
		return s.objects.DetachProcessInstance(ctx, tx, className, id, processID)
	})
}
