package objects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// Relationship names linking objects created from mirrored name patterns
const (
	RelationshipMirror         = "mirror"
	RelationshipMirrorMultiple = "mirrorMultiple"
)

// Create makes an instance of className under the parent (parentClass,
// parentID) and returns its id. "-1" places the object under the dummy
// root. With a template, the template tree is cloned and attrs override the
// values of the cloned root.
func (s *Store) Create(ctx context.Context, tx repository.Tx, className, parentClass, parentID string, attrs map[string]string, templateID string) (string, error) {
	return s.create(ctx, tx, className, parentClass, parentID, attrs, templateID, false)
}

// CreateSpecial is Create with special containment. An empty parent id
// creates an object with no parent at all.
func (s *Store) CreateSpecial(ctx context.Context, tx repository.Tx, className, parentClass, parentID string, attrs map[string]string, templateID string) (string, error) {
	return s.create(ctx, tx, className, parentClass, parentID, attrs, templateID, true)
}

func (s *Store) create(ctx context.Context, tx repository.Tx, className, parentClass, parentID string, attrs map[string]string, templateID string, special bool) (string, error) {
	def, err := s.instantiable(ctx, tx, className)
	if err != nil {
		return "", err
	}

	var parent *domain.Node
	if !special || parentID != "" {
		if parent, err = s.placeable(ctx, tx, parentClass, parentID, def.Name, special); err != nil {
			return "", err
		}
	}

	id, err := s.build(ctx, tx, def, attrs, templateID)
	if err != nil {
		return "", err
	}

	if parent != nil {
		edgeType := domain.EdgeChildOf
		if special {
			edgeType = domain.EdgeChildOfSpecial
		}
		if err := tx.CreateEdge(ctx, domain.NewEdge(id, parent.ID, edgeType)); err != nil {
			return "", fmt.Errorf("failed to attach object %s to %s: %w", id, parent.ID, err)
		}
	}

	s.logger.Debug("object created",
		zap.String("class", def.Name),
		zap.String("id", id),
		zap.Bool("special", special),
		zap.String("template", templateID))
	return id, nil
}

// instantiable resolves a class that may have instances
func (s *Store) instantiable(ctx context.Context, tx repository.Tx, className string) (*domain.ClassDefinition, error) {
	def, err := s.cache.Class(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	if def.Abstract {
		return nil, domain.NotPermittedf("class %s is abstract and cannot be instantiated", className).WithClass(className)
	}
	if def.InDesign {
		return nil, domain.NotPermittedf("class %s is in design and cannot be instantiated", className).WithClass(className)
	}
	return def, nil
}

// placeable checks that an instance of childClass may go under the parent
// and resolves the parent node
func (s *Store) placeable(ctx context.Context, tx repository.Tx, parentClass, parentID, childClass string, special bool) (*domain.Node, error) {
	ruleClass := parentClass
	if parentClass == "" && !domain.IsDummyRoot(parentClass, parentID) {
		// Only the id was given; the rule is checked on the actual class
		_, def, err := s.lookup(ctx, tx, "", parentID)
		if err != nil {
			return nil, err
		}
		ruleClass = def.Name
	}
	if ruleClass == "" {
		ruleClass = domain.DummyRootClass
	}

	var ok bool
	var err error
	if special {
		ok, err = s.rules.CanBeSpecialChild(ctx, tx, ruleClass, childClass)
	} else {
		ok, err = s.rules.CanBeChild(ctx, tx, ruleClass, childClass)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NotPermittedf("an instance of %s cannot be a child of an instance of %s", childClass, ruleClass).
			WithClass(childClass)
	}

	parent, _, err := s.lookup(ctx, tx, parentClass, parentID)
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// build writes a new unattached instance of def, from scratch or from a
// template
func (s *Store) build(ctx context.Context, tx repository.Tx, def *domain.ClassDefinition, attrs map[string]string, templateID string) (string, error) {
	if templateID != "" {
		tmpl, err := s.template(ctx, tx, templateID)
		if err != nil {
			return "", err
		}
		if tmpl.ClassName != def.Name {
			return "", domain.InvalidArgumentf("template %s belongs to class %s, not %s", templateID, tmpl.ClassName, def.Name).
				WithClass(def.Name).WithID(templateID)
		}
		root, _, err := s.cloneTemplate(ctx, tx, templateID, attrs, true)
		return root, err
	}

	d := newDraft(domain.LabelInventoryObject)
	if err := s.applyAttributes(ctx, tx, def, d, attrs, modeCreate); err != nil {
		return "", err
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(d.node.ID, def.ID, domain.EdgeInstanceOf)); err != nil {
		return "", fmt.Errorf("failed to link object to class %s: %w", def.Name, err)
	}
	return d.node.ID, nil
}

// CreateBulk creates one instance of className per name generated from
// namePattern. Mirrored patterns also relate the new siblings to each
// other.
func (s *Store) CreateBulk(ctx context.Context, tx repository.Tx, className, parentClass, parentID, namePattern, templateID string) ([]string, error) {
	return s.createBulk(ctx, tx, className, parentClass, parentID, namePattern, templateID, false)
}

// CreateBulkSpecial is CreateBulk with special containment
func (s *Store) CreateBulkSpecial(ctx context.Context, tx repository.Tx, className, parentClass, parentID, namePattern, templateID string) ([]string, error) {
	return s.createBulk(ctx, tx, className, parentClass, parentID, namePattern, templateID, true)
}

func (s *Store) createBulk(ctx context.Context, tx repository.Tx, className, parentClass, parentID, namePattern, templateID string, special bool) ([]string, error) {
	names, mirror, err := s.names.Generate(namePattern)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := s.create(ctx, tx, className, parentClass, parentID, map[string]string{domain.PropName: name}, templateID, special)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	switch mirror {
	case MirrorPairs:
		for i := 0; i+1 < len(ids); i += 2 {
			if err := s.relate(ctx, tx, ids[i], ids[i+1], RelationshipMirror, nil); err != nil {
				return nil, err
			}
		}
	case MirrorMultiple:
		for i := 1; i < len(ids); i++ {
			if err := s.relate(ctx, tx, ids[0], ids[i], RelationshipMirrorMultiple, nil); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("objects created in bulk",
		zap.String("class", className),
		zap.String("pattern", namePattern),
		zap.Int("count", len(ids)))
	return ids, nil
}
