package objects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// CreateTemplate creates an empty template for className
func (s *Store) CreateTemplate(ctx context.Context, tx repository.Tx, className, name string) (string, error) {
	def, err := s.cache.Class(ctx, tx, className)
	if err != nil {
		return "", err
	}
	if def.Abstract {
		return "", domain.InvalidArgumentf("class %s is abstract and cannot have templates", className).WithClass(className)
	}

	node := domain.NewNode("", domain.LabelTemplate)
	node.SetProperty(domain.PropName, name)
	node.SetProperty(domain.PropCreationDate, nowMillis())
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create template %s: %w", name, err)
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, def.ID, domain.EdgeInstanceOfSpecial)); err != nil {
		return "", err
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(def.ID, node.ID, domain.EdgeHasTemplate)); err != nil {
		return "", err
	}

	s.logger.Debug("template created", zap.String("class", className), zap.String("template", node.ID))
	return node.ID, nil
}

// Templates lists the templates of a class
func (s *Store) Templates(ctx context.Context, tx repository.Tx, className string) ([]domain.Template, error) {
	def, err := s.cache.Class(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, def.ID, repository.Outgoing, domain.EdgeHasTemplate)
	if err != nil {
		return nil, err
	}
	templates := make([]domain.Template, 0, len(edges))
	for _, e := range edges {
		node, err := tx.GetNode(ctx, e.ToID)
		if err != nil {
			return nil, err
		}
		if node != nil {
			templates = append(templates, domain.Template{ID: node.ID, ClassName: def.Name, Name: node.Name()})
		}
	}
	return templates, nil
}

// template resolves a template root
func (s *Store) template(ctx context.Context, tx repository.Tx, id string) (*domain.Template, error) {
	node, def, err := s.templateNode(ctx, tx, "", id)
	if err != nil {
		return nil, err
	}
	if !node.HasLabel(domain.LabelTemplate) {
		return nil, domain.InvalidArgumentf("%s is a template element, not a template", id).WithID(id)
	}
	return &domain.Template{ID: node.ID, ClassName: def.Name, Name: node.Name()}, nil
}

// templateNode resolves a template or template element, optionally
// checking its class
func (s *Store) templateNode(ctx context.Context, tx repository.Tx, className, id string) (*domain.Node, *domain.ClassDefinition, error) {
	node, err := tx.GetNode(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if node == nil || !(node.HasLabel(domain.LabelTemplate) || node.HasLabel(domain.LabelTemplateElement)) {
		return nil, nil, domain.NotFoundf("template element %s could not be found", id).WithClass(className).WithID(id)
	}
	def, err := s.classOf(ctx, tx, node)
	if err != nil {
		return nil, nil, err
	}
	if className != "" {
		ok, err := s.cache.IsSubclassOf(ctx, tx, className, def.Name)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, domain.NotFoundf("template element %s is not a %s", id, className).WithClass(className).WithID(id)
		}
	}
	return node, def, nil
}

// CreateTemplateElement adds an element of className under a template or
// template element, following the containment rules
func (s *Store) CreateTemplateElement(ctx context.Context, tx repository.Tx, className, parentClass, parentID, name string) (string, error) {
	return s.createTemplateElement(ctx, tx, className, parentClass, parentID, name, false)
}

// CreateTemplateSpecialElement is CreateTemplateElement with special
// containment
func (s *Store) CreateTemplateSpecialElement(ctx context.Context, tx repository.Tx, className, parentClass, parentID, name string) (string, error) {
	return s.createTemplateElement(ctx, tx, className, parentClass, parentID, name, true)
}

func (s *Store) createTemplateElement(ctx context.Context, tx repository.Tx, className, parentClass, parentID, name string, special bool) (string, error) {
	def, err := s.instantiable(ctx, tx, className)
	if err != nil {
		return "", err
	}
	parent, parentDef, err := s.templateNode(ctx, tx, parentClass, parentID)
	if err != nil {
		return "", err
	}
	if err := s.checkPlacement(ctx, tx, parentDef.Name, def.Name, special); err != nil {
		return "", err
	}

	node := domain.NewNode("", domain.LabelTemplateElement)
	node.SetProperty(domain.PropName, name)
	node.SetProperty(domain.PropCreationDate, nowMillis())
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create template element %s: %w", name, err)
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, def.ID, domain.EdgeInstanceOfSpecial)); err != nil {
		return "", err
	}
	edgeType := domain.EdgeChildOf
	if special {
		edgeType = domain.EdgeChildOfSpecial
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, parent.ID, edgeType)); err != nil {
		return "", err
	}
	return node.ID, nil
}

// UpdateTemplateElement sets attribute values on a template or template
// element. Mandatory and unique constraints apply when the template is
// used, not here.
func (s *Store) UpdateTemplateElement(ctx context.Context, tx repository.Tx, className, id string, attrs map[string]string) error {
	node, def, err := s.templateNode(ctx, tx, className, id)
	if err != nil {
		return err
	}
	lists, err := s.loadLists(ctx, tx, node.ID)
	if err != nil {
		return err
	}
	return s.applyAttributes(ctx, tx, def, &draft{node: node, lists: lists}, attrs, modeTemplate)
}

// DeleteTemplateElement deletes a template or template element with
// everything below it
func (s *Store) DeleteTemplateElement(ctx context.Context, tx repository.Tx, className, id string) error {
	node, _, err := s.templateNode(ctx, tx, className, id)
	if err != nil {
		return err
	}
	nodes, err := s.collectTree(ctx, tx, node.ID)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := tx.DeleteNode(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// RelateTemplateElements links two elements of the same template with a
// special relationship that clones of the template reproduce
func (s *Store) RelateTemplateElements(ctx context.Context, tx repository.Tx, aID, bID, name string) error {
	if err := domain.ValidateRelationshipName(name); err != nil {
		return err
	}
	if aID == bID {
		return domain.InvalidArgumentf("a template element cannot be related to itself").WithID(aID)
	}
	a, _, err := s.templateNode(ctx, tx, "", aID)
	if err != nil {
		return err
	}
	b, _, err := s.templateNode(ctx, tx, "", bID)
	if err != nil {
		return err
	}
	return s.relate(ctx, tx, a.ID, b.ID, name, nil)
}

// TemplateElement returns a template element with its attribute values
func (s *Store) TemplateElement(ctx context.Context, tx repository.Tx, className, id string) (*domain.BusinessObject, error) {
	node, def, err := s.templateNode(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	return s.toObject(ctx, tx, node, def)
}

// TemplateElementChildren lists the elements directly below a template or
// template element
func (s *Store) TemplateElementChildren(ctx context.Context, tx repository.Tx, className, id string) ([]domain.BusinessObjectLight, error) {
	node, _, err := s.templateNode(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Incoming, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.FromID)
	}
	children, err := s.lights(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	sortLights(children)
	return children, nil
}
