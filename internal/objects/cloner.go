package objects

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// cloneFrame is one pending template node of the clone arena
type cloneFrame struct {
	source string
	parent string          // clone id of the parent, empty for the root
	edge   domain.EdgeType // containment edge to recreate
}

// cloneTemplate instantiates the template rooted at templateID. The root
// clone takes overrides on top of the template values; without recursive
// only the root is cloned. Special relationships between two cloned nodes
// are recreated between their clones, those leaving the subtree are
// dropped. It returns the clone root and the template id -> clone id map.
func (s *Store) cloneTemplate(ctx context.Context, tx repository.Tx, templateID string, overrides map[string]string, recursive bool) (string, map[string]string, error) {
	mapping := make(map[string]string)
	var order []string
	stack := []cloneFrame{{source: templateID}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := mapping[f.source]; seen {
			return "", nil, domain.InvalidArgumentf("template %s contains a cycle through %s", templateID, f.source).
				WithID(templateID)
		}

		source, err := tx.GetNode(ctx, f.source)
		if err != nil {
			return "", nil, err
		}
		if source == nil {
			return "", nil, domain.NotFoundf("template element %s could not be found", f.source).WithID(f.source)
		}
		def, err := s.classOf(ctx, tx, source)
		if err != nil {
			return "", nil, err
		}

		var attrs map[string]string
		if f.parent == "" {
			attrs = overrides
		}
		cloneID, err := s.cloneNode(ctx, tx, source, def, attrs)
		if err != nil {
			return "", nil, err
		}
		mapping[f.source] = cloneID
		order = append(order, f.source)

		if f.parent != "" {
			if err := tx.CreateEdge(ctx, domain.NewEdge(cloneID, f.parent, f.edge)); err != nil {
				return "", nil, fmt.Errorf("failed to attach clone of %s: %w", f.source, err)
			}
		}

		if !recursive {
			continue
		}
		children, err := tx.Edges(ctx, f.source, repository.Incoming, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
		if err != nil {
			return "", nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, cloneFrame{source: children[i].FromID, parent: cloneID, edge: children[i].Type})
		}
	}

	// Second pass over the arena: relationships internal to the template
	for _, src := range order {
		edges, err := tx.Edges(ctx, src, repository.Outgoing, domain.EdgeRelatedToSpecial)
		if err != nil {
			return "", nil, err
		}
		for _, e := range edges {
			to, ok := mapping[e.ToID]
			if !ok {
				continue
			}
			if err := s.relate(ctx, tx, mapping[src], to, e.Name(), withoutName(e.Properties)); err != nil {
				return "", nil, err
			}
		}
	}

	s.logger.Debug("template cloned",
		zap.String("template", templateID),
		zap.String("root", mapping[templateID]),
		zap.Int("nodes", len(mapping)))
	return mapping[templateID], mapping, nil
}

// cloneNode writes an unattached instance from one template node
func (s *Store) cloneNode(ctx context.Context, tx repository.Tx, source *domain.Node, def *domain.ClassDefinition, attrs map[string]string) (string, error) {
	if def.Abstract || def.InDesign {
		return "", domain.NotPermittedf("template element %s is a %s, which cannot be instantiated", source.ID, def.Name).
			WithClass(def.Name).WithID(source.ID)
	}

	d := newDraft(domain.LabelInventoryObject)
	for k, v := range source.Properties {
		if k != domain.PropCreationDate {
			d.node.SetProperty(k, v)
		}
	}
	lists, err := s.loadLists(ctx, tx, source.ID)
	if err != nil {
		return "", err
	}
	d.lists = lists

	if err := s.applyAttributes(ctx, tx, def, d, attrs, modeCreate); err != nil {
		return "", err
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(d.node.ID, def.ID, domain.EdgeInstanceOf)); err != nil {
		return "", fmt.Errorf("failed to link clone to class %s: %w", def.Name, err)
	}
	return d.node.ID, nil
}

// CloneTemplate instantiates a template without attaching the clone
// anywhere and returns the clone root with the template id -> clone id map
func (s *Store) CloneTemplate(ctx context.Context, tx repository.Tx, templateID string, recursive bool) (string, map[string]string, error) {
	if _, err := s.template(ctx, tx, templateID); err != nil {
		return "", nil, err
	}
	return s.cloneTemplate(ctx, tx, templateID, nil, recursive)
}

func withoutName(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if k != domain.PropName {
			out[k] = v
		}
	}
	return out
}
