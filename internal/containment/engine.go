// Package containment stores and resolves the rules saying which classes
// may be placed under which, normally or specially.
package containment

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
)

// Engine answers containment questions from POSSIBLE_CHILD and
// POSSIBLE_SPECIAL_CHILD edges between class nodes. Rules anchored at the
// dummy root start at the sentinel node.
type Engine struct {
	cache  *metadata.Cache
	core   domain.CoreClasses
	logger *zap.Logger
}

// New creates a containment engine
func New(cache *metadata.Cache, core domain.CoreClasses, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: cache, core: core, logger: logger.Named("containment")}
}

func ruleType(special bool) domain.EdgeType {
	if special {
		return domain.EdgePossibleSpecialChild
	}
	return domain.EdgePossibleChild
}

// anchor resolves the node holding the rules of parentClass. An empty
// class, "DummyRoot" or "-1" designate the sentinel.
func (e *Engine) anchor(ctx context.Context, tx repository.Tx, parentClass string) (string, *domain.ClassDefinition, error) {
	if parentClass == domain.DummyRootID || domain.IsDummyRoot(parentClass, "") {
		if err := metadata.EnsureDummyRoot(ctx, tx); err != nil {
			return "", nil, err
		}
		return domain.DummyRootID, nil, nil
	}
	def, err := e.cache.Class(ctx, tx, parentClass)
	if err != nil {
		return "", nil, err
	}
	return def.ID, def, nil
}

// rules returns the classes a parent may directly contain, as declared
func (e *Engine) rules(ctx context.Context, tx repository.Tx, anchorID string, special bool) ([]*domain.ClassDefinition, []domain.Edge, error) {
	edges, err := tx.Edges(ctx, anchorID, repository.Outgoing, ruleType(special))
	if err != nil {
		return nil, nil, err
	}
	targets := make([]*domain.ClassDefinition, 0, len(edges))
	for _, edge := range edges {
		name, err := e.cache.ClassNameByID(ctx, tx, edge.ToID)
		if err != nil {
			return nil, nil, err
		}
		def, err := e.cache.Class(ctx, tx, name)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, def)
	}
	return targets, edges, nil
}

// covers reports whether a rule targeting target applies to childClass
func (e *Engine) covers(ctx context.Context, tx repository.Tx, target *domain.ClassDefinition, childClass string) (bool, error) {
	if target.Name == childClass {
		return true, nil
	}
	if !target.Abstract {
		return false, nil
	}
	return e.cache.IsSubclassOf(ctx, tx, target.Name, childClass)
}

// AddPossibleChildren declares that instances of every class in children
// may be placed under instances of parentClass
func (e *Engine) AddPossibleChildren(ctx context.Context, tx repository.Tx, parentClass string, children []string, special bool) error {
	anchorID, parent, err := e.anchor(ctx, tx, parentClass)
	if err != nil {
		return err
	}
	if parent != nil && parent.Abstract {
		return domain.InvalidArgumentf("class %s is abstract and cannot have possible children", parent.Name).
			WithClass(parent.Name)
	}

	for _, childClass := range children {
		child, err := e.cache.Class(ctx, tx, childClass)
		if err != nil {
			return err
		}
		isObject, err := e.cache.IsSubclassOf(ctx, tx, e.core.BusinessObject, child.Name)
		if err != nil {
			return err
		}
		if !isObject {
			return domain.InvalidArgumentf("class %s is not a subclass of %s", child.Name, e.core.BusinessObject).
				WithClass(child.Name)
		}

		existing, _, err := e.rules(ctx, tx, anchorID, special)
		if err != nil {
			return err
		}
		for _, target := range existing {
			dup, err := e.covers(ctx, tx, target, child.Name)
			if err != nil {
				return err
			}
			if !dup && child.Abstract {
				// An abstract rule would swallow a rule on one of its descendants
				if dup, err = e.cache.IsSubclassOf(ctx, tx, child.Name, target.Name); err != nil {
					return err
				}
			}
			if dup {
				return domain.InvalidArgumentf("class %s is already a possible child of %s through %s",
					child.Name, parentName(parent), target.Name).WithClass(child.Name)
			}
		}

		if err := tx.CreateEdge(ctx, domain.NewEdge(anchorID, child.ID, ruleType(special))); err != nil {
			return fmt.Errorf("failed to add possible child %s: %w", child.Name, err)
		}
	}

	e.logger.Info("possible children added",
		zap.String("parent", parentName(parent)),
		zap.Strings("children", children),
		zap.Bool("special", special))
	return nil
}

// RemovePossibleChildren deletes the rules placing children under
// parentClass. Objects already placed are left where they are.
func (e *Engine) RemovePossibleChildren(ctx context.Context, tx repository.Tx, parentClass string, children []string, special bool) error {
	anchorID, parent, err := e.anchor(ctx, tx, parentClass)
	if err != nil {
		return err
	}

	remove := make(map[string]bool, len(children))
	for _, c := range children {
		remove[c] = true
	}

	targets, edges, err := e.rules(ctx, tx, anchorID, special)
	if err != nil {
		return err
	}
	removed := 0
	for i, target := range targets {
		if !remove[target.Name] {
			continue
		}
		if err := tx.DeleteEdge(ctx, edges[i].ID); err != nil {
			return fmt.Errorf("failed to remove possible child %s: %w", target.Name, err)
		}
		removed++
	}

	e.logger.Info("possible children removed",
		zap.String("parent", parentName(parent)),
		zap.Int("rules", removed),
		zap.Bool("special", special))
	return nil
}

// CanBeChild reports whether an instance of childClass may be placed under
// an instance of parentClass
func (e *Engine) CanBeChild(ctx context.Context, tx repository.Tx, parentClass, childClass string) (bool, error) {
	return e.canBe(ctx, tx, parentClass, childClass, false)
}

// CanBeSpecialChild is CanBeChild for special containment
func (e *Engine) CanBeSpecialChild(ctx context.Context, tx repository.Tx, parentClass, childClass string) (bool, error) {
	return e.canBe(ctx, tx, parentClass, childClass, true)
}

func (e *Engine) canBe(ctx context.Context, tx repository.Tx, parentClass, childClass string, special bool) (bool, error) {
	anchorID, _, err := e.anchor(ctx, tx, parentClass)
	if err != nil {
		return false, err
	}
	targets, _, err := e.rules(ctx, tx, anchorID, special)
	if err != nil {
		return false, err
	}
	for _, target := range targets {
		ok, err := e.covers(ctx, tx, target, childClass)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// PossibleChildren lists the concrete classes that may be placed under
// parentClass, expanding abstract rules to their concrete descendants
func (e *Engine) PossibleChildren(ctx context.Context, tx repository.Tx, parentClass string, special bool) ([]domain.ClassDefinitionLight, error) {
	anchorID, _, err := e.anchor(ctx, tx, parentClass)
	if err != nil {
		return nil, err
	}
	targets, _, err := e.rules(ctx, tx, anchorID, special)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var result []domain.ClassDefinitionLight
	for _, target := range targets {
		expanded := []domain.ClassDefinitionLight{target.Light()}
		if target.Abstract {
			if expanded, err = e.cache.SubClasses(ctx, tx, target.Name, metadata.SubClassOptions{Recursive: true}); err != nil {
				return nil, err
			}
		}
		for _, c := range expanded {
			if !seen[c.Name] {
				seen[c.Name] = true
				result = append(result, c)
			}
		}
	}
	sortLights(result)
	return result, nil
}

// PossibleChildrenNoRecursive lists the rules of parentClass as declared
func (e *Engine) PossibleChildrenNoRecursive(ctx context.Context, tx repository.Tx, parentClass string, special bool) ([]domain.ClassDefinitionLight, error) {
	anchorID, _, err := e.anchor(ctx, tx, parentClass)
	if err != nil {
		return nil, err
	}
	targets, _, err := e.rules(ctx, tx, anchorID, special)
	if err != nil {
		return nil, err
	}
	result := make([]domain.ClassDefinitionLight, 0, len(targets))
	for _, t := range targets {
		result = append(result, t.Light())
	}
	sortLights(result)
	return result, nil
}

// UpstreamContainmentHierarchy lists, by name, the classes that may contain
// className directly or, when recursive, through any chain of rules. The
// dummy root is never part of the result.
func (e *Engine) UpstreamContainmentHierarchy(ctx context.Context, tx repository.Tx, className string, recursive bool) ([]domain.ClassDefinitionLight, error) {
	if _, err := e.cache.Class(ctx, tx, className); err != nil {
		return nil, err
	}

	seen := map[string]bool{className: true}
	found := make(map[string]domain.ClassDefinitionLight)
	queue := []string{className}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		parents, err := e.directContainers(ctx, tx, current)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			found[p.Name] = p
			if recursive && !seen[p.Name] {
				seen[p.Name] = true
				queue = append(queue, p.Name)
			}
		}
	}

	result := make([]domain.ClassDefinitionLight, 0, len(found))
	for _, p := range found {
		result = append(result, p)
	}
	sortLights(result)
	return result, nil
}

// directContainers returns the classes holding a rule on className or on
// one of its abstract ancestors
func (e *Engine) directContainers(ctx context.Context, tx repository.Tx, className string) ([]domain.ClassDefinitionLight, error) {
	chain, err := e.cache.UpstreamClassHierarchy(ctx, tx, className, true)
	if err != nil {
		return nil, err
	}

	var parents []domain.ClassDefinitionLight
	for i, c := range chain {
		if i > 0 && !c.Abstract {
			continue
		}
		edges, err := tx.Edges(ctx, c.ID, repository.Incoming, domain.EdgePossibleChild)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if edge.FromID == domain.DummyRootID {
				continue
			}
			name, err := e.cache.ClassNameByID(ctx, tx, edge.FromID)
			if err != nil {
				return nil, err
			}
			def, err := e.cache.Class(ctx, tx, name)
			if err != nil {
				return nil, err
			}
			parents = append(parents, def.Light())
		}
	}
	return parents, nil
}

func parentName(parent *domain.ClassDefinition) string {
	if parent == nil {
		return domain.DummyRootClass
	}
	return parent.Name
}

func sortLights(classes []domain.ClassDefinitionLight) {
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
}
