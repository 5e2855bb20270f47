// Package loader applies data model documents to the live schema and
// exports the schema back into a document.
package loader

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"assetgraph/internal/codec"
	"assetgraph/internal/containment"
	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/objects"
	"assetgraph/internal/repository"
)

// Loader imports and exports data models
type Loader struct {
	schema  *metadata.Manager
	rules   *containment.Engine
	objects *objects.Store
	logger  *zap.Logger
}

// Result summarizes what an import changed
type Result struct {
	ClassesCreated    int `json:"classes_created"`
	AttributesCreated int `json:"attributes_created"`
	RulesAdded        int `json:"rules_added"`
	ItemsCreated      int `json:"items_created"`
}

// Changed reports whether the import modified anything
func (r *Result) Changed() bool {
	return r.ClassesCreated+r.AttributesCreated+r.RulesAdded+r.ItemsCreated > 0
}

// New creates a loader
func New(schema *metadata.Manager, rules *containment.Engine, objs *objects.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		schema:  schema,
		rules:   rules,
		objects: objs,
		logger:  logger.Named("loader"),
	}
}

// LoadFile reads a data model document, picking the format from the file
// extension
func LoadFile(path string) (*domain.DataModel, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data model: %w", err)
	}
	defer f.Close()

	model, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return model, nil
}

// Import adds whatever the document declares and the store lacks. Existing
// classes, attributes, rules and items are left untouched, so importing the
// same document twice changes nothing the second time.
func (l *Loader) Import(ctx context.Context, tx repository.Tx, model *domain.DataModel) (*Result, error) {
	ordered, err := parentsFirst(model.Classes)
	if err != nil {
		return nil, err
	}
	result := &Result{}

	// Classes first with their primitive attributes. List-type attributes
	// wait until every list type class exists.
	for _, def := range ordered {
		exists, err := l.schema.Cache().Exists(ctx, tx, def.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		create := *def
		create.ID = ""
		create.Attributes = nil
		for _, attr := range def.Attributes {
			if attr.Type.IsPrimitive() {
				create.Attributes = append(create.Attributes, attr)
			}
		}
		if _, err := l.schema.CreateClass(ctx, tx, create); err != nil {
			return nil, fmt.Errorf("failed to import class %s: %w", def.Name, err)
		}
		result.ClassesCreated++
		result.AttributesCreated += len(create.Attributes)
	}

	for _, def := range ordered {
		current, err := l.schema.Class(ctx, tx, def.Name)
		if err != nil {
			return nil, err
		}
		for _, attr := range def.Attributes {
			if current.HasAttribute(attr.Name) {
				continue
			}
			if _, err := l.schema.CreateAttribute(ctx, tx, def.Name, attr); err != nil {
				return nil, fmt.Errorf("failed to import attribute %s.%s: %w", def.Name, attr.Name, err)
			}
			result.AttributesCreated++
		}
	}

	for _, rule := range model.Rules {
		added, err := l.importRule(ctx, tx, rule)
		if err != nil {
			return nil, err
		}
		result.RulesAdded += added
	}

	for _, group := range model.ListItems {
		created, err := l.importItems(ctx, tx, group)
		if err != nil {
			return nil, err
		}
		result.ItemsCreated += created
	}

	l.logger.Info("data model imported",
		zap.Int("classes", result.ClassesCreated),
		zap.Int("attributes", result.AttributesCreated),
		zap.Int("rules", result.RulesAdded),
		zap.Int("items", result.ItemsCreated))
	return result, nil
}

func (l *Loader) importRule(ctx context.Context, tx repository.Tx, rule domain.ContainmentRule) (int, error) {
	declared, err := l.rules.PossibleChildrenNoRecursive(ctx, tx, rule.Parent, rule.Special)
	if err != nil {
		return 0, fmt.Errorf("failed to read rules of %q: %w", rule.Parent, err)
	}
	have := make(map[string]bool, len(declared))
	for _, c := range declared {
		have[c.Name] = true
	}

	var missing []string
	for _, child := range rule.Children {
		if !have[child] {
			missing = append(missing, child)
			have[child] = true
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := l.rules.AddPossibleChildren(ctx, tx, rule.Parent, missing, rule.Special); err != nil {
		return 0, fmt.Errorf("failed to import rules of %q: %w", rule.Parent, err)
	}
	return len(missing), nil
}

func (l *Loader) importItems(ctx context.Context, tx repository.Tx, group domain.ListTypeItemGroup) (int, error) {
	existing, err := l.objects.ListTypeItems(ctx, tx, group.Class)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, item := range existing {
		if item.ClassName == group.Class {
			have[item.Name] = true
		}
	}

	created := 0
	for _, item := range group.Items {
		if have[item.Name] {
			continue
		}
		if _, err := l.objects.CreateListTypeItem(ctx, tx, group.Class, item.Name, item.DisplayName); err != nil {
			return 0, fmt.Errorf("failed to import item %s of %s: %w", item.Name, group.Class, err)
		}
		have[item.Name] = true
		created++
	}
	return created, nil
}

// Export describes the live schema: every class with the attributes it
// declares, parents before children, then the containment rules and the
// list type items.
func (l *Loader) Export(ctx context.Context, tx repository.Tx) (*domain.DataModel, error) {
	lights, err := l.schema.Classes(ctx, tx, true)
	if err != nil {
		return nil, err
	}
	defs := make([]*domain.ClassDefinition, 0, len(lights))
	for _, light := range lights {
		def, err := l.schema.Class(ctx, tx, light.Name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	ordered, err := parentsFirst(ownView(defs))
	if err != nil {
		return nil, err
	}

	model := domain.NewDataModel()
	for _, def := range ordered {
		model.AddClass(*def)
	}

	// The dummy root comes first
	parents := append([]string{""}, classNames(ordered)...)
	for _, special := range []bool{false, true} {
		for _, parent := range parents {
			children, err := l.rules.PossibleChildrenNoRecursive(ctx, tx, parent, special)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			model.AddRule(domain.ContainmentRule{Parent: parent, Children: lightNames(children), Special: special})
		}
	}

	listRoot := l.schema.CoreClasses().ListType
	for _, def := range ordered {
		isList, err := l.schema.Cache().IsSubclassOf(ctx, tx, listRoot, def.Name)
		if err != nil {
			return nil, err
		}
		if !isList || def.Abstract {
			continue
		}
		group, err := l.exportItems(ctx, tx, def.Name)
		if err != nil {
			return nil, err
		}
		if len(group.Items) > 0 {
			model.ListItems = append(model.ListItems, group)
		}
	}
	return model, nil
}

func (l *Loader) exportItems(ctx context.Context, tx repository.Tx, className string) (domain.ListTypeItemGroup, error) {
	group := domain.ListTypeItemGroup{Class: className}
	items, err := l.objects.ListTypeItems(ctx, tx, className)
	if err != nil {
		return group, err
	}
	for _, item := range items {
		if item.ClassName != className {
			continue
		}
		node, err := tx.GetNode(ctx, item.ID)
		if err != nil {
			return group, err
		}
		entry := domain.ListTypeItem{Name: item.Name}
		if node != nil {
			entry.DisplayName = node.String("displayName")
		}
		group.Items = append(group.Items, entry)
	}
	sort.Slice(group.Items, func(i, j int) bool { return group.Items[i].Name < group.Items[j].Name })
	return group, nil
}

// ownView strips resolved definitions down to what a document declares
func ownView(defs []*domain.ClassDefinition) []domain.ClassDefinition {
	out := make([]domain.ClassDefinition, 0, len(defs))
	for _, def := range defs {
		c := *def.Clone()
		c.ID = ""
		c.Icon = nil
		c.SmallIcon = nil
		c.CreationDate = time.Time{}
		c.Attributes = nil
		for _, attr := range def.Attributes {
			if attr.ClassName != def.Name {
				continue
			}
			attr.ID = ""
			attr.ClassName = ""
			c.Attributes = append(c.Attributes, attr)
		}
		domain.SortAttributes(c.Attributes)
		out = append(out, c)
	}
	return out
}

// parentsFirst orders classes so every parent declared in the same list
// precedes its subclasses. Siblings keep their relative order.
func parentsFirst(classes []domain.ClassDefinition) ([]*domain.ClassDefinition, error) {
	byName := make(map[string]*domain.ClassDefinition, len(classes))
	for i := range classes {
		def := &classes[i]
		if _, dup := byName[def.Name]; dup {
			return nil, domain.InvalidArgumentf("class %s is declared twice", def.Name).WithClass(def.Name)
		}
		byName[def.Name] = def
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(classes))
	ordered := make([]*domain.ClassDefinition, 0, len(classes))

	var visit func(def *domain.ClassDefinition) error
	visit = func(def *domain.ClassDefinition) error {
		switch state[def.Name] {
		case done:
			return nil
		case visiting:
			return domain.InvalidArgumentf("class %s inherits from itself", def.Name).WithClass(def.Name)
		}
		state[def.Name] = visiting
		if parent, ok := byName[def.ParentClassName]; ok {
			if err := visit(parent); err != nil {
				return err
			}
		}
		state[def.Name] = done
		ordered = append(ordered, def)
		return nil
	}

	for i := range classes {
		if err := visit(&classes[i]); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func classNames(defs []*domain.ClassDefinition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func lightNames(lights []domain.ClassDefinitionLight) []string {
	names := make([]string, len(lights))
	for i, l := range lights {
		names[i] = l.Name
	}
	return names
}
