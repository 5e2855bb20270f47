package objects

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
	"assetgraph/internal/unique"
)

// draft is the state of a node being written: its property bag and its
// list-type references by attribute name
type draft struct {
	node  *domain.Node
	lists map[string][]string
}

func newDraft(labels ...string) *draft {
	node := domain.NewNode(uuid.New().String(), labels...)
	node.SetProperty(domain.PropName, "")
	node.SetProperty(domain.PropCreationDate, nowMillis())
	return &draft{node: node, lists: make(map[string][]string)}
}

// writeMode selects what applyAttributes creates and enforces
type writeMode struct {
	creating  bool // the node does not exist in the store yet
	mandatory bool // mandatory attributes must end up with a value
	unique    bool // unique values are reserved and released
}

var (
	modeCreate   = writeMode{creating: true, mandatory: true, unique: true}
	modeUpdate   = writeMode{mandatory: true, unique: true}
	modeCopy     = writeMode{creating: true, mandatory: true, unique: true}
	modeTemplate = writeMode{}
)

// parsed is a raw attribute map converted against a class
type parsed struct {
	props map[string]any      // nil values remove the property
	lists map[string][]string // replaced list-type references
}

// parseAttributes validates raw values against def. Unknown attributes are
// rejected; the creation date is managed by the store and ignored.
func parseAttributes(def *domain.ClassDefinition, attrs map[string]string) (*parsed, error) {
	p := &parsed{props: make(map[string]any), lists: make(map[string][]string)}
	for name, raw := range attrs {
		if name == domain.PropCreationDate {
			continue
		}
		attr, ok := def.Attribute(name)
		if !ok {
			if name == domain.PropName {
				p.props[name] = raw
				continue
			}
			return nil, domain.InvalidArgumentf("class %s has no attribute %s", def.Name, name).
				WithClass(def.Name).WithAttribute(name)
		}

		if attr.Type.IsListType() {
			ids := domain.SplitListValue(raw)
			if len(ids) > 1 && !attr.Multiple {
				return nil, domain.InvalidArgumentf("attribute %s of class %s holds a single value", name, def.Name).
					WithClass(def.Name).WithAttribute(name)
			}
			p.lists[name] = ids
			continue
		}

		if raw == "" {
			if name == domain.PropName {
				p.props[name] = ""
			} else {
				p.props[name] = nil
			}
			continue
		}
		v, err := domain.ParseValue(attr.Type.Kind(), raw)
		if err != nil {
			return nil, domain.InvalidArgumentf("invalid value for attribute %s of class %s: %v", name, def.Name, err).
				WithClass(def.Name).WithAttribute(name)
		}
		p.props[name] = v
	}
	return p, nil
}

// applyAttributes merges attrs into d, enforces the constraints selected
// by mode and persists the result
func (s *Store) applyAttributes(ctx context.Context, tx repository.Tx, def *domain.ClassDefinition, d *draft, attrs map[string]string, mode writeMode) error {
	p, err := parseAttributes(def, attrs)
	if err != nil {
		return err
	}

	old := make(map[string]any, len(p.props))
	for k, v := range p.props {
		old[k], _ = d.node.GetProperty(k)
		if v == nil {
			delete(d.node.Properties, k)
		} else {
			d.node.SetProperty(k, v)
		}
	}
	for k, ids := range p.lists {
		d.lists[k] = ids
	}

	if mode.mandatory {
		if err := checkMandatory(def, d, p, mode.creating); err != nil {
			return err
		}
	}
	if mode.unique {
		if err := s.reserveUnique(tx, def, d, p, old, mode.creating); err != nil {
			return err
		}
	}

	if mode.creating {
		if err := tx.CreateNode(ctx, d.node); err != nil {
			return fmt.Errorf("failed to create object of class %s: %w", def.Name, err)
		}
	} else if len(p.props) > 0 {
		if err := tx.SetProperties(ctx, d.node.ID, p.props); err != nil {
			return fmt.Errorf("failed to update object %s: %w", d.node.ID, err)
		}
	}

	lists := p.lists
	if mode.creating {
		lists = d.lists
	}
	return s.writeLists(ctx, tx, def, d.node.ID, lists, !mode.creating)
}

func checkMandatory(def *domain.ClassDefinition, d *draft, p *parsed, creating bool) error {
	for i := range def.Attributes {
		attr := &def.Attributes[i]
		if !attr.Mandatory {
			continue
		}
		if attr.Type.IsListType() {
			ids, touched := p.lists[attr.Name]
			if !touched {
				if !creating {
					continue
				}
				ids = d.lists[attr.Name]
			}
			if len(ids) == 0 {
				return domain.InvalidArgumentf("mandatory attribute %s of class %s has no value", attr.Name, def.Name).
					WithClass(def.Name).WithAttribute(attr.Name)
			}
			continue
		}
		if _, touched := p.props[attr.Name]; !touched && !creating {
			continue
		}
		if v, ok := d.node.GetProperty(attr.Name); !ok || domain.IsEmptyValue(v) {
			return domain.InvalidArgumentf("mandatory attribute %s of class %s has no value", attr.Name, def.Name).
				WithClass(def.Name).WithAttribute(attr.Name)
		}
	}
	return nil
}

// reserveUnique claims the new values of unique attributes and gives back
// the ones they replace
func (s *Store) reserveUnique(tx repository.Tx, def *domain.ClassDefinition, d *draft, p *parsed, old map[string]any, creating bool) error {
	for i := range def.Attributes {
		attr := &def.Attributes[i]
		if !attr.Unique || !attr.Type.CanBeUnique() {
			continue
		}
		key := unique.Key{Class: attr.ClassName, Attribute: attr.Name}
		kind := attr.Type.Kind()

		current, _ := d.node.GetProperty(attr.Name)
		newValue := domain.FormatValue(kind, current)
		if creating {
			if err := s.index.Reserve(tx, key, newValue, d.node.ID); err != nil {
				return err
			}
			continue
		}

		if _, touched := p.props[attr.Name]; !touched {
			continue
		}
		oldValue := domain.FormatValue(kind, old[attr.Name])
		if oldValue == newValue {
			continue
		}
		s.index.Release(tx, key, oldValue)
		if err := s.index.Reserve(tx, key, newValue, d.node.ID); err != nil {
			return err
		}
	}
	return nil
}

// releaseUnique gives back every unique value a node holds
func (s *Store) releaseUnique(tx repository.Tx, def *domain.ClassDefinition, node *domain.Node) {
	for i := range def.Attributes {
		attr := &def.Attributes[i]
		if !attr.Unique || !attr.Type.CanBeUnique() {
			continue
		}
		v, ok := node.GetProperty(attr.Name)
		if !ok || domain.IsEmptyValue(v) {
			continue
		}
		s.index.Release(tx, unique.Key{Class: attr.ClassName, Attribute: attr.Name}, domain.FormatValue(attr.Type.Kind(), v))
	}
}

// writeLists links nodeID to the referenced list-type items. With replace
// set, the previous references of each attribute are removed first.
func (s *Store) writeLists(ctx context.Context, tx repository.Tx, def *domain.ClassDefinition, nodeID string, lists map[string][]string, replace bool) error {
	names := make([]string, 0, len(lists))
	for name := range lists {
		names = append(names, name)
	}
	sort.Strings(names)

	var existing []domain.Edge
	if replace && len(names) > 0 {
		var err error
		if existing, err = tx.Edges(ctx, nodeID, repository.Outgoing, domain.EdgeRelatedTo); err != nil {
			return err
		}
	}

	for _, name := range names {
		attr, ok := def.Attribute(name)
		if !ok {
			continue
		}
		for _, e := range existing {
			if e.Name() == name {
				if err := tx.DeleteEdge(ctx, e.ID); err != nil {
					return err
				}
			}
		}
		for _, itemID := range lists[name] {
			if err := s.checkListItem(ctx, tx, attr, itemID); err != nil {
				return err
			}
			if err := tx.CreateEdge(ctx, domain.NewNamedEdge(nodeID, itemID, domain.EdgeRelatedTo, name)); err != nil {
				return fmt.Errorf("failed to link %s to list item %s: %w", name, itemID, err)
			}
		}
	}
	return nil
}

func (s *Store) checkListItem(ctx context.Context, tx repository.Tx, attr *domain.AttributeDefinition, itemID string) error {
	item, err := tx.GetNode(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil || !item.HasLabel(domain.LabelListTypeItem) {
		return domain.InvalidArgumentf("%s is not a list type item", itemID).WithAttribute(attr.Name).WithID(itemID)
	}
	itemClass, err := s.classOf(ctx, tx, item)
	if err != nil {
		return err
	}
	ok, err := s.cache.IsSubclassOf(ctx, tx, attr.Type.ListClass(), itemClass.Name)
	if err != nil {
		return err
	}
	if !ok {
		return domain.InvalidArgumentf("list type item %s is a %s, attribute %s expects a %s", itemID, itemClass.Name, attr.Name, attr.Type.ListClass()).
			WithAttribute(attr.Name).WithID(itemID)
	}
	return nil
}
