package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// propRoot marks the single class without a parent
const propRoot = "root"

// UniqueTracker is notified when attribute uniqueness changes so the value
// index can follow the schema
type UniqueTracker interface {
	CanBecomeUnique(ctx context.Context, tx repository.Tx, className, attribute string) (bool, error)
	Track(ctx context.Context, tx repository.Tx, className, attribute string) error
	Untrack(tx repository.Tx, className, attribute string)
	RenameAttribute(tx repository.Tx, className, oldName, newName string)
	RenameClass(tx repository.Tx, oldName, newName string)
}

// Manager maintains classes and attributes. Every method runs inside the
// caller's transaction.
type Manager struct {
	cache  *Cache
	core   domain.CoreClasses
	unique UniqueTracker
	logger *zap.Logger
}

// NewManager creates a metadata manager. A nil tracker disables unique
// index maintenance.
func NewManager(cache *Cache, core domain.CoreClasses, unique UniqueTracker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if unique == nil {
		unique = noopTracker{}
	}
	return &Manager{
		cache:  cache,
		core:   core,
		unique: unique,
		logger: logger.Named("metadata"),
	}
}

// Cache returns the schema cache the manager keeps current
func (m *Manager) Cache() *Cache {
	return m.cache
}

// CoreClasses returns the configured core class names
func (m *Manager) CoreClasses() domain.CoreClasses {
	return m.core
}

// ============================================================================
// Classes
// ============================================================================

// CreateClass stores a new class with its own attributes and returns its id
func (m *Manager) CreateClass(ctx context.Context, tx repository.Tx, def domain.ClassDefinition) (string, error) {
	if err := domain.ValidateClassName(def.Name); err != nil {
		return "", err
	}
	exists, err := m.cache.Exists(ctx, tx, def.Name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.InvalidArgumentf("class %s already exists", def.Name).WithClass(def.Name)
	}

	var parentID string
	var parent *domain.ClassDefinition
	if def.ParentClassName == "" {
		root, err := tx.FindNode(ctx, domain.LabelClass, propRoot, true)
		if err != nil {
			return "", err
		}
		if root != nil {
			return "", domain.InvalidArgumentf("class %s needs a parent, %s is already the root class", def.Name, root.Name()).
				WithClass(def.Name)
		}
	} else {
		if parent, err = m.cache.Class(ctx, tx, def.ParentClassName); err != nil {
			return "", err
		}
		parentID = parent.ID
	}

	seen := make(map[string]bool, len(def.Attributes))
	for i := range def.Attributes {
		attr := &def.Attributes[i]
		if seen[attr.Name] {
			return "", domain.InvalidArgumentf("attribute %s is declared twice in class %s", attr.Name, def.Name).
				WithClass(def.Name).WithAttribute(attr.Name)
		}
		seen[attr.Name] = true
		if err := m.validateAttribute(ctx, tx, attr); err != nil {
			return "", err
		}
	}

	if def.CreationDate.IsZero() {
		def.CreationDate = time.Now()
	}
	node := domain.NewNode("", domain.LabelClass)
	node.Properties = classProperties(&def)
	if parent == nil {
		node.SetProperty(propRoot, true)
	}
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create class %s: %w", def.Name, err)
	}
	if parentID != "" {
		if err := tx.CreateEdge(ctx, domain.NewEdge(node.ID, parentID, domain.EdgeExtends)); err != nil {
			return "", fmt.Errorf("failed to link class %s to %s: %w", def.Name, def.ParentClassName, err)
		}
	}
	for i := range def.Attributes {
		if _, err := m.createAttributeNode(ctx, tx, node.ID, &def.Attributes[i]); err != nil {
			return "", err
		}
	}

	if err := m.cache.Invalidate(ctx, tx, def.Name); err != nil {
		return "", err
	}

	m.logger.Info("class created",
		zap.String("class", def.Name),
		zap.String("parent", def.ParentClassName),
		zap.Int("attributes", len(def.Attributes)))
	return node.ID, nil
}

// Class returns the resolved definition of a class
func (m *Manager) Class(ctx context.Context, tx repository.Tx, name string) (*domain.ClassDefinition, error) {
	return m.cache.Class(ctx, tx, name)
}

// Classes lists every class ordered by name, optionally leaving out list
// types
func (m *Manager) Classes(ctx context.Context, tx repository.Tx, includeListTypes bool) ([]domain.ClassDefinitionLight, error) {
	nodes, err := tx.ListNodes(ctx, domain.LabelClass, nil, domain.Page{})
	if err != nil {
		return nil, err
	}

	classes := make([]domain.ClassDefinitionLight, 0, len(nodes))
	for _, node := range nodes {
		def, err := m.cache.Class(ctx, tx, node.Name())
		if err != nil {
			return nil, err
		}
		if !includeListTypes {
			isList, err := m.cache.IsSubclassOf(ctx, tx, m.core.ListType, def.Name)
			if err != nil {
				return nil, err
			}
			if isList {
				continue
			}
		}
		classes = append(classes, def.Light())
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// SetClassProperties applies a partial update to a class
func (m *Manager) SetClassProperties(ctx context.Context, tx repository.Tx, className string, patch domain.ClassPatch) (*domain.ChangeDescriptor, error) {
	def, err := m.cache.Class(ctx, tx, className)
	if err != nil {
		return nil, err
	}

	props := make(map[string]any)
	changes := &domain.ChangeDescriptor{}
	renamed := false

	if patch.Name != nil && *patch.Name != def.Name {
		if err := domain.ValidateClassName(*patch.Name); err != nil {
			return nil, err
		}
		exists, err := m.cache.Exists(ctx, tx, *patch.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.InvalidArgumentf("class %s already exists", *patch.Name).WithClass(*patch.Name)
		}
		props[domain.PropName] = *patch.Name
		changes.Record("name", def.Name, *patch.Name)
		renamed = true
	}
	if patch.DisplayName != nil && *patch.DisplayName != def.DisplayName {
		props["displayName"] = *patch.DisplayName
		changes.Record("displayName", def.DisplayName, *patch.DisplayName)
	}
	if patch.Description != nil && *patch.Description != def.Description {
		props["description"] = *patch.Description
		changes.Record("description", def.Description, *patch.Description)
	}
	if patch.Icon != nil {
		props["icon"] = encodeIcon(patch.Icon)
		changes.Record("icon", "", "")
	}
	if patch.SmallIcon != nil {
		props["smallIcon"] = encodeIcon(patch.SmallIcon)
		changes.Record("smallIcon", "", "")
	}
	if patch.Color != nil && *patch.Color != def.Color {
		props["color"] = int64(*patch.Color)
		changes.Record("color", strconv.Itoa(def.Color), strconv.Itoa(*patch.Color))
	}
	if patch.Countable != nil && *patch.Countable != def.Countable {
		props["countable"] = *patch.Countable
		changes.Record("countable", strconv.FormatBool(def.Countable), strconv.FormatBool(*patch.Countable))
	}
	if patch.InDesign != nil && *patch.InDesign != def.InDesign {
		props["inDesign"] = *patch.InDesign
		changes.Record("inDesign", strconv.FormatBool(def.InDesign), strconv.FormatBool(*patch.InDesign))
	}
	if patch.Abstract != nil && *patch.Abstract != def.Abstract {
		if *patch.Abstract {
			has, err := hasDirectInstances(ctx, tx, def.ID)
			if err != nil {
				return nil, err
			}
			if has {
				return nil, domain.InvalidArgumentf("class %s has instances and cannot become abstract", def.Name).
					WithClass(def.Name)
			}
		}
		props["abstract"] = *patch.Abstract
		changes.Record("abstract", strconv.FormatBool(def.Abstract), strconv.FormatBool(*patch.Abstract))
	}

	if changes.Empty() {
		return changes, nil
	}

	if err := m.cache.Invalidate(ctx, tx, def.Name); err != nil {
		return nil, err
	}
	if err := tx.SetProperties(ctx, def.ID, props); err != nil {
		return nil, fmt.Errorf("failed to update class %s: %w", def.Name, err)
	}

	if renamed {
		newName := *patch.Name
		m.cache.Forget(tx, newName)
		if err := m.retargetListTypeAttributes(ctx, tx, def.Name, newName); err != nil {
			return nil, err
		}
		m.unique.RenameClass(tx, def.Name, newName)
	}

	m.logger.Info("class updated",
		zap.String("class", def.Name),
		zap.Strings("properties", changes.AffectedProperties))
	return changes, nil
}

// retargetListTypeAttributes points attributes typed with a renamed list
// type at its new name
func (m *Manager) retargetListTypeAttributes(ctx context.Context, tx repository.Tx, oldName, newName string) error {
	attrs, err := tx.ListNodes(ctx, domain.LabelAttribute, map[string]any{"type": oldName}, domain.Page{})
	if err != nil {
		return err
	}
	for _, attr := range attrs {
		if err := tx.SetProperties(ctx, attr.ID, map[string]any{"type": newName}); err != nil {
			return err
		}
		owners, err := tx.Edges(ctx, attr.ID, repository.Incoming, domain.EdgeHasAttribute)
		if err != nil {
			return err
		}
		for _, e := range owners {
			owner, err := m.cache.ClassNameByID(ctx, tx, e.FromID)
			if err != nil {
				return err
			}
			if err := m.cache.Invalidate(ctx, tx, owner); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteClass removes a custom class that has no instances, no subclasses
// and no attributes typed with it
func (m *Manager) DeleteClass(ctx context.Context, tx repository.Tx, className string) error {
	def, err := m.cache.Class(ctx, tx, className)
	if err != nil {
		return err
	}
	if !def.Custom {
		return domain.InvalidArgumentf("class %s is a core class and cannot be deleted", className).WithClass(className)
	}

	has, err := hasDirectInstances(ctx, tx, def.ID)
	if err != nil {
		return err
	}
	if has {
		return domain.InvalidArgumentf("class %s has instances and cannot be deleted", className).WithClass(className)
	}

	subs, err := tx.Edges(ctx, def.ID, repository.Incoming, domain.EdgeExtends)
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		return domain.InvalidArgumentf("class %s has subclasses and cannot be deleted", className).WithClass(className)
	}

	isList, err := m.cache.IsSubclassOf(ctx, tx, m.core.ListType, className)
	if err != nil {
		return err
	}
	if isList {
		refs, err := tx.ListNodes(ctx, domain.LabelAttribute, map[string]any{"type": className}, domain.Page{Limit: 1})
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return domain.InvalidArgumentf("list type %s is used by attribute %s and cannot be deleted", className, refs[0].Name()).
				WithClass(className)
		}
	}

	if err := m.cache.Invalidate(ctx, tx, className); err != nil {
		return err
	}

	attrs, err := tx.Edges(ctx, def.ID, repository.Outgoing, domain.EdgeHasAttribute)
	if err != nil {
		return err
	}
	for _, e := range attrs {
		if err := tx.DeleteNode(ctx, e.ToID); err != nil {
			return fmt.Errorf("failed to delete attribute of %s: %w", className, err)
		}
	}
	for _, a := range def.Attributes {
		if a.Unique && a.ClassName == className {
			m.unique.Untrack(tx, className, a.Name)
		}
	}

	// Templates of the class and template elements instantiating it
	templates, err := tx.Edges(ctx, def.ID, repository.Both, domain.EdgeHasTemplate, domain.EdgeInstanceOfSpecial)
	if err != nil {
		return err
	}
	for _, e := range templates {
		root := e.ToID
		if e.Type == domain.EdgeInstanceOfSpecial {
			root = e.FromID
		}
		if err := deleteSubtree(ctx, tx, root); err != nil {
			return err
		}
	}

	if err := tx.DeleteNode(ctx, def.ID); err != nil {
		return fmt.Errorf("failed to delete class %s: %w", className, err)
	}

	m.logger.Info("class deleted", zap.String("class", className))
	return nil
}

// deleteSubtree removes a node and everything contained in it. Nodes
// already removed by an earlier pass are skipped.
func deleteSubtree(ctx context.Context, tx repository.Tx, rootID string) error {
	ids, err := tx.Traverse(ctx, rootID, repository.Incoming, 0, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
	if err != nil {
		return err
	}
	for _, id := range append(ids, rootID) {
		if err := tx.DeleteNode(ctx, id); err != nil && !errors.Is(err, repository.ErrNodeNotFound) {
			return err
		}
	}
	return nil
}

// ============================================================================
// Attributes
// ============================================================================

// CreateAttribute adds an attribute to a class and returns its id
func (m *Manager) CreateAttribute(ctx context.Context, tx repository.Tx, className string, attr domain.AttributeDefinition) (string, error) {
	def, err := m.cache.Class(ctx, tx, className)
	if err != nil {
		return "", err
	}
	if err := m.validateAttribute(ctx, tx, &attr); err != nil {
		return "", err
	}
	if err := m.checkNameFree(ctx, tx, def, attr.Name); err != nil {
		return "", err
	}

	if attr.Mandatory {
		instances, err := Instances(ctx, tx, m.cache, className, false)
		if err != nil {
			return "", err
		}
		if len(instances) > 0 {
			return "", domain.InvalidArgumentf("class %s has instances, attribute %s cannot be mandatory", className, attr.Name).
				WithClass(className).WithAttribute(attr.Name)
		}
	}

	id, err := m.createAttributeNode(ctx, tx, def.ID, &attr)
	if err != nil {
		return "", err
	}
	if err := m.cache.Invalidate(ctx, tx, className); err != nil {
		return "", err
	}

	m.logger.Info("attribute created",
		zap.String("class", className),
		zap.String("attribute", attr.Name),
		zap.String("type", attr.Type.String()))
	return id, nil
}

// SetAttributeProperties applies a partial update to an attribute. The
// change is made on the declaring class and reaches every subclass.
func (m *Manager) SetAttributeProperties(ctx context.Context, tx repository.Tx, className, attributeName string, patch domain.AttributePatch) (*domain.ChangeDescriptor, error) {
	def, err := m.cache.Class(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	current, ok := def.Attribute(attributeName)
	if !ok {
		return nil, domain.NotFoundf("attribute %s could not be found in class %s", attributeName, className).
			WithClass(className).WithAttribute(attributeName)
	}
	attr := *current
	declaring := attr.ClassName
	protected := attributeName == domain.PropName || attributeName == domain.PropCreationDate

	declaringDef, err := m.cache.Class(ctx, tx, declaring)
	if err != nil {
		return nil, err
	}

	props := make(map[string]any)
	changes := &domain.ChangeDescriptor{}
	final := attr

	if patch.Name != nil && *patch.Name != attr.Name {
		if protected {
			return nil, domain.InvalidArgumentf("attribute %s cannot be renamed", attr.Name).WithAttribute(attr.Name)
		}
		if err := domain.ValidateAttributeName(*patch.Name); err != nil {
			return nil, err
		}
		if err := m.checkNameFree(ctx, tx, declaringDef, *patch.Name); err != nil {
			return nil, err
		}
		final.Name = *patch.Name
		props[domain.PropName] = final.Name
		changes.Record("name", attr.Name, final.Name)
	}
	if patch.Type != nil && *patch.Type != attr.Type {
		if protected {
			return nil, domain.InvalidArgumentf("the type of attribute %s cannot be changed", attr.Name).WithAttribute(attr.Name)
		}
		inUse, err := m.anyInstanceHasValue(ctx, tx, declaring, &attr)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, domain.InvalidArgumentf("attribute %s has values and its type cannot be changed", attr.Name).
				WithClass(declaring).WithAttribute(attr.Name)
		}
		final.Type = *patch.Type
		props["type"] = final.Type.String()
		changes.Record("type", attr.Type.String(), final.Type.String())
	}
	if patch.DisplayName != nil && *patch.DisplayName != attr.DisplayName {
		final.DisplayName = *patch.DisplayName
		props["displayName"] = final.DisplayName
		changes.Record("displayName", attr.DisplayName, final.DisplayName)
	}
	if patch.Description != nil && *patch.Description != attr.Description {
		final.Description = *patch.Description
		props["description"] = final.Description
		changes.Record("description", attr.Description, final.Description)
	}
	if patch.Mandatory != nil && *patch.Mandatory != attr.Mandatory {
		final.Mandatory = *patch.Mandatory
		props["mandatory"] = final.Mandatory
		changes.Record("mandatory", strconv.FormatBool(attr.Mandatory), strconv.FormatBool(final.Mandatory))
	}
	if patch.Unique != nil && *patch.Unique != attr.Unique {
		final.Unique = *patch.Unique
		props["unique"] = final.Unique
		changes.Record("unique", strconv.FormatBool(attr.Unique), strconv.FormatBool(final.Unique))
	}
	if patch.Multiple != nil && *patch.Multiple != attr.Multiple {
		final.Multiple = *patch.Multiple
		props["multiple"] = final.Multiple
		changes.Record("multiple", strconv.FormatBool(attr.Multiple), strconv.FormatBool(final.Multiple))
	}
	if patch.ReadOnly != nil && *patch.ReadOnly != attr.ReadOnly {
		final.ReadOnly = *patch.ReadOnly
		props["readOnly"] = final.ReadOnly
		changes.Record("readOnly", strconv.FormatBool(attr.ReadOnly), strconv.FormatBool(final.ReadOnly))
	}
	if patch.Visible != nil && *patch.Visible != attr.Visible {
		final.Visible = *patch.Visible
		props["visible"] = final.Visible
		changes.Record("visible", strconv.FormatBool(attr.Visible), strconv.FormatBool(final.Visible))
	}
	if patch.NoCopy != nil && *patch.NoCopy != attr.NoCopy {
		final.NoCopy = *patch.NoCopy
		props["noCopy"] = final.NoCopy
		changes.Record("noCopy", strconv.FormatBool(attr.NoCopy), strconv.FormatBool(final.NoCopy))
	}
	if patch.Order != nil && *patch.Order != attr.Order {
		final.Order = *patch.Order
		props["order"] = int64(final.Order)
		changes.Record("order", strconv.Itoa(attr.Order), strconv.Itoa(final.Order))
	}

	if changes.Empty() {
		return changes, nil
	}

	// The resulting definition must hold on its own
	if err := m.validateAttribute(ctx, tx, &final); err != nil {
		return nil, err
	}
	if final.Mandatory && !attr.Mandatory {
		missing, err := m.anyInstanceLacksValue(ctx, tx, declaring, &attr)
		if err != nil {
			return nil, err
		}
		if missing {
			return nil, domain.InvalidArgumentf("some instances of %s have no value for %s, it cannot be mandatory", declaring, attr.Name).
				WithClass(declaring).WithAttribute(attr.Name)
		}
	}
	if final.Unique && !attr.Unique {
		ok, err := m.unique.CanBecomeUnique(ctx, tx, declaring, attr.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.InvalidArgumentf("attribute %s holds duplicate values in class %s, it cannot be unique", attr.Name, declaring).
				WithClass(declaring).WithAttribute(attr.Name)
		}
	}

	if err := tx.SetProperties(ctx, attr.ID, props); err != nil {
		return nil, fmt.Errorf("failed to update attribute %s: %w", attr.Name, err)
	}
	if err := m.cache.Invalidate(ctx, tx, declaring); err != nil {
		return nil, err
	}

	if final.Name != attr.Name {
		if err := m.renameValues(ctx, tx, declaring, &attr, final.Name); err != nil {
			return nil, err
		}
		if attr.Unique {
			m.unique.RenameAttribute(tx, declaring, attr.Name, final.Name)
		}
	}
	switch {
	case final.Unique && !attr.Unique:
		if err := m.unique.Track(ctx, tx, declaring, final.Name); err != nil {
			return nil, err
		}
	case !final.Unique && attr.Unique:
		m.unique.Untrack(tx, declaring, final.Name)
	}

	m.logger.Info("attribute updated",
		zap.String("class", declaring),
		zap.String("attribute", attr.Name),
		zap.Strings("properties", changes.AffectedProperties))
	return changes, nil
}

// DeleteAttribute removes an attribute declared by className along with
// every value instances hold for it
func (m *Manager) DeleteAttribute(ctx context.Context, tx repository.Tx, className, attributeName string) error {
	if attributeName == domain.PropName || attributeName == domain.PropCreationDate {
		return domain.InvalidArgumentf("attribute %s cannot be deleted", attributeName).WithAttribute(attributeName)
	}

	def, err := m.cache.Class(ctx, tx, className)
	if err != nil {
		return err
	}
	attr, ok := def.Attribute(attributeName)
	if !ok {
		return domain.NotFoundf("attribute %s could not be found in class %s", attributeName, className).
			WithClass(className).WithAttribute(attributeName)
	}
	if attr.ClassName != className {
		return domain.InvalidArgumentf("attribute %s is inherited from %s and must be deleted there", attributeName, attr.ClassName).
			WithClass(className).WithAttribute(attributeName)
	}

	instances, err := Instances(ctx, tx, m.cache, className, true)
	if err != nil {
		return err
	}
	for i := range instances {
		if err := m.clearValue(ctx, tx, &instances[i], attr); err != nil {
			return err
		}
	}

	if attr.Unique {
		m.unique.Untrack(tx, className, attributeName)
	}
	if err := m.cache.Invalidate(ctx, tx, className); err != nil {
		return err
	}
	if err := tx.DeleteNode(ctx, attr.ID); err != nil {
		return fmt.Errorf("failed to delete attribute %s: %w", attributeName, err)
	}

	m.logger.Info("attribute deleted",
		zap.String("class", className),
		zap.String("attribute", attributeName),
		zap.Int("instances", len(instances)))
	return nil
}

func (m *Manager) validateAttribute(ctx context.Context, tx repository.Tx, attr *domain.AttributeDefinition) error {
	if err := domain.ValidateAttributeName(attr.Name); err != nil {
		return err
	}
	if attr.Type.IsListType() {
		isList, err := m.cache.IsSubclassOf(ctx, tx, m.core.ListType, attr.Type.ListClass())
		if err != nil {
			return err
		}
		if !isList || attr.Type.ListClass() == m.core.ListType {
			return domain.InvalidArgumentf("type %s of attribute %s is neither a primitive type nor a list type", attr.Type, attr.Name).
				WithAttribute(attr.Name)
		}
	} else if attr.Multiple {
		return domain.InvalidArgumentf("attribute %s is primitive and cannot hold multiple values", attr.Name).
			WithAttribute(attr.Name)
	}
	if attr.Unique && !attr.Type.CanBeUnique() {
		return domain.InvalidArgumentf("attributes of type %s cannot be unique", attr.Type).WithAttribute(attr.Name)
	}
	return nil
}

// checkNameFree fails when name is already visible in def or declared by
// one of its subclasses
func (m *Manager) checkNameFree(ctx context.Context, tx repository.Tx, def *domain.ClassDefinition, name string) error {
	if def.HasAttribute(name) {
		return domain.InvalidArgumentf("class %s already has an attribute named %s", def.Name, name).
			WithClass(def.Name).WithAttribute(name)
	}
	subs, err := m.cache.SubClassNames(ctx, tx, def.Name, SubClassOptions{IncludeAbstract: true, Recursive: true})
	if err != nil {
		return err
	}
	for _, sub := range subs {
		subDef, err := m.cache.Class(ctx, tx, sub)
		if err != nil {
			return err
		}
		if a, ok := subDef.Attribute(name); ok && a.ClassName == sub {
			return domain.InvalidArgumentf("subclass %s already declares an attribute named %s", sub, name).
				WithClass(sub).WithAttribute(name)
		}
	}
	return nil
}

func (m *Manager) createAttributeNode(ctx context.Context, tx repository.Tx, classID string, attr *domain.AttributeDefinition) (string, error) {
	node := domain.NewNode("", domain.LabelAttribute)
	node.Properties = attributeProperties(attr)
	if err := tx.CreateNode(ctx, node); err != nil {
		return "", fmt.Errorf("failed to create attribute %s: %w", attr.Name, err)
	}
	if err := tx.CreateEdge(ctx, domain.NewEdge(classID, node.ID, domain.EdgeHasAttribute)); err != nil {
		return "", fmt.Errorf("failed to attach attribute %s: %w", attr.Name, err)
	}
	attr.ID = node.ID
	return node.ID, nil
}

func (m *Manager) anyInstanceHasValue(ctx context.Context, tx repository.Tx, className string, attr *domain.AttributeDefinition) (bool, error) {
	instances, err := Instances(ctx, tx, m.cache, className, true)
	if err != nil {
		return false, err
	}
	for i := range instances {
		has, err := HasValue(ctx, tx, &instances[i], attr)
		if err != nil || has {
			return has, err
		}
	}
	return false, nil
}

func (m *Manager) anyInstanceLacksValue(ctx context.Context, tx repository.Tx, className string, attr *domain.AttributeDefinition) (bool, error) {
	instances, err := Instances(ctx, tx, m.cache, className, false)
	if err != nil {
		return false, err
	}
	m.logger.Debug("scanning instances for mandatory attribute",
		zap.String("class", className),
		zap.String("attribute", attr.Name),
		zap.Int("instances", len(instances)))
	for i := range instances {
		has, err := HasValue(ctx, tx, &instances[i], attr)
		if err != nil {
			return false, err
		}
		if !has {
			return true, nil
		}
	}
	return false, nil
}

// renameValues moves stored values to the new attribute name
func (m *Manager) renameValues(ctx context.Context, tx repository.Tx, className string, attr *domain.AttributeDefinition, newName string) error {
	instances, err := Instances(ctx, tx, m.cache, className, true)
	if err != nil {
		return err
	}
	for _, node := range instances {
		if attr.Type.IsPrimitive() {
			if v, ok := node.GetProperty(attr.Name); ok {
				if err := tx.SetProperties(ctx, node.ID, map[string]any{attr.Name: nil, newName: v}); err != nil {
					return err
				}
			}
			continue
		}
		edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeRelatedTo)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.Name() == attr.Name {
				if err := tx.SetEdgeProperties(ctx, e.ID, map[string]any{domain.PropName: newName}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Manager) clearValue(ctx context.Context, tx repository.Tx, node *domain.Node, attr *domain.AttributeDefinition) error {
	if attr.Type.IsPrimitive() {
		if _, ok := node.GetProperty(attr.Name); !ok {
			return nil
		}
		return tx.SetProperties(ctx, node.ID, map[string]any{attr.Name: nil})
	}
	edges, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeRelatedTo)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if e.Name() == attr.Name {
			if err := tx.DeleteEdge(ctx, e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

type noopTracker struct{}

func (noopTracker) CanBecomeUnique(context.Context, repository.Tx, string, string) (bool, error) {
	return true, nil
}
func (noopTracker) Track(context.Context, repository.Tx, string, string) error { return nil }
func (noopTracker) Untrack(repository.Tx, string, string)                      {}
func (noopTracker) RenameAttribute(repository.Tx, string, string, string)      {}
func (noopTracker) RenameClass(repository.Tx, string, string)                  {}
