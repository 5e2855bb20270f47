package metadata

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// maxHierarchyDepth bounds parent-chain walks
const maxHierarchyDepth = 256

// SubClassOptions selects what getSubClasses returns
type SubClassOptions struct {
	IncludeAbstract bool
	IncludeSelf     bool
	Recursive       bool
}

type subclassKey struct {
	name      string
	recursive bool
}

// Cache is the process-wide view of the class hierarchy. Entries are built
// lazily from the store through the caller's transaction and dropped when a
// class mutation touches them.
type Cache struct {
	mu         sync.RWMutex
	classes    map[string]*domain.ClassDefinition
	names      map[string]string // class node id -> class name
	subclasses map[subclassKey][]string
	logger     *zap.Logger
}

// NewCache creates an empty cache
func NewCache(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		classes:    make(map[string]*domain.ClassDefinition),
		names:      make(map[string]string),
		subclasses: make(map[subclassKey][]string),
		logger:     logger.Named("cache"),
	}
}

// Class returns the resolved definition of a class, including inherited
// attributes. The result is a copy.
func (c *Cache) Class(ctx context.Context, tx repository.Tx, name string) (*domain.ClassDefinition, error) {
	def, err := c.class(ctx, tx, name, 0)
	if err != nil {
		return nil, err
	}
	return def.Clone(), nil
}

// Exists reports whether a class is defined
func (c *Cache) Exists(ctx context.Context, tx repository.Tx, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if _, err := c.class(ctx, tx, name, 0); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Cache) class(ctx context.Context, tx repository.Tx, name string, depth int) (*domain.ClassDefinition, error) {
	c.mu.RLock()
	def, ok := c.classes[name]
	c.mu.RUnlock()
	if ok {
		return def, nil
	}

	if depth > maxHierarchyDepth {
		return nil, fmt.Errorf("class hierarchy deeper than %d at %s", maxHierarchyDepth, name)
	}

	node, err := tx.FindNode(ctx, domain.LabelClass, domain.PropName, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up class %s: %w", name, err)
	}
	if node == nil {
		return nil, domain.ClassNotFound(name)
	}

	def = classFromNode(node)

	extends, err := tx.Edges(ctx, node.ID, repository.Outgoing, domain.EdgeExtends)
	if err != nil {
		return nil, err
	}
	var parent *domain.ClassDefinition
	if len(extends) > 0 {
		parentNode, err := tx.GetNode(ctx, extends[0].ToID)
		if err != nil {
			return nil, err
		}
		if parentNode == nil {
			return nil, fmt.Errorf("class %s extends a missing node %s", name, extends[0].ToID)
		}
		def.ParentClassName = parentNode.Name()
		if parent, err = c.class(ctx, tx, def.ParentClassName, depth+1); err != nil {
			return nil, err
		}
	}

	own, err := c.ownAttributes(ctx, tx, node.ID, name)
	if err != nil {
		return nil, err
	}

	// Inherited attributes first, skipping the ones redeclared locally
	declared := make(map[string]bool, len(own))
	for _, a := range own {
		declared[a.Name] = true
	}
	if parent != nil {
		for _, a := range parent.Attributes {
			if !declared[a.Name] {
				def.Attributes = append(def.Attributes, a)
			}
		}
	}
	def.Attributes = append(def.Attributes, own...)
	domain.SortAttributes(def.Attributes)

	c.mu.Lock()
	c.classes[name] = def
	c.names[def.ID] = name
	c.mu.Unlock()

	return def, nil
}

func (c *Cache) ownAttributes(ctx context.Context, tx repository.Tx, classID, className string) ([]domain.AttributeDefinition, error) {
	edges, err := tx.Edges(ctx, classID, repository.Outgoing, domain.EdgeHasAttribute)
	if err != nil {
		return nil, err
	}
	attrs := make([]domain.AttributeDefinition, 0, len(edges))
	for _, e := range edges {
		node, err := tx.GetNode(ctx, e.ToID)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		attrs = append(attrs, attributeFromNode(node, className))
	}
	return attrs, nil
}

// ClassNameByID resolves the name of the class stored in node classID
func (c *Cache) ClassNameByID(ctx context.Context, tx repository.Tx, classID string) (string, error) {
	c.mu.RLock()
	name, ok := c.names[classID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	node, err := tx.GetNode(ctx, classID)
	if err != nil {
		return "", err
	}
	if node == nil || !node.HasLabel(domain.LabelClass) {
		return "", domain.NotFoundf("no class stored under id %s", classID)
	}
	name = node.Name()

	c.mu.Lock()
	c.names[classID] = name
	c.mu.Unlock()
	return name, nil
}

// IsSubclassOf reports whether className is ancestor itself or one of its
// descendants. Unknown classes are never subclasses.
func (c *Cache) IsSubclassOf(ctx context.Context, tx repository.Tx, ancestor, className string) (bool, error) {
	if className == "" || ancestor == "" {
		return false, nil
	}
	if ancestor == className {
		return true, nil
	}

	current := className
	for i := 0; i < maxHierarchyDepth; i++ {
		def, err := c.class(ctx, tx, current, 0)
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if def.ParentClassName == "" {
			return false, nil
		}
		if def.ParentClassName == ancestor {
			return true, nil
		}
		current = def.ParentClassName
	}
	return false, fmt.Errorf("class hierarchy deeper than %d at %s", maxHierarchyDepth, className)
}

// UpstreamClassHierarchy returns the ancestors of className, nearest first
func (c *Cache) UpstreamClassHierarchy(ctx context.Context, tx repository.Tx, className string, includeSelf bool) ([]domain.ClassDefinitionLight, error) {
	def, err := c.class(ctx, tx, className, 0)
	if err != nil {
		return nil, err
	}

	var chain []domain.ClassDefinitionLight
	if includeSelf {
		chain = append(chain, def.Light())
	}
	for def.ParentClassName != "" {
		if len(chain) > maxHierarchyDepth {
			return nil, fmt.Errorf("class hierarchy deeper than %d at %s", maxHierarchyDepth, className)
		}
		if def, err = c.class(ctx, tx, def.ParentClassName, 0); err != nil {
			return nil, err
		}
		chain = append(chain, def.Light())
	}
	return chain, nil
}

// SubClasses returns the descendants of className ordered by name, the
// class itself first when IncludeSelf is set
func (c *Cache) SubClasses(ctx context.Context, tx repository.Tx, className string, opts SubClassOptions) ([]domain.ClassDefinitionLight, error) {
	self, err := c.class(ctx, tx, className, 0)
	if err != nil {
		return nil, err
	}

	names, err := c.subclassNames(ctx, tx, self, opts.Recursive)
	if err != nil {
		return nil, err
	}

	var result []domain.ClassDefinitionLight
	if opts.IncludeSelf && (opts.IncludeAbstract || !self.Abstract) {
		result = append(result, self.Light())
	}
	for _, name := range names {
		def, err := c.class(ctx, tx, name, 0)
		if err != nil {
			return nil, err
		}
		if def.Abstract && !opts.IncludeAbstract {
			continue
		}
		result = append(result, def.Light())
	}
	return result, nil
}

// SubClassNames is SubClasses reduced to names
func (c *Cache) SubClassNames(ctx context.Context, tx repository.Tx, className string, opts SubClassOptions) ([]string, error) {
	lights, err := c.SubClasses(ctx, tx, className, opts)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(lights))
	for i, l := range lights {
		names[i] = l.Name
	}
	return names, nil
}

func (c *Cache) subclassNames(ctx context.Context, tx repository.Tx, self *domain.ClassDefinition, recursive bool) ([]string, error) {
	key := subclassKey{name: self.Name, recursive: recursive}

	c.mu.RLock()
	names, ok := c.subclasses[key]
	c.mu.RUnlock()
	if ok {
		return names, nil
	}

	var ids []string
	if recursive {
		var err error
		if ids, err = tx.Traverse(ctx, self.ID, repository.Incoming, 0, domain.EdgeExtends); err != nil {
			return nil, err
		}
	} else {
		edges, err := tx.Edges(ctx, self.ID, repository.Incoming, domain.EdgeExtends)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			ids = append(ids, e.FromID)
		}
	}

	names = make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := c.ClassNameByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.Lock()
	c.subclasses[key] = names
	c.mu.Unlock()

	c.logger.Debug("subclass list built",
		zap.String("class", self.Name),
		zap.Bool("recursive", recursive),
		zap.Int("count", len(names)))
	return names, nil
}

// Invalidate drops the entries of className and of every class that
// transitively extends it, together with the subclass lists of its
// ancestors. The same entries are dropped again when tx commits or rolls
// back, so nothing built from uncommitted state outlives the transaction.
func (c *Cache) Invalidate(ctx context.Context, tx repository.Tx, className string) error {
	affected := []string{className}
	var lineage []string

	node, err := tx.FindNode(ctx, domain.LabelClass, domain.PropName, className)
	if err != nil {
		return err
	}
	if node != nil {
		// Breadth-first over inverse EXTENDS edges
		queue := []string{node.ID}
		seen := map[string]bool{node.ID: true}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			edges, err := tx.Edges(ctx, id, repository.Incoming, domain.EdgeExtends)
			if err != nil {
				return err
			}
			for _, e := range edges {
				if seen[e.FromID] {
					continue
				}
				seen[e.FromID] = true
				queue = append(queue, e.FromID)
				child, err := tx.GetNode(ctx, e.FromID)
				if err != nil {
					return err
				}
				if child != nil {
					affected = append(affected, child.Name())
				}
			}
		}

		ancestorIDs, err := tx.Traverse(ctx, node.ID, repository.Outgoing, 0, domain.EdgeExtends)
		if err != nil {
			return err
		}
		for _, id := range ancestorIDs {
			ancestor, err := tx.GetNode(ctx, id)
			if err != nil {
				return err
			}
			if ancestor != nil {
				lineage = append(lineage, ancestor.Name())
			}
		}
	}
	lineage = append(lineage, affected...)

	c.drop(affected, lineage)
	tx.OnCommit(func() { c.drop(affected, lineage) })
	tx.OnRollback(func() { c.drop(affected, lineage) })

	c.logger.Debug("classes invalidated", zap.Strings("classes", affected))
	return nil
}

// Forget drops a single class entry now and on the transaction outcome.
// Used for names that no longer resolve to a node, such as the old name of a
// renamed class.
func (c *Cache) Forget(tx repository.Tx, className string) {
	names := []string{className}
	c.drop(names, names)
	tx.OnCommit(func() { c.drop(names, names) })
	tx.OnRollback(func() { c.drop(names, names) })
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = make(map[string]*domain.ClassDefinition)
	c.names = make(map[string]string)
	c.subclasses = make(map[subclassKey][]string)
}

func (c *Cache) drop(classes, lineage []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gone := make(map[string]bool, len(classes))
	for _, name := range classes {
		delete(c.classes, name)
		gone[name] = true
	}
	for id, name := range c.names {
		if gone[name] {
			delete(c.names, id)
		}
	}
	for _, name := range lineage {
		delete(c.subclasses, subclassKey{name: name, recursive: true})
		delete(c.subclasses, subclassKey{name: name, recursive: false})
	}
}

// ============================================================================
// Node Mapping
// ============================================================================

func classFromNode(node *domain.Node) *domain.ClassDefinition {
	def := &domain.ClassDefinition{
		ID:          node.ID,
		Name:        node.Name(),
		DisplayName: node.String("displayName"),
		Description: node.String("description"),
		Abstract:    node.Bool("abstract"),
		InDesign:    node.Bool("inDesign"),
		Custom:      node.Bool("custom"),
		Countable:   node.Bool("countable"),
		Color:       int(node.Int("color")),
		Icon:        decodeIcon(node.String("icon")),
		SmallIcon:   decodeIcon(node.String("smallIcon")),
	}
	if ms := node.Int(domain.PropCreationDate); ms != 0 {
		def.CreationDate = time.UnixMilli(ms)
	}
	return def
}

func classProperties(def *domain.ClassDefinition) map[string]any {
	return map[string]any{
		domain.PropName:         def.Name,
		"displayName":           def.DisplayName,
		"description":           def.Description,
		"abstract":              def.Abstract,
		"inDesign":              def.InDesign,
		"custom":                def.Custom,
		"countable":             def.Countable,
		"color":                 int64(def.Color),
		"icon":                  encodeIcon(def.Icon),
		"smallIcon":             encodeIcon(def.SmallIcon),
		domain.PropCreationDate: def.CreationDate.UnixMilli(),
	}
}

func attributeFromNode(node *domain.Node, className string) domain.AttributeDefinition {
	return domain.AttributeDefinition{
		ID:          node.ID,
		Name:        node.Name(),
		DisplayName: node.String("displayName"),
		Description: node.String("description"),
		Type:        domain.ParseAttributeType(node.String("type")),
		Mandatory:   node.Bool("mandatory"),
		Unique:      node.Bool("unique"),
		Multiple:    node.Bool("multiple"),
		ReadOnly:    node.Bool("readOnly"),
		Visible:     node.Bool("visible"),
		NoCopy:      node.Bool("noCopy"),
		Order:       int(node.Int("order")),
		ClassName:   className,
	}
}

func attributeProperties(a *domain.AttributeDefinition) map[string]any {
	return map[string]any{
		domain.PropName: a.Name,
		"displayName":   a.DisplayName,
		"description":   a.Description,
		"type":          a.Type.String(),
		"mandatory":     a.Mandatory,
		"unique":        a.Unique,
		"multiple":      a.Multiple,
		"readOnly":      a.ReadOnly,
		"visible":       a.Visible,
		"noCopy":        a.NoCopy,
		"order":         int64(a.Order),
	}
}

func encodeIcon(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func decodeIcon(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
