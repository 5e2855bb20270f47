package unique

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
)

// Key identifies a unique attribute by the class that declares it
type Key struct {
	Class     string
	Attribute string
}

// Index tracks the values held by unique attributes. Reservations made
// inside a transaction are visible to every other caller at once, but only
// become committed state when the transaction commits.
type Index struct {
	cache  *metadata.Cache
	logger *zap.Logger

	mu        sync.Mutex
	committed map[Key]map[string]string // value -> object id
	pending   map[Key]map[string]string // value -> transaction id
	journals  map[string]*journal
}

type opKind int

const (
	opReserve opKind = iota
	opRelease
	opReplace
	opDrop
	opRenameAttribute
	opRenameClass
)

type op struct {
	kind     opKind
	key      Key
	value    string
	objectID string
	values   map[string]string
	newName  string
}

// journal is the ordered list of changes one transaction makes
type journal struct {
	ops      []op
	released map[Key]map[string]bool
}

// New creates an empty index
func New(cache *metadata.Cache, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		cache:     cache,
		logger:    logger.Named("unique"),
		committed: make(map[Key]map[string]string),
		pending:   make(map[Key]map[string]string),
		journals:  make(map[string]*journal),
	}
}

// Load rebuilds the committed state from the store
func (ix *Index) Load(ctx context.Context, tx repository.Tx) error {
	classes, err := tx.ListNodes(ctx, domain.LabelClass, nil, domain.Page{})
	if err != nil {
		return err
	}

	committed := make(map[Key]map[string]string)
	total := 0
	for _, class := range classes {
		def, err := ix.cache.Class(ctx, tx, class.Name())
		if err != nil {
			return err
		}
		for i := range def.Attributes {
			attr := &def.Attributes[i]
			if !attr.Unique || !attr.Type.CanBeUnique() {
				continue
			}
			key := Key{Class: attr.ClassName, Attribute: attr.Name}
			if committed[key] == nil {
				committed[key] = make(map[string]string)
			}

			// Direct instances only; subclasses are visited in their own turn
			edges, err := tx.Edges(ctx, def.ID, repository.Incoming, domain.EdgeInstanceOf)
			if err != nil {
				return err
			}
			for _, e := range edges {
				node, err := tx.GetNode(ctx, e.FromID)
				if err != nil {
					return err
				}
				if node == nil {
					continue
				}
				if v, ok := node.GetProperty(attr.Name); ok && !domain.IsEmptyValue(v) {
					committed[key][domain.FormatValue(attr.Type.Kind(), v)] = node.ID
					total++
				}
			}
		}
	}

	ix.mu.Lock()
	ix.committed = committed
	ix.pending = make(map[Key]map[string]string)
	ix.journals = make(map[string]*journal)
	ix.mu.Unlock()

	ix.logger.Info("unique index loaded", zap.Int("attributes", len(committed)), zap.Int("values", total))
	return nil
}

// Reserve claims value for objectID within tx. It fails with a conflict if
// the value is committed to another object or reserved by any open
// transaction.
func (ix *Index) Reserve(tx repository.Tx, key Key, value, objectID string) error {
	if value == "" {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	j := ix.journalFor(tx)
	if _, ok := ix.pending[key][value]; ok {
		return domain.UniqueConflict(key.Class, key.Attribute, value)
	}
	if _, ok := ix.committed[key][value]; ok && !j.released[key][value] {
		return domain.UniqueConflict(key.Class, key.Attribute, value)
	}

	if ix.pending[key] == nil {
		ix.pending[key] = make(map[string]string)
	}
	ix.pending[key][value] = tx.ID()
	delete(j.released[key], value)
	j.ops = append(j.ops, op{kind: opReserve, key: key, value: value, objectID: objectID})
	return nil
}

// Release gives value back within tx
func (ix *Index) Release(tx repository.Tx, key Key, value string) {
	if value == "" {
		return
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	j := ix.journalFor(tx)
	if owner, ok := ix.pending[key][value]; ok && owner == tx.ID() {
		delete(ix.pending[key], value)
	} else if _, ok := ix.committed[key][value]; ok {
		if j.released[key] == nil {
			j.released[key] = make(map[string]bool)
		}
		j.released[key][value] = true
	}
	j.ops = append(j.ops, op{kind: opRelease, key: key, value: value})
}

// Contains reports whether value is committed or reserved for key
func (ix *Index) Contains(key Key, value string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.pending[key][value]; ok {
		return true
	}
	_, ok := ix.committed[key][value]
	return ok
}

// Values returns a copy of the committed values of key
func (ix *Index) Values(key Key) map[string]string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	values := make(map[string]string, len(ix.committed[key]))
	for v, id := range ix.committed[key] {
		values[v] = id
	}
	return values
}

// ============================================================================
// Schema Tracking
// ============================================================================

// CanBecomeUnique reports whether the instances of className hold pairwise
// distinct values for attribute. Empty values are ignored.
func (ix *Index) CanBecomeUnique(ctx context.Context, tx repository.Tx, className, attribute string) (bool, error) {
	values, err := ix.scan(ctx, tx, className, attribute)
	if err != nil {
		return false, err
	}
	return values != nil, nil
}

// Track indexes the current values of a newly unique attribute once tx
// commits
func (ix *Index) Track(ctx context.Context, tx repository.Tx, className, attribute string) error {
	values, err := ix.scan(ctx, tx, className, attribute)
	if err != nil {
		return err
	}
	if values == nil {
		return domain.InvalidArgumentf("attribute %s holds duplicate values in class %s", attribute, className).
			WithClass(className).WithAttribute(attribute)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	j := ix.journalFor(tx)
	j.ops = append(j.ops, op{kind: opReplace, key: Key{Class: className, Attribute: attribute}, values: values})
	return nil
}

// Untrack forgets an attribute that is no longer unique once tx commits
func (ix *Index) Untrack(tx repository.Tx, className, attribute string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	j := ix.journalFor(tx)
	j.ops = append(j.ops, op{kind: opDrop, key: Key{Class: className, Attribute: attribute}})
}

// RenameAttribute rekeys an attribute once tx commits
func (ix *Index) RenameAttribute(tx repository.Tx, className, oldName, newName string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	j := ix.journalFor(tx)
	j.ops = append(j.ops, op{kind: opRenameAttribute, key: Key{Class: className, Attribute: oldName}, newName: newName})
}

// RenameClass rekeys every attribute declared by a class once tx commits
func (ix *Index) RenameClass(tx repository.Tx, oldName, newName string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	j := ix.journalFor(tx)
	j.ops = append(j.ops, op{kind: opRenameClass, key: Key{Class: oldName}, newName: newName})
}

// scan collects the values of attribute over the instances of className and
// its subclasses. It returns nil when a value repeats.
func (ix *Index) scan(ctx context.Context, tx repository.Tx, className, attribute string) (map[string]string, error) {
	def, err := ix.cache.Class(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	attr, ok := def.Attribute(attribute)
	if !ok {
		return nil, domain.NotFoundf("attribute %s could not be found in class %s", attribute, className).
			WithClass(className).WithAttribute(attribute)
	}

	instances, err := metadata.Instances(ctx, tx, ix.cache, className, false)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(instances))
	for _, node := range instances {
		v, ok := node.GetProperty(attr.Name)
		if !ok || domain.IsEmptyValue(v) {
			continue
		}
		canonical := domain.FormatValue(attr.Type.Kind(), v)
		if _, dup := values[canonical]; dup {
			return nil, nil
		}
		values[canonical] = node.ID
	}
	return values, nil
}

// ============================================================================
// Transaction Outcome
// ============================================================================

// journalFor returns the journal of tx, registering the outcome hooks the
// first time. Callers hold ix.mu.
func (ix *Index) journalFor(tx repository.Tx) *journal {
	id := tx.ID()
	if j, ok := ix.journals[id]; ok {
		return j
	}
	j := &journal{released: make(map[Key]map[string]bool)}
	ix.journals[id] = j
	tx.OnCommit(func() { ix.commit(id) })
	tx.OnRollback(func() { ix.rollback(id) })
	return j
}

func (ix *Index) commit(txID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	j, ok := ix.journals[txID]
	if !ok {
		return
	}
	delete(ix.journals, txID)

	for _, o := range j.ops {
		switch o.kind {
		case opReserve:
			if ix.committed[o.key] == nil {
				ix.committed[o.key] = make(map[string]string)
			}
			ix.committed[o.key][o.value] = o.objectID
			if ix.pending[o.key][o.value] == txID {
				delete(ix.pending[o.key], o.value)
			}
		case opRelease:
			delete(ix.committed[o.key], o.value)
		case opReplace:
			ix.committed[o.key] = o.values
		case opDrop:
			delete(ix.committed, o.key)
		case opRenameAttribute:
			if values, ok := ix.committed[o.key]; ok {
				delete(ix.committed, o.key)
				ix.committed[Key{Class: o.key.Class, Attribute: o.newName}] = values
			}
		case opRenameClass:
			for key, values := range ix.committed {
				if key.Class == o.key.Class {
					delete(ix.committed, key)
					ix.committed[Key{Class: o.newName, Attribute: key.Attribute}] = values
				}
			}
		}
	}
	ix.logger.Debug("unique journal applied", zap.String("tx", txID), zap.Int("ops", len(j.ops)))
}

func (ix *Index) rollback(txID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	j, ok := ix.journals[txID]
	if !ok {
		return
	}
	delete(ix.journals, txID)

	for _, o := range j.ops {
		if o.kind == opReserve && ix.pending[o.key][o.value] == txID {
			delete(ix.pending[o.key], o.value)
		}
	}
	ix.logger.Debug("unique journal discarded", zap.String("tx", txID), zap.Int("ops", len(j.ops)))
}
