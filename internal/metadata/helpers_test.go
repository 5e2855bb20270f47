package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
	"assetgraph/internal/repository/sqlite"
)

// testEnv wires a manager and its cache to an in-memory store
type testEnv struct {
	t       *testing.T
	ctx     context.Context
	db      *sqlite.Store
	cache   *Cache
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := NewCache(nil)
	return &testEnv{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		cache:   cache,
		manager: NewManager(cache, domain.DefaultCoreClasses(), nil, nil),
	}
}

// inTx runs fn in its own transaction, committing on success and rolling
// back on error
func (e *testEnv) inTx(fn func(tx repository.Tx) error) error {
	e.t.Helper()
	tx, err := e.db.Begin(e.ctx)
	require.NoError(e.t, err)
	if err := fn(tx); err != nil {
		require.NoError(e.t, tx.Rollback())
		return err
	}
	require.NoError(e.t, tx.Commit())
	return nil
}

func (e *testEnv) mustTx(fn func(tx repository.Tx) error) {
	e.t.Helper()
	require.NoError(e.t, e.inTx(fn))
}

func (e *testEnv) createClass(tx repository.Tx, name, parent string, abstract bool, attrs ...domain.AttributeDefinition) {
	e.t.Helper()
	_, err := e.manager.CreateClass(e.ctx, tx, domain.ClassDefinition{
		Name:            name,
		ParentClassName: parent,
		Abstract:        abstract,
		Custom:          true,
		Attributes:      attrs,
	})
	require.NoError(e.t, err, "creating class %s", name)
}

// seed builds a small hierarchy:
//
//	RootObject
//	├── InventoryObject
//	│   ├── GenericCommunicationsElement
//	│   │   └── Router
//	│   └── GenericPort
//	│       ├── EthernetPort
//	│       └── OpticalPort
//	└── GenericObjectList
//	    └── EquipmentVendor
func (e *testEnv) seed() {
	e.t.Helper()
	e.mustTx(func(tx repository.Tx) error {
		e.createClass(tx, "RootObject", "", true,
			domain.AttributeDefinition{Name: domain.PropName, Type: domain.Primitive(domain.KindString), Visible: true})
		e.createClass(tx, "InventoryObject", "RootObject", true)
		e.createClass(tx, "GenericCommunicationsElement", "InventoryObject", true)
		e.createClass(tx, "Router", "GenericCommunicationsElement", false,
			domain.AttributeDefinition{Name: "serialNumber", Type: domain.Primitive(domain.KindString)})
		e.createClass(tx, "GenericPort", "InventoryObject", true)
		e.createClass(tx, "EthernetPort", "GenericPort", false)
		e.createClass(tx, "OpticalPort", "GenericPort", false)
		e.createClass(tx, "GenericObjectList", "RootObject", true)
		e.createClass(tx, "EquipmentVendor", "GenericObjectList", false)
		return nil
	})
}

// instantiate stores a bare instance of className, the way the object
// store does it
func (e *testEnv) instantiate(tx repository.Tx, className string, props map[string]any) string {
	e.t.Helper()
	def, err := e.cache.Class(e.ctx, tx, className)
	require.NoError(e.t, err)

	node := domain.NewNode("", domain.LabelInventoryObject)
	for k, v := range props {
		node.SetProperty(k, v)
	}
	require.NoError(e.t, tx.CreateNode(e.ctx, node))
	require.NoError(e.t, tx.CreateEdge(e.ctx, domain.NewEdge(node.ID, def.ID, domain.EdgeInstanceOf)))
	return node.ID
}

func ptr[T any](v T) *T {
	return &v
}
