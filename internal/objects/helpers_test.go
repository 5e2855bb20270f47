package objects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"assetgraph/internal/containment"
	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
	"assetgraph/internal/repository/sqlite"
	"assetgraph/internal/unique"
)

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	db      *sqlite.Store
	cache   *metadata.Cache
	manager *metadata.Manager
	rules   *containment.Engine
	index   *unique.Index
	store   *Store
}

// newTestEnv wires a store to an in-memory database seeded with:
//
//	RootObject (name)
//	├── InventoryObject
//	│   ├── GenericLocation
//	│   │   ├── City
//	│   │   └── Building
//	│   ├── GenericCommunicationsElement
//	│   │   └── Router (serialNumber unique mandatory, hostname no-copy, vendor)
//	│   ├── Card (model)
//	│   ├── GenericPort (speed)
//	│   │   ├── EthernetPort
//	│   │   └── OpticalPort
//	│   ├── GenericPhysicalConnection
//	│   │   └── OpticalLink
//	│   └── Shelf (in design)
//	└── GenericObjectList
//	    ├── EquipmentVendor
//	    └── PortType
//
// with the containment rules
//
//	DummyRoot: City, Router
//	City:      Building
//	Building:  Router
//	Router:    GenericPort, Card
//	Card:      GenericPort
//	City:      OpticalLink (special)
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	core := domain.DefaultCoreClasses()
	cache := metadata.NewCache(nil)
	index := unique.New(cache, nil)
	rules := containment.New(cache, core, nil)
	env := &testEnv{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		cache:   cache,
		manager: metadata.NewManager(cache, core, index, nil),
		rules:   rules,
		index:   index,
		store:   New(cache, rules, index, core, Options{}, nil),
	}

	str := domain.Primitive(domain.KindString)
	env.mustTx(func(tx repository.Tx) error {
		env.createClass(tx, domain.ClassDefinition{Name: "RootObject", Abstract: true, Attributes: []domain.AttributeDefinition{
			{Name: domain.PropName, Type: str, Visible: true},
		}})
		env.createClass(tx, domain.ClassDefinition{Name: "InventoryObject", ParentClassName: "RootObject", Abstract: true})
		env.createClass(tx, domain.ClassDefinition{Name: "GenericObjectList", ParentClassName: "RootObject", Abstract: true})
		env.createClass(tx, domain.ClassDefinition{Name: "EquipmentVendor", ParentClassName: "GenericObjectList"})
		env.createClass(tx, domain.ClassDefinition{Name: "PortType", ParentClassName: "GenericObjectList"})

		env.createClass(tx, domain.ClassDefinition{Name: "GenericLocation", ParentClassName: "InventoryObject", Abstract: true})
		env.createClass(tx, domain.ClassDefinition{Name: "City", ParentClassName: "GenericLocation"})
		env.createClass(tx, domain.ClassDefinition{Name: "Building", ParentClassName: "GenericLocation"})
		env.createClass(tx, domain.ClassDefinition{Name: "GenericCommunicationsElement", ParentClassName: "InventoryObject", Abstract: true})
		env.createClass(tx, domain.ClassDefinition{Name: "Router", ParentClassName: "GenericCommunicationsElement", Attributes: []domain.AttributeDefinition{
			{Name: "serialNumber", Type: str, Unique: true, Mandatory: true},
			{Name: "hostname", Type: str, NoCopy: true},
			{Name: "vendor", Type: domain.ListType("EquipmentVendor")},
		}})
		env.createClass(tx, domain.ClassDefinition{Name: "Card", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
			{Name: "model", Type: str},
		}})
		env.createClass(tx, domain.ClassDefinition{Name: "GenericPort", ParentClassName: "InventoryObject", Abstract: true, Attributes: []domain.AttributeDefinition{
			{Name: "speed", Type: domain.Primitive(domain.KindInteger)},
		}})
		env.createClass(tx, domain.ClassDefinition{Name: "EthernetPort", ParentClassName: "GenericPort"})
		env.createClass(tx, domain.ClassDefinition{Name: "OpticalPort", ParentClassName: "GenericPort"})
		env.createClass(tx, domain.ClassDefinition{Name: "GenericPhysicalConnection", ParentClassName: "InventoryObject", Abstract: true})
		env.createClass(tx, domain.ClassDefinition{Name: "OpticalLink", ParentClassName: "GenericPhysicalConnection"})
		env.createClass(tx, domain.ClassDefinition{Name: "Shelf", ParentClassName: "InventoryObject", InDesign: true})

		for _, r := range []struct {
			parent   string
			children []string
			special  bool
		}{
			{"", []string{"City", "Router"}, false},
			{"City", []string{"Building"}, false},
			{"Building", []string{"Router"}, false},
			{"Router", []string{"GenericPort", "Card"}, false},
			{"Card", []string{"GenericPort"}, false},
			{"City", []string{"OpticalLink"}, true},
		} {
			if err := rules.AddPossibleChildren(env.ctx, tx, r.parent, r.children, r.special); err != nil {
				return err
			}
		}
		return nil
	})
	return env
}

func (e *testEnv) createClass(tx repository.Tx, def domain.ClassDefinition) {
	e.t.Helper()
	def.Custom = true
	_, err := e.manager.CreateClass(e.ctx, tx, def)
	require.NoError(e.t, err, "creating class %s", def.Name)
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

// create commits a new object and returns its id
func (e *testEnv) create(className, parentClass, parentID string, attrs map[string]string) string {
	e.t.Helper()
	var id string
	e.mustTx(func(tx repository.Tx) error {
		var err error
		id, err = e.store.Create(e.ctx, tx, className, parentClass, parentID, attrs, "")
		return err
	})
	return id
}

func (e *testEnv) router(parentClass, parentID, serial string) string {
	e.t.Helper()
	return e.create("Router", parentClass, parentID, map[string]string{domain.PropName: "r-" + serial, "serialNumber": serial})
}

func (e *testEnv) get(className, id string) *domain.BusinessObject {
	e.t.Helper()
	var obj *domain.BusinessObject
	e.mustTx(func(tx repository.Tx) error {
		var err error
		obj, err = e.store.Get(e.ctx, tx, className, id)
		return err
	})
	return obj
}

func (e *testEnv) children(className, id string) []string {
	e.t.Helper()
	var names []string
	e.mustTx(func(tx repository.Tx) error {
		children, err := e.store.Children(e.ctx, tx, className, id, domain.Page{})
		names = lightNames(children)
		return err
	})
	return names
}

func (e *testEnv) exists(id string) bool {
	e.t.Helper()
	var node *domain.Node
	e.mustTx(func(tx repository.Tx) error {
		var err error
		node, err = tx.GetNode(e.ctx, id)
		return err
	})
	return node != nil
}

func lightNames(objs []domain.BusinessObjectLight) []string {
	names := make([]string, len(objs))
	for i, o := range objs {
		names[i] = o.Name
	}
	return names
}

// relaxSerialNumber drops the unique flag of Router.serialNumber so that
// routers can be copied
func (e *testEnv) relaxSerialNumber() {
	e.t.Helper()
	off := false
	e.mustTx(func(tx repository.Tx) error {
		_, err := e.manager.SetAttributeProperties(e.ctx, tx, "Router", "serialNumber", domain.AttributePatch{Unique: &off})
		return err
	})
}

func serialKey() unique.Key {
	return unique.Key{Class: "Router", Attribute: "serialNumber"}
}
