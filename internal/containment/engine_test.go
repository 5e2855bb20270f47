package containment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/metadata"
	"assetgraph/internal/repository"
	"assetgraph/internal/repository/sqlite"
)

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	db      *sqlite.Store
	manager *metadata.Manager
	engine  *Engine
}

// newTestEnv seeds:
//
//	InventoryObject
//	├── GenericLocation (abstract)
//	│   ├── Building
//	│   └── Room
//	├── Router
//	├── Port (abstract)
//	│   ├── EthernetPort
//	│   └── OpticalPort
//	└── GenericObjectList (abstract)
//	    └── EquipmentVendor
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := metadata.NewCache(nil)
	core := domain.DefaultCoreClasses()
	env := &testEnv{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		manager: metadata.NewManager(cache, core, nil, nil),
		engine:  New(cache, core, nil),
	}

	env.mustTx(func(tx repository.Tx) error {
		for _, c := range []struct {
			name, parent string
			abstract     bool
		}{
			{"InventoryObject", "", false},
			{"GenericLocation", "InventoryObject", true},
			{"Building", "GenericLocation", false},
			{"Room", "GenericLocation", false},
			{"Router", "InventoryObject", false},
			{"Port", "InventoryObject", true},
			{"EthernetPort", "Port", false},
			{"OpticalPort", "Port", false},
			{"GenericObjectList", "InventoryObject", true},
			{"EquipmentVendor", "GenericObjectList", false},
		} {
			if _, err := env.manager.CreateClass(env.ctx, tx, domain.ClassDefinition{
				Name:            c.name,
				ParentClassName: c.parent,
				Abstract:        c.abstract,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return env
}

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

func (e *testEnv) canBeChild(parent, child string) bool {
	e.t.Helper()
	var ok bool
	e.mustTx(func(tx repository.Tx) error {
		var err error
		ok, err = e.engine.CanBeChild(e.ctx, tx, parent, child)
		return err
	})
	return ok
}

func names(classes []domain.ClassDefinitionLight) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

func TestAbstractRuleCoversConcreteDescendants(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, false)
	})

	assert.True(t, env.canBeChild("Router", "EthernetPort"))
	assert.True(t, env.canBeChild("Router", "OpticalPort"))
	assert.True(t, env.canBeChild("Router", "Port"))
	assert.False(t, env.canBeChild("Router", "Building"))
	assert.False(t, env.canBeChild("Building", "EthernetPort"))
}

func TestConcreteRuleCoversOnlyItself(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Building", []string{"Room"}, false)
	})

	assert.True(t, env.canBeChild("Building", "Room"))
	assert.False(t, env.canBeChild("Building", "Building"))
	assert.False(t, env.canBeChild("Room", "Building"))
}

func TestDummyRootRules(t *testing.T) {
	env := newTestEnv(t)

	// Every spelling of the sentinel designates the same anchor
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "", []string{"Router"}, false)
	})
	for _, parent := range []string{"", domain.DummyRootClass, domain.DummyRootID} {
		assert.True(t, env.canBeChild(parent, "Router"), "parent %q", parent)
		assert.False(t, env.canBeChild(parent, "Building"), "parent %q", parent)
	}

	env.mustTx(func(tx repository.Tx) error {
		children, err := env.engine.PossibleChildrenNoRecursive(env.ctx, tx, domain.DummyRootClass, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Router"}, names(children))
		return nil
	})
}

func TestSpecialRulesAreSeparate(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, true)
	})

	assert.False(t, env.canBeChild("Router", "EthernetPort"))
	env.mustTx(func(tx repository.Tx) error {
		ok, err := env.engine.CanBeSpecialChild(env.ctx, tx, "Router", "EthernetPort")
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
}

func TestAddPossibleChildrenRejects(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		if err := env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, false); err != nil {
			return err
		}
		return env.engine.AddPossibleChildren(env.ctx, tx, "Building", []string{"Room"}, false)
	})

	tests := []struct {
		name     string
		parent   string
		children []string
		kind     error
	}{
		{"abstract parent", "GenericLocation", []string{"Room"}, domain.ErrInvalidArgument},
		{"exact duplicate", "Building", []string{"Room"}, domain.ErrInvalidArgument},
		{"covered by an abstract rule", "Router", []string{"EthernetPort"}, domain.ErrInvalidArgument},
		{"unknown child", "Router", []string{"Switch"}, domain.ErrNotFound},
		{"unknown parent", "Switch", []string{"Router"}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				return env.engine.AddPossibleChildren(env.ctx, tx, tt.parent, tt.children, false)
			})
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestAbstractRuleOverExistingDescendantRuleRejected(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"EthernetPort"}, false)
	})

	err := env.inTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, false)
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func TestAddPossibleChildrenIsAtomic(t *testing.T) {
	env := newTestEnv(t)

	err := env.inTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Building", []string{"Room", "NoSuchClass"}, false)
	})
	require.Error(t, err)
	assert.False(t, env.canBeChild("Building", "Room"))
}

func TestRemovePossibleChildren(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, false)
	})
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.RemovePossibleChildren(env.ctx, tx, "Router", []string{"Port", "Building"}, false)
	})

	assert.False(t, env.canBeChild("Router", "EthernetPort"))
}

func TestPossibleChildren(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port", "Building"}, false)
	})

	env.mustTx(func(tx repository.Tx) error {
		expanded, err := env.engine.PossibleChildren(env.ctx, tx, "Router", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Building", "EthernetPort", "OpticalPort"}, names(expanded))

		declared, err := env.engine.PossibleChildrenNoRecursive(env.ctx, tx, "Router", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Building", "Port"}, names(declared))

		special, err := env.engine.PossibleChildren(env.ctx, tx, "Router", true)
		require.NoError(t, err)
		assert.Empty(t, special)
		return nil
	})
}

func TestUpstreamContainmentHierarchy(t *testing.T) {
	env := newTestEnv(t)
	env.mustTx(func(tx repository.Tx) error {
		if err := env.engine.AddPossibleChildren(env.ctx, tx, "", []string{"GenericLocation"}, false); err != nil {
			return err
		}
		if err := env.engine.AddPossibleChildren(env.ctx, tx, "Building", []string{"Room", "Router"}, false); err != nil {
			return err
		}
		if err := env.engine.AddPossibleChildren(env.ctx, tx, "Room", []string{"Router"}, false); err != nil {
			return err
		}
		return env.engine.AddPossibleChildren(env.ctx, tx, "Router", []string{"Port"}, false)
	})

	env.mustTx(func(tx repository.Tx) error {
		direct, err := env.engine.UpstreamContainmentHierarchy(env.ctx, tx, "EthernetPort", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Router"}, names(direct))

		all, err := env.engine.UpstreamContainmentHierarchy(env.ctx, tx, "EthernetPort", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Building", "Room", "Router"}, names(all))
		return nil
	})
}

func TestRuleTargetsMustBeBusinessObjects(t *testing.T) {
	env := newTestEnv(t)
	core := domain.DefaultCoreClasses()
	core.BusinessObject = "GenericLocation"
	engine := New(metadata.NewCache(nil), core, nil)

	err := env.inTx(func(tx repository.Tx) error {
		return engine.AddPossibleChildren(env.ctx, tx, "Building", []string{"Router"}, false)
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}
