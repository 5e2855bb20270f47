package objects

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

func (e *testEnv) poolItems(poolID string) []string {
	e.t.Helper()
	var names []string
	e.mustTx(func(tx repository.Tx) error {
		items, err := e.store.PoolItems(e.ctx, tx, poolID, domain.Page{})
		names = lightNames(items)
		return err
	})
	return names
}

func TestPools(t *testing.T) {
	env := newTestEnv(t)

	var spares, sub string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if spares, err = env.store.CreatePool(env.ctx, tx, "", "Spares", "Spare equipment", "GenericCommunicationsElement", 1); err != nil {
			return err
		}
		sub, err = env.store.CreatePool(env.ctx, tx, spares, "Routers", "", "Router", 0)
		return err
	})

	env.mustTx(func(tx repository.Tx) error {
		pool, err := env.store.Pool(env.ctx, tx, spares)
		require.NoError(t, err)
		assert.Equal(t, &domain.Pool{
			ID:          spares,
			Name:        "Spares",
			Description: "Spare equipment",
			ClassName:   "GenericCommunicationsElement",
			Type:        1,
		}, pool)

		nested, err := env.store.Pool(env.ctx, tx, sub)
		require.NoError(t, err)
		assert.Equal(t, spares, nested.ParentID)

		roots, err := env.store.RootPools(env.ctx, tx, "")
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, spares, roots[0].ID)

		roots, err = env.store.RootPools(env.ctx, tx, "City")
		require.NoError(t, err)
		assert.Empty(t, roots)
		return nil
	})
}

func TestPoolItems(t *testing.T) {
	env := newTestEnv(t)

	var spares, sub, item string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if spares, err = env.store.CreatePool(env.ctx, tx, "", "Spares", "", "GenericCommunicationsElement", 0); err != nil {
			return err
		}
		if sub, err = env.store.CreatePool(env.ctx, tx, spares, "Routers", "", "Router", 0); err != nil {
			return err
		}
		item, err = env.store.CreatePoolItem(env.ctx, tx, spares, "Router", map[string]string{domain.PropName: "spare-1", "serialNumber": "P1"}, "")
		return err
	})
	assert.Equal(t, []string{"spare-1"}, env.poolItems(spares))

	env.mustTx(func(tx repository.Tx) error {
		parent, err := env.store.Parent(env.ctx, tx, "Router", item)
		require.NoError(t, err)
		assert.Equal(t, spares, parent.ID)
		assert.Equal(t, "Spares", parent.Name)

		// Pool membership is not special containment
		special, err := env.store.SpecialParents(env.ctx, tx, "Router", item)
		require.NoError(t, err)
		assert.Empty(t, special)
		return nil
	})

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.CreatePoolItem(env.ctx, tx, spares, "City", nil, "")
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrOperationNotPermitted), "got %v", err)

	env.mustTx(func(tx repository.Tx) error {
		return env.store.MovePoolItem(env.ctx, tx, sub, "Router", item)
	})
	assert.Empty(t, env.poolItems(spares))
	assert.Equal(t, []string{"spare-1"}, env.poolItems(sub))

	err = env.inTx(func(tx repository.Tx) error {
		_, err := env.store.CopyPoolItem(env.ctx, tx, spares, "Router", item, false)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
	assert.Empty(t, env.poolItems(spares))

	env.mustTx(func(tx repository.Tx) error {
		return env.store.DeletePools(env.ctx, tx, []string{spares}, false)
	})
	assert.False(t, env.exists(sub))
	assert.False(t, env.exists(item))
	assert.False(t, env.index.Contains(serialKey(), "P1"))

	err = env.inTx(func(tx repository.Tx) error {
		_, err := env.store.PoolItems(env.ctx, tx, spares, domain.Page{})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestCopyPoolItem(t *testing.T) {
	env := newTestEnv(t)

	var spares, item string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if spares, err = env.store.CreatePool(env.ctx, tx, "", "Spares", "", "Router", 0); err != nil {
			return err
		}
		item, err = env.store.CreatePoolItem(env.ctx, tx, spares, "Router", map[string]string{domain.PropName: "spare-1", "serialNumber": "P1"}, "")
		return err
	})
	env.relaxSerialNumber()

	var clone string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		clone, err = env.store.CopyPoolItem(env.ctx, tx, spares, "Router", item, false)
		return err
	})
	assert.NotEqual(t, item, clone)
	assert.Equal(t, []string{"spare-1", "spare-1"}, env.poolItems(spares))
	assert.Equal(t, "P1", env.get("Router", clone).Attributes["serialNumber"])
}

func TestMoveOutOfPool(t *testing.T) {
	env := newTestEnv(t)
	s := env.site()

	var spares, item string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if spares, err = env.store.CreatePool(env.ctx, tx, "", "Spares", "", "Router", 0); err != nil {
			return err
		}
		item, err = env.store.CreatePoolItem(env.ctx, tx, spares, "Router", map[string]string{domain.PropName: "spare-1", "serialNumber": "P1"}, "")
		return err
	})

	env.mustTx(func(tx repository.Tx) error {
		return env.store.Move(env.ctx, tx, "Building", s.building, domain.ObjectsByClass{"Router": {item}})
	})
	assert.Empty(t, env.poolItems(spares))
	assert.Equal(t, []string{"r-SN1", "spare-1"}, env.children("Building", s.building))

	env.mustTx(func(tx repository.Tx) error {
		parent, err := env.store.Parent(env.ctx, tx, "Router", item)
		require.NoError(t, err)
		assert.Equal(t, s.building, parent.ID)

		edges, err := tx.Edges(env.ctx, item, repository.Outgoing, domain.EdgeChildOf, domain.EdgeChildOfSpecial)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, domain.EdgeChildOf, edges[0].Type)
		return nil
	})
}

func TestDeletePoolsRejectsObjects(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")

	err := env.inTx(func(tx repository.Tx) error {
		return env.store.DeletePools(env.ctx, tx, []string{router}, false)
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
	assert.True(t, env.exists(router))
}
