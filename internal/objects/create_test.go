package objects

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

func TestCreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")
	card := env.create("Card", "Router", router, map[string]string{domain.PropName: "lc-0", "model": "X1"})
	port := env.create("EthernetPort", "Card", card, map[string]string{domain.PropName: "ge-0/0/0", "speed": "1000"})

	obj := env.get("GenericPort", port)
	assert.Equal(t, "EthernetPort", obj.ClassName)
	assert.Equal(t, "ge-0/0/0", obj.Name)
	assert.Equal(t, map[string]string{"speed": "1000"}, obj.Attributes)
	assert.False(t, obj.CreationDate.IsZero())

	env.mustTx(func(tx repository.Tx) error {
		parent, err := env.store.Parent(env.ctx, tx, "EthernetPort", port)
		require.NoError(t, err)
		assert.Equal(t, domain.BusinessObjectLight{ID: card, ClassName: "Card", Name: "lc-0"}, parent)

		parent, err = env.store.Parent(env.ctx, tx, "Router", router)
		require.NoError(t, err)
		assert.Equal(t, domain.DummyRootLight(), parent)
		return nil
	})
}

func TestGetChecksClass(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Get(env.ctx, tx, "GenericPort", router)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrBusinessObjectNotFound), "got %v", err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Get(env.ctx, tx, "NoSuchClass", router)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	root := env.get(domain.DummyRootClass, domain.DummyRootID)
	assert.Equal(t, domain.DummyRootID, root.ID)
	root = env.get("", domain.DummyRootID)
	assert.Equal(t, domain.DummyRootClass, root.ClassName)

	// "-1" under a real class is just a missing router
	err = env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Get(env.ctx, tx, "Router", domain.DummyRootID)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrBusinessObjectNotFound), "got %v", err)
}

func TestCreateRespectsContainmentRules(t *testing.T) {
	env := newTestEnv(t)
	city := env.create("City", "", domain.DummyRootID, map[string]string{domain.PropName: "Lyon"})

	tests := []struct {
		name        string
		class       string
		parentClass string
		parentID    string
		kind        error
	}{
		{"no rule under the root", "Building", "", domain.DummyRootID, domain.ErrOperationNotPermitted},
		{"no rule under the parent", "EthernetPort", "City", city, domain.ErrOperationNotPermitted},
		{"abstract class", "GenericPort", "City", city, domain.ErrOperationNotPermitted},
		{"class in design", "Shelf", "City", city, domain.ErrOperationNotPermitted},
		{"unknown class", "Switch", "City", city, domain.ErrNotFound},
		{"unknown parent", "Building", "City", "no-such-id", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.store.Create(env.ctx, tx, tt.class, tt.parentClass, tt.parentID, nil, "")
				return err
			})
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}

	// The parent class may be left out; the rule is checked on the parent's
	// actual class
	building := env.create("Building", "", city, map[string]string{domain.PropName: "B1"})
	assert.Equal(t, []string{"B1"}, env.children("City", city))
	assert.Equal(t, "Building", env.get("", building).ClassName)
}

func TestCreateSpecial(t *testing.T) {
	env := newTestEnv(t)
	city := env.create("City", "", domain.DummyRootID, map[string]string{domain.PropName: "Lyon"})

	var linked, orphan string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if linked, err = env.store.CreateSpecial(env.ctx, tx, "OpticalLink", "City", city, map[string]string{domain.PropName: "l1"}, ""); err != nil {
			return err
		}
		orphan, err = env.store.CreateSpecial(env.ctx, tx, "OpticalLink", "", "", map[string]string{domain.PropName: "l2"}, "")
		return err
	})

	env.mustTx(func(tx repository.Tx) error {
		special, err := env.store.SpecialChildren(env.ctx, tx, "City", city, domain.Page{})
		require.NoError(t, err)
		assert.Equal(t, []string{"l1"}, lightNames(special))

		parents, err := env.store.SpecialParents(env.ctx, tx, "OpticalLink", linked)
		require.NoError(t, err)
		assert.Equal(t, []string{"Lyon"}, lightNames(parents))

		_, err = env.store.Parent(env.ctx, tx, "OpticalLink", orphan)
		assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
		return nil
	})
	assert.Empty(t, env.children("City", city))

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.CreateSpecial(env.ctx, tx, "Building", "City", city, nil, "")
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrOperationNotPermitted), "got %v", err)
}

func TestUniqueSerialNumbers(t *testing.T) {
	env := newTestEnv(t)
	createRouter := func(serial string) (string, error) {
		var id string
		err := env.inTx(func(tx repository.Tx) error {
			var err error
			id, err = env.store.Create(env.ctx, tx, "Router", "", domain.DummyRootID, map[string]string{"serialNumber": serial}, "")
			return err
		})
		return id, err
	}

	r1, err := createRouter("SN1")
	require.NoError(t, err)

	_, err = createRouter("SN1")
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = createRouter("SN2")
	require.NoError(t, err)

	env.mustTx(func(tx repository.Tx) error {
		return env.store.Delete(env.ctx, tx, "Router", r1, false)
	})
	assert.False(t, env.index.Contains(serialKey(), "SN1"))

	_, err = createRouter("SN1")
	assert.NoError(t, err)
}

func TestRolledBackCreateFreesUniqueValue(t *testing.T) {
	env := newTestEnv(t)

	err := env.inTx(func(tx repository.Tx) error {
		if _, err := env.store.Create(env.ctx, tx, "Router", "", domain.DummyRootID, map[string]string{"serialNumber": "SN9"}, ""); err != nil {
			return err
		}
		assert.True(t, env.index.Contains(serialKey(), "SN9"))
		return errors.New("abort")
	})
	require.Error(t, err)

	assert.False(t, env.index.Contains(serialKey(), "SN9"))
	env.router("", domain.DummyRootID, "SN9")
	assert.Equal(t, 1, len(env.index.Values(serialKey())))
}

func TestUpdateMovesUniqueReservation(t *testing.T) {
	env := newTestEnv(t)
	r1 := env.router("", domain.DummyRootID, "SN1")
	env.router("", domain.DummyRootID, "SN2")

	var changes *domain.ChangeDescriptor
	env.mustTx(func(tx repository.Tx) error {
		var err error
		changes, err = env.store.Update(env.ctx, tx, "Router", r1, map[string]string{"serialNumber": "SN3"})
		return err
	})
	assert.Equal(t, []string{"serialNumber"}, changes.AffectedProperties)
	assert.Equal(t, []string{"SN1"}, changes.OldValues)
	assert.Equal(t, []string{"SN3"}, changes.NewValues)
	assert.Equal(t, map[string]string{"SN2": "", "SN3": r1}, withoutOwners(env.index.Values(serialKey()), r1))

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Update(env.ctx, tx, "Router", r1, map[string]string{"serialNumber": "SN2"})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrConflict), "got %v", err)

	// The released value is free again
	env.router("", domain.DummyRootID, "SN1")
}

// withoutOwners blanks the owners of values not held by keep
func withoutOwners(values map[string]string, keep string) map[string]string {
	out := make(map[string]string, len(values))
	for v, owner := range values {
		if owner != keep {
			owner = ""
		}
		out[v] = owner
	}
	return out
}

func TestMandatoryAttributes(t *testing.T) {
	env := newTestEnv(t)

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Create(env.ctx, tx, "Router", "", domain.DummyRootID, map[string]string{domain.PropName: "r"}, "")
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)

	router := env.router("", domain.DummyRootID, "SN1")
	err = env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Update(env.ctx, tx, "Router", router, map[string]string{"serialNumber": ""})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
	assert.Equal(t, "SN1", env.get("Router", router).Attributes["serialNumber"])

	// Untouched mandatory attributes are not checked on update
	env.mustTx(func(tx repository.Tx) error {
		_, err := env.store.Update(env.ctx, tx, "Router", router, map[string]string{"hostname": "core-1"})
		return err
	})
}

func TestAttributeValidation(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")

	tests := []struct {
		name  string
		attrs map[string]string
	}{
		{"unknown attribute", map[string]string{"color": "red"}},
		{"malformed integer", map[string]string{"speed": "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.store.Create(env.ctx, tx, "EthernetPort", "Router", router, tt.attrs, "")
				return err
			})
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestUpdateRecordsChanges(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")
	card := env.create("Card", "Router", router, map[string]string{domain.PropName: "lc-0", "model": "X1"})

	var changes *domain.ChangeDescriptor
	env.mustTx(func(tx repository.Tx) error {
		var err error
		changes, err = env.store.Update(env.ctx, tx, "Card", card, map[string]string{domain.PropName: "lc-1", "model": "X1"})
		return err
	})
	assert.Equal(t, []string{domain.PropName}, changes.AffectedProperties)
	assert.Equal(t, []string{"lc-0"}, changes.OldValues)
	assert.Equal(t, []string{"lc-1"}, changes.NewValues)

	env.mustTx(func(tx repository.Tx) error {
		var err error
		changes, err = env.store.Update(env.ctx, tx, "Card", card, map[string]string{"model": ""})
		return err
	})
	assert.Equal(t, []string{"model"}, changes.AffectedProperties)
	assert.NotContains(t, env.get("Card", card).Attributes, "model")

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.store.Update(env.ctx, tx, domain.DummyRootClass, domain.DummyRootID, map[string]string{domain.PropName: "x"})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrOperationNotPermitted), "got %v", err)
}

func TestListTypeAttributes(t *testing.T) {
	env := newTestEnv(t)

	var cisco, juniper, sfp string
	env.mustTx(func(tx repository.Tx) error {
		var err error
		if cisco, err = env.store.CreateListTypeItem(env.ctx, tx, "EquipmentVendor", "Cisco", "Cisco Systems"); err != nil {
			return err
		}
		if juniper, err = env.store.CreateListTypeItem(env.ctx, tx, "EquipmentVendor", "Juniper", ""); err != nil {
			return err
		}
		sfp, err = env.store.CreateListTypeItem(env.ctx, tx, "PortType", "SFP", "")
		return err
	})

	router := env.create("Router", "", domain.DummyRootID, map[string]string{"serialNumber": "SN1", "vendor": cisco})
	assert.Equal(t, cisco, env.get("Router", router).Attributes["vendor"])

	env.mustTx(func(tx repository.Tx) error {
		_, err := env.store.Update(env.ctx, tx, "Router", router, map[string]string{"vendor": juniper})
		return err
	})
	assert.Equal(t, juniper, env.get("Router", router).Attributes["vendor"])

	for name, value := range map[string]string{
		"two values for a single attribute": cisco + ";" + juniper,
		"item of another list type":         sfp,
		"not a list item":                   router,
	} {
		t.Run(name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.store.Update(env.ctx, tx, "Router", router, map[string]string{"vendor": value})
				return err
			})
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		})
	}

	env.mustTx(func(tx repository.Tx) error {
		items, err := env.store.ListTypeItems(env.ctx, tx, "GenericObjectList")
		require.NoError(t, err)
		assert.Equal(t, []string{"Cisco", "Juniper", "SFP"}, lightNames(items))

		_, err = env.store.ListTypeItems(env.ctx, tx, "Router")
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)

		_, err = env.store.CreateListTypeItem(env.ctx, tx, "Router", "x", "")
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		return nil
	})

	err := env.inTx(func(tx repository.Tx) error {
		return env.store.DeleteListTypeItem(env.ctx, tx, "EquipmentVendor", juniper, false)
	})
	assert.True(t, errors.Is(err, domain.ErrOperationNotPermitted), "got %v", err)

	env.mustTx(func(tx repository.Tx) error {
		return env.store.DeleteListTypeItem(env.ctx, tx, "EquipmentVendor", juniper, true)
	})
	assert.NotContains(t, env.get("Router", router).Attributes, "vendor")
}

func TestObjectsOfClass(t *testing.T) {
	env := newTestEnv(t)
	router := env.router("", domain.DummyRootID, "SN1")
	env.create("OpticalPort", "Router", router, map[string]string{domain.PropName: "b"})
	env.create("EthernetPort", "Router", router, map[string]string{domain.PropName: "a"})
	env.create("EthernetPort", "Router", router, map[string]string{domain.PropName: "c"})

	env.mustTx(func(tx repository.Tx) error {
		all, err := env.store.ObjectsOfClass(env.ctx, tx, "GenericPort", domain.Page{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, lightNames(all))

		page, err := env.store.ObjectsOfClass(env.ctx, tx, "GenericPort", domain.Page{Skip: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, lightNames(page))

		ethernet, err := env.store.ObjectsOfClass(env.ctx, tx, "EthernetPort", domain.Page{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, lightNames(ethernet))
		return nil
	})
}
