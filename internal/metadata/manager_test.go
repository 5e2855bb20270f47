package metadata

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

func TestCreateClassRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	def := domain.ClassDefinition{
		Name:            "Switch",
		ParentClassName: "GenericCommunicationsElement",
		DisplayName:     "Switch",
		Description:     "Layer 2 switch",
		InDesign:        true,
		Custom:          true,
		Countable:       true,
		Color:           0x336699,
		Icon:            []byte{0x89, 0x50, 0x4e, 0x47},
		SmallIcon:       []byte{0x01},
		Attributes: []domain.AttributeDefinition{
			{Name: "firmware", DisplayName: "Firmware", Type: domain.Primitive(domain.KindString), Visible: true, Order: 1},
			{Name: "ports", Type: domain.Primitive(domain.KindInteger), Mandatory: true, Order: 2},
			{Name: "vendor", Type: domain.ListType("EquipmentVendor"), Multiple: true, NoCopy: true, Order: 3},
		},
	}

	env.mustTx(func(tx repository.Tx) error {
		_, err := env.manager.CreateClass(env.ctx, tx, def)
		require.NoError(t, err)

		got, err := env.manager.Class(env.ctx, tx, "Switch")
		require.NoError(t, err)

		// Drop what the class inherits so only its own declarations remain
		var own []domain.AttributeDefinition
		for _, a := range got.Attributes {
			if a.ClassName == "Switch" {
				own = append(own, a)
			}
		}
		got.Attributes = own

		opts := cmp.Options{
			cmpopts.IgnoreFields(domain.ClassDefinition{}, "ID", "CreationDate"),
			cmpopts.IgnoreFields(domain.AttributeDefinition{}, "ID", "ClassName"),
			cmp.Comparer(func(a, b domain.AttributeType) bool { return a == b }),
		}
		if diff := cmp.Diff(&def, got, opts); diff != "" {
			t.Errorf("class mismatch (-want +got):\n%s", diff)
		}
		assert.False(t, got.CreationDate.IsZero())
		return nil
	})
}

func TestCreateClassValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	tests := []struct {
		name string
		def  domain.ClassDefinition
		kind error
	}{
		{
			name: "second root",
			def:  domain.ClassDefinition{Name: "OtherRoot"},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "duplicate name",
			def:  domain.ClassDefinition{Name: "Router", ParentClassName: "InventoryObject"},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "invalid characters",
			def:  domain.ClassDefinition{Name: "Core Router", ParentClassName: "InventoryObject"},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "unknown parent",
			def:  domain.ClassDefinition{Name: "Switch", ParentClassName: "NoSuchClass"},
			kind: domain.ErrNotFound,
		},
		{
			name: "attribute declared twice",
			def: domain.ClassDefinition{Name: "Switch", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
				{Name: "firmware"}, {Name: "firmware"},
			}},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "list type attribute of a non list class",
			def: domain.ClassDefinition{Name: "Switch", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
				{Name: "uplink", Type: domain.ListType("Router")},
			}},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "list type attribute of the list type root",
			def: domain.ClassDefinition{Name: "Switch", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
				{Name: "vendor", Type: domain.ListType("GenericObjectList")},
			}},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "multiple primitive",
			def: domain.ClassDefinition{Name: "Switch", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
				{Name: "tags", Type: domain.Primitive(domain.KindString), Multiple: true},
			}},
			kind: domain.ErrInvalidArgument,
		},
		{
			name: "unique boolean",
			def: domain.ClassDefinition{Name: "Switch", ParentClassName: "InventoryObject", Attributes: []domain.AttributeDefinition{
				{Name: "managed", Type: domain.Primitive(domain.KindBoolean), Unique: true},
			}},
			kind: domain.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.manager.CreateClass(env.ctx, tx, tt.def)
				return err
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestClassesCanLeaveOutListTypes(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	env.mustTx(func(tx repository.Tx) error {
		all, err := env.manager.Classes(env.ctx, tx, true)
		require.NoError(t, err)
		assert.Len(t, all, len(seededClasses))

		noLists, err := env.manager.Classes(env.ctx, tx, false)
		require.NoError(t, err)
		for _, c := range noLists {
			assert.NotEqual(t, "EquipmentVendor", c.Name)
			assert.NotEqual(t, "GenericObjectList", c.Name)
		}
		assert.Len(t, noLists, len(seededClasses)-2)
		return nil
	})
}

func TestDeleteClassWhileInstancesExist(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	var routerID string
	env.mustTx(func(tx repository.Tx) error {
		routerID = env.instantiate(tx, "Router", map[string]any{domain.PropName: "r1"})
		return nil
	})

	err := env.inTx(func(tx repository.Tx) error {
		return env.manager.DeleteClass(env.ctx, tx, "Router")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	env.mustTx(func(tx repository.Tx) error {
		return tx.DeleteNode(env.ctx, routerID)
	})
	env.mustTx(func(tx repository.Tx) error {
		return env.manager.DeleteClass(env.ctx, tx, "Router")
	})
	env.mustTx(func(tx repository.Tx) error {
		exists, err := env.cache.Exists(env.ctx, tx, "Router")
		require.NoError(t, err)
		assert.False(t, exists)

		subs, err := env.cache.SubClassNames(env.ctx, tx, "InventoryObject", SubClassOptions{Recursive: true})
		require.NoError(t, err)
		assert.NotContains(t, subs, "Router")
		return nil
	})
}

func TestDeleteClassRefusals(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustTx(func(tx repository.Tx) error {
		_, err := env.manager.CreateClass(env.ctx, tx, domain.ClassDefinition{Name: "Chassis", ParentClassName: "InventoryObject"})
		require.NoError(t, err)
		_, err = env.manager.CreateAttribute(env.ctx, tx, "Router", domain.AttributeDefinition{
			Name: "vendor",
			Type: domain.ListType("EquipmentVendor"),
		})
		return err
	})

	for _, class := range []string{"Chassis", "GenericPort", "EquipmentVendor"} {
		t.Run(class, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				return env.manager.DeleteClass(env.ctx, tx, class)
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestDeleteClassRemovesTemplates(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	var templateID string
	env.mustTx(func(tx repository.Tx) error {
		def, err := env.cache.Class(env.ctx, tx, "Router")
		require.NoError(t, err)

		tmpl := domain.NewNode("", domain.LabelTemplate)
		tmpl.SetProperty(domain.PropName, "edge router")
		require.NoError(t, tx.CreateNode(env.ctx, tmpl))
		require.NoError(t, tx.CreateEdge(env.ctx, domain.NewEdge(tmpl.ID, def.ID, domain.EdgeInstanceOfSpecial)))
		require.NoError(t, tx.CreateEdge(env.ctx, domain.NewEdge(def.ID, tmpl.ID, domain.EdgeHasTemplate)))
		templateID = tmpl.ID
		return nil
	})

	env.mustTx(func(tx repository.Tx) error {
		return env.manager.DeleteClass(env.ctx, tx, "Router")
	})
	env.mustTx(func(tx repository.Tx) error {
		node, err := tx.GetNode(env.ctx, templateID)
		require.NoError(t, err)
		assert.Nil(t, node)
		return nil
	})
}

func TestSetClassPropertiesRename(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	env.mustTx(func(tx repository.Tx) error {
		// Warm the subclass so it has to notice the new parent name
		_, err := env.cache.Class(env.ctx, tx, "Router")
		require.NoError(t, err)

		changes, err := env.manager.SetClassProperties(env.ctx, tx, "GenericCommunicationsElement", domain.ClassPatch{
			Name:        ptr("GenericNetworkElement"),
			Description: ptr("active equipment"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "description"}, changes.AffectedProperties)
		assert.Equal(t, []string{"GenericCommunicationsElement", ""}, changes.OldValues)
		return nil
	})

	env.mustTx(func(tx repository.Tx) error {
		_, err := env.cache.Class(env.ctx, tx, "GenericCommunicationsElement")
		assert.True(t, errors.Is(err, domain.ErrNotFound))

		router, err := env.cache.Class(env.ctx, tx, "Router")
		require.NoError(t, err)
		assert.Equal(t, "GenericNetworkElement", router.ParentClassName)
		return nil
	})
}

func TestSetClassPropertiesRejects(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustTx(func(tx repository.Tx) error {
		env.instantiate(tx, "Router", nil)
		return nil
	})

	tests := []struct {
		name  string
		class string
		patch domain.ClassPatch
	}{
		{"rename collision", "Router", domain.ClassPatch{Name: ptr("EthernetPort")}},
		{"invalid name", "Router", domain.ClassPatch{Name: ptr("core router")}},
		{"abstract with instances", "Router", domain.ClassPatch{Abstract: ptr(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.manager.SetClassProperties(env.ctx, tx, tt.class, tt.patch)
				return err
			})
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestSetClassPropertiesNoChange(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	env.mustTx(func(tx repository.Tx) error {
		changes, err := env.manager.SetClassProperties(env.ctx, tx, "Router", domain.ClassPatch{Name: ptr("Router")})
		require.NoError(t, err)
		assert.True(t, changes.Empty())
		return nil
	})
}

func TestRenamingListTypeRetargetsAttributes(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	env.mustTx(func(tx repository.Tx) error {
		_, err := env.manager.CreateAttribute(env.ctx, tx, "Router", domain.AttributeDefinition{
			Name: "vendor",
			Type: domain.ListType("EquipmentVendor"),
		})
		require.NoError(t, err)
		_, err = env.manager.SetClassProperties(env.ctx, tx, "EquipmentVendor", domain.ClassPatch{Name: ptr("Vendor")})
		return err
	})

	env.mustTx(func(tx repository.Tx) error {
		def, err := env.cache.Class(env.ctx, tx, "Router")
		require.NoError(t, err)
		vendor, ok := def.Attribute("vendor")
		require.True(t, ok)
		assert.Equal(t, "Vendor", vendor.Type.ListClass())
		return nil
	})
}

func TestCreateAttributeNameMustBeFree(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	tests := []struct {
		name  string
		class string
		attr  string
	}{
		{"inherited", "Router", domain.PropName},
		{"own", "Router", "serialNumber"},
		{"declared by a subclass", "InventoryObject", "serialNumber"},
		{"invalid characters", "Router", "serial-number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.inTx(func(tx repository.Tx) error {
				_, err := env.manager.CreateAttribute(env.ctx, tx, tt.class, domain.AttributeDefinition{Name: tt.attr})
				return err
			})
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestCreateMandatoryAttributeWithInstances(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustTx(func(tx repository.Tx) error {
		env.instantiate(tx, "EthernetPort", nil)
		return nil
	})

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.manager.CreateAttribute(env.ctx, tx, "GenericPort", domain.AttributeDefinition{
			Name:      "speed",
			Type:      domain.Primitive(domain.KindInteger),
			Mandatory: true,
		})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func TestSetAttributeProperties(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	var routerID string
	env.mustTx(func(tx repository.Tx) error {
		routerID = env.instantiate(tx, "Router", map[string]any{"serialNumber": "SN1"})
		return nil
	})

	t.Run("mandatory when every instance has a value", func(t *testing.T) {
		env.mustTx(func(tx repository.Tx) error {
			changes, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", "serialNumber", domain.AttributePatch{
				Mandatory: ptr(true),
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"mandatory"}, changes.AffectedProperties)
			return nil
		})
	})

	t.Run("rename moves stored values", func(t *testing.T) {
		env.mustTx(func(tx repository.Tx) error {
			_, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", "serialNumber", domain.AttributePatch{
				Name: ptr("serial"),
			})
			return err
		})
		env.mustTx(func(tx repository.Tx) error {
			node, err := tx.GetNode(env.ctx, routerID)
			require.NoError(t, err)
			assert.Equal(t, "SN1", node.String("serial"))
			_, stale := node.GetProperty("serialNumber")
			assert.False(t, stale)

			def, err := env.cache.Class(env.ctx, tx, "Router")
			require.NoError(t, err)
			assert.True(t, def.HasAttribute("serial"))
			assert.False(t, def.HasAttribute("serialNumber"))
			return nil
		})
	})

	t.Run("type change refused while values exist", func(t *testing.T) {
		err := env.inTx(func(tx repository.Tx) error {
			_, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", "serial", domain.AttributePatch{
				Type: ptr(domain.Primitive(domain.KindInteger)),
			})
			return err
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
	})

	t.Run("name is protected", func(t *testing.T) {
		err := env.inTx(func(tx repository.Tx) error {
			_, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", domain.PropName, domain.AttributePatch{
				Name: ptr("label"),
			})
			return err
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
	})

	t.Run("changes reach the declaring class", func(t *testing.T) {
		env.mustTx(func(tx repository.Tx) error {
			_, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", domain.PropName, domain.AttributePatch{
				DisplayName: ptr("Name"),
			})
			require.NoError(t, err)

			for _, class := range []string{"RootObject", "EthernetPort", "EquipmentVendor"} {
				def, err := env.cache.Class(env.ctx, tx, class)
				require.NoError(t, err)
				attr, ok := def.Attribute(domain.PropName)
				require.True(t, ok)
				assert.Equal(t, "Name", attr.DisplayName, class)
			}
			return nil
		})
	})
}

func TestSetAttributeMandatoryWithMissingValues(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustTx(func(tx repository.Tx) error {
		env.instantiate(tx, "Router", map[string]any{"serialNumber": "SN1"})
		env.instantiate(tx, "Router", nil)
		return nil
	})

	err := env.inTx(func(tx repository.Tx) error {
		_, err := env.manager.SetAttributeProperties(env.ctx, tx, "Router", "serialNumber", domain.AttributePatch{
			Mandatory: ptr(true),
		})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func TestDeleteAttribute(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	var routerID string
	env.mustTx(func(tx repository.Tx) error {
		routerID = env.instantiate(tx, "Router", map[string]any{"serialNumber": "SN1"})
		return nil
	})

	for _, tt := range []struct{ class, attr string }{
		{"Router", domain.PropName},
		{"Router", domain.PropCreationDate},
	} {
		err := env.inTx(func(tx repository.Tx) error {
			return env.manager.DeleteAttribute(env.ctx, tx, tt.class, tt.attr)
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "deleting %s: %v", tt.attr, err)
	}

	err := env.inTx(func(tx repository.Tx) error {
		return env.manager.DeleteAttribute(env.ctx, tx, "Router", "missing")
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	env.mustTx(func(tx repository.Tx) error {
		return env.manager.DeleteAttribute(env.ctx, tx, "Router", "serialNumber")
	})
	env.mustTx(func(tx repository.Tx) error {
		node, err := tx.GetNode(env.ctx, routerID)
		require.NoError(t, err)
		_, ok := node.GetProperty("serialNumber")
		assert.False(t, ok)

		def, err := env.cache.Class(env.ctx, tx, "Router")
		require.NoError(t, err)
		assert.False(t, def.HasAttribute("serialNumber"))
		return nil
	})
}

func TestDeleteInheritedAttributeRefused(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	env.mustTx(func(tx repository.Tx) error {
		_, err := env.manager.CreateAttribute(env.ctx, tx, "GenericPort", domain.AttributeDefinition{Name: "speed"})
		return err
	})

	err := env.inTx(func(tx repository.Tx) error {
		return env.manager.DeleteAttribute(env.ctx, tx, "EthernetPort", "speed")
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
}

func TestEnsureDummyRootIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	env.mustTx(func(tx repository.Tx) error {
		require.NoError(t, EnsureDummyRoot(env.ctx, tx))
		require.NoError(t, EnsureDummyRoot(env.ctx, tx))

		n, err := tx.CountNodes(env.ctx, domain.LabelDummyRoot)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		root, err := tx.GetNode(env.ctx, domain.DummyRootID)
		require.NoError(t, err)
		assert.Equal(t, domain.DummyRootClass, root.Name())
		return nil
	})
}
