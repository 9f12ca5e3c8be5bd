// Package storetest holds the behavioural contract every StoreGateway must
// satisfy. Gateway packages run it from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// Factory returns a fresh, empty gateway for one subtest.
type Factory func(t *testing.T) types.StoreGateway

const storeFlags = types.FlagConfigStore | types.FlagAllowExternal | types.FlagAllowLocal

func spec(name string) types.ApplicationSpec {
	return types.ApplicationSpec{
		Name:         name,
		Description:  name + " settings",
		ContactInfo:  "ops@example.com",
		UserAccount:  types.DefaultUserAccount,
		AdminAccount: types.DefaultAdminAccount,
	}
}

// seed creates an enabled application with the sentinel field plus keys.
func seed(t *testing.T, gw types.StoreGateway, name string, keys ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, gw.CreateApplication(ctx, spec(name), storeFlags, len(keys)+1))
	require.NoError(t, gw.CreateFieldInfo(ctx, name, "dummy", 0))
	for _, k := range keys {
		require.NoError(t, gw.CreateFieldInfo(ctx, name, k, 0))
	}
	require.NoError(t, gw.UpdateApplication(ctx, name, types.FlagEnabled, types.FlagEnabled))
}

// Run exercises the gateway contract against gateways built by factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("created application is disabled and reports metadata", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 3))

		info, err := gw.GetApplicationInfo(ctx, "Billing")
		require.NoError(t, err)
		assert.Equal(t, "Billing", info.Name)
		assert.Equal(t, "Billing settings", info.Description)
		assert.Equal(t, "ops@example.com", info.ContactInfo)
		assert.Equal(t, types.DefaultUserAccount, info.UserAccount)
		assert.Equal(t, types.DefaultAdminAccount, info.AdminAccount)
		assert.True(t, info.Flags.Has(types.FlagConfigStore))
		assert.False(t, info.Flags.Has(types.FlagEnabled))
		assert.Equal(t, 0, info.FieldCount)
	})

	t.Run("duplicate application is rejected", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1))
		err := gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1)
		assert.ErrorIs(t, err, types.ErrApplicationExists)
	})

	t.Run("application names are case-sensitive", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1))
		require.NoError(t, gw.CreateApplication(ctx, spec("billing"), storeFlags, 1))
	})

	t.Run("field count hint must be positive", func(t *testing.T) {
		gw := factory(t)
		err := gw.CreateApplication(ctx, spec("Billing"), storeFlags, 0)
		assert.ErrorIs(t, err, types.ErrInvalidFieldCount)
	})

	t.Run("field on missing application is not found", func(t *testing.T) {
		gw := factory(t)
		err := gw.CreateFieldInfo(ctx, "Missing", "host", 0)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("duplicate field is reported and leaves schema unchanged", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host")

		err := gw.CreateFieldInfo(ctx, "Billing", "HOST", 0)
		assert.ErrorIs(t, err, types.ErrDuplicateField)

		info, err := gw.GetApplicationInfo(ctx, "Billing")
		require.NoError(t, err)
		assert.Equal(t, 2, info.FieldCount)
	})

	t.Run("write to disabled application fails", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1))
		require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", "dummy", 0))
		require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", "host", 0))

		err := gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"host": "db1"}))
		assert.ErrorIs(t, err, types.ErrApplicationDisabled)
	})

	t.Run("write with undeclared key fails", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host")

		err := gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"host": "db1", "port": "5432"}))
		assert.ErrorIs(t, err, types.ErrFieldNotDeclared)
	})

	t.Run("round trip keeps declaration order and masks and hides the reserved field", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 2))
		require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", "dummy", 0))
		require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", "user", 0))
		require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", "password", types.FieldMasked))
		require.NoError(t, gw.UpdateApplication(ctx, "Billing", types.FlagEnabled, types.FlagEnabled))

		bag := types.BagOf(
			types.Property{Key: "PASSWORD", Value: "s3cret"},
			types.Property{Key: "user", Value: "svc"},
		)
		require.NoError(t, gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, bag))

		got, err := gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		require.NoError(t, err)
		assert.Equal(t, []string{"user", "password"}, got.Keys())
		assert.Equal(t, map[string]string{"user": "svc", "password": "s3cret"}, got.Map())

		p, ok := got.Lookup("password")
		require.True(t, ok)
		assert.True(t, p.Masked)
		assert.False(t, got.Has("dummy"))
	})

	t.Run("partial write blanks omitted fields instead of removing them", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host", "port")

		require.NoError(t, gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"host": "db1", "port": "5432"})))
		require.NoError(t, gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"port": "5433"})))

		got, err := gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"host": "", "port": "5433"}, got.Map())
	})

	t.Run("read of unwritten identifier or missing application is not found", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host")

		_, err := gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		assert.ErrorIs(t, err, types.ErrNotFound)

		_, err = gw.GetConfigInfo(ctx, "Missing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		assert.ErrorIs(t, err, types.ErrNotFound)

		_, err = gw.GetApplicationInfo(ctx, "Missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("both read modes see the same data", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host")
		require.NoError(t, gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"host": "db1"})))

		runtime, err := gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		require.NoError(t, err)
		store, err := gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeConfigStore)
		require.NoError(t, err)
		assert.Equal(t, runtime.Map(), store.Map())
	})

	t.Run("update replaces only masked bits", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1))

		require.NoError(t, gw.UpdateApplication(ctx, "Billing", types.FlagEnabled, types.FlagEnabled))
		info, err := gw.GetApplicationInfo(ctx, "Billing")
		require.NoError(t, err)
		assert.Equal(t, storeFlags|types.FlagEnabled, info.Flags)

		require.NoError(t, gw.UpdateApplication(ctx, "Billing", 0, types.FlagEnabled))
		info, err = gw.GetApplicationInfo(ctx, "Billing")
		require.NoError(t, err)
		assert.Equal(t, storeFlags, info.Flags)

		assert.ErrorIs(t, gw.UpdateApplication(ctx, "Missing", types.FlagEnabled, types.FlagEnabled), types.ErrNotFound)
	})

	t.Run("delete removes schema and values", func(t *testing.T) {
		gw := factory(t)
		seed(t, gw, "Billing", "host")
		require.NoError(t, gw.SetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties,
			types.BagFromMap(map[string]string{"host": "db1"})))

		require.NoError(t, gw.DeleteApplication(ctx, "Billing"))
		_, err := gw.GetApplicationInfo(ctx, "Billing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.ErrorIs(t, gw.DeleteApplication(ctx, "Billing"), types.ErrNotFound)

		require.NoError(t, gw.CreateApplication(ctx, spec("Billing"), storeFlags, 1))
		info, err := gw.GetApplicationInfo(ctx, "Billing")
		require.NoError(t, err)
		assert.Equal(t, 0, info.FieldCount, "recreated application starts with an empty schema")
		_, err = gw.GetConfigInfo(ctx, "Billing", types.IdentifierConfigProperties, types.ReadModeRuntime)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("enumeration filters by flags in creation order", func(t *testing.T) {
		gw := factory(t)
		require.NoError(t, gw.CreateApplication(ctx, spec("Zeta"), storeFlags, 1))
		require.NoError(t, gw.CreateApplication(ctx, spec("Alpha"), storeFlags, 1))
		require.NoError(t, gw.CreateApplication(ctx, spec("Individual"), types.FlagAllowLocal, 1))
		require.NoError(t, gw.CreateApplication(ctx, spec("Mid"), storeFlags, 1))
		require.NoError(t, gw.DeleteApplication(ctx, "Alpha"))

		apps, err := gw.EnumerateApplications(ctx, types.FlagConfigStore, types.FlagConfigStore)
		require.NoError(t, err)

		names := make([]string, 0, len(apps))
		for _, a := range apps {
			names = append(names, a.Name)
		}
		assert.Equal(t, []string{"Zeta", "Mid"}, names)
		assert.Equal(t, "ops@example.com", apps[0].ContactInfo)
		assert.Equal(t, "Zeta settings", apps[0].Description)
	})
}
