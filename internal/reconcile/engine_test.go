package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mesh-intelligence/ssoconfig/internal/memstore"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

var errFault = errors.New("store fault")

func billingSpec() types.ApplicationSpec {
	return types.ApplicationSpec{
		Name:         "Billing",
		Description:  "billing service",
		ContactInfo:  "billing@example.com",
		UserAccount:  types.DefaultUserAccount,
		AdminAccount: types.DefaultAdminAccount,
	}
}

func newEngine(t *testing.T, opts ...Option) (*Engine, *memstore.Store) {
	t.Helper()
	gw := memstore.New()
	return NewEngine(gw, opts...), gw
}

func props(t *testing.T, e *Engine, name string) map[string]string {
	t.Helper()
	app, err := e.ReadProperties(context.Background(), name)
	require.NoError(t, err)
	return app.Properties.Map()
}

func TestEndToEndBilling(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagOf(types.Property{Key: "host", Value: "db1"})))
	assert.Equal(t, map[string]string{"host": "db1"}, props(t, e, "Billing"))

	require.NoError(t, e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"port": "5432"})))
	assert.Equal(t, map[string]string{"host": "db1", "port": "5432"}, props(t, e, "Billing"))

	require.NoError(t, e.ReplaceAllProperties(ctx, "Billing", types.BagFromMap(map[string]string{"port": "5433"})))
	assert.Equal(t, map[string]string{"port": "5433"}, props(t, e, "Billing"))
}

func TestCreateApplicationProtocol(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)

	bag := types.BagOf(
		types.Property{Key: "user", Value: "svc"},
		types.Property{Key: "password", Value: "s3cret", Masked: true},
	)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), bag))

	assert.Equal(t, []memstore.Call{
		{Op: memstore.OpCreateApplication, App: "Billing", Detail: "2"},
		{Op: memstore.OpCreateFieldInfo, App: "Billing", Detail: SentinelField},
		{Op: memstore.OpCreateFieldInfo, App: "Billing", Detail: "user"},
		{Op: memstore.OpCreateFieldInfo, App: "Billing", Detail: "password"},
		{Op: memstore.OpUpdateApplication, App: "Billing"},
		{Op: memstore.OpSetConfigInfo, App: "Billing", Detail: types.IdentifierConfigProperties},
	}, gw.Calls())

	info, err := gw.GetApplicationInfo(ctx, "Billing")
	require.NoError(t, err)
	assert.Equal(t, CreateFlags|types.FlagEnabled, info.Flags)
	assert.Equal(t, 3, info.FieldCount)

	app, err := e.ReadProperties(ctx, "Billing")
	require.NoError(t, err)
	p, ok := app.Properties.Lookup("password")
	require.True(t, ok)
	assert.True(t, p.Masked)
	assert.Equal(t, "billing service", app.Description)
}

func TestCreateEmptyApplicationUsesPlaceholderHint(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)

	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.NewPropertyBag()))

	calls := gw.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "1", calls[0].Detail)

	info, err := gw.GetApplicationInfo(ctx, "Billing")
	require.NoError(t, err)
	assert.Equal(t, 1, info.FieldCount, "only the sentinel is declared")

	app, err := e.ReadProperties(ctx, "Billing")
	assert.ErrorIs(t, err, types.ErrNoProperties)
	require.NotNil(t, app)
	assert.Equal(t, "Billing", app.Name)
}

func TestCreateApplicationRejectsEmptyName(t *testing.T) {
	e, gw := newEngine(t)
	err := e.CreateApplication(context.Background(), types.ApplicationSpec{}, types.NewPropertyBag())
	assert.ErrorIs(t, err, types.ErrInvalidName)
	assert.Empty(t, gw.Calls())
}

func TestSentinelKeyIsRejectedBeforeTouchingStore(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	bag := types.BagFromMap(map[string]string{"DUMMY": "x", "a": "1"})

	assert.ErrorIs(t, e.CreateApplication(ctx, billingSpec(), bag), types.ErrInvalidPropertyName)
	assert.Empty(t, gw.Calls())

	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"a": "1"})))
	gw.ResetCalls()
	assert.ErrorIs(t, e.ReplaceAllProperties(ctx, "Billing", bag), types.ErrInvalidPropertyName)
	assert.Empty(t, gw.Calls())
	assert.Equal(t, map[string]string{"a": "1"}, props(t, e, "Billing"))
}

func TestCreateApplicationShellFailureIsPlain(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.NewPropertyBag()))

	err := e.CreateApplication(ctx, billingSpec(), types.NewPropertyBag())
	assert.ErrorIs(t, err, types.ErrApplicationExists)
	assert.False(t, types.IsPartialFailure(err))
}

func TestCreateApplicationPartialFailure(t *testing.T) {
	tests := []struct {
		name     string
		fault    memstore.Fault
		wantStep string
	}{
		{"sentinel", memstore.Fault{Op: memstore.OpCreateFieldInfo, Err: errFault}, StepDeclareSentinel},
		{"field", memstore.Fault{Op: memstore.OpCreateFieldInfo, Skip: 1, Err: errFault}, StepDeclareFields},
		{"enable", memstore.Fault{Op: memstore.OpUpdateApplication, Err: errFault}, StepEnable},
		{"write", memstore.Fault{Op: memstore.OpSetConfigInfo, Err: errFault}, StepWriteProperties},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			core, logs := observer.New(zapcore.ErrorLevel)
			e, gw := newEngine(t, WithLogger(zap.New(core)))
			gw.Inject(tt.fault)

			err := e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"}))
			require.Error(t, err)
			assert.ErrorIs(t, err, errFault)

			var pf *types.PartialFailureError
			require.True(t, errors.As(err, &pf))
			assert.Equal(t, OpCreate, pf.Op)
			assert.Equal(t, tt.wantStep, pf.Step)
			assert.False(t, pf.ApplicationDeleted)

			_, err = gw.GetApplicationInfo(ctx, "Billing")
			assert.NoError(t, err, "partially created application is not rolled back")
			assert.Equal(t, 1, logs.FilterMessage("create left application partially configured").Len())
		})
	}
}

func TestMergeKeepsUnmentionedProperties(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(),
		types.BagFromMap(map[string]string{"host": "db1", "port": "5432", "user": "svc"})))

	update := types.BagFromMap(map[string]string{"PORT": "6543", "timeout": "30s"})
	require.NoError(t, e.MergeUpdateProperties(ctx, "Billing", update))

	assert.Equal(t, map[string]string{
		"host":    "db1",
		"port":    "6543",
		"user":    "svc",
		"timeout": "30s",
	}, props(t, e, "Billing"))
}

func TestMergeKeepsStoredMasks(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(),
		types.BagOf(types.Property{Key: "password", Value: "old", Masked: true})))

	require.NoError(t, e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"password": "new"})))

	app, err := e.ReadProperties(ctx, "Billing")
	require.NoError(t, err)
	p, _ := app.Properties.Lookup("password")
	assert.Equal(t, "new", p.Value)
	assert.True(t, p.Masked)
}

func TestMergePreReadStoreFailureKeepsStoredValues(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	storeErr := &types.StoreError{Op: "GetConfigInfo", App: "Billing", Code: "E42", Message: "timeout"}
	gw.Inject(memstore.Fault{Op: memstore.OpGetConfigInfo, Err: storeErr})
	gw.ResetCalls()

	err := e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"port": "5432"}))
	require.Error(t, err)
	assert.True(t, types.IsStoreFailure(err))
	assert.False(t, types.IsPartialFailure(err))

	for _, c := range gw.Calls() {
		assert.NotEqual(t, memstore.OpSetConfigInfo, c.Op)
	}
	assert.Equal(t, map[string]string{"host": "db1"}, props(t, e, "Billing"))
}

func TestMergeRejectsSentinelKey(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.ResetCalls()

	err := e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"Dummy": "x"}))
	assert.ErrorIs(t, err, types.ErrInvalidPropertyName)
	assert.Empty(t, gw.Calls())
}

func TestMergeIntoNeverWrittenApplication(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, gw.CreateApplication(ctx, billingSpec(), CreateFlags, 1))
	require.NoError(t, gw.CreateFieldInfo(ctx, "Billing", SentinelField, 0))

	require.NoError(t, e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"host": "db1"})))
	assert.Equal(t, map[string]string{"host": "db1"}, props(t, e, "Billing"))
}

func TestMergeMissingApplication(t *testing.T) {
	e, _ := newEngine(t)
	err := e.MergeUpdateProperties(context.Background(), "Missing", types.BagFromMap(map[string]string{"host": "db1"}))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMergeWriteFailureIsPropagated(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpSetConfigInfo, Err: errFault})

	err := e.MergeUpdateProperties(ctx, "Billing", types.BagFromMap(map[string]string{"host": "db2"}))
	assert.ErrorIs(t, err, errFault)
	assert.False(t, types.IsPartialFailure(err))
}

func TestReplaceYieldsExactlyTheNewSet(t *testing.T) {
	tests := []struct {
		name   string
		before map[string]string
		after  map[string]string
	}{
		{"drop and add", map[string]string{"host": "db1", "port": "5432"}, map[string]string{"port": "5433", "user": "svc"}},
		{"shrink to one", map[string]string{"a": "1", "b": "2", "c": "3"}, map[string]string{"b": "20"}},
		{"grow from empty", map[string]string{}, map[string]string{"host": "db1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e, gw := newEngine(t)
			require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(tt.before)))

			require.NoError(t, e.ReplaceAllProperties(ctx, "Billing", types.BagFromMap(tt.after)))
			assert.Equal(t, tt.after, props(t, e, "Billing"))

			info, err := gw.GetApplicationInfo(ctx, "Billing")
			require.NoError(t, err)
			assert.Equal(t, len(tt.after)+1, info.FieldCount, "schema holds only the sentinel and the new keys")
			assert.Equal(t, "billing@example.com", info.ContactInfo)
			assert.Equal(t, "billing service", info.Description)
		})
	}
}

func TestReplaceResetsMasks(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(),
		types.BagOf(types.Property{Key: "password", Value: "old", Masked: true})))

	require.NoError(t, e.ReplaceAllProperties(ctx, "Billing",
		types.BagOf(types.Property{Key: "password", Value: "new", Masked: true})))

	app, err := e.ReadProperties(ctx, "Billing")
	require.NoError(t, err)
	p, _ := app.Properties.Lookup("password")
	assert.Equal(t, "new", p.Value)
	assert.False(t, p.Masked)
}

func TestReplaceMissingApplicationDoesNotTouchStore(t *testing.T) {
	e, gw := newEngine(t)
	err := e.ReplaceAllProperties(context.Background(), "Missing", types.NewPropertyBag())
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, types.IsPartialFailure(err))
	for _, c := range gw.Calls() {
		assert.NotEqual(t, memstore.OpDeleteApplication, c.Op)
	}
}

func TestReplaceDeleteFailureIsPlain(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpDeleteApplication, Err: errFault})

	err := e.ReplaceAllProperties(ctx, "Billing", types.NewPropertyBag())
	assert.ErrorIs(t, err, errFault)
	assert.False(t, types.IsPartialFailure(err))
	assert.Equal(t, map[string]string{"host": "db1"}, props(t, e, "Billing"))
}

func TestReplaceFailureAfterDeleteIsPartial(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.ErrorLevel)
	e, gw := newEngine(t, WithLogger(zap.New(core)))
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpCreateApplication, Err: errFault})

	err := e.ReplaceAllProperties(ctx, "Billing", types.BagFromMap(map[string]string{"port": "5433"}))

	var pf *types.PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, OpReplace, pf.Op)
	assert.Equal(t, StepCreateShell, pf.Step)
	assert.True(t, pf.ApplicationDeleted)
	assert.ErrorIs(t, err, errFault)

	_, err = e.ReadProperties(ctx, "Billing")
	assert.ErrorIs(t, err, types.ErrNotFound, "application is gone after a failed recreate")

	entries := logs.FilterMessage("replace failed after delete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["application_deleted"])
}

func TestReplaceFailureAfterRecreateLeavesApplication(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpSetConfigInfo, Err: errFault})

	err := e.ReplaceAllProperties(ctx, "Billing", types.BagFromMap(map[string]string{"port": "5433"}))

	var pf *types.PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, StepWriteProperties, pf.Step)
	assert.False(t, pf.ApplicationDeleted)

	_, err = gw.GetApplicationInfo(ctx, "Billing")
	assert.NoError(t, err)
}

func TestReadTriesEveryLocationInOrder(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.ResetCalls()

	_, err := e.ReadProperties(ctx, "Billing")
	require.NoError(t, err)

	var reads []string
	for _, c := range gw.Calls() {
		if c.Op == memstore.OpGetConfigInfo {
			reads = append(reads, c.Detail)
		}
	}
	assert.Equal(t, []string{
		"ConfigProperties/runtime",
		"ConfigProperties/runtime",
		"ConfigProperties/config-store",
	}, reads)
}

// locationStore serves fixed bags per read location.
type locationStore struct {
	*memstore.Store
	bags map[Location]*types.PropertyBag
}

func (s *locationStore) GetConfigInfo(_ context.Context, app, identifier string, mode types.ReadMode) (*types.PropertyBag, error) {
	bag, ok := s.bags[Location{Identifier: identifier, Mode: mode}]
	if !ok {
		return nil, fmt.Errorf("%s on %q: %w", identifier, app, types.ErrNotFound)
	}
	return bag.Clone(), nil
}

func TestReadFirstLocationWins(t *testing.T) {
	ctx := context.Background()
	current := Location{Identifier: types.IdentifierConfigProperties, Mode: types.ReadModeRuntime}
	legacy := Location{Identifier: "Legacy", Mode: types.ReadModeRuntime}
	missing := Location{Identifier: "Missing", Mode: types.ReadModeConfigStore}

	gw := &locationStore{
		Store: memstore.New(),
		bags: map[Location]*types.PropertyBag{
			current: types.BagFromMap(map[string]string{"host": "db1"}),
			legacy:  types.BagFromMap(map[string]string{"HOST": "legacy-db", "user": "svc"}),
		},
	}
	require.NoError(t, gw.CreateApplication(ctx, billingSpec(), CreateFlags, 1))

	e := NewEngine(gw, WithReadPlan(missing, current, legacy))
	app, err := e.ReadProperties(ctx, "Billing")
	require.NoError(t, err)

	assert.Equal(t, []string{"host", "user"}, app.Properties.Keys())
	assert.Equal(t, map[string]string{"host": "db1", "user": "svc"}, app.Properties.Map())
}

func TestReadToleratesFailedLocations(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpGetConfigInfo, App: "Billing", Err: errFault})
	gw.Inject(memstore.Fault{Op: memstore.OpGetConfigInfo, App: "Billing", Err: errFault})

	assert.Equal(t, map[string]string{"host": "db1"}, props(t, e, "Billing"))
}

func TestReadAllLocationsFailed(t *testing.T) {
	ctx := context.Background()
	e, gw := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.BagFromMap(map[string]string{"host": "db1"})))
	gw.Inject(memstore.Fault{Op: memstore.OpGetConfigInfo, Sticky: true, Err: errFault})

	app, err := e.ReadProperties(ctx, "Billing")
	assert.ErrorIs(t, err, types.ErrNoProperties)
	assert.ErrorIs(t, err, errFault)
	require.NotNil(t, app)
	assert.Equal(t, "billing@example.com", app.ContactInfo)
	assert.Equal(t, 0, app.Properties.Len())
}

func TestReadMissingApplication(t *testing.T) {
	e, _ := newEngine(t)
	app, err := e.ReadProperties(context.Background(), "Missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Nil(t, app)
}

func TestDeleteApplication(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	require.NoError(t, e.CreateApplication(ctx, billingSpec(), types.NewPropertyBag()))

	require.NoError(t, e.DeleteApplication(ctx, "Billing"))
	assert.ErrorIs(t, e.DeleteApplication(ctx, "Billing"), types.ErrNotFound)
}
