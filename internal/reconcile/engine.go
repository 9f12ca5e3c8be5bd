// Package reconcile makes the schema-rigid admin store behave like a
// key/value property store. It layers merge-update, full replace and a
// tolerant multi-location read over a types.StoreGateway.
//
// The engine holds no locks. Callers must serialize operations on the same
// application name.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// SentinelField is declared first on every application so that schema
// initialisation succeeds for an empty bag. Reads never return it.
const SentinelField = "dummy"

// CreateFlags are the capability flags of every application created here.
const CreateFlags = types.FlagConfigStore | types.FlagAllowExternal | types.FlagAllowLocal

// Operation names reported in PartialFailureError.Op.
const (
	OpCreate  = "create"
	OpReplace = "replace"
)

// Step names reported in PartialFailureError.Step.
const (
	StepCreateShell     = "create application"
	StepDeclareSentinel = "declare sentinel field"
	StepDeclareFields   = "declare fields"
	StepEnable          = "enable application"
	StepWriteProperties = "write properties"
)

// Location is one place the engine looks for stored properties.
type Location struct {
	Identifier string
	Mode       types.ReadMode
}

func (l Location) String() string {
	return l.Identifier + "/" + l.Mode.String()
}

// DefaultReadPlan is the fallback chain ReadProperties walks, in priority
// order. The first two entries currently resolve to the same data.
var DefaultReadPlan = []Location{
	{Identifier: types.IdentifierConfigProperties, Mode: types.ReadModeRuntime},
	{Identifier: types.IdentifierApplication, Mode: types.ReadModeRuntime},
	{Identifier: types.IdentifierConfigProperties, Mode: types.ReadModeConfigStore},
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithReadPlan replaces DefaultReadPlan.
func WithReadPlan(plan ...Location) Option {
	return func(e *Engine) {
		e.plan = append([]Location(nil), plan...)
	}
}

// Engine implements the reconciliation protocols.
type Engine struct {
	gw     types.StoreGateway
	schema *SchemaManager
	plan   []Location
	log    *zap.Logger
}

// NewEngine returns an Engine over gw.
func NewEngine(gw types.StoreGateway, opts ...Option) *Engine {
	e := &Engine{
		gw:     gw,
		schema: NewSchemaManager(gw),
		plan:   DefaultReadPlan,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the engine's SchemaManager.
func (e *Engine) Schema() *SchemaManager { return e.schema }

// CreateApplication creates spec.Name holding bag. The caller checks that
// the name is free. A failure after the shell exists is returned as a
// *types.PartialFailureError and is not rolled back.
func (e *Engine) CreateApplication(ctx context.Context, spec types.ApplicationSpec, bag *types.PropertyBag) error {
	if spec.Name == "" {
		return types.ErrInvalidName
	}
	if err := checkReserved(bag); err != nil {
		return err
	}
	step, err := e.build(ctx, spec, bag)
	if err == nil {
		e.log.Info("application created", zap.String("app", spec.Name), zap.Int("properties", bag.Len()))
		return nil
	}
	if step == StepCreateShell {
		return err
	}

	e.log.Error("create left application partially configured",
		zap.String("app", spec.Name), zap.String("step", step), zap.Error(err))
	return &types.PartialFailureError{Op: OpCreate, App: spec.Name, Step: step, Err: err}
}

// checkReserved rejects a bag holding the sentinel key, which would land in
// the reserved slot and vanish on read.
func checkReserved(bag *types.PropertyBag) error {
	if p, ok := bag.Lookup(SentinelField); ok {
		return fmt.Errorf("%w: %q is reserved", types.ErrInvalidPropertyName, p.Key)
	}
	return nil
}

// build runs the creation steps in order and returns the step that failed.
func (e *Engine) build(ctx context.Context, spec types.ApplicationSpec, bag *types.PropertyBag) (string, error) {
	name := spec.Name
	if err := e.gw.CreateApplication(ctx, spec, CreateFlags, max(bag.Len(), 1)); err != nil {
		return StepCreateShell, err
	}
	if err := e.gw.CreateFieldInfo(ctx, name, SentinelField, 0); err != nil {
		return StepDeclareSentinel, err
	}
	for _, p := range bag.Properties() {
		if err := e.schema.EnsureField(ctx, name, p.Key, p.Masked); err != nil {
			return StepDeclareFields, fmt.Errorf("field %q: %w", p.Key, err)
		}
	}
	if err := e.gw.UpdateApplication(ctx, name, types.FlagEnabled, types.FlagEnabled); err != nil {
		return StepEnable, err
	}
	if err := e.gw.SetConfigInfo(ctx, name, types.IdentifierConfigProperties, nonNil(bag)); err != nil {
		return StepWriteProperties, err
	}
	return "", nil
}

// MergeUpdateProperties writes bag over the stored properties of name.
// Keys missing from bag keep their stored values; nothing is removed.
func (e *Engine) MergeUpdateProperties(ctx context.Context, name string, bag *types.PropertyBag) error {
	if err := checkReserved(bag); err != nil {
		return err
	}
	// The write blanks every declared field missing from the bag, so only a
	// bag that was never written may stand in as empty.
	existing, err := e.gw.GetConfigInfo(ctx, name, types.IdentifierConfigProperties, types.ReadModeRuntime)
	switch {
	case errors.Is(err, types.ErrNotFound):
		e.log.Debug("nothing stored yet, merging into empty",
			zap.String("app", name), zap.Error(err))
		existing = types.NewPropertyBag()
	case err != nil:
		return fmt.Errorf("merge %q: read: %w", name, err)
	}

	merged := existing.Clone()
	merged.Merge(bag)

	for _, p := range merged.Properties() {
		if err := e.schema.EnsureField(ctx, name, p.Key, p.Masked); err != nil {
			return fmt.Errorf("merge %q: declare field %q: %w", name, p.Key, err)
		}
	}
	if err := e.gw.UpdateApplication(ctx, name, types.FlagEnabled, types.FlagEnabled); err != nil {
		return fmt.Errorf("merge %q: enable: %w", name, err)
	}
	if err := e.gw.SetConfigInfo(ctx, name, types.IdentifierConfigProperties, merged); err != nil {
		return fmt.Errorf("merge %q: write: %w", name, err)
	}

	e.log.Info("properties merged", zap.String("app", name),
		zap.Int("written", bag.Len()), zap.Int("total", merged.Len()))
	return nil
}

// ReplaceAllProperties makes bag the complete property set of name by
// deleting and recreating the application. Field masks are reset.
//
// The delete and the recreate are not atomic. Any failure after the delete
// is a *types.PartialFailureError; when ApplicationDeleted is set the
// application and its previous properties are gone.
func (e *Engine) ReplaceAllProperties(ctx context.Context, name string, bag *types.PropertyBag) error {
	if err := checkReserved(bag); err != nil {
		return err
	}
	info, err := e.gw.GetApplicationInfo(ctx, name)
	if err != nil {
		return err
	}
	if err := e.gw.DeleteApplication(ctx, name); err != nil {
		return err
	}

	step, err := e.build(ctx, info.Spec(), bag.Unmasked())
	if err != nil {
		deleted := step == StepCreateShell
		e.log.Error("replace failed after delete",
			zap.String("app", name), zap.String("step", step),
			zap.Bool("application_deleted", deleted), zap.Error(err))
		return &types.PartialFailureError{
			Op:                 OpReplace,
			App:                name,
			Step:               step,
			ApplicationDeleted: deleted,
			Err:                err,
		}
	}

	e.log.Info("properties replaced", zap.String("app", name),
		zap.Int("previous_fields", info.FieldCount), zap.Int("properties", bag.Len()))
	return nil
}

// ReadProperties returns name's metadata and properties gathered from every
// location of the read plan. Earlier locations win on key collisions.
// When no location yields a property the metadata is still returned along
// with an error wrapping types.ErrNoProperties.
func (e *Engine) ReadProperties(ctx context.Context, name string) (*types.Application, error) {
	info, err := e.gw.GetApplicationInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	app := &types.Application{ApplicationInfo: info, Properties: types.NewPropertyBag()}
	var lastErr error
	for _, loc := range e.plan {
		bag, err := e.gw.GetConfigInfo(ctx, name, loc.Identifier, loc.Mode)
		if err != nil {
			e.log.Debug("read location failed", zap.String("app", name),
				zap.Stringer("location", loc), zap.Error(err))
			lastErr = err
			continue
		}
		added := app.Properties.MergeMissing(bag)
		e.log.Debug("read location", zap.String("app", name),
			zap.Stringer("location", loc), zap.Int("added", added))
	}

	if app.Properties.Len() == 0 {
		if lastErr != nil {
			return app, fmt.Errorf("read %q: %w: %w", name, types.ErrNoProperties, lastErr)
		}
		return app, fmt.Errorf("read %q: %w", name, types.ErrNoProperties)
	}
	return app, nil
}

// DeleteApplication removes name and all of its properties.
func (e *Engine) DeleteApplication(ctx context.Context, name string) error {
	if err := e.gw.DeleteApplication(ctx, name); err != nil {
		return err
	}
	e.log.Info("application deleted", zap.String("app", name))
	return nil
}

func nonNil(bag *types.PropertyBag) *types.PropertyBag {
	if bag == nil {
		return types.NewPropertyBag()
	}
	return bag
}
