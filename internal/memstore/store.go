// Package memstore provides an in-memory admin store that follows the same
// contract as the SQL gateway. It backs the "memory" backend and serves as
// the fake store in tests, with fault injection and call recording.
package memstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// Gateway operation names, used by Fault and Call.
const (
	OpCreateApplication     = "CreateApplication"
	OpCreateFieldInfo       = "CreateFieldInfo"
	OpUpdateApplication     = "UpdateApplication"
	OpDeleteApplication     = "DeleteApplication"
	OpGetApplicationInfo    = "GetApplicationInfo"
	OpSetConfigInfo         = "SetConfigInfo"
	OpGetConfigInfo         = "GetConfigInfo"
	OpEnumerateApplications = "EnumerateApplications"
)

var _ types.Backend = (*Store)(nil)

// Store is an in-memory admin store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	apps   map[string]*application
	order  []string
	faults []*Fault
	calls  []Call
}

type application struct {
	info   types.ApplicationInfo
	fields []field
	// values maps identifier to one value per declared field.
	values map[string][]string
}

type field struct {
	key    string
	folded string
	flags  types.FieldFlag
}

// Fault makes matching gateway calls fail with Err.
type Fault struct {
	Op     string // operation name, one of the Op constants
	App    string // application name; empty matches any application
	Skip   int    // matching calls let through before the fault fires
	Sticky bool   // keep firing instead of firing once
	Err    error
}

// Call records one gateway invocation. Detail holds the field-count hint,
// field key, identifier or identifier/mode, depending on Op.
type Call struct {
	Op     string
	App    string
	Detail string
}

// New returns an empty store.
func New() *Store {
	return &Store{apps: make(map[string]*application)}
}

// Inject registers a fault.
func (s *Store) Inject(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &f)
}

// Calls returns the recorded calls in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// ResetCalls clears the call record.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Close is a no-op; the store lives as long as the process.
func (s *Store) Close() error { return nil }

// record logs the call and returns the injected error, if any.
// The caller must hold s.mu.
func (s *Store) record(op, app, detail string) error {
	s.calls = append(s.calls, Call{Op: op, App: app, Detail: detail})
	for i, f := range s.faults {
		if f.Op != op || (f.App != "" && f.App != app) {
			continue
		}
		if f.Skip > 0 {
			f.Skip--
			continue
		}
		if !f.Sticky {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		}
		return f.Err
	}
	return nil
}

func notFound(app string) error {
	return fmt.Errorf("application %q: %w", app, types.ErrNotFound)
}

// CreateApplication creates a disabled application shell.
func (s *Store) CreateApplication(_ context.Context, spec types.ApplicationSpec, flags types.AppFlag, fieldCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpCreateApplication, spec.Name, strconv.Itoa(fieldCount)); err != nil {
		return err
	}
	if spec.Name == "" {
		return types.ErrInvalidName
	}
	if fieldCount < 1 {
		return types.ErrInvalidFieldCount
	}
	if _, ok := s.apps[spec.Name]; ok {
		return fmt.Errorf("application %q: %w", spec.Name, types.ErrApplicationExists)
	}

	s.apps[spec.Name] = &application{
		info: types.ApplicationInfo{
			Name:         spec.Name,
			Description:  spec.Description,
			ContactInfo:  spec.ContactInfo,
			UserAccount:  spec.UserAccount,
			AdminAccount: spec.AdminAccount,
			Flags:        flags &^ types.FlagEnabled,
		},
		values: make(map[string][]string),
	}
	s.order = append(s.order, spec.Name)
	return nil
}

// CreateFieldInfo declares a field on app.
func (s *Store) CreateFieldInfo(_ context.Context, app, key string, flags types.FieldFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpCreateFieldInfo, app, key); err != nil {
		return err
	}
	a, ok := s.apps[app]
	if !ok {
		return notFound(app)
	}
	folded := types.FoldKey(key)
	for _, f := range a.fields {
		if f.folded == folded {
			return fmt.Errorf("field %q on %q: %w", key, app, types.ErrDuplicateField)
		}
	}
	a.fields = append(a.fields, field{key: key, folded: folded, flags: flags})
	return nil
}

// UpdateApplication replaces the flag bits selected by mask.
func (s *Store) UpdateApplication(_ context.Context, app string, flags, mask types.AppFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpUpdateApplication, app, ""); err != nil {
		return err
	}
	a, ok := s.apps[app]
	if !ok {
		return notFound(app)
	}
	a.info.Flags = a.info.Flags&^mask | flags&mask
	return nil
}

// DeleteApplication removes app with its schema and values.
func (s *Store) DeleteApplication(_ context.Context, app string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpDeleteApplication, app, ""); err != nil {
		return err
	}
	if _, ok := s.apps[app]; !ok {
		return notFound(app)
	}
	delete(s.apps, app)
	for i, name := range s.order {
		if name == app {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetApplicationInfo returns app's metadata.
func (s *Store) GetApplicationInfo(_ context.Context, app string) (types.ApplicationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpGetApplicationInfo, app, ""); err != nil {
		return types.ApplicationInfo{}, err
	}
	a, ok := s.apps[app]
	if !ok {
		return types.ApplicationInfo{}, notFound(app)
	}
	info := a.info
	info.FieldCount = len(a.fields)
	return info, nil
}

// SetConfigInfo writes bag under identifier. Declared fields missing from
// the bag are stored empty.
func (s *Store) SetConfigInfo(_ context.Context, app, identifier string, bag *types.PropertyBag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpSetConfigInfo, app, identifier); err != nil {
		return err
	}
	a, ok := s.apps[app]
	if !ok {
		return notFound(app)
	}
	if !a.info.Flags.Has(types.FlagEnabled) {
		return fmt.Errorf("application %q: %w", app, types.ErrApplicationDisabled)
	}

	index := make(map[string]int, len(a.fields))
	for i, f := range a.fields {
		index[f.folded] = i
	}
	values := make([]string, len(a.fields))
	for _, p := range bag.Properties() {
		i, ok := index[types.FoldKey(p.Key)]
		if !ok {
			return fmt.Errorf("field %q on %q: %w", p.Key, app, types.ErrFieldNotDeclared)
		}
		values[i] = p.Value
	}
	a.values[identifier] = values
	return nil
}

// GetConfigInfo reads the bag stored under identifier. The reserved first
// field is never returned.
func (s *Store) GetConfigInfo(_ context.Context, app, identifier string, mode types.ReadMode) (*types.PropertyBag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpGetConfigInfo, app, identifier+"/"+mode.String()); err != nil {
		return nil, err
	}
	a, ok := s.apps[app]
	if !ok {
		return nil, notFound(app)
	}
	values, ok := a.values[identifier]
	if !ok {
		return nil, fmt.Errorf("identifier %q on %q: %w", identifier, app, types.ErrNotFound)
	}

	bag := types.NewPropertyBag()
	for i := 1; i < len(a.fields); i++ {
		f := a.fields[i]
		var v string
		if i < len(values) {
			v = values[i]
		}
		bag.SetProperty(types.Property{Key: f.key, Value: v, Masked: f.flags&types.FieldMasked != 0})
	}
	return bag, nil
}

// EnumerateApplications lists applications in creation order.
func (s *Store) EnumerateApplications(_ context.Context, mask, filter types.AppFlag) ([]types.ApplicationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(OpEnumerateApplications, "", ""); err != nil {
		return nil, err
	}
	out := make([]types.ApplicationSummary, 0, len(s.order))
	for _, name := range s.order {
		a := s.apps[name]
		if a.info.Flags&mask != filter&mask {
			continue
		}
		out = append(out, types.ApplicationSummary{
			Name:        a.info.Name,
			Description: a.info.Description,
			ContactInfo: a.info.ContactInfo,
		})
	}
	return out, nil
}
