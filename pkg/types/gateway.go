package types

import "context"

// StoreGateway is the narrow administrative API of the backing store.
// Implementations are thin adapters; all reconciliation logic lives above
// this interface.
type StoreGateway interface {
	// CreateApplication creates a disabled application shell. fieldCount is
	// a sizing hint and must be positive. Returns ErrApplicationExists when
	// the name is taken.
	CreateApplication(ctx context.Context, spec ApplicationSpec, flags AppFlag, fieldCount int) error

	// CreateFieldInfo declares a field. Returns ErrDuplicateField if the
	// key is already declared and ErrNotFound if the application is absent.
	CreateFieldInfo(ctx context.Context, app, key string, flags FieldFlag) error

	// UpdateApplication replaces the bits selected by mask with those of
	// flags.
	UpdateApplication(ctx context.Context, app string, flags, mask AppFlag) error

	// DeleteApplication removes the application, its schema and values.
	DeleteApplication(ctx context.Context, app string) error

	// GetApplicationInfo returns the application's metadata or ErrNotFound.
	GetApplicationInfo(ctx context.Context, app string) (ApplicationInfo, error)

	// SetConfigInfo writes the whole bag under identifier. Every key must
	// have a declared field.
	SetConfigInfo(ctx context.Context, app, identifier string, bag *PropertyBag) error

	// GetConfigInfo reads the bag stored under identifier or returns
	// ErrNotFound.
	GetConfigInfo(ctx context.Context, app, identifier string, mode ReadMode) (*PropertyBag, error)

	// EnumerateApplications lists applications whose flags match filter
	// under mask, in store order.
	EnumerateApplications(ctx context.Context, mask, filter AppFlag) ([]ApplicationSummary, error)
}

// Backend is a StoreGateway that holds resources until closed.
type Backend interface {
	StoreGateway

	// Close releases the backend. Idempotent.
	Close() error
}
