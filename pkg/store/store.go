// Package store provides the public factory for admin store backends.
// Implementations stay internal; callers receive a types.Backend.
package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/ssoconfig/internal/memstore"
	"github.com/mesh-intelligence/ssoconfig/internal/sqlstore"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// Open validates cfg and returns the backend it names.
//
// Example:
//
//	backend, err := store.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".ssoconfig-db",
//	})
//	defer backend.Close()
func Open(ctx context.Context, cfg types.Config) (types.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case types.BackendMemory:
		return memstore.New(), nil
	case types.BackendSQLite, types.BackendPostgres:
		s, err := sqlstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
}
