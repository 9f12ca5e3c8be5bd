package reconcile

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// SchemaManager declares fields on demand. Fields are append-only: the
// store has no way to drop one short of deleting the application.
type SchemaManager struct {
	gw types.StoreGateway
}

// NewSchemaManager returns a SchemaManager over gw.
func NewSchemaManager(gw types.StoreGateway) *SchemaManager {
	return &SchemaManager{gw: gw}
}

// EnsureField declares key on app unless it is already declared. A
// duplicate declaration counts as success; every other error is returned.
func (m *SchemaManager) EnsureField(ctx context.Context, app, key string, masked bool) error {
	var flags types.FieldFlag
	if masked {
		flags = types.FieldMasked
	}
	err := m.gw.CreateFieldInfo(ctx, app, key, flags)
	if errors.Is(err, types.ErrDuplicateField) {
		return nil
	}
	return err
}
