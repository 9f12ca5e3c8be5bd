package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ssoconfig/internal/memstore"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

func TestEnsureFieldIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gw := memstore.New()
	require.NoError(t, gw.CreateApplication(ctx, types.ApplicationSpec{Name: "Billing"}, CreateFlags, 1))
	m := NewSchemaManager(gw)

	require.NoError(t, m.EnsureField(ctx, "Billing", "host", false))
	once, err := gw.GetApplicationInfo(ctx, "Billing")
	require.NoError(t, err)

	require.NoError(t, m.EnsureField(ctx, "Billing", "host", false))
	require.NoError(t, m.EnsureField(ctx, "Billing", "HOST", true))
	twice, err := gw.GetApplicationInfo(ctx, "Billing")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestEnsureFieldPropagatesOtherErrors(t *testing.T) {
	m := NewSchemaManager(memstore.New())
	err := m.EnsureField(context.Background(), "Missing", "host", false)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
