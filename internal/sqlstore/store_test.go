package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ssoconfig/internal/storetest"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

func openSQLite(t *testing.T, dataDir string) *Store {
	t.Helper()
	s, err := Open(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: dataDir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.StoreGateway {
		return openSQLite(t, t.TempDir())
	})
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	openSQLite(t, dir)

	_, err := os.Stat(filepath.Join(dir, DatabaseFile))
	assert.NoError(t, err)
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, types.Config{Backend: types.BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.CreateApplication(ctx, types.ApplicationSpec{Name: "Billing"}, types.FlagConfigStore, 1))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	s = openSQLite(t, dir)
	info, err := s.GetApplicationInfo(ctx, "Billing")
	require.NoError(t, err)
	assert.Equal(t, "Billing", info.Name)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, types.Config{Backend: types.BackendPostgres})
	assert.ErrorIs(t, err, types.ErrDSNRequired)

	_, err = Open(ctx, types.Config{Backend: "oracle"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite unchanged", DialectSQLite, "SELECT a FROM t WHERE x = ? AND y = ?", "SELECT a FROM t WHERE x = ? AND y = ?"},
		{"postgres numbered", DialectPostgres, "SELECT a FROM t WHERE x = ? AND y = ?", "SELECT a FROM t WHERE x = $1 AND y = $2"},
		{"no placeholders", DialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.rebind(tt.in))
		})
	}
}
