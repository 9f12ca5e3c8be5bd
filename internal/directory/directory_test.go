package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ssoconfig/internal/memstore"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

const storeFlags = types.FlagConfigStore | types.FlagAllowExternal | types.FlagAllowLocal

func add(t *testing.T, gw *memstore.Store, name, admin, contact string, flags types.AppFlag) {
	t.Helper()
	require.NoError(t, gw.CreateApplication(context.Background(), types.ApplicationSpec{
		Name:         name,
		ContactInfo:  contact,
		UserAccount:  types.DefaultUserAccount,
		AdminAccount: admin,
	}, flags, 1))
}

func TestListApplicationsFilters(t *testing.T) {
	gw := memstore.New()
	add(t, gw, "Billing", "SSO Administrators", "billing@example.com", storeFlags)
	add(t, gw, "Foreign", "Domain Admins", "ops@example.com", storeFlags)
	add(t, gw, "Template", "SSO Administrators", "Contact Information", storeFlags)
	add(t, gw, "Shouty", "sso ADMINISTRATORS", "ops@example.com", storeFlags)
	add(t, gw, "Placeholder", "SSO Administrators", "CONTACT INFORMATION", storeFlags)
	add(t, gw, "Individual", "SSO Administrators", "ops@example.com", types.FlagAllowLocal)
	add(t, gw, "Audit", "SSO Administrators", "", storeFlags)

	names, err := New(gw).ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing", "Shouty", "Audit"}, names)
}

func TestListApplicationsSkipsUnreadableMetadata(t *testing.T) {
	gw := memstore.New()
	add(t, gw, "Billing", types.DefaultAdminAccount, "ops@example.com", storeFlags)
	add(t, gw, "Broken", types.DefaultAdminAccount, "ops@example.com", storeFlags)
	gw.Inject(memstore.Fault{Op: memstore.OpGetApplicationInfo, App: "Broken", Sticky: true, Err: errors.New("access denied")})

	names, err := New(gw).ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing"}, names)
}

func TestListApplicationsPropagatesEnumerationFailure(t *testing.T) {
	gw := memstore.New()
	boom := errors.New("enumeration failed")
	gw.Inject(memstore.Fault{Op: memstore.OpEnumerateApplications, Err: boom})

	_, err := New(gw).ListApplications(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestApplicationExists(t *testing.T) {
	gw := memstore.New()
	add(t, gw, "Billing", types.DefaultAdminAccount, "ops@example.com", storeFlags)
	add(t, gw, "Foreign", "Domain Admins", "ops@example.com", storeFlags)
	add(t, gw, "Template", types.DefaultAdminAccount, types.DefaultExcludedContact, storeFlags)
	d := New(gw)

	tests := []struct {
		name string
		want bool
	}{
		{"Billing", true},
		{"BILLING", true},
		{"Foreign", false},
		{"Template", false},
		{"Missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.ApplicationExists(context.Background(), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomSentinels(t *testing.T) {
	gw := memstore.New()
	add(t, gw, "Billing", "Platform Team", "ops@example.com", storeFlags)
	add(t, gw, "Template", "Platform Team", "TBD", storeFlags)

	d := New(gw, WithAdminAccount("platform team"), WithExcludedContact("tbd"))
	names, err := d.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Billing"}, names)
}

func TestLookupPrefersExactSpelling(t *testing.T) {
	gw := memstore.New()
	add(t, gw, "billing", types.DefaultAdminAccount, "ops@example.com", storeFlags)
	add(t, gw, "Billing", types.DefaultAdminAccount, "ops@example.com", storeFlags)
	d := New(gw)
	ctx := context.Background()

	got, err := d.Lookup(ctx, "Billing")
	require.NoError(t, err)
	assert.Equal(t, "Billing", got)

	got, err = d.Lookup(ctx, "BILLING")
	require.NoError(t, err)
	assert.Equal(t, "billing", got, "first in store order wins for a case-insensitive match")

	_, err = d.Lookup(ctx, "Missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
