// Package directory lists the applications this tool manages. An
// application belongs to the directory when it is a config-store
// application administered by the SSO administrators account and does not
// carry the placeholder contact. Applications outside the directory are
// treated as absent.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(d *Directory) {
		if log != nil {
			d.log = log
		}
	}
}

// WithAdminAccount sets the admin account an application must carry.
func WithAdminAccount(account string) Option {
	return func(d *Directory) { d.adminAccount = account }
}

// WithExcludedContact sets the contact info that excludes an application.
func WithExcludedContact(contact string) Option {
	return func(d *Directory) { d.excludedContact = contact }
}

// Directory enumerates applications and applies the membership filter.
type Directory struct {
	gw              types.StoreGateway
	adminAccount    string
	excludedContact string
	log             *zap.Logger
}

// New returns a Directory over gw using the default sentinels.
func New(gw types.StoreGateway, opts ...Option) *Directory {
	d := &Directory{
		gw:              gw,
		adminAccount:    types.DefaultAdminAccount,
		excludedContact: types.DefaultExcludedContact,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListApplications returns the names of member applications in store
// order. An enumeration failure is returned; an application whose
// metadata cannot be read is left out.
func (d *Directory) ListApplications(ctx context.Context) ([]string, error) {
	summaries, err := d.gw.EnumerateApplications(ctx, types.FlagConfigStore, types.FlagConfigStore)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(summaries))
	for _, s := range summaries {
		info, err := d.gw.GetApplicationInfo(ctx, s.Name)
		if err != nil {
			d.log.Debug("skipping application with unreadable metadata",
				zap.String("app", s.Name), zap.Error(err))
			continue
		}
		if !d.member(info) {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}

// Lookup returns the stored spelling of the member application matching
// name, ignoring case. It returns types.ErrNotFound when there is none.
func (d *Directory) Lookup(ctx context.Context, name string) (string, error) {
	names, err := d.ListApplications(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if n == name {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	return "", fmt.Errorf("application %q: %w", name, types.ErrNotFound)
}

// ApplicationExists reports whether a member application matches name,
// ignoring case.
func (d *Directory) ApplicationExists(ctx context.Context, name string) (bool, error) {
	_, err := d.Lookup(ctx, name)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Directory) member(info types.ApplicationInfo) bool {
	return strings.EqualFold(info.AdminAccount, d.adminAccount) &&
		!strings.EqualFold(info.ContactInfo, d.excludedContact)
}
