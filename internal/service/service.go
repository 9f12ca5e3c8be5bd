// Package service is the caller-facing API shared by the CLI and the HTTP
// server. It validates input, checks directory membership before acting,
// fills account defaults and serializes work per application name.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ssoconfig/internal/directory"
	"github.com/mesh-intelligence/ssoconfig/internal/reconcile"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// SearchOptions selects what Search matches against. When neither field is
// set both are searched.
type SearchOptions struct {
	Keys   bool
	Values bool
}

// Service manages applications in the admin store.
type Service struct {
	engine   *reconcile.Engine
	dir      *directory.Directory
	defaults types.AccountDefaults
	locks    *nameLocks
	log      *zap.Logger
}

// New builds a Service over gw using the account defaults and directory
// sentinels of cfg. Empty settings fall back to the package defaults.
func New(gw types.StoreGateway, cfg types.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	defaults := cfg.Defaults
	if defaults.ContactInfo == "" {
		defaults.ContactInfo = types.DefaultContactInfo
	}
	if defaults.UserAccount == "" {
		defaults.UserAccount = types.DefaultUserAccount
	}
	if defaults.AdminAccount == "" {
		defaults.AdminAccount = types.DefaultAdminAccount
	}

	dirOpts := []directory.Option{directory.WithLogger(log.Named("directory"))}
	if cfg.Directory.AdminAccount != "" {
		dirOpts = append(dirOpts, directory.WithAdminAccount(cfg.Directory.AdminAccount))
	}
	if cfg.Directory.ExcludedContact != "" {
		dirOpts = append(dirOpts, directory.WithExcludedContact(cfg.Directory.ExcludedContact))
	}

	return &Service{
		engine:   reconcile.NewEngine(gw, reconcile.WithLogger(log.Named("reconcile"))),
		dir:      directory.New(gw, dirOpts...),
		defaults: defaults,
		locks:    newNameLocks(),
		log:      log,
	}
}

// CreateApplication creates name with the given properties. It fails with
// types.ErrApplicationExists when the directory already lists the name.
func (s *Service) CreateApplication(ctx context.Context, name, description string, bag *types.PropertyBag) error {
	if err := ValidateApplicationName(name); err != nil {
		return err
	}
	if err := ValidateProperties(bag); err != nil {
		return err
	}

	unlock := s.locks.lock(name)
	defer unlock()

	exists, err := s.dir.ApplicationExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check existence of %q: %w", name, err)
	}
	if exists {
		return fmt.Errorf("application %q: %w", name, types.ErrApplicationExists)
	}

	spec := types.ApplicationSpec{
		Name:         name,
		Description:  description,
		ContactInfo:  s.defaults.ContactInfo,
		UserAccount:  s.defaults.UserAccount,
		AdminAccount: s.defaults.AdminAccount,
	}
	if bag == nil {
		bag = types.NewPropertyBag()
	}
	return s.engine.CreateApplication(ctx, spec, bag)
}

// MergeProperties adds or overwrites the properties in bag. Stored
// properties not named in bag are kept.
func (s *Service) MergeProperties(ctx context.Context, name string, bag *types.PropertyBag) error {
	if err := ValidateProperties(bag); err != nil {
		return err
	}
	return s.withApplication(ctx, name, func(app string) error {
		return s.engine.MergeUpdateProperties(ctx, app, bag)
	})
}

// ReplaceProperties makes bag the complete property set of name. The
// replacement deletes and recreates the application; see
// reconcile.Engine.ReplaceAllProperties for the failure contract.
func (s *Service) ReplaceProperties(ctx context.Context, name string, bag *types.PropertyBag) error {
	if err := ValidateProperties(bag); err != nil {
		return err
	}
	return s.withApplication(ctx, name, func(app string) error {
		return s.engine.ReplaceAllProperties(ctx, app, bag)
	})
}

// RemoveProperties drops keys from name. Removal needs a full replace, so
// the remaining properties lose their masks. Keys that are not stored are
// ignored; when none are stored the application is left untouched.
func (s *Service) RemoveProperties(ctx context.Context, name string, keys []string) error {
	return s.withApplication(ctx, name, func(app string) error {
		current, err := s.read(ctx, app)
		if err != nil {
			return err
		}
		bag := current.Properties.Clone()
		removed := 0
		for _, k := range keys {
			if bag.Delete(k) {
				removed++
			}
		}
		if removed == 0 {
			return nil
		}
		s.log.Info("removing properties", zap.String("app", app), zap.Int("removed", removed))
		return s.engine.ReplaceAllProperties(ctx, app, bag)
	})
}

// GetApplication returns name's metadata and properties. An application
// with no stored properties is returned with an empty bag.
func (s *Service) GetApplication(ctx context.Context, name string) (*types.Application, error) {
	var app *types.Application
	err := s.withApplication(ctx, name, func(stored string) error {
		var err error
		app, err = s.read(ctx, stored)
		return err
	})
	return app, err
}

// DeleteApplication removes name and all of its properties.
func (s *Service) DeleteApplication(ctx context.Context, name string) error {
	return s.withApplication(ctx, name, func(app string) error {
		return s.engine.DeleteApplication(ctx, app)
	})
}

// ListApplications returns the names in the directory.
func (s *Service) ListApplications(ctx context.Context) ([]string, error) {
	return s.dir.ListApplications(ctx)
}

// ApplicationExists reports whether name is in the directory.
func (s *Service) ApplicationExists(ctx context.Context, name string) (bool, error) {
	if err := ValidateApplicationName(name); err != nil {
		return false, err
	}
	return s.dir.ApplicationExists(ctx, name)
}

// Search returns the listed applications with a property key or value
// containing query, ignoring case. Applications that cannot be read are
// skipped.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]string, error) {
	if !opts.Keys && !opts.Values {
		opts = SearchOptions{Keys: true, Values: true}
	}
	names, err := s.dir.ListApplications(ctx)
	if err != nil {
		return nil, err
	}

	matches := []string{}
	for _, name := range names {
		app, err := s.read(ctx, name)
		if err != nil {
			s.log.Debug("search skipped application", zap.String("app", name), zap.Error(err))
			continue
		}
		if app.Properties.Search(query, opts.Keys, opts.Values) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// withApplication validates name, resolves it to its stored spelling and
// runs fn while holding the name's lock.
func (s *Service) withApplication(ctx context.Context, name string, fn func(app string) error) error {
	if err := ValidateApplicationName(name); err != nil {
		return err
	}

	unlock := s.locks.lock(name)
	defer unlock()

	app, err := s.dir.Lookup(ctx, name)
	if err != nil {
		return err
	}
	return fn(app)
}

func (s *Service) read(ctx context.Context, name string) (*types.Application, error) {
	app, err := s.engine.ReadProperties(ctx, name)
	if errors.Is(err, types.ErrNoProperties) && app != nil {
		return app, nil
	}
	return app, err
}
