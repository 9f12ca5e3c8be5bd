// Package sqlstore implements the admin store gateway on database/sql.
// SQLite (modernc.org/sqlite) backs local installs and PostgreSQL
// (github.com/lib/pq) backs shared ones; both run the same schema.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

// DatabaseFile is the SQLite file created under the data directory.
const DatabaseFile = "ssoconfig.db"

var _ types.Backend = (*Store)(nil)

// Store is a StoreGateway over a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New wraps an open database. The schema is not applied; call Migrate.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// Open connects to the database named by cfg and applies the schema.
// For SQLite, cfg.DSN overrides the default file under cfg.DataDir.
func Open(ctx context.Context, cfg types.Config) (*Store, error) {
	var (
		dialect Dialect
		dsn     = cfg.DSN
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		dialect = DialectSQLite
		if dsn == "" {
			dataDir := cfg.DataDir
			if dataDir == "" {
				dataDir = "."
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(dataDir, DatabaseFile)
		}
	case types.BackendPostgres:
		dialect = DialectPostgres
		if dsn == "" {
			return nil, types.ErrDSNRequired
		}
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer at a time avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) q(query string) string { return s.dialect.rebind(query) }

func (s *Store) timestamp() string { return s.now().UTC().Format(time.RFC3339Nano) }

// wrap leaves store-contract sentinels alone and turns driver failures
// into *types.StoreError.
func wrap(op, app string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		types.ErrNotFound,
		types.ErrApplicationExists,
		types.ErrDuplicateField,
		types.ErrFieldNotDeclared,
		types.ErrApplicationDisabled,
		types.ErrInvalidFieldCount,
		types.ErrInvalidName,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	code, _ := driverCode(err)
	return &types.StoreError{Op: op, App: app, Code: code, Err: err}
}

// inTx runs fn in a transaction and commits when fn succeeds.
func (s *Store) inTx(ctx context.Context, op, app string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, app, fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return wrap(op, app, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, app, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// lookup resolves app to its row id and flags.
func (s *Store) lookup(ctx context.Context, q querier, app string) (string, types.AppFlag, error) {
	var (
		id    string
		flags int64
	)
	err := q.QueryRowContext(ctx, s.q(qLookupApp), app).Scan(&id, &flags)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("application %q: %w", app, types.ErrNotFound)
	}
	if err != nil {
		return "", 0, fmt.Errorf("lookup application: %w", err)
	}
	return id, types.AppFlag(flags), nil
}

// CreateApplication inserts a disabled application row.
func (s *Store) CreateApplication(ctx context.Context, spec types.ApplicationSpec, flags types.AppFlag, fieldCount int) error {
	const op = "CreateApplication"
	if spec.Name == "" {
		return types.ErrInvalidName
	}
	if fieldCount < 1 {
		return types.ErrInvalidFieldCount
	}

	id, err := uuid.NewV7()
	if err != nil {
		return wrap(op, spec.Name, fmt.Errorf("generate id: %w", err))
	}

	return s.inTx(ctx, op, spec.Name, func(tx *sql.Tx) error {
		_, _, err := s.lookup(ctx, tx, spec.Name)
		switch {
		case err == nil:
			return fmt.Errorf("application %q: %w", spec.Name, types.ErrApplicationExists)
		case !errors.Is(err, types.ErrNotFound):
			return err
		}

		_, err = tx.ExecContext(ctx, s.q(qInsertApp),
			id.String(), spec.Name, spec.Description, spec.ContactInfo,
			spec.UserAccount, spec.AdminAccount,
			int64(flags&^types.FlagEnabled), fieldCount, s.timestamp())
		if isUniqueViolation(err) {
			return fmt.Errorf("application %q: %w", spec.Name, types.ErrApplicationExists)
		}
		return err
	})
}

// CreateFieldInfo appends a field to app's schema.
func (s *Store) CreateFieldInfo(ctx context.Context, app, key string, flags types.FieldFlag) error {
	const op = "CreateFieldInfo"
	folded := types.FoldKey(key)

	return s.inTx(ctx, op, app, func(tx *sql.Tx) error {
		id, _, err := s.lookup(ctx, tx, app)
		if err != nil {
			return err
		}

		var n int
		if err := tx.QueryRowContext(ctx, s.q(qFieldExists), id, folded).Scan(&n); err != nil {
			return fmt.Errorf("check field: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("field %q on %q: %w", key, app, types.ErrDuplicateField)
		}

		var ordinal int
		if err := tx.QueryRowContext(ctx, s.q(qNextOrdinal), id).Scan(&ordinal); err != nil {
			return fmt.Errorf("next ordinal: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.q(qInsertField), id, ordinal, key, folded, int64(flags))
		if isUniqueViolation(err) {
			return fmt.Errorf("field %q on %q: %w", key, app, types.ErrDuplicateField)
		}
		return err
	})
}

// UpdateApplication replaces the flag bits selected by mask.
func (s *Store) UpdateApplication(ctx context.Context, app string, flags, mask types.AppFlag) error {
	return s.inTx(ctx, "UpdateApplication", app, func(tx *sql.Tx) error {
		id, current, err := s.lookup(ctx, tx, app)
		if err != nil {
			return err
		}
		next := current&^mask | flags&mask
		_, err = tx.ExecContext(ctx, s.q(qUpdateFlags), int64(next), id)
		return err
	})
}

// DeleteApplication removes app and everything attached to it.
func (s *Store) DeleteApplication(ctx context.Context, app string) error {
	return s.inTx(ctx, "DeleteApplication", app, func(tx *sql.Tx) error {
		id, _, err := s.lookup(ctx, tx, app)
		if err != nil {
			return err
		}
		for _, stmt := range []string{qDeleteAllValues, qDeleteAllSets, qDeleteFields, qDeleteApp} {
			if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetApplicationInfo returns app's metadata and declared field count.
func (s *Store) GetApplicationInfo(ctx context.Context, app string) (types.ApplicationInfo, error) {
	var (
		info  types.ApplicationInfo
		flags int64
	)
	err := s.db.QueryRowContext(ctx, s.q(qAppInfo), app).Scan(
		&info.Name, &info.Description, &info.ContactInfo,
		&info.UserAccount, &info.AdminAccount, &flags, &info.FieldCount)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ApplicationInfo{}, fmt.Errorf("application %q: %w", app, types.ErrNotFound)
	}
	if err != nil {
		return types.ApplicationInfo{}, wrap("GetApplicationInfo", app, err)
	}
	info.Flags = types.AppFlag(flags)
	return info, nil
}

// SetConfigInfo stores one value per declared field under identifier.
// Declared fields missing from bag are stored empty.
func (s *Store) SetConfigInfo(ctx context.Context, app, identifier string, bag *types.PropertyBag) error {
	return s.inTx(ctx, "SetConfigInfo", app, func(tx *sql.Tx) error {
		id, flags, err := s.lookup(ctx, tx, app)
		if err != nil {
			return err
		}
		if !flags.Has(types.FlagEnabled) {
			return fmt.Errorf("application %q: %w", app, types.ErrApplicationDisabled)
		}

		ordinals, err := s.fieldOrdinals(ctx, tx, id)
		if err != nil {
			return err
		}
		values := make(map[int]string, len(ordinals))
		for _, p := range bag.Properties() {
			ord, ok := ordinals[types.FoldKey(p.Key)]
			if !ok {
				return fmt.Errorf("field %q on %q: %w", p.Key, app, types.ErrFieldNotDeclared)
			}
			values[ord] = p.Value
		}

		if _, err := tx.ExecContext(ctx, s.q(qDeleteValues), id, identifier); err != nil {
			return err
		}
		for _, ord := range ordinals {
			if _, err := tx.ExecContext(ctx, s.q(qInsertValue), id, identifier, ord, values[ord]); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, s.q(qDeleteSet), id, identifier); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.q(qInsertSet), id, identifier, s.timestamp())
		return err
	})
}

// fieldOrdinals maps folded key to ordinal for app id.
func (s *Store) fieldOrdinals(ctx context.Context, q querier, id string) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, s.q(qListFields), id)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			ord    int
			folded string
		)
		if err := rows.Scan(&ord, &folded); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out[folded] = ord
	}
	return out, rows.Err()
}

// GetConfigInfo reads the values stored under identifier. Both read modes
// see the same rows. The first declared field is reserved and skipped.
func (s *Store) GetConfigInfo(ctx context.Context, app, identifier string, mode types.ReadMode) (*types.PropertyBag, error) {
	const op = "GetConfigInfo"
	id, _, err := s.lookup(ctx, s.db, app)
	if err != nil {
		return nil, wrap(op, app, err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, s.q(qSetExists), id, identifier).Scan(&n); err != nil {
		return nil, wrap(op, app, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("identifier %q on %q (%s): %w", identifier, app, mode, types.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, s.q(qReadValues), identifier, id)
	if err != nil {
		return nil, wrap(op, app, err)
	}
	defer rows.Close()

	bag := types.NewPropertyBag()
	first := true
	for rows.Next() {
		var (
			key, value string
			flags      int64
		)
		if err := rows.Scan(&key, &flags, &value); err != nil {
			return nil, wrap(op, app, err)
		}
		if first {
			first = false
			continue
		}
		bag.SetProperty(types.Property{
			Key:    key,
			Value:  value,
			Masked: types.FieldFlag(flags)&types.FieldMasked != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, app, err)
	}
	return bag, nil
}

// EnumerateApplications lists applications in creation order. UUID v7 ids
// sort by creation time.
func (s *Store) EnumerateApplications(ctx context.Context, mask, filter types.AppFlag) ([]types.ApplicationSummary, error) {
	const op = "EnumerateApplications"
	rows, err := s.db.QueryContext(ctx, s.q(qEnumerate))
	if err != nil {
		return nil, wrap(op, "", err)
	}
	defer rows.Close()

	out := []types.ApplicationSummary{}
	for rows.Next() {
		var (
			sum   types.ApplicationSummary
			flags int64
		)
		if err := rows.Scan(&sum.Name, &sum.Description, &sum.ContactInfo, &flags); err != nil {
			return nil, wrap(op, "", err)
		}
		if types.AppFlag(flags)&mask != filter&mask {
			continue
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, "", err)
	}
	return out, nil
}
