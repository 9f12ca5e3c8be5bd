package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

func setupMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, DialectPostgres), mock
}

func pg(query string) string {
	return regexp.QuoteMeta(DialectPostgres.rebind(query))
}

func TestPostgresCreateApplicationUniqueViolation(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(pg(qLookupApp)).
		WithArgs("Billing").
		WillReturnRows(sqlmock.NewRows([]string{"app_id", "flags"}))
	mock.ExpectExec(pg(qInsertApp)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := s.CreateApplication(context.Background(), types.ApplicationSpec{Name: "Billing"}, types.FlagConfigStore, 1)
	assert.ErrorIs(t, err, types.ErrApplicationExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateApplicationDriverFailure(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(pg(qLookupApp)).
		WithArgs("Billing").
		WillReturnError(&pq.Error{Code: "08006", Message: "connection failure"})
	mock.ExpectRollback()

	err := s.CreateApplication(context.Background(), types.ApplicationSpec{Name: "Billing"}, types.FlagConfigStore, 1)
	require.Error(t, err)

	var storeErr *types.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "CreateApplication", storeErr.Op)
	assert.Equal(t, "Billing", storeErr.App)
	assert.Equal(t, "08006", storeErr.Code)
	assert.True(t, types.IsStoreFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommitFailureIsStoreError(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(pg(qLookupApp)).
		WithArgs("Billing").
		WillReturnRows(sqlmock.NewRows([]string{"app_id", "flags"}).AddRow("id-1", int64(types.FlagConfigStore)))
	mock.ExpectExec(pg(qUpdateFlags)).
		WithArgs(int64(types.FlagConfigStore|types.FlagEnabled), "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := s.UpdateApplication(context.Background(), "Billing", types.FlagEnabled, types.FlagEnabled)
	assert.True(t, types.IsStoreFailure(err))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetApplicationInfoNotFound(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectQuery(pg(qAppInfo)).
		WithArgs("Missing").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := s.GetApplicationInfo(context.Background(), "Missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.False(t, types.IsStoreFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnumerateQueryFailure(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectQuery(pg(qEnumerate)).WillReturnError(errors.New("query fail"))

	_, err := s.EnumerateApplications(context.Background(), 0, 0)
	assert.True(t, types.IsStoreFailure(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnumerateFiltersFlags(t *testing.T) {
	s, mock := setupMock(t)

	rows := sqlmock.NewRows([]string{"name", "description", "contact_info", "flags"}).
		AddRow("Billing", "billing", "ops@example.com", int64(types.FlagConfigStore|types.FlagEnabled)).
		AddRow("Local", "", "", int64(types.FlagAllowLocal))
	mock.ExpectQuery(pg(qEnumerate)).WillReturnRows(rows)

	apps, err := s.EnumerateApplications(context.Background(), types.FlagConfigStore, types.FlagConfigStore)
	require.NoError(t, err)
	assert.Equal(t, []types.ApplicationSummary{
		{Name: "Billing", Description: "billing", ContactInfo: "ops@example.com"},
	}, apps)
	assert.NoError(t, mock.ExpectationsWereMet())
}
