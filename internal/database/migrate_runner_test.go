package database

import (
	"context"
	"regexp"
	"testing"

	"quill/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func expectLedger(mock sqlmock.Sqlmock, versions ...int) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS migration_logs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version"})
	for _, v := range versions {
		rows.AddRow(v)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "version" FROM "migration_logs"`)).WillReturnRows(rows)
}

func TestRollbackLast_FreshDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	expectLedger(mock)

	_, err := RollbackLast(context.Background(), db)
	assert.ErrorIs(t, err, ErrNothingToRollback)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollbackLast_UnknownVersion(t *testing.T) {
	db, mock := setupMockDB(t)
	expectLedger(mock, 1, 42)

	_, err := RollbackLast(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000042")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RefusesNewerDatabase(t *testing.T) {
	db, mock := setupMockDB(t)
	expectLedger(mock, 1, 7)

	err := RunMigrations(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSchemaStatus_UpToDate(t *testing.T) {
	db, mock := setupMockDB(t)
	expectLedger(mock, 1)

	status, err := GetSchemaStatus(context.Background(), db, &config.Config{DBDriver: "postgres", Env: "production", DBSchemaMode: "sql"})
	require.NoError(t, err)
	assert.True(t, status.WillRunSQL)
	assert.False(t, status.WillRunAutoMigrate)
	assert.Equal(t, []int{1}, status.AppliedVersions)
	assert.Empty(t, status.PendingMigrations)
	assert.NoError(t, mock.ExpectationsWereMet())
}
