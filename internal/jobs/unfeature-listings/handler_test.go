// internal/jobs/unfeature-listings/handler_test.go
package unfeaturelistings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"autoparts-relay/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func TestExecute_ClearsElapsedFeaturedListings(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, logger.Nop())

	mock.ExpectQuery("SELECT id, title FROM listings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("lst-1", "BMW E46 alternator").
			AddRow("lst-2", "Bosch wiper set"))
	mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 2))

	output, err := h.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), output.Unfeatured)
	assert.Equal(t, []string{"lst-1", "lst-2"}, output.ListingIDs)
	assert.NotEmpty(t, output.RanAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_IdempotentSecondRun(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, logger.Nop())

	mock.ExpectQuery("SELECT id, title FROM listings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("lst-1", "BMW E46 alternator"))
	mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, title FROM listings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))
	mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := h.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Unfeatured)

	second, err := h.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Unfeatured)
	assert.Empty(t, second.ListingIDs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ReadErrorAborts(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, logger.Nop())

	mock.ExpectQuery("SELECT id, title FROM listings").
		WillReturnError(errors.New("connection refused"))

	output, err := h.Execute(context.Background())
	assert.Error(t, err)
	assert.Nil(t, output)
}

func TestExecute_UpdateErrorAborts(t *testing.T) {
	db, mock := setupMockDB(t)
	h := NewHandler(createTestConfig(), db, logger.Nop())

	mock.ExpectQuery("SELECT id, title FROM listings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("lst-1", "BMW E46 alternator"))
	mock.ExpectExec("UPDATE listings").
		WillReturnError(errors.New("deadlock detected"))

	output, err := h.Execute(context.Background())
	assert.Error(t, err)
	assert.Nil(t, output)
}
