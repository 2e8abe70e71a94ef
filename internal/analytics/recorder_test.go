// internal/analytics/recorder_test.go
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/models"

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

type mockIndexer struct {
	calls  int
	events []models.AnalyticsEvent
	err    error
}

func (m *mockIndexer) Index(_ context.Context, event models.AnalyticsEvent) error {
	m.calls++
	m.events = append(m.events, event)
	return m.err
}

func TestRecord_ViewInsertsAndIncrements(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WithArgs(sqlmock.AnyArg(), "listing-1", models.KindView, "actor-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE listings SET view_count").
		WithArgs("listing-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), models.KindView, "listing-1", "actor-1", map[string]interface{}{"source": "search"})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_ClickUsesClickCounter(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE listings SET click_count").
		WithArgs("listing-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), models.KindClick, "listing-1", "", nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_ContactSkipsCounter(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), models.KindContact, "listing-1", "actor-1", nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_InsertFailureDoesNotPanicAndStillIncrements(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("UPDATE listings SET view_count").
		WithArgs("listing-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Must not panic or propagate; the increment is an independent call.
	r.Record(context.Background(), models.KindView, "listing-1", "", nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_CounterFailureSwallowed(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE listings SET view_count").
		WillReturnError(errors.New("deadlock detected"))

	r.Record(context.Background(), models.KindView, "listing-1", "", nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_EmptySubjectDropped(t *testing.T) {
	db, mock := setupMockDB(t)
	r := NewRecorder(db, nil, logger.Nop())

	// No SQL expected at all.
	r.Record(context.Background(), models.KindView, "", "actor-1", nil)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord_IndexerReceivesEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	idx := &mockIndexer{}
	r := NewRecorder(db, idx, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), models.KindContact, "listing-1", "actor-1", nil)

	require.Equal(t, 1, idx.calls)
	assert.Equal(t, "listing-1", idx.events[0].SubjectID)
	assert.Equal(t, models.KindContact, idx.events[0].Kind)
	assert.NotEmpty(t, idx.events[0].ID)
}

func TestRecord_IndexerFailureSwallowed(t *testing.T) {
	db, mock := setupMockDB(t)
	idx := &mockIndexer{err: errors.New("index unavailable")}
	r := NewRecorder(db, idx, logger.Nop())

	mock.ExpectExec("INSERT INTO listing_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r.Record(context.Background(), models.KindContact, "listing-1", "", nil)

	assert.Equal(t, 1, idx.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
