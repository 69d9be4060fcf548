package worker

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fonteyn/internal/database"
	"fonteyn/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	err         error
	upsertCalls int
	paidCalls   int
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	f.upsertCalls++
	return f.err
}

func (f *fakeSheets) UpdateBookingPaidStatus(ctx context.Context, bookingID int64, paid bool) error {
	f.paidCalls++
	return f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (string, int, sql.NullTime) {
	t.Helper()
	var status string
	var retryCount int
	var nextRetry sql.NullTime
	err := db.QueryRow(`SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id).
		Scan(&status, &retryCount, &nextRetry)
	require.NoError(t, err)
	return status, retryCount, nextRetry
}

func testBooking(id int64) *models.Booking {
	return &models.Booking{
		ID:        id,
		UserID:    1,
		RoomName:  "Wave Villa",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		TotalCost: 225,
		CreatedAt: time.Now(),
	}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	require.NoError(t, worker.EnqueueTask(ctx, TaskUpsert, 0, testBooking(1)))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok, "expected task in local queue")
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "completed", status)
	assert.Zero(t, retryCount)
	assert.False(t, nextRetry.Valid)
	assert.Equal(t, 1, sheets.upsertCalls)
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)

	ctx := context.Background()
	require.NoError(t, worker.EnqueueTask(ctx, TaskUpsert, 0, testBooking(2)))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "retry", status)
	assert.Equal(t, 1, retryCount)
	require.True(t, nextRetry.Valid)
	assert.True(t, nextRetry.Time.After(time.Now()))
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	require.NoError(t, worker.EnqueueTask(ctx, TaskUpsert, 0, testBooking(3)))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "failed", status)
}

func TestProcessTask_MarkPaid(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	require.NoError(t, worker.EnqueueTask(ctx, TaskMarkPaid, 5, nil))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "completed", status)
	assert.Equal(t, 1, sheets.paidCalls)
}

func TestEnqueueTask_Validation(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	assert.Error(t, worker.EnqueueTask(ctx, "", 1, nil))
	assert.Error(t, worker.EnqueueTask(ctx, TaskUpsert, 0, nil))
	assert.Error(t, worker.EnqueueTask(ctx, TaskUpsert, 0, &models.Booking{}))
}

func TestProcessTask_UnknownTypeFails(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	require.NoError(t, worker.EnqueueTask(ctx, "teleport", 7, nil))

	task, ok := worker.tryLocalQueue()
	require.True(t, ok)
	worker.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, "failed", status)
}
