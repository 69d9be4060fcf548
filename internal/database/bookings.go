package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fonteyn/internal/models"
)

// CreateBookingWithTransaction inserts the booking row and its unpaid
// transaction row inside one SQL transaction. Either both rows become
// visible or neither does.
func (db *DB) CreateBookingWithTransaction(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	queryBooking := `INSERT INTO bookings (user_id, room_name, start_date, end_date, total_cost, created_at)
                     VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryBooking,
		booking.UserID,
		booking.RoomName,
		booking.StartDate.Format(models.DateLayout),
		booking.EndDate.Format(models.DateLayout),
		booking.TotalCost,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	queryTransaction := `INSERT INTO transactions (booking_id, is_paid, payment_date, due_date, created_at)
                         VALUES (?, 0, NULL, NULL, ?)`
	if _, err := tx.ExecContext(ctx, queryTransaction, id, now); err != nil {
		return fmt.Errorf("failed to insert transaction in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	return nil
}

const bookingColumns = `id, user_id, room_name, start_date, end_date, total_cost, created_at`

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return db.queryBooking(ctx, query, id)
}

// GetLatestBooking returns the most recently created booking for a user,
// highest identifier first.
func (db *DB) GetLatestBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY id DESC LIMIT 1`
	return db.queryBooking(ctx, query, userID)
}

func (db *DB) queryBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	var b models.Booking
	var startStr, endStr string
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&b.ID, &b.UserID, &b.RoomName, &startStr, &endStr, &b.TotalCost, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := parseBookingDates(&b, startStr, endStr); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY id DESC`
	return db.queryBookings(ctx, query, userID)
}

// GetBookingsByStayRange returns bookings whose stay intersects the given
// date window, used by exports and the sheets ledger.
func (db *DB) GetBookingsByStayRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_date <= ? AND end_date >= ? ORDER BY start_date, id`
	return db.queryBookings(ctx, query,
		endDate.Format(models.DateLayout), startDate.Format(models.DateLayout))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var startStr, endStr string
		err := rows.Scan(&b.ID, &b.UserID, &b.RoomName, &startStr, &endStr, &b.TotalCost, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if err := parseBookingDates(b, startStr, endStr); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bookings: %w", err)
	}
	return bookings, nil
}

func parseBookingDates(b *models.Booking, startStr, endStr string) error {
	var err error
	b.StartDate, err = time.Parse(models.DateLayout, startStr)
	if err != nil {
		return fmt.Errorf("failed to parse booking start date %s: %w", startStr, err)
	}
	b.EndDate, err = time.Parse(models.DateLayout, endStr)
	if err != nil {
		return fmt.Errorf("failed to parse booking end date %s: %w", endStr, err)
	}
	return nil
}

func (db *DB) GetTransactionByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	query := `SELECT id, booking_id, is_paid, payment_date, due_date, created_at
              FROM transactions WHERE booking_id = ?`
	var t models.Transaction
	var paymentDate, dueDate sql.NullTime
	err := db.QueryRowContext(ctx, query, bookingID).Scan(
		&t.ID, &t.BookingID, &t.IsPaid, &paymentDate, &dueDate, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if paymentDate.Valid {
		t.PaymentDate = &paymentDate.Time
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

// CountBookings and CountTransactions exist for consistency checks in
// tests and health reporting.
func (db *DB) CountBookings(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (db *DB) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
