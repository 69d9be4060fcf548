package domain

import (
	"context"
	"time"

	"fonteyn/internal/models"
)

type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	SyncAccommodations(ctx context.Context, accommodations []models.Accommodation) error
	GetAccommodations(ctx context.Context) ([]*models.Accommodation, error)
	GetAccommodationByName(ctx context.Context, name string) (*models.Accommodation, error)

	CreateBookingWithTransaction(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetLatestBooking(ctx context.Context, userID int64) (*models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	GetBookingsByStayRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error)
	GetTransactionByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error)
}

// SessionRepository is the opaque-token session store. Get returns
// (nil, nil) when the token is unknown or expired.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingPaidStatus(ctx context.Context, bookingID int64, paid bool) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking) error
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (int64, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, userID int64, roomName string, nightlyPrice float64, startDate, endDate string) (*models.Booking, error)
	LatestBooking(ctx context.Context, userID int64) (*models.Booking, error)
	BookingsForExport(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error)
}

type CatalogService interface {
	ListAccommodations(ctx context.Context) ([]*models.Accommodation, error)
	GetAccommodationByName(ctx context.Context, name string) (*models.Accommodation, error)
}
