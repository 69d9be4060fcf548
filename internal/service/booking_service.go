package service

import (
	"context"
	"errors"
	"time"

	"fonteyn/internal/database"
	"fonteyn/internal/domain"
	"fonteyn/internal/events"
	"fonteyn/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo         domain.Repository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	logger       *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:         repo,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		logger:       logger,
	}
}

// ParseStayRange parses start/end dates and returns the night count.
// Non-positive night counts are rejected: a zero or negative cost is not a
// sane outcome.
func ParseStayRange(startDate, endDate string) (time.Time, time.Time, int64, error) {
	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, ErrInvalidDateRange
	}
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, ErrInvalidDateRange
	}

	nights := int64(end.Sub(start).Hours() / 24)
	if nights <= 0 {
		return time.Time{}, time.Time{}, 0, ErrInvalidDateRange
	}
	return start, end, nights, nil
}

// CreateBooking computes the stay cost and persists the booking together
// with its unpaid transaction as one atomic unit. The caller supplies an
// authenticated user id; session gating happens at the boundary.
func (s *BookingService) CreateBooking(ctx context.Context, userID int64, roomName string, nightlyPrice float64, startDate, endDate string) (*models.Booking, error) {
	start, end, nights, err := ParseStayRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:    userID,
		RoomName:  roomName,
		StartDate: start,
		EndDate:   end,
		TotalCost: float64(nights) * nightlyPrice,
	}

	if err := s.repo.CreateBookingWithTransaction(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("room", roomName).Msg("create booking failed")
		return nil, ErrStorage
	}

	s.publishCreated(booking, nights)
	s.enqueueSync(ctx, booking)

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", userID).
		Str("room", roomName).
		Int64("nights", nights).
		Float64("total_cost", booking.TotalCost).
		Msg("booking created")

	return booking, nil
}

// LatestBooking returns the user's most recent booking for confirmation
// display. database.ErrNotFound passes through as a redirect condition.
func (s *BookingService) LatestBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	booking, err := s.repo.GetLatestBooking(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("get latest booking failed")
		return nil, ErrStorage
	}
	return booking, nil
}

// BookingsForExport returns bookings intersecting the date window.
func (s *BookingService) BookingsForExport(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	bookings, err := s.repo.GetBookingsByStayRange(ctx, startDate, endDate)
	if err != nil {
		s.logger.Error().Err(err).Msg("get bookings for export failed")
		return nil, ErrStorage
	}
	return bookings, nil
}

func (s *BookingService) publishCreated(booking *models.Booking, nights int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		RoomName:  booking.RoomName,
		StartDate: booking.StartDate.Format(models.DateLayout),
		EndDate:   booking.EndDate.Format(models.DateLayout),
		Nights:    nights,
		TotalCost: booking.TotalCost,
	}

	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, "upsert", booking.ID, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}
