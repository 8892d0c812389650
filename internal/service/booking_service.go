package service

import (
	"context"
	"fmt"
	"time"

	"unitbook/internal/domain"
	"unitbook/internal/metrics"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
)

// BookingService координирует бронирование юнитов. Атомарность живет в
// хранилище; здесь — повтор транзиентных конфликтов, инвалидация кэша
// доступности и аудит.
type BookingService struct {
	store         domain.Store
	cache         domain.AvailabilityCache
	auditor       domain.EventRecorder
	retry         RetryPolicy
	paymentWindow time.Duration
	logger        *zerolog.Logger
}

func NewBookingService(store domain.Store, cache domain.AvailabilityCache, auditor domain.EventRecorder, retry RetryPolicy, paymentWindow time.Duration, logger *zerolog.Logger) *BookingService {
	if paymentWindow <= 0 {
		paymentWindow = models.DefaultPaymentWindowMinutes * time.Minute
	}
	return &BookingService{
		store:         store,
		cache:         cache,
		auditor:       auditor,
		retry:         retry,
		paymentWindow: paymentWindow,
		logger:        logger,
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, userID int64, unitIDs []int64) (*models.Booking, error) {
	var booking *models.Booking
	var payment *models.Payment

	err := runWithRetry(ctx, s.retry, func() error {
		var err error
		booking, payment, err = s.store.CreateBooking(ctx, userID, unitIDs, s.paymentWindow)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	metrics.IncBookingOp("created")
	s.auditor.Record(ctx, models.EntityBooking, models.OperationCreate, booking.ID,
		fmt.Sprintf("Booking created: %d", booking.ID))

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", userID).
		Int("units", len(booking.UnitIDs)).
		Time("payment_deadline", payment.Deadline).
		Msg("booking created")

	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	err := runWithRetry(ctx, s.retry, func() error {
		return s.store.CancelBooking(ctx, bookingID, userID)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx)
	metrics.IncBookingOp("cancelled")
	s.auditor.Record(ctx, models.EntityBooking, models.OperationDelete, bookingID,
		fmt.Sprintf("Booking deleted: %d", bookingID))

	s.logger.Info().Int64("booking_id", bookingID).Int64("user_id", userID).Msg("booking cancelled")
	return nil
}

// UpdateBooking заменяет набор юнитов брони. Пустой набор — no-op:
// возвращаем бронь как есть, без записи и без события.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID int64, newUnitIDs []int64) (*models.Booking, error) {
	if len(newUnitIDs) == 0 {
		return s.store.GetBooking(ctx, bookingID)
	}

	var booking *models.Booking
	err := runWithRetry(ctx, s.retry, func() error {
		var err error
		booking, err = s.store.UpdateBooking(ctx, bookingID, newUnitIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	metrics.IncBookingOp("updated")
	s.auditor.Record(ctx, models.EntityBooking, models.OperationUpdate, bookingID,
		fmt.Sprintf("Booking updated: %d", bookingID))

	s.logger.Info().Int64("booking_id", bookingID).Int("units", len(booking.UnitIDs)).Msg("booking updated")
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.store.ListBookings(ctx)
}

func (s *BookingService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Error().Err(err).Msg("availability cache invalidation error")
	}
}
