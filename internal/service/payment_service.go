package service

import (
	"context"
	"errors"
	"fmt"

	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/metrics"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
)

// ErrPaymentNotOwner: в платежном пути чужой вызов трактуется как неверный
// аргумент, а не как запрет.
var ErrPaymentNotOwner = errors.New("only the booking owner can process payment")

// PaymentService подтверждает оплату бронирований. Эмуляция платежного
// шлюза: вызов — доверенный локальный сигнал об оплате.
type PaymentService struct {
	store   domain.Store
	cache   domain.AvailabilityCache
	auditor domain.EventRecorder
	retry   RetryPolicy
	logger  *zerolog.Logger
}

func NewPaymentService(store domain.Store, cache domain.AvailabilityCache, auditor domain.EventRecorder, retry RetryPolicy, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{store: store, cache: cache, auditor: auditor, retry: retry, logger: logger}
}

func (s *PaymentService) ProcessPayment(ctx context.Context, bookingID, userID int64) (*models.Payment, error) {
	var payment *models.Payment
	err := runWithRetry(ctx, s.retry, func() error {
		var err error
		payment, err = s.store.ProcessPayment(ctx, bookingID, userID)
		return err
	})
	if errors.Is(err, database.ErrNotOwner) {
		return nil, ErrPaymentNotOwner
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Error().Err(err).Msg("availability cache invalidation error")
		}
	}
	metrics.IncBookingOp("paid")
	s.auditor.Record(ctx, models.EntityPayment, models.OperationCreate, payment.ID,
		fmt.Sprintf("Payment completed: %d", payment.ID))

	s.logger.Info().
		Int64("payment_id", payment.ID).
		Int64("booking_id", bookingID).
		Int64("user_id", userID).
		Time("paid_at", *payment.PaidAt).
		Msg("payment processed")

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

func (s *PaymentService) GetPaymentByBooking(ctx context.Context, bookingID int64) (*models.Payment, error) {
	return s.store.GetPaymentByBookingID(ctx, bookingID)
}

func (s *PaymentService) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	return s.store.ListPayments(ctx)
}
