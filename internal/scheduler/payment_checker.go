package scheduler

import (
	"context"
	"fmt"
	"time"

	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/metrics"
	"unitbook/internal/models"
	"unitbook/internal/service"

	"github.com/rs/zerolog"
)

// PaymentChecker — единственный механизм автоматической уборки: по таймеру
// находит брони с истекшим окном оплаты и снимает их. Работает через те же
// транзакционные операции хранилища, что и клиентские запросы, поэтому
// гонка с оплатой или отменой решается порядком коммитов.
type PaymentChecker struct {
	store    domain.Store
	cache    domain.AvailabilityCache
	auditor  domain.EventRecorder
	retry    service.RetryPolicy
	window   time.Duration
	interval time.Duration
	logger   *zerolog.Logger
}

func NewPaymentChecker(store domain.Store, cache domain.AvailabilityCache, auditor domain.EventRecorder, retry service.RetryPolicy, window, interval time.Duration, logger *zerolog.Logger) *PaymentChecker {
	if interval <= 0 {
		interval = time.Minute
	}
	if window <= 0 {
		window = models.DefaultPaymentWindowMinutes * time.Minute
	}
	return &PaymentChecker{
		store:    store,
		cache:    cache,
		auditor:  auditor,
		retry:    retry,
		window:   window,
		interval: interval,
		logger:   logger,
	}
}

// Start запускает цикл проверки; останавливается по ctx.
func (c *PaymentChecker) Start(ctx context.Context) {
	c.logger.Info().Dur("interval", c.interval).Dur("window", c.window).Msg("payment checker started")
	defer c.logger.Info().Msg("payment checker stopped")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckExpiredPayments(ctx)
		}
	}
}

// CheckExpiredPayments выполняет один проход. Ошибка одной брони логируется
// и не прерывает уборку остальных. Проход идемпотентен: снятая бронь
// исчезает из выборки следующего прохода.
func (c *PaymentChecker) CheckExpiredPayments(ctx context.Context) {
	cutoff := time.Now().Add(-c.window)

	ids, err := c.store.FindExpiredBookings(ctx, cutoff)
	if err != nil {
		c.logger.Error().Err(err).Msg("find expired bookings error")
		return
	}
	if len(ids) == 0 {
		return
	}

	expired := 0
	for _, bookingID := range ids {
		outcome, err := c.expireWithRetry(ctx, bookingID)
		if err != nil {
			c.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("expire booking error")
			continue
		}
		if !outcome.Expired {
			// Платеж успел завершиться между выборкой и транзакцией.
			continue
		}

		expired++
		metrics.IncBookingOp("expired")
		if outcome.HadPayment {
			c.auditor.Record(ctx, models.EntityPayment, models.OperationUpdate, outcome.PaymentID,
				fmt.Sprintf("Payment expired: %d", outcome.PaymentID))
		}
		c.auditor.Record(ctx, models.EntityBooking, models.OperationDelete, bookingID,
			fmt.Sprintf("Booking expired: %d", bookingID))

		c.logger.Info().
			Int64("booking_id", bookingID).
			Dur("window", c.window).
			Msg("booking auto-expired due to payment timeout")
	}

	if expired > 0 && c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			c.logger.Error().Err(err).Msg("availability cache invalidation error")
		}
	}
}

// expireWithRetry повторяет снятие брони только при транзиентных конфликтах;
// после исчерпания попыток бронь достанется следующему проходу.
func (c *PaymentChecker) expireWithRetry(ctx context.Context, bookingID int64) (database.ExpireOutcome, error) {
	maxRetries := c.retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var outcome database.ExpireOutcome
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		outcome, err = c.store.ExpireBooking(ctx, bookingID)
		if err == nil || !database.IsTransient(err) {
			return outcome, err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-time.After(c.retry.NextDelay(attempt)):
		}
	}
	return outcome, err
}
