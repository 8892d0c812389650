package service

import (
	"context"
	"testing"
	"time"

	"unitbook/internal/database"
	"unitbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentServiceProcessPayment(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	bookings := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)
	payments := NewPaymentService(f.db, f.cache, f.auditor, fastRetry(), f.logger)

	booking, err := bookings.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)

	require.NoError(t, f.cache.Set(ctx, 5))

	payment, err := payments.ProcessPayment(ctx, booking.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.PaidAt)

	_, ok, err := f.cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "cache must be invalidated after payment")

	events := f.auditor.recorded()
	last := events[len(events)-1]
	assert.Equal(t, models.EntityPayment, last.EntityType)
	assert.Equal(t, models.OperationCreate, last.Operation)
	assert.Equal(t, payment.ID, last.EntityID)
}

func TestPaymentServiceNotOwner(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	owner := f.seedUser(t)
	stranger := &models.User{Username: "stranger", Email: "stranger@example.com"}
	require.NoError(t, f.db.CreateUser(ctx, stranger))
	unit := f.seedUnit(t)

	bookings := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)
	payments := NewPaymentService(f.db, f.cache, f.auditor, fastRetry(), f.logger)

	booking, err := bookings.CreateBooking(ctx, owner.ID, []int64{unit.ID})
	require.NoError(t, err)

	// Чужой вызов платежа — неверный аргумент, не запрет доступа.
	_, err = payments.ProcessPayment(ctx, booking.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrPaymentNotOwner)
	assert.NotErrorIs(t, err, database.ErrNotOwner)
}

func TestPaymentServiceDoublePayment(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	bookings := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)
	payments := NewPaymentService(f.db, f.cache, f.auditor, fastRetry(), f.logger)

	booking, err := bookings.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)

	_, err = payments.ProcessPayment(ctx, booking.ID, user.ID)
	require.NoError(t, err)

	_, err = payments.ProcessPayment(ctx, booking.ID, user.ID)
	assert.ErrorIs(t, err, database.ErrAlreadyPaid)
}

func TestPaymentServiceReads(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	bookings := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)
	payments := NewPaymentService(f.db, f.cache, f.auditor, fastRetry(), f.logger)

	booking, err := bookings.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)

	byBooking, err := payments.GetPaymentByBooking(ctx, booking.ID)
	require.NoError(t, err)

	byID, err := payments.GetPayment(ctx, byBooking.ID)
	require.NoError(t, err)
	assert.Equal(t, byBooking.ID, byID.ID)

	all, err := payments.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
