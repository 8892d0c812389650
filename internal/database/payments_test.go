package database

import (
	"context"
	"testing"
	"time"

	"unitbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPayment(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db)
	u1 := seedUnit(t, db, 100)
	u2 := seedUnit(t, db, 200)

	booking, _, err := db.CreateBooking(ctx, user.ID, []int64{u1.ID, u2.ID}, 15*time.Minute)
	require.NoError(t, err)

	payment, err := db.ProcessPayment(ctx, booking.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.PaidAt)
	assert.InDelta(t, (100+200)*models.CostMarkup, payment.Amount, 0.001)

	// Units are fixed as booked after payment.
	for _, id := range []int64{u1.ID, u2.ID} {
		unit, err := db.GetUnit(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.UnitStatusBooked, unit.Status)
	}
}

func TestProcessPaymentErrors(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db)
	unit := seedUnit(t, db, 100)

	booking, _, err := db.CreateBooking(ctx, user.ID, []int64{unit.ID}, 15*time.Minute)
	require.NoError(t, err)

	t.Run("unknown booking", func(t *testing.T) {
		_, err := db.ProcessPayment(ctx, 9999, user.ID)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("only owner can pay", func(t *testing.T) {
		other := &models.User{Username: "other", Email: "other@example.com"}
		require.NoError(t, db.CreateUser(ctx, other))
		_, err := db.ProcessPayment(ctx, booking.ID, other.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("double payment", func(t *testing.T) {
		_, err := db.ProcessPayment(ctx, booking.ID, user.ID)
		require.NoError(t, err)
		_, err = db.ProcessPayment(ctx, booking.ID, user.ID)
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})
}

func TestProcessPaymentAfterDeadline(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db)
	unit := seedUnit(t, db, 100)

	// Negative window puts the deadline in the past immediately.
	booking, _, err := db.CreateBooking(ctx, user.ID, []int64{unit.ID}, -time.Minute)
	require.NoError(t, err)

	_, err = db.ProcessPayment(ctx, booking.ID, user.ID)
	assert.ErrorIs(t, err, ErrPaymentExpired)

	// A failed payment does not change unit state.
	still, err := db.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusReserved, still.Status)
}

func TestGetPaymentByBookingID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db)
	unit := seedUnit(t, db, 100)

	booking, created, err := db.CreateBooking(ctx, user.ID, []int64{unit.ID}, 15*time.Minute)
	require.NoError(t, err)

	payment, err := db.GetPaymentByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, payment.ID)
	assert.Equal(t, booking.ID, payment.BookingID)

	_, err = db.GetPaymentByBookingID(ctx, 9999)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestListPayments(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	user := seedUser(t, db)
	u1 := seedUnit(t, db, 100)
	u2 := seedUnit(t, db, 200)

	_, _, err := db.CreateBooking(ctx, user.ID, []int64{u1.ID}, 15*time.Minute)
	require.NoError(t, err)
	_, _, err = db.CreateBooking(ctx, user.ID, []int64{u2.ID}, 15*time.Minute)
	require.NoError(t, err)

	payments, err := db.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestPaymentIsExpired(t *testing.T) {
	now := time.Now()
	pending := &models.Payment{Status: models.PaymentStatusPending, Deadline: now.Add(-time.Second)}
	assert.True(t, pending.IsExpired(now))

	future := &models.Payment{Status: models.PaymentStatusPending, Deadline: now.Add(time.Minute)}
	assert.False(t, future.IsExpired(now))

	// Completed payments never expire, no matter the deadline.
	paid := &models.Payment{Status: models.PaymentStatusCompleted, Deadline: now.Add(-time.Hour)}
	assert.False(t, paid.IsExpired(now))
}
