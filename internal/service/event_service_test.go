package service

import (
	"context"
	"testing"

	"unitbook/internal/events"
	"unitbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventServiceRecord(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	bus := events.NewEventBus()
	var published []*events.Event
	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		published = append(published, event)
		return nil
	})

	svc := NewEventService(f.db, bus, nil, f.logger)

	svc.Record(ctx, models.EntityBooking, models.OperationCreate, 42, "Booking created: 42")

	// Запись легла в журнал.
	stored, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(42), stored[0].EntityID)

	// И ушла подписчикам шины.
	require.Len(t, published, 1)
	assert.Equal(t, events.EventBookingCreated, published[0].Type)
}

func TestEventServiceFindByEntityType(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	svc := NewEventService(f.db, nil, nil, f.logger)

	svc.Record(ctx, models.EntityBooking, models.OperationCreate, 1, "Booking created: 1")
	svc.Record(ctx, models.EntityPayment, models.OperationCreate, 1, "Payment completed: 1")

	bookingEvents, err := svc.FindByEntityType(ctx, models.EntityBooking)
	require.NoError(t, err)
	assert.Len(t, bookingEvents, 1)
}

func TestBusEventTypeMapping(t *testing.T) {
	assert.Equal(t, events.EventBookingCreated, busEventType(models.EntityBooking, models.OperationCreate))
	assert.Equal(t, events.EventBookingCancelled, busEventType(models.EntityBooking, models.OperationDelete))
	assert.Equal(t, events.EventPaymentCompleted, busEventType(models.EntityPayment, models.OperationCreate))
	assert.Equal(t, events.EventPaymentExpired, busEventType(models.EntityPayment, models.OperationUpdate))
	// Unmapped combinations fall back to a generic type.
	assert.Equal(t, "USER_CREATE", busEventType(models.EntityUser, models.OperationCreate))
}
