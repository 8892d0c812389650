package service

import (
	"context"

	"unitbook/internal/domain"
	"unitbook/internal/events"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
)

// EventService — аудиторский сток. Запись в журнал fire-and-forget:
// ошибка стока логируется и не мешает бизнес-операции.
type EventService struct {
	store     domain.Store
	bus       *events.EventBus
	publisher domain.AuditPublisher
	logger    *zerolog.Logger
}

func NewEventService(store domain.Store, bus *events.EventBus, publisher domain.AuditPublisher, logger *zerolog.Logger) *EventService {
	return &EventService{store: store, bus: bus, publisher: publisher, logger: logger}
}

func (s *EventService) Record(ctx context.Context, entityType, operation string, entityID int64, description string) {
	event := &models.Event{
		EntityType:  entityType,
		Operation:   operation,
		EntityID:    entityID,
		Description: description,
	}

	if err := s.store.CreateEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).
			Str("entity_type", entityType).
			Str("operation", operation).
			Int64("entity_id", entityID).
			Msg("audit event write error")
		return
	}

	if s.bus != nil {
		payload := events.AuditEventPayload{
			EntityType:  event.EntityType,
			Operation:   event.Operation,
			EntityID:    event.EntityID,
			Description: event.Description,
			CreatedAt:   event.CreatedAt,
		}
		if err := s.bus.PublishJSON(busEventType(entityType, operation), payload); err != nil {
			s.logger.Error().Err(err).Int64("entity_id", entityID).Msg("audit bus publish error")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error().Err(err).Int64("entity_id", entityID).Msg("audit kafka publish error")
		}
	}
}

func (s *EventService) List(ctx context.Context) ([]*models.Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *EventService) FindByEntityType(ctx context.Context, entityType string) ([]*models.Event, error) {
	return s.store.FindEventsByEntityType(ctx, entityType)
}

func busEventType(entityType, operation string) string {
	switch {
	case entityType == models.EntityBooking && operation == models.OperationCreate:
		return events.EventBookingCreated
	case entityType == models.EntityBooking && operation == models.OperationUpdate:
		return events.EventBookingUpdated
	case entityType == models.EntityBooking && operation == models.OperationDelete:
		return events.EventBookingCancelled
	case entityType == models.EntityPayment && operation == models.OperationCreate:
		return events.EventPaymentCompleted
	case entityType == models.EntityPayment && operation == models.OperationUpdate:
		return events.EventPaymentExpired
	default:
		return entityType + "_" + operation
	}
}
