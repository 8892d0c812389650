package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// LifecycleEventTypes — события жизненного цикла брони, публикуемые на шину.
var LifecycleEventTypes = []string{
	EventBookingCreated,
	EventBookingUpdated,
	EventBookingCancelled,
	EventBookingExpired,
	EventPaymentCompleted,
	EventPaymentExpired,
}

// SubscribeAuditLog подключает к шине подписчика, который пишет каждое
// событие жизненного цикла отдельной структурированной строкой в канал audit.
func SubscribeAuditLog(bus *EventBus, logger *zerolog.Logger) {
	auditLogger := logger.With().Str("channel", "audit").Logger()
	handler := func(event *Event) error {
		var payload AuditEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			auditLogger.Error().Err(err).Str("event_type", event.Type).Msg("audit payload decode error")
			return err
		}
		auditLogger.Info().
			Str("event_type", event.Type).
			Str("entity_type", payload.EntityType).
			Str("operation", payload.Operation).
			Int64("entity_id", payload.EntityID).
			Msg(payload.Description)
		return nil
	}
	for _, eventType := range LifecycleEventTypes {
		bus.Subscribe(eventType, handler)
	}
}
