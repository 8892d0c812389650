package domain

import (
	"context"
	"time"

	"unitbook/internal/database"
	"unitbook/internal/models"
)

// Store — контракт хранилища для сервисного слоя. Реализуется
// database.DB; в тестах подменяется заглушками.
type Store interface {
	CreateBooking(ctx context.Context, userID int64, unitIDs []int64, paymentWindow time.Duration) (*models.Booking, *models.Payment, error)
	CancelBooking(ctx context.Context, bookingID, userID int64) error
	UpdateBooking(ctx context.Context, bookingID int64, newUnitIDs []int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	FindExpiredBookings(ctx context.Context, cutoff time.Time) ([]int64, error)
	ExpireBooking(ctx context.Context, bookingID int64) (database.ExpireOutcome, error)

	ProcessPayment(ctx context.Context, bookingID, userID int64) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]*models.Payment, error)

	CreateUnit(ctx context.Context, unit *models.Unit) error
	GetUnit(ctx context.Context, id int64) (*models.Unit, error)
	UpdateUnit(ctx context.Context, id int64, upd database.UnitUpdate) (*models.Unit, error)
	DeleteUnit(ctx context.Context, id int64) error
	SearchUnits(ctx context.Context, filter database.UnitFilter) ([]*models.Unit, error)
	ListUnits(ctx context.Context) ([]*models.Unit, error)
	CountAvailableUnits(ctx context.Context) (int64, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, upd database.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context) ([]*models.Event, error)
	FindEventsByEntityType(ctx context.Context, entityType string) ([]*models.Event, error)
}

// AvailabilityCache хранит производное значение "сколько юнитов свободно".
type AvailabilityCache interface {
	// Get возвращает (count, true) при попадании и (_, false) при промахе.
	Get(ctx context.Context) (int64, bool, error)
	Set(ctx context.Context, count int64) error
	Invalidate(ctx context.Context) error
}

// EventRecorder — аудиторский сток. Запись fire-and-forget: ошибка стока
// логируется, но не роняет бизнес-операцию.
type EventRecorder interface {
	Record(ctx context.Context, entityType, operation string, entityID int64, description string)
}

// AuditPublisher доставляет события во внешнюю шину.
type AuditPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
}
