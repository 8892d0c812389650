package models

// Статусы юнитов.
const (
	UnitStatusAvailable   = "AVAILABLE"
	UnitStatusReserved    = "RESERVED"
	UnitStatusBooked      = "BOOKED"
	UnitStatusMaintenance = "MAINTENANCE"
	UnitStatusUnavailable = "UNAVAILABLE"
)

// Статусы платежей.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
)

// Типы размещения.
const (
	AccommodationHome       = "HOME"
	AccommodationFlat       = "FLAT"
	AccommodationApartments = "APARTMENTS"
)

// Типы сущностей для журнала событий.
const (
	EntityUser    = "USER"
	EntityUnit    = "UNIT"
	EntityBooking = "BOOKING"
	EntityPayment = "PAYMENT"
)

// Операции журнала событий.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

const (
	// DefaultPaymentWindowMinutes окно оплаты по умолчанию
	DefaultPaymentWindowMinutes = 15

	// MinPaymentWindowMinutes / MaxPaymentWindowMinutes границы окна оплаты
	MinPaymentWindowMinutes = 1
	MaxPaymentWindowMinutes = 30

	// DefaultCacheTTL время жизни кэша количества доступных юнитов
	DefaultCacheTTL = 24 * 60 * 60 // 24 часа в секундах

	// AvailableCountCacheKey ключ кэша количества доступных юнитов
	AvailableCountCacheKey = "units:available_count"
)

// ValidUnitStatus reports whether s is a known unit status.
func ValidUnitStatus(s string) bool {
	switch s {
	case UnitStatusAvailable, UnitStatusReserved, UnitStatusBooked,
		UnitStatusMaintenance, UnitStatusUnavailable:
		return true
	}
	return false
}

// ValidAccommodationType reports whether t is a known accommodation type.
func ValidAccommodationType(t string) bool {
	switch t {
	case AccommodationHome, AccommodationFlat, AccommodationApartments:
		return true
	}
	return false
}
