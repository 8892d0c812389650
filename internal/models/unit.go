package models

import "time"

// CostMarkup — системная наценка поверх базовой стоимости.
const CostMarkup = 1.15

type Unit struct {
	ID          int64     `json:"id"`
	Rooms       int       `json:"rooms"`
	Type        string    `json:"type"` // HOME, FLAT, APARTMENTS
	Floor       int       `json:"floor"`
	BaseCost    float64   `json:"base_cost"`
	TotalCost   float64   `json:"total_cost"`
	Status      string    `json:"status"`
	BookingID   *int64    `json:"booking_id,omitempty"`
	Version     int64     `json:"version"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TotalCostFor возвращает итоговую стоимость с учетом наценки.
func TotalCostFor(baseCost float64) float64 {
	return baseCost * CostMarkup
}

// IsAvailable reports whether the unit can enter a new booking.
func (u *Unit) IsAvailable() bool {
	return u.Status == UnitStatusAvailable
}
