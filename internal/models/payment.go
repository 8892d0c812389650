package models

import "time"

type Payment struct {
	ID        int64      `json:"id"`
	BookingID int64      `json:"booking_id"`
	Status    string     `json:"status"` // PENDING, COMPLETED
	Amount    float64    `json:"amount"`
	Deadline  time.Time  `json:"deadline"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsPaid reports whether the payment has been completed.
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentStatusCompleted
}

// IsExpired: платеж просрочен, если дедлайн прошел, а оплата так и не поступила.
// Завершенный платеж просроченным не считается.
func (p *Payment) IsExpired(now time.Time) bool {
	return p.Status == PaymentStatusPending && now.After(p.Deadline)
}
