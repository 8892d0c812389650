package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UnitIDs   []int64   `json:"unit_ids"`
	CreatedAt time.Time `json:"created_at"`
}
