package models

import "time"

// Event — запись в журнале аудита. Журнал только на запись:
// бизнес-логика никогда не читает события обратно.
type Event struct {
	ID          int64     `json:"id"`
	EntityType  string    `json:"entity_type"`
	Operation   string    `json:"operation"`
	EntityID    int64     `json:"entity_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
