package database

import (
	"context"
	"fmt"
	"time"

	"unitbook/internal/models"
)

func (db *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO events (entity_type, operation, entity_id, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.EntityType, event.Operation, event.EntityID, event.Description, now)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id
	event.CreatedAt = now
	return nil
}

func (db *DB) ListEvents(ctx context.Context) ([]*models.Event, error) {
	return db.queryEvents(ctx,
		`SELECT id, entity_type, operation, entity_id, description, created_at FROM events ORDER BY id`)
}

func (db *DB) FindEventsByEntityType(ctx context.Context, entityType string) ([]*models.Event, error) {
	return db.queryEvents(ctx,
		`SELECT id, entity_type, operation, entity_id, description, created_at FROM events WHERE entity_type = ? ORDER BY id`,
		entityType)
}

func (db *DB) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.EntityType, &e.Operation, &e.EntityID, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
