package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"unitbook/internal/models"
)

const unitColumns = `id, rooms, accommodation_type, floor, base_cost, total_cost,
                     status, booking_id, version, description, created_at, updated_at`

func scanUnit(row interface{ Scan(...any) error }) (*models.Unit, error) {
	var u models.Unit
	var bookingID sql.NullInt64
	err := row.Scan(
		&u.ID, &u.Rooms, &u.Type, &u.Floor, &u.BaseCost, &u.TotalCost,
		&u.Status, &bookingID, &u.Version, &u.Description, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bookingID.Valid {
		u.BookingID = &bookingID.Int64
	}
	return &u, nil
}

func (db *DB) CreateUnit(ctx context.Context, unit *models.Unit) error {
	if !models.ValidAccommodationType(unit.Type) {
		return fmt.Errorf("%w: unknown accommodation type %q", ErrInvalidUnit, unit.Type)
	}
	if unit.Status == "" {
		unit.Status = models.UnitStatusAvailable
	}
	if !models.ValidUnitStatus(unit.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidUnit, unit.Status)
	}

	unit.TotalCost = models.TotalCostFor(unit.BaseCost)
	now := time.Now()
	query := `INSERT INTO units (rooms, accommodation_type, floor, base_cost, total_cost, status, version, description, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		unit.Rooms, unit.Type, unit.Floor, unit.BaseCost, unit.TotalCost,
		unit.Status, 1, unit.Description, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	unit.ID = id
	unit.Version = 1
	unit.CreatedAt = now
	unit.UpdatedAt = now
	return nil
}

func (db *DB) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = ?`
	unit, err := scanUnit(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return unit, nil
}

// UnitUpdate описывает частичное обновление; nil-поля не трогаются.
type UnitUpdate struct {
	Rooms       *int
	Type        *string
	Status      *string
	Floor       *int
	BaseCost    *float64
	Description *string
}

func (db *DB) UpdateUnit(ctx context.Context, id int64, upd UnitUpdate) (*models.Unit, error) {
	unit, err := db.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Rooms != nil {
		unit.Rooms = *upd.Rooms
	}
	if upd.Type != nil {
		if !models.ValidAccommodationType(*upd.Type) {
			return nil, fmt.Errorf("%w: unknown accommodation type %q", ErrInvalidUnit, *upd.Type)
		}
		unit.Type = *upd.Type
	}
	if upd.Status != nil {
		if !models.ValidUnitStatus(*upd.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUnit, *upd.Status)
		}
		unit.Status = *upd.Status
	}
	if upd.Floor != nil {
		unit.Floor = *upd.Floor
	}
	if upd.BaseCost != nil {
		unit.BaseCost = *upd.BaseCost
		unit.TotalCost = models.TotalCostFor(*upd.BaseCost)
	}
	if upd.Description != nil {
		unit.Description = *upd.Description
	}

	now := time.Now()
	query := `UPDATE units SET rooms = ?, accommodation_type = ?, floor = ?, base_cost = ?, total_cost = ?,
                               status = ?, description = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		unit.Rooms, unit.Type, unit.Floor, unit.BaseCost, unit.TotalCost,
		unit.Status, unit.Description, now, id, unit.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update unit: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}

	unit.Version++
	unit.UpdatedAt = now
	return unit, nil
}

func (db *DB) DeleteUnit(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUnitNotFound
	}
	return nil
}

// UnitFilter — критерии поиска доступных юнитов.
type UnitFilter struct {
	Rooms   *int
	Type    *string
	MinCost *float64
	MaxCost *float64
}

// SearchUnits возвращает доступные юниты, подходящие под фильтр.
func (db *DB) SearchUnits(ctx context.Context, filter UnitFilter) ([]*models.Unit, error) {
	conditions := []string{"status = ?"}
	args := []any{models.UnitStatusAvailable}

	if filter.Rooms != nil {
		conditions = append(conditions, "rooms = ?")
		args = append(args, *filter.Rooms)
	}
	if filter.Type != nil {
		conditions = append(conditions, "accommodation_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.MinCost != nil {
		conditions = append(conditions, "total_cost >= ?")
		args = append(args, *filter.MinCost)
	}
	if filter.MaxCost != nil {
		conditions = append(conditions, "total_cost <= ?")
		args = append(args, *filter.MaxCost)
	}

	query := `SELECT ` + unitColumns + ` FROM units WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY id`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search units: %w", err)
	}
	defer rows.Close()

	var units []*models.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (db *DB) ListUnits(ctx context.Context) ([]*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []*models.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// CountAvailableUnits — источник истины для кэша количества доступных юнитов.
func (db *DB) CountAvailableUnits(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE status = ?`, models.UnitStatusAvailable).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count available units: %w", err)
	}
	return count, nil
}
