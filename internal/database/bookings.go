package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"unitbook/internal/models"
)

// CreateBooking атомарно создает бронирование: проверка доступности юнитов и
// их перевод в RESERVED живут в одной транзакции, поэтому два конкурентных
// запроса на пересекающиеся юниты не могут зарезервировать один юнит дважды.
// Version-guard на каждом юните превращает проигранную гонку в
// ErrConcurrentModification, которую сервис повторяет целиком.
func (db *DB) CreateBooking(ctx context.Context, userID int64, unitIDs []int64, paymentWindow time.Duration) (*models.Booking, *models.Payment, error) {
	if len(unitIDs) == 0 {
		return nil, nil, ErrEmptyUnitIDs
	}
	unitIDs = dedupeIDs(unitIDs)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := userExistsTx(ctx, tx, userID); err != nil {
		return nil, nil, err
	}

	units, err := unitsByIDsTx(ctx, tx, unitIDs)
	if err != nil {
		return nil, nil, err
	}

	var unavailable []int64
	for _, u := range units {
		if !u.IsAvailable() {
			unavailable = append(unavailable, u.ID)
		}
	}
	if len(unavailable) > 0 {
		return nil, nil, &UnitsUnavailableError{IDs: unavailable}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (user_id, created_at) VALUES (?, ?)`, userID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert booking: %w", err)
	}
	bookingID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := reserveUnitsTx(ctx, tx, units, bookingID, now); err != nil {
		return nil, nil, err
	}

	var amount float64
	for _, u := range units {
		amount += u.TotalCost
	}

	deadline := now.Add(paymentWindow)
	result, err = tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, status, amount, deadline, created_at) VALUES (?, ?, ?, ?, ?)`,
		bookingID, models.PaymentStatusPending, amount, deadline, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	paymentID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit booking: %w", err)
	}

	booking := &models.Booking{ID: bookingID, UserID: userID, UnitIDs: unitIDs, CreatedAt: now}
	payment := &models.Payment{
		ID:        paymentID,
		BookingID: bookingID,
		Status:    models.PaymentStatusPending,
		Amount:    amount,
		Deadline:  deadline,
		CreatedAt: now,
	}
	return booking, payment, nil
}

// CancelBooking снимает бронирование до оплаты: юниты возвращаются в
// AVAILABLE, платеж и бронь удаляются одной транзакцией.
func (db *DB) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := bookingTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return ErrNotOwner
	}

	payment, err := paymentByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if payment.IsPaid() {
		return ErrAlreadyPaid
	}

	if err := releaseBookingTx(ctx, tx, bookingID, payment.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateBooking заменяет набор юнитов неоплаченного бронирования.
// Пересечение старого и нового наборов не трогаем: освобождаются только
// old−new, резервируются только new−old, так общий юнит ни на миг не
// становится AVAILABLE. Сумма платежа пересчитывается по новому набору.
func (db *DB) UpdateBooking(ctx context.Context, bookingID int64, newUnitIDs []int64) (*models.Booking, error) {
	if len(newUnitIDs) == 0 {
		return nil, ErrEmptyUnitIDs
	}
	newUnitIDs = dedupeIDs(newUnitIDs)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := bookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	payment, err := paymentByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	newUnits, err := unitsByIDsTx(ctx, tx, newUnitIDs)
	if err != nil {
		return nil, err
	}

	// Юнит подходит, если он свободен либо уже принадлежит этой же брони.
	var unavailable []int64
	newSet := make(map[int64]bool, len(newUnits))
	for _, u := range newUnits {
		newSet[u.ID] = true
		ownedByThis := u.BookingID != nil && *u.BookingID == bookingID
		if !u.IsAvailable() && !ownedByThis {
			unavailable = append(unavailable, u.ID)
		}
	}
	if len(unavailable) > 0 {
		return nil, &UnitsUnavailableError{IDs: unavailable}
	}

	now := time.Now()

	for _, oldID := range booking.UnitIDs {
		if newSet[oldID] {
			continue
		}
		if err := releaseUnitTx(ctx, tx, oldID, bookingID, now); err != nil {
			return nil, err
		}
	}

	oldSet := make(map[int64]bool, len(booking.UnitIDs))
	for _, id := range booking.UnitIDs {
		oldSet[id] = true
	}
	var toReserve []*models.Unit
	for _, u := range newUnits {
		if !oldSet[u.ID] {
			toReserve = append(toReserve, u)
		}
	}
	if err := reserveUnitsTx(ctx, tx, toReserve, bookingID, now); err != nil {
		return nil, err
	}

	var amount float64
	for _, u := range newUnits {
		amount += u.TotalCost
	}
	if _, err := tx.ExecContext(ctx, `UPDATE payments SET amount = ? WHERE id = ?`, amount, payment.ID); err != nil {
		return nil, fmt.Errorf("failed to update payment amount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking update: %w", err)
	}

	booking.UnitIDs = newUnitIDs
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := db.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM bookings WHERE id = ?`, id).
		Scan(&booking.ID, &booking.UserID, &booking.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	booking.UnitIDs, err = db.bookingUnitIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, user_id, created_at FROM bookings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		b.UnitIDs, err = db.bookingUnitIDs(ctx, b.ID)
		if err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

func (db *DB) bookingUnitIDs(ctx context.Context, bookingID int64) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM units WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking units: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unit id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindExpiredBookings возвращает брони, созданные до cutoff, чей платеж не
// завершен либо отсутствует вовсе (след частичного сбоя).
func (db *DB) FindExpiredBookings(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := `SELECT b.id
              FROM bookings b
              LEFT JOIN payments p ON p.booking_id = b.id
              WHERE b.created_at < ? AND (p.id IS NULL OR p.status != ?)
              ORDER BY b.id`
	rows, err := db.QueryContext(ctx, query, cutoff, models.PaymentStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ExpireOutcome описывает, что сделала ExpireBooking.
type ExpireOutcome struct {
	Expired    bool
	HadPayment bool
	PaymentID  int64
}

// ExpireBooking освобождает просроченную бронь. Состояние перепроверяется
// внутри транзакции: если бронь уже удалена или платеж успел завершиться,
// операция молча пропускается — гонка с оплатой решается порядком коммитов.
func (db *DB) ExpireBooking(ctx context.Context, bookingID int64) (ExpireOutcome, error) {
	var outcome ExpireOutcome

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return outcome, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = bookingTx(ctx, tx, bookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return outcome, nil
	}
	if err != nil {
		return outcome, err
	}

	payment, err := paymentByBookingTx(ctx, tx, bookingID)
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		// Платеж не создался при частичном сбое — бронь все равно снимаем.
	case err != nil:
		return outcome, err
	case payment.IsPaid():
		return outcome, nil
	default:
		outcome.HadPayment = true
		outcome.PaymentID = payment.ID
	}

	var paymentID int64
	if outcome.HadPayment {
		paymentID = payment.ID
	}
	if err := releaseBookingTx(ctx, tx, bookingID, paymentID); err != nil {
		return outcome, err
	}

	if err := tx.Commit(); err != nil {
		return outcome, fmt.Errorf("failed to commit expiry: %w", err)
	}
	outcome.Expired = true
	return outcome, nil
}

// --- helpers, используются только внутри транзакций ---

func userExistsTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	return nil
}

func bookingTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := tx.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM bookings WHERE id = ?`, id).
		Scan(&booking.ID, &booking.UserID, &booking.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking in tx: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM units WHERE booking_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking units in tx: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var unitID int64
		if err := rows.Scan(&unitID); err != nil {
			return nil, fmt.Errorf("failed to scan unit id: %w", err)
		}
		booking.UnitIDs = append(booking.UnitIDs, unitID)
	}
	return &booking, rows.Err()
}

func paymentByBookingTx(ctx context.Context, tx *sql.Tx, bookingID int64) (*models.Payment, error) {
	payment, err := scanPayment(tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment in tx: %w", err)
	}
	return payment, nil
}

func unitsByIDsTx(ctx context.Context, tx *sql.Tx, ids []int64) ([]*models.Unit, error) {
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + unitColumns + ` FROM units WHERE id IN (` + placeholders + `)`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get units in tx: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]*models.Unit, len(ids))
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		found[unit.ID] = unit
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	units := make([]*models.Unit, 0, len(ids))
	for _, id := range ids {
		unit, ok := found[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		units = append(units, unit)
	}
	if len(missing) > 0 {
		return nil, &UnitsMissingError{IDs: missing}
	}
	return units, nil
}

// reserveUnitsTx переводит юниты в RESERVED. Guard по status и version:
// ноль затронутых строк означает, что параллельная транзакция успела раньше.
func reserveUnitsTx(ctx context.Context, tx *sql.Tx, units []*models.Unit, bookingID int64, now time.Time) error {
	query := `UPDATE units SET status = ?, booking_id = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND status = ? AND version = ?`
	for _, u := range units {
		result, err := tx.ExecContext(ctx, query,
			models.UnitStatusReserved, bookingID, now, u.ID, models.UnitStatusAvailable, u.Version)
		if err != nil {
			return fmt.Errorf("failed to reserve unit %d: %w", u.ID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrentModification
		}
	}
	return nil
}

func releaseUnitTx(ctx context.Context, tx *sql.Tx, unitID, bookingID int64, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE units SET status = ?, booking_id = NULL, version = version + 1, updated_at = ?
         WHERE id = ? AND booking_id = ?`,
		models.UnitStatusAvailable, now, unitID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to release unit %d: %w", unitID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// releaseBookingTx — общий хвост отмены и экспирации: юниты в AVAILABLE,
// платеж (если есть) и бронь удаляются.
func releaseBookingTx(ctx context.Context, tx *sql.Tx, bookingID, paymentID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE units SET status = ?, booking_id = NULL, version = version + 1, updated_at = ?
         WHERE booking_id = ?`,
		models.UnitStatusAvailable, time.Now(), bookingID)
	if err != nil {
		return fmt.Errorf("failed to release units: %w", err)
	}

	if paymentID != 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, paymentID); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
