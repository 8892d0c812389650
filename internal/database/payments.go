package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"unitbook/internal/models"
)

const paymentColumns = `id, booking_id, status, amount, deadline, paid_at, created_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var paidAt sql.NullTime
	err := row.Scan(&p.ID, &p.BookingID, &p.Status, &p.Amount, &p.Deadline, &paidAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return &p, nil
}

// ProcessPayment подтверждает оплату бронирования. Проверка дедлайна и
// перевод платежа в COMPLETED идут одной транзакцией; guard по статусу
// платежа отсекает двойную оплату и гонку с экспирацией.
func (db *DB) ProcessPayment(ctx context.Context, bookingID, userID int64) (*models.Payment, error) {
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
	if booking.UserID != userID {
		return nil, ErrNotOwner
	}

	payment, err := paymentByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	now := time.Now()
	if payment.IsExpired(now) {
		return nil, ErrPaymentExpired
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, paid_at = ? WHERE id = ? AND status = ?`,
		models.PaymentStatusCompleted, now, payment.ID, models.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrConcurrentModification
	}

	// Оплаченная бронь фиксируется: RESERVED -> BOOKED.
	_, err = tx.ExecContext(ctx,
		`UPDATE units SET status = ?, version = version + 1, updated_at = ? WHERE booking_id = ? AND status = ?`,
		models.UnitStatusBooked, now, bookingID, models.UnitStatusReserved)
	if err != nil {
		return nil, fmt.Errorf("failed to mark units booked: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	payment.Status = models.PaymentStatusCompleted
	payment.PaidAt = &now
	return payment, nil
}

func (db *DB) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	payment, err := scanPayment(db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

func (db *DB) GetPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	payment, err := scanPayment(db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by booking: %w", err)
	}
	return payment, nil
}

func (db *DB) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
