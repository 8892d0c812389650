package database

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUnitNotFound    = errors.New("unit not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrEmptyUnitIDs = errors.New("at least one unit must be selected")
	ErrInvalidUnit  = errors.New("invalid unit")
	ErrNotOwner     = errors.New("only the booking owner can perform this operation")

	ErrAlreadyPaid    = errors.New("payment already completed")
	ErrPaymentExpired = errors.New("payment deadline has passed")

	// ErrConcurrentModification — транзиентный конфликт: кто-то успел изменить
	// юнит между чтением и записью. Операция целиком повторяется сервисом.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrBookingConflict возвращается после исчерпания повторов.
	ErrBookingConflict = errors.New("unable to complete the operation due to concurrent modifications, please try again")
)

// UnitsUnavailableError перечисляет юниты, которые нельзя включить в бронь.
type UnitsUnavailableError struct {
	IDs []int64
}

func (e *UnitsUnavailableError) Error() string {
	return "units are not available: " + joinIDs(e.IDs)
}

// UnitsMissingError перечисляет запрошенные, но не существующие юниты.
type UnitsMissingError struct {
	IDs []int64
}

func (e *UnitsMissingError) Error() string {
	return "units not found: " + joinIDs(e.IDs)
}

func (e *UnitsMissingError) Unwrap() error { return ErrUnitNotFound }

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// IsTransient сообщает, имеет ли смысл повторить операцию.
// Бизнес-ошибки (not found, already paid и т.п.) не повторяются никогда.
func IsTransient(err error) bool {
	if errors.Is(err, ErrConcurrentModification) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
