package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"unitbook/internal/database"
	"unitbook/internal/models"
	"unitbook/internal/service"
)

// statusForError переводит доменные ошибки в HTTP-статусы.
func statusForError(err error) int {
	var unavailable *database.UnitsUnavailableError
	var missing *database.UnitsMissingError

	switch {
	case errors.As(err, &unavailable):
		return http.StatusConflict
	case errors.As(err, &missing):
		return http.StatusNotFound
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrUnitNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPaymentNotOwner),
		errors.Is(err, database.ErrEmptyUnitIDs),
		errors.Is(err, database.ErrInvalidUnit):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, database.ErrAlreadyPaid),
		errors.Is(err, database.ErrPaymentExpired),
		errors.Is(err, database.ErrBookingConflict),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) respondError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

// pathID извлекает числовой ID из пути после префикса; suffix — остаток пути
// ("" или "payment").
func pathID(path, prefix string) (int64, string, error) {
	rest := strings.TrimPrefix(path, prefix)
	idPart, suffix, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return id, suffix, nil
}

// --- Бронирования ---

type createBookingRequest struct {
	UserID  int64   `json:"user_id"`
	UnitIDs []int64 `json:"unit_ids"`
}

type updateBookingRequest struct {
	UnitIDs []int64 `json:"unit_ids"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		booking, err := s.bookings.CreateBooking(r.Context(), req.UserID, req.UnitIDs)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)
	case http.MethodGet:
		bookings, err := s.bookings.ListBookings(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bookings)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id, suffix, err := pathID(r.URL.Path, "/api/v1/bookings/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if suffix == "payment" {
		s.handleBookingPayment(w, r, id)
		return
	}
	if suffix != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodPut:
		var req updateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		booking, err := s.bookings.UpdateBooking(r.Context(), id, req.UnitIDs)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodDelete:
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "user_id query parameter is required")
			return
		}
		if err := s.bookings.CancelBooking(r.Context(), id, userID); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type payBookingRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *HTTPServer) handleBookingPayment(w http.ResponseWriter, r *http.Request, bookingID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req payBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payment, err := s.payments.ProcessPayment(r.Context(), bookingID, req.UserID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// --- Платежи ---

func (s *HTTPServer) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		bookingID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking_id")
			return
		}
		payment, err := s.payments.GetPaymentByBooking(r.Context(), bookingID)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payment)
		return
	}

	payments, err := s.payments.ListPayments(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *HTTPServer) handlePaymentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, suffix, err := pathID(r.URL.Path, "/api/v1/payments/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	payment, err := s.payments.GetPayment(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// --- Юниты ---

type unitRequest struct {
	Rooms       *int     `json:"rooms"`
	Type        *string  `json:"type"`
	Floor       *int     `json:"floor"`
	BaseCost    *float64 `json:"base_cost"`
	Status      *string  `json:"status"`
	Description *string  `json:"description"`
}

func (s *HTTPServer) handleUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req unitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		unit := &models.Unit{Status: models.UnitStatusAvailable}
		if req.Rooms != nil {
			unit.Rooms = *req.Rooms
		}
		if req.Type != nil {
			unit.Type = *req.Type
		}
		if req.Floor != nil {
			unit.Floor = *req.Floor
		}
		if req.BaseCost != nil {
			unit.BaseCost = *req.BaseCost
		}
		if req.Status != nil {
			unit.Status = *req.Status
		}
		if req.Description != nil {
			unit.Description = *req.Description
		}
		if err := s.units.CreateUnit(r.Context(), unit); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, unit)
	case http.MethodGet:
		filter, err := unitFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if filter != nil {
			units, err := s.units.SearchUnits(r.Context(), *filter)
			if err != nil {
				s.respondError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, units)
			return
		}
		units, err := s.units.ListUnits(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, units)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// unitFilterFromQuery возвращает nil, если поисковых параметров нет.
func unitFilterFromQuery(r *http.Request) (*database.UnitFilter, error) {
	q := r.URL.Query()
	var filter database.UnitFilter
	var set bool

	if raw := q.Get("rooms"); raw != "" {
		rooms, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("invalid rooms")
		}
		filter.Rooms = &rooms
		set = true
	}
	if raw := q.Get("type"); raw != "" {
		t := raw
		filter.Type = &t
		set = true
	}
	if raw := q.Get("min_cost"); raw != "" {
		cost, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("invalid min_cost")
		}
		filter.MinCost = &cost
		set = true
	}
	if raw := q.Get("max_cost"); raw != "" {
		cost, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("invalid max_cost")
		}
		filter.MaxCost = &cost
		set = true
	}

	if !set {
		return nil, nil
	}
	return &filter, nil
}

func (s *HTTPServer) handleUnitByID(w http.ResponseWriter, r *http.Request) {
	id, suffix, err := pathID(r.URL.Path, "/api/v1/units/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid unit id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		unit, err := s.units.GetUnit(r.Context(), id)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unit)
	case http.MethodPut:
		var req unitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		unit, err := s.units.UpdateUnit(r.Context(), id, database.UnitUpdate{
			Rooms:       req.Rooms,
			Type:        req.Type,
			Status:      req.Status,
			Floor:       req.Floor,
			BaseCost:    req.BaseCost,
			Description: req.Description,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unit)
	case http.MethodDelete:
		if err := s.units.DeleteUnit(r.Context(), id); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAvailableCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count, err := s.units.AvailableUnitsCount(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"available_units": count})
}

// --- Пользователи ---

type userRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == nil || *req.Username == "" {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}
		user := &models.User{Username: *req.Username}
		if req.Email != nil {
			user.Email = *req.Email
		}
		if err := s.users.CreateUser(r.Context(), user); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	case http.MethodGet:
		users, err := s.users.ListUsers(r.Context())
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, suffix, err := pathID(r.URL.Path, "/api/v1/users/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.users.GetUser(r.Context(), id)
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := s.users.UpdateUser(r.Context(), id, database.UserUpdate{
			Username: req.Username,
			Email:    req.Email,
		})
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.users.DeleteUser(r.Context(), id); err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- События ---

func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if entityType := r.URL.Query().Get("entity_type"); entityType != "" {
		events, err := s.events.FindByEntityType(r.Context(), strings.ToUpper(entityType))
		if err != nil {
			s.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}
	events, err := s.events.List(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
