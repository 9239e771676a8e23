package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/calendar"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/service"
)

// Ledger: операции ядра, которые нужны HTTP-слою.
type Ledger interface {
	GetAvailability(ctx context.Context, restaurantID, date string) ([]string, error)
	SuggestAlternatives(ctx context.Context, restaurantID, date, rejectedTime string, limit int) ([]string, error)
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*model.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, in service.UpdateBookingInput) (*model.Booking, error)
	ListUserBookings(ctx context.Context, userID string, page, pageSize int) (calendar.Page[model.Booking], error)
	ListRestaurantBookings(ctx context.Context, restaurantID, date string, page, pageSize int) (calendar.Page[model.Booking], error)
	AuthorizeBooking(ctx context.Context, s auth.Session, bookingID string) (*model.Booking, error)
	AuthorizeRestaurant(ctx context.Context, s auth.Session, restaurantID string) error
}

type Handler struct {
	ledger Ledger
}

func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type availabilityResponse struct {
	RestaurantID string   `json:"restaurant_id"`
	Date         string   `json:"date"`
	Slots        []string `json:"slots"`
}

type createBookingRequest struct {
	RestaurantID    string `json:"restaurant_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

type updateBookingRequest struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

func (h *Handler) Availability(c *gin.Context) {
	restaurantID := c.Param("restaurantId")
	date := c.Query("date")

	slots, err := h.ledger.GetAvailability(c.Request.Context(), restaurantID, date)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, availabilityResponse{RestaurantID: restaurantID, Date: date, Slots: slots})
}

func (h *Handler) Alternatives(c *gin.Context) {
	limit, valid := intQuery(c, "limit", 0)
	if !valid {
		return
	}

	slots, err := h.ledger.SuggestAlternatives(c.Request.Context(), c.Param("restaurantId"), c.Query("date"), c.Query("time"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"alternatives": slots})
}

func (h *Handler) CreateBooking(c *gin.Context) {
	s, _ := sessionFrom(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, string(service.CodeValidation), "invalid request body")
		return
	}

	b, err := h.ledger.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		RestaurantID:    req.RestaurantID,
		UserID:          s.UserID,
		Date:            req.Date,
		Time:            req.Time,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, b)
}

func (h *Handler) MyBookings(c *gin.Context) {
	s, _ := sessionFrom(c)
	page, size, valid := pageQuery(c)
	if !valid {
		return
	}

	result, err := h.ledger.ListUserBookings(c.Request.Context(), s.UserID, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

func (h *Handler) RestaurantBookings(c *gin.Context) {
	s, _ := sessionFrom(c)
	restaurantID := c.Param("restaurantId")
	page, size, valid := pageQuery(c)
	if !valid {
		return
	}

	if err := h.ledger.AuthorizeRestaurant(c.Request.Context(), s, restaurantID); err != nil {
		writeError(c, err)
		return
	}
	result, err := h.ledger.ListRestaurantBookings(c.Request.Context(), restaurantID, c.Query("date"), page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

func (h *Handler) GetBooking(c *gin.Context) {
	s, _ := sessionFrom(c)

	b, err := h.ledger.AuthorizeBooking(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

func (h *Handler) UpdateBooking(c *gin.Context) {
	s, _ := sessionFrom(c)

	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, string(service.CodeValidation), "invalid request body")
		return
	}
	if _, err := h.ledger.AuthorizeBooking(c.Request.Context(), s, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	b, err := h.ledger.UpdateBooking(c.Request.Context(), c.Param("id"), service.UpdateBookingInput{
		Date:            req.Date,
		Time:            req.Time,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	h.transition(c, h.ledger.ConfirmBooking)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	h.transition(c, h.ledger.CancelBooking)
}

// transition: проверить доступ к брони и выполнить переход статуса.
func (h *Handler) transition(c *gin.Context, apply func(context.Context, string) (*model.Booking, error)) {
	s, _ := sessionFrom(c)
	id := c.Param("id")

	if _, err := h.ledger.AuthorizeBooking(c.Request.Context(), s, id); err != nil {
		writeError(c, err)
		return
	}
	b, err := apply(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, string(service.CodeValidation), key+" must be an integer")
		return 0, false
	}
	return v, true
}

func pageQuery(c *gin.Context) (page, size int, valid bool) {
	if page, valid = intQuery(c, "page", 1); !valid {
		return 0, 0, false
	}
	if size, valid = intQuery(c, "page_size", calendar.DefaultPageSize); !valid {
		return 0, 0, false
	}
	return page, size, true
}
