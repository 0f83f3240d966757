package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// BookingReader serves the caller's booking history.  *repository.BookingRepo
// satisfies it.
type BookingReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	GetByIDForUser(ctx context.Context, bookingID uint64, userID string) (model.Booking, error)
}

// BookingHandler exposes seat locking, quoting and confirmation.
type BookingHandler struct {
	Locks    *service.LockManager
	Pricing  *service.PricingEngine
	Bookings *service.BookingOrchestrator
	History  BookingReader
}

func NewBookingHandler(locks *service.LockManager, pricing *service.PricingEngine,
	bookings *service.BookingOrchestrator, history BookingReader) *BookingHandler {
	return &BookingHandler{Locks: locks, Pricing: pricing, Bookings: bookings, History: history}
}

type seatSelectionReq struct {
	EventID uint64  `json:"eventId"`
	SeatIDs []int64 `json:"seatIds"`
}

type quoteReq struct {
	seatSelectionReq
	CouponCode string `json:"couponCode"`
}

// confirmReq has no amount fields: whatever the client sends for prices
// is dropped at decode time.
type confirmReq struct {
	seatSelectionReq
	CouponCode       string `json:"couponCode"`
	PaymentReference string `json:"paymentReference"`
}

type lockResp struct {
	Success     bool      `json:"success"`
	EventID     uint64    `json:"eventId"`
	SeatIDs     []uint64  `json:"seatIds"`
	LockedUntil time.Time `json:"lockedUntil"`
}

type confirmResp struct {
	Success bool `json:"success"`
	service.Confirmation
}

// LockSeats handles POST /api/lock-seats.
func (h *BookingHandler) LockSeats(c echo.Context) error {
	var req seatSelectionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ids, err := seatIDs(req.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	res, err := h.Locks.Acquire(c.Request().Context(), req.EventID, ids, middleware.UserID(c), 0)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, lockResp{Success: true, EventID: res.EventID, SeatIDs: res.SeatIDs, LockedUntil: res.LockedUntil})
}

// Quote handles POST /api/pricing/quote.  Nothing is written.
func (h *BookingHandler) Quote(c echo.Context) error {
	var req quoteReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ids, err := seatIDs(req.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	q, err := h.Pricing.Quote(c.Request().Context(), req.EventID, ids, req.CouponCode, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Confirm handles POST /api/bookings/confirm.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ids, err := seatIDs(req.SeatIDs)
	if err != nil {
		return respondError(c, err)
	}
	conf, err := h.Bookings.Confirm(c.Request().Context(), service.ConfirmRequest{
		EventID:          req.EventID,
		SeatIDs:          ids,
		CouponCode:       req.CouponCode,
		UserID:           middleware.UserID(c),
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, confirmResp{Success: true, Confirmation: conf})
}

// ListMine handles GET /api/bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.History.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetMine handles GET /api/bookings/:id.  Bookings of other users are
// reported as missing.
func (h *BookingHandler) GetMine(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.History.GetByIDForUser(ctx, id, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, apperr.ErrBookingNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
