package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// EventReader lists events.  *repository.EventRepo satisfies it.
type EventReader interface {
	List(ctx context.Context) ([]model.EventListing, error)
	Exists(ctx context.Context, eventID uint64) (bool, error)
}

// SeatMapReader derives seat availability.  *repository.SeatRepo
// satisfies it.
type SeatMapReader interface {
	SeatMap(ctx context.Context, eventID uint64, now time.Time) ([]model.SeatView, error)
}

// EventHandler serves the public browse endpoints.
type EventHandler struct {
	Events EventReader
	Seats  SeatMapReader
	Now    func() time.Time
}

func NewEventHandler(events EventReader, seats SeatMapReader, now func() time.Time) *EventHandler {
	return &EventHandler{Events: events, Seats: seats, Now: now}
}

// List handles GET /api/events, ordered by start time.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, err := h.Events.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []model.EventListing{}
	}
	return c.JSON(http.StatusOK, items)
}

// SeatMap handles GET /api/events/:id/seats.  A seat is LOCKED while an
// unexpired lock row exists for it; expired rows read as AVAILABLE.
func (h *EventHandler) SeatMap(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Events.Exists(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return respondError(c, apperr.ErrEventNotFound)
	}
	seats, err := h.Seats.SeatMap(ctx, id, h.Now())
	if err != nil {
		return respondError(c, err)
	}
	if seats == nil {
		seats = []model.SeatView{}
	}
	return c.JSON(http.StatusOK, echo.Map{"eventId": id, "seats": seats})
}
