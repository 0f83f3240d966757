package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

type fakeEvents struct {
	items []model.EventListing
	err   error
}

func (f fakeEvents) List(context.Context) ([]model.EventListing, error) { return f.items, f.err }

func (f fakeEvents) Exists(_ context.Context, id uint64) (bool, error) {
	for _, e := range f.items {
		if e.ID == id {
			return true, nil
		}
	}
	return false, f.err
}

type fakeSeatMap struct{ at time.Time }

func (f *fakeSeatMap) SeatMap(_ context.Context, eventID uint64, now time.Time) ([]model.SeatView, error) {
	f.at = now
	return []model.SeatView{
		{ID: 1, Label: "A1", BasePrice: decimal.NewFromInt(250), Status: "LOCKED"},
		{ID: 2, Label: "A2", BasePrice: decimal.NewFromInt(250), Status: "AVAILABLE"},
	}, nil
}

func newEventEcho(events fakeEvents, seats *fakeSeatMap) *echo.Echo {
	h := NewEventHandler(events, seats, func() time.Time { return testNow })
	e := echo.New()
	e.GET("/api/events", h.List)
	e.GET("/api/events/:id/seats", h.SeatMap)
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEventList(t *testing.T) {
	e := newEventEcho(fakeEvents{items: []model.EventListing{{ID: 1, Name: "Concert", VenueName: "Arena", VenueState: "KA"}}}, &fakeSeatMap{})
	rec := get(e, "/api/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"venueState":"KA"`)

	rec = get(newEventEcho(fakeEvents{}, &fakeSeatMap{}), "/api/events")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestSeatMap(t *testing.T) {
	seats := &fakeSeatMap{}
	e := newEventEcho(fakeEvents{items: []model.EventListing{{ID: 1}}}, seats)

	rec := get(e, "/api/events/1/seats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"LOCKED"`)
	assert.True(t, seats.at.Equal(testNow), "seat map must be derived at the service clock")

	rec = get(e, "/api/events/5/seats")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decodeError(t, rec).Code)

	assert.Equal(t, http.StatusBadRequest, get(e, "/api/events/0/seats").Code)
}

func TestRespondError_HidesUntypedFailures(t *testing.T) {
	e := newEventEcho(fakeEvents{err: errors.New("dial tcp: connection refused")}, &fakeSeatMap{})
	rec := get(e, "/api/events")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	eb := decodeError(t, rec)
	assert.Equal(t, apperr.ErrPersistence.Code, eb.Code)
	assert.NotContains(t, eb.Error, "connection refused")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(apperr.KindValidation))
	assert.Equal(t, http.StatusConflict, statusOf(apperr.KindConflict))
	assert.Equal(t, http.StatusNotFound, statusOf(apperr.KindNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(apperr.KindBusinessRule))
	assert.Equal(t, http.StatusUnauthorized, statusOf(apperr.KindUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, statusOf(apperr.KindPersistence))
}

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/ok", Health(pingerFunc(func(context.Context) error { return nil })))
	e.GET("/down", Health(pingerFunc(func(context.Context) error { return errors.New("down") })))
	e.GET("/bare", Health(nil))

	assert.Equal(t, http.StatusOK, get(e, "/ok").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(e, "/down").Code)
	assert.Equal(t, http.StatusOK, get(e, "/bare").Code)
}
