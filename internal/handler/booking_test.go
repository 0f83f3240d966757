package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/store"
	"github.com/iliyamo/event-seat-booking/internal/store/memstore"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

const (
	jwtSecret = "handler-test-secret"
	alice     = "a11ce000-0000-4000-8000-000000000001"
	bob       = "b0b00000-0000-4000-8000-000000000002"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeHistory struct {
	list []model.Booking
	one  map[uint64]model.Booking
}

func (f *fakeHistory) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.list {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeHistory) GetByIDForUser(_ context.Context, id uint64, userID string) (model.Booking, error) {
	b, ok := f.one[id]
	if !ok || b.UserID != userID {
		return model.Booking{}, store.ErrNotFound
	}
	return b, nil
}

type bookingEnv struct {
	e       *echo.Echo
	st      *memstore.Store
	history *fakeHistory
}

// newBookingEnv seeds event 1 (venue in KA) with seats 1 and 2 at 250 in
// a FLAT 50 section.  Tax is 18% and the company state is unset.
func newBookingEnv(t *testing.T) *bookingEnv {
	t.Helper()
	st := memstore.New()
	st.AddEvent(1, "KA")
	st.AddSection(model.Section{ID: 1, EventID: 1, Name: "Gold", FeeType: model.FeeFlat, FeeValue: decimal.NewFromInt(50)})
	st.AddSeat(model.Seat{ID: 1, EventID: 1, SectionID: 1, Label: "A1", BasePrice: decimal.NewFromInt(250)})
	st.AddSeat(model.Seat{ID: 2, EventID: 1, SectionID: 1, Label: "A2", BasePrice: decimal.NewFromInt(250)})

	settings := func() config.BookingConfig {
		return config.BookingConfig{LockTTL: 5 * time.Minute, TaxRate: decimal.RequireFromString("0.18")}
	}
	clock := func() time.Time { return testNow }
	locks := service.NewLockManager(st, settings, clock, zerolog.Nop())
	coupons := service.NewCouponValidator(clock)
	pricing := service.NewPricingEngine(st, coupons, settings)
	orch := service.NewBookingOrchestrator(st, locks, pricing, coupons, nil, clock, zerolog.Nop())
	history := &fakeHistory{one: map[uint64]model.Booking{}}
	h := NewBookingHandler(locks, pricing, orch, history)

	e := echo.New()
	auth := middleware.JWTAuth(jwtSecret)
	e.POST("/api/lock-seats", h.LockSeats, auth)
	e.POST("/api/pricing/quote", h.Quote, auth)
	e.POST("/api/bookings/confirm", h.Confirm, auth)
	e.GET("/api/bookings", h.ListMine, auth)
	e.GET("/api/bookings/:id", h.GetMine, auth)
	return &bookingEnv{e: e, st: st, history: history}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(jwtSecret, userID, role, 10)
	require.NoError(t, err)
	return tok.Token
}

func (env *bookingEnv) call(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user, model.RoleUser))
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var eb errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb), rec.Body.String())
	return eb
}

func TestLockSeats(t *testing.T) {
	env := newBookingEnv(t)

	rec := env.call(t, http.MethodPost, "/api/lock-seats", alice, `{"eventId":1,"seatIds":[2,1]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res lockResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
	assert.True(t, res.LockedUntil.Equal(testNow.Add(5*time.Minute)))

	rec = env.call(t, http.MethodPost, "/api/lock-seats", bob, `{"eventId":1,"seatIds":[1]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SEAT_LOCKED_BY_OTHER", decodeError(t, rec).Code)
}

func TestLockSeats_RequestErrors(t *testing.T) {
	env := newBookingEnv(t)
	cases := []struct {
		name   string
		user   string
		body   string
		status int
		code   string
	}{
		{"no token", "", `{"eventId":1,"seatIds":[1]}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed", alice, `{"eventId":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty selection", alice, `{"eventId":1,"seatIds":[]}`, http.StatusBadRequest, "EMPTY_SEAT_SELECTION"},
		{"missing event", alice, `{"seatIds":[1]}`, http.StatusBadRequest, "INVALID_EVENT"},
		{"negative seat", alice, `{"eventId":1,"seatIds":[-1]}`, http.StatusBadRequest, "INVALID_SEAT_ID"},
		{"unknown seat", alice, `{"eventId":1,"seatIds":[1,77]}`, http.StatusNotFound, "SEAT_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.call(t, http.MethodPost, "/api/lock-seats", tc.user, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
	_, held := env.st.Lock(1, 1)
	assert.False(t, held)
}

func TestQuoteAndConfirm(t *testing.T) {
	env := newBookingEnv(t)
	require.Equal(t, http.StatusOK, env.call(t, http.MethodPost, "/api/lock-seats", alice, `{"eventId":1,"seatIds":[1,2]}`).Code)

	rec := env.call(t, http.MethodPost, "/api/pricing/quote", alice, `{"eventId":1,"seatIds":[1,2]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"totalAmount":649`)
	assert.Contains(t, rec.Body.String(), `"taxCgst":49.5`)
	var q model.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "649", q.Breakdown.TotalAmount.String())
	assert.Equal(t, "49.5", q.Breakdown.TaxCGST.String())

	// client supplied amounts are ignored
	rec = env.call(t, http.MethodPost, "/api/bookings/confirm", alice,
		`{"eventId":1,"seatIds":[1,2],"paymentReference":"pay_1","totalAmount":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conf struct {
		Success   bool        `json:"success"`
		BookingID uint64      `json:"bookingId"`
		Pricing   model.Quote `json:"pricing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.True(t, conf.Success)
	assert.NotZero(t, conf.BookingID)
	assert.Equal(t, "649", conf.Pricing.Breakdown.TotalAmount.String())

	bookings := env.st.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, "649", bookings[0].TotalAmount.String())
	require.NotNil(t, bookings[0].PaymentReference)
	assert.Equal(t, "pay_1", *bookings[0].PaymentReference)
	assert.Equal(t, model.SeatBooked, env.st.Seat(1).Status)

	// a second submit finds the locks consumed
	rec = env.call(t, http.MethodPost, "/api/bookings/confirm", alice, `{"eventId":1,"seatIds":[1,2]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "LOCKS_INVALID", decodeError(t, rec).Code)
}

func TestConfirm_WithoutLock(t *testing.T) {
	env := newBookingEnv(t)
	rec := env.call(t, http.MethodPost, "/api/bookings/confirm", alice, `{"eventId":1,"seatIds":[1]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	eb := decodeError(t, rec)
	assert.Equal(t, "LOCKS_INVALID", eb.Code)
	assert.Equal(t, "Seat locks missing or expired for this user", eb.Error)
	assert.Empty(t, env.st.Bookings())
}

func TestQuote_UnknownCoupon(t *testing.T) {
	env := newBookingEnv(t)
	rec := env.call(t, http.MethodPost, "/api/pricing/quote", alice, `{"eventId":1,"seatIds":[1],"couponCode":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "COUPON_NOT_FOUND", decodeError(t, rec).Code)
}

func TestBookingHistory(t *testing.T) {
	env := newBookingEnv(t)
	mine := model.Booking{ID: 7, UserID: alice, EventID: 1, Status: model.BookingConfirmed, TotalAmount: decimal.NewFromInt(649)}
	env.history.list = []model.Booking{mine, {ID: 8, UserID: bob}}
	env.history.one[7] = mine

	rec := env.call(t, http.MethodGet, "/api/bookings", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, uint64(7), list[0].ID)

	rec = env.call(t, http.MethodGet, "/api/bookings", "c0000000-0000-4000-8000-000000000003", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	assert.Equal(t, http.StatusOK, env.call(t, http.MethodGet, "/api/bookings/7", alice, "").Code)
	rec = env.call(t, http.MethodGet, "/api/bookings/7", bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "BOOKING_NOT_FOUND", decodeError(t, rec).Code)
	assert.Equal(t, http.StatusBadRequest, env.call(t, http.MethodGet, "/api/bookings/abc", alice, "").Code)
}
