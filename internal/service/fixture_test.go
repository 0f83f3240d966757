package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/store/memstore"
)

const (
	eventID      uint64 = 1
	otherEventID uint64 = 2
	alice               = "0b6c7b43-0000-4000-8000-00000000000a"
	bob                 = "0b6c7b43-0000-4000-8000-00000000000b"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(n int) *int { return &n }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type fixture struct {
	st  *memstore.Store
	pub *publisherMock

	mu  sync.Mutex
	now time.Time
	cfg config.BookingConfig

	locks    *LockManager
	coupons  *CouponValidator
	pricing  *PricingEngine
	bookings *BookingOrchestrator
}

// newFixture seeds event 1 at a venue in KA with a Gold section (FLAT 50)
// holding seats 1 and 2 at 250 each, a Silver section (PERCENT 10)
// holding seats 3 and 4 at 100 each, and seat 9 of another event.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:  memstore.New(),
		pub: &publisherMock{},
		now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		cfg: config.BookingConfig{LockTTL: 5 * time.Minute, TaxRate: dec("0.18")},
	}
	f.pub.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.st.AddEvent(eventID, "KA")
	f.st.AddEvent(otherEventID, "KA")
	f.st.AddSection(model.Section{ID: 1, EventID: eventID, Name: "Gold", FeeType: model.FeeFlat, FeeValue: dec("50")})
	f.st.AddSection(model.Section{ID: 2, EventID: eventID, Name: "Silver", FeeType: model.FeePercent, FeeValue: dec("10")})
	f.st.AddSection(model.Section{ID: 3, EventID: otherEventID, Name: "Floor", FeeType: model.FeeFlat, FeeValue: dec("0")})
	f.st.AddSeat(model.Seat{ID: 1, EventID: eventID, SectionID: 1, Label: "A1", BasePrice: dec("250")})
	f.st.AddSeat(model.Seat{ID: 2, EventID: eventID, SectionID: 1, Label: "A2", BasePrice: dec("250")})
	f.st.AddSeat(model.Seat{ID: 3, EventID: eventID, SectionID: 2, Label: "B1", BasePrice: dec("100")})
	f.st.AddSeat(model.Seat{ID: 4, EventID: eventID, SectionID: 2, Label: "B2", BasePrice: dec("100")})
	f.st.AddSeat(model.Seat{ID: 9, EventID: otherEventID, SectionID: 3, Label: "F1", BasePrice: dec("80")})

	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	settings := func() config.BookingConfig {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.cfg
	}
	log := zerolog.Nop()
	f.locks = NewLockManager(f.st, settings, clock, log)
	f.coupons = NewCouponValidator(clock)
	f.pricing = NewPricingEngine(f.st, f.coupons, settings)
	f.bookings = NewBookingOrchestrator(f.st, f.locks, f.pricing, f.coupons, f.pub, clock, log)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) setConfig(fn func(c *config.BookingConfig)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.cfg)
}

func (f *fixture) currentTime() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// addSeats adds n seats to the Gold section starting at id from.
func (f *fixture) addSeats(from uint64, n int) []uint64 {
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		id := from + uint64(i)
		f.st.AddSeat(model.Seat{ID: id, EventID: eventID, SectionID: 1, Label: "Z", BasePrice: dec("10")})
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) addCoupon(c model.Coupon) {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = f.currentTime().Add(24 * time.Hour)
	}
	if c.EventIDs == nil {
		c.EventIDs = []uint64{eventID}
	}
	f.st.AddCoupon(c)
}
