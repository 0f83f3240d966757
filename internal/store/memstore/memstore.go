// Package memstore is an in-memory store.Store used by service and
// handler tests.  Transactions are fully serialized: Begin blocks until
// the previous transaction ends, works on a copy of the data and
// publishes it on Commit, and every write made before a failure is
// rolled back.
//
// Serializing whole transactions hides what row and gap locks do in
// MySQL: there are no deadlocks and no stale snapshot reads here.  Tests
// on this store check the business rules under sequential access; lock
// contention is simulated with FailUpsert, and the locking statements
// themselves are covered by the sqlmock tests in internal/repository.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

type lockKey struct{ eventID, seatID uint64 }

type data struct {
	venueState   map[uint64]string // event id -> venue state
	sections     map[uint64]model.Section
	seats        map[uint64]model.Seat
	locks        map[lockKey]model.SeatLock
	coupons      map[string]model.Coupon
	couponEvents map[uint64]map[uint64]bool
	redemptions  []model.CouponRedemption
	bookings     []model.Booking
	bookingSeats []model.BookingSeat
	nextBooking  uint64
}

func (d *data) clone() *data {
	cp := &data{
		venueState:   make(map[uint64]string, len(d.venueState)),
		sections:     make(map[uint64]model.Section, len(d.sections)),
		seats:        make(map[uint64]model.Seat, len(d.seats)),
		locks:        make(map[lockKey]model.SeatLock, len(d.locks)),
		coupons:      make(map[string]model.Coupon, len(d.coupons)),
		couponEvents: make(map[uint64]map[uint64]bool, len(d.couponEvents)),
		redemptions:  append([]model.CouponRedemption(nil), d.redemptions...),
		bookings:     append([]model.Booking(nil), d.bookings...),
		bookingSeats: append([]model.BookingSeat(nil), d.bookingSeats...),
		nextBooking:  d.nextBooking,
	}
	for k, v := range d.venueState {
		cp.venueState[k] = v
	}
	for k, v := range d.sections {
		cp.sections[k] = v
	}
	for k, v := range d.seats {
		cp.seats[k] = v
	}
	for k, v := range d.locks {
		cp.locks[k] = v
	}
	for k, v := range d.coupons {
		cp.coupons[k] = v
	}
	for k, v := range d.couponEvents {
		m := make(map[uint64]bool, len(v))
		for e := range v {
			m[e] = true
		}
		cp.couponEvents[k] = m
	}
	return cp
}

// Store is the in-memory store.  The zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex // held for the lifetime of a transaction
	mu   sync.Mutex // guards d and the fault hooks
	d    *data

	// FailRedemption, when set, is returned by InsertRedemption.
	FailRedemption error
	// FailMarkBooked, when set, is returned by MarkBooked.
	FailMarkBooked error
	// FailUpsert, when set, is returned by SeatLocks.Upsert.
	FailUpsert error
	// FailUpsertTimes limits FailUpsert to that many calls when positive.
	// FailUpsert is cleared after the last one.
	FailUpsertTimes int
	// CouponRowLocks counts transactions that asked for CouponsForUpdate.
	CouponRowLocks int
	// Commits counts successful commits.
	Commits int
}

// New returns an empty store.
func New() *Store {
	return &Store{d: (&data{}).clone()}
}

// AddEvent registers an event located in a venue of the given state.
func (s *Store) AddEvent(eventID uint64, venueState string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.venueState[eventID] = venueState
}

// AddSection registers a section.
func (s *Store) AddSection(sec model.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.sections[sec.ID] = sec
}

// AddSeat registers a seat.  An empty status defaults to AVAILABLE.
func (s *Store) AddSeat(seat model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seat.Status == "" {
		seat.Status = model.SeatAvailable
	}
	s.d.seats[seat.ID] = seat
}

// AddCoupon registers a coupon and its applicable events.
func (s *Store) AddCoupon(c model.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.coupons[c.Code] = c
	m := make(map[uint64]bool, len(c.EventIDs))
	for _, e := range c.EventIDs {
		m[e] = true
	}
	s.d.couponEvents[c.ID] = m
}

// PutLock writes a lock row directly, bypassing the lock manager.
func (s *Store) PutLock(l model.SeatLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.locks[lockKey{l.EventID, l.SeatID}] = l
}

// Seat returns the committed state of a seat.
func (s *Store) Seat(id uint64) model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.seats[id]
}

// Lock returns the committed lock row for a seat.
func (s *Store) Lock(eventID, seatID uint64) (model.SeatLock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.d.locks[lockKey{eventID, seatID}]
	return l, ok
}

// Bookings returns the committed bookings.
func (s *Store) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Booking(nil), s.d.bookings...)
}

// BookingSeats returns the committed booking line items.
func (s *Store) BookingSeats() []model.BookingSeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BookingSeat(nil), s.d.bookingSeats...)
}

// Redemptions returns the committed coupon redemptions.
func (s *Store) Redemptions() []model.CouponRedemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CouponRedemption(nil), s.d.redemptions...)
}

// Begin starts a transaction, blocking while another one is open.
func (s *Store) Begin(ctx context.Context, readOnly bool) (store.Tx, error) {
	s.txMu.Lock()
	if err := ctx.Err(); err != nil {
		s.txMu.Unlock()
		return nil, err
	}
	s.mu.Lock()
	work := s.d.clone()
	s.mu.Unlock()
	return &tx{s: s, d: work, readOnly: readOnly}, nil
}

type tx struct {
	s        *Store
	d        *data
	readOnly bool
	done     bool
}

func (t *tx) end() {
	if !t.done {
		t.done = true
		t.s.txMu.Unlock()
	}
}

func (t *tx) Commit() error {
	if t.done {
		return context.Canceled
	}
	if !t.readOnly {
		t.s.mu.Lock()
		t.s.d = t.d
		t.s.Commits++
		t.s.mu.Unlock()
	}
	t.end()
	return nil
}

func (t *tx) Rollback() error {
	t.end()
	return nil
}

func (t *tx) Locks() store.SeatLocks  { return locks{t} }
func (t *tx) Seats() store.Seats      { return seats{t} }
func (t *tx) Events() store.Events    { return events{t} }
func (t *tx) Coupons() store.Coupons  { return coupons{t} }
func (t *tx) Bookings() store.Bookings { return bookings{t} }

func (t *tx) CouponsForUpdate() store.Coupons {
	t.s.mu.Lock()
	t.s.CouponRowLocks++
	t.s.mu.Unlock()
	return coupons{t}
}

type locks struct{ t *tx }

func (l locks) CheckSeats(_ context.Context, eventID uint64, seatIDs []uint64) (missing, booked []uint64, err error) {
	confirmed := map[uint64]bool{}
	for _, b := range l.t.d.bookings {
		if b.EventID == eventID && b.Status == model.BookingConfirmed {
			confirmed[b.ID] = true
		}
	}
	taken := map[uint64]bool{}
	for _, bs := range l.t.d.bookingSeats {
		if confirmed[bs.BookingID] {
			taken[bs.SeatID] = true
		}
	}
	for _, id := range seatIDs {
		if seat, ok := l.t.d.seats[id]; !ok || seat.EventID != eventID {
			missing = append(missing, id)
			continue
		}
		if taken[id] {
			booked = append(booked, id)
		}
	}
	return missing, booked, nil
}

func (l locks) List(_ context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error) {
	var out []model.SeatLock
	for _, id := range seatIDs {
		if lk, ok := l.t.d.locks[lockKey{eventID, id}]; ok {
			out = append(out, lk)
		}
	}
	return out, nil
}

func (l locks) ListForUpdate(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error) {
	return l.List(ctx, eventID, seatIDs)
}

func (l locks) Upsert(_ context.Context, lock model.SeatLock) error {
	l.t.s.mu.Lock()
	fail := l.t.s.FailUpsert
	if fail != nil && l.t.s.FailUpsertTimes > 0 {
		l.t.s.FailUpsertTimes--
		if l.t.s.FailUpsertTimes == 0 {
			l.t.s.FailUpsert = nil
		}
	}
	l.t.s.mu.Unlock()
	if fail != nil {
		return fail
	}
	l.t.d.locks[lockKey{lock.EventID, lock.SeatID}] = lock
	return nil
}

func (l locks) Delete(_ context.Context, eventID uint64, seatIDs []uint64) error {
	for _, id := range seatIDs {
		delete(l.t.d.locks, lockKey{eventID, id})
	}
	return nil
}

type seats struct{ t *tx }

func (s seats) ListPriced(_ context.Context, eventID uint64, seatIDs []uint64) ([]model.PricedSeat, error) {
	var out []model.PricedSeat
	for _, id := range seatIDs {
		seat, ok := s.t.d.seats[id]
		if !ok || seat.EventID != eventID {
			continue
		}
		sec, ok := s.t.d.sections[seat.SectionID]
		if !ok {
			continue
		}
		out = append(out, model.PricedSeat{
			SeatID:      seat.ID,
			Label:       seat.Label,
			BasePrice:   seat.BasePrice,
			SectionID:   sec.ID,
			SectionName: sec.Name,
			FeeType:     sec.FeeType,
			FeeValue:    sec.FeeValue,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

func (s seats) MarkBooked(_ context.Context, eventID uint64, seatIDs []uint64) error {
	s.t.s.mu.Lock()
	fail := s.t.s.FailMarkBooked
	s.t.s.mu.Unlock()
	if fail != nil {
		return fail
	}
	for _, id := range seatIDs {
		seat, ok := s.t.d.seats[id]
		if !ok || seat.EventID != eventID {
			continue
		}
		seat.Status = model.SeatBooked
		s.t.d.seats[id] = seat
	}
	return nil
}

type events struct{ t *tx }

func (e events) VenueState(_ context.Context, eventID uint64) (string, error) {
	st, ok := e.t.d.venueState[eventID]
	if !ok {
		return "", store.ErrNotFound
	}
	return st, nil
}

type coupons struct{ t *tx }

func (c coupons) GetByCode(_ context.Context, code string) (model.Coupon, error) {
	cp, ok := c.t.d.coupons[code]
	if !ok {
		return model.Coupon{}, store.ErrNotFound
	}
	return cp, nil
}

func (c coupons) AppliesToEvent(_ context.Context, couponID, eventID uint64) (bool, error) {
	return c.t.d.couponEvents[couponID][eventID], nil
}

func (c coupons) CountRedemptions(_ context.Context, couponID uint64) (int, error) {
	n := 0
	for _, r := range c.t.d.redemptions {
		if r.CouponID == couponID {
			n++
		}
	}
	return n, nil
}

func (c coupons) CountUserRedemptions(_ context.Context, couponID uint64, userID string) (int, error) {
	n := 0
	for _, r := range c.t.d.redemptions {
		if r.CouponID == couponID && r.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (c coupons) InsertRedemption(_ context.Context, r model.CouponRedemption) error {
	c.t.s.mu.Lock()
	fail := c.t.s.FailRedemption
	c.t.s.mu.Unlock()
	if fail != nil {
		return fail
	}
	c.t.d.redemptions = append(c.t.d.redemptions, r)
	return nil
}

type bookings struct{ t *tx }

func (b bookings) Create(_ context.Context, bk *model.Booking) error {
	b.t.d.nextBooking++
	bk.ID = b.t.d.nextBooking
	if bk.CreatedAt.IsZero() {
		bk.CreatedAt = time.Now().UTC()
	}
	b.t.d.bookings = append(b.t.d.bookings, *bk)
	return nil
}

func (b bookings) CreateSeats(_ context.Context, seats []model.BookingSeat) error {
	b.t.d.bookingSeats = append(b.t.d.bookingSeats, seats...)
	return nil
}
