// Package store declares the transactional data access used by the
// booking services.  The MySQL implementation lives in
// internal/repository; an in-memory implementation for tests lives in
// internal/store/memstore.  All methods of a Tx run inside the same
// database transaction.
package store

import (
	"context"
	"errors"

	"github.com/iliyamo/event-seat-booking/internal/model"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrLockContention is returned when the database aborted the
	// transaction because of a deadlock or a lock wait timeout.
	ErrLockContention = errors.New("store: lock contention")
)

// SeatLocks accesses seat_locks and the booked-seat lookup that guards
// lock acquisition.
type SeatLocks interface {
	// CheckSeats returns the seats among seatIDs that are not seats of
	// the event, and those that belong to a CONFIRMED booking of it.
	CheckSeats(ctx context.Context, eventID uint64, seatIDs []uint64) (missing, booked []uint64, err error)
	// List returns the lock rows for the seats without locking them.
	List(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error)
	// ListForUpdate returns the lock rows for the seats and holds an
	// exclusive row lock on them until the transaction ends.
	ListForUpdate(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error)
	// Upsert inserts the lock row or overwrites owner and expiry of the
	// existing row for the same (event, seat).
	Upsert(ctx context.Context, lock model.SeatLock) error
	// Delete removes the lock rows for the seats.
	Delete(ctx context.Context, eventID uint64, seatIDs []uint64) error
}

// Seats accesses seats joined with their sections.
type Seats interface {
	ListPriced(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.PricedSeat, error)
	MarkBooked(ctx context.Context, eventID uint64, seatIDs []uint64) error
}

// Events resolves event level data needed for pricing.
type Events interface {
	// VenueState returns the state code of the event's venue or
	// ErrNotFound.
	VenueState(ctx context.Context, eventID uint64) (string, error)
}

// Coupons accesses coupons, their event mapping and the redemption log.
type Coupons interface {
	GetByCode(ctx context.Context, code string) (model.Coupon, error)
	AppliesToEvent(ctx context.Context, couponID, eventID uint64) (bool, error)
	CountRedemptions(ctx context.Context, couponID uint64) (int, error)
	CountUserRedemptions(ctx context.Context, couponID uint64, userID string) (int, error)
	InsertRedemption(ctx context.Context, r model.CouponRedemption) error
}

// Bookings writes bookings and their line items.
type Bookings interface {
	// Create inserts b and sets b.ID.
	Create(ctx context.Context, b *model.Booking) error
	CreateSeats(ctx context.Context, seats []model.BookingSeat) error
}

// Tx is one database transaction.
type Tx interface {
	Locks() SeatLocks
	Seats() Seats
	Events() Events
	Coupons() Coupons
	// CouponsForUpdate is Coupons for a transaction that will redeem the
	// coupon.  GetByCode holds an exclusive lock on the coupon row and the
	// redemption counts read the latest committed log, so concurrent
	// bookings with one coupon are counted one after another.
	CouponsForUpdate() Coupons
	Bookings() Bookings
	Commit() error
	Rollback() error
}

// Store begins transactions.
type Store interface {
	Begin(ctx context.Context, readOnly bool) (Tx, error)
}

// InTx runs fn inside a transaction.  The transaction is committed when
// fn returns nil and rolled back otherwise, before the error is returned.
func InTx(ctx context.Context, s Store, readOnly bool, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx, readOnly)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if readOnly {
		// nothing to persist
		return nil
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
