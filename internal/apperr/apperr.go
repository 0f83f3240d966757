// Package apperr defines the typed failures returned by the booking
// services.  Every failure carries a Kind (used by handlers to pick an
// HTTP status), a stable Code and a message that can be shown to an end
// user as is.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindNotFound     Kind = "NOT_FOUND"
	KindBusinessRule Kind = "BUSINESS_RULE"
	KindPersistence  Kind = "PERSISTENCE"
	KindUnauthorized Kind = "UNAUTHORIZED"
)

// Error is a typed failure.  Two errors match under errors.Is when their
// codes are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// New builds a sentinel.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation failures.
var (
	ErrEmptySeatSelection = New(KindValidation, "EMPTY_SEAT_SELECTION", "seatIds must be a non-empty array")
	ErrInvalidEvent       = New(KindValidation, "INVALID_EVENT", "eventId is required")
	ErrInvalidUser        = New(KindValidation, "INVALID_USER", "userId is required")
	ErrInvalidSeatID      = New(KindValidation, "INVALID_SEAT_ID", "seatIds must contain positive integers")
)

// Conflicts between concurrent users.
var (
	ErrSeatAlreadyBooked = New(KindConflict, "SEAT_ALREADY_BOOKED", "One or more seats are already booked")
	ErrSeatLockedByOther = New(KindConflict, "SEAT_LOCKED_BY_OTHER", "One or more seats are already locked by another user")
)

// Missing entities.
var (
	ErrSeatNotFound    = New(KindNotFound, "SEAT_NOT_FOUND", "One or more seats not found for this event")
	ErrEventNotFound   = New(KindNotFound, "EVENT_NOT_FOUND", "Event/venue not found")
	ErrCouponNotFound  = New(KindNotFound, "COUPON_NOT_FOUND", "Invalid coupon code")
	ErrBookingNotFound = New(KindNotFound, "BOOKING_NOT_FOUND", "Booking not found")
)

// Business rule violations.
var (
	ErrCouponExpired             = New(KindBusinessRule, "COUPON_EXPIRED", "Coupon has expired")
	ErrCouponNotApplicable       = New(KindBusinessRule, "COUPON_NOT_APPLICABLE", "Coupon not applicable for this event")
	ErrCouponGlobalLimitReached  = New(KindBusinessRule, "COUPON_GLOBAL_LIMIT_REACHED", "Coupon usage limit reached")
	ErrCouponPerUserLimitReached = New(KindBusinessRule, "COUPON_PER_USER_LIMIT_REACHED", "You have already used this coupon maximum allowed times")
	ErrOrderBelowMinimum         = New(KindBusinessRule, "ORDER_BELOW_MINIMUM", "Order value is below coupon minimum amount")
	ErrLockMissing               = New(KindBusinessRule, "LOCK_MISSING", "Some seats are not locked")
	ErrLockExpiredOrStolen       = New(KindBusinessRule, "LOCK_EXPIRED_OR_STOLEN", "Seat locks missing or expired for this user")
	ErrLocksInvalid              = New(KindBusinessRule, "LOCKS_INVALID", "Seat locks missing or expired for this user")
)

// ErrPersistence is the catch-all for unexpected storage failures.
var ErrPersistence = New(KindPersistence, "PERSISTENCE_ERROR", "Unexpected storage failure")

// Persistence wraps an unexpected storage error.  A nil cause yields nil.
func Persistence(cause error) error {
	if cause == nil {
		return nil
	}
	var ae *Error
	if errors.As(cause, &ae) {
		return cause
	}
	return ErrPersistence.Wrap(cause)
}

// KindOf returns the kind of err, or KindPersistence for errors that are
// not typed.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// As extracts the typed error, falling back to ErrPersistence.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return ErrPersistence.Wrap(err)
}
