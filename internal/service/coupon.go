package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/money"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// CouponValidator decides whether a coupon applies to an order and how
// much it takes off.  It only ever runs inside a caller's transaction.
type CouponValidator struct {
	now Clock
}

// NewCouponValidator returns a CouponValidator.
func NewCouponValidator(now Clock) *CouponValidator {
	return &CouponValidator{now: now}
}

// Resolve validates code for the order and returns the coupon with its
// discount.  An empty code yields a nil coupon and zero discount.  Checks
// run in a fixed order and stop at the first failure.
func (v *CouponValidator) Resolve(ctx context.Context, tx store.Tx, code string, eventID uint64, userID string, gross decimal.Decimal) (*model.Coupon, decimal.Decimal, error) {
	return v.resolve(ctx, tx.Coupons(), code, eventID, userID, gross)
}

// ResolveForBooking is Resolve for a transaction that goes on to Record
// the redemption.  The coupon row stays locked until tx ends, so usage
// limits hold against concurrent bookings.
func (v *CouponValidator) ResolveForBooking(ctx context.Context, tx store.Tx, code string, eventID uint64, userID string, gross decimal.Decimal) (*model.Coupon, decimal.Decimal, error) {
	return v.resolve(ctx, tx.CouponsForUpdate(), code, eventID, userID, gross)
}

func (v *CouponValidator) resolve(ctx context.Context, coupons store.Coupons, code string, eventID uint64, userID string, gross decimal.Decimal) (*model.Coupon, decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, decimal.Zero, nil
	}

	c, err := coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, decimal.Zero, apperr.ErrCouponNotFound
		}
		return nil, decimal.Zero, err
	}

	if !v.now().Before(c.ExpiresAt) {
		return nil, decimal.Zero, apperr.ErrCouponExpired
	}

	ok, err := coupons.AppliesToEvent(ctx, c.ID, eventID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !ok {
		return nil, decimal.Zero, apperr.ErrCouponNotApplicable
	}

	if c.GlobalUsageLimit != nil {
		used, err := coupons.CountRedemptions(ctx, c.ID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if used >= *c.GlobalUsageLimit {
			return nil, decimal.Zero, apperr.ErrCouponGlobalLimitReached
		}
	}

	if c.PerUserLimit != nil {
		used, err := coupons.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if used >= *c.PerUserLimit {
			return nil, decimal.Zero, apperr.ErrCouponPerUserLimitReached
		}
	}

	if c.MinOrderValue != nil && c.MinOrderValue.IsPositive() && gross.LessThan(*c.MinOrderValue) {
		return nil, decimal.Zero, apperr.ErrOrderBelowMinimum
	}

	return &c, Discount(c, gross), nil
}

// Discount computes the discount of c on gross: the raw FLAT or PERCENT
// amount, capped by the coupon's maximum when one is set, capped by gross,
// then rounded.  The result is never negative and never exceeds gross.
func Discount(c model.Coupon, gross decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch c.DiscountType {
	case model.DiscountFlat:
		raw = c.DiscountValue
	case model.DiscountPercent:
		raw = money.Percent(gross, c.DiscountValue)
	}
	if c.MaxDiscount != nil && c.MaxDiscount.IsPositive() {
		raw = money.Min(raw, *c.MaxDiscount)
	}
	raw = money.Min(raw, gross)
	if raw.IsNegative() {
		raw = decimal.Zero
	}
	return money.Round2(raw)
}

// Record logs a redemption.  tx must be the booking's transaction so the
// redemption commits or rolls back with the booking.
func (v *CouponValidator) Record(ctx context.Context, tx store.Tx, couponID uint64, userID string, bookingID uint64) error {
	return tx.Coupons().InsertRedemption(ctx, model.CouponRedemption{
		CouponID:  couponID,
		UserID:    userID,
		BookingID: bookingID,
	})
}
