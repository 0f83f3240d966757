package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's discount is computed.
type DiscountType string

const (
    DiscountFlat    DiscountType = "FLAT"
    DiscountPercent DiscountType = "PERCENT"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool { return t == DiscountFlat || t == DiscountPercent }

// Coupon is a discount rule.  Optional limits are nil when unset.
// Usage is never stored on the coupon itself; it is counted from
// coupon_redemptions.
type Coupon struct {
    ID               uint64           `json:"id"`                         // coupons.id
    Code             string           `json:"code"`                       // coupons.code (unique)
    Description      string           `json:"description,omitempty"`      // coupons.description
    DiscountType     DiscountType     `json:"discountType"`               // coupons.discount_type
    DiscountValue    decimal.Decimal  `json:"discountValue"`              // coupons.discount_value
    MaxDiscount      *decimal.Decimal `json:"maxDiscountAmount,omitempty"` // coupons.max_discount_amount
    MinOrderValue    *decimal.Decimal `json:"minOrderValue,omitempty"`    // coupons.min_order_value
    ExpiresAt        time.Time        `json:"expiryAt"`                   // coupons.expiry_at
    GlobalUsageLimit *int             `json:"globalUsageLimit,omitempty"` // coupons.global_usage_limit
    PerUserLimit     *int             `json:"perUserLimit,omitempty"`     // coupons.per_user_limit
    EventIDs         []uint64         `json:"applicableEventIds,omitempty"` // coupon_events rows
}

// CouponSummary is the coupon information echoed back with a quote.
type CouponSummary struct {
    ID            uint64          `json:"id"`
    Code          string          `json:"code"`
    DiscountType  DiscountType    `json:"discountType"`
    DiscountValue decimal.Decimal `json:"discountValue"`
}

// Summary returns the quote projection of c.
func (c Coupon) Summary() *CouponSummary {
    return &CouponSummary{ID: c.ID, Code: c.Code, DiscountType: c.DiscountType, DiscountValue: c.DiscountValue}
}

// CouponRedemption records one use of a coupon by a user on a booking.
type CouponRedemption struct {
    CouponID  uint64
    UserID    string
    BookingID uint64
}
