package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// BookingConfirmed is the only status this service ever writes.
const BookingConfirmed = "CONFIRMED"

// Booking is a confirmed purchase.  The amount fields are the breakdown
// recomputed server-side at commit time.  Rows are never updated after
// insertion.
//
// Fields:
//  ID               – bookings.id
//  UserID           – buyer
//  EventID          – event the seats belong to
//  BaseAmount       – ticket subtotal
//  BookingFeeAmount – sum of section booking fees
//  CouponDiscount   – discount applied, zero without coupon
//  TaxCGST/TaxSGST  – domestic tax halves
//  TaxIGST          – cross-jurisdiction tax
//  TotalAmount      – amount charged
//  PaymentReference – opaque reference supplied by the caller
type Booking struct {
    ID               uint64          `json:"id"`
    UserID           string          `json:"userId"`
    EventID          uint64          `json:"eventId"`
    BaseAmount       decimal.Decimal `json:"baseAmount"`
    BookingFeeAmount decimal.Decimal `json:"bookingFeeAmount"`
    CouponDiscount   decimal.Decimal `json:"couponDiscount"`
    TaxCGST          decimal.Decimal `json:"taxCgst"`
    TaxSGST          decimal.Decimal `json:"taxSgst"`
    TaxIGST          decimal.Decimal `json:"taxIgst"`
    TotalAmount      decimal.Decimal `json:"totalAmount"`
    Status           string          `json:"status"`
    PaymentReference *string         `json:"paymentReference,omitempty"`
    CreatedAt        time.Time       `json:"createdAt"`
    Seats            []BookingSeat   `json:"seats,omitempty"`
}

// BookingSeat is one line item of a booking.
type BookingSeat struct {
    BookingID uint64          `json:"bookingId"`
    SeatID    uint64          `json:"seatId"`
    Label     string          `json:"label,omitempty"`
    Price     decimal.Decimal `json:"price"`
}
