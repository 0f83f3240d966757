// Package queue carries booking events over RabbitMQ: the payloads, a
// publisher used after a booking commits and a background consumer.
package queue

import "github.com/shopspring/decimal"

// BookingConfirmedEvent is published when a booking is committed.  It
// contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID   uint64          `json:"booking_id"`
    UserID      string          `json:"user_id"`
    EventID     uint64          `json:"event_id"`
    SeatIDs     []uint64        `json:"seat_ids"`
    SeatLabels  []string        `json:"seats"`
    CouponCode  string          `json:"coupon_code,omitempty"`
    TotalAmount decimal.Decimal `json:"total_amount"`
    ConfirmedAt string          `json:"confirmed_at"`
}
