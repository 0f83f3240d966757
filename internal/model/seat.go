package model

import "github.com/shopspring/decimal"

// SeatStatus is the persisted availability of a seat.  A seat only ever
// moves from AVAILABLE to BOOKED.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "AVAILABLE"
    SeatBooked    SeatStatus = "BOOKED"
)

// Seat is a bookable unit of an event.
type Seat struct {
    ID        uint64          `json:"id"`         // seats.id
    EventID   uint64          `json:"event_id"`   // seats.event_id
    SectionID uint64          `json:"section_id"` // seats.section_id
    Label     string          `json:"label"`      // seats.seat_label
    BasePrice decimal.Decimal `json:"base_price"` // seats.base_price
    Status    SeatStatus      `json:"status"`     // seats.status
}

// PricedSeat is a seat joined with the section that carries its booking
// fee policy.  It is the input row of the pricing engine.
type PricedSeat struct {
    SeatID      uint64
    Label       string
    BasePrice   decimal.Decimal
    SectionID   uint64
    SectionName string
    FeeType     FeeType
    FeeValue    decimal.Decimal
}

// SeatView is the public seat map entry.  Availability is derived at
// read time: LOCKED means an unexpired lock row exists.
type SeatView struct {
    ID          uint64          `json:"id"`
    Label       string          `json:"label"`
    SectionID   uint64          `json:"sectionId"`
    SectionName string          `json:"sectionName"`
    BasePrice   decimal.Decimal `json:"basePrice"`
    Status      string          `json:"status"` // AVAILABLE, LOCKED or BOOKED
}
