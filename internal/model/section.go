package model

import "github.com/shopspring/decimal"

// FeeType selects how a section's booking fee is computed.
type FeeType string

const (
    FeeFlat    FeeType = "FLAT"    // fixed amount once per section in the order
    FeePercent FeeType = "PERCENT" // percentage of the section's ticket subtotal
)

// Valid reports whether f is a known fee type.
func (f FeeType) Valid() bool { return f == FeeFlat || f == FeePercent }

// Section is a pricing and fee tier grouping seats within an event.
type Section struct {
    ID       uint64          `json:"id"`        // seat_sections.id
    EventID  uint64          `json:"event_id"`  // seat_sections.event_id
    Name     string          `json:"name"`      // seat_sections.name
    FeeType  FeeType         `json:"fee_type"`  // seat_sections.booking_fee_type
    FeeValue decimal.Decimal `json:"fee_value"` // seat_sections.booking_fee_value, never negative
}
