package model

import "github.com/shopspring/decimal"

// Money is written to JSON as a number, e.g. "totalAmount":649.  Both
// numbers and quoted strings are accepted on input.
func init() { decimal.MarshalJSONWithoutQuotes = true }

// QuotedSeat is a seat as listed in a price quote.
type QuotedSeat struct {
    SeatID      uint64          `json:"seatId"`
    Label       string          `json:"label"`
    BasePrice   decimal.Decimal `json:"basePrice"`
    SectionID   uint64          `json:"sectionId"`
    SectionName string          `json:"sectionName"`
}

// Breakdown is the numeric part of a quote.  Every figure is rounded to
// two places.  Either TaxCGST and TaxSGST (domestic) or TaxIGST
// (cross-jurisdiction) is non-zero, never both.
type Breakdown struct {
    TicketSubtotal      decimal.Decimal `json:"ticketSubtotal"`
    BookingFeeTotal     decimal.Decimal `json:"bookingFeeTotal"`
    GrossBeforeDiscount decimal.Decimal `json:"grossBeforeDiscount"`
    CouponDiscount      decimal.Decimal `json:"couponDiscount"`
    TaxableAmount       decimal.Decimal `json:"taxableAmount"`
    TaxCGST             decimal.Decimal `json:"taxCgst"`
    TaxSGST             decimal.Decimal `json:"taxSgst"`
    TaxIGST             decimal.Decimal `json:"taxIgst"`
    TotalAmount         decimal.Decimal `json:"totalAmount"`
}

// Quote is the full pricing result.
type Quote struct {
    Seats     []QuotedSeat   `json:"seats"`
    Breakdown Breakdown      `json:"breakdown"`
    Coupon    *CouponSummary `json:"coupon"`
}
