package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/money"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

var two = decimal.NewFromInt(2)

// PricingEngine computes authoritative price breakdowns.
type PricingEngine struct {
	store    store.Store
	coupons  *CouponValidator
	settings SettingsFunc
}

// NewPricingEngine returns a PricingEngine.
func NewPricingEngine(s store.Store, coupons *CouponValidator, settings SettingsFunc) *PricingEngine {
	return &PricingEngine{store: s, coupons: coupons, settings: settings}
}

// Quote prices the seats in a read-only transaction.  Quoting never
// requires a lock and never writes.
func (p *PricingEngine) Quote(ctx context.Context, eventID uint64, seatIDs []uint64, couponCode, userID string) (model.Quote, error) {
	ids, err := normalize(eventID, seatIDs, userID)
	if err != nil {
		return model.Quote{}, err
	}
	var q model.Quote
	err = store.InTx(ctx, p.store, true, func(tx store.Tx) error {
		var err error
		q, _, err = p.quote(ctx, tx, eventID, ids, couponCode, userID, false)
		return err
	})
	if err != nil {
		return model.Quote{}, apperr.Persistence(err)
	}
	return q, nil
}

// quote runs the pricing steps inside tx and also returns the resolved
// coupon so a booking can record its redemption.  forBooking takes the
// coupon row lock for that redemption.
func (p *PricingEngine) quote(ctx context.Context, tx store.Tx, eventID uint64, ids []uint64, couponCode, userID string, forBooking bool) (model.Quote, *model.Coupon, error) {
	seats, err := tx.Seats().ListPriced(ctx, eventID, ids)
	if err != nil {
		return model.Quote{}, nil, err
	}
	if len(seats) != len(ids) {
		return model.Quote{}, nil, apperr.ErrSeatNotFound
	}

	b := model.Breakdown{}
	b.TicketSubtotal, b.BookingFeeTotal = subtotals(seats)
	b.GrossBeforeDiscount = money.Sum(b.TicketSubtotal, b.BookingFeeTotal)

	resolve := p.coupons.Resolve
	if forBooking {
		resolve = p.coupons.ResolveForBooking
	}
	coupon, discount, err := resolve(ctx, tx, couponCode, eventID, userID, b.GrossBeforeDiscount)
	if err != nil {
		return model.Quote{}, nil, err
	}
	b.CouponDiscount = money.Round2(discount)
	b.TaxableAmount = money.Round2(b.GrossBeforeDiscount.Sub(b.CouponDiscount))

	venueState, err := tx.Events().VenueState(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Quote{}, nil, apperr.ErrEventNotFound
		}
		return model.Quote{}, nil, err
	}
	cfg := p.settings()
	b.TaxCGST, b.TaxSGST, b.TaxIGST = tax(b.TaxableAmount, cfg.TaxRate, isDomestic(venueState, cfg.CompanyState))
	b.TotalAmount = money.Sum(b.TaxableAmount, b.TaxCGST, b.TaxSGST, b.TaxIGST)

	q := model.Quote{Seats: make([]model.QuotedSeat, 0, len(seats)), Breakdown: b}
	for _, s := range seats {
		q.Seats = append(q.Seats, model.QuotedSeat{
			SeatID:      s.SeatID,
			Label:       s.Label,
			BasePrice:   s.BasePrice,
			SectionID:   s.SectionID,
			SectionName: s.SectionName,
		})
	}
	if coupon != nil {
		q.Coupon = coupon.Summary()
	}
	return q, coupon, nil
}

// subtotals returns the rounded ticket subtotal and booking fee total.
// A FLAT section fee is charged once per section present in the order; a
// PERCENT fee applies to that section's own ticket subtotal.
func subtotals(seats []model.PricedSeat) (ticket, fees decimal.Decimal) {
	type section struct {
		feeType  model.FeeType
		feeValue decimal.Decimal
		subtotal decimal.Decimal
	}
	var order []uint64
	sections := map[uint64]*section{}
	ticket = decimal.Zero
	for _, s := range seats {
		ticket = ticket.Add(s.BasePrice)
		sec, ok := sections[s.SectionID]
		if !ok {
			sec = &section{feeType: s.FeeType, feeValue: s.FeeValue, subtotal: decimal.Zero}
			sections[s.SectionID] = sec
			order = append(order, s.SectionID)
		}
		sec.subtotal = sec.subtotal.Add(s.BasePrice)
	}

	fees = decimal.Zero
	for _, id := range order {
		sec := sections[id]
		switch sec.feeType {
		case model.FeeFlat:
			fees = fees.Add(sec.feeValue)
		case model.FeePercent:
			fees = fees.Add(money.Percent(sec.subtotal, sec.feeValue))
		}
	}
	return money.Round2(ticket), money.Round2(fees)
}

// isDomestic compares jurisdiction codes exactly; an empty company state
// means the operator is based where the venue is.
func isDomestic(venueState, companyState string) bool {
	return companyState == "" || venueState == companyState
}

// tax splits the rate into two rounded halves for domestic orders and
// charges one full-rate line otherwise.
func tax(taxable, rate decimal.Decimal, domestic bool) (cgst, sgst, igst decimal.Decimal) {
	if domestic {
		half := rate.Div(two)
		cgst = money.Round2(taxable.Mul(half))
		sgst = money.Round2(taxable.Mul(half))
		return cgst, sgst, decimal.Zero
	}
	return decimal.Zero, decimal.Zero, money.Round2(taxable.Mul(rate))
}
