package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/metrics"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// EventPublisher announces committed bookings.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// ConfirmRequest is the input of Confirm.  Amounts are deliberately
// absent: the price is always recomputed.
type ConfirmRequest struct {
	EventID          uint64
	SeatIDs          []uint64
	CouponCode       string
	UserID           string
	PaymentReference string
}

// Confirmation is the result of a committed booking.
type Confirmation struct {
	BookingID uint64      `json:"bookingId"`
	Pricing   model.Quote `json:"pricing"`
}

// BookingOrchestrator converts held seats into a booking.
type BookingOrchestrator struct {
	store     store.Store
	locks     *LockManager
	pricing   *PricingEngine
	coupons   *CouponValidator
	publisher EventPublisher
	now       Clock
	logger    zerolog.Logger
}

// NewBookingOrchestrator returns a BookingOrchestrator.  publisher may be
// nil, in which case no events are sent.
func NewBookingOrchestrator(s store.Store, locks *LockManager, pricing *PricingEngine, coupons *CouponValidator,
	publisher EventPublisher, now Clock, logger zerolog.Logger) *BookingOrchestrator {
	return &BookingOrchestrator{
		store:     s,
		locks:     locks,
		pricing:   pricing,
		coupons:   coupons,
		publisher: publisher,
		now:       now,
		logger:    logger.With().Str("component", "bookings").Logger(),
	}
}

// Confirm books the seats in a single transaction.  The caller must hold
// unexpired locks on all of them.  On any failure nothing is written.
func (o *BookingOrchestrator) Confirm(ctx context.Context, req ConfirmRequest) (Confirmation, error) {
	start := time.Now()
	defer func() { metrics.ConfirmDuration.Observe(time.Since(start).Seconds()) }()

	ids, err := normalize(req.EventID, req.SeatIDs, req.UserID)
	if err != nil {
		return Confirmation{}, o.fail(err, req)
	}

	var (
		booking model.Booking
		quote   model.Quote
	)
	err = store.InTx(ctx, o.store, false, func(tx store.Tx) error {
		if err := o.locks.verify(ctx, tx, req.EventID, ids, req.UserID, true); err != nil {
			if apperr.KindOf(err) == apperr.KindBusinessRule {
				return apperr.ErrLocksInvalid.Wrap(err)
			}
			return err
		}

		q, coupon, err := o.pricing.quote(ctx, tx, req.EventID, ids, req.CouponCode, req.UserID, true)
		if err != nil {
			return err
		}

		booking = model.Booking{
			UserID:           req.UserID,
			EventID:          req.EventID,
			BaseAmount:       q.Breakdown.TicketSubtotal,
			BookingFeeAmount: q.Breakdown.BookingFeeTotal,
			CouponDiscount:   q.Breakdown.CouponDiscount,
			TaxCGST:          q.Breakdown.TaxCGST,
			TaxSGST:          q.Breakdown.TaxSGST,
			TaxIGST:          q.Breakdown.TaxIGST,
			TotalAmount:      q.Breakdown.TotalAmount,
			Status:           model.BookingConfirmed,
			CreatedAt:        o.now().UTC().Truncate(time.Millisecond),
		}
		if ref := strings.TrimSpace(req.PaymentReference); ref != "" {
			booking.PaymentReference = &ref
		}
		if err := tx.Bookings().Create(ctx, &booking); err != nil {
			return err
		}

		lines := make([]model.BookingSeat, 0, len(q.Seats))
		for _, s := range q.Seats {
			lines = append(lines, model.BookingSeat{BookingID: booking.ID, SeatID: s.SeatID, Label: s.Label, Price: s.BasePrice})
		}
		if err := tx.Bookings().CreateSeats(ctx, lines); err != nil {
			return err
		}
		if err := tx.Seats().MarkBooked(ctx, req.EventID, ids); err != nil {
			return err
		}
		if err := tx.Locks().Delete(ctx, req.EventID, ids); err != nil {
			return err
		}
		if coupon != nil {
			if err := o.coupons.Record(ctx, tx, coupon.ID, req.UserID, booking.ID); err != nil {
				return err
			}
		}
		booking.Seats = lines
		quote = q
		return nil
	})
	if err != nil {
		return Confirmation{}, o.fail(err, req)
	}

	metrics.BookingsConfirmed.Inc()
	o.logger.Info().Uint64("booking_id", booking.ID).Uint64("event_id", req.EventID).
		Str("user_id", req.UserID).Str("total", booking.TotalAmount.StringFixed(2)).Msg("booking confirmed")
	o.publish(ctx, booking, quote)

	return Confirmation{BookingID: booking.ID, Pricing: quote}, nil
}

func (o *BookingOrchestrator) fail(err error, req ConfirmRequest) error {
	err = apperr.Persistence(err)
	ae := apperr.As(err)
	metrics.BookingFailures.WithLabelValues(ae.Code).Inc()
	ev := o.logger.Info()
	if ae.Kind == apperr.KindPersistence {
		ev = o.logger.Error()
	}
	ev.Err(err).Uint64("event_id", req.EventID).Str("user_id", req.UserID).Msg("booking not confirmed")
	return err
}

// publish sends the booking.confirmed event after commit.  A failure is
// logged and counted but never undoes the booking.
func (o *BookingOrchestrator) publish(ctx context.Context, b model.Booking, q model.Quote) {
	if o.publisher == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		EventID:     b.EventID,
		TotalAmount: b.TotalAmount,
		ConfirmedAt: b.CreatedAt.Format(time.RFC3339),
	}
	for _, s := range q.Seats {
		ev.SeatIDs = append(ev.SeatIDs, s.SeatID)
		ev.SeatLabels = append(ev.SeatLabels, s.Label)
	}
	if q.Coupon != nil {
		ev.CouponCode = q.Coupon.Code
	}
	// detached from the request so a client disconnect does not drop it
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.publisher.PublishBookingConfirmed(pctx, ev); err != nil {
		metrics.BookingEventsPublished.WithLabelValues("error").Inc()
		o.logger.Warn().Err(err).Uint64("booking_id", b.ID).Msg("booking event not published")
		return
	}
	metrics.BookingEventsPublished.WithLabelValues("ok").Inc()
}
