package queue

import (
    "context"
    "encoding/json"
    "time"

    "github.com/pkg/errors"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/iliyamo/event-seat-booking/internal/config"
)

// HandlerFunc processes one decoded event.  A returned error rejects the
// delivery without requeueing it.
type HandlerFunc func(ctx context.Context, ev BookingConfirmedEvent) error

// Consumer reads booking.confirmed deliveries and hands them to a
// HandlerFunc.
type Consumer struct {
    url      string
    queue    string
    handle   HandlerFunc
    logger   zerolog.Logger
    prefetch int
}

// NewConsumer returns a consumer for cfg.  A nil handle logs each event.
func NewConsumer(cfg config.QueueConfig, logger zerolog.Logger, handle HandlerFunc) *Consumer {
    c := &Consumer{
        url:      cfg.URL,
        queue:    cfg.Queue,
        handle:   handle,
        logger:   logger.With().Str("component", "booking-consumer").Logger(),
        prefetch: 50,
    }
    if c.handle == nil {
        c.handle = c.logEvent
    }
    return c
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff capped at 30s.  It returns nil on
// cancellation.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleep(ctx, backoff) {
                return nil
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        c.logger.Warn().Err(err).Msg("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "channel open")
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.prefetch, 0, false); err != nil {
        c.logger.Warn().Err(err).Msg("set QoS failed")
    }
    if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
        return errors.Wrap(err, "queue declare")
    }
    msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
    if err != nil {
        return errors.Wrap(err, "queue consume")
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleDelivery(ctx, d.Body); err != nil {
                c.logger.Error().Err(err).Msg("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleDelivery decodes body and passes the event to the handler.
func (c *Consumer) HandleDelivery(ctx context.Context, body []byte) error {
    var ev BookingConfirmedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return errors.Wrap(err, "unmarshal")
    }
    if ev.BookingID == 0 {
        return errors.New("event without booking_id")
    }
    return c.handle(ctx, ev)
}

func (c *Consumer) logEvent(_ context.Context, ev BookingConfirmedEvent) error {
    c.logger.Info().
        Uint64("booking_id", ev.BookingID).
        Str("user_id", ev.UserID).
        Uint64("event_id", ev.EventID).
        Strs("seats", ev.SeatLabels).
        Str("total", ev.TotalAmount.StringFixed(2)).
        Str("coupon", ev.CouponCode).
        Str("confirmed_at", ev.ConfirmedAt).
        Msg("booking confirmed")
    return nil
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
