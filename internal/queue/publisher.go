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

const dialTimeout = 5 * time.Second

// Publisher publishes booking events to a durable queue on the default
// exchange.  It dials per publication so a broker restart never leaves it
// holding a dead connection; bookings are rare enough for that to be
// cheap.
type Publisher struct {
    url    string
    queue  string
    logger zerolog.Logger
}

// NewPublisher returns a publisher for cfg.
func NewPublisher(cfg config.QueueConfig, logger zerolog.Logger) *Publisher {
    return &Publisher{url: cfg.URL, queue: cfg.Queue, logger: logger.With().Str("component", "booking-publisher").Logger()}
}

// PublishBookingConfirmed publishes ev as a persistent JSON message.  Any
// error is logged and returned so the caller can choose to ignore it.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    if err := p.publish(ctx, ev); err != nil {
        p.logger.Warn().Err(err).Uint64("booking_id", ev.BookingID).Msg("publish booking.confirmed failed")
        return err
    }
    p.logger.Debug().Uint64("booking_id", ev.BookingID).Msg("booking.confirmed published")
    return nil
}

func (p *Publisher) publish(ctx context.Context, ev BookingConfirmedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return errors.Wrap(err, "marshal event")
    }

    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(dialTimeout),
    })
    if err != nil {
        return errors.Wrap(err, "dial")
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return errors.Wrap(err, "open channel")
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        return errors.Wrap(err, "declare queue")
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    return errors.Wrap(ch.PublishWithContext(ctx, "", p.queue, false, false, pub), "publish")
}
