package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-seat-booking/internal/model"
)

// BookingRepo provides access to bookings and their booking_seats.
// Bookings are insert-only: nothing in this repository updates or deletes
// a booking row.
type BookingRepo struct {
    db DBTX
}

// NewBookingRepo returns a new BookingRepo bound to db or a transaction.
func NewBookingRepo(db DBTX) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts the booking and populates its generated ID.  CreatedAt
// is written by the caller so the value is known without reading back.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings (user_id, event_id, base_amount, booking_fee_amount, coupon_discount,
                                     tax_cgst, tax_sgst, tax_igst, total_amount, status, payment_reference, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var payRef interface{}
    if b.PaymentReference != nil {
        payRef = *b.PaymentReference
    }
    result, err := r.db.ExecContext(ctx, q,
        b.UserID, b.EventID, b.BaseAmount, b.BookingFeeAmount, b.CouponDiscount,
        b.TaxCGST, b.TaxSGST, b.TaxIGST, b.TotalAmount, b.Status, payRef, b.CreatedAt.UTC(),
    )
    if err != nil {
        return translate(err, "insert booking")
    }
    id, err := result.LastInsertId()
    if err != nil {
        return translate(err, "booking id")
    }
    b.ID = uint64(id)
    return nil
}

// CreateSeats inserts the line items in a single statement.  Passing an
// empty slice has no effect.
func (r *BookingRepo) CreateSeats(ctx context.Context, seats []model.BookingSeat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO booking_seats (booking_id, seat_id, price) VALUES `
    args := make([]interface{}, 0, len(seats)*3)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, s.BookingID, s.SeatID, s.Price)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return translate(err, "insert booking seats")
}

const bookingColumns = `b.id, b.user_id, b.event_id, b.base_amount, b.booking_fee_amount, b.coupon_discount,
                        b.tax_cgst, b.tax_sgst, b.tax_igst, b.total_amount, b.status, b.payment_reference, b.created_at`

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
    var (
        b      model.Booking
        payRef sql.NullString
    )
    err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.BaseAmount, &b.BookingFeeAmount, &b.CouponDiscount,
        &b.TaxCGST, &b.TaxSGST, &b.TaxIGST, &b.TotalAmount, &b.Status, &payRef, &b.CreatedAt)
    if err != nil {
        return model.Booking{}, err
    }
    if payRef.Valid {
        pr := payRef.String
        b.PaymentReference = &pr
    }
    b.CreatedAt = b.CreatedAt.UTC()
    return b, nil
}

// ListByUser returns the user's bookings, newest first, without seats.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings b WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`,
        userID)
    if err != nil {
        return nil, translate(err, "query bookings")
    }
    defer rows.Close()
    bookings := []model.Booking{}
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, translate(err, "scan booking")
        }
        bookings = append(bookings, b)
    }
    return bookings, translate(rows.Err(), "iterate bookings")
}

// GetByIDForUser returns one booking of the user with its seats.  A
// booking of another user is reported as store.ErrNotFound.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID uint64, userID string) (model.Booking, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ? AND b.user_id = ?`,
        bookingID, userID)
    b, err := scanBooking(row)
    if err != nil {
        return model.Booking{}, translate(err, "query booking")
    }

    const sq = `SELECT bs.booking_id, bs.seat_id, s.seat_label, bs.price
                FROM booking_seats bs
                JOIN seats s ON s.id = bs.seat_id
                WHERE bs.booking_id = ?
                ORDER BY bs.seat_id`
    rows, err := r.db.QueryContext(ctx, sq, b.ID)
    if err != nil {
        return model.Booking{}, translate(err, "query booking seats")
    }
    defer rows.Close()
    for rows.Next() {
        var s model.BookingSeat
        if err := rows.Scan(&s.BookingID, &s.SeatID, &s.Label, &s.Price); err != nil {
            return model.Booking{}, translate(err, "scan booking seat")
        }
        b.Seats = append(b.Seats, s)
    }
    if err := rows.Err(); err != nil {
        return model.Booking{}, translate(err, "iterate booking seats")
    }
    return b, nil
}
