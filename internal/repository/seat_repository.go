package repository

import (
    "context"
    "time"

    "github.com/iliyamo/event-seat-booking/internal/model"
)

// SeatRepo encapsulates database operations for seats.
type SeatRepo struct {
    db DBTX
}

// NewSeatRepo constructs a SeatRepo given a DB handle or transaction.
func NewSeatRepo(db DBTX) *SeatRepo { return &SeatRepo{db: db} }

// ListPriced returns the requested seats of the event joined with the
// section carrying their booking fee.  Seats of other events are
// silently left out; the caller compares the row count.
func (r *SeatRepo) ListPriced(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.PricedSeat, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    in, args := inClause(seatIDs)
    q := `SELECT s.id, s.seat_label, s.base_price, sec.id, sec.name, sec.fee_type, sec.fee_value
          FROM seats s
          JOIN seat_sections sec ON sec.id = s.section_id
          WHERE s.event_id = ? AND s.id IN (` + in + `)
          ORDER BY s.id`
    rows, err := r.db.QueryContext(ctx, q, append([]interface{}{eventID}, args...)...)
    if err != nil {
        return nil, translate(err, "query priced seats")
    }
    defer rows.Close()
    var out []model.PricedSeat
    for rows.Next() {
        var ps model.PricedSeat
        if err := rows.Scan(&ps.SeatID, &ps.Label, &ps.BasePrice, &ps.SectionID, &ps.SectionName, &ps.FeeType, &ps.FeeValue); err != nil {
            return nil, translate(err, "scan priced seat")
        }
        out = append(out, ps)
    }
    return out, translate(rows.Err(), "iterate priced seats")
}

// MarkBooked moves the seats to BOOKED.  Seats never move back.
func (r *SeatRepo) MarkBooked(ctx context.Context, eventID uint64, seatIDs []uint64) error {
    if len(seatIDs) == 0 {
        return nil
    }
    in, args := inClause(seatIDs)
    _, err := r.db.ExecContext(ctx,
        `UPDATE seats SET status = 'BOOKED' WHERE event_id = ? AND id IN (`+in+`)`,
        append([]interface{}{eventID}, args...)...)
    return translate(err, "mark seats booked")
}

// SeatMap returns every seat of the event with its derived availability:
// BOOKED from the seat row, LOCKED when a lock row is still active at
// now, AVAILABLE otherwise.
func (r *SeatRepo) SeatMap(ctx context.Context, eventID uint64, now time.Time) ([]model.SeatView, error) {
    const q = `SELECT s.id, s.seat_label, sec.id, sec.name, s.base_price, s.status,
                      COALESCE(sl.locked_until > ?, 0)
               FROM seats s
               JOIN seat_sections sec ON sec.id = s.section_id
               LEFT JOIN seat_locks sl ON sl.event_id = s.event_id AND sl.seat_id = s.id
               WHERE s.event_id = ?
               ORDER BY s.id`
    rows, err := r.db.QueryContext(ctx, q, now.UTC(), eventID)
    if err != nil {
        return nil, translate(err, "query seat map")
    }
    defer rows.Close()
    views := []model.SeatView{}
    for rows.Next() {
        var (
            v      model.SeatView
            status string
            locked int
        )
        if err := rows.Scan(&v.ID, &v.Label, &v.SectionID, &v.SectionName, &v.BasePrice, &status, &locked); err != nil {
            return nil, translate(err, "scan seat map")
        }
        switch {
        case status == string(model.SeatBooked):
            v.Status = string(model.SeatBooked)
        case locked == 1:
            v.Status = "LOCKED"
        default:
            v.Status = string(model.SeatAvailable)
        }
        views = append(views, v)
    }
    return views, translate(rows.Err(), "iterate seat map")
}

// CreateBulk inserts seats in one statement.  Every seat must reference
// a section of the same event.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (event_id, section_id, seat_label, base_price, status) VALUES `
    args := make([]interface{}, 0, len(seats)*5)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?)"
        status := s.Status
        if status == "" {
            status = model.SeatAvailable
        }
        args = append(args, s.EventID, s.SectionID, s.Label, s.BasePrice, string(status))
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return translate(err, "insert seats")
}
