package repository

import (
    "context"

    "github.com/iliyamo/event-seat-booking/internal/model"
)

// SeatLockRepo provides access to the seat_locks table.  A row exists per
// (event, seat) at most, enforced by uq_seat_locks_event_seat; its
// locked_until column is compared against the application clock by the
// caller, never by the database, so expired rows simply linger until they
// are overwritten or consumed by a booking.
type SeatLockRepo struct {
    db DBTX
}

// NewSeatLockRepo returns a SeatLockRepo bound to db or a transaction.
func NewSeatLockRepo(db DBTX) *SeatLockRepo { return &SeatLockRepo{db: db} }

// CheckSeats reports which of seatIDs are not seats of the event and
// which are in a CONFIRMED booking of it, in a single read.
func (r *SeatLockRepo) CheckSeats(ctx context.Context, eventID uint64, seatIDs []uint64) (missing, booked []uint64, err error) {
    if len(seatIDs) == 0 {
        return nil, nil, nil
    }
    in, args := inClause(seatIDs)
    q := `SELECT s.id,
                 EXISTS(SELECT 1 FROM booking_seats bs
                        JOIN bookings b ON b.id = bs.booking_id
                        WHERE bs.seat_id = s.id AND b.event_id = s.event_id AND b.status = 'CONFIRMED') AS booked
          FROM seats s
          WHERE s.event_id = ? AND s.id IN (` + in + `)`
    rows, err := r.db.QueryContext(ctx, q, append([]interface{}{eventID}, args...)...)
    if err != nil {
        return nil, nil, translate(err, "query seat states")
    }
    defer rows.Close()
    found := make(map[uint64]bool, len(seatIDs))
    for rows.Next() {
        var (
            id       uint64
            isBooked bool
        )
        if err := rows.Scan(&id, &isBooked); err != nil {
            return nil, nil, translate(err, "scan seat state")
        }
        found[id] = true
        if isBooked {
            booked = append(booked, id)
        }
    }
    if err := rows.Err(); err != nil {
        return nil, nil, translate(err, "iterate seat states")
    }
    for _, id := range seatIDs {
        if !found[id] {
            missing = append(missing, id)
        }
    }
    return missing, booked, nil
}

// List returns the lock rows for the seats without locking them.
func (r *SeatLockRepo) List(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error) {
    return r.list(ctx, eventID, seatIDs, false)
}

// ListForUpdate returns the lock rows for the seats and keeps them
// exclusively locked until the surrounding transaction ends.  Concurrent
// callers touching the same seats queue behind each other here.
func (r *SeatLockRepo) ListForUpdate(ctx context.Context, eventID uint64, seatIDs []uint64) ([]model.SeatLock, error) {
    return r.list(ctx, eventID, seatIDs, true)
}

func (r *SeatLockRepo) list(ctx context.Context, eventID uint64, seatIDs []uint64, forUpdate bool) ([]model.SeatLock, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    in, args := inClause(seatIDs)
    q := `SELECT event_id, seat_id, user_id, locked_until
          FROM seat_locks
          WHERE event_id = ? AND seat_id IN (` + in + `)
          ORDER BY seat_id`
    if forUpdate {
        q += ` FOR UPDATE`
    }
    rows, err := r.db.QueryContext(ctx, q, append([]interface{}{eventID}, args...)...)
    if err != nil {
        return nil, translate(err, "query seat locks")
    }
    defer rows.Close()
    var locks []model.SeatLock
    for rows.Next() {
        var l model.SeatLock
        if err := rows.Scan(&l.EventID, &l.SeatID, &l.UserID, &l.LockedUntil); err != nil {
            return nil, translate(err, "scan seat lock")
        }
        l.LockedUntil = l.LockedUntil.UTC()
        locks = append(locks, l)
    }
    return locks, translate(rows.Err(), "iterate seat locks")
}

// Upsert inserts the lock row, or takes over the existing row for the
// same (event, seat) by overwriting its owner and expiry.
func (r *SeatLockRepo) Upsert(ctx context.Context, l model.SeatLock) error {
    const q = `INSERT INTO seat_locks (event_id, seat_id, user_id, locked_until)
               VALUES (?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE user_id = VALUES(user_id), locked_until = VALUES(locked_until)`
    _, err := r.db.ExecContext(ctx, q, l.EventID, l.SeatID, l.UserID, l.LockedUntil.UTC())
    return translate(err, "upsert seat lock")
}

// Delete removes the lock rows of the seats.
func (r *SeatLockRepo) Delete(ctx context.Context, eventID uint64, seatIDs []uint64) error {
    if len(seatIDs) == 0 {
        return nil
    }
    in, args := inClause(seatIDs)
    _, err := r.db.ExecContext(ctx,
        `DELETE FROM seat_locks WHERE event_id = ? AND seat_id IN (`+in+`)`,
        append([]interface{}{eventID}, args...)...)
    return translate(err, "delete seat locks")
}
