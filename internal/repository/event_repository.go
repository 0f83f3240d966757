package repository

import (
    "context"
    "database/sql"
    stderrors "errors"

    "github.com/iliyamo/event-seat-booking/internal/model"
)

// EventRepo provides access to venues, events and their seat sections.
type EventRepo struct {
    db DBTX
}

// NewEventRepo returns an EventRepo bound to db or a transaction.
func NewEventRepo(db DBTX) *EventRepo { return &EventRepo{db: db} }

// VenueState returns the state code of the event's venue, or
// store.ErrNotFound when the event does not exist.
func (r *EventRepo) VenueState(ctx context.Context, eventID uint64) (string, error) {
    const q = `SELECT v.state_code
               FROM events e
               JOIN venues v ON v.id = e.venue_id
               WHERE e.id = ?`
    var state string
    if err := r.db.QueryRowContext(ctx, q, eventID).Scan(&state); err != nil {
        return "", translate(err, "query venue state")
    }
    return state, nil
}

// List returns all events with their venue, soonest first.
func (r *EventRepo) List(ctx context.Context) ([]model.EventListing, error) {
    const q = `SELECT e.id, e.name, e.event_datetime, v.name, v.state_code
               FROM events e
               JOIN venues v ON v.id = e.venue_id
               ORDER BY e.event_datetime, e.id`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, translate(err, "query events")
    }
    defer rows.Close()
    events := []model.EventListing{}
    for rows.Next() {
        var e model.EventListing
        if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt, &e.VenueName, &e.VenueState); err != nil {
            return nil, translate(err, "scan event")
        }
        e.StartsAt = e.StartsAt.UTC()
        events = append(events, e)
    }
    return events, translate(rows.Err(), "iterate events")
}

// Exists reports whether the event exists.
func (r *EventRepo) Exists(ctx context.Context, eventID uint64) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one)
    if err != nil {
        if stderrors.Is(err, sql.ErrNoRows) {
            return false, nil
        }
        return false, translate(err, "query event")
    }
    return true, nil
}

// FindOrCreateVenue returns the id of the venue with the given name and
// state, inserting it when missing.  It must run inside a transaction so
// the venue and the event referencing it commit together.
func (r *EventRepo) FindOrCreateVenue(ctx context.Context, name, stateCode string) (uint64, error) {
    const sel = `SELECT id FROM venues WHERE name = ? AND state_code = ? LIMIT 1 FOR UPDATE`
    var id uint64
    err := r.db.QueryRowContext(ctx, sel, name, stateCode).Scan(&id)
    if err == nil {
        return id, nil
    }
    if !stderrors.Is(err, sql.ErrNoRows) {
        return 0, translate(err, "query venue")
    }
    res, err := r.db.ExecContext(ctx, `INSERT INTO venues (name, state_code) VALUES (?, ?)`, name, stateCode)
    if err != nil {
        return 0, translate(err, "insert venue")
    }
    lid, err := res.LastInsertId()
    if err != nil {
        return 0, translate(err, "venue id")
    }
    return uint64(lid), nil
}

// Create inserts the event and sets e.ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO events (name, event_datetime, venue_id) VALUES (?, ?, ?)`,
        e.Name, e.StartsAt.UTC(), e.VenueID)
    if err != nil {
        return translate(err, "insert event")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return translate(err, "event id")
    }
    e.ID = uint64(id)
    return nil
}

// CreateSection inserts the section and sets s.ID.  A duplicate name
// within the event yields store.ErrDuplicate.
func (r *EventRepo) CreateSection(ctx context.Context, s *model.Section) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO seat_sections (event_id, name, fee_type, fee_value) VALUES (?, ?, ?, ?)`,
        s.EventID, s.Name, string(s.FeeType), s.FeeValue)
    if err != nil {
        return translate(err, "insert section")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return translate(err, "section id")
    }
    s.ID = uint64(id)
    return nil
}

// SectionIDs returns the ids of the event's sections.
func (r *EventRepo) SectionIDs(ctx context.Context, eventID uint64) (map[uint64]bool, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT id FROM seat_sections WHERE event_id = ?`, eventID)
    if err != nil {
        return nil, translate(err, "query sections")
    }
    defer rows.Close()
    ids := map[uint64]bool{}
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, translate(err, "scan section")
        }
        ids[id] = true
    }
    return ids, translate(rows.Err(), "iterate sections")
}
