package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/event-seat-booking/internal/store"
)

// Store is the MySQL implementation of store.Store.
type Store struct {
    db *sql.DB
}

// NewStore returns a Store on db.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Begin starts a transaction.  Read-only transactions are used for
// quotes; they take no row locks.
func (s *Store) Begin(ctx context.Context, readOnly bool) (store.Tx, error) {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
    if err != nil {
        return nil, translate(err, "begin")
    }
    return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
    tx *sql.Tx
}

func (t *sqlTx) Locks() store.SeatLocks   { return NewSeatLockRepo(t.tx) }
func (t *sqlTx) Seats() store.Seats       { return NewSeatRepo(t.tx) }
func (t *sqlTx) Events() store.Events     { return NewEventRepo(t.tx) }
func (t *sqlTx) Coupons() store.Coupons   { return NewCouponRepo(t.tx) }
func (t *sqlTx) Bookings() store.Bookings { return NewBookingRepo(t.tx) }

func (t *sqlTx) CouponsForUpdate() store.Coupons {
    return &CouponRepo{db: t.tx, forUpdate: true}
}

func (t *sqlTx) Commit() error { return translate(t.tx.Commit(), "commit") }

func (t *sqlTx) Rollback() error {
    err := t.tx.Rollback()
    if err == sql.ErrTxDone {
        return nil
    }
    return translate(err, "rollback")
}

// WithinTx runs fn in a read-write transaction on db, committing when fn
// returns nil.  It serves the admin writes that span several tables.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return translate(err, "begin")
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return translate(err, "commit")
    }
    committed = true
    return nil
}
