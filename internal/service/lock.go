package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/metrics"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// LockResult is returned by a successful Acquire.
type LockResult struct {
	EventID     uint64    `json:"eventId"`
	SeatIDs     []uint64  `json:"seatIds"`
	LockedUntil time.Time `json:"lockedUntil"`
}

// LockManager grants time-bounded, exclusive seat holds.
type LockManager struct {
	store    store.Store
	settings SettingsFunc
	now      Clock
	logger   zerolog.Logger
}

// NewLockManager returns a LockManager.
func NewLockManager(s store.Store, settings SettingsFunc, now Clock, logger zerolog.Logger) *LockManager {
	return &LockManager{store: s, settings: settings, now: now, logger: logger.With().Str("component", "seat-locks").Logger()}
}

// acquireAttempts bounds how often Acquire runs its transaction when
// MySQL aborts it with a deadlock or lock wait timeout.
const acquireAttempts = 3

// Acquire locks every seat for userID until now+hold, or none of them.  A
// hold of zero or less uses the configured default.  Seats the caller
// already holds are renewed; seats whose previous hold expired are taken
// over.
//
// Requests for disjoint seats can still deadlock on the gap locks of
// rows that do not exist yet, so an aborted transaction is retried.  A
// seat really held by someone else is refused on the retry by the owner
// check, not by contention.
func (m *LockManager) Acquire(ctx context.Context, eventID uint64, seatIDs []uint64, userID string, hold time.Duration) (LockResult, error) {
	ids, err := normalize(eventID, seatIDs, userID)
	if err != nil {
		metrics.SeatLockAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		return LockResult{}, err
	}
	if hold <= 0 {
		hold = m.settings().LockTTL
	}

	var res LockResult
	for attempt := 1; ; attempt++ {
		res, err = m.acquire(ctx, eventID, ids, userID, hold)
		if err == nil || !errors.Is(err, store.ErrLockContention) || attempt == acquireAttempts || ctx.Err() != nil {
			break
		}
		m.logger.Debug().Uint64("event_id", eventID).Str("user_id", userID).Int("attempt", attempt).
			Err(err).Msg("seat lock transaction aborted, retrying")
	}
	if err != nil {
		return LockResult{}, m.fail(err, eventID, userID)
	}

	metrics.SeatLockAttempts.WithLabelValues(metrics.OutcomeLocked).Inc()
	m.logger.Info().Uint64("event_id", eventID).Str("user_id", userID).
		Int("seats", len(ids)).Time("locked_until", res.LockedUntil).Msg("seats locked")
	return res, nil
}

// acquire runs one locking transaction over the normalized ids.
func (m *LockManager) acquire(ctx context.Context, eventID uint64, ids []uint64, userID string, hold time.Duration) (LockResult, error) {
	var res LockResult
	err := store.InTx(ctx, m.store, false, func(tx store.Tx) error {
		missing, booked, err := tx.Locks().CheckSeats(ctx, eventID, ids)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apperr.ErrSeatNotFound
		}
		if len(booked) > 0 {
			return apperr.ErrSeatAlreadyBooked
		}

		rows, err := tx.Locks().ListForUpdate(ctx, eventID, ids)
		if err != nil {
			return err
		}
		now := m.now()
		for _, row := range rows {
			if row.ActiveAt(now) && row.UserID != userID {
				return apperr.ErrSeatLockedByOther
			}
		}

		until := now.Add(hold).UTC().Truncate(time.Millisecond)
		for _, id := range ids {
			lock := model.SeatLock{EventID: eventID, SeatID: id, UserID: userID, LockedUntil: until}
			if err := tx.Locks().Upsert(ctx, lock); err != nil {
				return err
			}
		}
		res = LockResult{EventID: eventID, SeatIDs: ids, LockedUntil: until}
		return nil
	})
	return res, err
}

func (m *LockManager) fail(err error, eventID uint64, userID string) error {
	if errors.Is(err, store.ErrLockContention) {
		// another transaction holds or is inserting the same rows
		err = apperr.ErrSeatLockedByOther.Wrap(err)
	}
	err = apperr.Persistence(err)
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		metrics.SeatLockAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
		m.logger.Info().Uint64("event_id", eventID).Str("user_id", userID).Err(err).Msg("seat lock refused")
	case apperr.KindPersistence:
		metrics.SeatLockAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		m.logger.Error().Uint64("event_id", eventID).Str("user_id", userID).Err(err).Msg("seat lock failed")
	default:
		metrics.SeatLockAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	return err
}

// VerifyOwnership checks, without locking anything, that userID holds an
// unexpired lock on every seat.  It is advisory: the booking orchestrator
// repeats the check under an exclusive row lock.
func (m *LockManager) VerifyOwnership(ctx context.Context, eventID uint64, seatIDs []uint64, userID string) error {
	ids, err := normalize(eventID, seatIDs, userID)
	if err != nil {
		return err
	}
	err = store.InTx(ctx, m.store, true, func(tx store.Tx) error {
		return m.verify(ctx, tx, eventID, ids, userID, false)
	})
	return apperr.Persistence(err)
}

// verify reports LockMissing when a seat has no lock row and
// LockExpiredOrStolen when a row belongs to someone else or has expired.
// With exclusive set the rows stay locked until tx ends.
func (m *LockManager) verify(ctx context.Context, tx store.Tx, eventID uint64, ids []uint64, userID string, exclusive bool) error {
	var (
		rows []model.SeatLock
		err  error
	)
	if exclusive {
		rows, err = tx.Locks().ListForUpdate(ctx, eventID, ids)
	} else {
		rows, err = tx.Locks().List(ctx, eventID, ids)
	}
	if err != nil {
		return err
	}
	if len(rows) != len(ids) {
		return apperr.ErrLockMissing
	}
	now := m.now()
	for _, row := range rows {
		if row.UserID != userID || !row.ActiveAt(now) {
			return apperr.ErrLockExpiredOrStolen
		}
	}
	return nil
}
