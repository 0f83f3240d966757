// Package service implements the booking flow: seat locks, coupon
// validation, pricing and booking confirmation.  Every operation runs in
// its own store transaction; the services keep no mutable state between
// calls, so any number of requests may run concurrently and all
// coordination happens in the database.
package service

import (
	"sort"
	"time"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/config"
)

// SettingsFunc returns the current booking settings.  It is called once
// per operation so configuration changes apply without a restart.
type SettingsFunc func() config.BookingConfig

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// normalize validates the common request fields and returns the seat ids
// deduplicated and sorted.  Sorted ids make concurrent transactions take
// row locks in the same order.
func normalize(eventID uint64, seatIDs []uint64, userID string) ([]uint64, error) {
	if eventID == 0 {
		return nil, apperr.ErrInvalidEvent
	}
	if userID == "" {
		return nil, apperr.ErrInvalidUser
	}
	return normalizeSeats(seatIDs)
}

func normalizeSeats(seatIDs []uint64) ([]uint64, error) {
	if len(seatIDs) == 0 {
		return nil, apperr.ErrEmptySeatSelection
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	out := make([]uint64, 0, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			return nil, apperr.ErrInvalidSeatID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
