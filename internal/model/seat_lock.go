package model

import "time"

// SeatLock is a temporary, user-owned hold on a seat.  There is at most
// one row per (EventID, SeatID).  A lock whose LockedUntil is at or
// before the current time is treated as absent even though the row may
// still exist; rows are only removed when consumed into a booking or
// overwritten by the next acquirer.
type SeatLock struct {
    EventID     uint64
    SeatID      uint64
    UserID      string
    LockedUntil time.Time
}

// ActiveAt reports whether the lock still holds at now.
func (l SeatLock) ActiveAt(now time.Time) bool {
    return l.LockedUntil.After(now)
}
