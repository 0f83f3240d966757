package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

func TestAcquire_LocksEverySeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.locks.Acquire(ctx, eventID, []uint64{2, 1, 2}, alice, 0)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2}, res.SeatIDs, "ids are deduplicated")
	assert.Equal(t, f.currentTime().Add(5*time.Minute), res.LockedUntil)
	for _, id := range []uint64{1, 2} {
		l, ok := f.st.Lock(eventID, id)
		require.True(t, ok)
		assert.Equal(t, alice, l.UserID)
		assert.Equal(t, res.LockedUntil, l.LockedUntil)
	}
}

func TestAcquire_ExplicitHoldAndConfiguredDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.locks.Acquire(ctx, eventID, []uint64{1}, alice, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, f.currentTime().Add(90*time.Second), res.LockedUntil)

	f.setConfig(func(c *config.BookingConfig) { c.LockTTL = 2 * time.Minute })
	res, err = f.locks.Acquire(ctx, eventID, []uint64{3}, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, f.currentTime().Add(2*time.Minute), res.LockedUntil)
}

func TestAcquire_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		eventID uint64
		seats   []uint64
		user    string
		want    error
	}{
		{"no seats", eventID, nil, alice, apperr.ErrEmptySeatSelection},
		{"no event", 0, []uint64{1}, alice, apperr.ErrInvalidEvent},
		{"no user", eventID, []uint64{1}, "", apperr.ErrInvalidUser},
		{"zero seat id", eventID, []uint64{1, 0}, alice, apperr.ErrInvalidSeatID},
		{"unknown seat", eventID, []uint64{1, 404}, alice, apperr.ErrSeatNotFound},
		{"seat of another event", eventID, []uint64{9}, alice, apperr.ErrSeatNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.locks.Acquire(ctx, tc.eventID, tc.seats, tc.user, 0)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	_, ok := f.st.Lock(eventID, 1)
	assert.False(t, ok, "rejected requests lock nothing")
}

func TestAcquire_ConflictLocksNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.locks.Acquire(ctx, eventID, []uint64{2}, bob, 0)
	require.NoError(t, err)

	_, err = f.locks.Acquire(ctx, eventID, []uint64{1, 2}, alice, 0)
	assert.ErrorIs(t, err, apperr.ErrSeatLockedByOther)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, ok := f.st.Lock(eventID, 1)
	assert.False(t, ok, "no partial locking")
	l, _ := f.st.Lock(eventID, 2)
	assert.Equal(t, bob, l.UserID)
}

func TestAcquire_TakesOverExpiredLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.st.PutLock(model.SeatLock{EventID: eventID, SeatID: 1, UserID: bob, LockedUntil: f.currentTime()})

	res, err := f.locks.Acquire(ctx, eventID, []uint64{1}, alice, 0)
	require.NoError(t, err)
	l, _ := f.st.Lock(eventID, 1)
	assert.Equal(t, alice, l.UserID)
	assert.Equal(t, res.LockedUntil, l.LockedUntil)
}

func TestAcquire_SameUserRenews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.locks.Acquire(ctx, eventID, []uint64{1, 2}, alice, 0)
	require.NoError(t, err)

	f.advance(3 * time.Minute)
	second, err := f.locks.Acquire(ctx, eventID, []uint64{1, 2}, alice, 0)
	require.NoError(t, err)

	assert.True(t, second.LockedUntil.After(first.LockedUntil))
	l, _ := f.st.Lock(eventID, 2)
	assert.Equal(t, second.LockedUntil, l.LockedUntil)
}

func TestAcquire_BookedSeatIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.locks.Acquire(ctx, eventID, []uint64{1}, alice, 0)
	require.NoError(t, err)
	_, err = f.bookings.Confirm(ctx, ConfirmRequest{EventID: eventID, SeatIDs: []uint64{1}, UserID: alice})
	require.NoError(t, err)

	_, err = f.locks.Acquire(ctx, eventID, []uint64{1}, bob, 0)
	assert.ErrorIs(t, err, apperr.ErrSeatAlreadyBooked)
}

func TestAcquire_LockContentionIsReportedAsConflict(t *testing.T) {
	f := newFixture(t)
	f.st.FailUpsert = fmt.Errorf("upsert: %w", store.ErrLockContention)

	_, err := f.locks.Acquire(context.Background(), eventID, []uint64{1}, alice, 0)
	assert.ErrorIs(t, err, apperr.ErrSeatLockedByOther)
}

func TestAcquire_RetriesAfterLockContention(t *testing.T) {
	f := newFixture(t)
	f.st.FailUpsert = fmt.Errorf("upsert: %w", store.ErrLockContention)
	f.st.FailUpsertTimes = 1

	res, err := f.locks.Acquire(context.Background(), eventID, []uint64{1, 2}, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
	for _, id := range []uint64{1, 2} {
		l, ok := f.st.Lock(eventID, id)
		require.True(t, ok)
		assert.Equal(t, alice, l.UserID)
	}
}

func TestAcquire_StorageFailureIsPersistenceError(t *testing.T) {
	f := newFixture(t)
	f.st.FailUpsert = errors.New("connection reset")

	_, err := f.locks.Acquire(context.Background(), eventID, []uint64{1}, alice, 0)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestAcquire_ContendedSeatHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const racers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		user := fmt.Sprintf("user-%02d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.locks.Acquire(ctx, eventID, []uint64{1}, user, 0)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, user)
				return
			}
			if errors.Is(err, apperr.ErrSeatLockedByOther) {
				losers++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, racers-1, losers)
	l, _ := f.st.Lock(eventID, 1)
	assert.Equal(t, winners[0], l.UserID)
}

func TestAcquire_DisjointSetsAllSucceed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.addSeats(100, 20)

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			_, errs[i] = f.locks.Acquire(ctx, eventID, []uint64{id}, fmt.Sprintf("user-%d", i), 0)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "seat %d", ids[i])
	}
}

func TestVerifyOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.locks.Acquire(ctx, eventID, []uint64{1, 2}, alice, 0)
	require.NoError(t, err)

	assert.NoError(t, f.locks.VerifyOwnership(ctx, eventID, []uint64{1, 2}, alice))
	assert.ErrorIs(t, f.locks.VerifyOwnership(ctx, eventID, []uint64{1, 2, 3}, alice), apperr.ErrLockMissing)
	assert.ErrorIs(t, f.locks.VerifyOwnership(ctx, eventID, []uint64{1}, bob), apperr.ErrLockExpiredOrStolen)

	f.advance(5 * time.Minute) // expiry == now counts as expired
	assert.ErrorIs(t, f.locks.VerifyOwnership(ctx, eventID, []uint64{1}, alice), apperr.ErrLockExpiredOrStolen)
	assert.Equal(t, 1, f.st.Commits, "verification never writes")
}
