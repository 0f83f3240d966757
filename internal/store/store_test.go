package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/store"
	"github.com/iliyamo/event-seat-booking/internal/store/memstore"
)

func seeded() *memstore.Store {
	st := memstore.New()
	st.AddEvent(1, "KA")
	st.AddSection(model.Section{ID: 1, EventID: 1, Name: "Gold", FeeType: model.FeeFlat})
	st.AddSeat(model.Seat{ID: 1, EventID: 1, SectionID: 1, Label: "A1", BasePrice: decimal.NewFromInt(10)})
	return st
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	st := seeded()
	until := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.InTx(context.Background(), st, false, func(tx store.Tx) error {
		return tx.Locks().Upsert(context.Background(), model.SeatLock{EventID: 1, SeatID: 1, UserID: "u", LockedUntil: until})
	})
	require.NoError(t, err)

	l, ok := st.Lock(1, 1)
	require.True(t, ok)
	assert.Equal(t, "u", l.UserID)
	assert.Equal(t, 1, st.Commits)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	st := seeded()
	boom := errors.New("boom")

	err := store.InTx(context.Background(), st, false, func(tx store.Tx) error {
		if err := tx.Seats().MarkBooked(context.Background(), 1, []uint64{1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, model.SeatAvailable, st.Seat(1).Status)
	assert.Equal(t, 0, st.Commits)
}

func TestInTx_ReadOnlyDiscardsWrites(t *testing.T) {
	st := seeded()

	err := store.InTx(context.Background(), st, true, func(tx store.Tx) error {
		return tx.Seats().MarkBooked(context.Background(), 1, []uint64{1})
	})
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, st.Seat(1).Status)
}

func TestInTx_ReleasesStoreAfterFailure(t *testing.T) {
	st := seeded()
	_ = store.InTx(context.Background(), st, false, func(store.Tx) error { return errors.New("x") })

	done := make(chan struct{})
	go func() {
		_ = store.InTx(context.Background(), st, true, func(store.Tx) error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("transaction was not released")
	}
}

func TestBegin_HonoursCancelledContext(t *testing.T) {
	st := seeded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := st.Begin(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemstore_CheckSeats(t *testing.T) {
	st := seeded()
	err := store.InTx(context.Background(), st, false, func(tx store.Tx) error {
		b := &model.Booking{EventID: 1, UserID: "u", Status: model.BookingConfirmed}
		if err := tx.Bookings().Create(context.Background(), b); err != nil {
			return err
		}
		return tx.Bookings().CreateSeats(context.Background(), []model.BookingSeat{{BookingID: b.ID, SeatID: 1}})
	})
	require.NoError(t, err)

	_ = store.InTx(context.Background(), st, true, func(tx store.Tx) error {
		missing, booked, err := tx.Locks().CheckSeats(context.Background(), 1, []uint64{1, 2, 99})
		require.NoError(t, err)
		assert.Equal(t, []uint64{2, 99}, missing)
		assert.Equal(t, []uint64{1}, booked)
		return nil
	})
}
