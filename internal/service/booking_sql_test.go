package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/repository"
)

var couponCols = []string{"id", "code", "description", "discount_type", "discount_value",
	"max_discount_amount", "min_order_value", "expiry_at", "global_usage_limit", "per_user_limit"}

// sqlServices wires the services onto the MySQL store backed by db.
func sqlServices(db *repository.Store, now time.Time) (*PricingEngine, *BookingOrchestrator) {
	clock := func() time.Time { return now }
	settings := func() config.BookingConfig {
		return config.BookingConfig{LockTTL: 5 * time.Minute, TaxRate: dec("0.18")}
	}
	locks := NewLockManager(db, settings, clock, zerolog.Nop())
	coupons := NewCouponValidator(clock)
	pricing := NewPricingEngine(db, coupons, settings)
	return pricing, NewBookingOrchestrator(db, locks, pricing, coupons, nil, clock, zerolog.Nop())
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestConfirm_LocksCouponRowForRedemption(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	_, bookings := sqlServices(repository.NewStore(db), now)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM seat_locks") + `.*` + q("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "seat_id", "user_id", "locked_until"}).
			AddRow(1, 1, alice, now.Add(time.Minute)))
	mock.ExpectQuery(q("FROM seats s")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_label", "base_price", "sec_id", "name", "fee_type", "fee_value"}).
			AddRow(1, "A1", "250.00", 1, "Gold", "FLAT", "50.00"))
	mock.ExpectQuery(q("FROM coupons WHERE code = ? LIMIT 1 FOR UPDATE")).WithArgs("FIRST").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow(3, "FIRST", nil, "FLAT", "20.00", nil, nil, now.Add(24*time.Hour), 1, 1))
	mock.ExpectQuery(q("FROM coupon_events")).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(q("FROM coupon_redemptions WHERE coupon_id = ? LOCK IN SHARE MODE")).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(q("FROM coupon_redemptions WHERE coupon_id = ? AND user_id = ? LOCK IN SHARE MODE")).
		WithArgs(uint64(3), alice).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(q("SELECT v.state_code")).WillReturnRows(sqlmock.NewRows([]string{"state_code"}).AddRow("KA"))
	mock.ExpectExec(q("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(q("INSERT INTO booking_seats")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE seats SET status = 'BOOKED'")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM seat_locks")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO coupon_redemptions")).WithArgs(uint64(3), alice, uint64(41)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	conf, err := bookings.Confirm(context.Background(),
		ConfirmRequest{EventID: eventID, SeatIDs: []uint64{1}, CouponCode: "FIRST", UserID: alice})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), conf.BookingID)
	// 250 + 50 fee - 20 coupon = 280, plus 25.2 + 25.2
	assert.Equal(t, "330.4", conf.Pricing.Breakdown.TotalAmount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuote_ReadsCouponWithoutLocking(t *testing.T) {
	locking := regexp.MustCompile(`FOR UPDATE|LOCK IN SHARE MODE`)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(func(expected, actual string) error {
		if locking.MatchString(actual) {
			return errors.New("unexpected locking read: " + actual)
		}
		if !strings.Contains(actual, expected) {
			return errors.New("query does not contain " + expected)
		}
		return nil
	})))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	pricing, _ := sqlServices(repository.NewStore(db), now)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM seats s").
		WillReturnRows(sqlmock.NewRows([]string{"id", "seat_label", "base_price", "sec_id", "name", "fee_type", "fee_value"}).
			AddRow(1, "A1", "250.00", 1, "Gold", "FLAT", "50.00"))
	mock.ExpectQuery("FROM coupons WHERE code = ?").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow(3, "FIRST", nil, "FLAT", "20.00", nil, nil, now.Add(24*time.Hour), 1, nil))
	mock.ExpectQuery("FROM coupon_events").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("FROM coupon_redemptions").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT v.state_code").WillReturnRows(sqlmock.NewRows([]string{"state_code"}).AddRow("KA"))
	mock.ExpectRollback()

	quote, err := pricing.Quote(context.Background(), eventID, []uint64{1}, "FIRST", alice)
	require.NoError(t, err)
	assert.Equal(t, "330.4", quote.Breakdown.TotalAmount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_RetriesDeadlockedTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	settings := func() config.BookingConfig { return config.BookingConfig{LockTTL: 5 * time.Minute} }
	locks := NewLockManager(repository.NewStore(db), settings, func() time.Time { return now }, zerolog.Nop())

	attempt := func() {
		mock.ExpectBegin()
		mock.ExpectQuery(q("FROM seats s")).WithArgs(eventID, uint64(1), uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "booked"}).AddRow(1, false).AddRow(2, false))
		mock.ExpectQuery(q("FROM seat_locks") + `.*` + q("FOR UPDATE")).
			WillReturnRows(sqlmock.NewRows([]string{"event_id", "seat_id", "user_id", "locked_until"}))
	}
	attempt()
	mock.ExpectExec(q("INSERT INTO seat_locks")).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()
	attempt()
	mock.ExpectExec(q("INSERT INTO seat_locks")).WithArgs(eventID, uint64(1), alice, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("INSERT INTO seat_locks")).WithArgs(eventID, uint64(2), alice, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	res, err := locks.Acquire(context.Background(), eventID, []uint64{2, 1}, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, res.SeatIDs)
	assert.Equal(t, now.Add(5*time.Minute), res.LockedUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_GivesUpAfterRepeatedDeadlocks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	settings := func() config.BookingConfig { return config.BookingConfig{LockTTL: 5 * time.Minute} }
	locks := NewLockManager(repository.NewStore(db), settings, func() time.Time { return now }, zerolog.Nop())

	for i := 0; i < acquireAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(q("FROM seats s")).WillReturnRows(sqlmock.NewRows([]string{"id", "booked"}).AddRow(1, false))
		mock.ExpectQuery(q("FROM seat_locks")).
			WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
		mock.ExpectRollback()
	}

	_, err = locks.Acquire(context.Background(), eventID, []uint64{1}, alice, 0)
	assert.ErrorIs(t, err, apperr.ErrSeatLockedByOther)
	assert.NoError(t, mock.ExpectationsWereMet())
}
