package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoadBooking_Defaults(t *testing.T) {
	t.Setenv("SEAT_LOCK_TTL", "")
	t.Setenv("SEAT_LOCK_TTL_MINUTES", "")
	t.Setenv("TAX_RATE", "")
	t.Setenv("GST_RATE", "")
	t.Setenv("COMPANY_STATE", "")

	cfg := LoadBooking()
	assert.Equal(t, DefaultLockTTL, cfg.LockTTL)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.18")))
	assert.Empty(t, cfg.CompanyState)
}

func TestLoadBooking_ReadsEveryCall(t *testing.T) {
	t.Setenv("TAX_RATE", "0.12")
	t.Setenv("COMPANY_STATE", " KA ")
	t.Setenv("SEAT_LOCK_TTL", "90s")
	first := LoadBooking()
	assert.True(t, first.TaxRate.Equal(decimal.RequireFromString("0.12")))
	assert.Equal(t, "KA", first.CompanyState)
	assert.Equal(t, 90*time.Second, first.LockTTL)

	t.Setenv("TAX_RATE", "0.05")
	assert.True(t, LoadBooking().TaxRate.Equal(decimal.RequireFromString("0.05")))
}

func TestLoadBooking_LegacyNamesAndInvalidValues(t *testing.T) {
	t.Setenv("SEAT_LOCK_TTL", "")
	t.Setenv("SEAT_LOCK_TTL_MINUTES", "10")
	t.Setenv("TAX_RATE", "")
	t.Setenv("GST_RATE", "0.28")
	cfg := LoadBooking()
	assert.Equal(t, 10*time.Minute, cfg.LockTTL)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.28")))

	t.Setenv("SEAT_LOCK_TTL", "soon")
	t.Setenv("TAX_RATE", "-1")
	cfg = LoadBooking()
	assert.Equal(t, DefaultLockTTL, cfg.LockTTL)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.18")))
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}
