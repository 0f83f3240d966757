package config

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
    "github.com/shopspring/decimal"
)

// DefaultLockTTL is how long a seat hold lasts when SEAT_LOCK_TTL is unset.
const DefaultLockTTL = 5 * time.Minute

var defaultTaxRate = decimal.RequireFromString("0.18")

// BookingConfig carries the inputs of the lock manager and the pricing
// engine.  It is read from the environment on every call so operators
// can change rates without a restart.
type BookingConfig struct {
    LockTTL      time.Duration   // default hold duration
    TaxRate      decimal.Decimal // full tax rate as a fraction, e.g. 0.18
    CompanyState string          // operator home jurisdiction; empty means "same as venue"
}

// LoadBooking reads SEAT_LOCK_TTL (or SEAT_LOCK_TTL_MINUTES), TAX_RATE
// (or GST_RATE) and COMPANY_STATE.  Invalid values fall back to the
// defaults with a warning.
func LoadBooking() BookingConfig {
    return BookingConfig{
        LockTTL:      lockTTL(),
        TaxRate:      taxRate(),
        CompanyState: strings.TrimSpace(os.Getenv("COMPANY_STATE")),
    }
}

func lockTTL() time.Duration {
    if v := os.Getenv("SEAT_LOCK_TTL"); v != "" {
        d, err := time.ParseDuration(v)
        if err == nil && d > 0 {
            return d
        }
        log.Warn().Str("value", v).Msg("config: invalid SEAT_LOCK_TTL, using default")
        return DefaultLockTTL
    }
    if v := os.Getenv("SEAT_LOCK_TTL_MINUTES"); v != "" {
        n, err := strconv.Atoi(v)
        if err == nil && n > 0 {
            return time.Duration(n) * time.Minute
        }
        log.Warn().Str("value", v).Msg("config: invalid SEAT_LOCK_TTL_MINUTES, using default")
    }
    return DefaultLockTTL
}

func taxRate() decimal.Decimal {
    v := os.Getenv("TAX_RATE")
    if v == "" {
        v = os.Getenv("GST_RATE")
    }
    if v == "" {
        return defaultTaxRate
    }
    r, err := decimal.NewFromString(v)
    if err != nil || r.IsNegative() {
        log.Warn().Str("value", v).Msg("config: invalid TAX_RATE, using default")
        return defaultTaxRate
    }
    return r
}
