package repository

import (
    "context"
    "database/sql"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/event-seat-booking/internal/model"
)

// CouponRepo provides access to coupons, coupon_events and the
// coupon_redemptions log.  Usage counts are always derived from the log.
//
// With forUpdate set the coupon row is read FOR UPDATE and the counts
// LOCK IN SHARE MODE, which MySQL 5.7 and 8.0 both accept.  Both are
// current reads: under REPEATABLE READ a plain read would see the
// snapshot taken by the transaction's first statement.
type CouponRepo struct {
    db        DBTX
    forUpdate bool
}

func (r *CouponRepo) suffix(lock string) string {
    if r.forUpdate {
        return " " + lock
    }
    return ""
}

// NewCouponRepo returns a CouponRepo bound to db or a transaction.
func NewCouponRepo(db DBTX) *CouponRepo { return &CouponRepo{db: db} }

// GetByCode loads a coupon by its exact code.  The applicable events are
// not loaded; use AppliesToEvent.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (model.Coupon, error) {
    const q = `SELECT id, code, description, discount_type, discount_value, max_discount_amount,
                      min_order_value, expiry_at, global_usage_limit, per_user_limit
               FROM coupons WHERE code = ? LIMIT 1`
    var (
        c           model.Coupon
        desc        sql.NullString
        maxDiscount decimal.NullDecimal
        minOrder    decimal.NullDecimal
        globalLimit sql.NullInt64
        userLimit   sql.NullInt64
    )
    err := r.db.QueryRowContext(ctx, q+r.suffix("FOR UPDATE"), code).Scan(
        &c.ID, &c.Code, &desc, &c.DiscountType, &c.DiscountValue, &maxDiscount,
        &minOrder, &c.ExpiresAt, &globalLimit, &userLimit,
    )
    if err != nil {
        return model.Coupon{}, translate(err, "query coupon")
    }
    c.Description = desc.String
    c.ExpiresAt = c.ExpiresAt.UTC()
    if maxDiscount.Valid {
        v := maxDiscount.Decimal
        c.MaxDiscount = &v
    }
    if minOrder.Valid {
        v := minOrder.Decimal
        c.MinOrderValue = &v
    }
    if globalLimit.Valid {
        v := int(globalLimit.Int64)
        c.GlobalUsageLimit = &v
    }
    if userLimit.Valid {
        v := int(userLimit.Int64)
        c.PerUserLimit = &v
    }
    return c, nil
}

// AppliesToEvent reports whether the coupon is mapped to the event.
func (r *CouponRepo) AppliesToEvent(ctx context.Context, couponID, eventID uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM coupon_events WHERE coupon_id = ? AND event_id = ?`,
        couponID, eventID).Scan(&n)
    if err != nil {
        return false, translate(err, "query coupon events")
    }
    return n > 0, nil
}

// CountRedemptions returns how many times the coupon has been redeemed.
func (r *CouponRepo) CountRedemptions(ctx context.Context, couponID uint64) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = ?`+r.suffix("LOCK IN SHARE MODE"), couponID).Scan(&n)
    if err != nil {
        return 0, translate(err, "count redemptions")
    }
    return n, nil
}

// CountUserRedemptions returns how many times userID redeemed the coupon.
func (r *CouponRepo) CountUserRedemptions(ctx context.Context, couponID uint64, userID string) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = ? AND user_id = ?`+r.suffix("LOCK IN SHARE MODE"),
        couponID, userID).Scan(&n)
    if err != nil {
        return 0, translate(err, "count user redemptions")
    }
    return n, nil
}

// InsertRedemption appends a row to the redemption log.
func (r *CouponRepo) InsertRedemption(ctx context.Context, red model.CouponRedemption) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO coupon_redemptions (coupon_id, user_id, booking_id) VALUES (?, ?, ?)`,
        red.CouponID, red.UserID, red.BookingID)
    return translate(err, "insert redemption")
}

// Create inserts the coupon and its coupon_events rows and sets c.ID.
// Run it inside a transaction so both commit together.  A taken code
// yields store.ErrDuplicate.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
    const q = `INSERT INTO coupons (code, description, discount_type, discount_value, max_discount_amount,
                                    min_order_value, expiry_at, global_usage_limit, per_user_limit)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var desc interface{}
    if c.Description != "" {
        desc = c.Description
    }
    res, err := r.db.ExecContext(ctx, q,
        c.Code, desc, string(c.DiscountType), c.DiscountValue, nullDecimal(c.MaxDiscount),
        nullDecimal(c.MinOrderValue), c.ExpiresAt.UTC(), nullInt(c.GlobalUsageLimit), nullInt(c.PerUserLimit),
    )
    if err != nil {
        return translate(err, "insert coupon")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return translate(err, "coupon id")
    }
    c.ID = uint64(id)
    if len(c.EventIDs) == 0 {
        return nil
    }
    query := `INSERT INTO coupon_events (coupon_id, event_id) VALUES `
    args := make([]interface{}, 0, len(c.EventIDs)*2)
    for i, eid := range c.EventIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?)"
        args = append(args, c.ID, eid)
    }
    _, err = r.db.ExecContext(ctx, query, args...)
    return translate(err, "insert coupon events")
}

func nullDecimal(d *decimal.Decimal) interface{} {
    if d == nil {
        return nil
    }
    return *d
}

func nullInt(n *int) interface{} {
    if n == nil {
        return nil
    }
    return *n
}
