package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
	"github.com/iliyamo/event-seat-booking/internal/model"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/store"
)

// CachePurger drops cached public responses.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// AdminHandler creates events, sections, seats and coupons.  Every
// operation runs in one transaction.
type AdminHandler struct {
	DB     *sql.DB
	Cache  CachePurger
	Logger zerolog.Logger
}

func NewAdminHandler(db *sql.DB, cache CachePurger, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{DB: db, Cache: cache, Logger: logger.With().Str("component", "admin").Logger()}
}

// errInvalid carries a validation message out of a transaction.
type errInvalid string

func (e errInvalid) Error() string { return string(e) }

// timeLayouts are accepted for eventDateTime and expiryAt.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func (h *AdminHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(context.WithoutCancel(ctx)); err != nil {
		h.Logger.Warn().Err(err).Msg("cache purge failed")
	}
}

type createEventReq struct {
	EventName     string `json:"eventName"`
	EventDateTime string `json:"eventDateTime"`
	VenueName     string `json:"venueName"`
	VenueState    string `json:"venueState"`
}

// CreateEvent handles POST /api/admin/events.  The venue is looked up by
// name and state and created when missing, in the same transaction as
// the event.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.EventName = strings.TrimSpace(req.EventName)
	req.VenueName = strings.TrimSpace(req.VenueName)
	req.VenueState = strings.ToUpper(strings.TrimSpace(req.VenueState))
	if req.EventName == "" || req.EventDateTime == "" || req.VenueName == "" || req.VenueState == "" {
		return badRequest(c, "eventName, eventDateTime, venueName and venueState are required")
	}
	startsAt, err := parseTime(req.EventDateTime)
	if err != nil {
		return badRequest(c, "eventDateTime must be an ISO-8601 date time")
	}

	ctx := c.Request().Context()
	ev := model.Event{Name: req.EventName, StartsAt: startsAt}
	err = repository.WithinTx(ctx, h.DB, func(tx *sql.Tx) error {
		events := repository.NewEventRepo(tx)
		venueID, err := events.FindOrCreateVenue(ctx, req.VenueName, req.VenueState)
		if err != nil {
			return err
		}
		ev.VenueID = venueID
		return events.Create(ctx, &ev)
	})
	if err != nil {
		return internalError(c, err, "Failed to create event")
	}
	h.purge(ctx)
	h.Logger.Info().Uint64("event_id", ev.ID).Uint64("venue_id", ev.VenueID).Msg("event created")
	return c.JSON(http.StatusCreated, echo.Map{
		"id":            ev.ID,
		"name":          ev.Name,
		"venueId":       ev.VenueID,
		"eventDateTime": ev.StartsAt,
	})
}

type createSectionReq struct {
	Name     string          `json:"name"`
	FeeType  string          `json:"feeType"`
	FeeValue decimal.Decimal `json:"feeValue"`
}

// CreateSection handles POST /api/admin/events/:id/sections.
func (h *AdminHandler) CreateSection(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req createSectionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sec := model.Section{
		EventID:  eventID,
		Name:     strings.TrimSpace(req.Name),
		FeeType:  model.FeeType(strings.ToUpper(strings.TrimSpace(req.FeeType))),
		FeeValue: req.FeeValue,
	}
	if sec.Name == "" {
		return badRequest(c, "name is required")
	}
	if !sec.FeeType.Valid() {
		return badRequest(c, "feeType must be FLAT or PERCENT")
	}
	if sec.FeeValue.IsNegative() {
		return badRequest(c, "feeValue must not be negative")
	}

	ctx := c.Request().Context()
	err = repository.WithinTx(ctx, h.DB, func(tx *sql.Tx) error {
		events := repository.NewEventRepo(tx)
		ok, err := events.Exists(ctx, eventID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrEventNotFound
		}
		return events.CreateSection(ctx, &sec)
	})
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrEventNotFound):
		return respondError(c, err)
	case errors.Is(err, store.ErrDuplicate):
		return conflict(c, "Section already exists for this event")
	default:
		return internalError(c, err, "Failed to create section")
	}
	return c.JSON(http.StatusCreated, sec)
}

type seatInput struct {
	Label     string          `json:"label"`
	SectionID uint64          `json:"sectionId"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

type createSeatsReq struct {
	Seats []seatInput `json:"seats"`
}

// CreateSeats handles POST /api/admin/events/:id/seats.  Every seat must
// reference a section of the event; the batch is all or nothing.
func (h *AdminHandler) CreateSeats(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req createSeatsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.Seats) == 0 {
		return badRequest(c, "seats must be a non-empty array")
	}
	seats := make([]model.Seat, 0, len(req.Seats))
	for i, in := range req.Seats {
		label := strings.TrimSpace(in.Label)
		if label == "" || in.SectionID == 0 {
			return badRequest(c, fmt.Sprintf("seats[%d]: label and sectionId are required", i))
		}
		if in.BasePrice.IsNegative() {
			return badRequest(c, fmt.Sprintf("seats[%d]: basePrice must not be negative", i))
		}
		seats = append(seats, model.Seat{EventID: eventID, SectionID: in.SectionID, Label: label, BasePrice: in.BasePrice, Status: model.SeatAvailable})
	}

	ctx := c.Request().Context()
	err = repository.WithinTx(ctx, h.DB, func(tx *sql.Tx) error {
		sections, err := repository.NewEventRepo(tx).SectionIDs(ctx, eventID)
		if err != nil {
			return err
		}
		for _, s := range seats {
			if !sections[s.SectionID] {
				return errInvalid(fmt.Sprintf("section %d does not belong to event %d", s.SectionID, eventID))
			}
		}
		return repository.NewSeatRepo(tx).CreateBulk(ctx, seats)
	})
	var inv errInvalid
	switch {
	case err == nil:
	case errors.As(err, &inv):
		return badRequest(c, inv.Error())
	case errors.Is(err, store.ErrDuplicate):
		return conflict(c, "Seat label already exists for this event")
	default:
		return internalError(c, err, "Failed to create seats")
	}
	h.Logger.Info().Uint64("event_id", eventID).Int("seats", len(seats)).Msg("seats created")
	return c.JSON(http.StatusCreated, echo.Map{"eventId": eventID, "created": len(seats)})
}

type createCouponReq struct {
	Code               string           `json:"code"`
	Description        string           `json:"description"`
	DiscountType       string           `json:"discountType"`
	DiscountValue      decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount  *decimal.Decimal `json:"maxDiscountAmount"`
	MinOrderValue      *decimal.Decimal `json:"minOrderValue"`
	ExpiryAt           string           `json:"expiryAt"`
	GlobalUsageLimit   *int             `json:"globalUsageLimit"`
	PerUserLimit       *int             `json:"perUserLimit"`
	ApplicableEventIDs []uint64         `json:"applicableEventIds"`
}

func (r createCouponReq) toModel() (model.Coupon, error) {
	cp := model.Coupon{
		Code:             strings.TrimSpace(r.Code),
		Description:      strings.TrimSpace(r.Description),
		DiscountType:     model.DiscountType(strings.ToUpper(strings.TrimSpace(r.DiscountType))),
		DiscountValue:    r.DiscountValue,
		MaxDiscount:      r.MaxDiscountAmount,
		MinOrderValue:    r.MinOrderValue,
		GlobalUsageLimit: r.GlobalUsageLimit,
		PerUserLimit:     r.PerUserLimit,
	}
	seen := map[uint64]bool{}
	for _, id := range r.ApplicableEventIDs {
		if id == 0 {
			return cp, errInvalid("applicableEventIds must contain positive integers")
		}
		if !seen[id] {
			seen[id] = true
			cp.EventIDs = append(cp.EventIDs, id)
		}
	}
	if !cp.DiscountType.Valid() {
		return cp, errInvalid("discountType must be FLAT or PERCENT")
	}
	if !cp.DiscountValue.IsPositive() {
		return cp, errInvalid("discountValue must be positive")
	}
	if cp.DiscountType == model.DiscountPercent && cp.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return cp, errInvalid("a PERCENT discountValue cannot exceed 100")
	}
	for _, d := range []*decimal.Decimal{cp.MaxDiscount, cp.MinOrderValue} {
		if d != nil && d.IsNegative() {
			return cp, errInvalid("maxDiscountAmount and minOrderValue must not be negative")
		}
	}
	for _, n := range []*int{cp.GlobalUsageLimit, cp.PerUserLimit} {
		if n != nil && *n < 1 {
			return cp, errInvalid("usage limits must be at least 1")
		}
	}
	if r.ExpiryAt == "" {
		return cp, errInvalid("expiryAt is required")
	}
	exp, err := parseTime(r.ExpiryAt)
	if err != nil {
		return cp, errInvalid("expiryAt must be an ISO-8601 date time")
	}
	cp.ExpiresAt = exp
	if cp.Code == "" {
		cp.Code = uuid.NewString()
	}
	return cp, nil
}

// CreateCoupon handles POST /api/admin/coupons.  A missing code is
// generated.  Applicable events are inserted with the coupon.
func (h *AdminHandler) CreateCoupon(c echo.Context) error {
	var req createCouponReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cp, err := req.toModel()
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	err = repository.WithinTx(ctx, h.DB, func(tx *sql.Tx) error {
		events := repository.NewEventRepo(tx)
		for _, id := range cp.EventIDs {
			ok, err := events.Exists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalid(fmt.Sprintf("event %d does not exist", id))
			}
		}
		return repository.NewCouponRepo(tx).Create(ctx, &cp)
	})
	var inv errInvalid
	switch {
	case err == nil:
	case errors.As(err, &inv):
		return badRequest(c, inv.Error())
	case errors.Is(err, store.ErrDuplicate):
		return conflict(c, "Coupon code already exists")
	default:
		return internalError(c, err, "Failed to create coupon")
	}
	h.Logger.Info().Uint64("coupon_id", cp.ID).Str("code", cp.Code).Msg("coupon created")
	return c.JSON(http.StatusCreated, cp)
}
