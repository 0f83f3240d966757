package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-seat-booking/internal/apperr"
)

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err.  Typed errors expose their message and code;
// anything else is logged and reported as a generic persistence failure.
func respondError(c echo.Context, err error) error {
	ae := apperr.As(err)
	status := statusOf(ae.Kind)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, errorBody{Error: ae.Message, Code: ae.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg, Code: "VALIDATION_ERROR"})
}

func conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, errorBody{Error: msg, Code: "CONFLICT"})
}

func internalError(c echo.Context, err error, msg string) error {
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg(msg)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: msg, Code: apperr.ErrPersistence.Code})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// seatIDs converts the JSON seat list into ids.  Negative values are
// rejected here because they cannot be represented as ids; zero and
// empty lists are left to the services.
func seatIDs(raw []int64) ([]uint64, error) {
	out := make([]uint64, 0, len(raw))
	for _, v := range raw {
		if v < 0 {
			return nil, apperr.ErrInvalidSeatID
		}
		out = append(out, uint64(v))
	}
	return out, nil
}
