package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestIDHeader carries the correlation id of a request.  An incoming
// value is kept; otherwise a new UUID is generated.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request with zerolog and attaches a
// request scoped logger to the request context, so zerolog.Ctx(ctx)
// inside handlers and services carries the request id.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(RequestIDHeader)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, rid)

            l := logger.With().Str("request_id", rid).Logger()
            c.SetRequest(req.WithContext(l.WithContext(req.Context())))

            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo write the response so the status is final
                c.Error(err)
            }

            status := c.Response().Status
            ev := l.Info()
            switch {
            case status >= 500:
                ev = l.Error().Err(err)
            case status >= 400:
                ev = l.Warn()
            }
            ev.Str("method", req.Method).
                Str("path", c.Path()).
                Int("status", status).
                Dur("latency", time.Since(start)).
                Str("user_id", UserID(c)).
                Msg("request")
            return nil
        }
    }
}
