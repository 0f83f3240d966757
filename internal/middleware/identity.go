package middleware

// identity.go holds the context keys JWTAuth fills and the accessors the
// handlers and the rate limiter read them with.

import "github.com/labstack/echo/v4"

const (
    userIDKey = "user_id"
    roleKey   = "role"
)

// UserID returns the authenticated user's id, or "" for anonymous
// requests.
func UserID(c echo.Context) string {
    s, _ := c.Get(userIDKey).(string)
    return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
    s, _ := c.Get(roleKey).(string)
    return s
}

// rateSubject is the user part of rate limit keys.
func rateSubject(c echo.Context) string {
    if id := UserID(c); id != "" {
        return id
    }
    return "anon"
}
