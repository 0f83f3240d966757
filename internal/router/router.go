// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/metrics"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/model"
)

// Deps is everything the routes need.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Redis     *redis.Client // nil disables rate limiting and caching
	Cache     *middleware.ResponseCache
	Logger    zerolog.Logger
	DB        handler.Pinger

	Auth     *handler.AuthHandler
	Events   *handler.EventHandler
	Bookings *handler.BookingHandler
	Admin    *handler.AdminHandler
}

// New returns an Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(metrics.HTTPMiddleware)
	if len(d.Cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     d.Cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	}

	health := handler.Health(d.DB)
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/health", health)
	registerAuth(api, d)
	registerPublic(api, d)
	registerBooking(api, d)
	registerAdmin(api, d)
	return e
}

// registerAuth mounts /api/auth.  Register, login, refresh and logout do
// not require an access token; /api/me does.
func registerAuth(api *echo.Group, d Deps) {
	g := api.Group("/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	api.GET("/me", d.Auth.Me, middleware.JWTAuth(d.Cfg.JWTSecret))
}

func registerPublic(api *echo.Group, d Deps) {
	api.GET("/events", d.Events.List, d.Cache.Middleware())
	api.GET("/events/:id/seats", d.Events.SeatMap)
}

// registerBooking mounts the authenticated booking flow behind the rate
// limiter.  Any role may book.
func registerBooking(api *echo.Group, d Deps) {
	// per route rather than a "" group, which would also answer unknown
	// /api paths with 401
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger),
	}
	api.POST("/lock-seats", d.Bookings.LockSeats, mw...)
	api.POST("/pricing/quote", d.Bookings.Quote, mw...)
	api.POST("/bookings/confirm", d.Bookings.Confirm, mw...)
	api.GET("/bookings", d.Bookings.ListMine, mw...)
	api.GET("/bookings/:id", d.Bookings.GetMine, mw...)
}

func registerAdmin(api *echo.Group, d Deps) {
	g := api.Group("/admin",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger),
	)
	g.POST("/events", d.Admin.CreateEvent)
	g.POST("/events/:id/sections", d.Admin.CreateSection)
	g.POST("/events/:id/seats", d.Admin.CreateSeats)
	g.POST("/coupons", d.Admin.CreateCoupon)
}
