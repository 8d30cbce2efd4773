// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/ticket-seat-locking/internal/handler"
	"github.com/iliyamo/ticket-seat-locking/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// /healthz and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler, gatherer prometheus.Gatherer) {
	e.GET("/healthz", health.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterPublic registers the availability views.  They need no token and
// sit behind the Redis response cache.
func RegisterPublic(e *echo.Echo, h *handler.AvailabilityHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/sessions/:id/availability", h.Session)
	g.GET("/ticket-types/:id/availability", h.TicketType)
}

// RegisterLocks registers the seat hold endpoints.  They require a token
// with the CUSTOMER or ADMIN role and are rate limited per owner and route.
func RegisterLocks(e *echo.Echo, h *handler.LockHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin),
		limiter,
	)
	g.POST("/sessions/:id/locks", h.Acquire)
	g.POST("/ticket-types/:id/auto-select", h.AutoSelect)
	g.DELETE("/locks/:lockId", h.Release)
	g.GET("/locks", h.List)
}

// RegisterStock registers the admin-only stock counter endpoints.
func RegisterStock(e *echo.Echo, h *handler.StockHandler, jwtSecret string) {
	g := e.Group(
		"/v1/ticket-types/:id/stock",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("", h.Get)
	g.PUT("", h.Set)
	g.POST("/increment", h.Increment)
	g.POST("/decrement", h.Decrement)
}
