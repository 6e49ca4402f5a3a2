// Package router wires the HTTP routes to their handlers and middleware.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/aquadapt/swimbook/internal/handler"
    "github.com/aquadapt/swimbook/internal/middleware"
    "github.com/aquadapt/swimbook/internal/model"
)

// Handlers groups everything the route table needs.
type Handlers struct {
    Auth     *handler.AuthHandler
    Sessions *handler.SessionHandler
    Admin    *handler.SessionAdminHandler
    Bookings *handler.BookingHandler
    Orders   *handler.PurchaseOrderHandler
    Swimmers *handler.SwimmerHandler
}

// Register builds the full route table.
//
// Layout:
//
//	/healthz                     – liveness, no auth
//	/v1/auth/*                   – register/login/refresh/logout
//	/v1/*                        – everything else, JWT required
//
// limiter is the rate-limit middleware.  It runs after JWTAuth on the
// authenticated group so bucket keys can include the user id; on the auth
// group it keys by ip alone.  cacheAvailability wraps only the availability
// listing; it is the one read-heavy endpoint whose staleness window is
// acceptable.
func Register(e *echo.Echo, h Handlers, jwtSecret string, limiter, cacheAvailability echo.MiddlewareFunc) {
    e.GET("/healthz", handler.Health)

    auth := e.Group("/v1/auth", limiter)
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)
    auth.POST("/refresh", h.Auth.Refresh)
    auth.POST("/logout", h.Auth.Logout)

    v1 := e.Group("/v1")
    v1.Use(middleware.JWTAuth(jwtSecret), limiter)

    v1.GET("/me", h.Auth.Me)

    // Availability browsing.  Cached because calendar renders hammer it.
    v1.GET("/sessions/available", h.Sessions.ListAvailable, cacheAvailability)

    // Hold and booking flow.
    book := v1.Group("", middleware.RequireCapability(model.CapBookSessions))
    book.POST("/sessions/:id/hold", h.Sessions.PlaceHold)
    book.DELETE("/sessions/:id/hold", h.Sessions.ReleaseHold)
    book.POST("/bookings", h.Bookings.Confirm)

    v1.GET("/my-bookings", h.Bookings.ListMine)
    v1.DELETE("/bookings/:id", h.Bookings.Cancel)

    // Swimmer management (parents).
    v1.POST("/swimmers", h.Swimmers.Create, middleware.RequireCapability(model.CapBookSessions))
    v1.GET("/swimmers", h.Swimmers.List)

    // Funding authorizations.  Creation is ownership-checked in the handler;
    // decisions require the approval capability.
    v1.POST("/purchase-orders", h.Orders.Create)
    v1.GET("/swimmers/:id/authorization", h.Orders.Balance)
    v1.GET("/swimmers/:id/purchase-orders", h.Orders.ListBySwimmer)
    decide := v1.Group("", middleware.RequireCapability(model.CapApproveAuthorizations))
    decide.POST("/purchase-orders/:id/approve", h.Orders.Approve)
    decide.POST("/purchase-orders/:id/decline", h.Orders.Decline)

    // Schedule management (staff).
    admin := v1.Group("/sessions", middleware.RequireCapability(model.CapManageSessions))
    admin.POST("/batch", h.Admin.CreateBatch)
    admin.POST("/:id/open", h.Admin.Open)
    admin.POST("/:id/cancel", h.Admin.Cancel)
    admin.POST("/:id/complete", h.Admin.Complete)
    admin.DELETE("/:id", h.Admin.Delete)
}
