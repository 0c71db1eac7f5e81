package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/iliyamo/ticket-marketplace/internal/handler"
    "github.com/iliyamo/ticket-marketplace/internal/middleware"
    "github.com/iliyamo/ticket-marketplace/internal/model"
)

// Deps carries everything the route table needs.  Cache and the rate
// limiters may be pass-through middleware when Redis is not configured.
type Deps struct {
    JWTSecret    string
    Roles        middleware.RoleLookup
    Users        *handler.UserHandler
    Tickets      *handler.TicketHandler
    Bookings     *handler.BookingHandler
    Payments     *handler.PaymentHandler
    Ready        echo.HandlerFunc
    Cache        echo.MiddlewareFunc
    PaymentLimit echo.MiddlewareFunc
}

// RegisterRoutes registers probes and the metrics endpoint.  These never
// require authentication.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)
    if d.Ready != nil {
        e.GET("/readyz", d.Ready)
    }
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAll wires the whole API.
func RegisterAll(e *echo.Echo, d Deps) {
    RegisterRoutes(e, d)
    RegisterPublic(e, d)
    RegisterUser(e, d)
    RegisterVendor(e, d)
    RegisterAdmin(e, d)
}

// authed verifies the identity token only.  The role is resolved from the
// users table by the role-specific chains below.
func authed(d Deps) []echo.MiddlewareFunc {
    return []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret)}
}

func withRole(d Deps, roles ...string) []echo.MiddlewareFunc {
    return []echo.MiddlewareFunc{
        middleware.JWTAuth(d.JWTSecret),
        middleware.RequireRole(d.Roles, roles...),
    }
}

// RegisterPublic registers unauthenticated browse endpoints.  Listing
// responses go through the Redis response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
    var mw []echo.MiddlewareFunc
    if d.Cache != nil {
        mw = append(mw, d.Cache)
    }
    e.GET("/tickets/approved", d.Tickets.SearchApproved, mw...)
    e.GET("/tickets/advertised", d.Tickets.ListAdvertised, mw...)
}

// RegisterUser registers endpoints for any signed-in caller and for the
// "user" role.  Payment routes sit behind their own rate limit bucket.
func RegisterUser(e *echo.Echo, d Deps) {
    a := authed(d)
    e.POST("/users", d.Users.Login, a...)
    e.GET("/users/role/:email", d.Users.GetRole, a...)

    // any known user may view a ticket; visibility is checked in the handler
    e.GET("/tickets/:id", d.Tickets.Get, withRole(d, model.RoleUser, model.RoleVendor, model.RoleAdmin)...)

    u := withRole(d, model.RoleUser)
    e.POST("/bookings", d.Bookings.Create, u...)
    e.GET("/bookings/mine", d.Bookings.ListMine, u...)
    e.GET("/transactions/mine", d.Payments.MyTransactions, u...)

    pay := withRole(d, model.RoleUser)
    confirm := authed(d)
    if d.PaymentLimit != nil {
        pay = append(pay, d.PaymentLimit)
        confirm = append(confirm, d.PaymentLimit)
    }
    e.POST("/create-checkout-session", d.Payments.CreateCheckoutSession, pay...)

    // confirmation is also triggered by the success page for whoever is
    // signed in, so only authentication is required
    e.POST("/payment-success", d.Payments.PaymentSuccess, confirm...)
}
