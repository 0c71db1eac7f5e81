package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-marketplace/internal/model"
)

// RegisterVendor registers vendor-scoped endpoints.  Ownership of a ticket
// or booking is enforced in the repository, not here.
func RegisterVendor(e *echo.Echo, d Deps) {
    v := withRole(d, model.RoleVendor)

    // ---- Tickets ----
    e.POST("/tickets", d.Tickets.Create, v...)
    e.GET("/tickets/mine", d.Tickets.ListMine, v...)
    e.PATCH("/tickets/:id", d.Tickets.Update, v...)
    e.DELETE("/tickets/:id", d.Tickets.Delete, v...)

    // ---- Bookings ----
    e.GET("/vendor/bookings", d.Bookings.ListVendor, v...)
    e.PATCH("/bookings/:id/accept", d.Bookings.Accept, v...)
    e.PATCH("/bookings/:id/reject", d.Bookings.Reject, v...)

    // ---- Revenue ----
    e.GET("/vendor/revenue", d.Payments.VendorRevenue, v...)
}
