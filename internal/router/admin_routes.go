package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-marketplace/internal/model"
)

// RegisterAdmin registers moderation endpoints.  All require the admin role.
func RegisterAdmin(e *echo.Echo, d Deps) {
    a := withRole(d, model.RoleAdmin)

    e.GET("/admin/users", d.Users.ListUsers, a...)
    e.PATCH("/admin/users/:id/role", d.Users.SetRole, a...)
    e.PATCH("/admin/users/:id/fraud", d.Users.MarkFraud, a...)

    e.GET("/tickets", d.Tickets.ListAll, a...)
    e.PATCH("/approve-tickets/:id", d.Tickets.Approve, a...)
    e.PATCH("/reject-tickets/:id", d.Tickets.Reject, a...)
    e.PATCH("/admin/tickets/:id/advertise", d.Tickets.ToggleAdvertise, a...)
}
