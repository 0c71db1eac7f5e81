package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ticket-marketplace/internal/middleware"
    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

// BookingHandler serves booking requests by users and booking decisions by
// vendors.
type BookingHandler struct {
    Bookings *repository.BookingRepo
    Tickets  *repository.TicketRepo
    Now      func() time.Time
}

func NewBookingHandler(bookings *repository.BookingRepo, tickets *repository.TicketRepo) *BookingHandler {
    if bookings == nil || tickets == nil {
        panic("nil repository passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings, Tickets: tickets, Now: func() time.Time { return time.Now().UTC() }}
}

type bookingReq struct {
    TicketID uint64 `json:"ticketId" validate:"required,gt=0"`
    Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// Create handles POST /bookings.  The ticket must be approved, visible and
// not yet departed, and must still have the requested seats.  Seats are not
// held here; availability is enforced again when the payment settles.
func (h *BookingHandler) Create(c echo.Context) error {
    var req bookingReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx := c.Request().Context()
    t, err := h.Tickets.GetByID(ctx, req.TicketID)
    if err != nil {
        return respondError(c, err)
    }
    if t.VerificationStatus != model.TicketApproved || t.Hidden {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    }
    if t.Departed(h.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket has already departed"})
    }
    if req.Quantity > t.Quantity {
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available", "available": t.Quantity})
    }
    b := &model.Booking{
        TicketID:    t.ID,
        UserEmail:   middleware.Email(c),
        VendorEmail: t.VendorEmail,
        Quantity:    req.Quantity,
        TotalPrice:  t.Price.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2),
        CreatedAt:   h.Now(),
    }
    if err := h.Bookings.Create(ctx, b); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// ListMine handles GET /bookings/mine.
func (h *BookingHandler) ListMine(c echo.Context) error {
    items, err := h.Bookings.ListByUser(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListVendor handles GET /vendor/bookings.
func (h *BookingHandler) ListVendor(c echo.Context) error {
    items, err := h.Bookings.ListByVendor(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *BookingHandler) decide(c echo.Context, status string) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Bookings.Decide(c.Request().Context(), id, middleware.Email(c), status); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// Accept handles PATCH /bookings/:id/accept.
func (h *BookingHandler) Accept(c echo.Context) error { return h.decide(c, model.BookingAccepted) }

// Reject handles PATCH /bookings/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error { return h.decide(c, model.BookingRejected) }
