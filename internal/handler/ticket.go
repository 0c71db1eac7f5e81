package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/ticket-marketplace/internal/middleware"
    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

// TicketHandler serves vendor listing management, admin moderation and the
// public ticket listings.
type TicketHandler struct {
    Tickets *repository.TicketRepo
    Users   *repository.UserRepo
    Cache   Purger
}

func NewTicketHandler(tickets *repository.TicketRepo, users *repository.UserRepo, cache Purger) *TicketHandler {
    if tickets == nil || users == nil {
        panic("nil repository passed to NewTicketHandler")
    }
    return &TicketHandler{Tickets: tickets, Users: users, Cache: cache}
}

type ticketReq struct {
    Title         string          `json:"title" validate:"required,max=255"`
    From          string          `json:"from" validate:"required,max=255"`
    To            string          `json:"to" validate:"required,max=255"`
    TransportType string          `json:"transportType" validate:"required,oneof=bus train launch plane"`
    Price         decimal.Decimal `json:"price"`
    Quantity      int             `json:"quantity" validate:"gte=1"`
    DepartureAt   time.Time       `json:"departureAt" validate:"required"`
    Perks         []string        `json:"perks" validate:"max=20,dive,max=64"`
    Image         string          `json:"image" validate:"omitempty,url,max=1024"`
}

// Create handles POST /tickets.  New listings wait for admin approval.
// Vendors flagged as fraud cannot list.
func (h *TicketHandler) Create(c echo.Context) error {
    var req ticketReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    if !req.Price.IsPositive() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
    }
    if !req.DepartureAt.After(time.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "departure must be in the future"})
    }
    ctx := c.Request().Context()
    vendor, err := h.Users.GetByEmail(ctx, middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    if vendor.IsFraud {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "vendor is flagged as fraud"})
    }
    t := &model.Ticket{
        VendorEmail:   vendor.Email,
        VendorName:    vendor.Name,
        Title:         strings.TrimSpace(req.Title),
        Origin:        strings.TrimSpace(req.From),
        Destination:   strings.TrimSpace(req.To),
        TransportType: req.TransportType,
        Price:         req.Price.Round(2),
        Quantity:      req.Quantity,
        DepartureAt:   req.DepartureAt.UTC(),
        Perks:         strings.Join(req.Perks, ", "),
        ImageURL:      req.Image,
    }
    if err := h.Tickets.Create(ctx, t); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, t)
}

// ListMine handles GET /tickets/mine.
func (h *TicketHandler) ListMine(c echo.Context) error {
    items, err := h.Tickets.ListByVendor(c.Request().Context(), middleware.Email(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type ticketPatchReq struct {
    Title         *string          `json:"title" validate:"omitempty,min=1,max=255"`
    From          *string          `json:"from" validate:"omitempty,min=1,max=255"`
    To            *string          `json:"to" validate:"omitempty,min=1,max=255"`
    TransportType *string          `json:"transportType" validate:"omitempty,oneof=bus train launch plane"`
    Price         *decimal.Decimal `json:"price"`
    Quantity      *int             `json:"quantity" validate:"omitempty,gte=0"`
    DepartureAt   *time.Time       `json:"departureAt"`
    Perks         []string         `json:"perks" validate:"omitempty,max=20,dive,max=64"`
    Image         *string          `json:"image" validate:"omitempty,url,max=1024"`
}

// Update handles PATCH /tickets/:id for the owning vendor.
func (h *TicketHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req ticketPatchReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    if req.Price != nil && !req.Price.IsPositive() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
    }
    t, err := h.Tickets.UpdateByVendor(c.Request().Context(), id, middleware.Email(c), func(t *model.Ticket) {
        if req.Title != nil {
            t.Title = strings.TrimSpace(*req.Title)
        }
        if req.From != nil {
            t.Origin = strings.TrimSpace(*req.From)
        }
        if req.To != nil {
            t.Destination = strings.TrimSpace(*req.To)
        }
        if req.TransportType != nil {
            t.TransportType = *req.TransportType
        }
        if req.Price != nil {
            t.Price = req.Price.Round(2)
        }
        if req.Quantity != nil {
            t.Quantity = *req.Quantity
        }
        if req.DepartureAt != nil {
            t.DepartureAt = req.DepartureAt.UTC()
        }
        if req.Perks != nil {
            t.Perks = strings.Join(req.Perks, ", ")
        }
        if req.Image != nil {
            t.ImageURL = *req.Image
        }
    })
    if err != nil {
        return respondError(c, err)
    }
    purge(c, h.Cache)
    return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /tickets/:id for the owning vendor.
func (h *TicketHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Tickets.DeleteByVendor(c.Request().Context(), id, middleware.Email(c)); err != nil {
        return respondError(c, err)
    }
    purge(c, h.Cache)
    return c.NoContent(http.StatusNoContent)
}

// Get handles GET /tickets/:id.  Hidden or unapproved tickets are only
// visible to their vendor and to admins.
func (h *TicketHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    t, err := h.Tickets.GetByID(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    public := t.VerificationStatus == model.TicketApproved && !t.Hidden
    if !public && t.VendorEmail != middleware.Email(c) && middleware.Role(c) != model.RoleAdmin {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    }
    return c.JSON(http.StatusOK, t)
}

// ListAll handles GET /tickets for admins.
func (h *TicketHandler) ListAll(c echo.Context) error {
    items, err := h.Tickets.ListAll(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *TicketHandler) setVerification(c echo.Context, status string) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Tickets.SetVerification(c.Request().Context(), id, status); err != nil {
        return respondError(c, err)
    }
    purge(c, h.Cache)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "verificationStatus": status})
}

// Approve handles PATCH /approve-tickets/:id.
func (h *TicketHandler) Approve(c echo.Context) error { return h.setVerification(c, model.TicketApproved) }

// Reject handles PATCH /reject-tickets/:id.
func (h *TicketHandler) Reject(c echo.Context) error { return h.setVerification(c, model.TicketRejected) }

// ToggleAdvertise handles PATCH /admin/tickets/:id/advertise with body
// {"advertised": bool}.  At most model.MaxAdvertised tickets can be
// advertised; the request that would exceed that gets 409.
func (h *TicketHandler) ToggleAdvertise(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req struct {
        Advertised *bool `json:"advertised" validate:"required"`
    }
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    if err := h.Tickets.SetAdvertised(c.Request().Context(), id, *req.Advertised); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{
                "error": "ticket must be approved and at most " + strconv.Itoa(model.MaxAdvertised) + " tickets can be advertised",
            })
        }
        return respondError(c, err)
    }
    purge(c, h.Cache)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "advertised": *req.Advertised})
}

// ListAdvertised handles GET /tickets/advertised.
func (h *TicketHandler) ListAdvertised(c echo.Context) error {
    items, err := h.Tickets.ListAdvertised(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SearchApproved handles GET /tickets/approved.
// Query: from, to, transport, sort=price_asc|price_desc, page, page_size.
func (h *TicketHandler) SearchApproved(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    ps, _ := strconv.Atoi(c.QueryParam("page_size"))
    if ps < 1 {
        ps = 9
    }
    if ps > 100 {
        ps = 100
    }

    q := repository.TicketSearchQuery{
        From:      strings.TrimSpace(c.QueryParam("from")),
        To:        strings.TrimSpace(c.QueryParam("to")),
        Transport: strings.TrimSpace(c.QueryParam("transport")),
        Sort:      strings.TrimSpace(c.QueryParam("sort")),
        Page:      page,
        PageSize:  ps,
    }
    items, total, err := h.Tickets.SearchApproved(c.Request().Context(), q)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database_error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      page,
        "page_size": ps,
    })
}
