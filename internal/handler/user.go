package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-marketplace/internal/middleware"
    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

// UserHandler serves login bookkeeping and admin user management.
type UserHandler struct {
    Users *repository.UserRepo
    Cache Purger
    Now   func() time.Time
}

func NewUserHandler(users *repository.UserRepo, cache Purger) *UserHandler {
    if users == nil {
        panic("nil repository passed to NewUserHandler")
    }
    return &UserHandler{Users: users, Cache: cache, Now: func() time.Time { return time.Now().UTC() }}
}

type loginReq struct {
    Name     string `json:"name" validate:"max=255"`
    PhotoURL string `json:"photoURL" validate:"omitempty,url,max=1024"`
}

// Login handles POST /users.  It is called by the client after every
// sign-in with the identity provider: a first-time user is created with the
// "user" role, a known user only has last login refreshed.  The email always
// comes from the verified token, never from the body.
func (h *UserHandler) Login(c echo.Context) error {
    email := middleware.Email(c)
    if email == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req loginReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    name, pic := middleware.Profile(c)
    if req.Name != "" {
        name = req.Name
    }
    if req.PhotoURL != "" {
        pic = req.PhotoURL
    }
    u, created, err := h.Users.Upsert(c.Request().Context(), email, strings.TrimSpace(name), pic, h.Now())
    if err != nil {
        return respondError(c, err)
    }
    status := http.StatusOK
    if created {
        status = http.StatusCreated
    }
    return c.JSON(status, echo.Map{"user": u, "created": created})
}

// GetRole handles GET /users/role/:email.  Callers may read their own role;
// admins may read anyone's.
func (h *UserHandler) GetRole(c echo.Context) error {
    target := strings.ToLower(strings.TrimSpace(c.Param("email")))
    if target == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
    }
    caller := middleware.Email(c)
    ctx := c.Request().Context()
    if target != caller {
        role, err := h.Users.RoleByEmail(ctx, caller)
        if err != nil || role != model.RoleAdmin {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
    }
    u, err := h.Users.GetByEmail(ctx, target)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"role": u.Role, "isFraud": u.IsFraud})
}

// ListUsers handles GET /admin/users.
func (h *UserHandler) ListUsers(c echo.Context) error {
    users, err := h.Users.List(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": users})
}

type roleReq struct {
    Role string `json:"role" validate:"required,oneof=user vendor admin"`
}

// SetRole handles PATCH /admin/users/:id/role.
func (h *UserHandler) SetRole(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req roleReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx := c.Request().Context()
    if err := h.Users.SetRole(ctx, id, req.Role); err != nil {
        return respondError(c, err)
    }
    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, u)
}

// MarkFraud handles PATCH /admin/users/:id/fraud.  Only vendors can be
// flagged; their tickets are hidden from every public listing.
func (h *UserHandler) MarkFraud(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    u, err := h.Users.MarkFraud(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    purge(c, h.Cache)
    return c.JSON(http.StatusOK, u)
}
