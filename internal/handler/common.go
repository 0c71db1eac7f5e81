package handler // handler defines http handlers

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strconv"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-marketplace/internal/repository"
    "github.com/iliyamo/ticket-marketplace/internal/service"
)

// Validator adapts go-playground/validator to echo.Validator so handlers
// can call c.Validate on bound DTOs.
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// bindValid binds the request body into dst and validates it.  On failure
// it has already written a 400 and returns false.
func bindValid(c echo.Context, dst any) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(dst); err != nil {
        var ve validator.ValidationErrors
        if errors.As(err, &ve) && len(ve) > 0 {
            return false, c.JSON(http.StatusBadRequest, echo.Map{
                "error": "validation failed",
                "field": ve[0].Field(),
                "rule":  ve[0].Tag(),
            })
        }
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    return true, nil
}

// Purger drops cached public listings after a write that changes them.
type Purger interface {
    Purge(ctx context.Context) error
}

// purge is a no-op when caching is disabled.  A failed purge only means
// stale listings until the TTL runs out, so it is logged and ignored.
func purge(c echo.Context, p Purger) {
    if p == nil {
        return
    }
    if err := p.Purge(c.Request().Context()); err != nil {
        slog.Warn("cache purge failed", "path", c.Path(), "error", err)
    }
}

// pathID parses a positive numeric :id path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// respondError maps repository and service errors onto status codes.
// Unrecognised errors are logged and reported as 500 without detail.
func respondError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrInvalidSession),
        errors.Is(err, service.ErrInvalidMetadata),
        errors.Is(err, service.ErrInvalidBookingInfo),
        errors.Is(err, service.ErrPaymentNotCompleted),
        errors.Is(err, service.ErrExpiredBooking):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrBookingNotFound), errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrConflict),
        errors.Is(err, repository.ErrConflict),
        errors.Is(err, repository.ErrDuplicate):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrProviderUnavailable):
        slog.Warn("payment provider unavailable", "path", c.Path(), "error", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment provider unavailable"})
    }
    slog.Error("request failed", "path", c.Path(), "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
