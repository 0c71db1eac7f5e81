package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

// RoleLookup resolves the stored role of a user by email.
type RoleLookup interface {
    RoleByEmail(ctx context.Context, email string) (string, error)
}

// RequireRole returns a middleware that loads the caller's role from the
// users table and aborts with 403 unless it is one of roles.  Roles are
// never trusted from the token, so a promotion or demotion takes effect on
// the next request.  It must run after JWTAuth.
func RequireRole(users RoleLookup, roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            email := Email(c)
            if email == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            role, err := users.RoleByEmail(c.Request().Context(), email)
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role lookup failed"})
            }
            if !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            c.Set(ctxRole, role)
            return next(c)
        }
    }
}
