package middleware

// identity.go holds the context keys written by JWTAuth and RequireRole and
// the accessors handlers use to read them.

import "github.com/labstack/echo/v4"

const (
    ctxEmail   = "email"
    ctxName    = "name"
    ctxPicture = "picture"
    ctxRole    = "role"
)

// Email returns the verified caller email, or "" on unauthenticated routes.
func Email(c echo.Context) string {
    s, _ := c.Get(ctxEmail).(string)
    return s
}

// Profile returns the display name and picture claims, when present.
func Profile(c echo.Context) (name, picture string) {
    name, _ = c.Get(ctxName).(string)
    picture, _ = c.Get(ctxPicture).(string)
    return name, picture
}

// Role returns the role resolved by RequireRole.
func Role(c echo.Context) string {
    s, _ := c.Get(ctxRole).(string)
    return s
}

// identityKey identifies the caller for rate limiting; "anon" when the
// route is public.
func identityKey(c echo.Context) string {
    if e := Email(c); e != "" {
        return e
    }
    return "anon"
}
