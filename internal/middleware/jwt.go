package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that verifies a Bearer token issued by
// the external identity provider and stores the caller's email in the
// context under "email".  Tokens are HS256-signed with secret; the email is
// taken from the "email" claim, falling back to "sub".
func JWTAuth(secret string) echo.MiddlewareFunc {
    parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims := jwt.MapClaims{}
            tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            email, _ := claims["email"].(string)
            if email == "" {
                email, _ = claims["sub"].(string)
            }
            email = strings.ToLower(strings.TrimSpace(email))
            if email == "" || !strings.Contains(email, "@") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            c.Set(ctxEmail, email)
            if name, ok := claims["name"].(string); ok {
                c.Set(ctxName, name)
            }
            if pic, ok := claims["picture"].(string); ok {
                c.Set(ctxPicture, pic)
            }
            return next(c)
        }
    }
}
