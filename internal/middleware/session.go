package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/agritrace/internal/service"
)

// CookieName is the http-only cookie holding the session token.
const CookieName = "token"

// Verifier validates a raw session token.
type Verifier interface {
    Verify(raw string) (service.Identity, error)
}

// Session returns an Echo middleware that authenticates the request from
// the session cookie, falling back to an "Authorization: Bearer" header
// for API clients.  On success the identity, user id and role are stored
// in the context; otherwise the request ends with 401.
func Session(v Verifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := v.Verify(tokenFrom(c))
            if err != nil {
                msg := "unauthorized"
                if se, ok := err.(*service.Error); ok {
                    msg = se.Message
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }
            c.Set(ctxIdentity, id)
            c.Set(ctxUserID, id.UserID)
            c.Set(ctxRole, string(id.Role))
            return next(c)
        }
    }
}

func tokenFrom(c echo.Context) string {
    if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
        return ck.Value
    }
    auth := c.Request().Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    return ""
}
