package middleware

// identity.go holds the context keys set by Session and the accessors
// handlers and other middleware use to read them.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/agritrace/internal/service"
)

const (
    ctxIdentity = "identity"
    ctxUserID   = "user_id"
    ctxRole     = "role"
)

// IdentityFrom returns the identity stored by Session.
func IdentityFrom(c echo.Context) (service.Identity, bool) {
    id, ok := c.Get(ctxIdentity).(service.Identity)
    return id, ok
}

// currentUserID returns the authenticated user id, or "anon" on public
// routes.
func currentUserID(c echo.Context) string {
    if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
        return s
    }
    return "anon"
}
