package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is satisfied by the store.
type Pinger interface {
    Ping(ctx context.Context) error
}

// Health returns a health-check handler for load balancers.  It answers
// "ok" while the database responds and 503 otherwise.
func Health(db Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.Ping(ctx); err != nil {
            c.Logger().Warnf("healthz: %v", err)
            return c.String(http.StatusServiceUnavailable, "unavailable")
        }
        return c.String(http.StatusOK, "ok")
    }
}
