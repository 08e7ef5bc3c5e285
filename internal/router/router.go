package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/agritrace/internal/handler"
    "github.com/iliyamo/agritrace/internal/middleware"
    "github.com/iliyamo/agritrace/internal/model"
)

// Deps carries everything the routes need.  RateLimit guards the account
// routes and LookupLimit the public lookup; either may be nil, which
// disables that limit.
type Deps struct {
    Health      handler.Pinger
    Auth        *handler.AuthHandler
    Crops       *handler.CropHandler
    Lookup      *handler.LookupHandler
    Verifier    middleware.Verifier
    RateLimit   echo.MiddlewareFunc
    LookupLimit echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
    session := middleware.Session(d.Verifier)

    RegisterRoutes(e, d.Health)
    RegisterAuth(e, d.Auth, session, orPass(d.RateLimit))
    RegisterCrops(e, d.Crops, d.Lookup, session)
    RegisterPublic(e, d.Lookup, orPass(d.LookupLimit))
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
    if m == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return m
}

// RegisterRoutes registers routes that do not touch the domain.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the /users routes.  Signup, login and logout are
// public and rate limited; read needs a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session, limit echo.MiddlewareFunc) {
    g := e.Group("/users", limit)
    g.POST("/signup", a.Signup)
    g.POST("/login", a.Login)
    g.POST("/logout", a.Logout)
    g.GET("/read", a.Read, session)
}

// RegisterCrops registers the dashboard routes.  Every route needs a
// session; writes additionally need the role that owns the group.
func RegisterCrops(e *echo.Echo, h *handler.CropHandler, l *handler.LookupHandler, session echo.MiddlewareFunc) {
    g := e.Group("/crops")

    g.POST("/farmer/add", h.FarmerAdd, session, middleware.RequireRole(model.RoleFarmer))
    g.GET("/farmer/fetch", h.Fetch(model.GroupFarmer), session)

    g.PUT("/distributor/add", h.DistributorAdd, session, middleware.RequireRole(model.RoleDistributor))
    g.GET("/distributor/fetch", h.Fetch(model.GroupDistributor), session)

    g.PUT("/retailer/add", h.RetailerAdd, session, middleware.RequireRole(model.RoleRetailer))
    g.GET("/retailer/fetch", h.Fetch(model.GroupRetailer), session)

    g.GET("/new-id", l.NewID, session)
}

// RegisterPublic registers the unauthenticated lookup routes used by the
// consumer view and QR scanners.
func RegisterPublic(e *echo.Echo, l *handler.LookupHandler, limit echo.MiddlewareFunc) {
    e.GET("/crops/data/get", l.Get, limit)
    e.GET("/crops/qr", l.QR, limit)
}
