package handler

import (
    "context"  // provides context with cancellation for store calls
    "net/http" // HTTP status codes and primitives
    "time"     // timeouts and cookie expiry

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/agritrace/internal/middleware"
    "github.com/iliyamo/agritrace/internal/service"
)

// AuthHandler bundles dependencies for the /users endpoints.
type AuthHandler struct {
    Sessions     *service.SessionService
    CookieSecure bool
}

func NewAuthHandler(s *service.SessionService, cookieSecure bool) *AuthHandler {
    return &AuthHandler{Sessions: s, CookieSecure: cookieSecure}
}

// ----- DTOs -----

type signupReq struct {
    Username string    `json:"username"`
    Email    string    `json:"email"`
    Password string    `json:"password"`
    Role     string    `json:"role"` // farmer | distributor | retailer
    Number   formValue `json:"number"`
    Address  string    `json:"address"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

// Signup: create the account. No session is issued.
func (h *AuthHandler) Signup(c echo.Context) error {
    var req signupReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    _, err := h.Sessions.Signup(ctx, service.SignupInput{
        Username: req.Username,
        Email:    req.Email,
        Password: req.Password,
        Role:     req.Role,
        Number:   req.Number.String(),
        Address:  req.Address,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully"})
}

// Login: verify credentials and set the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Sessions.Issue(ctx, req.Email, req.Password)
    if err != nil {
        return respondError(c, err)
    }
    c.SetCookie(&http.Cookie{
        Name:     middleware.CookieName,
        Value:    sess.Token,
        Path:     "/",
        Expires:  sess.ExpiresAt,
        MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
        HttpOnly: true,
        Secure:   h.CookieSecure,
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(http.StatusOK, echo.Map{"message": "Login successful", "user": sess.User})
}

// Logout: expire the session cookie. Tokens are stateless, so nothing is
// revoked server-side.
func (h *AuthHandler) Logout(c echo.Context) error {
    c.SetCookie(&http.Cookie{
        Name:     middleware.CookieName,
        Value:    "",
        Path:     "/",
        Expires:  time.Unix(0, 0),
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.CookieSecure,
        SameSite: http.SameSiteLaxMode,
    })
    return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Read returns the authenticated user without the password hash.
func (h *AuthHandler) Read(c echo.Context) error {
    id, ok := identity(c)
    if !ok {
        return unauthorized(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Sessions.Me(ctx, id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"user": u})
}
