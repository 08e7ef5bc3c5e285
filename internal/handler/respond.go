package handler

import (
    "encoding/json"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/agritrace/internal/middleware"
    "github.com/iliyamo/agritrace/internal/service"
)

// statusFor maps a service error kind to its HTTP status.
func statusFor(k service.Kind) int {
    switch k {
    case service.KindValidation:
        return http.StatusBadRequest
    case service.KindInvalidCredentials, service.KindUnauthorized:
        return http.StatusUnauthorized
    case service.KindForbidden:
        return http.StatusForbidden
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindConflict:
        return http.StatusConflict
    }
    return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}.  Internal failures are logged
// and answered with a generic message.
func respondError(c echo.Context, err error) error {
    var se *service.Error
    if !errors.As(err, &se) || se.Kind == service.KindInternal {
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
    }
    body := echo.Map{"error": se.Message}
    if len(se.Fields) > 0 {
        body["fields"] = se.Fields
    }
    return c.JSON(statusFor(se.Kind), body)
}

func badBody(c echo.Context) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}

// identity returns the session identity or answers 401.
func identity(c echo.Context) (service.Identity, bool) {
    id, ok := middleware.IdentityFrom(c)
    return id, ok && id.UserID != ""
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// formValue is a request field that may arrive as a JSON string or number.
// Dashboards post form inputs as strings; API clients send numbers.
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
    s := strings.TrimSpace(string(b))
    switch {
    case s == "null":
        *v = ""
        return nil
    case strings.HasPrefix(s, `"`):
        var str string
        if err := json.Unmarshal(b, &str); err != nil {
            return err
        }
        *v = formValue(str)
        return nil
    }
    var n json.Number
    if err := json.Unmarshal(b, &n); err != nil {
        return err
    }
    *v = formValue(n.String())
    return nil
}

func (v formValue) String() string { return string(v) }
