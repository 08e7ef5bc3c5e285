package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    qrcode "github.com/skip2/go-qrcode"

    "github.com/iliyamo/agritrace/internal/service"
)

const (
    defaultQRSize = 256
    minQRSize     = 64
    maxQRSize     = 1024
)

// LookupHandler serves the public crop lookup and the QR helpers.
type LookupHandler struct {
    Lookup *service.Lookup
}

func NewLookupHandler(l *service.Lookup) *LookupHandler {
    return &LookupHandler{Lookup: l}
}

// Get resolves ?cropId= to the matching records.  No session is needed.
func (h *LookupHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    recs, err := h.Lookup.Resolve(ctx, c.QueryParam("cropId"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"crops": recs})
}

// QR renders the crop id of an existing record as a PNG QR code.
func (h *LookupHandler) QR(c echo.Context) error {
    size := defaultQRSize
    if s := c.QueryParam("size"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < minQRSize || n > maxQRSize {
            return c.JSON(http.StatusBadRequest, echo.Map{
                "error": "size must be between " + strconv.Itoa(minQRSize) + " and " + strconv.Itoa(maxQRSize),
            })
        }
        size = n
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Lookup.Get(ctx, c.QueryParam("cropId"))
    if err != nil {
        return respondError(c, err)
    }
    png, err := qrcode.Encode(rec.CropID, qrcode.Medium, size)
    if err != nil {
        return respondError(c, err)
    }
    return c.Blob(http.StatusOK, "image/png", png)
}

// NewID hands the farmer dashboard a fresh crop id to embed in a QR code.
func (h *LookupHandler) NewID(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"cropId": uuid.NewString()})
}
