package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/agritrace/internal/model"
    "github.com/iliyamo/agritrace/internal/service"
)

// CropHandler serves the per-role dashboard endpoints under /crops.
type CropHandler struct {
    Gateway *service.Gateway
}

func NewCropHandler(g *service.Gateway) *CropHandler {
    return &CropHandler{Gateway: g}
}

type farmerAddReq struct {
    CropID      string    `json:"cropId"`
    CropName    string    `json:"cropName"`
    Quantity    formValue `json:"quantity"`
    Price       formValue `json:"price"`
    Location    string    `json:"location"`
    HarvestDate string    `json:"harvestDate"`
    ExpiryDate  string    `json:"expiryDate"`
}

type distributorAddReq struct {
    CropID                    string    `json:"cropId"`
    DistributorPrice          formValue `json:"distributorPrice"`
    DistributorDate           string    `json:"distributorDate"`
    DistributorLocation       string    `json:"distributorLocation"`
    DistributorDeliveryName   string    `json:"distributorDeliveryName"`
    DistributorPhone          formValue `json:"distributorPhone"`
    DistributorDeliveryNumber formValue `json:"distributorDeliveryNumber"`
}

type retailerAddReq struct {
    CropID           string    `json:"cropId"`
    RetailerPrice    formValue `json:"retailerPrice"`
    RetailerDate     string    `json:"retailerDate"`
    RetailerLocation string    `json:"retailerLocation"`
}

// FarmerAdd creates a crop owned by the caller.
func (h *CropHandler) FarmerAdd(c echo.Context) error {
    id, ok := identity(c)
    if !ok {
        return unauthorized(c)
    }
    var req farmerAddReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Gateway.Create(ctx, id, service.CropDraft{
        CropID:      req.CropID,
        CropName:    req.CropName,
        Quantity:    req.Quantity.String(),
        Price:       req.Price.String(),
        Location:    req.Location,
        HarvestDate: req.HarvestDate,
        ExpiryDate:  req.ExpiryDate,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "Crop added successfully", "crop": rec})
}

// DistributorAdd writes the distributor group of an existing crop.
func (h *CropHandler) DistributorAdd(c echo.Context) error {
    id, ok := identity(c)
    if !ok {
        return unauthorized(c)
    }
    var req distributorAddReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    _, err := h.Gateway.AmendAsDistributor(ctx, id, service.DistributorDraft{
        CropID:         req.CropID,
        Price:          req.DistributorPrice.String(),
        Date:           req.DistributorDate,
        Location:       req.DistributorLocation,
        DeliveryName:   req.DistributorDeliveryName,
        Phone:          req.DistributorPhone.String(),
        DeliveryNumber: req.DistributorDeliveryNumber.String(),
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Distributor details updated successfully"})
}

// RetailerAdd writes the retailer group of an existing crop.
func (h *CropHandler) RetailerAdd(c echo.Context) error {
    id, ok := identity(c)
    if !ok {
        return unauthorized(c)
    }
    var req retailerAddReq
    if err := c.Bind(&req); err != nil {
        return badBody(c)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    _, err := h.Gateway.AmendAsRetailer(ctx, id, service.RetailerDraft{
        CropID:   req.CropID,
        Price:    req.RetailerPrice.String(),
        Date:     req.RetailerDate,
        Location: req.RetailerLocation,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Retailer details updated successfully"})
}

// Fetch returns the handler listing the crops whose group g names the
// caller as owner.
func (h *CropHandler) Fetch(g model.Group) echo.HandlerFunc {
    return func(c echo.Context) error {
        id, ok := identity(c)
        if !ok {
            return unauthorized(c)
        }

        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        defer cancel()

        list, err := h.Gateway.ListByOwner(ctx, id, g)
        if err != nil {
            return respondError(c, err)
        }
        return c.JSON(http.StatusOK, echo.Map{"crops": list})
    }
}
