package model

import "time"

// Group names one role-owned set of attributes on a crop record.
type Group string

const (
    GroupFarmer      Group = "farmer"
    GroupDistributor Group = "distributor"
    GroupRetailer    Group = "retailer"
)

// Stage is the lifecycle state of a crop record, derived from which
// groups are populated.
type Stage string

const (
    StageFarmerOnly        Stage = "farmer-only"
    StageFarmerDistributor Stage = "farmer+distributor"
    StageFarmerRetailer    Stage = "farmer+retailer"
    StageComplete          Stage = "farmer+distributor+retailer"
)

// CropRecord is the shared supply-chain document for one crop.  The
// groups are embedded so the JSON form is flat, matching the field names
// the dashboards consume; nil groups are simply absent from the output.
type CropRecord struct {
    CropID string `json:"cropId"`
    FarmerGroup
    *DistributorGroup
    *RetailerGroup
}

// FarmerGroup is written once, when the farmer creates the record.
// FarmerID holds the user id; it keeps the historical JSON name.
type FarmerGroup struct {
    CropName    string    `json:"cropName"`
    Quantity    float64   `json:"quantity"`
    Price       float64   `json:"price"`
    Location    string    `json:"location"`
    HarvestDate time.Time `json:"harvestDate"`
    ExpiryDate  time.Time `json:"expiryDate"`
    CreatedAt   time.Time `json:"createdAt"`
    FarmerID    string    `json:"farmerUsername"`
}

// DistributorGroup is set (and overwritten) by the distributor amendment.
type DistributorGroup struct {
    DistributorID             string    `json:"distributorUsername"`
    DistributorPrice          float64   `json:"distributorPrice"`
    DistributorDate           time.Time `json:"distributorDate"`
    DistributorLocation       string    `json:"distributorLocation"`
    DistributorDeliveryName   string    `json:"distributorDeliveryName"`
    DistributorPhone          string    `json:"distributorPhone"`
    DistributorDeliveryNumber int64     `json:"distributorDeliveryNumber"`
}

// RetailerGroup is set (and overwritten) by the retailer amendment.
type RetailerGroup struct {
    RetailerID       string    `json:"retailerUsername"`
    RetailerPrice    float64   `json:"retailerPrice"`
    RetailerDate     time.Time `json:"retailerDate"`
    RetailerLocation string    `json:"retailerLocation"`
}

// Stage reports the lifecycle state of the record.
func (c *CropRecord) Stage() Stage {
    switch {
    case c.DistributorGroup != nil && c.RetailerGroup != nil:
        return StageComplete
    case c.DistributorGroup != nil:
        return StageFarmerDistributor
    case c.RetailerGroup != nil:
        return StageFarmerRetailer
    default:
        return StageFarmerOnly
    }
}

// Owner returns the user id that owns group g, or "" when the group is
// not populated.
func (c *CropRecord) Owner(g Group) string {
    switch g {
    case GroupFarmer:
        return c.FarmerID
    case GroupDistributor:
        if c.DistributorGroup != nil {
            return c.DistributorID
        }
    case GroupRetailer:
        if c.RetailerGroup != nil {
            return c.RetailerID
        }
    }
    return ""
}
