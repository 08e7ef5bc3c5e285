// Package repository contains data access logic separated from HTTP handlers.
// This file holds the MySQL crop ledger. A crop row carries the farmer
// group in NOT NULL columns and the distributor and retailer groups in
// nullable columns that stay NULL until the matching stage is recorded.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/agritrace/internal/model"
)

// cropRow mirrors the 'crops' table.
type cropRow struct {
	ID          uint64    `db:"id"`
	CropID      string    `db:"crop_id"`
	CropName    string    `db:"crop_name"`
	Quantity    float64   `db:"quantity"`
	Price       float64   `db:"price"`
	Location    string    `db:"location"`
	HarvestDate time.Time `db:"harvest_date"`
	ExpiryDate  time.Time `db:"expiry_date"`
	CreatedAt   time.Time `db:"created_at"`
	FarmerID    string    `db:"farmer_id"`

	DistributorID             sql.NullString  `db:"distributor_id"`
	DistributorPrice          sql.NullFloat64 `db:"distributor_price"`
	DistributorDate           sql.NullTime    `db:"distributor_date"`
	DistributorLocation       sql.NullString  `db:"distributor_location"`
	DistributorDeliveryName   sql.NullString  `db:"distributor_delivery_name"`
	DistributorPhone          sql.NullString  `db:"distributor_phone"`
	DistributorDeliveryNumber sql.NullInt64   `db:"distributor_delivery_number"`

	RetailerID       sql.NullString  `db:"retailer_id"`
	RetailerPrice    sql.NullFloat64 `db:"retailer_price"`
	RetailerDate     sql.NullTime    `db:"retailer_date"`
	RetailerLocation sql.NullString  `db:"retailer_location"`
}

func (r cropRow) toModel() model.CropRecord {
	c := model.CropRecord{
		CropID: r.CropID,
		FarmerGroup: model.FarmerGroup{
			CropName:    r.CropName,
			Quantity:    r.Quantity,
			Price:       r.Price,
			Location:    r.Location,
			HarvestDate: r.HarvestDate,
			ExpiryDate:  r.ExpiryDate,
			CreatedAt:   r.CreatedAt,
			FarmerID:    r.FarmerID,
		},
	}
	if r.DistributorID.Valid {
		c.DistributorGroup = &model.DistributorGroup{
			DistributorID:             r.DistributorID.String,
			DistributorPrice:          r.DistributorPrice.Float64,
			DistributorDate:           r.DistributorDate.Time,
			DistributorLocation:       r.DistributorLocation.String,
			DistributorDeliveryName:   r.DistributorDeliveryName.String,
			DistributorPhone:          r.DistributorPhone.String,
			DistributorDeliveryNumber: r.DistributorDeliveryNumber.Int64,
		}
	}
	if r.RetailerID.Valid {
		c.RetailerGroup = &model.RetailerGroup{
			RetailerID:       r.RetailerID.String,
			RetailerPrice:    r.RetailerPrice.Float64,
			RetailerDate:     r.RetailerDate.Time,
			RetailerLocation: r.RetailerLocation.String,
		}
	}
	return c
}

const cropColumns = `id, crop_id, crop_name, quantity, price, location, harvest_date, expiry_date, created_at, farmer_id,
	distributor_id, distributor_price, distributor_date, distributor_location, distributor_delivery_name,
	distributor_phone, distributor_delivery_number,
	retailer_id, retailer_price, retailer_date, retailer_location`

// CropRepo encapsulates all database queries related to crops.
type CropRepo struct {
	db *sqlx.DB
}

// NewCropRepo constructs a CropRepo with the provided DB handle.
func NewCropRepo(db *sqlx.DB) *CropRepo {
	return &CropRepo{db: db}
}

// CreateCrop inserts the farmer group of c.
func (r *CropRepo) CreateCrop(ctx context.Context, c *model.CropRecord) error {
	const q = `INSERT INTO crops (crop_id, crop_name, quantity, price, location, harvest_date, expiry_date, created_at, farmer_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, c.CropID, c.CropName, c.Quantity, c.Price, c.Location,
		c.HarvestDate, c.ExpiryDate, c.CreatedAt, c.FarmerID)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrCropExists
		}
		return err
	}
	return nil
}

// GetCrop fetches a crop by its external identifier.
func (r *CropRepo) GetCrop(ctx context.Context, cropID string) (*model.CropRecord, error) {
	var row cropRow
	if err := r.db.GetContext(ctx, &row, "SELECT "+cropColumns+" FROM crops WHERE crop_id = ?", cropID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := row.toModel()
	return &c, nil
}

// FindCrops returns all rows with the crop id ordered by insertion.
func (r *CropRepo) FindCrops(ctx context.Context, cropID string) ([]model.CropRecord, error) {
	return r.list(ctx, "SELECT "+cropColumns+" FROM crops WHERE crop_id = ? ORDER BY id", cropID)
}

// SetDistributor overwrites the distributor group of a crop. The DSN
// sets clientFoundRows so an identical resubmission still counts as a
// matched row.
func (r *CropRepo) SetDistributor(ctx context.Context, cropID string, g model.DistributorGroup) error {
	const q = `UPDATE crops
	           SET distributor_id = ?, distributor_price = ?, distributor_date = ?, distributor_location = ?,
	               distributor_delivery_name = ?, distributor_phone = ?, distributor_delivery_number = ?
	           WHERE crop_id = ?`
	res, err := r.db.ExecContext(ctx, q, g.DistributorID, g.DistributorPrice, g.DistributorDate, g.DistributorLocation,
		g.DistributorDeliveryName, g.DistributorPhone, g.DistributorDeliveryNumber, cropID)
	if err != nil {
		if _, dup := duplicateKey(err); dup {
			return ErrDeliveryNumberTaken
		}
		return err
	}
	return requireRow(res)
}

// SetRetailer overwrites the retailer group of a crop.
func (r *CropRepo) SetRetailer(ctx context.Context, cropID string, g model.RetailerGroup) error {
	const q = `UPDATE crops
	           SET retailer_id = ?, retailer_price = ?, retailer_date = ?, retailer_location = ?
	           WHERE crop_id = ?`
	res, err := r.db.ExecContext(ctx, q, g.RetailerID, g.RetailerPrice, g.RetailerDate, g.RetailerLocation, cropID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListByOwner returns the crops whose group g belongs to userID.
func (r *CropRepo) ListByOwner(ctx context.Context, g model.Group, userID string) ([]model.CropRecord, error) {
	col, err := ownerColumn(g)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, "SELECT "+cropColumns+" FROM crops WHERE "+col+" = ? ORDER BY id", userID)
}

func (r *CropRepo) list(ctx context.Context, q string, args ...any) ([]model.CropRecord, error) {
	var rows []cropRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.CropRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

// ownerColumn maps a group to the column holding its owner id.
func ownerColumn(g model.Group) (string, error) {
	switch g {
	case model.GroupFarmer:
		return "farmer_id", nil
	case model.GroupDistributor:
		return "distributor_id", nil
	case model.GroupRetailer:
		return "retailer_id", nil
	}
	return "", fmt.Errorf("unknown group %q", g)
}

func requireRow(res sql.Result) error {
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MySQLStore joins the MySQL user and crop repositories into a Store.
type MySQLStore struct {
	*UserRepo
	*CropRepo
	db *sqlx.DB
}

// NewMySQLStore wraps an open connection pool.
func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{UserRepo: NewUserRepo(db), CropRepo: NewCropRepo(db), db: db}
}

func (s *MySQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close releases the connection pool.
func (s *MySQLStore) Close() error { return s.db.Close() }
