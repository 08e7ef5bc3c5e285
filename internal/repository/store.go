package repository

import (
	"context"

	"github.com/iliyamo/agritrace/internal/model"
)

// UserStore persists accounts.
type UserStore interface {
	// CreateUser inserts u. Duplicate email or username yields
	// ErrEmailExists or ErrUsernameExists.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// CropStore is the crop ledger. Each Set* call writes one whole group
// in a single statement so a group is never partially applied.
type CropStore interface {
	// CreateCrop inserts the farmer group of c. A duplicate crop id
	// yields ErrCropExists.
	CreateCrop(ctx context.Context, c *model.CropRecord) error
	GetCrop(ctx context.Context, cropID string) (*model.CropRecord, error)
	// FindCrops returns every record with the crop id; given the unique
	// index the result has zero or one element.
	FindCrops(ctx context.Context, cropID string) ([]model.CropRecord, error)
	SetDistributor(ctx context.Context, cropID string, g model.DistributorGroup) error
	SetRetailer(ctx context.Context, cropID string, g model.RetailerGroup) error
	// ListByOwner returns the records whose group g is owned by userID,
	// in insertion order.
	ListByOwner(ctx context.Context, g model.Group, userID string) ([]model.CropRecord, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	CropStore
	// Ping checks that the backing database answers.
	Ping(ctx context.Context) error
	Close() error
}
