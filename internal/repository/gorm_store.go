package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/agritrace/internal/model"
)

// UserModel is the gorm mapping of the users table.
type UserModel struct {
	ID           string    `gorm:"primaryKey;type:char(36)"`
	Username     string    `gorm:"uniqueIndex;size:64;not null"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(16);not null"`
	Phone        string    `gorm:"size:32;not null"`
	Address      string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// CropModel is the gorm mapping of the crops table. Nullable columns
// hold the distributor and retailer groups.
type CropModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	CropID      string    `gorm:"uniqueIndex;size:128;not null"`
	CropName    string    `gorm:"size:255;not null"`
	Quantity    float64   `gorm:"not null"`
	Price       float64   `gorm:"not null"`
	Location    string    `gorm:"size:255;not null"`
	HarvestDate time.Time `gorm:"not null"`
	ExpiryDate  time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	FarmerID    string    `gorm:"type:char(36);index;not null"`

	DistributorID             *string `gorm:"type:char(36);index"`
	DistributorPrice          *float64
	DistributorDate           *time.Time
	DistributorLocation       *string `gorm:"size:255"`
	DistributorDeliveryName   *string `gorm:"size:255"`
	DistributorPhone          *string `gorm:"size:32"`
	DistributorDeliveryNumber *int64  `gorm:"uniqueIndex"`

	RetailerID       *string `gorm:"type:char(36);index"`
	RetailerPrice    *float64
	RetailerDate     *time.Time
	RetailerLocation *string `gorm:"size:255"`
}

func (CropModel) TableName() string { return "crops" }

func (m CropModel) toDomain() model.CropRecord {
	c := model.CropRecord{
		CropID: m.CropID,
		FarmerGroup: model.FarmerGroup{
			CropName:    m.CropName,
			Quantity:    m.Quantity,
			Price:       m.Price,
			Location:    m.Location,
			HarvestDate: m.HarvestDate.UTC(),
			ExpiryDate:  m.ExpiryDate.UTC(),
			CreatedAt:   m.CreatedAt.UTC(),
			FarmerID:    m.FarmerID,
		},
	}
	if m.DistributorID != nil {
		c.DistributorGroup = &model.DistributorGroup{
			DistributorID:             *m.DistributorID,
			DistributorPrice:          deref(m.DistributorPrice),
			DistributorDate:           deref(m.DistributorDate).UTC(),
			DistributorLocation:       deref(m.DistributorLocation),
			DistributorDeliveryName:   deref(m.DistributorDeliveryName),
			DistributorPhone:          deref(m.DistributorPhone),
			DistributorDeliveryNumber: deref(m.DistributorDeliveryNumber),
		}
	}
	if m.RetailerID != nil {
		c.RetailerGroup = &model.RetailerGroup{
			RetailerID:       *m.RetailerID,
			RetailerPrice:    deref(m.RetailerPrice),
			RetailerDate:     deref(m.RetailerDate).UTC(),
			RetailerLocation: deref(m.RetailerLocation),
		}
	}
	return c
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// GormStore is the Postgres-backed Store. The *gorm.DB must be opened
// with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the users and crops tables.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&UserModel{}, &CropModel{})
}

func (s *GormStore) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	row := UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Phone:        u.Number,
		Address:      u.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("email = ?", row.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailExists
		}
		if err := tx.Model(&UserModel{}).Where("username = ?", row.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameExists
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a race with a concurrent signup; the translated error no
		// longer names the constraint
		return s.takenBy(ctx, row.Email, row.Username, err)
	}
	if err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// takenBy reports which unique user column now holds email or username,
// or returns cause when neither does.
func (s *GormStore) takenBy(ctx context.Context, email, username string, cause error) error {
	var count int64
	db := s.db.WithContext(ctx).Model(&UserModel{})
	if err := db.Where("email = ?", email).Count(&count).Error; err == nil && count > 0 {
		return ErrEmailExists
	}
	db = s.db.WithContext(ctx).Model(&UserModel{})
	if err := db.Where("username = ?", username).Count(&count).Error; err == nil && count > 0 {
		return ErrUsernameExists
	}
	return cause
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *GormStore) getUser(ctx context.Context, cond string, arg any) (*model.User, error) {
	var row UserModel
	if err := s.db.WithContext(ctx).Where(cond, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         model.Role(row.Role),
		Number:       row.Phone,
		Address:      row.Address,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func (s *GormStore) CreateCrop(ctx context.Context, c *model.CropRecord) error {
	row := CropModel{
		CropID:      c.CropID,
		CropName:    c.CropName,
		Quantity:    c.Quantity,
		Price:       c.Price,
		Location:    c.Location,
		HarvestDate: c.HarvestDate,
		ExpiryDate:  c.ExpiryDate,
		CreatedAt:   c.CreatedAt,
		FarmerID:    c.FarmerID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCropExists
		}
		return err
	}
	return nil
}

func (s *GormStore) GetCrop(ctx context.Context, cropID string) (*model.CropRecord, error) {
	var row CropModel
	if err := s.db.WithContext(ctx).Where("crop_id = ?", cropID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

func (s *GormStore) FindCrops(ctx context.Context, cropID string) ([]model.CropRecord, error) {
	return s.list(ctx, "crop_id = ?", cropID)
}

func (s *GormStore) SetDistributor(ctx context.Context, cropID string, g model.DistributorGroup) error {
	return s.update(ctx, cropID, map[string]any{
		"distributor_id":              g.DistributorID,
		"distributor_price":           g.DistributorPrice,
		"distributor_date":            g.DistributorDate,
		"distributor_location":        g.DistributorLocation,
		"distributor_delivery_name":   g.DistributorDeliveryName,
		"distributor_phone":           g.DistributorPhone,
		"distributor_delivery_number": g.DistributorDeliveryNumber,
	})
}

func (s *GormStore) SetRetailer(ctx context.Context, cropID string, g model.RetailerGroup) error {
	return s.update(ctx, cropID, map[string]any{
		"retailer_id":       g.RetailerID,
		"retailer_price":    g.RetailerPrice,
		"retailer_date":     g.RetailerDate,
		"retailer_location": g.RetailerLocation,
	})
}

func (s *GormStore) update(ctx context.Context, cropID string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&CropModel{}).Where("crop_id = ?", cropID).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDeliveryNumberTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, g model.Group, userID string) ([]model.CropRecord, error) {
	col, err := ownerColumn(g)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, col+" = ?", userID)
}

func (s *GormStore) list(ctx context.Context, cond string, arg any) ([]model.CropRecord, error) {
	var rows []CropModel
	if err := s.db.WithContext(ctx).Where(cond, arg).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.CropRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
