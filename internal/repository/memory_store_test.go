package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agritrace/internal/model"
)

func newCrop(id, farmer string) *model.CropRecord {
	return &model.CropRecord{
		CropID: id,
		FarmerGroup: model.FarmerGroup{
			CropName:    "Wheat",
			Quantity:    10,
			Price:       5,
			Location:    "X",
			HarvestDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:  time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:   time.Now().UTC(),
			FarmerID:    farmer,
		},
	}
}

func TestMemoryStoreUsers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &model.User{ID: "u1", Username: "alice", Email: " Alice@Example.com ", Role: model.RoleFarmer}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	err = s.CreateUser(ctx, &model.User{ID: "u2", Username: "other", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)

	err = s.CreateUser(ctx, &model.User{ID: "u3", Username: "alice", Email: "new@example.com"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCropLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateCrop(ctx, newCrop("C1", "farmer-1")))
	assert.ErrorIs(t, s.CreateCrop(ctx, newCrop("C1", "farmer-2")), ErrCropExists)

	dist := model.DistributorGroup{DistributorID: "dist-1", DistributorPrice: 7, DistributorDeliveryNumber: 42}
	require.NoError(t, s.SetDistributor(ctx, "C1", dist))
	assert.ErrorIs(t, s.SetDistributor(ctx, "nope", dist), ErrNotFound)

	// resubmitting the same delivery number on the same crop is allowed
	dist.DistributorPrice = 9
	require.NoError(t, s.SetDistributor(ctx, "C1", dist))

	got, err := s.GetCrop(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.DistributorPrice)
	assert.Equal(t, model.StageFarmerDistributor, got.Stage())

	// mutating the returned copy leaves the store untouched
	got.DistributorPrice = 100
	again, _ := s.GetCrop(ctx, "C1")
	assert.Equal(t, 9.0, again.DistributorPrice)

	require.NoError(t, s.CreateCrop(ctx, newCrop("C2", "farmer-1")))
	err = s.SetDistributor(ctx, "C2", model.DistributorGroup{DistributorID: "dist-2", DistributorDeliveryNumber: 42})
	assert.ErrorIs(t, err, ErrDeliveryNumberTaken)

	require.NoError(t, s.SetRetailer(ctx, "C1", model.RetailerGroup{RetailerID: "ret-1", RetailerPrice: 11}))
	got, _ = s.GetCrop(ctx, "C1")
	assert.Equal(t, model.StageComplete, got.Stage())
}

func TestMemoryStoreListByOwnerKeepsInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"B", "A", "C"} {
		require.NoError(t, s.CreateCrop(ctx, newCrop(id, "farmer-1")))
	}
	require.NoError(t, s.CreateCrop(ctx, newCrop("D", "farmer-2")))

	list, err := s.ListByOwner(ctx, model.GroupFarmer, "farmer-1")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.CropID)
	}
	assert.Equal(t, []string{"B", "A", "C"}, ids)

	none, err := s.ListByOwner(ctx, model.GroupDistributor, "farmer-1")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = s.ListByOwner(ctx, model.Group("admin"), "farmer-1")
	assert.Error(t, err)
}
