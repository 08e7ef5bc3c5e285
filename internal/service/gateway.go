package service

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/agritrace/internal/model"
	"github.com/iliyamo/agritrace/internal/queue"
	"github.com/iliyamo/agritrace/internal/repository"
)

var tracer = otel.Tracer("agritrace/service")

// CropDraft is the farmer's create payload before validation.
type CropDraft struct {
	CropID      string
	CropName    string
	Quantity    string
	Price       string
	Location    string
	HarvestDate string
	ExpiryDate  string
}

// DistributorDraft is the distributor amendment payload before validation.
type DistributorDraft struct {
	CropID         string
	Price          string
	Date           string
	Location       string
	DeliveryName   string
	Phone          string
	DeliveryNumber string
}

// RetailerDraft is the retailer amendment payload before validation.
type RetailerDraft struct {
	CropID   string
	Price    string
	Date     string
	Location string
}

// Gateway guards every write to the crop ledger: it resolves the actor,
// checks that the actor's role owns the group being written, validates
// the payload and only then touches the store.
type Gateway struct {
	users  repository.UserStore
	crops  repository.CropStore
	cache  RecordCache
	events EventPublisher
	now    func() time.Time
}

// NewGateway wires a gateway. cache and events may be nil.
func NewGateway(users repository.UserStore, crops repository.CropStore, cache RecordCache, events EventPublisher) *Gateway {
	if cache == nil {
		cache = nopCache{}
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &Gateway{
		users:  users,
		crops:  crops,
		cache:  cache,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// actor loads the user behind id and checks it may write group g.
func (g *Gateway) actor(ctx context.Context, id Identity, group model.Group) (*model.User, error) {
	if id.UserID == "" {
		return nil, newError(KindUnauthorized, "missing session")
	}
	u, err := g.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindUnauthorized, "session user no longer exists")
		}
		return nil, internalError(errors.Wrap(err, "get actor"))
	}
	if !u.Role.Valid() || u.Role.Group() != group {
		return nil, newError(KindForbidden, "only a "+string(group)+" may write the "+string(group)+" group")
	}
	return u, nil
}

// Create records a new crop owned by the acting farmer.
func (g *Gateway) Create(ctx context.Context, id Identity, in CropDraft) (*model.CropRecord, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Service.Create")
	defer span.End()

	u, err := g.actor(ctx, id, model.GroupFarmer)
	if err != nil {
		return nil, err
	}

	var f fieldSet
	rec := &model.CropRecord{
		CropID: f.text("cropId", in.CropID, maxCropID),
		FarmerGroup: model.FarmerGroup{
			CropName:    f.text("cropName", in.CropName, maxText),
			Quantity:    f.positive("quantity", in.Quantity),
			Price:       f.positive("price", in.Price),
			Location:    f.text("location", in.Location, maxText),
			HarvestDate: f.date("harvestDate", in.HarvestDate),
			ExpiryDate:  f.date("expiryDate", in.ExpiryDate),
			CreatedAt:   g.now(),
			FarmerID:    u.ID,
		},
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("crop.id", rec.CropID))

	if err := g.crops.CreateCrop(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrCropExists) {
			return nil, newError(KindConflict, "crop already exists")
		}
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "create crop"))
	}
	g.recorded(ctx, span, rec, model.GroupFarmer, u, rec.Price)
	return rec, nil
}

// AmendAsDistributor writes the distributor group of an existing crop.
// A second amendment replaces the first.
func (g *Gateway) AmendAsDistributor(ctx context.Context, id Identity, in DistributorDraft) (*model.CropRecord, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Service.AmendAsDistributor")
	defer span.End()

	u, err := g.actor(ctx, id, model.GroupDistributor)
	if err != nil {
		return nil, err
	}

	var f fieldSet
	cropID := f.text("cropId", in.CropID, maxCropID)
	group := model.DistributorGroup{
		DistributorID:             u.ID,
		DistributorPrice:          f.positive("distributorPrice", in.Price),
		DistributorDate:           f.date("distributorDate", in.Date),
		DistributorLocation:       f.text("distributorLocation", in.Location, maxText),
		DistributorDeliveryName:   f.text("distributorDeliveryName", in.DeliveryName, maxText),
		DistributorPhone:          f.text("distributorPhone", in.Phone, maxPhone),
		DistributorDeliveryNumber: f.integer("distributorDeliveryNumber", in.DeliveryNumber),
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("crop.id", cropID))

	if err := g.crops.SetDistributor(ctx, cropID, group); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, newError(KindNotFound, "crop not found")
		case errors.Is(err, repository.ErrDeliveryNumberTaken):
			return nil, newError(KindConflict, "delivery number already in use")
		}
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "set distributor group"))
	}
	return g.afterAmend(ctx, span, cropID, model.GroupDistributor, u, group.DistributorPrice)
}

// AmendAsRetailer writes the retailer group of an existing crop. The
// distributor group need not be present.
func (g *Gateway) AmendAsRetailer(ctx context.Context, id Identity, in RetailerDraft) (*model.CropRecord, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Service.AmendAsRetailer")
	defer span.End()

	u, err := g.actor(ctx, id, model.GroupRetailer)
	if err != nil {
		return nil, err
	}

	var f fieldSet
	cropID := f.text("cropId", in.CropID, maxCropID)
	group := model.RetailerGroup{
		RetailerID:       u.ID,
		RetailerPrice:    f.positive("retailerPrice", in.Price),
		RetailerDate:     f.date("retailerDate", in.Date),
		RetailerLocation: f.text("retailerLocation", in.Location, maxText),
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("crop.id", cropID))

	if err := g.crops.SetRetailer(ctx, cropID, group); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, "crop not found")
		}
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "set retailer group"))
	}
	return g.afterAmend(ctx, span, cropID, model.GroupRetailer, u, group.RetailerPrice)
}

// ListByOwner returns the crops whose group names the actor as owner,
// in insertion order. The list is never nil.
func (g *Gateway) ListByOwner(ctx context.Context, id Identity, group model.Group) ([]model.CropRecord, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Service.ListByOwner")
	defer span.End()

	if id.UserID == "" {
		return nil, newError(KindUnauthorized, "missing session")
	}
	list, err := g.crops.ListByOwner(ctx, group, id.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "list crops by owner"))
	}
	if list == nil {
		list = []model.CropRecord{}
	}
	return list, nil
}

func (g *Gateway) afterAmend(ctx context.Context, span trace.Span, cropID string, group model.Group, u *model.User, price float64) (*model.CropRecord, error) {
	rec, err := g.crops.GetCrop(ctx, cropID)
	if err != nil {
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "reload crop"))
	}
	g.recorded(ctx, span, rec, group, u, price)
	return rec, nil
}

// recorded drops the cached lookup and announces the write. Neither step
// fails the request.
func (g *Gateway) recorded(ctx context.Context, span trace.Span, rec *model.CropRecord, group model.Group, u *model.User, price float64) {
	if err := g.cache.Invalidate(ctx, rec.CropID); err != nil {
		log.Printf("gateway: cache invalidate %s: %v", rec.CropID, err)
	}
	ev := queue.StageRecordedEvent{
		CropID:     rec.CropID,
		Group:      string(group),
		ActorID:    u.ID,
		ActorName:  u.Username,
		Price:      price,
		Stage:      string(rec.Stage()),
		RecordedAt: g.now(),
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := g.events.PublishStageRecorded(pubCtx, ev); err != nil {
		span.RecordError(err)
		log.Printf("gateway: publish %s event for %s: %v", group, rec.CropID, err)
	}
}
