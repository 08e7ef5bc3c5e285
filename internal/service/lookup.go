package service

import (
	"context"
	"log"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/agritrace/internal/model"
	"github.com/iliyamo/agritrace/internal/repository"
)

// Lookup is the public, read-only side of the ledger.
type Lookup struct {
	crops repository.CropStore
	cache RecordCache
}

// NewLookup wires a lookup service. cache may be nil.
func NewLookup(crops repository.CropStore, cache RecordCache) *Lookup {
	if cache == nil {
		cache = nopCache{}
	}
	return &Lookup{crops: crops, cache: cache}
}

// Resolve returns every record with cropID. An empty result is NotFound.
func (l *Lookup) Resolve(ctx context.Context, cropID string) ([]model.CropRecord, error) {
	ctx, span := tracer.Start(ctx, "Lookup.Service.Resolve")
	defer span.End()

	cropID = strings.TrimSpace(cropID)
	if cropID == "" {
		return nil, &Error{Kind: KindValidation, Message: "cropId is required", Fields: []string{"cropId"}}
	}
	span.SetAttributes(attribute.String("crop.id", cropID))

	if recs, ok, err := l.cache.Get(ctx, cropID); err != nil {
		log.Printf("lookup: cache get %s: %v", cropID, err)
	} else if ok && len(recs) > 0 {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return recs, nil
	}

	recs, err := l.crops.FindCrops(ctx, cropID)
	if err != nil {
		span.RecordError(err)
		return nil, internalError(errors.Wrap(err, "find crops"))
	}
	if len(recs) == 0 {
		return nil, newError(KindNotFound, "no crop found with this ID")
	}
	if err := l.cache.Set(ctx, cropID, recs); err != nil {
		log.Printf("lookup: cache set %s: %v", cropID, err)
	}
	return recs, nil
}

// Get returns the single record with cropID.
func (l *Lookup) Get(ctx context.Context, cropID string) (*model.CropRecord, error) {
	recs, err := l.Resolve(ctx, cropID)
	if err != nil {
		return nil, err
	}
	return &recs[0], nil
}
