package service

import (
	"context"

	"github.com/iliyamo/agritrace/internal/model"
	"github.com/iliyamo/agritrace/internal/queue"
)

// RecordCache holds lookup results keyed by crop id. Implementations live
// in internal/cache.
type RecordCache interface {
	Get(ctx context.Context, cropID string) ([]model.CropRecord, bool, error)
	Set(ctx context.Context, cropID string, records []model.CropRecord) error
	Invalidate(ctx context.Context, cropID string) error
}

// EventPublisher delivers stage events. Delivery is best effort.
type EventPublisher interface {
	PublishStageRecorded(ctx context.Context, ev queue.StageRecordedEvent) error
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]model.CropRecord, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, string, []model.CropRecord) error         { return nil }
func (nopCache) Invalidate(context.Context, string) error                      { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishStageRecorded(context.Context, queue.StageRecordedEvent) error { return nil }
