package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/agritrace/internal/model"
)

// Redis stores records in a shared Redis instance.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, cropID string) ([]model.CropRecord, bool, error) {
	b, err := c.rdb.Get(ctx, key(c.prefix, cropID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	recs, err := decode(b)
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (c *Redis) Set(ctx context.Context, cropID string, recs []model.CropRecord) error {
	b, err := encode(recs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(c.prefix, cropID), b, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, cropID string) error {
	return c.rdb.Del(ctx, key(c.prefix, cropID)).Err()
}
