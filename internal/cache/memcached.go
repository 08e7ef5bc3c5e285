package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/iliyamo/agritrace/internal/model"
)

// Memcached stores records in memcached. The client has no context
// support; calls are bounded by the client timeout instead.
type Memcached struct {
	mc     *memcache.Client
	prefix string
	ttl    time.Duration
}

func NewMemcached(addr, prefix string, ttl time.Duration) *Memcached {
	mc := memcache.New(addr)
	mc.Timeout = 500 * time.Millisecond
	return &Memcached{mc: mc, prefix: prefix, ttl: ttl}
}

func (c *Memcached) Get(_ context.Context, cropID string) ([]model.CropRecord, bool, error) {
	it, err := c.mc.Get(key(c.prefix, cropID))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	recs, err := decode(it.Value)
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (c *Memcached) Set(_ context.Context, cropID string, recs []model.CropRecord) error {
	b, err := encode(recs)
	if err != nil {
		return err
	}
	secs := int32(c.ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	return c.mc.Set(&memcache.Item{Key: key(c.prefix, cropID), Value: b, Expiration: secs})
}

func (c *Memcached) Invalidate(_ context.Context, cropID string) error {
	err := c.mc.Delete(key(c.prefix, cropID))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Ping reports whether at least one server answers.
func (c *Memcached) Ping() error { return c.mc.Ping() }
