package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/iliyamo/agritrace/internal/model"
)

// Local is a per-process cache. It stores the encoded form so callers
// never share record pointers with the cache.
type Local struct {
	c      *gocache.Cache
	prefix string
}

func NewLocal(prefix string, ttl time.Duration) *Local {
	return &Local{c: gocache.New(ttl, 2*ttl), prefix: prefix}
}

func (l *Local) Get(_ context.Context, cropID string) ([]model.CropRecord, bool, error) {
	v, ok := l.c.Get(key(l.prefix, cropID))
	if !ok {
		return nil, false, nil
	}
	recs, err := decode(v.([]byte))
	if err != nil {
		return nil, false, err
	}
	return recs, true, nil
}

func (l *Local) Set(_ context.Context, cropID string, recs []model.CropRecord) error {
	b, err := encode(recs)
	if err != nil {
		return err
	}
	l.c.SetDefault(key(l.prefix, cropID), b)
	return nil
}

func (l *Local) Invalidate(_ context.Context, cropID string) error {
	l.c.Delete(key(l.prefix, cropID))
	return nil
}
