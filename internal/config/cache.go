package config

import (
    "strings"
    "time"
)

// Record cache backends understood by CACHE_BACKEND.
const (
    CacheRedis     = "redis"
    CacheMemcached = "memcached"
    CacheLocal     = "local"
    CacheNone      = "none"
)

// CacheConfig defines settings for the crop record cache used by the
// public lookup.  TTL bounds how long a looked-up record may be served
// from the cache; writes invalidate entries regardless of TTL.
type CacheConfig struct {
    Backend       string
    TTL           time.Duration
    Prefix        string
    MemcachedAddr string
}

func loadCache(src source) CacheConfig {
    cfg := CacheConfig{
        Backend:       strings.ToLower(src.str("CACHE_BACKEND", CacheLocal)),
        TTL:           src.duration("CACHE_TTL", 30*time.Second),
        Prefix:        src.str("CACHE_PREFIX", "crop"),
        MemcachedAddr: src.str("MEMCACHED_ADDR", "localhost:11211"),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Second
    }
    return cfg
}
