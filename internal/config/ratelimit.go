package config

import "time"

// RateLimitConfig controls the Redis token buckets in front of the
// account routes and the public crop lookup.  Both buckets share the
// refill schedule; the lookup bucket has its own capacity and key prefix
// so QR scanners cannot drain the login budget.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // ip, user, route, crop or a combination such as ip_route
    Prefix         string
    Debug          bool

    LookupCapacity int
}

// ForLookup returns the settings of the public lookup bucket.
func (c RateLimitConfig) ForLookup() RateLimitConfig {
    l := c
    l.Capacity = c.LookupCapacity
    l.Prefix = c.Prefix + ":lookup"
    return l
}

func loadRateLimit(src source) RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        src.boolean("RATE_LIMIT_ENABLED", true),
        Capacity:       src.integer("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   src.integer("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: src.duration("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
        TTL:            src.duration("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    src.str("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         src.str("RATE_LIMIT_PREFIX", "rl"),
        Debug:          src.boolean("RATE_LIMIT_DEBUG", false),
        LookupCapacity: src.integer("RATE_LIMIT_LOOKUP_CAPACITY", 120),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.LookupCapacity < 1 {
        cfg.LookupCapacity = cfg.Capacity
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // keep idle buckets around long enough to refill completely
    if full := time.Duration(cfg.Capacity/cfg.RefillTokens+1) * cfg.RefillInterval; cfg.TTL < full {
        cfg.TTL = full
    }
    return cfg
}
