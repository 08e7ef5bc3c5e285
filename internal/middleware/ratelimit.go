package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/agritrace/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        local until_next = interval_ms - (now_ms - last_refill)
        if until_next < 0 then until_next = 0 end
        retry_after_ms = until_next
    end

    redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// bucket is the state returned by one run of tokenBucketScript.
type bucket struct {
    allowed   bool
    remaining int64
    retryMs   int64
}

// limiter runs tokenBucketScript for one bucket configuration.
type limiter struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
}

func (l limiter) take(ctx context.Context, key string) (bucket, error) {
    vals, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
        time.Now().UnixMilli(),
        l.cfg.Capacity,
        l.cfg.RefillTokens,
        l.cfg.RefillInterval.Milliseconds(),
        int64(l.cfg.TTL/time.Second),
    ).Result()
    if err != nil {
        return bucket{}, err
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return bucket{}, fmt.Errorf("unexpected script result %#v", vals)
    }
    return bucket{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retryMs:   asInt64(arr[2]),
    }, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket.  It is
// a pass-through when disabled or when Redis is unavailable, and it lets
// requests through when the script fails.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    l := limiter{cfg: cfg, rdb: rdb}
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            b, err := l.take(c.Request().Context(), key)
            if err != nil {
                c.Logger().Warnf("ratelimit: %s: %v", key, err)
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(b.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if b.allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(b.retryMs) / 1000.0))
            if secs < 1 {
                secs = 1
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests, retry in " + strconv.Itoa(secs) + "s"})
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// buildRateKey joins the key components named by cfg.KeyStrategy, for
// example "ip_route" or "ip_crop".  An empty strategy means ip_user_route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    strategy := strings.ToLower(cfg.KeyStrategy)
    if strategy == "" {
        strategy = "ip_user_route"
    }
    parts := []string{cfg.Prefix}
    for _, part := range strings.Split(strategy, "_") {
        switch part {
        case "ip":
            ip := c.RealIP()
            if ip == "" {
                ip = "unknown"
            }
            parts = append(parts, "ip", ip)
        case "user":
            parts = append(parts, "user", currentUserID(c))
        case "route":
            parts = append(parts, "route", c.Request().Method+" "+c.Path())
        case "crop":
            crop := c.QueryParam("cropId")
            if crop == "" {
                crop = "none"
            }
            parts = append(parts, "crop", crop)
        }
    }
    return strings.Join(parts, ":")
}
