package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/iliyamo/agritrace/internal/cache"
	"github.com/iliyamo/agritrace/internal/config"
	"github.com/iliyamo/agritrace/internal/database"
	"github.com/iliyamo/agritrace/internal/handler"
	"github.com/iliyamo/agritrace/internal/middleware"
	"github.com/iliyamo/agritrace/internal/queue"
	"github.com/iliyamo/agritrace/internal/repository"
	"github.com/iliyamo/agritrace/internal/router"
	"github.com/iliyamo/agritrace/internal/service"
	"github.com/iliyamo/agritrace/internal/telemetry"
)

const serviceName = "agritrace"

func main() {
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TraceEndpoint, serviceName)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store (%s): %v", cfg.DBDriver, err)
	}

	// Redis is optional: without it rate limiting is off and the redis
	// cache backend falls back to the local one.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Printf("redis unavailable at %s; rate limiting disabled", cfg.Redis.Addr)
	}
	records := newRecordCache(cfg.Cache, rdb)

	var (
		events    service.EventPublisher
		publisher *queue.Publisher
	)
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.AMQPURL)
		events = publisher
		consumer := &queue.Consumer{URL: cfg.AMQPURL}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("stage-consumer stopped: %v", err)
			}
		}()
	}

	sessions := service.NewSessionService(store, cfg.JWTSecret, cfg.SessionTTL, cfg.BcryptCost)
	gateway := service.NewGateway(store, store, records, events)
	lookup := service.NewLookup(store, records)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(serviceName))

	router.Register(e, router.Deps{
		Health:      store,
		Auth:        handler.NewAuthHandler(sessions, cfg.CookieSecure),
		Crops:       handler.NewCropHandler(gateway),
		Lookup:      handler.NewLookupHandler(lookup),
		Verifier:    sessions,
		RateLimit:   middleware.NewTokenBucket(cfg.RateLimit, rdb),
		LookupLimit: middleware.NewTokenBucket(cfg.RateLimit.ForLookup(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s, cache=%s)", addr, cfg.Env, cfg.DBDriver, cfg.Cache.Backend)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := store.Close(); err != nil {
		log.Printf("store close: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}

// openStore connects the configured database and applies its schema.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewMySQLStore(db), nil
	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s := repository.NewGormStore(db)
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		log.Printf("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
}

// newRecordCache picks the lookup cache backend. A nil result disables
// caching.
func newRecordCache(cfg config.CacheConfig, rdb *redis.Client) service.RecordCache {
	switch cfg.Backend {
	case config.CacheRedis:
		if rdb != nil {
			return cache.NewRedis(rdb, cfg.Prefix, cfg.TTL)
		}
		log.Printf("cache: redis unavailable, using local cache")
	case config.CacheMemcached:
		mc := cache.NewMemcached(cfg.MemcachedAddr, cfg.Prefix, cfg.TTL)
		err := mc.Ping()
		if err == nil {
			return mc
		}
		log.Printf("cache: memcached at %s unavailable (%v), using local cache", cfg.MemcachedAddr, err)
	case config.CacheNone:
		return nil
	}
	return cache.NewLocal(cfg.Prefix, cfg.TTL)
}
