package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"servicecatalog/engine/internal/client"
	"servicecatalog/engine/internal/config"
	"servicecatalog/engine/internal/mirror"
	"servicecatalog/engine/internal/pricing"
	"servicecatalog/engine/internal/queue"
	"servicecatalog/engine/internal/repository"
	"servicecatalog/engine/internal/service"
	"servicecatalog/engine/internal/state"
	"servicecatalog/engine/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Handle       *store.Handle
	Client       client.CatalogClient
	Repository   repository.SnapshotRepository
	Queue        queue.Queue
	StateManager state.StateManager

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// SetupLogging applies the configured level and formatter to the global logger.
func SetupLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("⚠️ Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Connected to Redis successfully")
	return rdb, nil
}

// NewCatalogClient builds the catalog client together with its mirror supplier.
func NewCatalogClient(ctx context.Context, cfg config.CatalogConfig) client.CatalogClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	mirrors := mirror.NewMirrorSupplier(ctx, cfg.Mirrors, timeout)
	return client.NewCatalogClient(cfg, mirrors)
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
		Handle: store.NewHandle(nil),
	}

	policy, err := pricing.ParsePolicy(cfg.Pricing.DiscountStacking, cfg.Pricing.RecurringTerm)
	if err != nil {
		return nil, err
	}

	c.Client = NewCatalogClient(ctx, cfg.Catalog)

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		c.db = db

		repo := repository.NewSnapshotRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, err
		}
		c.Repository = repo
		log.Info("✅ Connected to PostgreSQL successfully")
	}

	rdb, err := NewRedis(ctx, cfg.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.redis = rdb

	redisQueue, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Queue = redisQueue
	c.StateManager = state.NewRedisStateManager(rdb, time.Duration(cfg.Redis.QuoteResultTTL)*time.Second)

	c.Service = service.NewService(service.Options{
		Handle:      c.Handle,
		Client:      c.Client,
		Resolver:    pricing.NewResolver(policy),
		Queue:       c.Queue,
		State:       c.StateManager,
		Repository:  c.Repository,
		GroupName:   cfg.Redis.ConsumerGroup,
		MinIdleTime: cfg.Redis.MinIdleTime,
	})

	return c, nil
}

// Run loads the catalog, then serves tasks and file changes until ctx ends.
func (c *Container) Run(ctx context.Context) error {
	if _, err := c.Service.Reload(ctx, "", true); err != nil {
		log.Warnf("⚠️ Initial catalog load failed: %v", err)

		if _, restoreErr := c.Service.Restore(ctx); restoreErr != nil {
			return fmt.Errorf("no catalog available: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if source := c.Config.Catalog.Source; c.Config.Catalog.Watch && !isRemote(source) {
		g.Go(func() error {
			return c.Service.Watch(ctx, strings.TrimPrefix(source, "file://"))
		})
	}

	g.Go(func() error {
		return c.Service.RunWorkers(ctx, c.Config.Workers.Count)
	})

	return g.Wait()
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Info("Container shut down successfully")
	return nil
}
