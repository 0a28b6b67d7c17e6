// Package di wires the application together: explicitly constructed
// clients handed to the services that need them, with one open at
// startup and one close at shutdown. No component reaches for a
// global handle.
package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/molsearch/molsearch/application/search"
	"github.com/molsearch/molsearch/application/tasks"
	"github.com/molsearch/molsearch/domain/molecule"
	"github.com/molsearch/molsearch/infrastructure/cache"
	"github.com/molsearch/molsearch/infrastructure/config"
	"github.com/molsearch/molsearch/infrastructure/persistence/sqlite"
	"github.com/molsearch/molsearch/pkg/observability"
)

// Container holds the application's wired dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Collector
	Cache    cache.Cache
	Store    molecule.Repository
	Searcher *search.Service
	Tasks    *tasks.Service

	store  *sqlite.Repository
	memory *cache.Memory
}

// InitializeContainer constructs every dependency in order: logger,
// metrics, cache (breaker-wrapped), store, then the services on top.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	metrics := observability.NewCollector("molsearch")

	memory := cache.NewMemory()
	breaker := cache.NewBreaker(memory, cache.DefaultBreakerConfig("result-cache"), logger)

	store, err := sqlite.NewRepository(cfg.DatabasePath, logger)
	if err != nil {
		_ = memory.Close()
		return nil, fmt.Errorf("failed to open molecule store: %w", err)
	}

	searcher := search.NewService(
		store,
		breaker,
		metrics,
		logger,
		time.Duration(cfg.SnapshotTTL)*time.Second,
		time.Duration(cfg.ResultTTL)*time.Second,
	)

	taskService := tasks.NewService(
		searcher,
		metrics,
		logger,
		cfg.BaseURL,
		cfg.WorkerCount,
		cfg.QueueCapacity,
	)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Cache:    breaker,
		Store:    store,
		Searcher: searcher,
		Tasks:    taskService,
		store:    store,
		memory:   memory,
	}, nil
}

// Shutdown tears the container down in reverse construction order.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := c.Tasks.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.memory.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	_ = c.Logger.Sync()

	return firstErr
}

// newLogger builds the zap logger for the configured environment
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
