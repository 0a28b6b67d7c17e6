package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds circuit-breaker tuning for the cache decorator
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the default cache breaker settings
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Breaker decorates a Cache with a circuit breaker so a failing
// backend degrades to cache-miss behavior instead of failing the
// request. Reads through an open circuit report absence; writes and
// deletes become no-ops. Values are recomputable, so serving misses
// is always safe.
type Breaker struct {
	inner  Cache
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner Cache, config BreakerConfig, logger *zap.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Breaker{inner: inner, cb: cb, logger: logger}
}

// Get reads through the breaker; any failure reads as a miss.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		ok    bool
	}
	v, err := b.cb.Execute(func() (interface{}, error) {
		value, ok, err := b.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return result{value: value, ok: ok}, nil
	})
	if err != nil {
		b.logger.Debug("cache get degraded to miss", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	res := v.(result)
	return res.value, res.ok, nil
}

// Set writes through the breaker; failures are swallowed.
func (b *Breaker) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	if err != nil {
		b.logger.Debug("cache set dropped", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Exists reads through the breaker; failures read as absent.
func (b *Breaker) Exists(ctx context.Context, key string) (bool, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		ok, err := b.inner.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		return ok, nil
	})
	if err != nil {
		return false, nil
	}
	return v.(bool), nil
}

// Delete goes through the breaker; failures are swallowed, the entry
// simply expires on its own TTL.
func (b *Breaker) Delete(ctx context.Context, keys ...string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, keys...)
	})
	if err != nil {
		b.logger.Debug("cache delete dropped", zap.Strings("keys", keys), zap.Error(err))
	}
	return nil
}
