// Package cache keeps the doctor directory in Redis so that every page load
// does not have to hit the clinic API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
)

const (
	DefaultTTL = 5 * time.Minute
	keyPrefix  = "ayursutra:doctors:"
)

// Loader fetches the doctor list from the source of truth.
type Loader func(ctx context.Context) ([]scheduling.Doctor, error)

// DoctorCache is read-through. Redis failures are logged and fall back to
// the loader; they never fail the caller. A nil *DoctorCache always loads.
type DoctorCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func NewDoctorCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger, metrics *telemetry.Metrics) *DoctorCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DoctorCache{
		client:  client,
		ttl:     ttl,
		logger:  logger.With().Str("component", "doctor_cache").Logger(),
		metrics: metrics,
	}
}

func key(available bool) string {
	if available {
		return keyPrefix + "available"
	}
	return keyPrefix + "all"
}

// Doctors returns the cached list, loading and storing it on a miss.
func (c *DoctorCache) Doctors(ctx context.Context, available bool, load Loader) ([]scheduling.Doctor, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	k := key(available)

	raw, err := c.client.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var doctors []scheduling.Doctor
		if jsonErr := json.Unmarshal(raw, &doctors); jsonErr == nil {
			c.metrics.ObserveCache("hit")
			return doctors, nil
		}
		c.logger.Warn().Str("key", k).Msg("discarding undecodable cache entry")
		c.metrics.ObserveCache("miss")
	case errors.Is(err, redis.Nil):
		c.metrics.ObserveCache("miss")
	default:
		c.metrics.ObserveCache("error")
		c.logger.Warn().Err(err).Str("key", k).Msg("cache read failed")
	}

	doctors, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(doctors); err == nil {
		if err := c.client.Set(ctx, k, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", k).Msg("cache write failed")
		}
	}
	return doctors, nil
}

// Invalidate drops every cached doctor list.
func (c *DoctorCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key(true), key(false)).Err()
}
