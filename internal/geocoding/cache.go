package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of the go-redis client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider is a read-through Redis cache in front of another provider.
// Misses are cached too; failures are not. Redis errors never fail a lookup.
type CachedProvider struct {
	next   Provider
	client RedisClient
	ttl    time.Duration
	log    *slog.Logger
}

// NewCachedProvider wraps p with a cache whose entries expire after ttl.
func NewCachedProvider(p Provider, client RedisClient, ttl time.Duration, log *slog.Logger) *CachedProvider {
	return &CachedProvider{next: p, client: client, ttl: ttl, log: log}
}

// CacheKey rounds the coordinates to three decimals, roughly 100 metres.
func CacheKey(coords models.Coordinates) string {
	return fmt.Sprintf("revgeo:%.3f:%.3f", coords.Latitude, coords.Longitude)
}

// ReverseGeocode serves from Redis when possible and stores fresh answers.
func (cp *CachedProvider) ReverseGeocode(ctx context.Context, coords models.Coordinates) (models.PlaceAnnotation, error) {
	key := CacheKey(coords)

	cached, err := cp.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var annotation models.PlaceAnnotation
		if err = json.Unmarshal(cached, &annotation); err == nil {
			cp.log.DebugContext(ctx, "Reverse geocoding cache hit", "key", key)
			if annotation == nil {
				annotation = make(models.PlaceAnnotation)
			}
			return annotation, nil
		}
		cp.log.WarnContext(ctx, "Discarding malformed cache entry", "key", key, "error", err)
	case !errors.Is(err, redis.Nil):
		cp.log.WarnContext(ctx, "Failed to read reverse geocoding cache", "key", key, "error", err)
	}

	annotation, err := cp.next.ReverseGeocode(ctx, coords)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(annotation)
	if err != nil {
		return annotation, nil
	}
	if err = cp.client.Set(ctx, key, payload, cp.ttl).Err(); err != nil {
		cp.log.WarnContext(ctx, "Failed to write reverse geocoding cache", "key", key, "error", err)
	}

	return annotation, nil
}
