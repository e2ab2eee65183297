package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/metrics"
	"scholarship-matcher/internal/models"
)

// CachedCatalog is a cache-aside wrapper. Redis errors fall through to the
// underlying catalog.
type CachedCatalog struct {
	next   Catalog
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedCatalog(next Catalog, client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "catalog-cache"}),
	}
}

func (c *CachedCatalog) ListEligibleCandidates(ctx context.Context, criteria Criteria) ([]models.Scholarship, error) {
	key := c.prefix + criteria.CacheKey()

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached []models.Scholarship
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		c.logger.Warn("discarding unreadable cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", map[string]interface{}{"error": err.Error()})
	}
	metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()

	out, err := c.next.ListEligibleCandidates(ctx, criteria)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return out, nil
}
