package query

import (
	"context"
	"time"

	"github.com/wonny/quantgem/backend/internal/cache"
	"github.com/wonny/quantgem/backend/pkg/redis"
)

// Cache is the subset of redis.Cache the service uses
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Generation(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

var (
	_ Cache = (*redis.Cache)(nil)
	_ Cache = (*cache.MemoryCache)(nil)
)

// cached serves kind/params from the cache or computes and stores it.
// 캐시 장애는 조회 실패로 이어지지 않음 (경고 후 DB 경로)
func cached[T any](ctx context.Context, s *Service, kind string, params []string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Cache generation unavailable")
		return compute()
	}
	key := redis.QueryKey(gen, kind, params...)

	var hit T
	found, err := s.cache.Get(ctx, key, &hit)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
	} else if found {
		return hit, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return value, nil
}

func dateParam(d *time.Time) string {
	if d == nil {
		return "latest"
	}
	return d.Format("2006-01-02")
}
