package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marque/internal/pageinfo"
)

// DefaultPageCacheTTL bounds how long extracted page metadata is
// reused before a fresh fetch is attempted.
const DefaultPageCacheTTL = 24 * time.Hour

// CachePageInfo stores extracted page metadata for a URL.
func (s *Store) CachePageInfo(ctx context.Context, url string, info pageinfo.PageInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal page info: %w", err)
	}
	if err := s.client.Set(ctx, PageCacheKey(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache page info: %w", err)
	}
	return nil
}

// CachedPageInfo retrieves cached page metadata for a URL. A cache
// miss returns ok=false with no error.
func (s *Store) CachedPageInfo(ctx context.Context, url string) (pageinfo.PageInfo, bool, error) {
	data, err := s.client.Get(ctx, PageCacheKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pageinfo.PageInfo{}, false, nil
		}
		return pageinfo.PageInfo{}, false, fmt.Errorf("failed to get cached page info: %w", err)
	}

	var info pageinfo.PageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return pageinfo.PageInfo{}, false, fmt.Errorf("failed to unmarshal cached page info: %w", err)
	}
	return info, true, nil
}

// InvalidatePageInfo drops the cached metadata for a URL.
func (s *Store) InvalidatePageInfo(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, PageCacheKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate page cache: %w", err)
	}
	return nil
}
