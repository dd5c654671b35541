package substitute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"
)

// RedisProfileCache 風味輪廓的 Redis 快取，供多實例部署共用
type RedisProfileCache struct {
	client *redis.Client
	config *config.CacheConfig
	inner  ProfileSource
}

// NewRedisProfileCache 創建 Redis 輪廓快取
func NewRedisProfileCache(cfg *config.Config, inner ProfileSource) (*RedisProfileCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProfileCache{
		client: client,
		config: &cfg.Cache,
		inner:  inner,
	}, nil
}

// redisKey 快取鍵
func redisKey(ingredient string) string {
	return "flavor:profile:" + cacheKey(ingredient)
}

// FlavorProfile 實現 ProfileSource；未命中時轉查內層來源並回填
// Redis 讀寫失敗時降級為直接查詢，不中斷請求
func (c *RedisProfileCache) FlavorProfile(ctx context.Context, ingredient string) (flavor.Profile, error) {
	key := redisKey(ingredient)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var tokens []string
		if err := json.Unmarshal(data, &tokens); err == nil {
			common.LogCacheHit("profile", key)
			return flavor.NewProfile(tokens), nil
		}
	} else if err != redis.Nil {
		common.LogWarn("Redis 快取讀取失敗，改為直接查詢",
			zap.Error(err),
		)
	}
	common.LogCacheMiss("profile", key)

	profile, err := c.inner.FlavorProfile(ctx, ingredient)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal([]string(profile)); err == nil {
		if err := c.client.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
			common.LogWarn("Redis 快取寫入失敗",
				zap.Error(err),
			)
		}
	}

	return profile, nil
}

// Close 關閉 Redis 連接
func (c *RedisProfileCache) Close() error {
	return c.client.Close()
}
