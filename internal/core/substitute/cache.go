package substitute

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"flavor-remix/internal/core/flavor"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"
)

// ProfileCache 風味輪廓的記憶體快取，包裝另一個 ProfileSource
// 鍵為小寫去空白的食材名稱；空輪廓也快取（查無資料同樣值得記住）
type ProfileCache struct {
	config *config.Config
	inner  ProfileSource
	mu     sync.RWMutex
	store  map[string]cacheEntry
	stats  cacheStats
	done   chan struct{}
}

// cacheEntry 快取條目
type cacheEntry struct {
	profile     flavor.Profile
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewProfileCache 創建輪廓快取
func NewProfileCache(cfg *config.Config, inner ProfileSource) *ProfileCache {
	c := &ProfileCache{
		config: cfg,
		inner:  inner,
		store:  make(map[string]cacheEntry),
		done:   make(chan struct{}),
	}

	// 啟動清理過期條目的協程
	go c.startCleanup()

	common.LogInfo("輪廓快取已初始化",
		zap.Int("最大容量", cfg.Cache.MaxSize),
		zap.Duration("存活時間", cfg.Cache.TTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
	)

	return c
}

// cacheKey 快取鍵
func cacheKey(ingredient string) string {
	return strings.ToLower(strings.TrimSpace(ingredient))
}

// FlavorProfile 實現 ProfileSource；未命中時轉查內層來源並回填
func (c *ProfileCache) FlavorProfile(ctx context.Context, ingredient string) (flavor.Profile, error) {
	key := cacheKey(ingredient)

	if profile, ok := c.lookup(key); ok {
		common.LogCacheHit("profile", key)
		return profile, nil
	}
	common.LogCacheMiss("profile", key)

	profile, err := c.inner.FlavorProfile(ctx, ingredient)
	if err != nil {
		return nil, err
	}

	c.set(key, profile)
	return profile, nil
}

func (c *ProfileCache) lookup(key string) (flavor.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.store[key]
	if !exists {
		c.stats.misses++
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.store, key)
		c.stats.evictions++
		c.stats.misses++
		return nil, false
	}

	entry.lastAccess = time.Now()
	entry.accessCount++
	c.store[key] = entry
	c.stats.hits++
	return entry.profile, true
}

func (c *ProfileCache) set(key string, profile flavor.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 容量已滿時先清過期條目，不足再做 LRU 淘汰
	if len(c.store) >= c.config.Cache.MaxSize {
		c.cleanupLocked()
		if len(c.store) >= c.config.Cache.MaxSize {
			c.evictLRULocked()
		}
		if len(c.store) >= c.config.Cache.MaxSize {
			common.LogWarn("輪廓快取已滿，放棄寫入",
				zap.Int("目前容量", len(c.store)),
			)
			return
		}
	}

	now := time.Now()
	c.store[key] = cacheEntry{
		profile:     profile,
		expiresAt:   now.Add(c.config.Cache.TTL),
		lastAccess:  now,
		accessCount: 0,
	}
}

// startCleanup 啟動清理過期條目的協程
func (c *ProfileCache) startCleanup() {
	ticker := time.NewTicker(c.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupLocked()
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// cleanupLocked 清理過期條目；呼叫端須持有鎖
func (c *ProfileCache) cleanupLocked() {
	now := time.Now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			c.stats.evictions++
		}
	}
}

// evictLRULocked 淘汰最少使用的條目；呼叫端須持有鎖
func (c *ProfileCache) evictLRULocked() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range c.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(c.store, oldestKey)
		c.stats.evictions++
		common.LogDebug("輪廓快取淘汰(LRU)", zap.String("淘汰鍵", oldestKey))
	}
}

// Stats 快取統計信息
func (c *ProfileCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.stats.hits + c.stats.misses
	hitRatio := 0.0
	if total > 0 {
		hitRatio = float64(c.stats.hits) / float64(total)
	}

	return map[string]interface{}{
		"size":      len(c.store),
		"max_size":  c.config.Cache.MaxSize,
		"hits":      c.stats.hits,
		"misses":    c.stats.misses,
		"evictions": c.stats.evictions,
		"hit_ratio": hitRatio,
	}
}

// Close 關閉快取
func (c *ProfileCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.done)
	c.store = make(map[string]cacheEntry)
	common.LogInfo("輪廓快取已關閉",
		zap.Int64("命中次數", c.stats.hits),
		zap.Int64("未命中次數", c.stats.misses),
		zap.Int64("淘汰次數", c.stats.evictions),
	)
	return nil
}
