package utils

import (
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// GlobalCache 全局本地缓存封装，支持按 tag 批量失效
// 删除条目时用 tag 把所有可能还在提供旧数据的列表页一次清掉
type GlobalCache struct {
	lruCache *lru.Cache[string, CacheItem]

	mu      sync.Mutex
	tagKeys map[string]map[string]struct{} // tag -> keys
	keyTags map[string][]string            // key -> tags，淘汰时反向清理
}

var (
	cacheInstance *GlobalCache
	cacheOnce     sync.Once
)

// GetCache 获取单例缓存实例
func GetCache() *GlobalCache {
	cacheOnce.Do(func() {
		c := &GlobalCache{
			tagKeys: make(map[string]map[string]struct{}),
			keyTags: make(map[string][]string),
		}
		// 创建一个容量为 500 的 LRU 缓存
		l, err := lru.NewWithEvict[string, CacheItem](500, c.onEvict)
		if err != nil {
			log.Fatalf("Failed to create LRU cache: %v", err)
		}
		c.lruCache = l
		cacheInstance = c
	})
	return cacheInstance
}

func (c *GlobalCache) onEvict(key string, _ CacheItem) {
	c.mu.Lock()
	c.forgetKeyLocked(key)
	c.mu.Unlock()
}

func (c *GlobalCache) forgetKeyLocked(key string) {
	for _, tag := range c.keyTags[key] {
		if keys, ok := c.tagKeys[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tagKeys, tag)
			}
		}
	}
	delete(c.keyTags, key)
}

// Set 设置缓存，TTL 为过期时间，可附带若干 tag
func (c *GlobalCache) Set(key string, data interface{}, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	c.forgetKeyLocked(key)
	if len(tags) > 0 {
		c.keyTags[key] = tags
		for _, tag := range tags {
			if c.tagKeys[tag] == nil {
				c.tagKeys[tag] = make(map[string]struct{})
			}
			c.tagKeys[tag][key] = struct{}{}
		}
	}
	c.mu.Unlock()

	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，若不存在或已过期则返回 nil
func (c *GlobalCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	// 检查过期
	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete 删除指定缓存
func (c *GlobalCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// InvalidateTag 失效某个 tag 下的全部缓存键
func (c *GlobalCache) InvalidateTag(tag string) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.tagKeys[tag]))
	for key := range c.tagKeys[tag] {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.lruCache.Remove(key)
	}
}
