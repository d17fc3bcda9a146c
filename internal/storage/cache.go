package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultSearchCacheTTL = 5 * time.Minute

	searchKeyPrefix  = "feedradar:search:"
	cacheDialTimeout = time.Second
	cacheOpTimeout   = 300 * time.Millisecond
	cachePurgeBatch  = 100
)

// searchCache 是搜索结果的 Redis 二级缓存。
// key 带上进程 epoch 与写入代数：任何提交的写入都会让旧 key 失效，重启后也不会读到上一轮的数据。
// 每次 Redis 调用都有独立的短超时，失败一律按未命中处理。
type searchCache struct {
	rdb   *redis.Client
	ttl   time.Duration
	epoch string
	log   *slog.Logger
}

func newSearchCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *searchCache {
	if ttl <= 0 {
		ttl = defaultSearchCacheTTL
	}
	return &searchCache{rdb: rdb, ttl: ttl, epoch: uuid.NewString(), log: log}
}

func (c *searchCache) key(gen uint64, q string) string {
	return fmt.Sprintf("%s%s:%d:%s", searchKeyPrefix, c.epoch, gen, q)
}

func (c *searchCache) get(ctx context.Context, gen uint64, q string) ([]FeedPost, bool) {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	bs, err := c.rdb.Get(ctx, c.key(gen, q)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("search cache get failed", "err", err)
		}
		return nil, false
	}
	var cached []FeedPost
	if err := json.Unmarshal(bs, &cached); err != nil {
		return nil, false
	}
	return cached, true
}

func (c *searchCache) set(ctx context.Context, gen uint64, q string, list []FeedPost) {
	bs, err := json.Marshal(list)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rdb.Set(ctx, c.key(gen, q), bs, c.ttl).Err(); err != nil {
		c.log.Debug("search cache set failed", "err", err)
	}
}

// purge 删除所有 epoch 下的搜索缓存，返回删除的 key 数
func (c *searchCache) purge(ctx context.Context) (int, error) {
	var n int
	iter := c.rdb.Scan(ctx, 0, searchKeyPrefix+"*", cachePurgeBatch).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("storage: purge search cache: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("storage: purge search cache: %w", err)
	}
	return n, nil
}
