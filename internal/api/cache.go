package api

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/lherron/wrkboard/internal/domain"
)

type columnSource interface {
	ListByBoard(boardUUID string) ([]domain.Column, error)
}

// ColumnCache is a Redis read-through cache of a board's columns view.
// A nil Redis client or a zero TTL turns it into a pass-through.
//
// Each board has a generation counter bumped by Evict. A reader records the
// generation before going to the store and only writes its result back if
// the generation is unchanged, so a read that raced a write is never cached.
type ColumnCache struct {
	base  columnSource
	redis *redis.Client
	ttl   time.Duration
}

// NewColumnCache wraps base with Redis caching.
func NewColumnCache(base columnSource, client *redis.Client, ttl time.Duration) *ColumnCache {
	if base == nil {
		panic("api.NewColumnCache: base is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &ColumnCache{base: base, redis: client, ttl: ttl}
}

// ListByBoard returns the board's columns, from Redis when present.
func (c *ColumnCache) ListByBoard(ctx context.Context, boardUUID string) ([]domain.Column, error) {
	if columns, ok := c.load(ctx, boardUUID); ok {
		return columns, nil
	}

	gen, cacheable := c.generation(ctx, boardUUID)
	columns, err := c.base.ListByBoard(boardUUID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.store(ctx, boardUUID, gen, columns)
	}
	return columns, nil
}

// Evict drops the cached view of a board.
func (c *ColumnCache) Evict(ctx context.Context, boardUUID string) {
	if c.redis == nil || boardUUID == "" {
		return
	}
	pipe := c.redis.TxPipeline()
	pipe.Incr(ctx, generationKey(boardUUID))
	pipe.Del(ctx, columnsCacheKey(boardUUID))
	_, _ = pipe.Exec(ctx)
}

func (c *ColumnCache) generation(ctx context.Context, boardUUID string) (string, bool) {
	if c.redis == nil || c.ttl == 0 {
		return "", false
	}
	gen, err := c.redis.Get(ctx, generationKey(boardUUID)).Result()
	switch {
	case err == redis.Nil:
		return "0", true
	case err != nil:
		return "", false
	}
	return gen, true
}

func (c *ColumnCache) load(ctx context.Context, boardUUID string) ([]domain.Column, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := columnsCacheKey(boardUUID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var columns []domain.Column
	if err := sonic.Unmarshal(data, &columns); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return columns, true
}

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds ARGV[1].
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *ColumnCache) store(ctx context.Context, boardUUID, gen string, columns []domain.Column) {
	data, err := sonic.Marshal(columns)
	if err != nil {
		return
	}
	keys := []string{generationKey(boardUUID), columnsCacheKey(boardUUID)}
	_ = setIfGeneration.Run(ctx, c.redis, keys, gen, data, c.ttl.Milliseconds()).Err()
}

func columnsCacheKey(boardUUID string) string {
	return "columns:" + boardUUID
}

func generationKey(boardUUID string) string {
	return "columns-gen:" + boardUUID
}
