package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const idempotencyPrefix = "lesson_gate:idempotency:"

// IdempotencyRepository 用 Redis SETNX 记录已受理的提交键
type IdempotencyRepository struct {
	Redis *redis.Client
}

func NewIdempotencyRepository(rdb *redis.Client) *IdempotencyRepository {
	return &IdempotencyRepository{Redis: rdb}
}

// Reserve 首次出现的键返回 true
func (r *IdempotencyRepository) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.Redis.SetNX(ctx, idempotencyPrefix+key, time.Now().Unix(), ttl).Result()
}

// Release 请求失败时释放键，允许客户端用同一个键重试
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	return r.Redis.Del(ctx, idempotencyPrefix+key).Err()
}
