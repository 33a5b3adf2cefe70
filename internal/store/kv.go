package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrMiss key 不存在或已过期
var ErrMiss = errors.New("kv: key not found")

// DefaultNamespace 所有 key 的前缀，与同一 Redis 上的其他服务隔离
const DefaultNamespace = "sleepwise:"

const scanBatch = 200

// KV journal 依赖的最小键值接口；key 均不含命名空间
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

type RedisKV struct {
	rdb *redis.Client
	ns  string
}

func NewRedisKV(rdb *redis.Client) *RedisKV {
	return NewRedisKVWithNamespace(rdb, DefaultNamespace)
}

func NewRedisKVWithNamespace(rdb *redis.Client, ns string) *RedisKV {
	return &RedisKV{rdb: rdb, ns: ns}
}

var _ KV = (*RedisKV)(nil)

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.rdb.Get(ctx, r.ns+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrMiss
	case err != nil:
		return "", err
	}
	return val, nil
}

// Set ttl 为 0 时不过期
func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.ns+key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.ns+key).Err()
}

// ScanKeys 用 SCAN 分批遍历，返回去掉命名空间后的 key
func (r *RedisKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.ns+pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.ns))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
