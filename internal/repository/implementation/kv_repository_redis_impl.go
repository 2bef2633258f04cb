package implementation

import (
	"context"
	"errors"

	"sam-chat-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sam:kv:"

type KeyValueRepositoryRedisImpl struct {
	rdb *redis.Client
}

func NewKeyValueRepositoryRedis(rdb *redis.Client) contract.KeyValueRepository {
	return &KeyValueRepositoryRedisImpl{rdb: rdb}
}

func (r *KeyValueRepositoryRedisImpl) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *KeyValueRepositoryRedisImpl) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (r *KeyValueRepositoryRedisImpl) Remove(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, redisKeyPrefix+key).Err()
}
