package memory

import (
	"context"

	"sam-chat-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type KeyValueRepository struct {
	cache *cache.Cache
}

func NewKeyValueRepository() contract.KeyValueRepository {
	// Entries live for the lifetime of the process.
	return &KeyValueRepository{cache: cache.New(cache.NoExpiration, 0)}
}

func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	r.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (r *KeyValueRepository) Remove(ctx context.Context, key string) error {
	r.cache.Delete(key)
	return nil
}
