package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// KeyValueRepository is the in-process fallback when no Redis is configured.
type KeyValueRepository struct {
	cache *cache.Cache
}

func NewKeyValueRepository() *KeyValueRepository {
	return &KeyValueRepository{
		cache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

func (r *KeyValueRepository) Get(_ context.Context, key string) (string, bool, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (r *KeyValueRepository) Set(_ context.Context, key, value string) error {
	r.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (r *KeyValueRepository) Clear(_ context.Context) error {
	r.cache.Flush()
	return nil
}
