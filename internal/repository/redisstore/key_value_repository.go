package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ai-chat-client:"

// KeyValueRepository persists client state in Redis so a restart can recall
// the last identity and selection.
type KeyValueRepository struct {
	rdb *redis.Client
}

func NewKeyValueRepository(rdb *redis.Client) *KeyValueRepository {
	return &KeyValueRepository{rdb: rdb}
}

func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, keyPrefix+key, value, 0).Err()
}

func (r *KeyValueRepository) Clear(ctx context.Context) error {
	keys, err := r.rdb.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}
