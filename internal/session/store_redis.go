// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/popgate/internal/platform/constants"
)

// RedisKV implements [KV] on Redis. Keys never expire; the session ends on
// logout or refresh denial, not on a TTL.
type RedisKV struct {
	client    redis.Cmdable
	namespace string
}

// NewRedisKV creates a Redis-backed store. Sessions in different namespaces
// do not see each other.
func NewRedisKV(client redis.Cmdable, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

/*
Get returns the value stored for key.

Returns:
  - string: the value, or "" when the key is absent
  - error: connectivity errors
*/
func (repository *RedisKV) Get(context context.Context, key string) (string, error) {
	value, err := repository.client.Get(context, repository.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis_session_get_failed: %w", err)
	}
	return value, nil
}

// Set implements [KV].
func (repository *RedisKV) Set(context context.Context, key, value string) error {
	if err := repository.client.Set(context, repository.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}
	return nil
}

// Delete implements [KV].
func (repository *RedisKV) Delete(context context.Context, key string) error {
	if err := repository.client.Del(context, repository.key(key)).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}

func (repository *RedisKV) key(key string) string {
	return constants.RedisPrefixSession + repository.namespace + ":" + key
}
