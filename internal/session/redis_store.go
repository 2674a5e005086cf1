package session

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as expiring keys, so expiry needs no sweeper.
type RedisStore struct {
	client *goredis.Client
}

func NewRedisStore(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, id, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(id), userID, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return userID, err
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return "session:" + id
}
