package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: "kantin:req:", ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+requestID).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec, err := decode(raw)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *RedisStore) Put(ctx context.Context, requestID string, rec Record) error {
	return s.client.SetNX(ctx, s.prefix+requestID, encode(rec), s.ttl).Err()
}
