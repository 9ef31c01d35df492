package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const responsePrefix = "idempotency:"

// ResponseCache keeps serialized HTTP responses for idempotent replays.
type ResponseCache struct {
	client *redis.Client
}

func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{client: client}
}

// Get returns the stored response for key; ok is false on a miss.
func (s *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, responsePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *ResponseCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, responsePrefix+key, data, ttl).Err()
}
