package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"passagens/internal/domain/models"
)

// TripCacheTTL bounds how stale a cached trip list may be.
const TripCacheTTL = 60 * time.Second

const tripCachePrefix = "cache:trips:"

// TripCache caches trip lookups by criteria.
type TripCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTripCache(client *redis.Client, ttl time.Duration) *TripCache {
	if ttl <= 0 {
		ttl = TripCacheTTL
	}
	return &TripCache{client: client, ttl: ttl}
}

func tripKey(c models.SearchCriteria) string {
	return fmt.Sprintf("%s%d:%d:%s", tripCachePrefix, c.OriginID, c.DestinationID, c.Date)
}

// Get reports ok=false on a cache miss.
func (s *TripCache) Get(ctx context.Context, c models.SearchCriteria) ([]models.TripOption, bool, error) {
	data, err := s.client.Get(ctx, tripKey(c)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var trips []models.TripOption
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, false, err
	}
	return trips, true, nil
}

func (s *TripCache) Set(ctx context.Context, c models.SearchCriteria, trips []models.TripOption) error {
	data, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripKey(c), data, s.ttl).Err()
}
