package cache

import (
	"context"
	"time"

	"passagens/internal/booking"
	"passagens/internal/domain/models"
)

// SessionStoreInterface defines booking session persistence.
type SessionStoreInterface interface {
	Get(ctx context.Context, id string) (*booking.Session, error)
	Save(ctx context.Context, sess *booking.Session) error
	Delete(ctx context.Context, id string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireSessionLock(ctx context.Context, sessionID string, ttl time.Duration) (string, bool, error)
	ReleaseSessionLock(ctx context.Context, sessionID, token string) error
}

// TripCacheInterface defines trip lookup caching.
type TripCacheInterface interface {
	Get(ctx context.Context, c models.SearchCriteria) ([]models.TripOption, bool, error)
	Set(ctx context.Context, c models.SearchCriteria, trips []models.TripOption) error
}

// OTPStoreInterface defines verification code storage.
type OTPStoreInterface interface {
	Save(ctx context.Context, email string, entry OTPEntry, ttl time.Duration) error
	Get(ctx context.Context, email string) (*OTPEntry, error)
	IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error)
	Delete(ctx context.Context, email string) error
}

// ResponseCacheInterface defines storage for replayed HTTP responses.
type ResponseCacheInterface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ SessionStoreInterface  = (*SessionStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ TripCacheInterface     = (*TripCache)(nil)
	_ OTPStoreInterface      = (*OTPStore)(nil)
	_ ResponseCacheInterface = (*ResponseCache)(nil)
)
