package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpPrefix         = "otp:"
	otpAttemptsPrefix = "otp:attempts:"
)

// OTPEntry is a pending verification code. Only the bcrypt hash is kept.
type OTPEntry struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// OTPStore keeps verification codes per e-mail address.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// Save replaces any previous code for email and resets its attempt counter.
func (s *OTPStore) Save(ctx context.Context, email string, entry OTPEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpPrefix+email, data, ttl)
	pipe.Del(ctx, otpAttemptsPrefix+email)
	_, err = pipe.Exec(ctx)
	return err
}

// Get returns nil, nil when no code is pending.
func (s *OTPStore) Get(ctx context.Context, email string) (*OTPEntry, error) {
	data, err := s.client.Get(ctx, otpPrefix+email).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var entry OTPEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// IncrementAttempts counts a failed verification and returns the new total.
func (s *OTPStore) IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, otpAttemptsPrefix+email)
	pipe.Expire(ctx, otpAttemptsPrefix+email, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *OTPStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, otpPrefix+email, otpAttemptsPrefix+email).Err()
}
