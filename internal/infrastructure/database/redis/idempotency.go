// internal/infrastructure/database/redis/idempotency.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// KeyValueStore is the part of the Redis client the idempotency store uses
type KeyValueStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyStore keeps Idempotency-Key reservations and replayable
// responses in Redis
type IdempotencyStore struct {
	rdb    KeyValueStore
	prefix string
}

func NewIdempotencyStore(rdb KeyValueStore) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, prefix: "idempotency:"}
}

// Reserve claims key for fingerprint with SETNX, or reports the existing record
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (middleware.IdempotencyRecord, bool, error) {
	pending := middleware.IdempotencyRecord{Fingerprint: fingerprint, Status: middleware.IdempotencyPending}
	raw, err := json.Marshal(pending)
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}

	ok, err := s.rdb.SetNX(ctx, s.prefix+key, raw, ttl).Result()
	if err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return pending, true, nil
	}

	existing, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Reserve(ctx, key, fingerprint, ttl)
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("load idempotency key: %w", err)
	}

	var record middleware.IdempotencyRecord
	if err := json.Unmarshal(existing, &record); err != nil {
		return middleware.IdempotencyRecord{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return record, false, nil
}

// Complete stores the final response under key
func (s *IdempotencyStore) Complete(ctx context.Context, key string, record middleware.IdempotencyRecord, ttl time.Duration) error {
	record.Status = middleware.IdempotencyCompleted
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Release drops a reservation so the client can retry
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}
