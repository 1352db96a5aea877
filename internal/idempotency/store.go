package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrRecordNotFound = errors.New("idempotency record not found")
	ErrDuplicateSave  = errors.New("idempotency record already saved")
)

// Record is the replayable outcome of a completed write request.
type Record struct {
	Key          string    `json:"key"`
	UserID       uuid.UUID `json:"user_id"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	RequestHash  string    `json:"request_hash"`
	StatusCode   int       `json:"status_code"`
	ResponseBody []byte    `json:"response_body"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store persists idempotency records.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	// Save persists the record only if the key is unused. The losing writer
	// of a save race gets ErrDuplicateSave; callers discard it silently.
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, key string) error
}

// HashRequest fingerprints a request so a reused key with a different
// payload can be detected.
func HashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'|'})
	h.Write([]byte(path))
	h.Write([]byte{'|'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// RedisStore keeps records in Redis under a per-key entry whose TTL matches
// the record's expiry. SET NX gives first-writer-wins on concurrent saves.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func redisKey(key string) string {
	return "idem:" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}

	// Redis TTL normally handles expiry; the stamp covers clock drift and
	// records written with a longer TTL before a config change.
	if s.now().After(rec.ExpiresAt) {
		return nil, ErrRecordNotFound
	}

	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = s.now().Add(s.ttl)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisKey(rec.Key), data, time.Until(rec.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("save idempotency record: %w", err)
	}
	if !ok {
		return ErrDuplicateSave
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("delete idempotency record: %w", err)
	}
	return nil
}
