package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInProgress = errors.New("a request with this idempotency key is still in progress")
	ErrMismatch   = errors.New("idempotency key reused with a different request body")
)

// Record is what is kept per key. Status 0 marks a request still running.
type Record struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
	CreatedAt   int64  `json:"iat"`
}

func (r *Record) Done() bool { return r.Status != 0 }

type Store struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewStore keeps finished responses for ttl. A pending marker lives for at
// most lockTTL so a crashed request does not block its key forever.
func NewStore(rdb *redis.Client, ttl, lockTTL time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func key(scope, k string) string { return fmt.Sprintf("idem:%s:%s", scope, k) }

// Begin claims the key. It returns (nil, nil) when the caller owns the key and
// must run the request, or the finished record to replay.
func (s *Store) Begin(ctx context.Context, scope, k, fingerprint string) (*Record, error) {
	b, _ := json.Marshal(Record{Fingerprint: fingerprint, CreatedAt: time.Now().Unix()})
	ok, err := s.rdb.SetNX(ctx, key(scope, k), b, s.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	raw, err := s.rdb.Get(ctx, key(scope, k)).Bytes()
	if errors.Is(err, redis.Nil) {
		// 标记刚好过期，按进行中处理，让客户端稍后重试
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.Fingerprint != fingerprint {
		return nil, ErrMismatch
	}
	if !rec.Done() {
		return nil, ErrInProgress
	}
	return &rec, nil
}

// Complete stores the final response for replay.
func (s *Store) Complete(ctx context.Context, scope, k string, rec Record) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(scope, k), b, s.ttl).Err()
}

// Release drops the key so the request can be attempted again.
func (s *Store) Release(ctx context.Context, scope, k string) error {
	return s.rdb.Del(ctx, key(scope, k)).Err()
}
