package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var (
	_ ports.Store        = (*RedisStore)(nil)
	_ ports.NonceStore   = (*RedisNonceStore)(nil)
	_ ports.SessionStore = (*RedisSessionStore)(nil)
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis revocation store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "walletauth:revoked:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// RedisNonceStore keeps challenges as JSON under a TTL. Consume uses GETDEL
// so a nonce can be redeemed only once across backend replicas.
type RedisNonceStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNonceStore(client redis.UniversalClient) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "walletauth:nonce:",
	}
}

func (s *RedisNonceStore) Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+challenge.Nonce, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (*core.Challenge, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+nonce).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	var ch core.Challenge
	if err := json.Unmarshal(payload, &ch); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &ch, nil
}

// RedisSessionStore keeps the client session record under a fixed key
// without a TTL; validity is decided by the session itself.
type RedisSessionStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSessionStore(client redis.UniversalClient, projectID string) *RedisSessionStore {
	return &RedisSessionStore{client: client, key: SessionKey(projectID)}
}

func (s *RedisSessionStore) Load(ctx context.Context) (*core.SessionRecord, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeRecord(payload)
}

func (s *RedisSessionStore) Save(ctx context.Context, rec *core.SessionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
