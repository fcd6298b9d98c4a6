// Package session keeps cookie sessions in Redis. Session ids are opaque
// random tokens; only their SHA-256 is used as a key.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reelwork/marketplace/pkg/utils"
)

// ErrNotFound is returned when a session is missing or expired.
var ErrNotFound = errors.New("session not found")

// Session is a server-side login.
type Session struct {
	ID        string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUser revokes every session of userID.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// RedisStore is a Store on Redis with TTL-based expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "session:"}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) key(id string) string { return s.prefix + utils.SHA256Hex(id) }

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return "user_sessions:" + userID.String()
}

func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		return Session{}, errors.New("session ttl must be positive")
	}
	id, err := utils.RandomToken(32)
	if err != nil {
		return Session{}, err
	}
	now := time.Now().UTC()
	sess := Session{ID: id, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}

	key := s.key(id)
	userKey := s.userKey(userID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, data, ttl)
		p.SAdd(ctx, userKey, key)
		p.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("redis save session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.Delete(ctx, id)
		return Session{}, ErrNotFound
	}
	sess.ID = id
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	key := s.key(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis get: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		var sess Session
		if len(data) > 0 && json.Unmarshal(data, &sess) == nil {
			p.SRem(ctx, s.userKey(sess.UserID), key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	userKey := s.userKey(userID)
	keys, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis list sessions: %w", err)
	}
	if err := s.client.Del(ctx, append(keys, userKey)...).Err(); err != nil {
		return fmt.Errorf("redis revoke sessions: %w", err)
	}
	return nil
}
