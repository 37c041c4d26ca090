// Package session keeps login sessions in Redis. A session is an opaque
// bearer token mapping to the identity of the logged-in account.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnauthenticated is returned when a token is missing, expired or unknown.
var ErrUnauthenticated = errors.New("session: unauthenticated")

const keyPrefix = "session:"

// Identity is the authenticated account attached to a token.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Store manages sessions on a Redis client.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore connects to Redis.
func NewStore(cfg Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewStoreWithClient(client, cfg.TTL)
}

// NewStoreWithClient wraps an existing client, used by tests.
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Ping tests the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Create issues a fresh token for the identity.
func (s *Store) Create(ctx context.Context, identity Identity) (string, error) {
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("marshal identity: %w", err)
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its identity and refreshes the TTL.
func (s *Store) Get(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	payload, err := s.client.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(payload), &identity); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	// Sliding expiration; a failed refresh is not fatal.
	s.client.Expire(ctx, keyPrefix+token, s.ttl)

	return &identity, nil
}

// Delete invalidates a token on logout.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
