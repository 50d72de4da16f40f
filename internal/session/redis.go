// Package session provides per-chat conversation state storage.
//
// This file implements a Redis-backed store so that multiple bot instances
// can share sessions.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yahahealth/yaha/internal/models"
)

// DefaultSessionTTL bounds how long an abandoned flow lingers in Redis.
const DefaultSessionTTL = 24 * time.Hour

// Opts holds configuration for the Redis session store.
type Opts struct {
	Addr string
	TTL  time.Duration
}

// Option configures the Redis session store.
type Option func(*Opts)

// WithAddr sets the Redis server address (host:port).
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTTL sets the session expiry. Zero keeps the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// RedisStore is a Store backed by Redis, with sessions JSON-encoded under
// a per-chat key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store and verifies connectivity.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		slog.Error("RedisStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultSessionTTL
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("RedisStore ping failed", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	slog.Debug("RedisStore connected", "addr", cfg.Addr, "ttl", cfg.TTL)
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("yaha:session:%d", chatID)
}

// Get returns the active state for a chat, or nil if none exists.
func (s *RedisStore) Get(ctx context.Context, chatID int64) (*models.ConversationState, error) {
	raw, err := s.client.Get(ctx, sessionKey(chatID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore Get failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("session get failed: %w", err)
	}

	var state models.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		slog.Error("RedisStore Get unmarshal failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("session decode failed: %w", err)
	}
	return &state, nil
}

// Set stores the state for a chat, replacing any existing state.
func (s *RedisStore) Set(ctx context.Context, chatID int64, state *models.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		slog.Error("RedisStore Set marshal failed", "error", err, "chatID", chatID)
		return fmt.Errorf("session encode failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(chatID), raw, s.ttl).Err(); err != nil {
		slog.Error("RedisStore Set failed", "error", err, "chatID", chatID)
		return fmt.Errorf("session set failed: %w", err)
	}
	slog.Debug("RedisStore Set succeeded", "chatID", chatID, "flow", state.Flow, "step", state.Step)
	return nil
}

// Clear removes the state for a chat. Clearing an absent chat is a no-op.
func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		slog.Error("RedisStore Clear failed", "error", err, "chatID", chatID)
		return fmt.Errorf("session clear failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
