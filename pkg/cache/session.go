package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionData is what the auth middleware needs to authorize a request.
type SessionData struct {
	UserID    uuid.UUID `json:"user_id"`
	IsStaff   bool      `json:"is_staff"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCache sits in front of the sessions table. Get returns nil, nil on a miss.
type SessionCache interface {
	Get(ctx context.Context, token string) (*SessionData, error)
	Set(ctx context.Context, token string, data *SessionData) error
	Delete(ctx context.Context, token string) error
}

// NewSessionCache returns a Redis backed cache, or a no-op one when client is nil.
func NewSessionCache(client *redis.Client, ttl time.Duration, log *zap.Logger) SessionCache {
	if client == nil {
		return nopSessionCache{}
	}
	return &redisSessionCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "session")),
	}
}

type redisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func sessionKey(token string) string {
	return "session:" + token
}

// entryTTL never lets a cached entry outlive the session itself.
func entryTTL(ttl time.Duration, now, expiresAt time.Time) time.Duration {
	if left := expiresAt.Sub(now); left < ttl {
		return left
	}
	return ttl
}

func (c *redisSessionCache) Get(ctx context.Context, token string) (*SessionData, error) {
	raw, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached session: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		c.log.Warn("Dropping unreadable cached session", zap.Error(err))
		_ = c.client.Del(ctx, sessionKey(token)).Err()
		return nil, nil
	}

	if !time.Now().Before(data.ExpiresAt) {
		return nil, nil
	}

	return &data, nil
}

func (c *redisSessionCache) Set(ctx context.Context, token string, data *SessionData) error {
	ttl := entryTTL(c.ttl, time.Now(), data.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := c.client.Set(ctx, sessionKey(token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	return nil
}

func (c *redisSessionCache) Delete(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("evict cached session: %w", err)
	}
	return nil
}

type nopSessionCache struct{}

func (nopSessionCache) Get(context.Context, string) (*SessionData, error) { return nil, nil }
func (nopSessionCache) Set(context.Context, string, *SessionData) error   { return nil }
func (nopSessionCache) Delete(context.Context, string) error              { return nil }
