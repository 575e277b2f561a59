package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voltswap/internal/session"
)

// SessionCache mirrors active walk-in sessions into redis so dashboards can
// list them without touching the in-memory store. The mirror is write-only
// from the wizard's point of view: it is never read back as source of truth.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache returns redis-backed cache.
func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionCache{client: client, ttl: ttl}
}

func (c *SessionCache) key(sessionID string) string {
	return fmt.Sprintf("walkin:active:%s", sessionID)
}

// Save caches the session snapshot.
func (c *SessionCache) Save(ctx context.Context, sess *session.SwapSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(sess.ID), data, c.ttl).Err()
}

// Get returns one cached snapshot.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*session.SwapSession, error) {
	result, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var sess session.SwapSession
	if err := json.Unmarshal([]byte(result), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the cached snapshot.
func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
