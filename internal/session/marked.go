package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MarkedSet is the fast insert-if-absent membership check that
// serializes concurrent marks for one session. The database constraint
// remains the source of truth; this only short-circuits re-marks.
type MarkedSet interface {
	// Add returns true when user_id was not yet in the session's set.
	Add(ctx context.Context, sessionID, userID string) (bool, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisMarkedSet backs the set with a redis SADD per session key.
type RedisMarkedSet struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMarkedSet creates a redis-backed set whose keys expire with
// the session max age.
func NewRedisMarkedSet(client *redis.Client, ttl time.Duration) *RedisMarkedSet {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisMarkedSet{client: client, ttl: ttl}
}

func (m *RedisMarkedSet) key(sessionID string) string {
	return "faceattend:session:" + sessionID + ":marked"
}

// Add inserts atomically; SADD reports whether the member was new.
func (m *RedisMarkedSet) Add(ctx context.Context, sessionID, userID string) (bool, error) {
	key := m.key(sessionID)
	added, err := m.client.SAdd(ctx, key, userID).Result()
	if err != nil {
		return false, err
	}
	m.client.Expire(ctx, key, m.ttl)
	return added > 0, nil
}

// Clear drops the session's set.
func (m *RedisMarkedSet) Clear(ctx context.Context, sessionID string) error {
	return m.client.Del(ctx, m.key(sessionID)).Err()
}

// MemoryMarkedSet is the in-process backend for dev and tests.
type MemoryMarkedSet struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
}

// NewMemoryMarkedSet creates an empty in-memory set.
func NewMemoryMarkedSet() *MemoryMarkedSet {
	return &MemoryMarkedSet{sets: make(map[string]map[string]bool)}
}

// Add inserts under the lock.
func (m *MemoryMarkedSet) Add(ctx context.Context, sessionID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[sessionID]
	if !ok {
		set = make(map[string]bool)
		m.sets[sessionID] = set
	}
	if set[userID] {
		return false, nil
	}
	set[userID] = true
	return true, nil
}

// Clear drops the session's set.
func (m *MemoryMarkedSet) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, sessionID)
	return nil
}
