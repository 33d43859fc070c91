package viewport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists a selection across page reloads within one
// browsing session.  The selection is cleared when the purchase flow
// completes or is cancelled.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, cellIDs []string) error
	Load(ctx context.Context, sessionID string) ([]string, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisSessions stores selections in Redis with a TTL so abandoned
// sessions age out on their own.
type RedisSessions struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessions returns a Redis-backed session store.
func NewRedisSessions(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSessions {
	if prefix == "" {
		prefix = "viewport:selection"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessions{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisSessions) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisSessions) Save(ctx context.Context, sessionID string, cellIDs []string) error {
	body, err := json.Marshal(cellIDs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(sessionID), body, s.ttl).Err()
}

func (s *RedisSessions) Load(ctx context.Context, sessionID string) ([]string, error) {
	body, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *RedisSessions) Clear(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}

// MemorySessions is the in-process SessionStore used by tests and by
// development setups without Redis.
type MemorySessions struct {
	mu   sync.Mutex
	sets map[string][]string
}

// NewMemorySessions returns an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sets: make(map[string][]string)}
}

func (s *MemorySessions) Save(_ context.Context, sessionID string, cellIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(cellIDs))
	copy(cp, cellIDs)
	s.sets[sessionID] = cp
	return nil
}

func (s *MemorySessions) Load(_ context.Context, sessionID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.sets[sessionID]
	if !ok {
		return nil, nil
	}
	cp := make([]string, len(ids))
	copy(cp, ids)
	return cp, nil
}

func (s *MemorySessions) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, sessionID)
	return nil
}
