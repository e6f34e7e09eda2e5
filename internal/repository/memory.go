package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tennisluv/internal/session"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process. Sessions are stored as
// JSON so callers never share a pointer with the store.
type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	rateMu     sync.Mutex
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	val, ok := r.sessions.Load(id)
	if !ok {
		return nil, nil
	}
	item := val.(memoryItem)
	if r.ttl > 0 && r.now().After(item.expiresAt) {
		r.sessions.Delete(id)
		return nil, nil
	}
	var s session.Session
	if err := json.Unmarshal(item.data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *MemorySessionRepository) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	r.sessions.Store(s.ID, memoryItem{data: data, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.sessions.Delete(id)
	return nil
}

// Sweep drops expired sessions and rate-limit windows.
func (r *MemorySessionRepository) Sweep() int {
	now := r.now()
	removed := 0
	r.sessions.Range(func(key, val any) bool {
		if r.ttl > 0 && now.After(val.(memoryItem).expiresAt) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	r.rateLimits.Range(func(key, val any) bool {
		if now.After(val.(*rateLimitEntry).expiresAt) {
			r.rateLimits.Delete(key)
		}
		return true
	})
	return removed
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
