package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/openlearnhub/liveclass/domain"
)

// MemorySessionCache implements SessionCache using ttlcache.
type MemorySessionCache struct {
	cache *ttlcache.Cache[string, *domain.Session]
}

// NewMemorySessionCache creates an in-memory cache whose entries expire after
// ttl, with automatic cleanup.
func NewMemorySessionCache(ttl time.Duration) *MemorySessionCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.Session](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.Session](),
	)

	go c.Start()

	return &MemorySessionCache{cache: c}
}

func (m *MemorySessionCache) Get(_ context.Context, id string) (*domain.Session, bool) {
	item := m.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (m *MemorySessionCache) Set(_ context.Context, session *domain.Session) {
	m.cache.Set(session.ID, session, ttlcache.DefaultTTL)
}

func (m *MemorySessionCache) Delete(_ context.Context, id string) {
	m.cache.Delete(id)
}

// Close stops the cleanup goroutine.
func (m *MemorySessionCache) Close() {
	m.cache.Stop()
}

var _ SessionCache = (*MemorySessionCache)(nil)
