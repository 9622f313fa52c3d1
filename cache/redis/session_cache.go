package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/openlearnhub/liveclass/cache"
	"github.com/openlearnhub/liveclass/domain"
)

// SessionCache implements cache.SessionCache on Redis, for deployments where
// several service instances should share the read-side snapshots.
type SessionCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionCache creates a Redis-backed session cache. Keys are namespaced
// with prefix so the service can share an instance with other tenants.
func NewSessionCache(client *redis.Client, prefix string, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *SessionCache) key(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *SessionCache) Get(ctx context.Context, id string) (*domain.Session, bool) {
	payload, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("sessionID", id).Msg("Redis session cache read failed")
		}
		return nil, false
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		// A corrupt entry must not poison reads; drop it.
		r.Delete(ctx, id)
		return nil, false
	}
	return &session, true
}

func (r *SessionCache) Set(ctx context.Context, session *domain.Session) {
	payload, err := json.Marshal(session)
	if err != nil {
		log.Warn().Err(err).Str("sessionID", session.ID).Msg("Failed to marshal session for cache")
		return
	}
	if err := r.client.Set(ctx, r.key(session.ID), payload, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("sessionID", session.ID).Msg("Redis session cache write failed")
	}
}

func (r *SessionCache) Delete(ctx context.Context, id string) {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		log.Warn().Err(err).Str("sessionID", id).Msg("Redis session cache delete failed")
	}
}

var _ cache.SessionCache = (*SessionCache)(nil)
