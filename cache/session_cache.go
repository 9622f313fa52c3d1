package cache

import (
	"context"

	"github.com/openlearnhub/liveclass/domain"
)

// SessionCache holds read-side snapshots of session aggregates keyed by id.
// It is a best-effort optimization for Get/analytics reads: writers invalidate
// after every successful mutation, and a stale or missing entry simply falls
// through to the repository. It never participates in write serialization.
type SessionCache interface {
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Set(ctx context.Context, session *domain.Session)
	Delete(ctx context.Context, id string)
}

// Nop is a SessionCache that caches nothing; useful in tests and when caching
// is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Session, bool) { return nil, false }
func (Nop) Set(context.Context, *domain.Session)                {}
func (Nop) Delete(context.Context, string)                      {}
