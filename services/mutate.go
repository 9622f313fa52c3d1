package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openlearnhub/liveclass/cache"
	"github.com/openlearnhub/liveclass/domain"
	errs "github.com/openlearnhub/liveclass/errors"
)

const (
	casAttempts = 3
	casBackoff  = 10 * time.Millisecond
)

// errNoChange is returned by a mutation callback to signal that the operation
// is a no-op for the current state; the loaded session is handed back without
// a write.
var errNoChange = stderrors.New("no state change")

// mutateSession runs a load -> mutate -> versioned-replace loop for one
// session. The callback sees a freshly loaded aggregate on every attempt, so
// its decisions (capacity checks, status guards) are always made against the
// state the replace will be conditioned on. A callback error aborts without
// writing anything. The retry budget is bounded; exhausting it surfaces a
// retryable Conflict to the caller.
func mutateSession(
	ctx context.Context,
	repo domain.SessionRepository,
	sc cache.SessionCache,
	id string,
	fn func(*domain.Session) error,
) (*domain.Session, error) {
	for attempt := 1; attempt <= casAttempts; attempt++ {
		session, err := repo.GetByID(ctx, id)
		if err != nil {
			if stderrors.Is(err, domain.ErrSessionNotFound) {
				return nil, errs.NewNotFound("session")
			}
			return nil, err
		}

		if err := fn(session); err != nil {
			if stderrors.Is(err, errNoChange) {
				return session, nil
			}
			return nil, err
		}

		err = repo.Replace(ctx, session)
		if err == nil {
			sc.Delete(ctx, id)
			return session, nil
		}
		if stderrors.Is(err, domain.ErrSessionNotFound) {
			return nil, errs.NewNotFound("session")
		}
		if !stderrors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}

		log.Debug().Str("sessionID", id).Int("attempt", attempt).
			Msg("Session version conflict, retrying")
		time.Sleep(time.Duration(attempt) * casBackoff)
	}

	return nil, errs.NewConflict("session is being modified concurrently, please retry")
}
