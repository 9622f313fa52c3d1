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

// ParticipationService owns join/leave semantics: capacity enforcement,
// attendance-duration computation, and the implicit lifecycle transitions
// triggered by instructor presence.
type ParticipationService struct {
	repo   domain.SessionRepository
	cache  cache.SessionCache
	policy domain.AccessPolicy
	now    func() time.Time
}

func NewParticipationService(repo domain.SessionRepository, sc cache.SessionCache, policy domain.AccessPolicy) *ParticipationService {
	return &ParticipationService{
		repo:   repo,
		cache:  sc,
		policy: policy,
		now:    time.Now,
	}
}

// JoinResult hands the caller what it needs for the external media transport.
type JoinResult struct {
	MeetingID   string `json:"meetingId"`
	MeetingLink string `json:"meetingLink"`
}

// Join registers the user if needed and marks them joined. Non-staff callers
// must be enrolled in the course and fit under maxParticipants, where capacity
// counts currently joined participants only. The instructor joining a
// scheduled session implicitly starts it. Join of an already joined or left
// participant returns the meeting link without mutating the record, keeping
// participant transitions one-way.
//
// The capacity decision and the write happen inside the versioned replace
// loop, so concurrent joins on the same session cannot both slip under the
// limit.
func (p *ParticipationService) Join(ctx context.Context, sessionID, userID string) (*JoinResult, error) {
	session, err := p.repo.GetByID(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, domain.ErrSessionNotFound) {
			return nil, errs.NewNotFound("session")
		}
		return nil, err
	}

	staff, err := p.isStaff(ctx, userID, session)
	if err != nil {
		return nil, err
	}
	if !staff {
		enrolled, err := p.policy.IsEnrolled(ctx, userID, session.CourseID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, errs.NewForbidden("caller is not enrolled in this course")
		}
	}

	updated, err := mutateSession(ctx, p.repo, p.cache, sessionID, func(s *domain.Session) error {
		part := s.Participant(userID)
		if part == nil {
			s.Participants = append(s.Participants, domain.Participant{
				UserID: userID,
				Status: domain.ParticipantRegistered,
			})
			part = &s.Participants[len(s.Participants)-1]
		}

		if part.Status != domain.ParticipantRegistered {
			return errNoChange
		}

		if !staff && s.JoinedCount() >= s.MaxParticipants {
			return errs.NewCapacityExceeded()
		}

		now := p.now().UTC()
		part.Status = domain.ParticipantJoined
		part.JoinedAt = &now

		if s.Status == domain.SessionStatusScheduled && userID == s.InstructorID {
			markLive(s, now)
			log.Info().Str("sessionID", s.ID).Msg("Session went live on instructor join")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &JoinResult{MeetingID: updated.MeetingID, MeetingLink: updated.MeetingLink}, nil
}

// Leave marks a joined participant as left and computes their attendance
// duration in whole minutes, floored at zero against clock skew. The
// instructor leaving a live session implicitly ends it. Leaving while not
// joined is a no-op, not an error.
func (p *ParticipationService) Leave(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	return mutateSession(ctx, p.repo, p.cache, sessionID, func(s *domain.Session) error {
		part := s.Participant(userID)
		if part == nil || part.Status != domain.ParticipantJoined {
			return errNoChange
		}

		now := p.now().UTC()
		part.Status = domain.ParticipantLeft
		part.LeftAt = &now
		if part.JoinedAt != nil {
			minutes := int(now.Sub(*part.JoinedAt).Minutes())
			if minutes < 0 {
				minutes = 0
			}
			part.AttendanceDuration = minutes
		}

		if userID == s.InstructorID && s.Status == domain.SessionStatusLive {
			markCompleted(s, now)
			log.Info().Str("sessionID", s.ID).Msg("Session completed on instructor leave")
		}
		return nil
	})
}

func (p *ParticipationService) isStaff(ctx context.Context, userID string, session *domain.Session) (bool, error) {
	if userID == session.InstructorID {
		return true, nil
	}
	return p.policy.IsAdmin(ctx, userID)
}
