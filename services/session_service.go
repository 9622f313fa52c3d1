package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openlearnhub/liveclass/cache"
	"github.com/openlearnhub/liveclass/domain"
	errs "github.com/openlearnhub/liveclass/errors"
)

// SessionService owns the session lifecycle: creation with optional
// recurrence expansion, schedule edits, deletion, and the explicit
// scheduled -> live -> completed transitions.
type SessionService struct {
	repo       domain.SessionRepository
	cache      cache.SessionCache
	policy     domain.AccessPolicy
	courses    domain.CourseDirectory
	recurrence *RecurrenceGenerator
	baseURL    string
	now        func() time.Time
}

// NewSessionService wires the lifecycle engine. baseURL is the public prefix
// meeting links are minted under.
func NewSessionService(
	repo domain.SessionRepository,
	sc cache.SessionCache,
	policy domain.AccessPolicy,
	courses domain.CourseDirectory,
	baseURL string,
) *SessionService {
	return &SessionService{
		repo:       repo,
		cache:      sc,
		policy:     policy,
		courses:    courses,
		recurrence: NewRecurrenceGenerator(repo, baseURL),
		baseURL:    baseURL,
		now:        time.Now,
	}
}

// CreateResult is the outcome of Create. Warnings report occurrences the
// recurrence generator failed to persist; the base session always stands.
type CreateResult struct {
	Session  *domain.Session `json:"session"`
	Warnings []string        `json:"warnings,omitempty"`
}

// newMeetingID derives the immutable meeting identifier from the session id
// and creation instant. Assigned exactly once, at first persistence.
func newMeetingID(sessionID string, t time.Time) string {
	sum := sha256.Sum256([]byte(sessionID + "|" + t.UTC().Format(time.RFC3339Nano)))
	return "lc-" + hex.EncodeToString(sum[:6])
}

func meetingLink(baseURL, meetingID string) string {
	return strings.TrimSuffix(baseURL, "/") + "/meet/" + meetingID
}

// Create validates the input, checks the course exists, authorizes the
// creator, persists the base session, and expands recurrence synchronously.
// A recurrence failure is reported in the result but never rolls the base
// session back.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput, creatorID string) (*CreateResult, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	exists, err := s.courses.CourseExists(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.NewNotFound("course")
	}

	if err := s.authorizeCourseStaff(ctx, creatorID, in.CourseID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := uuid.NewString()
	mid := newMeetingID(id, now)

	settings := domain.DefaultSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	session := &domain.Session{
		ID:              id,
		MeetingID:       mid,
		MeetingLink:     meetingLink(s.baseURL, mid),
		Title:           in.Title,
		Description:     in.Description,
		CourseID:        in.CourseID,
		InstructorID:    in.InstructorID,
		ScheduledDate:   in.ScheduledDate,
		ScheduledTime:   in.ScheduledTime,
		Duration:        in.Duration,
		SessionType:     in.SessionType,
		MaxParticipants: in.MaxParticipants,
		Status:          domain.SessionStatusScheduled,
		IsRecurring:     in.IsRecurring,
		Participants:    []domain.Participant{},
		Materials:       []domain.Material{},
		Feedback:        []domain.Feedback{},
		Settings:        settings,
	}
	if in.IsRecurring {
		session.RecurringPattern = in.RecurringPattern
		end := in.RecurringEndDate
		if end == nil {
			d := in.ScheduledDate.AddDate(0, 0, defaultRecurrenceWindowDays)
			end = &d
		}
		session.RecurringEndDate = end
	}

	if err := s.repo.Insert(ctx, session); err != nil {
		if stderrors.Is(err, domain.ErrDuplicateSession) {
			return nil, errs.NewConflict("session already exists, please retry")
		}
		return nil, err
	}

	result := &CreateResult{Session: session}
	if session.IsRecurring {
		created, warnings := s.recurrence.Expand(ctx, session)
		result.Warnings = warnings
		log.Info().
			Str("sessionID", session.ID).
			Str("pattern", string(session.RecurringPattern)).
			Int("occurrences", created).
			Int("failed", len(warnings)).
			Msg("Recurring session expanded")
	}

	log.Info().
		Str("sessionID", session.ID).
		Str("courseID", session.CourseID).
		Str("meetingID", session.MeetingID).
		Msg("Session created")
	return result, nil
}

// Get returns a session view, served from the snapshot cache when possible.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrSessionNotFound) {
			return nil, errs.NewNotFound("session")
		}
		return nil, err
	}
	s.cache.Set(ctx, session)
	return session, nil
}

// List returns a page of sessions matching the filter plus the total count.
func (s *SessionService) List(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int64, error) {
	return s.repo.List(ctx, filter)
}

// Update patches editable fields. Only the session's instructor or an admin
// may edit, and never once the session is live or finished.
func (s *SessionService) Update(ctx context.Context, id string, in UpdateSessionInput, callerID string) (*domain.Session, error) {
	if err := validateUpdate(&in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(session *domain.Session) error {
		if err := s.authorizeSessionStaff(ctx, callerID, session); err != nil {
			return err
		}
		if session.Status == domain.SessionStatusLive || session.Status == domain.SessionStatusCompleted {
			return errs.NewInvalidState("cannot edit a " + string(session.Status) + " session")
		}

		if in.Title != nil {
			session.Title = *in.Title
		}
		if in.Description != nil {
			session.Description = *in.Description
		}
		if in.ScheduledDate != nil {
			session.ScheduledDate = *in.ScheduledDate
		}
		if in.ScheduledTime != nil {
			session.ScheduledTime = *in.ScheduledTime
		}
		if in.Duration != nil {
			session.Duration = *in.Duration
		}
		if in.SessionType != nil {
			session.SessionType = *in.SessionType
		}
		if in.MaxParticipants != nil {
			session.MaxParticipants = *in.MaxParticipants
		}
		if in.Settings != nil {
			session.Settings = *in.Settings
		}
		return nil
	})
}

// Delete removes a session. Rejected while live; siblings generated from a
// recurring session are independent aggregates and are not cascaded.
func (s *SessionService) Delete(ctx context.Context, id, callerID string) error {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrSessionNotFound) {
			return errs.NewNotFound("session")
		}
		return err
	}
	if err := s.authorizeSessionStaff(ctx, callerID, session); err != nil {
		return err
	}
	if session.Status == domain.SessionStatusLive {
		return errs.NewInvalidState("cannot delete a live session")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, domain.ErrSessionNotFound) {
			return errs.NewNotFound("session")
		}
		return err
	}
	s.cache.Delete(ctx, id)
	log.Info().Str("sessionID", id).Msg("Session deleted")
	return nil
}

// Start moves a scheduled session live.
func (s *SessionService) Start(ctx context.Context, id, callerID string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(session *domain.Session) error {
		if err := s.authorizeSessionStaff(ctx, callerID, session); err != nil {
			return err
		}
		if session.Status != domain.SessionStatusScheduled {
			return errs.NewInvalidState("session can only be started while scheduled, current status is " + string(session.Status))
		}
		markLive(session, s.now())
		return nil
	})
}

// End completes a live session, deriving actual duration and snapshotting the
// attendance count.
func (s *SessionService) End(ctx context.Context, id, callerID string, in EndSessionInput) (*domain.Session, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(session *domain.Session) error {
		if err := s.authorizeSessionStaff(ctx, callerID, session); err != nil {
			return err
		}
		if session.Status != domain.SessionStatusLive {
			return errs.NewInvalidState("session can only be ended while live, current status is " + string(session.Status))
		}
		markCompleted(session, s.now())
		if in.RecordingURL != "" {
			session.RecordingURL = in.RecordingURL
		}
		return nil
	})
}

// AddMaterial attaches a resource reference to the session.
func (s *SessionService) AddMaterial(ctx context.Context, id string, in MaterialInput, callerID string) (*domain.Session, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(session *domain.Session) error {
		if err := s.authorizeSessionStaff(ctx, callerID, session); err != nil {
			return err
		}
		session.Materials = append(session.Materials, domain.Material{
			Name:       in.Name,
			Type:       in.Type,
			URL:        in.URL,
			Size:       in.Size,
			UploadedAt: s.now().UTC(),
		})
		return nil
	})
}

// AddFeedback records a participant's rating, once per user, only after the
// session completed.
func (s *SessionService) AddFeedback(ctx context.Context, id string, in FeedbackInput, callerID string) (*domain.Session, error) {
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(session *domain.Session) error {
		if session.Status != domain.SessionStatusCompleted {
			return errs.NewInvalidState("feedback can only be submitted after the session completed")
		}
		if session.Participant(callerID) == nil {
			return errs.NewForbidden("only participants of this session may submit feedback")
		}
		if session.HasFeedbackFrom(callerID) {
			return errs.NewInvalidState("feedback already submitted")
		}
		session.Feedback = append(session.Feedback, domain.Feedback{
			UserID:      callerID,
			Rating:      in.Rating,
			Comment:     in.Comment,
			SubmittedAt: s.now().UTC(),
		})
		return nil
	})
}

// GetAnalytics computes the read-only attendance statistics for a session.
func (s *SessionService) GetAnalytics(ctx context.Context, id string) (*SessionAnalytics, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	analytics := ComputeAnalytics(session)
	return &analytics, nil
}

func (s *SessionService) mutate(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	return mutateSession(ctx, s.repo, s.cache, id, fn)
}

// authorizeCourseStaff passes for admins and the instructor of courseID.
func (s *SessionService) authorizeCourseStaff(ctx context.Context, userID, courseID string) error {
	admin, err := s.policy.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}
	instructor, err := s.policy.IsCourseInstructor(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if instructor {
		return nil
	}
	return errs.NewForbidden("caller must be the course instructor or an admin")
}

// authorizeSessionStaff passes for admins and the session's own instructor.
func (s *SessionService) authorizeSessionStaff(ctx context.Context, callerID string, session *domain.Session) error {
	if callerID == session.InstructorID {
		return nil
	}
	admin, err := s.policy.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}
	return errs.NewForbidden("caller must be the session instructor or an admin")
}
