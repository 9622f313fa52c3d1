package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openlearnhub/liveclass/domain"
)

const defaultRecurrenceWindowDays = 90

// RecurrenceGenerator expands a recurring base session into a bounded series
// of sibling sessions. Siblings are full, independent aggregates that only
// point back at the base through ParentSessionID.
type RecurrenceGenerator struct {
	repo    domain.SessionRepository
	baseURL string
	now     func() time.Time
}

func NewRecurrenceGenerator(repo domain.SessionRepository, baseURL string) *RecurrenceGenerator {
	return &RecurrenceGenerator{
		repo:    repo,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Expand derives and persists every occurrence between the base date and the
// recurrence end date, one batch write. It returns the number persisted plus
// one warning per occurrence lost; the base session is never rolled back.
func (g *RecurrenceGenerator) Expand(ctx context.Context, base *domain.Session) (int, []string) {
	if !base.IsRecurring || base.RecurringPattern == "" {
		return 0, nil
	}

	end := base.ScheduledDate.AddDate(0, 0, defaultRecurrenceWindowDays)
	if base.RecurringEndDate != nil {
		end = *base.RecurringEndDate
	}

	dates := expandDates(base.ScheduledDate, end, base.RecurringPattern)
	if len(dates) == 0 {
		return 0, nil
	}

	clones := make([]*domain.Session, 0, len(dates))
	for _, date := range dates {
		clone := deriveOccurrence(base, date)
		clone.ID = uuid.NewString()
		clone.MeetingID = newMeetingID(clone.ID, g.now())
		clone.MeetingLink = meetingLink(g.baseURL, clone.MeetingID)
		clones = append(clones, clone)
	}

	failed, err := g.repo.InsertMany(ctx, clones)
	if err != nil {
		log.Error().Err(err).Str("sessionID", base.ID).Msg("Recurrence expansion failed")
		warnings := make([]string, 0, len(clones))
		for _, c := range clones {
			warnings = append(warnings, occurrenceWarning(c.ScheduledDate, err))
		}
		return 0, warnings
	}

	warnings := make([]string, 0, len(failed))
	for _, idx := range failed {
		if idx >= 0 && idx < len(clones) {
			warnings = append(warnings, occurrenceWarning(clones[idx].ScheduledDate, nil))
		}
	}
	return len(clones) - len(warnings), warnings
}

func occurrenceWarning(date time.Time, err error) string {
	if err != nil {
		return fmt.Sprintf("occurrence on %s was not created: %v", date.Format("2006-01-02"), err)
	}
	return fmt.Sprintf("occurrence on %s was not created", date.Format("2006-01-02"))
}

// deriveOccurrence clones the base session for one occurrence date. Identity,
// meeting fields, timestamps, participants, materials, feedback, actuals,
// attendance count and the recording reference are deliberately not copied;
// the clone starts its lifecycle from scratch and references the base through
// ParentSessionID.
func deriveOccurrence(base *domain.Session, date time.Time) *domain.Session {
	return &domain.Session{
		Title:            base.Title,
		Description:      base.Description,
		CourseID:         base.CourseID,
		InstructorID:     base.InstructorID,
		ScheduledDate:    date,
		ScheduledTime:    base.ScheduledTime,
		Duration:         base.Duration,
		SessionType:      base.SessionType,
		MaxParticipants:  base.MaxParticipants,
		Status:           domain.SessionStatusScheduled,
		IsRecurring:      base.IsRecurring,
		RecurringPattern: base.RecurringPattern,
		RecurringEndDate: base.RecurringEndDate,
		ParentSessionID:  base.ID,
		Participants:     []domain.Participant{},
		Materials:        []domain.Material{},
		Feedback:         []domain.Feedback{},
		Settings:         base.Settings,
	}
}

// expandDates walks the cursor one pattern step at a time, emitting every
// date up to and including end. The base date itself is never emitted; the
// first occurrence is one interval after it.
func expandDates(start, end time.Time, pattern domain.RecurringPattern) []time.Time {
	var dates []time.Time
	cursor := start
	for {
		cursor = advance(cursor, pattern)
		if cursor.After(end) {
			return dates
		}
		dates = append(dates, cursor)
	}
}

func advance(t time.Time, pattern domain.RecurringPattern) time.Time {
	switch pattern {
	case domain.RecurringBiweekly:
		return t.AddDate(0, 0, 14)
	case domain.RecurringMonthly:
		return addMonthClamped(t)
	default:
		return t.AddDate(0, 0, 7)
	}
}

// addMonthClamped advances one calendar month, clamping the day-of-month to
// the target month's length (Jan 31 -> Feb 28) instead of letting time.Date
// normalize into the month after.
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
