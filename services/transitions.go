package services

import (
	"math"
	"time"

	"github.com/openlearnhub/liveclass/domain"
)

// markLive moves a session into the live state and records the actual start.
// Callers guard that the current status is scheduled.
func markLive(s *domain.Session, now time.Time) {
	t := now.UTC()
	s.Status = domain.SessionStatusLive
	s.ActualStartTime = &t
}

// markCompleted finishes a live session: it stamps the actual end, derives the
// actual duration when a start was recorded, and snapshots the attendance
// count as the number of participants joined at this instant.
func markCompleted(s *domain.Session, now time.Time) {
	t := now.UTC()
	s.Status = domain.SessionStatusCompleted
	s.ActualEndTime = &t
	if s.ActualStartTime != nil {
		s.ActualDuration = int(math.Round(t.Sub(*s.ActualStartTime).Seconds() / 60.0))
	}
	s.AttendanceCount = s.JoinedCount()
}
