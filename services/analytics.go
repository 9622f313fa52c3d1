package services

import (
	"math"

	"github.com/openlearnhub/liveclass/domain"
)

// SessionAnalytics is the read-only statistics view derived from one session.
type SessionAnalytics struct {
	SessionID                 string  `json:"sessionId"`
	TotalRegistered           int     `json:"totalRegistered"`
	TotalAttended             int     `json:"totalAttended"`
	AttendanceRate            float64 `json:"attendanceRate"`
	AverageAttendanceDuration float64 `json:"averageAttendanceDuration"`
	SessionDuration           int     `json:"sessionDuration"`
}

// ComputeAnalytics derives attendance statistics from a loaded session. Pure
// function, no side effects. TotalAttended counts everyone who ever joined
// (including those who left since), unlike the end-of-session attendance
// count, which snapshots who was joined at that instant. The average covers
// only participants with a recorded positive attendance duration.
func ComputeAnalytics(s *domain.Session) SessionAnalytics {
	registered := len(s.Participants)

	attended := 0
	durationSum := 0
	durationCount := 0
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.JoinedAt != nil {
			attended++
		}
		if p.AttendanceDuration > 0 {
			durationSum += p.AttendanceDuration
			durationCount++
		}
	}

	rate := 0.0
	if registered > 0 {
		rate = math.Round(float64(attended)/float64(registered)*100*100) / 100
	}

	if durationCount == 0 {
		durationCount = 1
	}

	return SessionAnalytics{
		SessionID:                 s.ID,
		TotalRegistered:           registered,
		TotalAttended:             attended,
		AttendanceRate:            rate,
		AverageAttendanceDuration: float64(durationSum) / float64(durationCount),
		SessionDuration:           s.ActualDuration,
	}
}
