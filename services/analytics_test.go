package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openlearnhub/liveclass/domain"
)

func TestComputeAnalyticsCountsEveryoneWhoEverJoined(t *testing.T) {
	joined := time.Date(2025, time.January, 10, 10, 0, 0, 0, time.UTC)
	left := joined.Add(10 * time.Minute)

	// Four registered, three ever joined; one of the three already left.
	s := &domain.Session{
		ID:             "s-1",
		ActualDuration: 60,
		Participants: []domain.Participant{
			{UserID: "u1", Status: domain.ParticipantJoined, JoinedAt: &joined},
			{UserID: "u2", Status: domain.ParticipantJoined, JoinedAt: &joined},
			{UserID: "u3", Status: domain.ParticipantLeft, JoinedAt: &joined, LeftAt: &left, AttendanceDuration: 10},
			{UserID: "u4", Status: domain.ParticipantRegistered},
		},
	}

	a := ComputeAnalytics(s)

	assert.Equal(t, "s-1", a.SessionID)
	assert.Equal(t, 4, a.TotalRegistered)
	assert.Equal(t, 3, a.TotalAttended)
	assert.Equal(t, 75.0, a.AttendanceRate)
	assert.Equal(t, 10.0, a.AverageAttendanceDuration)
	assert.Equal(t, 60, a.SessionDuration)
}

func TestComputeAnalyticsEmptySession(t *testing.T) {
	a := ComputeAnalytics(&domain.Session{ID: "s-empty"})

	assert.Zero(t, a.TotalRegistered)
	assert.Zero(t, a.TotalAttended)
	assert.Zero(t, a.AttendanceRate)
	assert.Zero(t, a.AverageAttendanceDuration)
}

func TestComputeAnalyticsRoundsRateToTwoDecimals(t *testing.T) {
	joined := time.Now().UTC()
	s := &domain.Session{
		Participants: []domain.Participant{
			{UserID: "u1", Status: domain.ParticipantJoined, JoinedAt: &joined},
			{UserID: "u2", Status: domain.ParticipantRegistered},
			{UserID: "u3", Status: domain.ParticipantRegistered},
		},
	}

	a := ComputeAnalytics(s)
	assert.Equal(t, 33.33, a.AttendanceRate)
}

func TestComputeAnalyticsAverageIgnoresStillJoined(t *testing.T) {
	joined := time.Now().UTC()
	s := &domain.Session{
		Participants: []domain.Participant{
			// Still joined, no duration recorded yet.
			{UserID: "u1", Status: domain.ParticipantJoined, JoinedAt: &joined},
			{UserID: "u2", Status: domain.ParticipantLeft, JoinedAt: &joined, AttendanceDuration: 30},
			{UserID: "u3", Status: domain.ParticipantLeft, JoinedAt: &joined, AttendanceDuration: 20},
		},
	}

	a := ComputeAnalytics(s)
	assert.Equal(t, 25.0, a.AverageAttendanceDuration)
}
