package api

import (
	"github.com/openlearnhub/liveclass/domain"
	"github.com/openlearnhub/liveclass/services"
)

// CreateSessionRequest is the wire form of a session creation. Dates travel
// as YYYY-MM-DD strings; the handler parses them before handing off to the
// service layer.
type CreateSessionRequest struct {
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	CourseID         string                  `json:"courseId"`
	InstructorID     string                  `json:"instructorId"`
	ScheduledDate    string                  `json:"scheduledDate"`
	ScheduledTime    string                  `json:"scheduledTime"`
	Duration         int                     `json:"duration"`
	SessionType      string                  `json:"sessionType"`
	MaxParticipants  int                     `json:"maxParticipants"`
	IsRecurring      bool                    `json:"isRecurring"`
	RecurringPattern string                  `json:"recurringPattern"`
	RecurringEndDate string                  `json:"recurringEndDate"`
	Settings         *domain.SessionSettings `json:"settings"`
}

// UpdateSessionRequest is a partial patch; absent fields stay unchanged.
type UpdateSessionRequest struct {
	Title           *string                 `json:"title"`
	Description     *string                 `json:"description"`
	ScheduledDate   *string                 `json:"scheduledDate"`
	ScheduledTime   *string                 `json:"scheduledTime"`
	Duration        *int                    `json:"duration"`
	SessionType     *string                 `json:"sessionType"`
	MaxParticipants *int                    `json:"maxParticipants"`
	Settings        *domain.SessionSettings `json:"settings"`
}

type AddMaterialRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

type AddFeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type EndSessionRequest struct {
	RecordingURL string `json:"recordingUrl"`
}

// ListSessionsResponse is a page of sessions plus the total match count.
type ListSessionsResponse struct {
	Sessions []*domain.Session `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// CreateSessionResponse carries the created session and any recurrence
// expansion warnings.
type CreateSessionResponse struct {
	Session  *domain.Session `json:"session"`
	Warnings []string        `json:"warnings,omitempty"`
}

// JoinSessionResponse hands back the meeting identifiers for the external
// media transport.
type JoinSessionResponse struct {
	MeetingID   string `json:"meetingId"`
	MeetingLink string `json:"meetingLink"`
}

// AnalyticsResponse re-exports the service-level analytics view.
type AnalyticsResponse = services.SessionAnalytics
