package domain

import "time"

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusCancelled is accepted on read so existing documents decode,
	// but no operation in this service produces it.
	SessionStatusCancelled SessionStatus = "cancelled"
)

// SessionType distinguishes how the session is delivered.
type SessionType string

const (
	SessionTypeLive     SessionType = "live"
	SessionTypeRecorded SessionType = "recorded"
	SessionTypeHybrid   SessionType = "hybrid"
)

// RecurringPattern is the cadence used to derive sibling sessions.
type RecurringPattern string

const (
	RecurringWeekly   RecurringPattern = "weekly"
	RecurringBiweekly RecurringPattern = "biweekly"
	RecurringMonthly  RecurringPattern = "monthly"
)

// ParticipantStatus tracks a user's attendance record within one session.
// Transitions are one-way: registered -> joined -> left.
type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantJoined     ParticipantStatus = "joined"
	ParticipantLeft       ParticipantStatus = "left"
)

// Participant is owned exclusively by one Session; it has no independent
// lifecycle. AttendanceDuration is whole minutes, set on joined -> left.
type Participant struct {
	UserID             string            `bson:"user_id" json:"userId"`
	Status             ParticipantStatus `bson:"status" json:"status"`
	JoinedAt           *time.Time        `bson:"joined_at,omitempty" json:"joinedAt,omitempty"`
	LeftAt             *time.Time        `bson:"left_at,omitempty" json:"leftAt,omitempty"`
	AttendanceDuration int               `bson:"attendance_duration" json:"attendanceDuration"`
}

// Material is an uploaded resource attached to a session. The URL points at
// external storage; this service only records the reference.
type Material struct {
	Name       string    `bson:"name" json:"name"`
	Type       string    `bson:"type" json:"type"`
	URL        string    `bson:"url" json:"url"`
	Size       int64     `bson:"size" json:"size"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploadedAt"`
}

// Feedback is a participant rating submitted after the session completed.
type Feedback struct {
	UserID      string    `bson:"user_id" json:"userId"`
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submittedAt"`
}

// SessionSettings holds the per-session feature toggles.
type SessionSettings struct {
	AllowRecording      bool `bson:"allow_recording" json:"allowRecording"`
	AllowChat           bool `bson:"allow_chat" json:"allowChat"`
	AllowScreenShare    bool `bson:"allow_screen_share" json:"allowScreenShare"`
	RequireRegistration bool `bson:"require_registration" json:"requireRegistration"`
	SendReminders       bool `bson:"send_reminders" json:"sendReminders"`
	AutoRecord          bool `bson:"auto_record" json:"autoRecord"`
}

// DefaultSettings returns the documented defaults: everything on except
// auto-recording.
func DefaultSettings() SessionSettings {
	return SessionSettings{
		AllowRecording:      true,
		AllowChat:           true,
		AllowScreenShare:    true,
		RequireRegistration: true,
		SendReminders:       true,
		AutoRecord:          false,
	}
}

// Session is the aggregate root for one scheduled or live instructional
// meeting. Participants, materials and feedback are embedded in the document;
// Version carries the optimistic concurrency stamp checked on every replace.
type Session struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	MeetingID   string `bson:"meeting_id" json:"meetingId"`
	MeetingLink string `bson:"meeting_link" json:"meetingLink"`

	Title        string `bson:"title" json:"title"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	CourseID     string `bson:"course_id" json:"courseId"`
	InstructorID string `bson:"instructor_id" json:"instructorId"`

	ScheduledDate   time.Time   `bson:"scheduled_date" json:"scheduledDate"`
	ScheduledTime   string      `bson:"scheduled_time" json:"scheduledTime"` // HH:MM, 24h
	Duration        int         `bson:"duration" json:"duration"`            // minutes
	SessionType     SessionType `bson:"session_type" json:"sessionType"`
	MaxParticipants int         `bson:"max_participants" json:"maxParticipants"`

	Status          SessionStatus `bson:"status" json:"status"`
	ActualStartTime *time.Time    `bson:"actual_start_time,omitempty" json:"actualStartTime,omitempty"`
	ActualEndTime   *time.Time    `bson:"actual_end_time,omitempty" json:"actualEndTime,omitempty"`
	ActualDuration  int           `bson:"actual_duration,omitempty" json:"actualDuration,omitempty"` // minutes
	AttendanceCount int           `bson:"attendance_count,omitempty" json:"attendanceCount,omitempty"`
	RecordingURL    string        `bson:"recording_url,omitempty" json:"recordingUrl,omitempty"`

	IsRecurring      bool             `bson:"is_recurring" json:"isRecurring"`
	RecurringPattern RecurringPattern `bson:"recurring_pattern,omitempty" json:"recurringPattern,omitempty"`
	RecurringEndDate *time.Time       `bson:"recurring_end_date,omitempty" json:"recurringEndDate,omitempty"`
	ParentSessionID  string           `bson:"parent_session_id,omitempty" json:"parentSessionId,omitempty"`

	Participants []Participant `bson:"participants" json:"participants"`
	Materials    []Material    `bson:"materials" json:"materials"`
	Feedback     []Feedback    `bson:"feedback" json:"feedback"`

	Settings SessionSettings `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Version   int64     `bson:"version" json:"-"`
}

// Participant returns a pointer into the participant list for userID, or nil.
// A given userID appears at most once per session.
func (s *Session) Participant(userID string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].UserID == userID {
			return &s.Participants[i]
		}
	}
	return nil
}

// JoinedCount is the number of participants currently joined. Capacity is a
// ceiling on this count, not on registrations.
func (s *Session) JoinedCount() int {
	n := 0
	for i := range s.Participants {
		if s.Participants[i].Status == ParticipantJoined {
			n++
		}
	}
	return n
}

// HasFeedbackFrom reports whether userID already submitted feedback.
func (s *Session) HasFeedbackFrom(userID string) bool {
	for i := range s.Feedback {
		if s.Feedback[i].UserID == userID {
			return true
		}
	}
	return false
}
