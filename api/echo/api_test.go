package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhub/liveclass/api"
	"github.com/openlearnhub/liveclass/cache"
	"github.com/openlearnhub/liveclass/domain"
	"github.com/openlearnhub/liveclass/services"
)

// fakeRepo is a minimal in-memory SessionRepository honoring the versioned
// replace contract.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: map[string]*domain.Session{}}
}

func copySession(s *domain.Session) *domain.Session {
	c := *s
	c.Participants = append([]domain.Participant(nil), s.Participants...)
	c.Materials = append([]domain.Material(nil), s.Materials...)
	c.Feedback = append([]domain.Feedback(nil), s.Feedback...)
	return &c
}

func (r *fakeRepo) Insert(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return domain.ErrDuplicateSession
	}
	if s.Version == 0 {
		s.Version = 1
	}
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(s), nil
}

func (r *fakeRepo) Replace(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[s.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if cur.Version != s.Version {
		return domain.ErrVersionConflict
	}
	s.Version++
	r.sessions[s.ID] = copySession(s)
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, filter domain.SessionFilter) ([]*domain.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Session{}
	for _, s := range r.sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, copySession(s))
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) InsertMany(ctx context.Context, sessions []*domain.Session) ([]int, error) {
	for _, s := range sessions {
		if err := r.Insert(ctx, s); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// fakePolicy grants the fixed instructor and enrollment set used by the tests.
type fakePolicy struct {
	instructor string
	enrolled   map[string]bool
}

func (p *fakePolicy) IsAdmin(context.Context, string) (bool, error) { return false, nil }

func (p *fakePolicy) IsCourseInstructor(_ context.Context, userID, _ string) (bool, error) {
	return userID == p.instructor, nil
}

func (p *fakePolicy) IsEnrolled(_ context.Context, userID, _ string) (bool, error) {
	return p.enrolled[userID], nil
}

type fakeCourses struct{}

func (fakeCourses) CourseExists(context.Context, string) (bool, error) { return true, nil }

func newTestServer(repo *fakeRepo, policy *fakePolicy) *echo.Echo {
	sessionSvc := services.NewSessionService(repo, cache.Nop{}, policy, fakeCourses{}, "https://meet.test")
	participationSvc := services.NewParticipationService(repo, cache.Nop{}, policy)

	e := echo.New()
	NewSessionAPI(sessionSvc, participationSvc, nil).RegisterRoutes(e)
	return e
}

func seedAPISession(t *testing.T, repo *fakeRepo, status domain.SessionStatus) *domain.Session {
	t.Helper()
	s := &domain.Session{
		ID:              "s-1",
		MeetingID:       "lc-abc123",
		MeetingLink:     "https://meet.test/meet/lc-abc123",
		Title:           "Intro to Testing",
		CourseID:        "course-1",
		InstructorID:    "instructor-1",
		ScheduledDate:   time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime:   "14:30",
		Duration:        60,
		SessionType:     domain.SessionTypeLive,
		MaxParticipants: 1,
		Status:          status,
		Participants:    []domain.Participant{},
		Materials:       []domain.Material{},
		Feedback:        []domain.Feedback{},
		Settings:        domain.DefaultSettings(),
	}
	require.NoError(t, repo.Insert(context.Background(), s))
	return s
}

func doRequest(e *echo.Echo, method, target, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionHandler(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, &fakePolicy{instructor: "instructor-1"})

	body := `{
		"title": "Intro to Testing",
		"courseId": "course-1",
		"instructorId": "instructor-1",
		"scheduledDate": "2025-06-02",
		"scheduledTime": "14:30",
		"duration": 60,
		"sessionType": "live",
		"maxParticipants": 25
	}`
	rec := doRequest(e, http.MethodPost, "/sessions", "instructor-1", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp api.CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Session.ID)
	assert.Equal(t, "scheduled", string(resp.Session.Status))
	assert.Contains(t, resp.Session.MeetingLink, "/meet/")
}

func TestCreateSessionHandlerRequiresIdentity(t *testing.T) {
	e := newTestServer(newFakeRepo(), &fakePolicy{instructor: "instructor-1"})

	rec := doRequest(e, http.MethodPost, "/sessions", "", `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateSessionHandlerRejectsBadDate(t *testing.T) {
	e := newTestServer(newFakeRepo(), &fakePolicy{instructor: "instructor-1"})

	body := `{"title": "Intro to Testing", "scheduledDate": "06/02/2025"}`
	rec := doRequest(e, http.MethodPost, "/sessions", "instructor-1", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "scheduledDate")
}

func TestGetSessionHandlerNotFound(t *testing.T) {
	e := newTestServer(newFakeRepo(), &fakePolicy{instructor: "instructor-1"})

	rec := doRequest(e, http.MethodGet, "/sessions/missing", "", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestListSessionsHandler(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, &fakePolicy{instructor: "instructor-1"})
	seedAPISession(t, repo, domain.SessionStatusScheduled)

	rec := doRequest(e, http.MethodGet, "/sessions?status=scheduled", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.ListSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
}

func TestJoinHandlerCapacityConflict(t *testing.T) {
	repo := newFakeRepo()
	policy := &fakePolicy{instructor: "instructor-1", enrolled: map[string]bool{"student-1": true, "student-2": true}}
	e := newTestServer(repo, policy)
	seedAPISession(t, repo, domain.SessionStatusLive)

	rec := doRequest(e, http.MethodPost, "/sessions/s-1/join", "student-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var joinResp api.JoinSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joinResp))
	assert.Equal(t, "lc-abc123", joinResp.MeetingID)

	rec = doRequest(e, http.MethodPost, "/sessions/s-1/join", "student-2", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_exceeded")
}

func TestStartEndHandlers(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, &fakePolicy{instructor: "instructor-1"})
	seedAPISession(t, repo, domain.SessionStatusScheduled)

	rec := doRequest(e, http.MethodPost, "/sessions/s-1/start", "instructor-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodPost, "/sessions/s-1/end", "instructor-1", `{"recordingUrl": "https://cdn.test/rec.mp4"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var s domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, domain.SessionStatusCompleted, s.Status)
	assert.Equal(t, "https://cdn.test/rec.mp4", s.RecordingURL)

	// Ending twice is an invalid transition.
	rec = doRequest(e, http.MethodPost, "/sessions/s-1/end", "instructor-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteHandlerRequiresStaff(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, &fakePolicy{instructor: "instructor-1"})
	seedAPISession(t, repo, domain.SessionStatusScheduled)

	rec := doRequest(e, http.MethodDelete, "/sessions/s-1", "student-1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(e, http.MethodDelete, "/sessions/s-1", "instructor-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAnalyticsHandler(t *testing.T) {
	repo := newFakeRepo()
	e := newTestServer(repo, &fakePolicy{instructor: "instructor-1"})
	s := seedAPISession(t, repo, domain.SessionStatusCompleted)
	joined := time.Now().UTC()
	s.Participants = []domain.Participant{
		{UserID: "u1", Status: domain.ParticipantLeft, JoinedAt: &joined, AttendanceDuration: 30},
		{UserID: "u2", Status: domain.ParticipantRegistered},
	}
	require.NoError(t, repo.Replace(context.Background(), s))

	rec := doRequest(e, http.MethodGet, "/sessions/s-1/analytics", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.AnalyticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalRegistered)
	assert.Equal(t, 1, resp.TotalAttended)
	assert.Equal(t, 50.0, resp.AttendanceRate)
}

func TestHealthHandler(t *testing.T) {
	e := newTestServer(newFakeRepo(), &fakePolicy{})
	rec := doRequest(e, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
