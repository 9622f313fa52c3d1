package services

import (
	"context"
	"sync"

	"github.com/openlearnhub/liveclass/domain"
)

// memRepo is an in-memory SessionRepository that enforces the same versioned
// compare-and-swap contract as the MongoDB adapter, so concurrency behavior
// can be tested without a server.
type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session

	// failIdx forces InsertMany to reject the given indexes; insertManyErr
	// fails the whole batch.
	failIdx       map[int]bool
	insertManyErr error
}

func newMemRepo() *memRepo {
	return &memRepo{sessions: make(map[string]*domain.Session)}
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	c.Participants = append([]domain.Participant(nil), s.Participants...)
	c.Materials = append([]domain.Material(nil), s.Materials...)
	c.Feedback = append([]domain.Feedback(nil), s.Feedback...)
	return &c
}

func (r *memRepo) Insert(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return domain.ErrDuplicateSession
	}
	if session.Version == 0 {
		session.Version = 1
	}
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *memRepo) Replace(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if cur.Version != session.Version {
		return domain.ErrVersionConflict
	}
	session.Version++
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memRepo) List(_ context.Context, filter domain.SessionFilter) ([]*domain.Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			continue
		}
		if filter.InstructorID != "" && s.InstructorID != filter.InstructorID {
			continue
		}
		out = append(out, cloneSession(s))
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) InsertMany(_ context.Context, sessions []*domain.Session) ([]int, error) {
	if r.insertManyErr != nil {
		return nil, r.insertManyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed []int
	for i, s := range sessions {
		if r.failIdx[i] {
			failed = append(failed, i)
			continue
		}
		if s.Version == 0 {
			s.Version = 1
		}
		r.sessions[s.ID] = cloneSession(s)
	}
	return failed, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

var _ domain.SessionRepository = (*memRepo)(nil)

// conflictRepo wraps memRepo and makes every Replace lose the version race.
type conflictRepo struct {
	*memRepo
}

func (r *conflictRepo) Replace(context.Context, *domain.Session) error {
	return domain.ErrVersionConflict
}

// stubPolicy answers role questions from fixed maps.
type stubPolicy struct {
	admins      map[string]bool
	instructors map[string]string // courseID -> instructor userID
	enrolled    map[string]bool   // courseID + "/" + userID
}

func newStubPolicy() *stubPolicy {
	return &stubPolicy{
		admins:      map[string]bool{},
		instructors: map[string]string{},
		enrolled:    map[string]bool{},
	}
}

func (p *stubPolicy) IsAdmin(_ context.Context, userID string) (bool, error) {
	return p.admins[userID], nil
}

func (p *stubPolicy) IsCourseInstructor(_ context.Context, userID, courseID string) (bool, error) {
	return p.instructors[courseID] == userID, nil
}

func (p *stubPolicy) IsEnrolled(_ context.Context, userID, courseID string) (bool, error) {
	return p.enrolled[courseID+"/"+userID], nil
}

func (p *stubPolicy) enroll(courseID, userID string) {
	p.enrolled[courseID+"/"+userID] = true
}

// stubCourses treats every course as existing unless listed missing.
type stubCourses struct {
	missing map[string]bool
}

func (c *stubCourses) CourseExists(_ context.Context, courseID string) (bool, error) {
	return !c.missing[courseID], nil
}
