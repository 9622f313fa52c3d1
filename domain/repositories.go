package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by SessionRepository implementations. Services map
// them onto the API error taxonomy.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDuplicateSession = errors.New("session already exists")
	// ErrVersionConflict means the compare-and-swap in Replace matched no
	// document because another writer bumped the version first.
	ErrVersionConflict = errors.New("session version conflict")
)

// SessionFilter narrows List results. Zero values mean "no constraint".
type SessionFilter struct {
	Status       SessionStatus
	CourseID     string
	InstructorID string
	FromDate     time.Time
	ToDate       time.Time
	Page         int
	PageSize     int
}

// SessionRepository is the durable keyed store for Session aggregates.
//
// Replace is the serialization point for all mutations: it matches both the
// document id and the version the caller loaded, and writes the document with
// the version incremented. A concurrent writer therefore gets
// ErrVersionConflict and must reload and retry.
type SessionRepository interface {
	Insert(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	Replace(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter SessionFilter) ([]*Session, int64, error)
	// InsertMany persists a batch of generated occurrences unordered. It
	// returns the indexes of documents that failed; a non-nil error means the
	// whole batch failed.
	InsertMany(ctx context.Context, sessions []*Session) ([]int, error)
}

// AccessPolicy answers role and relationship questions. It is backed by the
// platform's identity service; this core only consumes the answers.
type AccessPolicy interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	IsCourseInstructor(ctx context.Context, userID, courseID string) (bool, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
}

// CourseDirectory resolves course ids against the external catalog.
type CourseDirectory interface {
	CourseExists(ctx context.Context, courseID string) (bool, error)
}
