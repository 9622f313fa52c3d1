package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/openlearnhub/liveclass/domain"
)

// SessionRepositoryMongo implements domain.SessionRepository on MongoDB. The
// whole aggregate lives in one document; Replace does a versioned
// compare-and-swap so concurrent mutations on the same session serialize.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates the repository and ensures its indexes.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.SessionRepository, error) {
	repo := &SessionRepositoryMongo{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "meeting_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "course_id", Value: 1}, {Key: "scheduled_date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "parent_session_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		// Index creation races with other instances at startup; an "already
		// exists" answer is fine.
		log.Warn().Err(err).Msg("Issue creating indexes for live_sessions collection")
	}

	return repo, nil
}

// Insert persists a session for the first time.
func (r *SessionRepositoryMongo) Insert(ctx context.Context, session *domain.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Version == 0 {
		session.Version = 1
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateSession
		}
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Error storing session in MongoDB")
		return err
	}
	return nil
}

// GetByID loads a session aggregate.
func (r *SessionRepositoryMongo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("Error getting session from MongoDB")
		return nil, err
	}
	return &session, nil
}

// Replace writes the full document back, conditional on the version the
// caller loaded. On success the session's Version is bumped in place.
func (r *SessionRepositoryMongo) Replace(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return errors.New("session ID is required for replace")
	}
	loaded := session.Version
	session.Version = loaded + 1
	session.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": session.ID, "version": loaded}
	result, err := r.collection.ReplaceOne(ctx, filter, session)
	if err != nil {
		session.Version = loaded
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Error replacing session in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		session.Version = loaded
		n, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": session.ID})
		if countErr == nil && n == 0 {
			return domain.ErrSessionNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// Delete removes a session document.
func (r *SessionRepositoryMongo) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error deleting session from MongoDB")
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// List returns a page of sessions plus the total count for the filter.
func (r *SessionRepositoryMongo) List(ctx context.Context, filter domain.SessionFilter) ([]*domain.Session, int64, error) {
	mongoFilter := bson.M{}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}
	if filter.CourseID != "" {
		mongoFilter["course_id"] = filter.CourseID
	}
	if filter.InstructorID != "" {
		mongoFilter["instructor_id"] = filter.InstructorID
	}
	if !filter.FromDate.IsZero() || !filter.ToDate.IsZero() {
		dateFilter := bson.M{}
		if !filter.FromDate.IsZero() {
			dateFilter["$gte"] = filter.FromDate
		}
		if !filter.ToDate.IsZero() {
			dateFilter["$lte"] = filter.ToDate
		}
		mongoFilter["scheduled_date"] = dateFilter
	}

	total, err := r.collection.CountDocuments(ctx, mongoFilter)
	if err != nil {
		log.Error().Err(err).Msg("Error counting sessions in MongoDB")
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_date", Value: 1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		log.Error().Err(err).Msg("Error listing sessions from MongoDB")
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		log.Error().Err(err).Msg("Error decoding listed sessions from MongoDB")
		return nil, 0, err
	}
	return sessions, total, nil
}

// InsertMany persists generated occurrences as one unordered batch. Indexes of
// documents rejected by the server are returned so the caller can report which
// occurrences were lost; a non-nil error means nothing was written.
func (r *SessionRepositoryMongo) InsertMany(ctx context.Context, sessions []*domain.Session) ([]int, error) {
	if len(sessions) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(sessions))
	for _, s := range sessions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
		if s.Version == 0 {
			s.Version = 1
		}
		docs = append(docs, s)
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			failed := make([]int, 0, len(bulkErr.WriteErrors))
			for _, we := range bulkErr.WriteErrors {
				failed = append(failed, we.Index)
			}
			log.Warn().Err(err).Ints("failed_indexes", failed).
				Msg("Partial failure inserting recurring session batch")
			return failed, nil
		}
		log.Error().Err(err).Msg("Error inserting recurring session batch in MongoDB")
		return nil, err
	}
	return nil, nil
}

var _ domain.SessionRepository = (*SessionRepositoryMongo)(nil)
