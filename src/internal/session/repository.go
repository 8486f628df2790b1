package session

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"igyan-auth-svc/src/clients"
	"igyan-auth-svc/src/internal/models"
	"igyan-auth-svc/src/internal/user"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error
	// FindActiveByToken joins the session to its owning user. A missing or
	// inactive session is reported as (nil, nil, nil), not as an error.
	FindActiveByToken(ctx context.Context, token string) (*models.Session, *user.User, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	TouchActivity(ctx context.Context, sessionID string) error
	Deactivate(ctx context.Context, token string) error
	List(ctx context.Context, req *ListRequest) ([]*models.Session, int64, error)
	Stats(ctx context.Context) (*models.SessionStats, error)
}

type repository struct {
	collection *mongo.Collection
	users      user.Repository
}

func NewSessionRepository(db *clients.MongoDB, collectionName string, users user.Repository) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection, users: users}
}

func (r *repository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.collection.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			logrus.WithField("session_id", s.SessionID).Error("Session token collision on insert")
			return models.ErrSessionCreating
		}
		logrus.WithError(err).WithField("session_id", s.SessionID).Error("Failed to insert session")
		return models.ErrSessionCreating
	}

	logrus.WithFields(logrus.Fields{
		"session_id": s.SessionID,
		"user_id":    s.UserID,
		"expires_at": s.ExpiresAt,
	}).Info("Session created")

	return nil
}

func (r *repository) FindActiveByToken(ctx context.Context, token string) (*models.Session, *user.User, error) {
	var s models.Session
	filter := bson.M{
		"session_token": token,
		"is_active":     true,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, nil
		}
		logrus.WithError(err).Error("Failed to find session by token")
		return nil, nil, models.ErrDatabaseQuery
	}

	owner, err := r.users.FindByID(ctx, s.UserID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			// Orphaned session row; treat as logged out.
			logrus.WithField("session_id", s.SessionID).Warn("Session references missing user")
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return &s, owner, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	filter := bson.M{"session_id": sessionID}

	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}

	return &s, nil
}

func (r *repository) TouchActivity(ctx context.Context, sessionID string) error {
	filter := bson.M{
		"session_id": sessionID,
		"is_active":  true,
	}

	update := bson.M{
		"$set": bson.M{
			"last_activity_at": time.Now(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to update session activity")
		return models.ErrSessionUpdating
	}

	return nil
}

func (r *repository) Deactivate(ctx context.Context, token string) error {
	filter := bson.M{"session_token": token}

	update := bson.M{
		"$set": bson.M{
			"is_active": false,
			"logout_at": time.Now(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).Error("Failed to deactivate session")
		return models.ErrSessionUpdating
	}

	return nil
}

func (r *repository) List(ctx context.Context, req *ListRequest) ([]*models.Session, int64, error) {
	filter := bson.M{}

	if req.UserID != "" {
		filter["user_id"] = req.UserID
	}

	if req.ActiveOnly {
		filter["is_active"] = true
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (req.Page - 1) * req.Limit

	opts := options.Find().
		SetLimit(int64(req.Limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find sessions")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*models.Session
	for cursor.Next(ctx) {
		var s models.Session
		if err := cursor.Decode(&s); err != nil {
			logrus.WithError(err).Error("Failed to decode session")
			continue
		}
		sessions = append(sessions, &s)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, 0, models.ErrDatabaseQuery
	}

	return sessions, totalCount, nil
}

func (r *repository) Stats(ctx context.Context) (*models.SessionStats, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	totalActive, err := r.countSessions(ctx, bson.M{"is_active": true})
	if err != nil {
		return nil, err
	}

	newToday, err := r.countSessions(ctx, bson.M{"created_at": bson.M{"$gte": startOfDay}})
	if err != nil {
		return nil, err
	}

	loggedOutToday, err := r.countSessions(ctx, bson.M{"logout_at": bson.M{"$gte": startOfDay}})
	if err != nil {
		return nil, err
	}

	staleActive, err := r.countSessions(ctx, bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$lt": now},
	})
	if err != nil {
		return nil, err
	}

	return &models.SessionStats{
		TotalActive:    totalActive,
		NewToday:       newToday,
		LoggedOutToday: loggedOutToday,
		StaleActive:    staleActive,
	}, nil
}

func (r *repository) countSessions(ctx context.Context, filter bson.M) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}
