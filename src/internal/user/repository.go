package user

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"igyan-auth-svc/src/clients"
	"igyan-auth-svc/src/internal/models"
)

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, u *User) error
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(mongoClient *clients.MongoDB, collectionName string) Repository {
	collection := mongoClient.Database.Collection(collectionName)
	return &userRepository{collection: collection}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	filter := bson.M{"email": email}

	err := r.collection.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		logrus.WithError(err).WithField("email", email).Error("Failed to find user by email")
		return nil, models.ErrDatabaseQuery
	}

	return &u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrRecordNotFound
	}

	var u User
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRecordNotFound
		}
		logrus.WithError(err).WithField("user_id", id).Error("Failed to find user by id")
		return nil, models.ErrDatabaseQuery
	}

	return &u, nil
}

func (r *userRepository) Insert(ctx context.Context, u *User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			logrus.WithField("email", u.Email).Warn("Attempted to register duplicate email")
			return models.ErrDuplicateRecord
		}
		logrus.WithError(err).WithField("email", u.Email).Error("Failed to insert user")
		return models.ErrDatabaseInsert
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}

	logrus.WithFields(logrus.Fields{
		"user_id": u.ID.Hex(),
		"role":    u.Role,
	}).Info("User registered")

	return nil
}
