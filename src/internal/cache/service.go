package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/models"
)

const sessionKeyPattern = "session:%s:%s" // session:userID:sessionID

type Service interface {
	GetActiveSession(ctx context.Context, key string) (*models.Session, error)
	UpdateSessionActivity(ctx context.Context, key string) error
	CacheActiveSession(ctx context.Context, session *models.Session) error
	InvalidateSession(ctx context.Context, session *models.Session) error
	SaveSessionStats(ctx context.Context, stats *models.SessionStats) error
	GetSessionStats(ctx context.Context) (*models.SessionStats, error)
}

// SessionKey builds the cache key for a session.
func SessionKey(userID, sessionID string) string {
	return fmt.Sprintf(sessionKeyPattern, userID, sessionID)
}

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache}
}

func (c *cacheService) GetActiveSession(ctx context.Context, key string) (*models.Session, error) {
	logrus.WithField("key", key).Debug("Getting active session from cache")

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("key", key).Debug("Session not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to get session from cache")
		return nil, models.ErrRedisGet
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to unmarshal session from cache")
		return nil, models.ErrRedisGet
	}

	return &session, nil
}

func (c *cacheService) UpdateSessionActivity(ctx context.Context, key string) error {
	logrus.WithField("key", key).Debug("Updating session activity in cache")

	session, err := c.GetActiveSession(ctx, key)
	if err != nil || session == nil {
		return err
	}

	session.LastActivityAt = time.Now()

	data, err := json.Marshal(session)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal session for activity update")
		return models.ErrRedisSet
	}

	extendedTTL := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	err = c.client.Set(ctx, key, data, extendedTTL).Err()
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to update session activity")
		return models.ErrRedisSet
	}

	return nil
}

func (c *cacheService) CacheActiveSession(ctx context.Context, session *models.Session) error {
	key := SessionKey(session.UserID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		logrus.WithError(err).WithField("session_id", session.SessionID).Error("Failed to marshal session for cache")
		return models.ErrRedisSet
	}

	// Cap the cache TTL at the remote expiry so Redis never vouches for a
	// session the store considers dead.
	ttl := time.Duration(c.cfg.SessionExpirationMinutes) * time.Minute
	if until := time.Until(session.ExpiresAt); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		logrus.WithField("session_id", session.SessionID).Warn("Session already expired, not caching")
		return nil
	}

	err = c.client.Set(ctx, key, data, ttl).Err()
	if err != nil {
		logrus.WithError(err).WithField("session_id", session.SessionID).Error("Failed to cache session")
		return models.ErrRedisSet
	}

	logrus.WithField("session_id", session.SessionID).Debug("Session cached successfully")
	return nil
}

func (c *cacheService) InvalidateSession(ctx context.Context, session *models.Session) error {
	key := SessionKey(session.UserID, session.SessionID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to delete session from cache")
		return models.ErrRedisDelete
	}

	logrus.WithField("session_id", session.SessionID).Debug("Session removed from cache")
	return nil
}

func (c *cacheService) SaveSessionStats(ctx context.Context, stats *models.SessionStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal session stats for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.StatsExpirationMinutes) * time.Minute
	err = c.client.Set(ctx, c.cfg.StatsKey, data, expiration).Err()
	if err != nil {
		logrus.WithError(err).Error("Failed to cache session stats")
		return models.ErrRedisSet
	}
	return nil
}

func (c *cacheService) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	data, err := c.client.Get(ctx, c.cfg.StatsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.Debug("Session stats not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).Error("Failed to get session stats from cache")
		return nil, models.ErrRedisGet
	}

	var stats models.SessionStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal session stats from cache")
		return nil, models.ErrRedisGet
	}

	return &stats, nil
}
