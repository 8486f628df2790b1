package session

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/cache"
	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/models"
)

type ListRequest struct {
	Page       int    `json:"page" form:"page"`
	Limit      int    `json:"limit" form:"limit"`
	UserID     string `json:"userId" form:"userId"`
	ActiveOnly bool   `json:"activeOnly" form:"activeOnly"`
}

type ListResponse struct {
	Sessions   []*models.Session `json:"sessions"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

type Service interface {
	ListSessions(ctx context.Context, req *ListRequest) (*ListResponse, error)
	GetSessionStats(ctx context.Context) (*models.SessionStats, error)
}

type sessionService struct {
	repository   Repository
	cacheService cache.Service
	cfg          *config.Configuration
}

func NewSessionService(repository Repository, cacheService cache.Service, cfg *config.Configuration) Service {
	return &sessionService{
		repository:   repository,
		cacheService: cacheService,
		cfg:          cfg,
	}
}

func (s *sessionService) ListSessions(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = s.cfg.Search.MinQueryLimit
	}
	if req.Limit > s.cfg.Search.MaxQueryLimit {
		req.Limit = s.cfg.Search.MaxQueryLimit
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	logrus.WithFields(logrus.Fields{
		"page":        req.Page,
		"limit":       req.Limit,
		"user_id":     req.UserID,
		"active_only": req.ActiveOnly,
	}).Debug("Listing sessions")

	sessions, totalCount, err := s.repository.List(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sessions from repository")
		return nil, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(req.Limit)))

	return &ListResponse{
		Sessions:   sessions,
		TotalCount: totalCount,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *sessionService) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	if s.cacheService != nil {
		cached, err := s.cacheService.GetSessionStats(ctx)
		if err == nil && cached != nil {
			logrus.Debug("Session stats served from cache")
			return cached, nil
		}
	}

	stats, err := s.repository.Stats(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to get session stats from repository")
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.SaveSessionStats(ctx, stats); err != nil {
			logrus.WithError(err).Warn("Failed to cache session stats")
		}
	}

	logrus.WithFields(logrus.Fields{
		"total_active":     stats.TotalActive,
		"new_today":        stats.NewToday,
		"logged_out_today": stats.LoggedOutToday,
		"stale_active":     stats.StaleActive,
	}).Info("Session statistics retrieved")

	return stats, nil
}
