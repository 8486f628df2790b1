package session

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/config"
)

type Handler interface {
	ListSessions(c *gin.Context)
	GetSessionStats(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) ListSessions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	req := &ListRequest{
		Page:       parseIntParam(c, "page", 1),
		Limit:      parseIntParam(c, "limit", 20),
		UserID:     c.Query("userId"),
		ActiveOnly: c.Query("activeOnly") == "true",
	}

	userID, _ := c.Get("user_id")
	logrus.WithFields(logrus.Fields{
		"admin_user_id": userID,
		"page":          req.Page,
		"limit":         req.Limit,
		"filter_user":   req.UserID,
		"active_only":   req.ActiveOnly,
	}).Info("ListSessions request received")

	response, err := h.service.ListSessions(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve sessions",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
		"message": "Sessions retrieved successfully",
	})
}

func (h *handler) GetSessionStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	logrus.Info("GetSessionStats request received")

	stats, err := h.service.GetSessionStats(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to get session stats")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve session statistics",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
		"message": "Session statistics retrieved successfully",
	})
}

func parseIntParam(c *gin.Context, param string, defaultValue int) int {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"param": param,
			"value": value,
			"error": err,
		}).Warn("Invalid integer parameter, using default")

		return defaultValue
	}
	return parsed
}
