package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/config"
)

type Handler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Session(c *gin.Context)
}

type handler struct {
	config       *config.Configuration
	orchestrator *Orchestrator
}

func NewHandler(cfg *config.Configuration, orchestrator *Orchestrator) Handler {
	return &handler{
		config:       cfg,
		orchestrator: orchestrator,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Suite    string `json:"suite,omitempty"`
}

func (h *handler) Register(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"email": req.Email,
		"role":  req.Role,
	}).Info("Register request received")

	result := h.orchestrator.Register(ctx, req)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *handler) Login(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"email": req.Email,
		"suite": req.Suite,
	}).Info("Login request received")

	result := h.orchestrator.Login(ctx, req.Email, req.Password, req.Suite)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) Logout(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	logrus.Info("Logout request received")

	result := h.orchestrator.Logout(ctx)
	c.JSON(http.StatusOK, result)
}

// Session revalidates the stored pointer and reports the current auth state.
func (h *handler) Session(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result := h.orchestrator.CheckSession(ctx)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}
