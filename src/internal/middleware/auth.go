package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/auth"
	"igyan-auth-svc/src/internal/cache"
	"igyan-auth-svc/src/internal/models"
	"igyan-auth-svc/src/internal/session"
	"igyan-auth-svc/src/internal/user"
)

// AuthMiddleware guards protected routes. A request carries the short-lived
// access JWT; the middleware verifies the signature, then confirms the backing
// session is still alive in Redis or Mongo.
type AuthMiddleware struct {
	jwtSecret    string
	cacheService cache.Service
	sessionRepo  session.Repository
}

func NewAuthMiddleware(jwtSecret string, cacheService cache.Service, sessionRepo session.Repository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:    jwtSecret,
		cacheService: cacheService,
		sessionRepo:  sessionRepo,
	}
}

// RequireAuth validates the access token and the live session behind it.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, err := auth.ParseAccessToken(m.jwtSecret, token)
		if err != nil {
			logrus.WithError(err).Warn("Access token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		isValidSession, err := m.validateSession(c.Request.Context(), claims.SessionID, claims.UserID)
		if err != nil {
			logrus.WithError(err).Error("Session validation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Session validation error",
			})
			c.Abort()
			return
		}

		if !isValidSession {
			logrus.WithField("session_id", claims.SessionID).Warn("Session is invalid or expired")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Session expired - please login again",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)

		c.Next()
	}
}

// RequireAdminRights restricts a route to institutional admins.
func (m *AuthMiddleware) RequireAdminRights() gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoleInterface, exists := c.Get("user_role")
		if !exists {
			logrus.Error("User role not found in context - ensure RequireAuth middleware runs first")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		userRole, ok := userRoleInterface.(string)
		if !ok {
			logrus.Error("Invalid user role format")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Invalid user role format",
			})
			c.Abort()
			return
		}

		if userRole != user.RoleSuperAdmin && userRole != user.RoleCoAdmin {
			userID, _ := c.Get("user_id")
			logrus.WithFields(logrus.Fields{
				"user_id":   userID,
				"user_role": userRole,
			}).Warn("User attempted to access admin endpoint without admin privileges")

			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access forbidden - admin privileges required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSuite restricts a route to roles belonging to the given suite.
func (m *AuthMiddleware) RequireSuite(suite string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("user_role")

		allowed := false
		switch suite {
		case user.SuiteInstitutional:
			allowed = user.IsInstitutionalRole(userRole)
		case user.SuiteProfessional:
			allowed = user.IsProfessionalRole(userRole)
		}

		if !allowed {
			logrus.WithFields(logrus.Fields{
				"user_role": userRole,
				"suite":     suite,
			}).Warn("Suite gate denied route access")

			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access forbidden for this suite",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		logrus.Warn("Invalid authorization header format")
		return ""
	}

	return strings.TrimPrefix(authHeader, "Bearer ")
}

// validateSession checks session validity in Redis first, then MongoDB fallback.
func (m *AuthMiddleware) validateSession(ctx context.Context, sessionID, userID string) (bool, error) {
	key := cache.SessionKey(userID, sessionID)
	if m.cacheService != nil {
		cached, err := m.cacheService.GetActiveSession(ctx, key)
		if err == nil && cached != nil && cached.IsActive && !cached.IsExpired(time.Now()) {
			if err := m.cacheService.UpdateSessionActivity(ctx, key); err != nil {
				logrus.WithError(err).Debug("Failed to bump cached session activity")
			}
			if err := m.sessionRepo.TouchActivity(ctx, sessionID); err != nil {
				logrus.WithError(err).Debug("Failed to bump stored session activity")
			}
			return true, nil
		}
	}

	stored, err := m.sessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	if !stored.IsActive {
		logrus.WithField("session_id", sessionID).Warn("Session is not active")
		return false, nil
	}

	if stored.LogoutAt != nil {
		logrus.WithField("session_id", sessionID).Warn("Session has logout timestamp")
		return false, nil
	}

	if stored.IsExpired(time.Now()) {
		logrus.WithField("session_id", sessionID).Warn("Session has expired")
		return false, nil
	}

	if err := m.sessionRepo.TouchActivity(ctx, sessionID); err != nil {
		logrus.WithError(err).Debug("Failed to bump stored session activity")
	}
	if m.cacheService != nil {
		if err := m.cacheService.CacheActiveSession(ctx, stored); err != nil {
			logrus.WithError(err).Debug("Failed to re-cache session")
		}
	}

	return true, nil
}
