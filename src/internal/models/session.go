package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one authenticated device instance. The opaque session token is the
// value the device keeps as its local pointer; the row here is the source of truth.
type Session struct {
	ID             primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	SessionID      string             `json:"sessionId" bson:"session_id"`
	UserID         string             `json:"userId" bson:"user_id"`
	SessionToken   string             `json:"-" bson:"session_token"`
	RefreshToken   string             `json:"-" bson:"refresh_token"`
	DeviceType     string             `json:"deviceType" bson:"device_type"`
	OSName         string             `json:"osName" bson:"os_name"`
	BrowserName    string             `json:"browserName" bson:"browser_name"`
	UserAgent      string             `json:"userAgent" bson:"user_agent"`
	IPAddress      string             `json:"ipAddress" bson:"ip_address"`
	IsActive       bool               `json:"isActive" bson:"is_active"`
	ExpiresAt      time.Time          `json:"expiresAt" bson:"expires_at"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	LastActivityAt time.Time          `json:"lastActivityAt" bson:"last_activity_at"`
	LogoutAt       *time.Time         `json:"logoutAt,omitempty" bson:"logout_at,omitempty"`
}

// IsExpired reports whether the session has passed its expiry instant.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
