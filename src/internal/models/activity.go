package models

import "time"

type ActivityMessage struct {
	UserID      string            `json:"user_id"`
	SessionID   string            `json:"session_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionLogin          = "session_login"
	ActionLogout         = "session_logout"
	ActionSessionCheck   = "session_check"
	ActionActivityTouch  = "session_activity"
	ActionRegistered     = "user_registered"
	ActionSessionExpired = "session_expired"
)

// Service name constants
const (
	ServiceAuthOrchestrator = "auth.orchestrator"
	ServiceAuthMiddleware   = "auth.middleware"
	ServiceSessionAdmin     = "auth.handler.sessions"
)
