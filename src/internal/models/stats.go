package models

// SessionStats summarizes the session collection for the admin dashboard.
// StaleActive counts rows still flagged active whose expiry has already passed
// (sessions the owning device never came back to deactivate).
type SessionStats struct {
	TotalActive    int64 `json:"totalActive"`
	NewToday       int64 `json:"newToday"`
	LoggedOutToday int64 `json:"loggedOutToday"`
	StaleActive    int64 `json:"staleActive"`
}
