package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"igyan-auth-svc/src/internal/cache"
	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/device"
	"igyan-auth-svc/src/internal/models"
	"igyan-auth-svc/src/internal/session"
	"igyan-auth-svc/src/internal/token"
	"igyan-auth-svc/src/internal/user"
)

// State of the auth lifecycle. Boot starts in StateUnknown until CheckSession
// resolves the stored pointer one way or the other.
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

// Result is the uniform shape every transition returns. Failures are reported
// here, never as raw errors, so callers always have something to render.
type Result struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	User         *user.Profile `json:"user,omitempty"`
	SessionToken string        `json:"sessionToken,omitempty"`
	AccessToken  string        `json:"accessToken,omitempty"`
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"fullName"`
	Phone    *string `json:"phone,omitempty"`
	Role     string  `json:"role"`
	SchoolID *string `json:"schoolId,omitempty"`
}

// AuditPublisher is the best-effort audit sink; clients.AuditPublisher is the
// production implementation.
type AuditPublisher interface {
	PublishActivity(message models.ActivityMessage) error
}

const (
	msgInvalidCredentials = "Invalid email or password"
	msgSessionCreate      = "Failed to create session. Please try again."
	msgNoActiveSession    = "No active session"
	msgSessionExpired     = "Session expired - please login again"

	msgInstitutionalOnly = "Access denied: this account does not belong to the Institutional Suite. Please sign in through the Professional Suite portal."
	msgProfessionalOnly  = "Access denied: this account does not belong to the Professional Suite. Please sign in through the Institutional Suite portal."
)

const detachedTimeout = 5 * time.Second

// Orchestrator is the single owner of auth state. Transitions run one at a
// time under the mutex; within a transition the steps execute strictly in
// order, so the session row always exists before the local pointer names it.
type Orchestrator struct {
	users    user.Repository
	sessions session.Repository
	pointer  PointerStore
	probe    *device.Probe
	cache    cache.Service
	audit    AuditPublisher
	cfg      *config.Configuration

	mu      sync.Mutex
	state   State
	current *user.User
	active  *models.Session
}

func NewOrchestrator(
	cfg *config.Configuration,
	users user.Repository,
	sessions session.Repository,
	pointer PointerStore,
	probe *device.Probe,
	cacheService cache.Service,
	audit AuditPublisher,
) *Orchestrator {
	return &Orchestrator{
		users:    users,
		sessions: sessions,
		pointer:  pointer,
		probe:    probe,
		cache:    cacheService,
		audit:    audit,
		cfg:      cfg,
		state:    StateUnknown,
	}
}

// CheckSession resolves the locally stored pointer against the session store.
// Called on boot and whenever a caller wants the current state revalidated.
func (o *Orchestrator) CheckSession(ctx context.Context) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	tok, err := o.pointer.Get()
	if err != nil {
		logrus.WithError(err).Warn("Failed to read session pointer")
	}
	if tok == "" {
		o.reset()
		return Result{Error: msgNoActiveSession}
	}

	active, owner, err := o.sessions.FindActiveByToken(ctx, tok)
	if err != nil || active == nil {
		if err != nil {
			logrus.WithError(err).Error("Session lookup failed on boot")
		}
		if cerr := o.pointer.Clear(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to clear session pointer")
		}
		o.reset()
		return Result{Error: msgNoActiveSession}
	}

	if active.IsExpired(time.Now()) {
		logrus.WithField("session_id", active.SessionID).Info("Stored session expired, logging out")
		o.logoutLocked(ctx, active, models.ActionSessionExpired)
		return Result{Error: msgSessionExpired}
	}

	o.detach("touch_activity", func(dctx context.Context) error {
		return o.sessions.TouchActivity(dctx, active.SessionID)
	})
	if o.cache != nil {
		o.detach("cache_session", func(dctx context.Context) error {
			return o.cache.CacheActiveSession(dctx, active)
		})
	}
	o.publishDetached(active, models.ActionSessionCheck)

	o.state = StateAuthenticated
	o.current = owner
	o.active = active

	return Result{Success: true, User: owner.ToProfile(), SessionToken: tok}
}

// Login authenticates credentials, applies the suite gate when a variant is
// named, creates the remote session row and only then persists the pointer.
func (o *Orchestrator) Login(ctx context.Context, email, password, variant string) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	u, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrRecordNotFound) {
			logrus.WithError(err).Error("User lookup failed during login")
		}
		// Same message for unknown email and bad password; the UI never
		// learns whether the email exists.
		return Result{Error: msgInvalidCredentials}
	}

	if err := CheckPassword(u.PasswordHash, password); err != nil {
		logrus.WithField("user_id", u.ID.Hex()).Info("Password mismatch")
		return Result{Error: msgInvalidCredentials}
	}

	if msg := suiteGate(variant, u); msg != "" {
		logrus.WithFields(logrus.Fields{
			"user_id": u.ID.Hex(),
			"role":    u.Role,
			"variant": variant,
		}).Warn("Suite gate denied login")
		return Result{Error: msg}
	}

	info := o.probe.DeviceInfo()
	ip := o.probe.UserIP(ctx)

	sessionToken, err := token.New()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate session token")
		return Result{Error: msgSessionCreate}
	}
	refreshToken, err := token.New()
	if err != nil {
		logrus.WithError(err).Error("Failed to generate refresh token")
		return Result{Error: msgSessionCreate}
	}

	now := time.Now()
	active := &models.Session{
		SessionID:      uuid.NewString(),
		UserID:         u.ID.Hex(),
		SessionToken:   sessionToken,
		RefreshToken:   refreshToken,
		DeviceType:     info.DeviceType,
		OSName:         info.OSName,
		BrowserName:    info.BrowserName,
		UserAgent:      info.UserAgent,
		IPAddress:      ip,
		IsActive:       true,
		ExpiresAt:      now.Add(o.sessionTTL()),
		CreatedAt:      now,
		LastActivityAt: now,
	}

	if err := o.sessions.Create(ctx, active); err != nil {
		return Result{Error: msgSessionCreate}
	}

	if err := o.pointer.Set(sessionToken); err != nil {
		// The remote row exists but the device lost its key to it. Retire the
		// row rather than leave an unreachable active session behind.
		logrus.WithError(err).Error("Failed to persist session pointer")
		if derr := o.sessions.Deactivate(ctx, sessionToken); derr != nil {
			logrus.WithError(derr).Warn("Failed to retire unreferenced session")
		}
		return Result{Error: msgSessionCreate}
	}

	o.state = StateAuthenticated
	o.current = u
	o.active = active

	if o.cache != nil {
		o.detach("cache_session", func(dctx context.Context) error {
			return o.cache.CacheActiveSession(dctx, active)
		})
	}
	o.publishDetached(active, models.ActionLogin)

	accessToken, err := NewAccessToken(
		o.cfg.Security.JwtKey, u.ID.Hex(), active.SessionID, u.Email, u.Role, o.accessTokenTTL())
	if err != nil {
		logrus.WithError(err).Error("Failed to mint access token")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    u.ID.Hex(),
		"session_id": active.SessionID,
		"role":       u.Role,
	}).Info("User logged in")

	return Result{
		Success:      true,
		User:         u.ToProfile(),
		SessionToken: sessionToken,
		AccessToken:  accessToken,
	}
}

// Logout always succeeds locally. Remote deactivation is best-effort; a user
// must never be stranded in the authenticated state by a backend failure.
func (o *Orchestrator) Logout(ctx context.Context) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.logoutLocked(ctx, o.active, models.ActionLogout)
	return Result{Success: true}
}

// Register creates the user row. It never mutates auth state; the caller logs
// in separately.
func (o *Orchestrator) Register(ctx context.Context, req RegisterRequest) Result {
	if req.Email == "" || req.Password == "" {
		return Result{Error: "Email and password are required"}
	}
	if !user.IsValidRole(req.Role) {
		return Result{Error: "Unknown role: " + req.Role}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logrus.WithError(err).Error("Failed to hash password")
		return Result{Error: models.ErrRegistrationFailed.Error()}
	}

	u := &user.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		SchoolID:     req.SchoolID,
	}

	if err := o.users.Insert(ctx, u); err != nil {
		// Surfaced as-is; duplicate email arrives as "duplicate record".
		return Result{Error: err.Error()}
	}

	return Result{Success: true, User: u.ToProfile()}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) CurrentUser() *user.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orchestrator) CurrentSession() *models.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Orchestrator) IsAuthenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateAuthenticated
}

// IsInstitutional is derived from the current user on every call, never cached
// separately from it.
func (o *Orchestrator) IsInstitutional() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateAuthenticated && o.current != nil && o.current.IsInstitutional()
}

func (o *Orchestrator) IsProfessional() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateAuthenticated && o.current != nil && o.current.IsProfessional()
}

// suiteGate returns a denial message, or "" when the login may proceed. An
// empty variant applies no gate at all: some entry points are suite-agnostic.
// Whether that is intentional is an open product question; the behavior is
// kept exactly as shipped.
func suiteGate(variant string, u *user.User) string {
	switch variant {
	case "":
		return ""
	case user.SuiteInstitutional:
		if !u.IsInstitutional() {
			return msgInstitutionalOnly
		}
	case user.SuiteProfessional:
		if !u.IsProfessional() {
			return msgProfessionalOnly
		}
	default:
		return "Unknown login suite: " + variant
	}
	return ""
}

func (o *Orchestrator) logoutLocked(ctx context.Context, active *models.Session, action string) {
	tok, err := o.pointer.Get()
	if err != nil {
		logrus.WithError(err).Warn("Failed to read session pointer during logout")
	}

	if tok != "" {
		if err := o.sessions.Deactivate(ctx, tok); err != nil {
			logrus.WithError(err).Warn("Best-effort session deactivation failed")
		}
		if active != nil {
			if o.cache != nil {
				o.detach("invalidate_session", func(dctx context.Context) error {
					return o.cache.InvalidateSession(dctx, active)
				})
			}
			o.publishDetached(active, action)
		}
	}

	if err := o.pointer.Clear(); err != nil {
		logrus.WithError(err).Warn("Failed to clear session pointer")
	}

	o.reset()
}

// reset drops to Anonymous without touching any remote state.
func (o *Orchestrator) reset() {
	o.state = StateAnonymous
	o.current = nil
	o.active = nil
}

func (o *Orchestrator) sessionTTL() time.Duration {
	hours := o.cfg.Session.TTLHours
	if hours <= 0 {
		hours = 168 // 7 days
	}
	return time.Duration(hours) * time.Hour
}

func (o *Orchestrator) accessTokenTTL() time.Duration {
	minutes := o.cfg.Security.AccessTokenTTLMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// detach runs best-effort bookkeeping off the critical path. Failures are
// logged and go nowhere else.
func (o *Orchestrator) detach(action string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachedTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logrus.WithError(err).WithField("action", action).Warn("Best-effort task failed")
		}
	}()
}

func (o *Orchestrator) publishDetached(active *models.Session, action string) {
	if o.audit == nil {
		return
	}
	message := models.ActivityMessage{
		UserID:      active.UserID,
		SessionID:   active.SessionID,
		ServiceName: models.ServiceAuthOrchestrator,
		Action:      action,
		IPAddress:   active.IPAddress,
		UserAgent:   active.UserAgent,
		Timestamp:   time.Now(),
	}
	o.detach("publish_activity", func(context.Context) error {
		return o.audit.PublishActivity(message)
	})
}
