package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"igyan-auth-svc/src/internal/config"
	"igyan-auth-svc/src/internal/device"
	"igyan-auth-svc/src/internal/models"
	"igyan-auth-svc/src/internal/session"
	"igyan-auth-svc/src/internal/user"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User // keyed by email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*user.User{}}
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID.Hex() == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrRecordNotFound
}

func (r *fakeUserRepo) Insert(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[u.Email]; exists {
		return models.ErrDuplicateRecord
	}
	u.ID = primitive.NewObjectID()
	stored := *u
	r.users[u.Email] = &stored
	return nil
}

type fakeSessionRepo struct {
	mu             sync.Mutex
	sessions       map[string]*models.Session // keyed by session token
	users          *fakeUserRepo
	failCreate     bool
	failDeactivate bool
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*models.Session{}, users: users}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return models.ErrSessionCreating
	}
	stored := *s
	r.sessions[s.SessionToken] = &stored
	return nil
}

func (r *fakeSessionRepo) FindActiveByToken(ctx context.Context, tok string) (*models.Session, *user.User, error) {
	r.mu.Lock()
	s, ok := r.sessions[tok]
	if !ok || !s.IsActive {
		r.mu.Unlock()
		return nil, nil, nil
	}
	copied := *s
	r.mu.Unlock()

	owner, err := r.users.FindByID(ctx, copied.UserID)
	if err != nil {
		return nil, nil, nil
	}
	return &copied, owner, nil
}

func (r *fakeSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SessionID == sessionID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, models.ErrSessionNotFound
}

func (r *fakeSessionRepo) TouchActivity(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SessionID == sessionID {
			s.LastActivityAt = time.Now()
			return nil
		}
	}
	return models.ErrSessionUpdating
}

func (r *fakeSessionRepo) Deactivate(ctx context.Context, tok string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDeactivate {
		return models.ErrSessionUpdating
	}
	if s, ok := r.sessions[tok]; ok {
		now := time.Now()
		s.IsActive = false
		s.LogoutAt = &now
	}
	return nil
}

func (r *fakeSessionRepo) List(ctx context.Context, req *session.ListRequest) ([]*models.Session, int64, error) {
	return nil, 0, nil
}

func (r *fakeSessionRepo) Stats(ctx context.Context) (*models.SessionStats, error) {
	return &models.SessionStats{}, nil
}

func (r *fakeSessionRepo) get(tok string) *models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tok]; ok {
		copied := *s
		return &copied
	}
	return nil
}

func (r *fakeSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type memPointer struct {
	mu      sync.Mutex
	token   string
	failSet bool
}

func (p *memPointer) Get() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, nil
}

func (p *memPointer) Set(tok string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSet {
		return errors.New("storage unavailable")
	}
	p.token = tok
	return nil
}

func (p *memPointer) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

type stubLookup struct {
	ip  string
	err error
}

func (s *stubLookup) Lookup(ctx context.Context) (string, error) {
	return s.ip, s.err
}

type testEnv struct {
	orch     *Orchestrator
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	pointer  *memPointer
}

func newTestEnv(t *testing.T, lookup device.IPLookup) *testEnv {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo(users)
	pointer := &memPointer{}
	probe := device.NewProbe("igyan-test", lookup)
	cfg := &config.Configuration{
		Security: config.SecuritySettings{JwtKey: "test-secret", AccessTokenTTLMinutes: 15},
		Session:  config.SessionSettings{TTLHours: 168},
	}

	orch := NewOrchestrator(cfg, users, sessions, pointer, probe, nil, nil)
	return &testEnv{orch: orch, users: users, sessions: sessions, pointer: pointer}
}

func mustRegister(t *testing.T, env *testEnv, email, password, role string) {
	t.Helper()
	res := env.orch.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Test User",
		Role:     role,
	})
	if !res.Success {
		t.Fatalf("register failed: %s", res.Error)
	}
}

func TestLoginHappyPath(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Login(ctx, "a@b.com", "p1", user.SuiteInstitutional)
	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	if res.SessionToken == "" || res.AccessToken == "" {
		t.Fatalf("expected tokens in result")
	}
	if !env.orch.IsAuthenticated() || !env.orch.IsInstitutional() {
		t.Fatalf("expected authenticated institutional state")
	}
	if env.orch.IsProfessional() {
		t.Fatalf("student must not read as professional")
	}

	stored := env.sessions.get(res.SessionToken)
	if stored == nil || !stored.IsActive {
		t.Fatalf("expected active session row")
	}
	if stored.IPAddress != "203.0.113.7" {
		t.Fatalf("unexpected ip %q", stored.IPAddress)
	}
	if stored.SessionToken == stored.RefreshToken {
		t.Fatalf("session and refresh token must differ")
	}

	ptr, _ := env.pointer.Get()
	if ptr != res.SessionToken {
		t.Fatalf("pointer must hold the session token")
	}
}

func TestSessionExpiresInSevenDays(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Login(context.Background(), "a@b.com", "p1", "")
	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}

	stored := env.sessions.get(res.SessionToken)
	want := stored.CreatedAt.Add(7 * 24 * time.Hour)
	if diff := stored.ExpiresAt.Sub(want); diff < -time.Second || diff > time.Second {
		t.Fatalf("expected expiry 7 days after creation, off by %v", diff)
	}
}

func TestLoginWrongSuite(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Login(ctx, "a@b.com", "p1", user.SuiteProfessional)
	if res.Success {
		t.Fatalf("expected suite gate to deny login")
	}
	if !strings.Contains(res.Error, "Professional Suite") {
		t.Fatalf("denial must name the suite, got %q", res.Error)
	}
	if env.orch.IsAuthenticated() {
		t.Fatalf("state must remain anonymous")
	}
	if env.sessions.count() != 0 {
		t.Fatalf("no session row may be created on denial")
	}
}

func TestRoleGateMatrix(t *testing.T) {
	institutional := []string{user.RoleSuperAdmin, user.RoleCoAdmin, user.RoleStudent, user.RoleFaculty}
	professional := []string{user.RoleB2CStudent, user.RoleB2CMentor}

	check := func(t *testing.T, role, variant string, wantSuccess bool) {
		env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
		email := role + "@igyan.test"
		mustRegister(t, env, email, "p1", role)

		res := env.orch.Login(context.Background(), email, "p1", variant)
		if res.Success != wantSuccess {
			t.Fatalf("role %s variant %s: success=%v, want %v (error %q)",
				role, variant, res.Success, wantSuccess, res.Error)
		}
	}

	for _, role := range institutional {
		check(t, role, user.SuiteInstitutional, true)
		check(t, role, user.SuiteProfessional, false)
		check(t, role, "", true) // no variant, no gate
	}
	for _, role := range professional {
		check(t, role, user.SuiteProfessional, true)
		check(t, role, user.SuiteInstitutional, false)
		check(t, role, "", true)
	}
}

func TestLoginBadPassword(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Login(ctx, "a@b.com", "wrong", "")
	if res.Success {
		t.Fatalf("expected login to fail")
	}
	if res.Error != msgInvalidCredentials {
		t.Fatalf("unexpected error %q", res.Error)
	}
	if env.sessions.count() != 0 {
		t.Fatalf("no session row may be created on bad password")
	}

	// Unknown email yields the identical message.
	res = env.orch.Login(ctx, "missing@b.com", "p1", "")
	if res.Success || res.Error != msgInvalidCredentials {
		t.Fatalf("unknown email must fail with the generic message, got %q", res.Error)
	}
}

func TestLoginFailOpenIP(t *testing.T) {
	env := newTestEnv(t, &stubLookup{err: errors.New("timeout")})
	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Login(context.Background(), "a@b.com", "p1", user.SuiteInstitutional)
	if !res.Success {
		t.Fatalf("ip lookup failure must not block login: %s", res.Error)
	}

	stored := env.sessions.get(res.SessionToken)
	if stored.IPAddress != device.FallbackIP {
		t.Fatalf("expected fallback ip, got %q", stored.IPAddress)
	}
}

func TestLoginSessionCreateFailure(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	env.sessions.failCreate = true

	res := env.orch.Login(context.Background(), "a@b.com", "p1", "")
	if res.Success {
		t.Fatalf("expected login to fail on session insert error")
	}
	if env.orch.IsAuthenticated() {
		t.Fatalf("state must remain anonymous")
	}
	if ptr, _ := env.pointer.Get(); ptr != "" {
		t.Fatalf("pointer must not be written when the insert fails")
	}
}

func TestLoginPointerWriteFailure(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	env.pointer.failSet = true

	res := env.orch.Login(context.Background(), "a@b.com", "p1", "")
	if res.Success {
		t.Fatalf("expected login to fail when the pointer cannot be stored")
	}

	// The orphaned remote row is retired rather than left active.
	for tok := range env.sessions.sessions {
		if env.sessions.get(tok).IsActive {
			t.Fatalf("unreachable session left active")
		}
	}
}

func TestCheckSessionBootIdempotence(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	login := env.orch.Login(ctx, "a@b.com", "p1", "")
	if !login.Success {
		t.Fatalf("login failed: %s", login.Error)
	}

	first := env.orch.CheckSession(ctx)
	second := env.orch.CheckSession(ctx)

	if !first.Success || !second.Success {
		t.Fatalf("expected both checks to authenticate")
	}
	if first.User.Email != second.User.Email || first.User.Email != "a@b.com" {
		t.Fatalf("expected stable user identity across checks")
	}
}

func TestCheckSessionNoPointer(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})

	res := env.orch.CheckSession(context.Background())
	if res.Success {
		t.Fatalf("expected anonymous state without a pointer")
	}
	if env.orch.State() != StateAnonymous {
		t.Fatalf("boot without pointer must resolve to anonymous")
	}
}

func TestCheckSessionStalePointer(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})

	// Pointer references a session that does not exist remotely.
	env.pointer.Set("ghost-token")

	res := env.orch.CheckSession(context.Background())
	if res.Success {
		t.Fatalf("expected anonymous state for a stale pointer")
	}
	if ptr, _ := env.pointer.Get(); ptr != "" {
		t.Fatalf("stale pointer must be cleared")
	}
}

func TestCheckSessionExpiredOnBoot(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	login := env.orch.Login(ctx, "a@b.com", "p1", "")
	if !login.Success {
		t.Fatalf("login failed: %s", login.Error)
	}

	// Force the stored row past its expiry.
	env.sessions.mu.Lock()
	env.sessions.sessions[login.SessionToken].ExpiresAt = time.Now().Add(-time.Hour)
	env.sessions.mu.Unlock()

	res := env.orch.CheckSession(ctx)
	if res.Success {
		t.Fatalf("expired session must not authenticate")
	}
	if env.orch.IsAuthenticated() {
		t.Fatalf("state must be anonymous after expiry")
	}

	stored := env.sessions.get(login.SessionToken)
	if stored.IsActive {
		t.Fatalf("expired session row must be deactivated")
	}
	if ptr, _ := env.pointer.Get(); ptr != "" {
		t.Fatalf("pointer must be cleared after expiry")
	}
}

func TestLogoutCompleteness(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	login := env.orch.Login(ctx, "a@b.com", "p1", "")
	if !login.Success {
		t.Fatalf("login failed: %s", login.Error)
	}

	// Remote deactivation fails; logout must still complete locally.
	env.sessions.failDeactivate = true

	res := env.orch.Logout(ctx)
	if !res.Success {
		t.Fatalf("logout must always succeed locally")
	}
	if env.orch.IsAuthenticated() {
		t.Fatalf("expected anonymous state after logout")
	}
	if ptr, _ := env.pointer.Get(); ptr != "" {
		t.Fatalf("pointer must be empty after logout")
	}
}

func TestLogoutDeactivatesRemoteRow(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	login := env.orch.Login(ctx, "a@b.com", "p1", "")
	if !login.Success {
		t.Fatalf("login failed: %s", login.Error)
	}

	env.orch.Logout(ctx)

	stored := env.sessions.get(login.SessionToken)
	if stored.IsActive {
		t.Fatalf("expected remote row to be deactivated")
	}
	if stored.LogoutAt == nil {
		t.Fatalf("expected logout timestamp to be set")
	}
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)
	if env.orch.IsAuthenticated() {
		t.Fatalf("registration must not log the user in")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})
	ctx := context.Background()

	mustRegister(t, env, "a@b.com", "p1", user.RoleStudent)

	res := env.orch.Register(ctx, RegisterRequest{
		Email:    "a@b.com",
		Password: "p2",
		Role:     user.RoleFaculty,
	})
	if res.Success {
		t.Fatalf("duplicate email must fail registration")
	}
	if res.Error != models.ErrDuplicateRecord.Error() {
		t.Fatalf("backend error must be surfaced as-is, got %q", res.Error)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t, &stubLookup{ip: "203.0.113.7"})

	res := env.orch.Register(context.Background(), RegisterRequest{
		Email:    "a@b.com",
		Password: "p1",
		Role:     "wizard",
	})
	if res.Success {
		t.Fatalf("unknown role must be rejected")
	}
}
