package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/metric"
)

// ErrDisposed is returned by operations on a disposed Manager.
var ErrDisposed = errors.New("session: manager disposed")

// AuthService is the remote authentication API.
type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context) error
	GetMe(ctx context.Context) (*domain.User, error)
	RefreshToken(ctx context.Context) (string, error)
	UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error)
	UpdateProfileWithAvatar(ctx context.Context, req domain.UpdateProfileRequest, avatarPath string) (*domain.User, error)
}

// TokenStore persists the bearer token and the cached user.
type TokenStore interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	GetUser(ctx context.Context) (*domain.User, error)
	SetUser(ctx context.Context, u *domain.User) error
	Clear(ctx context.Context) error
}

// Manager owns the authentication state.
type Manager struct {
	svc     AuthService
	store   TokenStore
	logger  logger.Logger
	metrics *metric.Registry

	mu       sync.Mutex
	state    State
	subs     map[int]func(State)
	nextSub  int
	disposed bool

	// notifyMu serialises listener calls so they observe changes in order.
	notifyMu sync.Mutex

	flight   singleflight.Group
	inflight sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics records session outcomes in r.
func WithMetrics(r *metric.Registry) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// New creates a Manager in the bootstrapping state. Call Init to load the
// persisted session.
func New(svc AuthService, store TokenStore, opts ...Option) *Manager {
	m := &Manager{
		svc:    svc,
		store:  store,
		logger: logger.Default(),
		state:  State{IsLoading: true},
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	return m
}

// State returns a snapshot of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to be called with a snapshot after every change.
// fn runs on the goroutine that made the change and must not call
// methods that change the state.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// update applies fn to the state and notifies listeners.
func (m *Manager) update(fn func(*State)) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	before := m.state.User != nil
	fn(&m.state)
	after := m.state.User != nil
	snap := m.state.clone()
	listeners := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if before != after && m.metrics != nil {
		m.metrics.SetAuthenticated(after)
	}
	for _, l := range listeners {
		l(snap.clone())
	}
}

func (m *Manager) setUser(u *domain.User) {
	u = u.Clone()
	m.update(func(s *State) {
		s.User = u
	})
}

func (m *Manager) isDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// Init bootstraps the session from the token store.
//
// A cached user and token are restored optimistically and then checked
// with the backend. A 401 clears the session; other failures keep the
// cached user. IsLoading is false once Init returns, whatever the outcome.
// Only storage failures are returned.
func (m *Manager) Init(ctx context.Context) error {
	defer m.update(func(s *State) {
		s.IsLoading = false
	})

	if m.isDisposed() {
		return ErrDisposed
	}

	outcome, err := m.bootstrap(ctx)
	m.countBootstrap(outcome)
	m.logger.Debug("bootstrap finished", "outcome", outcome)
	return err
}

// Restore is Init without the backend: the cached session is restored
// as is and left for VerifyAuth to confirm. A short-lived process that
// verifies right away uses it so an expired access token still gets its
// refresh. IsLoading is false once Restore returns.
func (m *Manager) Restore(ctx context.Context) error {
	defer m.update(func(s *State) {
		s.IsLoading = false
	})

	if m.isDisposed() {
		return ErrDisposed
	}
	restored, err := m.restoreCached(ctx)
	m.logger.Debug("session restored from store", "found", restored)
	return err
}

// restoreCached publishes the cached user when both it and a token are
// stored.
func (m *Manager) restoreCached(ctx context.Context) (bool, error) {
	cached, err := m.store.GetUser(ctx)
	if err != nil {
		return false, err
	}
	token, err := m.store.GetToken(ctx)
	if err != nil {
		return false, err
	}
	if cached == nil || token == "" {
		return false, nil
	}
	m.setUser(cached)
	return true, nil
}

func (m *Manager) bootstrap(ctx context.Context) (string, error) {
	restored, err := m.restoreCached(ctx)
	if err != nil {
		return metric.BootstrapFailed, err
	}
	if !restored {
		return metric.BootstrapNoSession, nil
	}

	fresh, err := m.svc.GetMe(ctx)
	if err == nil {
		m.setUser(fresh)
		if err := m.store.SetUser(ctx, fresh); err != nil {
			return metric.BootstrapFailed, err
		}
		return metric.BootstrapRestored, nil
	}

	switch kind := domain.KindOf(err); kind {
	case domain.KindUnauthorized:
		m.logger.Info("stored session rejected by server")
		return metric.BootstrapCleared, m.expire(ctx)
	case domain.KindStorage:
		return metric.BootstrapFailed, err
	case domain.KindNetwork, domain.KindServer, domain.KindAPI, domain.KindValidation, domain.KindUnknown:
		m.logger.Warn("could not confirm stored session, keeping it", "kind", kind.String(), "error", err)
		return metric.BootstrapOffline, nil
	default:
		return metric.BootstrapOffline, nil
	}
}

// Login signs in and persists the returned session. Service errors are
// returned unchanged.
func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	resp, err := m.svc.Login(ctx, req)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, resp); err != nil {
		return err
	}
	m.countSignIn("login")
	m.logger.Info("signed in", "user_id", resp.User.ID)
	return nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	resp, err := m.svc.Register(ctx, req)
	if err != nil {
		return err
	}
	if err := m.persist(ctx, resp); err != nil {
		return err
	}
	m.countSignIn("register")
	m.logger.Info("registered", "user_id", resp.User.ID)
	return nil
}

func (m *Manager) persist(ctx context.Context, resp *domain.AuthResponse) error {
	if err := m.store.SetToken(ctx, resp.Token); err != nil {
		return err
	}
	if err := m.store.SetUser(ctx, &resp.User); err != nil {
		return err
	}
	m.setUser(&resp.User)
	return nil
}

// Logout revokes the token on the server when it can and always signs
// out locally. A failure to clear the token store is returned after the
// in-memory user has been cleared.
func (m *Manager) Logout(ctx context.Context) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	if err := m.svc.Logout(ctx); err != nil {
		m.logger.Warn("server logout failed, signing out locally", "error", err)
	}
	return m.expire(ctx)
}

// expire clears the token store and the in-memory user.
func (m *Manager) expire(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.setUser(nil)
	return err
}

// UpdateProfile updates the profile on the server and locally.
func (m *Manager) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	u, err := m.svc.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}
	return m.replaceUser(ctx, u)
}

// UpdateProfileWithAvatar is UpdateProfile with an avatar image upload.
func (m *Manager) UpdateProfileWithAvatar(ctx context.Context, req domain.UpdateProfileRequest, avatarPath string) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	u, err := m.svc.UpdateProfileWithAvatar(ctx, req, avatarPath)
	if err != nil {
		return err
	}
	return m.replaceUser(ctx, u)
}

// RefreshUser reloads the profile from the server.
func (m *Manager) RefreshUser(ctx context.Context) error {
	if m.isDisposed() {
		return ErrDisposed
	}
	u, err := m.svc.GetMe(ctx)
	if err != nil {
		return err
	}
	return m.replaceUser(ctx, u)
}

func (m *Manager) replaceUser(ctx context.Context, u *domain.User) error {
	m.setUser(u)
	return m.store.SetUser(ctx, u)
}

// Dispose drops all listeners and waits for an in-flight verification to
// finish. Later calls fail with ErrDisposed.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.subs = make(map[int]func(State))
	m.mu.Unlock()

	m.inflight.Wait()
	m.logger.Debug("session disposed")
}

func (m *Manager) countBootstrap(outcome string) {
	if m.metrics != nil {
		m.metrics.BootstrapTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) countSignIn(method string) {
	if m.metrics != nil {
		m.metrics.SignInTotal.WithLabelValues(method).Inc()
	}
}
