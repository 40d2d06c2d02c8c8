package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jagoanbunda/bunda-cli/internal/core/session"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// DefaultLoginPath is where unauthenticated users are sent.
const DefaultLoginPath = "/auth/login"

// Navigator replaces the current view.
type Navigator interface {
	Replace(path string)
}

// FocusSource runs effect each time the view gains focus. The cleanup
// effect returns runs when the view loses focus. unsubscribe stops
// further effects.
type FocusSource interface {
	UseFocusEffect(effect func() (cleanup func())) (unsubscribe func())
}

// Auth is the part of the session the guard needs.
type Auth interface {
	VerifyAuth(ctx context.Context) (bool, error)
	State() session.State
}

// View is what a guarded view should render.
type View int

const (
	// ViewLoading renders a loading indicator in place of the content.
	ViewLoading View = iota
	// ViewContent renders the protected content.
	ViewContent
)

func (v View) String() string {
	if v == ViewContent {
		return "content"
	}
	return "loading"
}

// Guard wires a protected view to the session.
type Guard struct {
	auth      Auth
	nav       Navigator
	loginPath string
	timeout   time.Duration
	logger    logger.Logger

	mu          sync.Mutex
	unsubscribe func()
	checks      map[*atomic.Bool]struct{}

	wg sync.WaitGroup
}

// Option configures a Guard.
type Option func(*Guard)

// WithLoginPath overrides DefaultLoginPath.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithTimeout bounds how long a single check waits for verification.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		g.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Guard) {
		g.logger = l
	}
}

// New creates a guard. It does nothing until Mount.
func New(auth Auth, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		auth:      auth,
		nav:       nav,
		loginPath: DefaultLoginPath,
		logger:    logger.Default(),
		checks:    make(map[*atomic.Bool]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mount starts verifying on every focus event from focus.
func (g *Guard) Mount(focus FocusSource) {
	unsubscribe := focus.UseFocusEffect(g.onFocus)

	g.mu.Lock()
	prev := g.unsubscribe
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	if prev != nil {
		prev()
	}
}

// Unmount stops listening for focus and drops the result of any check
// still in flight.
func (g *Guard) Unmount() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	for alive := range g.checks {
		alive.Store(false)
	}
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// onFocus is the focus effect. Each invocation gets its own liveness flag.
func (g *Guard) onFocus() func() {
	alive := new(atomic.Bool)
	alive.Store(true)

	g.mu.Lock()
	g.checks[alive] = struct{}{}
	g.mu.Unlock()

	g.wg.Add(1)
	go g.check(alive)

	return func() {
		alive.Store(false)
	}
}

func (g *Guard) check(alive *atomic.Bool) {
	defer g.wg.Done()
	defer func() {
		g.mu.Lock()
		delete(g.checks, alive)
		g.mu.Unlock()
	}()

	ctx := context.Background()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ok, err := g.auth.VerifyAuth(ctx)
	if err != nil {
		g.logger.Warn("session check failed", "error", err)
	}
	if ok {
		return
	}
	if !alive.Load() {
		g.logger.Debug("dropping stale session check")
		return
	}
	g.nav.Replace(g.loginPath)
}

// View reports what the guarded view should show right now.
func (g *Guard) View() View {
	s := g.auth.State()
	if s.IsLoading || s.IsVerifying || !s.IsAuthenticated() {
		return ViewLoading
	}
	return ViewContent
}

// Wait blocks until every check started so far has finished.
func (g *Guard) Wait() {
	g.wg.Wait()
}
