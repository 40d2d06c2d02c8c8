package repl

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jagoanbunda/bunda-cli/internal/core/guard"
)

// Screen paths.
const (
	PathHome    = "/home"
	PathProfile = "/profile"
	PathLogin   = guard.DefaultLoginPath
)

// Screen is a place the shell can show.
type Screen struct {
	Name      string
	Path      string
	Protected bool
}

// DefaultScreens are the screens of the shell.
var DefaultScreens = []Screen{
	{Name: "home", Path: PathHome},
	{Name: "profile", Path: PathProfile, Protected: true},
	{Name: "login", Path: PathLogin},
}

type entry struct {
	screen Screen
	focus  *focusSource
	guard  *guard.Guard
}

// Router is a stack of screens. Guards of protected screens navigate
// through it.
type Router struct {
	auth      guard.Auth
	guardOpts []guard.Option

	byPath map[string]Screen
	byName map[string]Screen

	mu       sync.Mutex
	stack    []*entry
	guards   []*guard.Guard
	onChange func(from, to Screen)
}

// NewRouter creates a router over screens. Protected screens get a guard
// built from auth and guardOpts.
func NewRouter(auth guard.Auth, screens []Screen, guardOpts ...guard.Option) *Router {
	r := &Router{
		auth:      auth,
		guardOpts: guardOpts,
		byPath:    make(map[string]Screen, len(screens)),
		byName:    make(map[string]Screen, len(screens)),
	}
	for _, s := range screens {
		r.byPath[s.Path] = s
		r.byName[s.Name] = s
	}
	return r
}

// OnChange registers a callback for redirects made through Replace.
func (r *Router) OnChange(fn func(from, to Screen)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Lookup finds a screen by name.
func (r *Router) Lookup(name string) (Screen, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns the screen names, sorted.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Current returns the focused screen.
func (r *Router) Current() (Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return Screen{}, false
	}
	return r.stack[len(r.stack)-1].screen, true
}

// CurrentGuard returns the guard of the focused screen, if it has one.
func (r *Router) CurrentGuard() *guard.Guard {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1].guard
}

// Depth returns the number of screens on the stack.
func (r *Router) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// Push focuses the screen at path on top of the current one.
func (r *Router) Push(path string) error {
	s, ok := r.byPath[path]
	if !ok {
		return fmt.Errorf("unknown screen %q", path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.stack); n > 0 {
		r.stack[n-1].focus.blur()
	}
	r.enter(s)
	return nil
}

// Back leaves the current screen and refocuses the previous one.
func (r *Router) Back() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) < 2 {
		return fmt.Errorf("already at the first screen")
	}
	r.leave()
	r.stack[len(r.stack)-1].focus.focus()
	return nil
}

// Replace swaps the current screen for the one at path and reports the
// redirect to the OnChange callback.
func (r *Router) Replace(path string) {
	r.replace(nil, path, true)
}

// screenNav is the navigator of a screen's guard. Its redirects are
// dropped once another screen has focus.
type screenNav struct {
	r *Router
	e *entry
}

func (n screenNav) Replace(path string) {
	n.r.replace(n.e, path, true)
}

// Switch swaps the current screen without reporting a redirect.
func (r *Router) Switch(path string) error {
	if _, ok := r.byPath[path]; !ok {
		return fmt.Errorf("unknown screen %q", path)
	}
	r.replace(nil, path, false)
	return nil
}

// Refocus blurs and refocuses the current screen, rerunning its focus
// effects.
func (r *Router) Refocus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.stack); n > 0 {
		r.stack[n-1].focus.blur()
		r.stack[n-1].focus.focus()
	}
}

// replace swaps the top screen. A non-nil from must still be the top
// screen, otherwise nothing happens.
func (r *Router) replace(from *entry, path string, notify bool) {
	s, ok := r.byPath[path]
	if !ok {
		return
	}

	r.mu.Lock()
	if from != nil && (len(r.stack) == 0 || r.stack[len(r.stack)-1] != from) {
		r.mu.Unlock()
		return
	}
	var prev Screen
	if len(r.stack) > 0 {
		prev = r.stack[len(r.stack)-1].screen
		r.leave()
	}
	r.enter(s)
	onChange := r.onChange
	r.mu.Unlock()

	if notify && onChange != nil {
		onChange(prev, s)
	}
}

// enter pushes and focuses s. Callers hold mu.
func (r *Router) enter(s Screen) {
	e := &entry{screen: s, focus: newFocusSource()}
	if s.Protected {
		e.guard = guard.New(r.auth, screenNav{r: r, e: e}, r.guardOpts...)
		e.guard.Mount(e.focus)
		r.guards = append(r.guards, e.guard)
	}
	r.stack = append(r.stack, e)
	e.focus.focus()
}

// leave blurs, unmounts and pops the top screen. Callers hold mu.
func (r *Router) leave() {
	n := len(r.stack)
	top := r.stack[n-1]
	top.focus.blur()
	if top.guard != nil {
		top.guard.Unmount()
	}
	r.stack = r.stack[:n-1]
}

// Settle waits until the focused screen's checks are done. A check that
// redirects changes the focused screen, so it waits again on the new one.
func (r *Router) Settle() {
	for {
		g := r.CurrentGuard()
		if g == nil {
			return
		}
		g.Wait()
		if r.CurrentGuard() == g {
			return
		}
	}
}

// Close unmounts every screen and waits for outstanding checks.
func (r *Router) Close() {
	r.mu.Lock()
	for len(r.stack) > 0 {
		r.leave()
	}
	guards := r.guards
	r.guards = nil
	r.mu.Unlock()

	for _, g := range guards {
		g.Wait()
	}
}
