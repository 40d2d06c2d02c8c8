package repl

import "sync"

// focusSource runs registered effects whenever its screen gains focus and
// their cleanups when it loses focus.
type focusSource struct {
	mu      sync.Mutex
	focused bool
	next    int
	effects map[int]*focusEffect
}

type focusEffect struct {
	run     func() func()
	cleanup func()
}

func newFocusSource() *focusSource {
	return &focusSource{effects: make(map[int]*focusEffect)}
}

// UseFocusEffect registers effect. It runs at once if the screen is
// already focused.
func (f *focusSource) UseFocusEffect(effect func() (cleanup func())) (unsubscribe func()) {
	e := &focusEffect{run: effect}

	f.mu.Lock()
	id := f.next
	f.next++
	f.effects[id] = e
	focused := f.focused
	f.mu.Unlock()

	if focused {
		f.start(e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.effects, id)
			cleanup := e.cleanup
			e.cleanup = nil
			f.mu.Unlock()
			if cleanup != nil {
				cleanup()
			}
		})
	}
}

func (f *focusSource) start(e *focusEffect) {
	cleanup := e.run()
	f.mu.Lock()
	e.cleanup = cleanup
	f.mu.Unlock()
}

func (f *focusSource) focus() {
	f.mu.Lock()
	if f.focused {
		f.mu.Unlock()
		return
	}
	f.focused = true
	effects := make([]*focusEffect, 0, len(f.effects))
	for _, e := range f.effects {
		effects = append(effects, e)
	}
	f.mu.Unlock()

	for _, e := range effects {
		f.start(e)
	}
}

func (f *focusSource) blur() {
	f.mu.Lock()
	if !f.focused {
		f.mu.Unlock()
		return
	}
	f.focused = false
	var cleanups []func()
	for _, e := range f.effects {
		if e.cleanup != nil {
			cleanups = append(cleanups, e.cleanup)
			e.cleanup = nil
		}
	}
	f.mu.Unlock()

	for _, c := range cleanups {
		c()
	}
}
