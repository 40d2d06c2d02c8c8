package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message on one line until stopped. A disabled spinner
// prints nothing, so output piped to a file stays clean.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration
	enabled  bool
	started  bool

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner, enabled only when w is a terminal.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		enabled:  IsTerminal(w),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Start starts the animation.
func (s *Spinner) Start() *Spinner {
	s.started = true
	if !s.enabled {
		close(s.done)
		return s
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], s.message)
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Stop stops the spinner and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.finish("\r\033[K")
}

// Success stops the spinner with a check mark.
func (s *Spinner) Success(message string) {
	s.finish(fmt.Sprintf("\r\033[K✓ %s\n", message))
}

// Fail stops the spinner with a cross.
func (s *Spinner) Fail(message string) {
	s.finish(fmt.Sprintf("\r\033[K✗ %s\n", message))
}

func (s *Spinner) finish(final string) {
	s.once.Do(func() {
		close(s.stop)
		if !s.started {
			return
		}
		<-s.done
		if s.enabled {
			io.WriteString(s.w, final)
		}
	})
}
