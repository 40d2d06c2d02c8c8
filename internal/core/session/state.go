package session

import "github.com/jagoanbunda/bunda-cli/internal/core/domain"

// Status is the coarse state of the session.
type Status int

const (
	StatusBootstrapping Status = iota
	StatusUnauthenticated
	StatusAuthenticated
	StatusVerifying
)

func (s Status) String() string {
	switch s {
	case StatusBootstrapping:
		return "bootstrapping"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	case StatusVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// State is a snapshot of the authentication state.
type State struct {
	User        *domain.User
	IsLoading   bool
	IsVerifying bool

	// VerifyErr is the transient failure of the last verification, if it
	// failed without invalidating the session. It is reset when the next
	// verification starts.
	VerifyErr error
}

// IsAuthenticated reports whether a user is signed in.
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// Status derives the state machine position from the flags.
func (s State) Status() Status {
	switch {
	case s.IsLoading:
		return StatusBootstrapping
	case s.IsVerifying:
		return StatusVerifying
	case s.User != nil:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}
