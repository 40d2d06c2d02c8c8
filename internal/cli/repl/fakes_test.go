package repl

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/core/session"
)

type fakeSession struct {
	mu       sync.Mutex
	user     *domain.User
	valid    bool
	loginReq domain.LoginRequest
	loginErr error

	verifyCalls atomic.Int32
	logouts     atomic.Int32
}

func signedIn() *fakeSession {
	return &fakeSession{user: &domain.User{ID: 1, Name: "Siti", Email: "siti@example.id"}, valid: true}
}

func (f *fakeSession) VerifyAuth(ctx context.Context) (bool, error) {
	f.verifyCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid {
		f.user = nil
	}
	return f.valid && f.user != nil, nil
}

func (f *fakeSession) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.State{User: f.user.Clone()}
}

func (f *fakeSession) Login(ctx context.Context, req domain.LoginRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginReq = req
	if f.loginErr != nil {
		return f.loginErr
	}
	f.user = &domain.User{ID: 2, Name: "Ayu", Email: req.Email}
	f.valid = true
	return nil
}

func (f *fakeSession) Logout(ctx context.Context) error {
	f.logouts.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	f.valid = false
	return nil
}

func (f *fakeSession) expire() {
	f.mu.Lock()
	f.valid = false
	f.mu.Unlock()
}
