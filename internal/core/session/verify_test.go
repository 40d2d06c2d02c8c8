package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
)

func TestVerifyAuth(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		getMe        []meResult
		refreshTok   string
		refreshErr   error
		wantOK       bool
		wantUser     bool
		wantToken    string
		wantGetMe    int32
		wantRefresh  int32
		wantVerifErr bool
	}{
		{
			name:      "valid token",
			token:     "1|t",
			getMe:     []meResult{{user: testUser(1, "ibu")}},
			wantOK:    true,
			wantUser:  true,
			wantToken: "1|t",
			wantGetMe: 1,
		},
		{
			name:        "refreshed",
			token:       "1|t",
			getMe:       []meResult{{err: errUnauthorized}, {user: testUser(1, "ibu")}},
			refreshTok:  "2|t",
			wantOK:      true,
			wantUser:    true,
			wantToken:   "2|t",
			wantGetMe:   2,
			wantRefresh: 1,
		},
		{
			name:        "refresh rejected",
			token:       "1|t",
			getMe:       []meResult{{err: errUnauthorized}},
			refreshErr:  errUnauthorized,
			wantOK:      false,
			wantUser:    false,
			wantToken:   "",
			wantGetMe:   1,
			wantRefresh: 1,
		},
		{
			name:        "refresh unreachable",
			token:       "1|t",
			getMe:       []meResult{{err: errUnauthorized}},
			refreshErr:  errNetwork,
			wantOK:      false,
			wantUser:    false,
			wantToken:   "",
			wantGetMe:   1,
			wantRefresh: 1,
		},
		{
			name:        "retry after refresh fails",
			token:       "1|t",
			getMe:       []meResult{{err: errUnauthorized}, {err: errNetwork}},
			refreshTok:  "2|t",
			wantOK:      false,
			wantUser:    false,
			wantToken:   "",
			wantGetMe:   2,
			wantRefresh: 1,
		},
		{
			name:         "network error keeps session",
			token:        "1|t",
			getMe:        []meResult{{err: errNetwork}},
			wantOK:       false,
			wantUser:     true,
			wantToken:    "1|t",
			wantGetMe:    1,
			wantVerifErr: true,
		},
		{
			name:         "server error keeps session",
			token:        "1|t",
			getMe:        []meResult{{err: errServer}},
			wantOK:       false,
			wantUser:     true,
			wantToken:    "1|t",
			wantGetMe:    1,
			wantVerifErr: true,
		},
		{
			name:      "no token",
			token:     "",
			wantOK:    false,
			wantUser:  false,
			wantGetMe: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newStore()
			m := newManager(&fakeService{}, store)
			_ = m.Init(ctx)

			// Start from a signed-in state without going through bootstrap,
			// so the service counters only see VerifyAuth.
			seed(store, tt.token, testUser(1, "ibu"))
			m.setUser(testUser(1, "ibu"))

			svc := &fakeService{getMe: tt.getMe, refreshTok: tt.refreshTok, refreshErr: tt.refreshErr}
			m.svc = svc

			ok, err := m.VerifyAuth(ctx)
			if err != nil {
				t.Fatalf("VerifyAuth() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("VerifyAuth() = %v, want %v", ok, tt.wantOK)
			}

			s := m.State()
			if s.IsVerifying {
				t.Error("IsVerifying still true after VerifyAuth returned")
			}
			if (s.User != nil) != tt.wantUser {
				t.Errorf("user = %+v, want present=%v", s.User, tt.wantUser)
			}
			if (s.VerifyErr != nil) != tt.wantVerifErr {
				t.Errorf("VerifyErr = %v, want set=%v", s.VerifyErr, tt.wantVerifErr)
			}
			if tok, _ := store.GetToken(ctx); tok != tt.wantToken {
				t.Errorf("stored token = %q, want %q", tok, tt.wantToken)
			}
			if !tt.wantUser {
				if u, _ := store.GetUser(ctx); u != nil && tt.token != "" {
					t.Errorf("stored user not cleared: %+v", u)
				}
			}
			if got := svc.getMeCalls.Load(); got != tt.wantGetMe {
				t.Errorf("GetMe calls = %d, want %d", got, tt.wantGetMe)
			}
			if got := svc.refreshCalls.Load(); got != tt.wantRefresh {
				t.Errorf("RefreshToken calls = %d, want %d", got, tt.wantRefresh)
			}
		})
	}
}

func TestVerifyAuth_IsVerifyingDuringCall(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	m := newManager(&fakeService{}, store)
	_ = m.Init(ctx)

	paths := map[string][]meResult{
		"success":  {{user: testUser(1, "ibu")}},
		"failure":  {{err: errNetwork}},
		"rejected": {{err: errUnauthorized}},
	}

	for name, getMe := range paths {
		t.Run(name, func(t *testing.T) {
			seed(store, "1|t", testUser(1, "ibu"))
			svc := &fakeService{
				getMe:      getMe,
				refreshErr: errUnauthorized,
				gate:       make(chan struct{}),
				entered:    make(chan struct{}, 1),
			}
			m.svc = svc

			done := make(chan struct{})
			go func() {
				defer close(done)
				_, _ = m.VerifyAuth(ctx)
			}()

			<-svc.entered
			if !m.State().IsVerifying {
				t.Error("IsVerifying should be true while GetMe is in flight")
			}
			if m.State().Status() != StatusVerifying {
				t.Errorf("Status() = %v, want verifying", m.State().Status())
			}

			close(svc.gate)
			<-done
			if m.State().IsVerifying {
				t.Error("IsVerifying should be false once VerifyAuth returned")
			}
		})
	}
}

func TestVerifyAuth_StorageErrorPropagates(t *testing.T) {
	ctx := context.Background()
	store, kv := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	svc := &fakeService{getMe: []meResult{{user: testUser(1, "ibu")}}}
	m := newManager(svc, store)
	_ = m.Init(ctx)

	kv.failGet.Store(true)
	ok, err := m.VerifyAuth(ctx)
	if ok {
		t.Error("VerifyAuth() = true with unreadable token")
	}
	if domain.KindOf(err) != domain.KindStorage || !errors.Is(err, errDisk) {
		t.Errorf("VerifyAuth() error = %v, want storage error wrapping the cause", err)
	}
	if m.State().IsVerifying {
		t.Error("IsVerifying still true after storage failure")
	}
}

func TestVerifyAuth_ClearFailureAfterRejection(t *testing.T) {
	ctx := context.Background()
	store, kv := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	svc := &fakeService{getMe: []meResult{{user: testUser(1, "ibu")}, {err: errUnauthorized}}, refreshErr: errUnauthorized}
	m := newManager(svc, store)
	_ = m.Init(ctx)

	kv.failClear.Store(true)
	ok, err := m.VerifyAuth(ctx)
	if ok {
		t.Error("VerifyAuth() = true after rejected refresh")
	}
	if domain.KindOf(err) != domain.KindStorage {
		t.Errorf("VerifyAuth() error = %v, want storage error", err)
	}
	if m.State().User != nil {
		t.Error("in-memory user must be cleared even if storage is not")
	}
}

func TestVerifyAuth_ConcurrentCallsShareOneFlight(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	m := newManager(&fakeService{getMe: []meResult{{user: testUser(1, "ibu")}}}, store)
	_ = m.Init(ctx)

	svc := &fakeService{
		getMe:      []meResult{{err: errUnauthorized}, {user: testUser(1, "ibu")}},
		refreshTok: "2|t",
		gate:       make(chan struct{}),
		entered:    make(chan struct{}, 4),
	}
	m.svc = svc

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ok, _ := m.VerifyAuth(ctx)
		results <- ok
	}()
	<-svc.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := m.VerifyAuth(ctx)
			results <- ok
		}()
	}

	// Give the late callers time to join the flight.
	time.Sleep(50 * time.Millisecond)
	close(svc.gate)
	wg.Wait()
	close(results)

	for ok := range results {
		if !ok {
			t.Error("a caller saw a different outcome")
		}
	}
	if got := svc.refreshCalls.Load(); got != 1 {
		t.Errorf("RefreshToken calls = %d, want exactly 1", got)
	}
	if got := svc.getMeCalls.Load(); got != 2 {
		t.Errorf("GetMe calls = %d, want 2 (one flight)", got)
	}
}

func TestVerifyAuth_SequentialCallsEachVerify(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	svc := &fakeService{getMe: []meResult{{user: testUser(1, "ibu")}}}
	m := newManager(svc, store)
	_ = m.Init(ctx)

	for i := 0; i < 3; i++ {
		if ok, err := m.VerifyAuth(ctx); !ok || err != nil {
			t.Fatalf("VerifyAuth() = %v, %v", ok, err)
		}
	}
	if got := svc.getMeCalls.Load(); got != 4 {
		t.Errorf("GetMe calls = %d, want 4 (bootstrap + 3)", got)
	}
}

func TestVerifyAuth_CallerCancelDoesNotAbortFlight(t *testing.T) {
	store, _ := newStore()
	seed(store, "1|t", testUser(1, "ibu"))
	svc := &fakeService{
		getMe:   []meResult{{user: testUser(1, "ibu2")}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	m := newManager(svc, store)
	m.setUser(testUser(1, "ibu"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := m.VerifyAuth(ctx)
		errCh <- err
	}()

	<-svc.entered
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("VerifyAuth() error = %v, want context.Canceled", err)
	}
	if !m.State().IsVerifying {
		t.Error("verification should still be running after the caller left")
	}

	close(svc.gate)
	m.Dispose()
	s := m.State()
	if s.IsVerifying || s.User == nil || s.User.Name != "ibu2" {
		t.Errorf("state after flight = %+v", s)
	}
}

func TestVerifyAuth_ConfirmedButNotCached(t *testing.T) {
	ctx := context.Background()
	store, kv := newStore()
	seed(store, "1|t", testUser(1, "lama"))
	svc := &fakeService{getMe: []meResult{{user: testUser(1, "baru")}}}
	m := newManager(svc, store)
	_ = m.Restore(ctx)

	kv.failSet.Store(true)
	ok, err := m.VerifyAuth(ctx)
	if !ok {
		t.Error("VerifyAuth() = false, the server confirmed the session")
	}
	if domain.KindOf(err) != domain.KindStorage || !errors.Is(err, errDisk) {
		t.Errorf("VerifyAuth() error = %v, want storage error wrapping the cause", err)
	}
	if u := m.State().User; u == nil || u.Name != "baru" {
		t.Errorf("user = %+v, want baru", u)
	}
	if tok, _ := store.GetToken(ctx); tok != "1|t" {
		t.Errorf("token = %q, want it kept", tok)
	}
}
