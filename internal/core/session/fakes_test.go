package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/storage"
	"github.com/jagoanbunda/bunda-cli/internal/storage/memory"
	"github.com/jagoanbunda/bunda-cli/internal/storage/tokenstore"
)

var (
	errUnauthorized = domain.NewAPIError(401, domain.ErrorResponse{Message: "Unauthenticated."})
	errNetwork      = domain.NewNetworkError(errors.New("dial tcp: connection refused"))
	errServer       = domain.NewAPIError(500, domain.ErrorResponse{Message: "Server Error"})
	errDisk         = errors.New("disk full")
)

func testUser(id int64, name string) *domain.User {
	return &domain.User{ID: id, Name: name, Email: name + "@example.id", UserType: domain.UserTypeParent}
}

// fakeService is an AuthService whose behaviour is set per test.
// getMe results are consumed in order; the last one repeats.
type fakeService struct {
	mu         sync.Mutex
	getMe      []meResult
	refreshTok string
	refreshErr error
	loginResp  *domain.AuthResponse
	loginErr   error
	logoutErr  error
	updateErr  error

	// gate, when set, blocks GetMe until it is closed.
	gate chan struct{}
	// entered is signalled every time GetMe starts.
	entered chan struct{}

	getMeCalls   atomic.Int32
	refreshCalls atomic.Int32
	logoutCalls  atomic.Int32
}

type meResult struct {
	user *domain.User
	err  error
}

func (f *fakeService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResp, nil
}

func (f *fakeService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	return f.Login(ctx, domain.LoginRequest{Email: req.Email, Password: req.Password})
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.logoutCalls.Add(1)
	return f.logoutErr
}

func (f *fakeService) GetMe(ctx context.Context) (*domain.User, error) {
	n := int(f.getMeCalls.Add(1))
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.getMe) == 0 {
		return nil, errNetwork
	}
	i := n - 1
	if i >= len(f.getMe) {
		i = len(f.getMe) - 1
	}
	r := f.getMe[i]
	return r.user.Clone(), r.err
}

func (f *fakeService) RefreshToken(ctx context.Context) (string, error) {
	f.refreshCalls.Add(1)
	return f.refreshTok, f.refreshErr
}

func (f *fakeService) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u := testUser(1, "ibu")
	if req.Name != nil {
		u.Name = *req.Name
	}
	return u, nil
}

func (f *fakeService) UpdateProfileWithAvatar(ctx context.Context, req domain.UpdateProfileRequest, avatarPath string) (*domain.User, error) {
	u, err := f.UpdateProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	p := "avatars/" + avatarPath
	u.AvatarURL = &p
	return u, nil
}

// flakyKV fails operations on selected keys once armed.
type flakyKV struct {
	storage.KV
	failGet   atomic.Bool
	failSet   atomic.Bool
	failClear atomic.Bool
}

func (k *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if k.failGet.Load() {
		return nil, errDisk
	}
	return k.KV.Get(ctx, key)
}

func (k *flakyKV) Set(ctx context.Context, key string, v []byte) error {
	if k.failSet.Load() {
		return errDisk
	}
	return k.KV.Set(ctx, key, v)
}

func (k *flakyKV) Clear(ctx context.Context, keys ...string) error {
	if k.failClear.Load() {
		return errDisk
	}
	return k.KV.Clear(ctx, keys...)
}

func newStore() (*tokenstore.Store, *flakyKV) {
	kv := &flakyKV{KV: memory.New()}
	return tokenstore.New(kv), kv
}

// seed stores a session as a previous run would have left it.
func seed(store *tokenstore.Store, token string, u *domain.User) {
	ctx := context.Background()
	if token != "" {
		_ = store.SetToken(ctx, token)
	}
	if u != nil {
		_ = store.SetUser(ctx, u)
	}
}

// recorder collects every state a Manager publishes.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
