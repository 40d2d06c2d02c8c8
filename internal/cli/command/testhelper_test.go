package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/storage"
)

const testPassword = "rahasia123"

// backend is a fake of the Jagoan Bunda auth API.
type backend struct {
	*httptest.Server

	mu          sync.Mutex
	user        domain.User
	valid       map[string]bool // accepted by /auth/me
	refreshable map[string]bool // accepted by /auth/refresh
	issued      int
	calls       map[string]int
	lastForm    map[string]string
	avatarName  string

	// meLimit, when positive, is how many /auth/me calls succeed before
	// every token is rejected.
	meLimit int
	meOK    int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		user:        domain.User{ID: 7, Name: "Siti Aminah", Email: "siti@example.id", UserType: domain.UserTypeParent},
		valid:       make(map[string]bool),
		refreshable: make(map[string]bool),
		calls:       make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", b.login)
	mux.HandleFunc("POST /api/v1/auth/register", b.register)
	mux.HandleFunc("GET /api/v1/auth/me", b.me)
	mux.HandleFunc("POST /api/v1/auth/refresh", b.refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", b.logout)
	mux.HandleFunc("PUT /api/v1/auth/profile", b.profile)

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/api/v1")]++
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) apiURL() string {
	return b.URL + "/api/v1"
}

func (b *backend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[call]
}

// issue creates a token valid for both /auth/me and /auth/refresh.
func (b *backend) issue() string {
	b.issued++
	tok := fmt.Sprintf("%d|token-%d", b.issued, b.issued)
	b.valid[tok] = true
	b.refreshable[tok] = true
	return tok
}

// expireAccess makes tok fail /auth/me but still refreshable.
func (b *backend) expireAccess(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.valid, tok)
}

// revoke makes tok fail everywhere.
func (b *backend) revoke(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.valid, tok)
	delete(b.refreshable, tok)
}

func (b *backend) bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Email != b.user.Email || req.Password != testPassword {
		writeJSON(w, http.StatusUnprocessableEntity, domain.ErrorResponse{
			Message: "The provided credentials are incorrect.",
			Errors:  map[string][]string{"email": {"The provided credentials are incorrect."}},
		})
		return
	}
	writeJSON(w, http.StatusOK, domain.AuthResponse{Message: "Login successful", User: b.user, Token: b.issue()})
}

func (b *backend) register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Password != req.PasswordConfirmation {
		writeJSON(w, http.StatusUnprocessableEntity, domain.ErrorResponse{
			Message: "The password field confirmation does not match.",
			Errors:  map[string][]string{"password": {"The password field confirmation does not match."}},
		})
		return
	}
	b.user = domain.User{ID: 8, Name: req.Name, Email: req.Email, UserType: domain.UserTypeParent}
	if req.Phone != "" {
		b.user.Phone = &req.Phone
	}
	writeJSON(w, http.StatusCreated, domain.AuthResponse{Message: "Registration successful", User: b.user, Token: b.issue()})
}

func (b *backend) me(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.valid[b.bearer(r)] || (b.meLimit > 0 && b.meOK >= b.meLimit) {
		writeJSON(w, http.StatusUnauthorized, domain.ErrorResponse{Message: "Unauthenticated."})
		return
	}
	b.meOK++
	writeJSON(w, http.StatusOK, domain.MeResponse{User: b.user})
}

func (b *backend) refresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.bearer(r)
	if !b.refreshable[old] {
		writeJSON(w, http.StatusUnauthorized, domain.ErrorResponse{Message: "Unauthenticated."})
		return
	}
	delete(b.valid, old)
	delete(b.refreshable, old)
	writeJSON(w, http.StatusOK, domain.RefreshTokenResponse{Message: "Token refreshed", Token: b.issue()})
}

func (b *backend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok := b.bearer(r)
	delete(b.valid, tok)
	delete(b.refreshable, tok)
	writeJSON(w, http.StatusOK, domain.MessageResponse{Message: "Logged out"})
}

func (b *backend) profile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.valid[b.bearer(r)] {
		writeJSON(w, http.StatusUnauthorized, domain.ErrorResponse{Message: "Unauthenticated."})
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.lastForm = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			b.lastForm[k] = v[0]
		}
		if fh := r.MultipartForm.File["avatar"]; len(fh) > 0 {
			b.avatarName = fh[0].Filename
			path := "avatars/" + fh[0].Filename
			b.user.AvatarURL = &path
		}
		if v, ok := b.lastForm["name"]; ok {
			b.user.Name = v
		}
		if v, ok := b.lastForm["weekly_report"]; ok {
			b.user.WeeklyReport = v == "1"
		}
	} else {
		var req domain.UpdateProfileRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != nil {
			b.user.Name = *req.Name
		}
		if req.Phone != nil {
			b.user.Phone = req.Phone
		}
		if req.PushNotifications != nil {
			b.user.PushNotifications = *req.PushNotifications
		}
		if req.WeeklyReport != nil {
			b.user.WeeklyReport = *req.WeeklyReport
		}
	}
	writeJSON(w, http.StatusOK, domain.UpdateProfileResponse{Message: "Profile updated", User: b.user})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// result is one app run.
type result struct {
	stdout string
	stderr string
	err    error
}

// runApp runs bunda-cli against b with kv as the session store and stdin
// as input. The config file does not exist, so defaults apply.
func runApp(t *testing.T, b *backend, kv storage.KV, stdin string, args ...string) result {
	t.Helper()
	return runAppWith(t, b, []AppOption{WithKV(kv)}, stdin, args...)
}

func runAppWith(t *testing.T, b *backend, opts []AppOption, stdin string, args ...string) result {
	t.Helper()

	app := App(opts...)
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)

	full := []string{"bunda-cli", "--config", filepath.Join(t.TempDir(), "cli.yaml")}
	if b != nil {
		full = append(full, "--api-url", b.apiURL())
	}
	full = append(full, args...)

	err := app.Run(full)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}
