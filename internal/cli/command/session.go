package command

import (
	"errors"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jagoanbunda/bunda-cli/internal/cli/config"
	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/core/guard"
	"github.com/jagoanbunda/bunda-cli/internal/core/session"
	"github.com/jagoanbunda/bunda-cli/pkg/token"
)

// ErrNotSignedIn is returned by commands that need a valid session.
var ErrNotSignedIn = errors.New("not signed in, run 'bunda-cli login'")

// WhoamiCommand prints the signed-in user after verifying the session.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Action: whoami,
	}
}

func whoami(c *cli.Context) error {
	env, err := requireSession(c)
	if err != nil {
		return err
	}
	return env.Print(output.NewUserView(env.Session.State().User, env.Config.API.URL))
}

// onceFocus focuses exactly once, which is what a single command is.
type onceFocus struct{}

func (onceFocus) UseFocusEffect(effect func() (cleanup func())) (unsubscribe func()) {
	cleanup := effect()
	return func() {
		if cleanup != nil {
			cleanup()
		}
	}
}

// redirectRecorder is the navigator of a one-shot guard.
type redirectRecorder struct {
	mu   sync.Mutex
	path string
}

func (r *redirectRecorder) Replace(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

func (r *redirectRecorder) redirected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path != ""
}

// requireSession restores the session and guards the command the way a
// protected screen is guarded: a failed verification means the command
// does not run. A session the backend could not be reached to confirm is
// kept, and the command runs on the cached user.
func requireSession(c *cli.Context) (*Env, error) {
	env, err := getEnv(c)
	if err != nil {
		return nil, err
	}
	if err := env.Session.Restore(c.Context); err != nil {
		return nil, err
	}

	nav := &redirectRecorder{}
	g := guard.New(env.Session, nav,
		guard.WithLogger(env.Logger),
		guard.WithTimeout(2*env.Config.API.Timeout),
	)

	spin := output.NewSpinner(env.Err, "Checking session").Start()
	g.Mount(onceFocus{})
	g.Wait()
	g.Unmount()
	spin.Stop()

	if st := env.Session.State(); unconfirmed(st) {
		env.Logger.Warn("session could not be confirmed, using cached profile", "error", st.VerifyErr)
		return env, nil
	}
	if nav.redirected() || g.View() != guard.ViewContent {
		return nil, ErrNotSignedIn
	}
	return env, nil
}

// unconfirmed reports a session that failed verification for a transient
// reason and is still signed in.
func unconfirmed(st session.State) bool {
	return st.VerifyErr != nil && st.IsAuthenticated()
}

// VerifyCommand checks the stored session against the backend.
func VerifyCommand() *cli.Command {
	return &cli.Command{
		Name:   "verify",
		Usage:  "Verify the stored session, refreshing the token if needed",
		Action: verify,
	}
}

type verifyView struct {
	Authenticated bool   `json:"authenticated"`
	Status        string `json:"status"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

func verify(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}

	if err := env.Session.Restore(c.Context); err != nil {
		return err
	}

	spin := output.NewSpinner(env.Err, "Verifying session").Start()
	ok, err := env.Session.VerifyAuth(c.Context)
	spin.Stop()
	if err != nil {
		return err
	}

	st := env.Session.State()
	kept := !ok && unconfirmed(st)
	v := verifyView{Authenticated: ok || kept, Status: st.Status().String()}
	if st.User != nil {
		v.Name = st.User.Name
		v.Email = st.User.Email
	}
	if st.VerifyErr != nil {
		v.Warning = st.VerifyErr.Error()
	}
	if err := env.Print(v); err != nil {
		return err
	}
	if !ok && !kept {
		return ErrNotSignedIn
	}
	return nil
}

// StatusCommand shows the stored session without contacting the backend.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the locally stored session",
		Action: status,
	}
}

type statusView struct {
	SignedIn    bool       `json:"signed_in"`
	Name        string     `json:"name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Token       string     `json:"token_fingerprint,omitempty"`
	TokenKind   string     `json:"token_kind,omitempty"`
	TokenID     string     `json:"token_id,omitempty"`
	ExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
	Expired     bool       `json:"token_expired,omitempty"`
	APIURL      string     `json:"api_url"`
	Storage     string     `json:"storage"`
	Encrypted   bool       `json:"encrypted"`
	StoragePath string     `json:"storage_path,omitempty"`
}

func (v statusView) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE").
		AddRow("SIGNED IN", output.Cell(v.SignedIn)).
		AddRow("NAME", output.Cell(v.Name)).
		AddRow("EMAIL", output.Cell(v.Email)).
		AddRow("TOKEN", output.Cell(v.Token)).
		AddRow("TOKEN KIND", output.Cell(v.TokenKind))
	if v.TokenID != "" {
		t.AddRow("TOKEN ID", v.TokenID)
	}
	if v.ExpiresAt != nil {
		exp := output.Cell(*v.ExpiresAt)
		if v.Expired {
			exp += " (expired)"
		}
		t.AddRow("TOKEN EXPIRES", exp)
	}
	storage := v.Storage
	if v.StoragePath != "" {
		storage += " " + v.StoragePath
	}
	return t.AddRow("API", v.APIURL).
		AddRow("STORAGE", storage).
		AddRow("ENCRYPTED", output.Cell(v.Encrypted))
}

func status(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}

	user, err := env.Tokens.StoredUser(c.Context)
	if err != nil {
		return err
	}
	tok, err := env.Tokens.GetToken(c.Context)
	if err != nil {
		return err
	}

	v := statusView{
		SignedIn:  user != nil && tok != "",
		APIURL:    env.Config.API.URL,
		Storage:   env.Config.Storage.Engine,
		Encrypted: env.Config.Storage.Passphrase != "",
	}
	if env.Config.Storage.Engine != config.EngineMemory {
		v.StoragePath = env.Config.Storage.Dir
	}
	if user != nil {
		v.Name = user.Name
		v.Email = user.Email
	}
	if info, err := token.Inspect(tok); err == nil {
		v.Token = info.Fingerprint
		v.TokenKind = string(info.Kind)
		v.TokenID = info.ID
		if !info.ExpiresAt.IsZero() {
			exp := info.ExpiresAt
			v.ExpiresAt = &exp
			v.Expired = info.Expired(time.Now())
		}
	}
	return env.Print(v)
}
