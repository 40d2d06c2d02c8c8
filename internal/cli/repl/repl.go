package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/core/guard"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// Session is what the shell needs from the session manager.
type Session interface {
	guard.Auth
	Login(ctx context.Context, req domain.LoginRequest) error
	Logout(ctx context.Context) error
}

var commandHelp = []struct{ name, usage string }{
	{"open", "open <screen>      show a screen (home, profile, login)"},
	{"back", "back               return to the previous screen"},
	{"refresh", "refresh            refocus the current screen"},
	{"login", "login [email]      sign in"},
	{"logout", "logout             sign out"},
	{"whoami", "whoami             show the signed-in user"},
	{"history", "history            show command history"},
	{"help", "help               show this help"},
	{"exit", "exit               leave the shell"},
}

var errExit = errors.New("exit")

// REPL is the interactive shell.
type REPL struct {
	sess      Session
	router    *Router
	history   *History
	completer *Completer
	formatter output.Formatter
	apiURL    string
	logger    logger.Logger

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO sets input and output.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		r.in = in
		r.out = out
	}
}

// WithHistory sets the history.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		r.history = h
	}
}

// WithFormatter sets how profiles are printed.
func WithFormatter(f output.Formatter) Option {
	return func(r *REPL) {
		r.formatter = f
	}
}

// WithAPIURL is used to resolve avatar paths.
func WithAPIURL(u string) Option {
	return func(r *REPL) {
		r.apiURL = u
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *REPL) {
		r.logger = l
	}
}

// WithRouter replaces the default router.
func WithRouter(router *Router) Option {
	return func(r *REPL) {
		r.router = router
	}
}

// New creates a shell over sess.
func New(sess Session, opts ...Option) *REPL {
	r := &REPL{
		sess:      sess,
		in:        os.Stdin,
		out:       os.Stdout,
		formatter: output.NewFormatter(output.FormatTable),
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.history == nil {
		r.history = NewHistory("", 0)
	}
	if r.router == nil {
		r.router = NewRouter(sess, DefaultScreens, guard.WithLogger(r.logger))
	}
	r.completer = NewCompleter(r.router.Names())
	r.reader = bufio.NewReader(r.in)
	r.router.OnChange(func(from, to Screen) {
		if from.Protected {
			fmt.Fprintf(r.out, "session expired, redirected from %s to %s\n", from.Name, to.Name)
		}
	})
	return r
}

// Run reads commands until exit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		r.logger.Warn("load history failed", "error", err)
	}
	defer func() {
		r.router.Close()
		if err := r.history.Save(); err != nil {
			r.logger.Warn("save history failed", "error", err)
		}
	}()

	fmt.Fprintln(r.out, "Jagoan Bunda shell. Type 'help' for commands.")
	if err := r.router.Push(PathHome); err != nil {
		return err
	}
	r.render()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		cur, _ := r.router.Current()
		fmt.Fprintf(r.out, "bunda:%s> ", cur.Name)

		line, err := r.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		r.history.Add(line)

		err = r.execute(ctx, line)
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *REPL) readLine() (string, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *REPL) readPassword() (string, error) {
	fmt.Fprint(r.out, "password: ")
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.out)
		return string(b), err
	}
	return r.readLine()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "?":
		for _, c := range commandHelp {
			fmt.Fprintln(r.out, "  "+c.usage)
		}
		return nil
	case "exit", "quit":
		return errExit
	case "history":
		for i, e := range r.history.Entries() {
			fmt.Fprintf(r.out, "%4d  %s\n", i+1, e)
		}
		return nil
	case "open":
		if len(args) != 1 {
			return fmt.Errorf("usage: open <screen>")
		}
		s, ok := r.router.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown screen %q (have %s)", args[0], strings.Join(r.router.Names(), ", "))
		}
		if err := r.router.Push(s.Path); err != nil {
			return err
		}
	case "back":
		if err := r.router.Back(); err != nil {
			return err
		}
	case "refresh":
		r.router.Refocus()
	case "login":
		if err := r.login(ctx, args); err != nil {
			return err
		}
	case "logout":
		if err := r.sess.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Signed out.")
		if cur, ok := r.router.Current(); ok && cur.Protected {
			if err := r.router.Switch(PathLogin); err != nil {
				return err
			}
		}
	case "whoami":
		u := r.sess.State().User
		if u == nil {
			fmt.Fprintln(r.out, "not signed in")
			return nil
		}
		return r.formatter.Format(r.out, output.NewUserView(u, r.apiURL))
	default:
		if s := r.completer.Complete(cmd); len(s) > 0 {
			return fmt.Errorf("unknown command %q, did you mean %s?", cmd, strings.Join(s, " or "))
		}
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}

	r.router.Settle()
	r.render()
	return nil
}

func (r *REPL) login(ctx context.Context, args []string) error {
	var req domain.LoginRequest
	switch len(args) {
	case 0:
		fmt.Fprint(r.out, "email: ")
		email, err := r.readLine()
		if err != nil {
			return err
		}
		req.Email = email
	case 1, 2:
		req.Email = args[0]
		if len(args) == 2 {
			req.Password = args[1]
		}
	default:
		return fmt.Errorf("usage: login [email]")
	}
	if req.Password == "" {
		pw, err := r.readPassword()
		if err != nil {
			return err
		}
		req.Password = pw
	}

	if err := r.sess.Login(ctx, req); err != nil {
		return errors.New(domain.Detail(err))
	}
	fmt.Fprintf(r.out, "Signed in as %s.\n", r.sess.State().User.Name)

	if cur, ok := r.router.Current(); ok && cur.Path == PathLogin {
		if r.router.Depth() > 1 {
			return r.router.Back()
		}
		return r.router.Switch(PathHome)
	}
	return nil
}

func (r *REPL) render() {
	cur, ok := r.router.Current()
	if !ok {
		return
	}
	st := r.sess.State()

	switch cur.Path {
	case PathHome:
		if st.User != nil {
			fmt.Fprintf(r.out, "[home] Hello, %s.\n", st.User.Name)
		} else {
			fmt.Fprintln(r.out, "[home] Not signed in. Type 'login' or 'open login'.")
		}
	case PathLogin:
		fmt.Fprintln(r.out, "[login] Sign in with: login <email>")
	case PathProfile:
		g := r.router.CurrentGuard()
		if g == nil || g.View() == guard.ViewLoading {
			fmt.Fprintln(r.out, "[profile] checking session...")
			return
		}
		fmt.Fprintln(r.out, "[profile]")
		if err := r.formatter.Format(r.out, output.NewUserView(st.User, r.apiURL)); err != nil {
			r.logger.Warn("render profile failed", "error", err)
		}
	}
}
