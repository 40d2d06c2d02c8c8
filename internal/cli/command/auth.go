package command

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
)

// LoginCommand signs in with email and password.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prompted when omitted)",
				EnvVars: []string{"BUNDA_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "revoke-others",
				Usage: "Sign out every other device",
			},
		},
		Action: login,
	}
}

func login(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}

	password, err := passwordFrom(c, "password", "Password: ")
	if err != nil {
		return err
	}

	req := domain.LoginRequest{
		Email:        strings.TrimSpace(c.String("email")),
		Password:     password,
		RevokeOthers: c.Bool("revoke-others"),
	}

	spin := output.NewSpinner(env.Err, "Signing in").Start()
	err = env.Session.Login(c.Context, req)
	spin.Stop()
	if err != nil {
		return err
	}
	return printSignedIn(env)
}

// RegisterCommand creates an account and signs in.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Full name", Required: true},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			&cli.StringFlag{Name: "password-confirmation", Usage: "Password again (prompted when omitted)"},
			&cli.StringFlag{Name: "phone", Usage: "Phone number"},
		},
		Action: register,
	}
}

func register(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}

	password, err := passwordFrom(c, "password", "Password: ")
	if err != nil {
		return err
	}
	confirmation, err := passwordFrom(c, "password-confirmation", "Confirm password: ")
	if err != nil {
		return err
	}

	req := domain.RegisterRequest{
		Name:                 strings.TrimSpace(c.String("name")),
		Email:                strings.TrimSpace(c.String("email")),
		Password:             password,
		PasswordConfirmation: confirmation,
		Phone:                strings.TrimSpace(c.String("phone")),
	}

	spin := output.NewSpinner(env.Err, "Creating account").Start()
	err = env.Session.Register(c.Context, req)
	spin.Stop()
	if err != nil {
		return err
	}
	return printSignedIn(env)
}

// LogoutCommand signs out and clears the stored session.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out",
		Action: logout,
	}
}

func logout(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}
	if err := env.Session.Logout(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "Signed out.")
	return nil
}

func printSignedIn(env *Env) error {
	u := env.Session.State().User
	if env.Format == output.FormatTable {
		fmt.Fprintf(env.Out, "Signed in as %s <%s>.\n", u.Name, u.Email)
		return nil
	}
	return env.Print(output.NewUserView(u, env.Config.API.URL))
}

// passwordFrom returns the flag value, or prompts on stderr. A terminal
// reads without echo; anything else reads one line.
func passwordFrom(c *cli.Context, flag, prompt string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}

	fmt.Fprint(c.App.ErrWriter, prompt)
	if f, ok := c.App.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.App.ErrWriter)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := readLine(c.App.Reader)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

// readLine reads one line without buffering past it, so successive
// prompts on the same reader each get their own line.
func readLine(r io.Reader) (string, error) {
	if br, ok := r.(*bufio.Reader); ok {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	var b strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			b.WriteByte(buf[0])
		}
		if err == io.EOF {
			if b.Len() == 0 {
				return "", err
			}
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(b.String(), "\r"), nil
}
