package command

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/infra/buildinfo"
)

// App creates the CLI application.
func App(opts ...AppOption) *cli.App {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &cli.App{
		Name:                 "bunda-cli",
		Usage:                "Jagoan Bunda account and session tool",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			LoginCommand(),
			RegisterCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			VerifyCommand(),
			StatusCommand(),
			ProfileCommand(),
			ConfigCommand(),
			MetricsCommand(),
			ShellCommand(),
		},
		Metadata: map[string]any{optionsKey: o},
		After: func(c *cli.Context) error {
			env, ok := c.App.Metadata[envKey].(*Env)
			if !ok {
				return nil
			}
			delete(c.App.Metadata, envKey)
			return env.Close()
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default ~/.bunda/cli.yaml)",
			EnvVars: []string{"BUNDA_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "Backend API base URL",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// PrintError writes err to w the way main reports failures.
func PrintError(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "error: %s\n", domain.Detail(err))
}
