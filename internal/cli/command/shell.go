package command

import (
	"context"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/jagoanbunda/bunda-cli/internal/cli/config"
	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/cli/repl"
	"github.com/jagoanbunda/bunda-cli/internal/core/guard"
	"github.com/jagoanbunda/bunda-cli/internal/infra/confloader"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
)

// ShellCommand starts the interactive shell.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:    "shell",
		Aliases: []string{"sh"},
		Usage:   "Start the interactive shell",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not read or write the history file",
			},
		},
		Action: shell,
	}
}

func shell(c *cli.Context) error {
	env, err := getEnv(c)
	if err != nil {
		return err
	}

	ctx, cancel := env.shutdown.SignalContext(c.Context)
	defer cancel()

	if err := env.Session.Init(ctx); err != nil {
		return err
	}
	watchConfig(ctx, c, env)

	historyFile := filepath.Join(config.Dir(), "history")
	if c.Bool("no-history") {
		historyFile = ""
	}

	timeout := 2 * env.Config.API.Timeout
	router := repl.NewRouter(env.Session, repl.DefaultScreens,
		guard.WithLogger(env.Logger),
		guard.WithTimeout(timeout),
	)

	format := env.Format
	if format == "" {
		format = output.FormatTable
	}
	sh := repl.New(env.Session,
		repl.WithIO(c.App.Reader, env.Out),
		repl.WithRouter(router),
		repl.WithHistory(repl.NewHistory(historyFile, 0)),
		repl.WithFormatter(output.NewFormatter(format)),
		repl.WithAPIURL(env.Config.API.URL),
		repl.WithLogger(env.Logger),
	)
	return sh.Run(ctx)
}

// watchConfig applies log level changes from the config file while the
// shell runs. Other settings need a restart.
func watchConfig(ctx context.Context, c *cli.Context, env *Env) {
	if _, err := os.Stat(env.ConfigPath); err != nil {
		return
	}
	w, err := confloader.NewWatcher(env.ConfigPath, confloader.WithWatcherLogger(env.Logger))
	if err != nil {
		env.Logger.Warn("config watch unavailable", "error", err)
		return
	}

	w.OnChange(func(path string) {
		cfg, _, err := loadConfig(c)
		if err != nil {
			env.Logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if cfg.Log.Level == logger.Level() {
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			env.Logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		env.Logger.Info("log level changed", "level", cfg.Log.Level)
	})
	go w.Run(ctx)
}
