package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jagoanbunda/bunda-cli/internal/api"
	"github.com/jagoanbunda/bunda-cli/internal/cli/config"
	"github.com/jagoanbunda/bunda-cli/internal/cli/output"
	"github.com/jagoanbunda/bunda-cli/internal/core/session"
	"github.com/jagoanbunda/bunda-cli/internal/infra/shutdown"
	"github.com/jagoanbunda/bunda-cli/internal/storage"
	"github.com/jagoanbunda/bunda-cli/internal/storage/memory"
	"github.com/jagoanbunda/bunda-cli/internal/storage/tokenstore"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/logger"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/metric"
	"github.com/jagoanbunda/bunda-cli/pkg/crypto/adaptive"
)

const (
	envKey     = "env"
	optionsKey = "options"
)

// Env is the per-invocation dependency graph.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Format     output.Format
	Logger     logger.Logger
	Metrics    *metric.Registry

	KV      storage.KV
	Tokens  *tokenstore.Store
	Client  *api.Client
	Session *session.Manager

	Out io.Writer
	Err io.Writer

	shutdown *shutdown.Handler
}

// appOptions are test seams.
type appOptions struct {
	kv  storage.KV
	kdf *adaptive.KDFParams
}

// AppOption configures App.
type AppOption func(*appOptions)

// WithKV uses kv instead of opening the configured store. The app does not
// close it.
func WithKV(kv storage.KV) AppOption {
	return func(o *appOptions) {
		o.kv = kv
	}
}

// WithKDFParams overrides the key derivation cost for encrypted storage.
func WithKDFParams(p adaptive.KDFParams) AppOption {
	return func(o *appOptions) {
		o.kdf = &p
	}
}

// loadConfig merges the config file with global flags.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" {
		path = config.DefaultPath()
	}

	overrides := make(map[string]any)
	if c.IsSet("api-url") {
		overrides["api.url"] = c.String("api-url")
	}
	if c.IsSet("output") {
		overrides["output"] = c.String("output")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	if c.Bool("verbose") {
		overrides["log.level"] = "debug"
	}
	if c.Bool("ephemeral") {
		overrides["storage.engine"] = config.EngineMemory
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// getEnv builds the Env on first use and caches it on the app.
func getEnv(c *cli.Context) (*Env, error) {
	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env, nil
	}
	opts, _ := c.App.Metadata[optionsKey].(*appOptions)
	if opts == nil {
		opts = &appOptions{}
	}

	env, err := newEnv(c, opts)
	if err != nil {
		return nil, err
	}
	c.App.Metadata[envKey] = env
	return env, nil
}

func newEnv(c *cli.Context, opts *appOptions) (env *Env, err error) {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	env = &Env{
		Config:     cfg,
		ConfigPath: path,
		Format:     format,
		Logger:     log,
		Metrics:    metric.NewRegistry(),
		Out:        c.App.Writer,
		Err:        c.App.ErrWriter,
		shutdown:   shutdown.NewHandler(10 * time.Second),
	}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()

	kv, err := env.openKV(c.Context, opts)
	if err != nil {
		return nil, err
	}
	env.KV = kv
	env.Tokens = tokenstore.New(kv)

	env.Client, err = api.NewClient(cfg.APIClientConfig(),
		api.WithTokenSource(env.Tokens),
		api.WithObserver(env.Metrics),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	env.Session = session.New(api.NewAuthService(env.Client), env.Tokens,
		session.WithLogger(log),
		session.WithMetrics(env.Metrics),
	)
	env.shutdown.OnShutdown("session", func(context.Context) error {
		env.Session.Dispose()
		return nil
	})

	log.Debug("environment ready",
		"config", path,
		"api_url", cfg.API.URL,
		"storage", cfg.Storage.Engine,
		"encrypted", cfg.Storage.Passphrase != "",
	)
	return env, nil
}

func (e *Env) openKV(ctx context.Context, opts *appOptions) (storage.KV, error) {
	var kv storage.KV
	switch {
	case opts.kv != nil:
		kv = opts.kv
	case e.Config.Storage.Engine == config.EngineMemory:
		kv = memory.New()
	default:
		bs, err := storage.NewBadgerStore(e.Config.KVConfig(), e.Logger)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		if err := bs.RegisterMetrics(e.Metrics.Registerer()); err != nil {
			e.Logger.Warn("badger metrics unavailable", "error", err)
		}
		kv = bs
	}
	if opts.kv == nil {
		e.shutdown.OnShutdown("storage", func(context.Context) error {
			return kv.Close()
		})
	}

	pass := e.Config.Storage.Passphrase
	if pass == "" {
		return kv, nil
	}
	params := adaptive.DefaultKDFParams()
	if opts.kdf != nil {
		params = *opts.kdf
	}
	sealed, err := storage.NewSealed(ctx, kv, pass, params)
	if err != nil {
		return nil, fmt.Errorf("unlock session store: %w", err)
	}
	return sealed, nil
}

// Close releases the session, then storage.
func (e *Env) Close() error {
	return e.shutdown.Shutdown()
}

// Print formats v with the selected output format.
func (e *Env) Print(v any) error {
	return output.NewFormatter(e.Format).Format(e.Out, v)
}
