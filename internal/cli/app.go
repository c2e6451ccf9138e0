package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/auth"
	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/config"
	"github.com/fr4nk3nst1ner/jobluu/internal/guard"
	"github.com/fr4nk3nst1ner/jobluu/internal/jobs"
	"github.com/fr4nk3nst1ner/jobluu/internal/profile"
	"github.com/fr4nk3nst1ner/jobluu/internal/store"
	"github.com/fr4nk3nst1ner/jobluu/internal/ui"
)

// Version is set at build time
var Version = "dev"

// App is everything a command needs, built once per invocation
type App struct {
	Config *config.Config
	Log    *pterm.Logger
	In     io.Reader
	Out    io.Writer
	Err    io.Writer

	Storage    store.Storage
	Session    *store.SessionStore
	Profile    *store.ProfileStore
	Persister  *store.Persister
	Gateway    *auth.Gateway
	Jobs       *jobs.Service
	Profiles   *profile.Service
	Guard      *guard.Guard
	SetupGuard *guard.Guard // Guard without the profile requirement

	in      *bufio.Reader
	closers []func() error
}

type appOptions struct {
	configPath string
	debug      bool
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
}

func openStorage(ctx context.Context, cfg *config.Config) (store.Storage, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return store.NewMemoryStorage(), nil, nil
	case config.StorageRedis:
		rdb, err := store.NewRedisClient(ctx, cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, apperror.NewConfig("cannot connect to redis", err)
		}
		s := store.NewRedisStorage(rdb, cfg.Storage.RedisPrefix)
		return s, s.Close, nil
	default:
		s, err := store.NewFileStorage(cfg.Storage.File)
		if err != nil {
			return nil, nil, apperror.NewConfig(fmt.Sprintf("cannot open state file %s", cfg.Storage.File), err)
		}
		return s, nil, nil
	}
}

func newApp(ctx context.Context, opts appOptions) (*App, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	log, err := ui.NewLogger(level, opts.errOut)
	if err != nil {
		return nil, apperror.NewConfig("invalid log level", err)
	}
	log.Debug("configuration loaded", log.Args("path", cfg.Path(), "env", cfg.Env(), "api", cfg.BaseURL(), "storage", cfg.Storage.Backend))

	storage, closer, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		In:      opts.in,
		Out:     opts.out,
		Err:     opts.errOut,
		Storage: storage,
		Session: store.NewSessionStore(),
		Profile: store.NewProfileStore(),
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Persister = store.NewPersister(storage, a.Session, a.Profile, log)
	a.Persister.Start(ctx)
	a.closers = append(a.closers, func() error { a.Persister.Stop(); return nil })

	api := client.NewAPI(cfg.BaseURL(), client.CreateHTTPClient(cfg.HTTP.Proxy, cfg.HTTP.Timeout), log)
	api.UserAgent = "jobluu-cli/" + Version

	var identity *auth.ExternalIdentity
	if cfg.Google.ClientID != "" {
		provider := auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, opts.in, opts.errOut)
		identity = auth.NewExternalIdentity(provider)
	}

	a.Gateway = auth.NewGateway(auth.Config{
		API:      api,
		Session:  a.Session,
		Profile:  a.Profile,
		Storage:  storage,
		Identity: identity,
		Log:      log,
	})
	a.Jobs = jobs.NewService(api, a.Gateway, log)
	a.Profiles = profile.NewService(api, a.Gateway, log)

	guardOpts := []guard.Option{guard.WithLogger(log), guard.WithRequireProfile(cfg.RequireProfile())}
	if cfg.Guard.LoginRoute != "" {
		guardOpts = append(guardOpts, guard.WithLoginRoute(cfg.Guard.LoginRoute))
	}
	if cfg.Guard.ProfileSetupRoute != "" {
		guardOpts = append(guardOpts, guard.WithProfileSetupRoute(cfg.Guard.ProfileSetupRoute))
	}
	a.Guard = guard.New(a.Session, a.Profile, storage, a.Persister, guardOpts...)
	a.SetupGuard = guard.New(a.Session, a.Profile, storage, a.Persister, append(guardOpts, guard.WithRequireProfile(false))...)
	return a, nil
}

// WaitHydrated blocks until persisted state has been restored. A corrupt
// snapshot has already been cleared by then, so it is reported and
// otherwise ignored.
func (a *App) WaitHydrated(ctx context.Context) error {
	select {
	case <-a.Persister.Hydrated():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := a.Persister.Err(); err != nil {
		if apperror.IsStateCorruption(err) {
			pterm.Warning.WithWriter(a.Err).Println(apperror.Message(err))
			return nil
		}
		return err
	}
	return nil
}

// Close releases storage connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("close failed", a.Log.Args("error", err))
		}
	}
}
