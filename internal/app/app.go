// Package app assembles dbpilot's components from a loaded config.
package app

import (
	"context"

	"github.com/koustreak/dbpilot/internal/config"
	"github.com/koustreak/dbpilot/internal/database"
	"github.com/koustreak/dbpilot/internal/export"
	"github.com/koustreak/dbpilot/internal/filestore"
	"github.com/koustreak/dbpilot/internal/filestore/local"
	"github.com/koustreak/dbpilot/internal/filestore/minio"
	"github.com/koustreak/dbpilot/internal/history"
	"github.com/koustreak/dbpilot/internal/logger"
	"github.com/koustreak/dbpilot/internal/server"
	"github.com/koustreak/dbpilot/internal/service"
	"github.com/koustreak/dbpilot/internal/session"
	"github.com/spf13/afero"
)

// App holds the wired components. Close releases the session and the
// export store.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Sessions *session.Manager
	Store    filestore.Store
	Service  *service.Service
}

// Option adjusts how the App is built.
type Option func(*options)

type options struct {
	sessionOpts []session.Option
	store       filestore.Store
	fs          afero.Fs
}

// WithSessionOptions forwards options to the session manager.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// WithStore uses store instead of opening the configured provider.
func WithStore(store filestore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithFs sets the filesystem the query history is kept on. The default is
// the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// New builds an App from cfg.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.New(&cfg.Log)
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = OpenStore(ctx, &cfg.Export); err != nil {
			return nil, err
		}
	}

	sessions := session.New(log.With().Str("component", "session").Logger(), o.sessionOpts...)
	exporter := export.New(store, cfg.Export.PresignTTL)

	var svcOpts []service.Option
	if cfg.History.Path != "" {
		fs := o.fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		svcOpts = append(svcOpts, service.WithHistory(history.New(fs, cfg.History.Path, cfg.History.MaxItems)))
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Sessions: sessions,
		Store:    store,
		Service:  service.New(sessions, exporter, log.With().Str("component", "service").Logger(), svcOpts...),
	}, nil
}

// OpenStore opens the export store named by cfg.Provider.
func OpenStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case filestore.ProviderMinIO:
		d, err := minio.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		s, err := local.New(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Server returns the HTTP API for this App.
func (a *App) Server() *server.Server {
	sc := a.Config.Server
	return server.New(server.Config{
		Addr:      sc.Addr,
		RateLimit: sc.RateLimit,
		Burst:     sc.Burst,
	}, a.Service, a.Profile, a.Log.With().Str("component", "http").Logger())
}

// Profile resolves a saved connection profile, password included.
func (a *App) Profile(id string) (database.Config, error) {
	return a.Config.Profile(id)
}

// Close disconnects and closes the store.
func (a *App) Close() error {
	if err := a.Sessions.Close(); err != nil {
		return err
	}
	return a.Store.Close()
}
