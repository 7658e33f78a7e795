// Package app wires configuration, logging and the store client into the
// catalogsync commands.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/internal/transport"
	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// App holds the dependencies shared by all commands.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// Store and cache are lazy-initialized and shared by a run's importers.
	mu    sync.Mutex
	store client.Store
	cache *cache.Cache
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment and the config file, then
// customized by opts.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig(nil)
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Store returns the store client, creating it from the configuration on
// first use.
func (a *App) Store() (client.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		return a.store, nil
	}

	c, err := transport.New(transport.Config{
		APIURL:       a.config.APIURL,
		AuthURL:      a.config.AuthURL,
		ProjectKey:   a.config.ProjectKey,
		Token:        a.config.Token,
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
		Timeout:      a.config.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.store = transport.NewStore(c)
	return a.store, nil
}

// Cache returns the lookup cache shared by the importers of this process.
func (a *App) Cache() *cache.Cache {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cache == nil {
		a.cache = cache.New()
	}
	return a.cache
}

// Shutdown drops the lookup cache. Importers own no background work.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cache != nil {
		a.cache.Reset()
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStore sets the store client (useful for testing).
func WithStore(store client.Store) Option {
	return func(a *App) error {
		a.store = store
		return nil
	}
}

// WithOutput sets where command results are written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
