package prices

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/report"
)

type options struct {
	logger               *zerolog.Logger
	batchSize            int
	urlLimit             int
	maxActions           int
	chunkConcurrency     int
	preventRemoveActions bool
	publishing           string
	errorDir             string
	errorLimit           int
	errorFileLimit       int
	errorHandler         report.ErrorHandler
	cache                *cache.Cache
}

func defaultOptions() *options {
	return &options{
		batchSize:        constants.DefaultBatchSize,
		urlLimit:         constants.DefaultURLLimit,
		maxActions:       constants.MaxUpdateActions,
		chunkConcurrency: constants.DefaultChunkConcurrency,
		errorDir:         constants.DefaultErrorDir,
		errorLimit:       constants.DefaultErrorLimit,
	}
}

// Option is a function that configures an Importer.
type Option func(*options) error

func newOptions(opts ...Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithLogger sets the logger, overriding the one carried by the context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithBatchSize sets how many price records share one existing-product query.
func WithBatchSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("batchSize", n, "must be positive")
		}
		o.batchSize = n
		return nil
	}
}

// WithURLLimit sets the maximum request URL length of the store.
func WithURLLimit(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("urlLimit", n, "must be positive")
		}
		o.urlLimit = n
		return nil
	}
}

// WithMaxUpdateActions sets how many actions one update request carries.
// Longer action lists are split into sequential requests.
func WithMaxUpdateActions(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("maxActions", n, "must be positive")
		}
		o.maxActions = n
		return nil
	}
}

// WithPreventRemoveActions keeps remote prices the feed does not list.
func WithPreventRemoveActions(enabled bool) Option {
	return func(o *options) error {
		o.preventRemoveActions = enabled
		return nil
	}
}

// WithPublishingStrategy publishes updated products whose state matches strategy.
func WithPublishingStrategy(strategy string) Option {
	return func(o *options) error {
		o.publishing = strategy
		return nil
	}
}

// WithErrorDir sets where failed updates are written. An empty dir
// disables error files.
func WithErrorDir(dir string) Option {
	return func(o *options) error {
		o.errorDir = dir
		return nil
	}
}

// WithErrorLimit sets how many failures are logged. Zero logs all.
func WithErrorLimit(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.NewValidationError("errorLimit", n, "cannot be negative")
		}
		o.errorLimit = n
		return nil
	}
}

// WithErrorFileLimit caps how many error files are written. Zero writes
// one per failure.
func WithErrorFileLimit(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.NewValidationError("errorFileLimit", n, "cannot be negative")
		}
		o.errorFileLimit = n
		return nil
	}
}

// WithErrorHandler replaces the default failure logger.
func WithErrorHandler(h report.ErrorHandler) Option {
	return func(o *options) error {
		o.errorHandler = h
		return nil
	}
}

// WithCache shares a run cache with other importers.
func WithCache(c *cache.Cache) Option {
	return func(o *options) error {
		o.cache = c
		return nil
	}
}
