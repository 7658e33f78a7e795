package importer

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/pkg/attributes"
	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/report"
)

// options configures an Importer.
type options struct {
	logger                  *zerolog.Logger
	batchSize               int
	concurrency             int // records reconciled at once within a batch
	urlLimit                int
	chunkConcurrency        int
	ensureEnums             bool
	filterUnknownAttributes bool
	ignoreSlugUpdates       bool
	defaults                client.DefaultsProvider
	reassigner              client.Reassigner
	plannerOpts             []differ.Option
	errorDir                string
	errorLimit              int
	errorFileLimit          int
	errorHandler            report.ErrorHandler
	cache                   *cache.Cache
	token                   func() string
}

func defaultOptions() *options {
	return &options{
		batchSize:        constants.DefaultBatchSize,
		urlLimit:         constants.DefaultURLLimit,
		chunkConcurrency: constants.DefaultChunkConcurrency,
		errorDir:         constants.DefaultErrorDir,
		errorLimit:       constants.DefaultErrorLimit,
	}
}

// Option is a function that configures an Importer.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns importer options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithLogger sets the logger, overriding the one carried by the context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithBatchSize sets how many records are reconciled per batch.
func WithBatchSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("batchSize", n, "must be positive")
		}
		o.batchSize = n
		return nil
	}
}

// WithConcurrency bounds how many records of one batch are reconciled at
// once. It defaults to the batch size.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("concurrency", n, "must be positive")
		}
		o.concurrency = n
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

// WithChunkConcurrency bounds the parallel sku chunk queries.
func WithChunkConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("chunkConcurrency", n, "must be positive")
		}
		o.chunkConcurrency = n
		return nil
	}
}

// WithEnsureEnums extends product type enums with values found in records.
func WithEnsureEnums(enabled bool) Option {
	return func(o *options) error {
		o.ensureEnums = enabled
		return nil
	}
}

// WithFilterUnknownAttributes drops attributes their product type does not declare.
func WithFilterUnknownAttributes(enabled bool) Option {
	return func(o *options) error {
		o.filterUnknownAttributes = enabled
		return nil
	}
}

// WithIgnoreSlugUpdates keeps the remote slug of existing products.
func WithIgnoreSlugUpdates(enabled bool) Option {
	return func(o *options) error {
		o.ignoreSlugUpdates = enabled
		return nil
	}
}

// WithDefaultAttributes adds attributes every variant must carry.
func WithDefaultAttributes(attrs []catalog.Attribute) Option {
	return func(o *options) error {
		if len(attrs) == 0 {
			return nil
		}
		o.defaults = attributes.NewDefaults(attrs)
		return nil
	}
}

// WithDefaultsProvider replaces the default attribute merger.
func WithDefaultsProvider(p client.DefaultsProvider) Option {
	return func(o *options) error {
		o.defaults = p
		return nil
	}
}

// WithReassigner runs a variant reassignment pass before reconciliation.
func WithReassigner(r client.Reassigner) Option {
	return func(o *options) error {
		o.reassigner = r
		return nil
	}
}

// WithBlacklist denies whole action groups.
func WithBlacklist(groups ...string) Option {
	return WithPlannerOptions(differ.WithBlacklist(groups...))
}

// WithFilterActions drops planned actions by name.
func WithFilterActions(names ...string) Option {
	return WithPlannerOptions(differ.WithActionFilter(differ.ExcludeActions(names...)))
}

// WithActionFilter sets an arbitrary per-action predicate.
func WithActionFilter(filter differ.ActionFilter) Option {
	return WithPlannerOptions(differ.WithActionFilter(filter))
}

// WithDuplicateAttributePolicy controls repeated attribute names within a variant.
func WithDuplicateAttributePolicy(fail, log bool) Option {
	return WithPlannerOptions(differ.WithDuplicateAttributePolicy(fail, log))
}

// WithPublishingStrategy publishes updated products whose state matches strategy.
func WithPublishingStrategy(strategy string) Option {
	return WithPlannerOptions(differ.WithPublishingStrategy(strategy))
}

// WithPlannerOptions passes options to the update planner.
func WithPlannerOptions(opts ...differ.Option) Option {
	return func(o *options) error {
		o.plannerOpts = append(o.plannerOpts, opts...)
		return nil
	}
}

// WithErrorDir sets where failed records are written. An empty dir
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

// WithCache shares a run cache between importers.
func WithCache(c *cache.Cache) Option {
	return func(o *options) error {
		o.cache = c
		return nil
	}
}

// WithSlugToken sets the generator of the unique suffix of generated slugs.
func WithSlugToken(fn func() string) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.NewValidationError("slugToken", nil, "cannot be nil")
		}
		o.token = fn
		return nil
	}
}
