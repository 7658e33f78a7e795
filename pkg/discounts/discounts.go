// Package discounts imports product discounts, matched to existing ones
// by their name in one language.
package discounts

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/report"
)

type options struct {
	logger    *zerolog.Logger
	language  string
	batchSize int
	handler   report.ErrorHandler
}

// Option is a function that configures an Importer.
type Option func(*options) error

// WithLogger sets the logger, overriding the one carried by the context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithLanguage sets the locale discounts are matched by.
func WithLanguage(lang string) Option {
	return func(o *options) error {
		if lang == "" {
			return errors.NewValidationError("language", lang, "cannot be empty")
		}
		o.language = lang
		return nil
	}
}

// WithBatchSize sets how many discounts share one lookup query.
func WithBatchSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.NewValidationError("batchSize", n, "must be positive")
		}
		o.batchSize = n
		return nil
	}
}

// WithErrorHandler replaces the default failure logger.
func WithErrorHandler(h report.ErrorHandler) Option {
	return func(o *options) error {
		o.handler = h
		return nil
	}
}

// Importer imports product discounts.
type Importer struct {
	repo      client.Repository[catalog.ProductDiscount]
	opts      *options
	collector *report.Collector
}

// New creates a discount importer.
func New(store client.Store, opts ...Option) (*Importer, error) {
	o := &options{language: constants.DefaultLanguage, batchSize: constants.DefaultBatchSize}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if store == nil {
		return nil, errors.NewConfigError("discounts", "store is required", nil)
	}
	handler := o.handler
	if handler == nil {
		handler = &report.LogErrorHandler{Limit: constants.DefaultErrorLimit}
	}
	return &Importer{
		repo:      store.ProductDiscounts(),
		opts:      o,
		collector: report.NewCollector("", handler),
	}, nil
}

// Predicate builds the lookup of discounts by name in lang.
func Predicate(lang string, discounts []catalog.ProductDiscount) string {
	names := make([]string, 0, len(discounts))
	for _, d := range discounts {
		names = append(names, quote(d.Name[lang]))
	}
	return "name(" + lang + " in (" + strings.Join(names, ", ") + "))"
}

func quote(s string) string {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// ProcessBatch imports discounts batch by batch. Only lookup errors are
// returned; a failed create or update is recorded in the summary.
func (imp *Importer) ProcessBatch(ctx context.Context, discounts []catalog.ProductDiscount) error {
	if imp.opts.logger != nil {
		ctx = logging.WithLogger(ctx, imp.opts.logger)
	}
	for start := 0; start < len(discounts); start += imp.opts.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+imp.opts.batchSize, len(discounts))
		if err := imp.processBatch(ctx, discounts[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Importer) processBatch(ctx context.Context, discounts []catalog.ProductDiscount) error {
	res, err := imp.repo.Query(ctx, client.Query{Where: Predicate(imp.opts.language, discounts), All: true})
	if err != nil {
		return errors.WrapResource("query", client.ResourceProductDiscounts, "", err)
	}
	existing := res.Results
	logging.FromContext(ctx).Debug().
		Int("discounts", len(discounts)).
		Int("existing", len(existing)).
		Msg("Fetched product discounts")

	results := workpool.Settle(ctx, len(discounts), discounts, func(ctx context.Context, d catalog.ProductDiscount) (report.Outcome, error) {
		return imp.createOrUpdate(ctx, d, existing)
	})
	for i, r := range results {
		if r.Err != nil {
			imp.collector.Record(ctx, report.Failed(r.Err, nil, discounts[i]))
			continue
		}
		imp.collector.Record(ctx, r.Value)
	}
	return nil
}

func (imp *Importer) createOrUpdate(ctx context.Context, d catalog.ProductDiscount, existing []catalog.ProductDiscount) (report.Outcome, error) {
	match, ok := imp.findMatch(d, existing)
	if !ok {
		created, err := imp.repo.Create(ctx, &d)
		if err != nil {
			return report.Outcome{}, errors.WrapResource("create", client.ResourceProductDiscounts, "", err)
		}
		return report.Outcome{Status: report.StatusCreated, ID: created.ID}, nil
	}

	if d.Predicate == match.Predicate {
		return report.Outcome{Status: report.StatusUnchanged, ID: match.ID}, nil
	}
	_, err := imp.repo.Update(ctx, match.ID, catalog.UpdateRequest{
		Version: match.Version,
		Actions: []catalog.UpdateAction{catalog.ChangePredicate(d.Predicate)},
	})
	if err != nil {
		return report.Outcome{}, errors.WrapResource("update", client.ResourceProductDiscounts, match.ID, err)
	}
	return report.Outcome{Status: report.StatusUpdated, ID: match.ID}, nil
}

func (imp *Importer) findMatch(d catalog.ProductDiscount, existing []catalog.ProductDiscount) (*catalog.ProductDiscount, bool) {
	name, ok := d.Name[imp.opts.language]
	if !ok {
		return nil, false
	}
	for i := range existing {
		if n, ok := existing[i].Name[imp.opts.language]; ok && n == name {
			return &existing[i], true
		}
	}
	return nil, false
}

// Summary returns the counters of the run so far.
func (imp *Importer) Summary() report.Summary {
	return imp.collector.Summary()
}

// SummaryReport renders the run summary.
func (imp *Importer) SummaryReport() report.Report {
	return report.DiscountReport(imp.Summary())
}
