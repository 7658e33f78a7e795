// Package prices imports price feeds: each record replaces the prices of
// the existing variant carrying its sku. Only price actions are ever sent.
package prices

import (
	"context"

	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/report"
	"github.com/agentstation/catalogsync/pkg/resolver"
	"github.com/agentstation/catalogsync/pkg/retry"
	"github.com/agentstation/catalogsync/pkg/skuquery"
)

// Importer imports price records.
type Importer struct {
	store     client.Store
	opts      *options
	resolver  *resolver.Resolver
	planner   differ.Planner
	fetcher   skuquery.Fetcher
	collector *report.Collector
}

// New creates a price importer and empties its error directory.
func New(store client.Store, opts ...Option) (*Importer, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.NewConfigError("prices", "store is required", nil)
	}

	plannerOpts := []differ.Option{
		differ.WithWhitelist(string(catalog.GroupPrices)),
		differ.WithPublishingStrategy(o.publishing),
	}
	if o.preventRemoveActions {
		plannerOpts = append(plannerOpts, differ.WithActionFilter(differ.ExcludeActions(catalog.ActionRemovePrice)))
	}
	planner, err := differ.New(plannerOpts...)
	if err != nil {
		return nil, err
	}

	if o.cache == nil {
		o.cache = cache.New()
	}
	handler := o.errorHandler
	if handler == nil {
		handler = &report.LogErrorHandler{Limit: o.errorLimit}
	}

	imp := &Importer{
		store:     store,
		opts:      o,
		resolver:  resolver.New(store, o.cache),
		planner:   planner,
		fetcher:   skuquery.Fetcher{Store: store, URLLimit: o.urlLimit, Concurrency: o.chunkConcurrency},
		collector: report.NewCollector(o.errorDir, handler, report.WithFileLimit(o.errorFileLimit)),
	}
	if err := imp.collector.Prepare(); err != nil {
		return nil, err
	}
	return imp, nil
}

// wrapped is an existing product and the prices its variants should carry, by sku.
type wrapped struct {
	product *catalog.Product
	prices  map[string][]catalog.Price
}

// desired returns base with the wrapped prices in place.
func (w wrapped) desired(base *catalog.Product) catalog.Product {
	out := base.Clone()
	for _, v := range out.AllVariants() {
		if prices, ok := w.prices[v.SKU]; ok {
			v.Prices = make([]catalog.Price, len(prices))
			for i, p := range prices {
				v.Prices[i] = p.Clone()
			}
		}
	}
	return out
}

// ProcessBatch imports price records in batches of the configured size.
// Only errors of the existing-product fetch are returned.
func (imp *Importer) ProcessBatch(ctx context.Context, records []catalog.PriceRecord) error {
	if imp.opts.logger != nil {
		ctx = logging.WithLogger(ctx, imp.opts.logger)
	}

	batch := 0
	for start := 0; start < len(records); start += imp.opts.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch++
		end := min(start+imp.opts.batchSize, len(records))
		if err := imp.processBatch(logging.WithBatch(ctx, batch), records[start:end]); err != nil {
			skus := make([]string, 0, end-start)
			for _, r := range records[start:end] {
				skus = append(skus, r.SKU)
			}
			return errors.NewSyncError(batch, skus, err)
		}
	}
	return nil
}

func (imp *Importer) processBatch(ctx context.Context, records []catalog.PriceRecord) error {
	logger := logging.FromContext(ctx)

	skus := make([]string, 0, len(records))
	for _, r := range records {
		skus = append(skus, r.SKU)
	}
	existing, err := imp.fetcher.Fetch(ctx, skus)
	if err != nil {
		return err
	}

	prepared := imp.preparePrices(ctx, records)
	products := imp.wrap(ctx, prepared, existing)
	logger.Info().Msgf("Wrapped %d price(s) into %d existing product(s).", len(prepared), len(products))

	results := workpool.Settle(ctx, imp.opts.batchSize, products, imp.update)
	for i, res := range results {
		if res.Err != nil {
			imp.collector.Record(ctx, report.Failed(res.Err, products[i].product.SKUs(), products[i].desired(products[i].product)))
			continue
		}
		imp.collector.Record(ctx, res.Value)
	}
	return nil
}

// preparePrices resolves the price references of each record. A record
// whose references cannot be resolved is recorded as failed and skipped.
func (imp *Importer) preparePrices(ctx context.Context, records []catalog.PriceRecord) []catalog.PriceRecord {
	out := make([]catalog.PriceRecord, 0, len(records))
	for _, r := range records {
		prices := make([]catalog.Price, 0, len(r.Prices))
		var failed error
		for _, p := range r.Prices {
			resolved, err := imp.resolvePrice(ctx, p)
			if err != nil {
				failed = err
				break
			}
			prices = append(prices, resolved)
		}
		if failed != nil {
			imp.collector.Record(ctx, report.Failed(failed, []string{r.SKU}, r))
			continue
		}
		out = append(out, catalog.PriceRecord{SKU: r.SKU, Prices: prices})
	}
	return out
}

func (imp *Importer) resolvePrice(ctx context.Context, price catalog.Price) (catalog.Price, error) {
	out := price.Clone()
	if out.CustomerGroup != nil {
		ref, err := imp.resolver.ResolveCustomerGroup(ctx, out.CustomerGroup)
		if err != nil {
			return catalog.Price{}, err
		}
		out.CustomerGroup = ref
	}
	if out.Channel != nil {
		ref, err := imp.resolver.ResolveChannel(ctx, out.Channel)
		if err != nil {
			return catalog.Price{}, err
		}
		out.Channel = ref
	}
	if out.Custom != nil && out.Custom.Type != nil {
		ref, err := imp.resolver.ResolveCustomType(ctx, out.Custom.Type)
		if err != nil {
			return catalog.Price{}, err
		}
		out.Custom.Type = ref
	}
	return out, nil
}

// wrap attaches price records to the existing products carrying their
// skus. The first record of a sku wins; skus no product carries count as
// unknown and variants no record names count as without price updates.
func (imp *Importer) wrap(ctx context.Context, records []catalog.PriceRecord, existing []catalog.Product) []wrapped {
	logger := logging.FromContext(ctx)

	bySKU := make(map[string]int, len(records))
	duplicates := 0
	for i, r := range records {
		if _, dup := bySKU[r.SKU]; dup {
			logger.Warn().Str("sku", r.SKU).Msgf("Duplicate SKU found - '%s' - ignoring!", r.SKU)
			duplicates++
			continue
		}
		bySKU[r.SKU] = i
	}

	withoutUpdates := 0
	out := make([]wrapped, 0, len(existing))
	for i := range existing {
		w := wrapped{product: &existing[i], prices: make(map[string][]catalog.Price)}
		for _, v := range existing[i].AllVariants() {
			idx, ok := bySKU[v.SKU]
			if !ok {
				withoutUpdates++
				continue
			}
			w.prices[v.SKU] = records[idx].Prices
			delete(bySKU, v.SKU)
		}
		out = append(out, w)
	}

	imp.collector.Update(func(s *report.Summary) {
		s.DuplicatedSKUs += duplicates
		s.VariantWithoutPriceUpdates += withoutUpdates
		s.UnknownSKUCount += len(bySKU)
	})
	return out
}

// update sends the price actions of one product, replanning against a
// fresh copy after each version conflict.
func (imp *Importer) update(ctx context.Context, w wrapped) (report.Outcome, error) {
	current := w.product
	outcome := report.Outcome{ID: current.ID, SKUs: current.SKUs()}

	task := func(ctx context.Context) error {
		desired := w.desired(current)
		cs := imp.planner.Plan(&desired, current, nil)
		if !cs.ShouldUpdate() {
			outcome.Status = report.StatusUnchanged
			return nil
		}
		if _, err := retry.UpdateInBatches(ctx, imp.store.Products(), cs.ID, cs.Request(), imp.opts.maxActions); err != nil {
			return errors.WrapResource("update", client.ResourceProducts, cs.ID, err)
		}
		outcome.Status = report.StatusUpdated
		return nil
	}
	refetch := func(ctx context.Context) (retry.Task, error) {
		logging.FromContext(ctx).Debug().Str("product_id", current.ID).Msg("retrying price update because of 409")
		fresh, err := imp.store.Products().ByID(ctx, w.product.ID, true)
		if err != nil {
			return nil, errors.WrapResource("refetch", client.ResourceProductProjections, w.product.ID, err)
		}
		current = fresh
		return task, nil
	}

	if err := retry.New(constants.PriceConflictAttempts).Execute(ctx, task, retry.ConflictOnly(refetch)); err != nil {
		return report.Outcome{}, err
	}
	return outcome, nil
}

// Summary returns the counters of the run so far.
func (imp *Importer) Summary() report.Summary {
	return imp.collector.Summary()
}

// SummaryReport renders the run summary.
func (imp *Importer) SummaryReport() report.Report {
	return report.PriceReport(imp.Summary())
}

// Reset clears the run cache and the summary counters.
func (imp *Importer) Reset() {
	imp.resolver.Cache().Reset()
	imp.collector.Reset()
}
