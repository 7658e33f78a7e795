// Package importer reconciles batches of product records against the
// remote catalog: it creates products that do not exist yet and updates
// the ones that do with the minimal set of actions.
//
// Batches are processed strictly one after another. Within a batch, records
// are reconciled concurrently and each record's failure is recorded without
// affecting the others.
package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/attributes"
	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/enums"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/matcher"
	"github.com/agentstation/catalogsync/pkg/report"
	"github.com/agentstation/catalogsync/pkg/resolver"
	"github.com/agentstation/catalogsync/pkg/retry"
	"github.com/agentstation/catalogsync/pkg/skuquery"
)

// Importer imports product records.
type Importer struct {
	store     client.Store
	opts      *options
	resolver  *resolver.Resolver
	enums     *enums.Extender
	planner   differ.Planner
	fetcher   skuquery.Fetcher
	collector *report.Collector
	unknown   *attributes.NameCollector
	batches   int
}

// New creates an importer and empties its error directory.
func New(store client.Store, opts ...Option) (*Importer, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.NewConfigError("importer", "store is required", nil)
	}

	planner, err := differ.New(o.plannerOpts...)
	if err != nil {
		return nil, err
	}
	if o.cache == nil {
		o.cache = cache.New()
	}
	if o.concurrency == 0 {
		o.concurrency = o.batchSize
	}
	if o.token == nil {
		o.token = func() string { return uuid.NewString() }
	}
	handler := o.errorHandler
	if handler == nil {
		handler = &report.LogErrorHandler{Limit: o.errorLimit}
	}

	r := resolver.New(store, o.cache)
	imp := &Importer{
		store:     store,
		opts:      o,
		resolver:  r,
		enums:     enums.New(r),
		planner:   planner,
		fetcher:   skuquery.Fetcher{Store: store, URLLimit: o.urlLimit, Concurrency: o.chunkConcurrency},
		collector: report.NewCollector(o.errorDir, handler, report.WithFileLimit(o.errorFileLimit)),
	}
	if o.filterUnknownAttributes {
		imp.unknown = attributes.NewNameCollector()
	}
	if err := imp.collector.Prepare(); err != nil {
		return nil, err
	}
	return imp, nil
}

// ProcessBatch reconciles records in batches of the configured size.
// Record failures are counted in the summary; only configuration, schema
// and existing-product fetch errors are returned, and they stop the run.
func (imp *Importer) ProcessBatch(ctx context.Context, records []catalog.Product) error {
	if imp.opts.logger != nil {
		ctx = logging.WithLogger(ctx, imp.opts.logger)
	}

	for start := 0; start < len(records); start += imp.opts.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+imp.opts.batchSize, len(records))
		imp.batches++
		batch := records[start:end]
		if err := imp.processBatch(logging.WithBatch(ctx, imp.batches), batch); err != nil {
			return errors.NewSyncError(imp.batches, matcher.UniqueSKUs(batch...), err)
		}
	}
	return nil
}

func (imp *Importer) processBatch(ctx context.Context, products []catalog.Product) error {
	logger := logging.FromContext(ctx)

	// Step 1: Load the product types of the batch
	logger.Debug().Msg("Ensuring existence of product type in memory.")
	schemas, err := imp.ensureProductTypes(ctx, products)
	if err != nil {
		return err
	}

	// Step 2: Extend enum schemas with new values
	if imp.opts.ensureEnums {
		logger.Debug().Msg("Ensuring existence of enum keys in product type.")
		if err := imp.ensureEnums(ctx, products, schemas); err != nil {
			return err
		}
	}

	// Step 3: Drop records without skus
	products = imp.filterMissingSKUs(ctx, products)
	skus := matcher.UniqueSKUs(products...)

	// Step 4: Fetch existing products
	existing, err := imp.fetcher.Fetch(ctx, skus)
	if err != nil {
		return err
	}

	// Step 5: Reassign variants
	if imp.opts.reassigner != nil {
		logger.Debug().Msg("execute reassignment process")
		stats, err := imp.opts.reassigner.Execute(ctx, products, schemas)
		if err != nil {
			return err
		}
		imp.collector.Update(func(s *report.Summary) { s.VariantReassignment = &stats })
		if stats.Processed > 0 {
			if existing, err = imp.fetcher.Fetch(ctx, skus); err != nil {
				return err
			}
		}
	}

	// Step 6: Merge default attributes
	if imp.opts.defaults != nil {
		logger.Debug().Msg("Ensuring default attributes")
		products = imp.ensureDefaults(products, existing)
	}

	// Step 7: Create or update each record
	logger.Debug().Int("products", len(products)).Int("existing", len(existing)).Msg("About to send requests")
	results := workpool.Settle(ctx, imp.opts.concurrency, products, func(ctx context.Context, p catalog.Product) (report.Outcome, error) {
		return imp.createOrUpdate(ctx, p, existing, schemas)
	})

	// Step 8: Record outcomes
	for i, res := range results {
		if res.Err != nil {
			imp.collector.Record(ctx, report.Failed(res.Err, products[i].SKUs(), products[i]))
			continue
		}
		imp.collector.Record(ctx, res.Value)
	}
	return nil
}

func (imp *Importer) ensureProductTypes(ctx context.Context, products []catalog.Product) (map[string]*catalog.ProductType, error) {
	schemas := make(map[string]*catalog.ProductType)
	for i := range products {
		key := products[i].ProductType.BusinessKey()
		if _, ok := schemas[key]; ok {
			continue
		}
		pt, err := imp.resolver.ResolveProductType(ctx, products[i].ProductType)
		if err != nil {
			return nil, err
		}
		schemas[key] = pt
	}
	return schemas, nil
}

func (imp *Importer) ensureEnums(ctx context.Context, products []catalog.Product, schemas map[string]*catalog.ProductType) error {
	plan, err := imp.enums.Plan(products, schemas)
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}
	updated, err := imp.enums.Apply(ctx, imp.store.ProductTypes(), plan)
	if updated > 0 {
		imp.collector.Update(func(s *report.Summary) { s.ProductTypeUpdated += updated })
	}
	if err != nil {
		return err
	}

	// Later steps need the confirmed schema versions.
	for key, pt := range schemas {
		if fresh, ok := imp.resolver.ProductType(pt.ID); ok {
			schemas[key] = fresh
		}
	}
	return nil
}

func (imp *Importer) filterMissingSKUs(ctx context.Context, products []catalog.Product) []catalog.Product {
	kept := make([]catalog.Product, 0, len(products))
	for i := range products {
		if products[i].HasSKUs() {
			kept = append(kept, products[i])
		}
	}
	if dropped := len(products) - len(kept); dropped > 0 {
		logging.FromContext(ctx).Warn().Int("count", dropped).
			Msgf("Filtering out %d product(s) which do not have SKU", dropped)
		imp.collector.Update(func(s *report.Summary) { s.ProductsWithMissingSKU += dropped })
	}
	return kept
}

func (imp *Importer) ensureDefaults(products []catalog.Product, existing []catalog.Product) []catalog.Product {
	out := make([]catalog.Product, len(products))
	for i := range products {
		server, _ := matcher.FindExisting(&products[i], existing)
		out[i] = imp.opts.defaults.EnsureDefaults(products[i], server)
	}
	return out
}

func (imp *Importer) createOrUpdate(ctx context.Context, product catalog.Product, existing []catalog.Product, schemas map[string]*catalog.ProductType) (report.Outcome, error) {
	schema := schemas[product.ProductType.BusinessKey()]

	if imp.opts.filterUnknownAttributes {
		filtered, err := attributes.Filter(ctx, schema, product, imp.unknown)
		if err != nil {
			return report.Outcome{}, err
		}
		product = filtered
	}

	product, err := imp.planner.CleanDuplicates(ctx, product)
	if err != nil {
		return report.Outcome{}, err
	}

	match, found := matcher.FindExisting(&product, existing)
	if found {
		return imp.updateWithRetry(ctx, product, match, schema)
	}

	draft, err := imp.prepareNew(ctx, product)
	if err != nil {
		return report.Outcome{}, err
	}
	created, err := imp.store.Products().Create(ctx, &draft)
	if err != nil {
		return report.Outcome{}, errors.WrapResource("create", client.ResourceProducts, "", err)
	}
	return report.Outcome{Status: report.StatusCreated, ID: created.ID, SKUs: created.SKUs()}, nil
}

// updateWithRetry updates an existing product, replanning against a fresh
// copy after each version conflict.
func (imp *Importer) updateWithRetry(ctx context.Context, product catalog.Product, existing *catalog.Product, schema *catalog.ProductType) (report.Outcome, error) {
	var sameForAll []string
	if schema != nil {
		sameForAll = schema.SameForAllNames()
	}

	prepared, err := imp.prepareUpdate(ctx, product, existing)
	if err != nil {
		return report.Outcome{}, err
	}

	current := existing
	outcome := report.Outcome{ID: existing.ID, SKUs: prepared.SKUs()}
	task := func(ctx context.Context) error {
		status, err := imp.update(ctx, &prepared, current, sameForAll)
		outcome.Status = status
		return err
	}
	refetch := func(ctx context.Context) (retry.Task, error) {
		logging.FromContext(ctx).Warn().Str("product_id", existing.ID).
			Msgf("Recovering from 409 concurrentModification error on product '%s'", existing.ID)
		fresh, err := imp.store.Products().ByID(ctx, existing.ID, true)
		if err != nil {
			return nil, errors.WrapResource("refetch", client.ResourceProductProjections, existing.ID, err)
		}
		current = fresh
		return task, nil
	}

	if err := retry.New(constants.ConflictAttempts).Execute(ctx, task, retry.ConflictOnly(refetch)); err != nil {
		return report.Outcome{}, err
	}
	return outcome, nil
}

func (imp *Importer) update(ctx context.Context, prepared, existing *catalog.Product, sameForAll []string) (report.Status, error) {
	cs := imp.planner.Plan(prepared, existing, sameForAll)
	if !cs.ShouldUpdate() {
		return report.StatusUnchanged, nil
	}
	logging.FromContext(ctx).Debug().
		Str("product_id", cs.ID).
		Int("actions", len(cs.Actions)).
		Msg("Updating product")
	if _, err := retry.UpdateInBatches(ctx, imp.store.Products(), cs.ID, cs.Request(), constants.MaxUpdateActions); err != nil {
		return report.StatusFailed, err
	}
	return report.StatusUpdated, nil
}

// Summary returns the counters of the run so far.
func (imp *Importer) Summary() report.Summary {
	s := imp.collector.Summary()
	if imp.unknown != nil {
		s.UnknownAttributeNames = imp.unknown.Names()
	}
	return s
}

// SummaryReport renders the run summary. filename names the feed in the
// missing-sku notice when set.
func (imp *Importer) SummaryReport(filename string) report.Report {
	return report.ProductReport(imp.Summary(), filename)
}

// Reset clears the run cache and the summary counters.
func (imp *Importer) Reset() {
	imp.resolver.Cache().Reset()
	imp.collector.Reset()
	if imp.unknown != nil {
		imp.unknown = attributes.NewNameCollector()
	}
	imp.batches = 0
}
