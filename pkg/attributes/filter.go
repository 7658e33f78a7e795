// Package attributes prepares variant attributes before planning: it strips
// attributes the schema does not declare and merges configured defaults.
package attributes

import (
	"context"
	"sync"

	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// NameCollector gathers attribute names without duplicates, in first-seen
// order. It is safe for concurrent use.
type NameCollector struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	names []string
}

// NewNameCollector creates an empty collector.
func NewNameCollector() *NameCollector {
	return &NameCollector{seen: make(map[string]struct{})}
}

// Add records a name.
func (c *NameCollector) Add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

// Names returns the collected names.
func (c *NameCollector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.names...)
}

// Filter returns a copy of product whose variants only carry attributes
// declared by schema. Undeclared names go to collector when it is not nil.
// A schema without attribute declarations leaves the product untouched.
func Filter(ctx context.Context, schema *catalog.ProductType, product catalog.Product, collector *NameCollector) (catalog.Product, error) {
	if schema == nil || len(schema.Attributes) == 0 {
		logging.FromContext(ctx).Debug().
			Str("sku", product.MasterVariant.SKU).
			Msg("product type received without attributes, skipping attribute filter")
		return product, nil
	}

	known := schema.AttributeNames()
	out := product.Clone()
	out.MasterVariant = filterVariant(ctx, out.MasterVariant, known, collector)

	variants, err := workpool.Map(ctx, constants.DefaultAttributeFanOut, out.Variants,
		func(ctx context.Context, v catalog.Variant) (catalog.Variant, error) {
			return filterVariant(ctx, v, known, collector), nil
		})
	if err != nil {
		return catalog.Product{}, err
	}
	if out.Variants != nil {
		out.Variants = variants
	}
	return out, nil
}

func filterVariant(ctx context.Context, v catalog.Variant, known map[string]struct{}, collector *NameCollector) catalog.Variant {
	if v.Attributes == nil {
		logging.FromContext(ctx).Debug().Str("sku", v.SKU).Msg("skipping variant without attributes")
		return v
	}
	kept := make([]catalog.Attribute, 0, len(v.Attributes))
	for _, attr := range v.Attributes {
		if _, ok := known[attr.Name]; ok {
			kept = append(kept, attr)
			continue
		}
		if collector != nil {
			collector.Add(attr.Name)
		}
	}
	v.Attributes = kept
	return v
}
