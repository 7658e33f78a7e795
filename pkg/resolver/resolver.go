// Package resolver maps business keys carried by feed records (a category
// externalId, a tax category name, a product type name) to remote ids.
//
// Every lookup is memoized in the run cache under (category, business key),
// so a key is queried at most once per run unless two workers race on the
// same cold key.
package resolver

import (
	"context"
	"fmt"

	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Identifiable is implemented by every entity a reference can point at.
type Identifiable interface {
	RemoteID() string
}

// Lookup resolves key to the full remote entity matching predicate.
//
// A cached entity is returned without a query. Otherwise the first result
// is cached and returned; more than one result logs a warning and zero
// results give a ReferenceNotFoundError.
func Lookup[T Identifiable](ctx context.Context, c *cache.Cache, lookup client.Querier[T], category cache.Category, key string, q client.Query) (T, error) {
	if cached, ok := cache.Lookup[T](c, category, key); ok {
		return cached, nil
	}

	var zero T
	result, err := lookup.Query(ctx, q)
	if err != nil {
		return zero, errors.WrapResource("resolve", string(category), key, err)
	}
	if result == nil || len(result.Results) == 0 {
		return zero, &errors.ReferenceNotFoundError{
			Category:  string(category),
			Key:       key,
			Predicate: q.Where,
		}
	}
	if len(result.Results) > 1 {
		logging.FromContext(ctx).Warn().
			Str("category", string(category)).
			Str("key", key).
			Int("matches", len(result.Results)).
			Msgf("Found more than 1 %s for %s", category, key)
	}

	entity := result.Results[0]
	c.Set(category, key, entity)
	return entity, nil
}

// Resolve returns the remote id of the entity referenced by ref. A nil
// reference, or one without a business key, resolves to "".
func Resolve[T Identifiable](ctx context.Context, c *cache.Cache, lookup client.Querier[T], category cache.Category, ref *catalog.Reference, predicate string) (string, error) {
	key := ref.BusinessKey()
	if key == "" {
		return "", nil
	}
	entity, err := Lookup(ctx, c, lookup, category, key, client.Query{Where: predicate})
	if err != nil {
		return "", err
	}
	return entity.RemoteID(), nil
}

// Resolver resolves the references of one store, memoized in a run cache.
type Resolver struct {
	store client.Store
	cache *cache.Cache
}

// New creates a resolver.
func New(store client.Store, c *cache.Cache) *Resolver {
	return &Resolver{store: store, cache: c}
}

// Cache returns the run cache the resolver memoizes into.
func (r *Resolver) Cache() *cache.Cache {
	return r.cache
}

// ResolveCategories resolves category references by externalId. The
// resolved references keep input order.
func (r *Resolver) ResolveCategories(ctx context.Context, refs []catalog.Reference) ([]catalog.Reference, error) {
	if len(refs) == 0 {
		return refs, nil
	}
	out := make([]catalog.Reference, 0, len(refs))
	for i := range refs {
		key := refs[i].BusinessKey()
		id, err := Resolve(ctx, r.cache, r.store.Categories(), cache.Categories, &refs[i], eq("externalId", key))
		if err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}
		out = append(out, catalog.Resolved(catalog.TypeIDCategory, id))
	}
	return out, nil
}

// ResolveTaxCategory resolves a tax category by name.
func (r *Resolver) ResolveTaxCategory(ctx context.Context, ref *catalog.Reference) (*catalog.Reference, error) {
	return r.resolveRef(ctx, r.store.TaxCategories(), cache.TaxCategory, catalog.TypeIDTaxCategory, ref, "name")
}

// ResolveCustomerGroup resolves a customer group by name.
func (r *Resolver) ResolveCustomerGroup(ctx context.Context, ref *catalog.Reference) (*catalog.Reference, error) {
	return r.resolveRef(ctx, r.store.CustomerGroups(), cache.CustomerGroup, catalog.TypeIDCustomerGroup, ref, "name")
}

// ResolveChannel resolves a channel by key.
func (r *Resolver) ResolveChannel(ctx context.Context, ref *catalog.Reference) (*catalog.Reference, error) {
	return r.resolveRef(ctx, r.store.Channels(), cache.Channel, catalog.TypeIDChannel, ref, "key")
}

// ResolveCustomType resolves a custom type by key.
func (r *Resolver) ResolveCustomType(ctx context.Context, ref *catalog.Reference) (*catalog.Reference, error) {
	return r.resolveRef(ctx, r.store.Types(), cache.Types, catalog.TypeIDType, ref, "key")
}

func (r *Resolver) resolveRef(ctx context.Context, lookup client.Querier[catalog.Resource], category cache.Category, typeID string, ref *catalog.Reference, field string) (*catalog.Reference, error) {
	key := ref.BusinessKey()
	if key == "" {
		return nil, nil
	}
	id, err := Resolve(ctx, r.cache, lookup, category, ref, eq(field, key))
	if err != nil {
		return nil, err
	}
	resolved := catalog.Resolved(typeID, id)
	return &resolved, nil
}

// ResolveProductType resolves a product type by name and returns the full
// schema. The schema is also cached under its remote id.
func (r *Resolver) ResolveProductType(ctx context.Context, ref catalog.Reference) (*catalog.ProductType, error) {
	key := ref.BusinessKey()
	if key == "" {
		return nil, errors.NewValidationError("productType", ref, "missing product type reference")
	}
	if pt, ok := r.ProductType(key); ok {
		return pt, nil
	}
	pt, err := Lookup(ctx, r.cache, r.store.ProductTypes(), cache.ProductType, key, client.Query{Where: eq("name", key)})
	if err != nil {
		return nil, err
	}
	r.cache.Set(cache.ProductType, pt.ID, pt)
	return &pt, nil
}

// ProductType returns a cached schema by remote id or by name.
func (r *Resolver) ProductType(key string) (*catalog.ProductType, bool) {
	pt, ok := cache.Lookup[catalog.ProductType](r.cache, cache.ProductType, key)
	if !ok {
		return nil, false
	}
	return &pt, true
}

// StoreProductType replaces the cached schema, under both its id and its name.
func (r *Resolver) StoreProductType(pt catalog.ProductType) {
	r.cache.Set(cache.ProductType, pt.ID, pt)
	if pt.Name != "" {
		r.cache.Set(cache.ProductType, pt.Name, pt)
	}
}

// ResolveProduct resolves a custom reference attribute against the staged
// product projections. The attribute value is the business key and
// Custom.Predicate selects the product.
func (r *Resolver) ResolveProduct(ctx context.Context, attr catalog.Attribute) (string, error) {
	if attr.Type == nil || attr.Type.ReferenceTypeID != catalog.TypeIDProduct {
		typeID := ""
		if attr.Type != nil {
			typeID = attr.Type.ReferenceTypeID
		}
		return "", errors.NewValidationError(attr.Name, typeID, "unsupported custom reference type")
	}
	if attr.Custom == nil || attr.Custom.Predicate == "" {
		return "", errors.NewValidationError(attr.Name, attr.Value, "custom reference without predicate")
	}
	if attr.Value == nil {
		return "", nil
	}
	key := fmt.Sprint(attr.Value)
	if key == "" {
		return "", nil
	}
	product, err := Lookup(ctx, r.cache, r.store.Products(), cache.Product, key, client.Query{
		Where:  attr.Custom.Predicate,
		Staged: true,
	})
	if err != nil {
		return "", err
	}
	return product.ID, nil
}

// eq renders a `field="value"` predicate. %q quotes the way the store's
// predicate language expects string literals.
func eq(field, value string) string {
	return fmt.Sprintf("%s=%q", field, value)
}
