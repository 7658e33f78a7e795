package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/memstore"
	"github.com/agentstation/catalogsync/pkg/cache"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/resolver"
)

func setup(t *testing.T) (*memstore.Store, *resolver.Resolver) {
	t.Helper()
	store := memstore.New()
	return store, resolver.New(store, cache.New())
}

func TestResolveNilReference(t *testing.T) {
	store, r := setup(t)
	ref, err := r.ResolveTaxCategory(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, ref)
	assert.Empty(t, store.Calls())
}

func TestResolveTaxCategoryCached(t *testing.T) {
	ctx := context.Background()
	store, r := setup(t)
	store.TaxCategoryRepo().Seed(catalog.Resource{ID: "tc-1", Name: "standard"})

	for i := 0; i < 3; i++ {
		ref, err := r.ResolveTaxCategory(ctx, &catalog.Reference{ID: "standard"})
		require.NoError(t, err)
		assert.Equal(t, catalog.Reference{TypeID: catalog.TypeIDTaxCategory, ID: "tc-1"}, *ref)
	}

	calls := store.CallsTo(client.ResourceTaxCategories, memstore.MethodQuery)
	require.Len(t, calls, 1, "resolved once, then served from the cache")
	assert.Equal(t, `name="standard"`, calls[0].Query.Where)
}

func TestResolveNotFound(t *testing.T) {
	_, r := setup(t)
	_, err := r.ResolveChannel(context.Background(), &catalog.Reference{ID: "web"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var refErr *errors.ReferenceNotFoundError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, `key="web"`, refErr.Predicate)
	assert.Contains(t, err.Error(), "didn't find any match while resolving channel")
}

func TestResolveMultipleMatchesWarns(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	store, r := setup(t)
	store.CustomerGroupRepo().Seed(
		catalog.Resource{ID: "cg-1", Name: "B2B"},
		catalog.Resource{ID: "cg-2", Name: "B2B"},
	)

	ref, err := r.ResolveCustomerGroup(ctx, &catalog.Reference{ID: "B2B"})
	require.NoError(t, err)
	assert.Equal(t, "cg-1", ref.ID)
	assert.True(t, tl.Contains("Found more than 1 customerGroup for B2B"))
}

func TestResolveCategoriesKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store, r := setup(t)
	store.CategoryRepo().Seed(
		catalog.Resource{ID: "cat-1", ExternalID: "shoes"},
		catalog.Resource{ID: "cat-2", ExternalID: "boots"},
	)

	refs, err := r.ResolveCategories(ctx, []catalog.Reference{{ID: "boots"}, {ID: "shoes"}})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Reference{
		{TypeID: catalog.TypeIDCategory, ID: "cat-2"},
		{TypeID: catalog.TypeIDCategory, ID: "cat-1"},
	}, refs)

	_, err = r.ResolveCategories(ctx, []catalog.Reference{{ID: "shoes"}, {ID: "sandals"}})
	assert.True(t, errors.IsNotFound(err))
}

func TestResolveProductTypeCachesByID(t *testing.T) {
	ctx := context.Background()
	store, r := setup(t)
	store.ProductTypeRepo().Seed(catalog.ProductType{ID: "pt-1", Name: "shirt"})

	pt, err := r.ResolveProductType(ctx, catalog.Reference{ID: "shirt"})
	require.NoError(t, err)
	assert.Equal(t, "pt-1", pt.ID)

	byID, ok := r.ProductType("pt-1")
	require.True(t, ok)
	assert.Equal(t, "shirt", byID.Name)

	r.StoreProductType(catalog.ProductType{ID: "pt-1", Name: "shirt", Version: 7})
	again, err := r.ResolveProductType(ctx, catalog.Reference{ID: "shirt"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), again.Version)
	assert.Len(t, store.CallsTo(client.ResourceProductTypes, memstore.MethodQuery), 1)
}

func TestResolveProductTypeMissingReference(t *testing.T) {
	_, r := setup(t)
	_, err := r.ResolveProductType(context.Background(), catalog.Reference{})
	assert.True(t, errors.IsValidationError(err))
}

func TestResolveProductCustomReference(t *testing.T) {
	ctx := context.Background()
	store, r := setup(t)
	store.ProductRepo().Seed(catalog.Product{ID: "p-9", Key: "related"})

	id, err := r.ResolveProduct(ctx, catalog.Attribute{
		Name:   "related",
		Value:  "related",
		Type:   &catalog.AttributeType{Name: catalog.TypeReference, ReferenceTypeID: catalog.TypeIDProduct},
		Custom: &catalog.AttributeQuery{Predicate: `key="related"`},
	})
	require.NoError(t, err)
	assert.Equal(t, "p-9", id)

	calls := store.CallsTo(client.ResourceProductProjections, memstore.MethodQuery)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Query.Staged)
}

func TestResolveProductRejectsUnsupportedType(t *testing.T) {
	_, r := setup(t)
	_, err := r.ResolveProduct(context.Background(), catalog.Attribute{
		Name:  "cat",
		Value: "x",
		Type:  &catalog.AttributeType{Name: catalog.TypeReference, ReferenceTypeID: catalog.TypeIDCategory},
	})
	assert.True(t, errors.IsValidationError(err))
}

func TestGenericResolve(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := cache.New()
	store.TypeRepo().Seed(catalog.Resource{ID: "t-1", Key: "price-extras"})

	id, err := resolver.Resolve(ctx, c, store.Types(), cache.Types, &catalog.Reference{ID: "price-extras"}, `key="price-extras"`)
	require.NoError(t, err)
	assert.Equal(t, "t-1", id)

	cached, ok := cache.Lookup[catalog.Resource](c, cache.Types, "price-extras")
	require.True(t, ok)
	assert.Equal(t, "t-1", cached.ID)
}
