package differ_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/differ"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

func eur(cents int64) catalog.Price {
	return catalog.Price{Value: catalog.Money{CurrencyCode: "EUR", CentAmount: cents}}
}

func existingProduct() *catalog.Product {
	return &catalog.Product{
		ID:      "p-1",
		Version: 3,
		Name:    catalog.LocalizedString{"en": "Shirt"},
		Slug:    catalog.LocalizedString{"en": "shirt"},
		MasterVariant: catalog.Variant{
			ID:  1,
			SKU: "A1",
			Attributes: []catalog.Attribute{
				{Name: "color", Value: map[string]any{"key": "red", "label": "Red"}},
				{Name: "brand", Value: "acme"},
			},
			Prices: []catalog.Price{withID(eur(90), "price-1")},
		},
		Variants: []catalog.Variant{
			{ID: 2, SKU: "A2", Prices: []catalog.Price{withID(eur(90), "price-2")}},
		},
	}
}

func withID(p catalog.Price, id string) catalog.Price {
	p.ID = id
	return p
}

func names(cs *differ.Changeset) []string {
	out := make([]string, len(cs.Actions))
	for i, a := range cs.Actions {
		out[i] = a.Action
	}
	return out
}

func newPlanner(t *testing.T, opts ...differ.Option) differ.Planner {
	t.Helper()
	p, err := differ.New(opts...)
	require.NoError(t, err)
	return p
}

func TestPlanIdenticalProductIsEmpty(t *testing.T) {
	existing := existingProduct()
	desired := existing.Clone()
	desired.ID = ""
	desired.MasterVariant.Attributes[0].Value = "red"
	desired.MasterVariant.Prices = []catalog.Price{eur(90)}
	desired.Variants[0].Prices = []catalog.Price{eur(90)}

	cs := newPlanner(t).Plan(&desired, existing, nil)
	assert.False(t, cs.ShouldUpdate(), "unexpected actions %v", names(cs))
}

func TestPlanSinglePriceChange(t *testing.T) {
	existing := existingProduct()
	desired := catalog.Product{MasterVariant: catalog.Variant{SKU: "A1", Prices: []catalog.Price{eur(100)}}}

	cs := newPlanner(t, differ.WithWhitelist("prices")).Plan(&desired, existing, nil)

	require.Equal(t, []string{catalog.ActionChangePrice}, names(cs))
	assert.Equal(t, int64(3), cs.Request().Version)
	assert.Equal(t, "price-1", cs.Actions[0].Param("priceId"))
	assert.Equal(t, "p-1", cs.ID)
}

func TestPlanGroupOrder(t *testing.T) {
	existing := existingProduct()
	desired := catalog.Product{
		Name:       catalog.LocalizedString{"en": "New shirt"},
		Categories: []catalog.Reference{{TypeID: catalog.TypeIDCategory, ID: "cat-1"}},
		MetaTitle:  catalog.LocalizedString{"en": "meta"},
		MasterVariant: catalog.Variant{
			SKU:        "A1",
			Attributes: []catalog.Attribute{{Name: "color", Value: "blue"}},
			Images:     []catalog.Image{{URL: "https://img/1.png"}},
			Prices:     []catalog.Price{eur(90)},
		},
		Variants: []catalog.Variant{{SKU: "A3"}},
	}

	cs := newPlanner(t).Plan(&desired, existing, nil)

	assert.Equal(t, []string{
		catalog.ActionChangeName,
		catalog.ActionAddToCategory,
		catalog.ActionSetMetaTitle,
		catalog.ActionRemoveVariant,
		catalog.ActionAddVariant,
		catalog.ActionSetAttribute, // color
		catalog.ActionSetAttribute, // brand unset
		catalog.ActionAddExternalImage,
	}, names(cs))

	unset := cs.Actions[6]
	assert.Equal(t, "brand", unset.Param("name"))
	assert.Nil(t, unset.Param("value"))
	assert.Equal(t, 2, cs.Actions[3].Param("id"))
}

func TestPlanSameForAll(t *testing.T) {
	existing := existingProduct()
	desired := catalog.Product{
		MasterVariant: catalog.Variant{
			SKU: "A1",
			Attributes: []catalog.Attribute{
				{Name: "color", Value: "red"},
				{Name: "brand", Value: "globex"},
			},
		},
		Variants: []catalog.Variant{{SKU: "A2"}},
	}

	cs := newPlanner(t, differ.WithWhitelist("attributes")).Plan(&desired, existing, []string{"brand"})

	require.Equal(t, []string{catalog.ActionSetAttributeInAllVariants}, names(cs))
	assert.Equal(t, "globex", cs.Actions[0].Param("value"))
}

func TestPlanPrices(t *testing.T) {
	existing := existingProduct()
	usd := catalog.Price{Value: catalog.Money{CurrencyCode: "USD", CentAmount: 120}}
	desired := catalog.Product{
		MasterVariant: catalog.Variant{SKU: "A1", Prices: []catalog.Price{usd}},
		Variants:      []catalog.Variant{{SKU: "A2", Prices: []catalog.Price{eur(90)}}},
	}

	cs := newPlanner(t).Plan(&desired, existing, nil)

	assert.Equal(t, []string{catalog.ActionRemovePrice, catalog.ActionAddPrice}, names(cs))
	assert.Equal(t, "price-1", cs.Actions[0].Param("priceId"))
	assert.Equal(t, 1, cs.Actions[1].Param("variantId"))
}

func TestBlacklistAndFilters(t *testing.T) {
	existing := existingProduct()
	desired := catalog.Product{
		Name:          catalog.LocalizedString{"en": "Renamed"},
		MasterVariant: catalog.Variant{SKU: "A1", Prices: []catalog.Price{}},
		Variants:      []catalog.Variant{{SKU: "A2"}},
	}

	t.Run("blacklisted group", func(t *testing.T) {
		cs := newPlanner(t, differ.WithBlacklist("prices")).Plan(&desired, existing, nil)
		assert.Equal(t, []string{catalog.ActionChangeName}, names(cs))
	})

	t.Run("excluded action", func(t *testing.T) {
		cs := newPlanner(t, differ.WithActionFilter(differ.ExcludeActions(catalog.ActionRemovePrice))).
			Plan(&desired, existing, nil)
		assert.Equal(t, []string{catalog.ActionChangeName}, names(cs))
	})

	t.Run("filter sees both products", func(t *testing.T) {
		var seen int
		filter := differ.ActionFilterFunc(func(a catalog.UpdateAction, e, d *catalog.Product) bool {
			seen++
			assert.Same(t, existing, e)
			assert.Same(t, &desired, d)
			return a.Action != catalog.ActionChangeName
		})
		cs := newPlanner(t, differ.WithActionFilter(filter)).Plan(&desired, existing, nil)
		assert.Equal(t, []string{catalog.ActionRemovePrice}, names(cs))
		assert.Equal(t, 2, seen)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := differ.New(differ.WithBlacklist("base", "nonsense"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid product sync action group: nonsense")
		var cfg *errors.ConfigError
		assert.ErrorAs(t, err, &cfg)
	})
}

func TestPublishing(t *testing.T) {
	tests := []struct {
		strategy  string
		published bool
		staged    bool
		want      bool
	}{
		{"always", false, false, true},
		{"stagedAndPublishedOnly", true, true, true},
		{"stagedAndPublishedOnly", true, false, false},
		{"notStagedAndPublishedOnly", true, false, true},
		{"notStagedAndPublishedOnly", true, true, false},
		{"notStagedAndPublishedOnly", false, false, false},
		{"", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			existing := existingProduct()
			existing.Published = tt.published
			existing.HasStagedChanges = tt.staged
			desired := catalog.Product{MasterVariant: catalog.Variant{SKU: "A1", Prices: []catalog.Price{eur(1)}}}

			cs := newPlanner(t, differ.WithPublishingStrategy(tt.strategy)).Plan(&desired, existing, nil)
			last := cs.Actions[len(cs.Actions)-1].Action
			assert.Equal(t, tt.want, last == catalog.ActionPublish)
		})
	}

	t.Run("no publish without changes", func(t *testing.T) {
		existing := existingProduct()
		desired := catalog.Product{
			MasterVariant: catalog.Variant{SKU: "A1"},
			Variants:      []catalog.Variant{{SKU: "A2"}},
		}
		cs := newPlanner(t, differ.WithPublishingStrategy("always")).Plan(&desired, existing, nil)
		assert.False(t, cs.ShouldUpdate())
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := differ.New(differ.WithPublishingStrategy("sometimes"))
		assert.Error(t, err)
	})
}

func TestCleanDuplicates(t *testing.T) {
	product := catalog.Product{MasterVariant: catalog.Variant{
		SKU: "A1",
		Attributes: []catalog.Attribute{
			{Name: "color", Value: "red"},
			{Name: "size", Value: "M"},
			{Name: "color", Value: "blue"},
		},
	}}

	t.Run("log keeps first", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)

		out, err := newPlanner(t).CleanDuplicates(ctx, product)
		require.NoError(t, err)
		require.Len(t, out.MasterVariant.Attributes, 2)
		assert.Equal(t, "red", out.MasterVariant.Attributes[0].Value)
		assert.True(t, tl.Contains("Variant with SKU 'A1' has duplicate attributes with name 'color'."))
		assert.Len(t, product.MasterVariant.Attributes, 3)
	})

	t.Run("fail", func(t *testing.T) {
		_, err := newPlanner(t, differ.WithDuplicateAttributePolicy(true, false)).
			CleanDuplicates(context.Background(), product)
		var dup *errors.DuplicateAttributeError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "A1", dup.SKU)
		assert.Equal(t, "color", dup.Attribute)
	})

	t.Run("silent", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		out, err := newPlanner(t, differ.WithDuplicateAttributePolicy(false, false)).CleanDuplicates(ctx, product)
		require.NoError(t, err)
		assert.Len(t, out.MasterVariant.Attributes, 2)
		assert.Empty(t, tl.Lines())
	})
}

func TestChangesetWithout(t *testing.T) {
	cs := &differ.Changeset{ID: "p", Version: 2, Actions: []catalog.UpdateAction{
		catalog.RemovePrice("x"), catalog.AddPrice(1, eur(1)),
	}}
	out := cs.Without(catalog.ActionRemovePrice)
	assert.Equal(t, []string{catalog.ActionAddPrice}, names(out))
	assert.Equal(t, map[string]int{catalog.ActionRemovePrice: 1, catalog.ActionAddPrice: 1}, cs.Count())
}
