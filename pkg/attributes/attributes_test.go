package attributes_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/attributes"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/logging"
)

func schema() *catalog.ProductType {
	return &catalog.ProductType{
		ID: "pt-1",
		Attributes: []catalog.AttributeDefinition{
			{Name: "color", Type: catalog.AttributeType{Name: "enum"}},
			{Name: "size", Type: catalog.AttributeType{Name: "text"}},
		},
	}
}

func attrs(names ...string) []catalog.Attribute {
	out := make([]catalog.Attribute, len(names))
	for i, n := range names {
		out[i] = catalog.Attribute{Name: n, Value: n + "-value"}
	}
	return out
}

func names(v catalog.Variant) []string {
	out := make([]string, len(v.Attributes))
	for i, a := range v.Attributes {
		out[i] = a.Name
	}
	return out
}

func TestFilter(t *testing.T) {
	product := catalog.Product{
		MasterVariant: catalog.Variant{SKU: "A1", Attributes: attrs("color", "legacy", "size")},
		Variants: []catalog.Variant{
			{SKU: "A2", Attributes: attrs("color", "internal")},
			{SKU: "A3"},
			{SKU: "A4", Attributes: attrs("legacy")},
		},
	}
	collector := attributes.NewNameCollector()

	out, err := attributes.Filter(context.Background(), schema(), product, collector)
	require.NoError(t, err)

	assert.Equal(t, []string{"color", "size"}, names(out.MasterVariant))
	assert.Equal(t, []string{"color"}, names(out.Variants[0]))
	assert.Nil(t, out.Variants[1].Attributes)
	assert.Empty(t, out.Variants[2].Attributes)
	assert.ElementsMatch(t, []string{"legacy", "internal"}, collector.Names())

	// The input is not modified.
	assert.Len(t, product.MasterVariant.Attributes, 3)
}

func TestFilterManyVariantsKeepsOrder(t *testing.T) {
	product := catalog.Product{MasterVariant: catalog.Variant{SKU: "M"}}
	for i := 0; i < 25; i++ {
		product.Variants = append(product.Variants, catalog.Variant{
			SKU:        fmt.Sprintf("V%d", i),
			Attributes: attrs("color", "junk"),
		})
	}

	out, err := attributes.Filter(context.Background(), schema(), product, nil)
	require.NoError(t, err)
	require.Len(t, out.Variants, 25)
	for i, v := range out.Variants {
		assert.Equal(t, fmt.Sprintf("V%d", i), v.SKU)
		assert.Equal(t, []string{"color"}, names(v))
	}
}

func TestFilterWithoutSchemaAttributes(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	product := catalog.Product{MasterVariant: catalog.Variant{SKU: "A1", Attributes: attrs("anything")}}

	out, err := attributes.Filter(ctx, &catalog.ProductType{ID: "empty"}, product, attributes.NewNameCollector())
	require.NoError(t, err)
	assert.Equal(t, product, out)
	assert.True(t, tl.Contains("skipping attribute filter"))
}

func TestNameCollectorDedupes(t *testing.T) {
	c := attributes.NewNameCollector()
	c.Add("a")
	c.Add("b")
	c.Add("a")
	assert.Equal(t, []string{"a", "b"}, c.Names())
}

func TestDefaults(t *testing.T) {
	defaults := attributes.NewDefaults([]catalog.Attribute{
		{Name: "origin", Value: "EU"},
		{Name: "color", Value: "black"},
	})

	desired := catalog.Product{
		MasterVariant: catalog.Variant{SKU: "A1", Attributes: []catalog.Attribute{{Name: "color", Value: "red"}}},
		Variants: []catalog.Variant{
			{SKU: "A2", Attributes: []catalog.Attribute{}},
			{SKU: "A3"},
		},
	}
	existing := &catalog.Product{
		MasterVariant: catalog.Variant{SKU: "A1", Attributes: []catalog.Attribute{{Name: "origin", Value: "US"}}},
		Variants: []catalog.Variant{
			{SKU: "A2", Attributes: []catalog.Attribute{{Name: "color", Value: "white"}}},
		},
	}

	t.Run("remote values win over defaults", func(t *testing.T) {
		out := defaults.EnsureDefaults(desired, existing)

		master := out.MasterVariant
		require.Len(t, master.Attributes, 2)
		assert.Equal(t, "red", master.Attributes[0].Value)
		assert.Equal(t, catalog.Attribute{Name: "origin", Value: "US"}, master.Attributes[1])

		v2 := out.Variants[0]
		require.Len(t, v2.Attributes, 2)
		assert.Equal(t, "EU", v2.Attributes[0].Value)
		assert.Equal(t, "white", v2.Attributes[1].Value)

		assert.Nil(t, out.Variants[1].Attributes, "variants without attributes stay untouched")
	})

	t.Run("new product gets configured defaults", func(t *testing.T) {
		out := defaults.EnsureDefaults(desired, nil)
		origin, ok := out.MasterVariant.Attribute("origin")
		require.True(t, ok)
		assert.Equal(t, "EU", origin.Value)
	})

	t.Run("input is not modified", func(t *testing.T) {
		_ = defaults.EnsureDefaults(desired, existing)
		assert.Len(t, desired.MasterVariant.Attributes, 1)
		assert.Empty(t, desired.Variants[0].Attributes)
	})
}
