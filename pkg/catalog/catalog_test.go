package catalog_test

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

func sampleProduct() catalog.Product {
	return catalog.Product{
		Name: catalog.LocalizedString{"en": "Shirt"},
		MasterVariant: catalog.Variant{
			SKU: "A1",
			Attributes: []catalog.Attribute{
				{Name: "color", Value: map[string]any{"key": "red"}},
			},
			Prices: []catalog.Price{{Value: catalog.Money{CurrencyCode: "EUR", CentAmount: 100}}},
		},
		Variants: []catalog.Variant{
			{SKU: "A2"},
			{SKU: "A1"},
		},
	}
}

func TestProductSKUs(t *testing.T) {
	p := sampleProduct()
	assert.Equal(t, []string{"A1", "A2"}, p.SKUs())
	assert.True(t, p.HasSKUs())

	p.Variants = append(p.Variants, catalog.Variant{})
	assert.False(t, p.HasSKUs())
	assert.Equal(t, []string{"A1", "A2"}, p.SKUs())

	v, ok := p.VariantBySKU("A2")
	require.True(t, ok)
	assert.Equal(t, "A2", v.SKU)

	_, ok = p.VariantBySKU("missing")
	assert.False(t, ok)
}

func TestProductHasSKUsMasterMissing(t *testing.T) {
	p := catalog.Product{Variants: []catalog.Variant{{SKU: "A2"}}}
	assert.False(t, p.HasSKUs())
}

func TestProductClone(t *testing.T) {
	original := sampleProduct()
	clone := original.Clone()

	clone.Name["en"] = "Changed"
	clone.MasterVariant.SKU = "B1"
	clone.MasterVariant.Attributes[0].Value.(map[string]any)["key"] = "blue"
	clone.MasterVariant.Prices[0].Value.CentAmount = 1
	clone.Variants[0].SKU = "B2"

	assert.Equal(t, "Shirt", original.Name["en"])
	assert.Equal(t, "A1", original.MasterVariant.SKU)
	assert.Equal(t, "red", original.MasterVariant.Attributes[0].Value.(map[string]any)["key"])
	assert.Equal(t, int64(100), original.MasterVariant.Prices[0].Value.CentAmount)
	assert.Equal(t, "A2", original.Variants[0].SKU)
}

func TestVariantEnsureDefaults(t *testing.T) {
	var v catalog.Variant
	v.EnsureDefaults()
	assert.NotNil(t, v.Attributes)
	assert.NotNil(t, v.Prices)
	assert.NotNil(t, v.Images)
}

func TestReferenceBusinessKey(t *testing.T) {
	var nilRef *catalog.Reference
	assert.Empty(t, nilRef.BusinessKey())
	assert.Equal(t, "standard", (&catalog.Reference{ID: "standard"}).BusinessKey())
	assert.Equal(t, "by-key", (&catalog.Reference{ID: "x", Key: "by-key"}).BusinessKey())
}

func TestAttributeTypeKind(t *testing.T) {
	tests := []struct {
		name string
		typ  catalog.AttributeType
		want catalog.ValueKind
	}{
		{"enum", catalog.AttributeType{Name: "enum"}, catalog.KindEnum},
		{"lenum", catalog.AttributeType{Name: "lenum"}, catalog.KindLocalizedEnum},
		{"text", catalog.AttributeType{Name: "text"}, catalog.KindScalar},
		{"reference", catalog.AttributeType{Name: "reference"}, catalog.KindReference},
		{"set of enum", catalog.AttributeType{Name: "set", ElementType: &catalog.AttributeType{Name: "enum"}}, catalog.KindEnumSet},
		{"set of lenum", catalog.AttributeType{Name: "set", ElementType: &catalog.AttributeType{Name: "lenum"}}, catalog.KindLocalizedEnumSet},
		{"set of text", catalog.AttributeType{Name: "set", ElementType: &catalog.AttributeType{Name: "text"}}, catalog.KindScalarSet},
		{"set without element", catalog.AttributeType{Name: "set"}, catalog.KindInvalid},
		{"set of unknown", catalog.AttributeType{Name: "set", ElementType: &catalog.AttributeType{Name: "color"}}, catalog.KindInvalid},
		{"unknown", catalog.AttributeType{Name: "penum"}, catalog.KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Kind())
		})
	}

	assert.True(t, catalog.KindEnumSet.IsEnumLike())
	assert.True(t, catalog.KindLocalizedEnumSet.Localized())
	assert.False(t, catalog.KindScalarSet.IsEnumLike())
	assert.Equal(t, "set<lenum>", catalog.KindLocalizedEnumSet.String())
}

func TestAttributeTypeHasEnumKey(t *testing.T) {
	set := catalog.AttributeType{
		Name:        "set",
		ElementType: &catalog.AttributeType{Name: "enum", Values: []catalog.EnumValue{{Key: "red", Label: "Red"}}},
	}
	assert.True(t, set.HasEnumKey("red"))
	assert.False(t, set.HasEnumKey("blue"))
}

func TestProductTypeHelpers(t *testing.T) {
	pt := catalog.ProductType{
		ID: "pt-1",
		Attributes: []catalog.AttributeDefinition{
			{Name: "color", Type: catalog.AttributeType{Name: "enum"}},
			{Name: "brand", Type: catalog.AttributeType{Name: "text"}, AttributeConstraint: catalog.ConstraintSameForAll},
		},
	}

	assert.Equal(t, []string{"brand"}, pt.SameForAllNames())
	assert.Contains(t, pt.AttributeNames(), "color")
	def, ok := pt.Attribute("color")
	require.True(t, ok)
	assert.Equal(t, catalog.KindEnum, def.Type.Kind())
}

func TestPriceIdentity(t *testing.T) {
	a := catalog.Price{Value: catalog.Money{CurrencyCode: "EUR", CentAmount: 100}, Country: "DE"}
	b := catalog.Price{Value: catalog.Money{CurrencyCode: "EUR", CentAmount: 90}, Country: "DE"}
	c := catalog.Price{Value: catalog.Money{CurrencyCode: "EUR"}, Country: "DE", Channel: &catalog.Reference{ID: "ch-1"}}

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), c.Identity())
}

func TestUpdateActionJSON(t *testing.T) {
	action := catalog.ChangePrice("price-1", catalog.Price{Value: catalog.Money{CurrencyCode: "EUR", CentAmount: 100}})
	assert.Equal(t, catalog.GroupPrices, action.Group())

	data, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"changePrice","priceId":"price-1","price":{"value":{"currencyCode":"EUR","centAmount":100}}}`, string(data))

	var decoded catalog.UpdateAction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, catalog.ActionChangePrice, decoded.Action)
	assert.Equal(t, "price-1", decoded.Param("priceId"))
	_, hasAction := decoded.Params["action"]
	assert.False(t, hasAction)
}

func TestNewActionDropsNil(t *testing.T) {
	unset := catalog.SetAttribute(2, "color", nil)
	_, hasValue := unset.Params["value"]
	assert.False(t, hasValue)

	noTax := catalog.SetTaxCategory(nil)
	assert.Empty(t, noTax.Params)

	assert.Equal(t, catalog.ActionGroup(""), catalog.Publish().Group())
}

func TestParseActionGroup(t *testing.T) {
	g, ok := catalog.ParseActionGroup("prices")
	assert.True(t, ok)
	assert.Equal(t, catalog.GroupPrices, g)

	_, ok = catalog.ParseActionGroup("bogus")
	assert.False(t, ok)
}
