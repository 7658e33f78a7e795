package discounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/memstore"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/discounts"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

func discount(name, predicate string) catalog.ProductDiscount {
	return catalog.ProductDiscount{
		Name:      catalog.LocalizedString{"en": name, "de": name + " (de)"},
		Predicate: predicate,
		SortOrder: "0.1",
	}
}

func TestPredicate(t *testing.T) {
	got := discounts.Predicate("en", []catalog.ProductDiscount{discount("a", ""), discount(`say "hi"`, "")})
	assert.Equal(t, `name(en in ("a", "say \"hi\""))`, got)
}

func TestProcessBatch(t *testing.T) {
	store := memstore.New()
	store.ProductDiscountRepo().Seed(
		discount("Summer", `sku="A1"`),
		discount("Winter", `sku="B1"`),
	)
	tl := logging.NewTestLogger(t)
	imp, err := discounts.New(store, discounts.WithLogger(tl.Logger))
	require.NoError(t, err)

	require.NoError(t, imp.ProcessBatch(context.Background(), []catalog.ProductDiscount{
		discount("Summer", `sku="A1"`),
		discount("Winter", `sku="B2"`),
		discount("Spring", `sku="C1"`),
	}))

	s := imp.Summary()
	assert.Equal(t, 1, s.Unchanged)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, "Summary: there were 1 update(s) and 1 creation(s) of product discount.", imp.SummaryReport().Message)

	all := store.ProductDiscountRepo().All()
	require.Len(t, all, 3)
	for _, d := range all {
		if d.Name["en"] == "Winter" {
			assert.Equal(t, `sku="B2"`, d.Predicate)
			assert.Equal(t, int64(2), d.Version)
		}
	}
}

func TestNothingToUpdate(t *testing.T) {
	store := memstore.New()
	imp, err := discounts.New(store, discounts.WithBatchSize(1))
	require.NoError(t, err)

	require.NoError(t, imp.ProcessBatch(context.Background(), []catalog.ProductDiscount{
		discount("A", "true"), discount("B", "true"),
	}))
	assert.Equal(t, 2, imp.Summary().Created)
	assert.Equal(t, "Summary: nothing to update", imp.SummaryReport().Message)
}

func TestLanguage(t *testing.T) {
	store := memstore.New()
	store.ProductDiscountRepo().Seed(discount("Summer", `sku="A1"`))
	imp, err := discounts.New(store, discounts.WithLanguage("de"))
	require.NoError(t, err)

	require.NoError(t, imp.ProcessBatch(context.Background(), []catalog.ProductDiscount{
		discount("Summer", `sku="A2"`),
	}))
	assert.Equal(t, 1, imp.Summary().Updated)

	_, err = discounts.New(store, discounts.WithLanguage(""))
	assert.True(t, errors.IsValidationError(err))
}

func TestFailuresAreRecorded(t *testing.T) {
	store := memstore.New()
	store.ProductDiscountRepo().FailCreates(errors.NewAPIError("product-discounts", 400, "invalid"))
	imp, err := discounts.New(store)
	require.NoError(t, err)

	require.NoError(t, imp.ProcessBatch(context.Background(), []catalog.ProductDiscount{discount("A", "true")}))
	assert.Equal(t, 1, imp.Summary().Failed)
}
