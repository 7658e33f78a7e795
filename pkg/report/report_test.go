package report_test

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/report"
)

func TestCollectorCounts(t *testing.T) {
	c := report.NewCollector("", report.ErrorHandlerFunc(func(context.Context, report.ErrorDetail) {}))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				c.Record(ctx, report.Outcome{Status: report.StatusCreated})
			case 1:
				c.Record(ctx, report.Outcome{Status: report.StatusUpdated})
			case 2:
				c.Record(ctx, report.Outcome{Status: report.StatusUnchanged})
			default:
				c.Record(ctx, report.Failed(stderrors.New("boom"), nil, nil))
			}
		}(i)
	}
	wg.Wait()

	s := c.Summary()
	assert.Equal(t, 5, s.Created)
	assert.Equal(t, 5, s.Updated)
	assert.Equal(t, 5, s.Unchanged)
	assert.Equal(t, 5, s.Failed)

	c.Update(func(s *report.Summary) { s.ProductsWithMissingSKU += 2 })
	assert.Equal(t, 2, c.Summary().ProductsWithMissingSKU)

	c.Reset()
	assert.Equal(t, report.Summary{}, c.Summary())
}

func TestCollectorErrorFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "errors")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.json"), []byte("{}"), 0o644))

	var details []report.ErrorDetail
	c := report.NewCollector(dir, report.ErrorHandlerFunc(func(_ context.Context, d report.ErrorDetail) {
		details = append(details, d)
	}))
	require.NoError(t, c.Prepare())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "prepare empties the directory")

	ctx := context.Background()
	c.Record(ctx, report.Failed(errors.NewConflictError("products", "p-1", 2), []string{"A1"}, map[string]any{"sku": "A1"}))
	c.Record(ctx, report.Failed(stderrors.New("second"), []string{"B1"}, nil))

	require.Len(t, details, 2)
	assert.Equal(t, 1, details[0].Index)
	assert.Equal(t, 409, details[0].StatusCode)

	data, err := os.ReadFile(filepath.Join(dir, "error-2.json"))
	require.NoError(t, err)
	var got report.ErrorDetail
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "second", got.Message)
	assert.Equal(t, []string{"B1"}, got.SKUs)
	assert.Equal(t, dir, c.Summary().ErrorDir)
}

func TestCollectorFileLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		files int
	}{
		{name: "unlimited", limit: 0, files: 4},
		{name: "capped", limit: 2, files: 2},
		{name: "limit above failures", limit: 10, files: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "errors")
			handled := 0
			c := report.NewCollector(dir, report.ErrorHandlerFunc(func(context.Context, report.ErrorDetail) {
				handled++
			}), report.WithFileLimit(tt.limit))
			require.NoError(t, c.Prepare())

			for range 4 {
				c.Record(context.Background(), report.Failed(stderrors.New("boom"), nil, nil))
			}

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, tt.files)
			assert.Equal(t, 4, handled, "every failure reaches the handler")
			assert.Equal(t, 4, c.Summary().Failed)
		})
	}
}

func TestLogErrorHandler(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	c := report.NewCollector("", &report.LogErrorHandler{Limit: 3})

	for i := 0; i < 5; i++ {
		c.Record(ctx, report.Failed(stderrors.New("boom"), []string{"A1"}, nil))
	}

	assert.Equal(t, 2, tl.Count("Skipping product due to an error"))
	assert.Equal(t, 3, tl.Count("Error not logged as error limit of 3 has reached."))

	t.Run("zero limit logs everything", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		c := report.NewCollector("", &report.LogErrorHandler{})
		for i := 0; i < 40; i++ {
			c.Record(ctx, report.Failed(stderrors.New("boom"), nil, nil))
		}
		assert.Equal(t, 40, tl.Count("Skipping product due to an error"))
	})
}

func TestMessages(t *testing.T) {
	t.Run("product", func(t *testing.T) {
		r := report.ProductReport(report.Summary{Created: 1, Updated: 2}, "")
		assert.Equal(t, "Summary: there were 3 imported products (1 were new and 2 were updates).", r.Message)

		r = report.ProductReport(report.Summary{Created: 1, ProductsWithMissingSKU: 2, Failed: 1, ErrorDir: "errs"}, "feed.json")
		assert.Equal(t, "Summary: there were 1 imported products (1 were new and 0 were updates)."+
			"\nFound 2 product(s) which do not have SKU and won't be imported. 'feed.json'"+
			"\n 1 product imports failed. Error reports stored at: errs", r.Message)
	})

	t.Run("price", func(t *testing.T) {
		r := report.PriceReport(report.Summary{Updated: 4, UnknownSKUCount: 1, DuplicatedSKUs: 2, VariantWithoutPriceUpdates: 3})
		assert.Equal(t, "Summary: there were 4 price update(s). (unknown skus: 1, duplicate skus: 2, variants without price updates: 3)", r.Message)
	})

	t.Run("discount", func(t *testing.T) {
		assert.Equal(t, "Summary: nothing to update", report.DiscountReport(report.Summary{Created: 3}).Message)
		assert.Equal(t, "Summary: there were 2 update(s) and 3 creation(s) of product discount.",
			report.DiscountReport(report.Summary{Created: 3, Updated: 2}).Message)
	})

	t.Run("json names", func(t *testing.T) {
		data, err := json.Marshal(report.ProductReport(report.Summary{Created: 1}, ""))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"reportMessage"`)
		assert.Contains(t, string(data), `"detailedSummary":{"created":1`)
	})
}
