package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/memstore"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

func newTestApp(t *testing.T, store *memstore.Store) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := New("1.2.3", "abc123", "2026-01-01", "test",
		WithStore(store),
		WithOutput(&out),
		WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	return app, &out
}

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func decodeReport(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()
	var rep struct {
		Message string         `json:"reportMessage"`
		Summary map[string]any `json:"detailedSummary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.NotEmpty(t, rep.Message)
	return rep.Summary
}

func TestNew(t *testing.T) {
	app, _ := newTestApp(t, memstore.New())
	assert.Equal(t, "1.2.3", app.Version())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
	assert.Same(t, app.Cache(), app.Cache())
}

func TestVersionCommand(t *testing.T) {
	app, out := newTestApp(t, memstore.New())
	require.NoError(t, app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "catalogsync 1.2.3")
	assert.Contains(t, out.String(), "commit:   abc123")
}

func TestImportProducts(t *testing.T) {
	store := memstore.New()
	store.ProductTypeRepo().Seed(catalog.ProductType{Name: "shoe"})
	app, out := newTestApp(t, store)

	feed := writeFeed(t, `{"productType":{"id":"shoe"},"name":{"en":"Running Shoe"},"masterVariant":{"sku":"A1"}}
{"productType":{"id":"shoe"},"name":{"en":"Trail Shoe"},"masterVariant":{"sku":"B1"}}
`)
	err := app.Execute(context.Background(), []string{
		"import", "products", feed, "-o", "json", "-q", "--error-dir=", "--batch-size", "1",
	})
	require.NoError(t, err)

	summary := decodeReport(t, out)
	assert.EqualValues(t, 2, summary["created"])
	assert.Equal(t, 2, store.ProductRepo().Len())
}

func TestImportPrices(t *testing.T) {
	store := memstore.New()
	store.ProductRepo().Seed(catalog.Product{
		ID:            "p-1",
		Version:       1,
		MasterVariant: catalog.Variant{ID: 1, SKU: "A1"},
	})
	app, out := newTestApp(t, store)

	feed := writeFeed(t, `[{"sku":"A1","prices":[{"value":{"currencyCode":"EUR","centAmount":1500}}]},{"sku":"Z9","prices":[]}]`)
	require.NoError(t, app.Execute(context.Background(), []string{
		"import", "prices", feed, "--format", "json", "--error-dir=",
	}))

	summary := decodeReport(t, out)
	assert.EqualValues(t, 1, summary["updated"])
	assert.EqualValues(t, 1, summary["unknownSKUCount"])

	p, ok := store.ProductRepo().Get("p-1")
	require.True(t, ok)
	require.Len(t, p.MasterVariant.Prices, 1)
	assert.EqualValues(t, 1500, p.MasterVariant.Prices[0].Value.CentAmount)
}

func TestImportDiscounts(t *testing.T) {
	store := memstore.New()
	app, out := newTestApp(t, store)

	feed := writeFeed(t, `[{"name":{"de":"Sommer"},"predicate":"sku=\"A1\"","isActive":true}]`)
	require.NoError(t, app.Execute(context.Background(), []string{
		"import", "discounts", feed, "-o", "yaml", "--language", "de",
	}))

	assert.Contains(t, out.String(), "created: 1")
	assert.Equal(t, 1, store.ProductDiscountRepo().Len())
}

func TestImportErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, err error)
	}{
		{
			name: "missing file",
			args: []string{"import", "products", filepath.Join(t.TempDir(), "absent.json"), "-o", "json", "--error-dir="},
			check: func(t *testing.T, err error) {
				var ioErr *errors.IOError
				assert.ErrorAs(t, err, &ioErr)
			},
		},
		{
			name: "invalid format",
			args: []string{"import", "prices", "feed.json", "-o", "xml"},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsValidationError(err))
			},
		},
		{
			name: "unknown publishing strategy",
			args: []string{"import", "products", "feed.json", "--publishing-strategy", "sometimes", "--error-dir="},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.IsConfigError(err))
			},
		},
		{
			name: "missing argument",
			args: []string{"import", "products"},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, memstore.New())
			tt.check(t, app.Execute(context.Background(), tt.args))
		})
	}
}

func TestExportProducts(t *testing.T) {
	store := memstore.New()
	for _, sku := range []string{"A1", "B1", "C1"} {
		store.ProductRepo().Seed(catalog.Product{MasterVariant: catalog.Variant{SKU: sku}})
	}
	app, out := newTestApp(t, store)

	require.NoError(t, app.Execute(context.Background(), []string{"export", "products", "--per-page", "2"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	var first catalog.Product
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "A1", first.MasterVariant.SKU)
}

func TestImportFlagDefaults(t *testing.T) {
	app, _ := newTestApp(t, memstore.New())
	cmd := app.NewImportCommand()

	tests := []struct {
		flag string
		want string
	}{
		{flag: "log-on-duplicate-attr", want: "true"},
		{flag: "fail-on-duplicate-attr", want: "false"},
		{flag: "error-file-limit", want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.PersistentFlags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.DefValue)
		})
	}
}
