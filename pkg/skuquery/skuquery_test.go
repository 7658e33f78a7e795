package skuquery_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/skuquery"
)

func TestPredicate(t *testing.T) {
	assert.Equal(t,
		`masterVariant(sku in ("a","b")) or variants(sku in ("a","b"))`,
		skuquery.Predicate([]string{"a", "b"}))
	assert.Equal(t,
		`masterVariant(sku in ("say \"hi\"")) or variants(sku in ("say \"hi\""))`,
		skuquery.Predicate([]string{`say "hi"`}))
}

func TestChunk(t *testing.T) {
	t.Run("fits in one chunk", func(t *testing.T) {
		chunks := skuquery.Chunk([]string{"a", "b", "c"}, 1000)
		assert.Equal(t, [][]string{{"a", "b", "c"}}, chunks)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, skuquery.Chunk(nil, 1000))
	})

	t.Run("every chunk fits the limit", func(t *testing.T) {
		skus := make([]string, 500)
		for i := range skus {
			skus[i] = fmt.Sprintf("SKU-%05d", i)
		}
		limit := 2000

		chunks := skuquery.Chunk(skus, limit)
		require.Greater(t, len(chunks), 1)

		var flat []string
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(skuquery.Encode(skuquery.Predicate(chunk))), limit)
			flat = append(flat, chunk...)
		}
		assert.Equal(t, skus, flat, "order and content are preserved")
	})

	t.Run("oversized sku gets its own chunk", func(t *testing.T) {
		huge := strings.Repeat("x", 300)
		chunks := skuquery.Chunk([]string{"a", huge, "b"}, 200)
		assert.Equal(t, [][]string{{"a"}, {huge}, {"b"}}, chunks)
	})
}

func TestQueryLimit(t *testing.T) {
	u := "https://api.example.com/shop/product-projections?staged=true"
	want := 8192 - len("api.example.com/shop/product-projections?staged=true") - 1
	assert.Equal(t, want, skuquery.QueryLimit(8192, u))
}
