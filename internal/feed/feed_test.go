package feed_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/feed"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

func collect(t *testing.T, input string, size int) ([][]string, error) {
	t.Helper()
	r := &feed.Reader[catalog.PriceRecord]{Name: "feed.json"}
	var chunks [][]string
	err := r.Chunks(context.Background(), strings.NewReader(input), size, func(recs []catalog.PriceRecord) error {
		skus := make([]string, 0, len(recs))
		for _, rec := range recs {
			skus = append(skus, rec.SKU)
		}
		chunks = append(chunks, skus)
		return nil
	})
	return chunks, err
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		size  int
		want  [][]string
	}{
		{
			name:  "array",
			input: `[{"sku":"a"},{"sku":"b"},{"sku":"c"}]`,
			size:  2,
			want:  [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:  "array with leading whitespace",
			input: "\n  [ {\"sku\":\"a\"} ]\n",
			size:  10,
			want:  [][]string{{"a"}},
		},
		{
			name:  "ndjson",
			input: "{\"sku\":\"a\"}\n{\"sku\":\"b\"}\n{\"sku\":\"c\"}\n",
			size:  1,
			want:  [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name:  "empty array",
			input: `[]`,
			size:  3,
		},
		{
			name:  "empty input",
			input: "   ",
			size:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, tt.input, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunksParseError(t *testing.T) {
	_, err := collect(t, "{\"sku\":\"a\"}\n{\"sku\": 12}\n", 5)
	require.Error(t, err)

	var parseErr *errors.ParseError
	require.True(t, stderrors.As(err, &parseErr))
	assert.Equal(t, "ndjson", parseErr.Format)
	assert.Equal(t, "feed.json", parseErr.File)
	assert.Contains(t, parseErr.Message, "record 1")
}

func TestChunksCallbackError(t *testing.T) {
	r := &feed.Reader[catalog.PriceRecord]{}
	boom := stderrors.New("stop")
	calls := 0
	err := r.Chunks(context.Background(), strings.NewReader(`[{"sku":"a"},{"sku":"b"}]`), 1, func([]catalog.PriceRecord) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	err = r.Chunks(context.Background(), strings.NewReader(`[]`), 0, func([]catalog.PriceRecord) error { return nil })
	assert.True(t, errors.IsValidationError(err))
}
