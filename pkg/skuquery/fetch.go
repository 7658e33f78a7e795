package skuquery

import (
	"context"

	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Fetcher loads the staged products carrying a set of skus.
type Fetcher struct {
	Store       client.Store
	URLLimit    int // defaults to constants.DefaultURLLimit
	Concurrency int // defaults to constants.DefaultChunkConcurrency
}

// Fetch queries every sku chunk, all pages each, and returns the products
// in chunk order. Each product appears once, at its first match.
func (f Fetcher) Fetch(ctx context.Context, skus []string) ([]catalog.Product, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	urlLimit := f.URLLimit
	if urlLimit <= 0 {
		urlLimit = constants.DefaultURLLimit
	}
	concurrency := f.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultChunkConcurrency
	}

	base := client.Query{Staged: true, PerPage: constants.DefaultPerPage, All: true}
	limit := QueryLimit(urlLimit, f.Store.QueryURL(client.ResourceProductProjections, base))
	chunks := Chunk(skus, limit)

	logging.FromContext(ctx).Debug().
		Int("skus", len(skus)).
		Int("chunks", len(chunks)).
		Msg("Fetching existing products")

	pages, err := workpool.Map(ctx, concurrency, chunks, func(ctx context.Context, chunk []string) ([]catalog.Product, error) {
		q := base
		q.Where = Predicate(chunk)
		res, err := f.Store.Products().Query(ctx, q)
		if err != nil {
			return nil, errors.WrapResource("query", client.ResourceProductProjections, "", err)
		}
		return res.Results, nil
	})
	if err != nil {
		return nil, err
	}

	// A product whose skus span two chunks is returned by both queries.
	seen := make(map[string]struct{})
	var products []catalog.Product
	for _, page := range pages {
		for _, p := range page {
			if _, dup := seen[p.ID]; dup && p.ID != "" {
				continue
			}
			seen[p.ID] = struct{}{}
			products = append(products, p)
		}
	}
	return products, nil
}
