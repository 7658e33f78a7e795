// Package export streams the staged product projections of a store.
package export

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// PageHandler receives one page of products.
type PageHandler func(ctx context.Context, products []catalog.Product) error

// Exporter pages through product projections.
type Exporter struct {
	Products client.Querier[catalog.Product]
	PerPage  int    // defaults to constants.DefaultPerPage
	Where    string // optional predicate
	Staged   bool
}

// New returns an exporter of the staged projections of store.
func New(store client.Store) *Exporter {
	return &Exporter{Products: store.Products(), PerPage: constants.DefaultPerPage, Staged: true}
}

// Stream calls handler once per non-empty page, in store order, and stops
// at the first query or handler error.
func (e *Exporter) Stream(ctx context.Context, handler PageHandler) error {
	perPage := e.PerPage
	if perPage <= 0 {
		perPage = constants.DefaultPerPage
	}
	logger := logging.FromContext(ctx)

	exported := 0
	for offset := 0; ; offset += perPage {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := e.Products.Query(ctx, client.Query{
			Where:   e.Where,
			Staged:  e.Staged,
			PerPage: perPage,
			Offset:  offset,
		})
		if err != nil {
			return errors.WrapResource("query", client.ResourceProductProjections, "", err)
		}
		if len(page.Results) == 0 {
			break
		}
		if err := handler(ctx, page.Results); err != nil {
			return err
		}
		exported += len(page.Results)
		logger.Debug().Int("offset", offset).Int("count", len(page.Results)).Msg("Exported page")

		if len(page.Results) < perPage || (page.Total > 0 && exported >= page.Total) {
			break
		}
	}

	logger.Info().Int("products", exported).Msg("Export finished")
	return nil
}
