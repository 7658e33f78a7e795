// Package client declares the narrow contracts the engine uses to talk to
// the remote catalog store. The HTTP implementation lives in
// internal/transport, and an in-memory one for tests lives in internal/memstore.
package client

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// Resource names used in URLs, logs and errors.
const (
	ResourceProducts           = "products"
	ResourceProductProjections = "product-projections"
	ResourceProductTypes       = "product-types"
	ResourceCategories         = "categories"
	ResourceTaxCategories      = "tax-categories"
	ResourceCustomerGroups     = "customer-groups"
	ResourceChannels           = "channels"
	ResourceTypes              = "types"
	ResourceProductDiscounts   = "product-discounts"
)

// Query selects entities with a where predicate.
type Query struct {
	Where   string
	Staged  bool
	PerPage int
	Offset  int
	// All pages through every result instead of returning the first page.
	All bool
}

// QueryResult is one page (or, with Query.All, every page) of results.
type QueryResult[T any] struct {
	Count   int `json:"count"`
	Total   int `json:"total,omitempty"`
	Offset  int `json:"offset,omitempty"`
	Results []T `json:"results"`
}

// Querier fetches entities by predicate.
type Querier[T any] interface {
	Query(ctx context.Context, q Query) (*QueryResult[T], error)
}

// Repository reads and mutates one kind of entity.
//
// Update returns the entity as confirmed by the store, including its new
// version. A version mismatch is reported as an errors.APIError with status
// 409, which satisfies errors.Is(err, errors.ErrConflict).
type Repository[T any] interface {
	Querier[T]
	ByID(ctx context.Context, id string, staged bool) (*T, error)
	Update(ctx context.Context, id string, req catalog.UpdateRequest) (*T, error)
	Create(ctx context.Context, draft *T) (*T, error)
}

// Store bundles the repositories the importers need.
type Store interface {
	Products() Repository[catalog.Product]
	ProductTypes() Repository[catalog.ProductType]
	Categories() Querier[catalog.Resource]
	TaxCategories() Querier[catalog.Resource]
	CustomerGroups() Querier[catalog.Resource]
	Channels() Querier[catalog.Resource]
	Types() Querier[catalog.Resource]
	ProductDiscounts() Repository[catalog.ProductDiscount]

	// QueryURL returns the URL, without the where predicate, that a query
	// against resource is sent to. It sizes predicates against the URL limit.
	QueryURL(resource string, q Query) string
}

// ReassignmentStats summarizes a variant reassignment pass.
type ReassignmentStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed,omitempty"`
}

// Reassigner may move variants between existing products before reconciliation.
// A Processed count above zero makes the importer refetch existing products.
type Reassigner interface {
	Execute(ctx context.Context, records []catalog.Product, schemas map[string]*catalog.ProductType) (ReassignmentStats, error)
}

// DefaultsProvider merges schema-mandated default attributes into a record,
// preferring values already present on the existing product.
type DefaultsProvider interface {
	EnsureDefaults(desired catalog.Product, existing *catalog.Product) catalog.Product
}
