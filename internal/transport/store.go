package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
)

// Store is the HTTP implementation of client.Store.
type Store struct {
	c                *Client
	products         *productRepo
	productTypes     *repo[catalog.ProductType]
	categories       *repo[catalog.Resource]
	taxCategories    *repo[catalog.Resource]
	customerGroups   *repo[catalog.Resource]
	channels         *repo[catalog.Resource]
	types            *repo[catalog.Resource]
	productDiscounts *repo[catalog.ProductDiscount]
}

var _ client.Store = (*Store)(nil)

// NewStore returns a store backed by c.
func NewStore(c *Client) *Store {
	return &Store{
		c: c,
		products: &productRepo{
			projections: &repo[catalog.Product]{c: c, resource: client.ResourceProductProjections},
			c:           c,
		},
		productTypes:     &repo[catalog.ProductType]{c: c, resource: client.ResourceProductTypes},
		categories:       &repo[catalog.Resource]{c: c, resource: client.ResourceCategories},
		taxCategories:    &repo[catalog.Resource]{c: c, resource: client.ResourceTaxCategories},
		customerGroups:   &repo[catalog.Resource]{c: c, resource: client.ResourceCustomerGroups},
		channels:         &repo[catalog.Resource]{c: c, resource: client.ResourceChannels},
		types:            &repo[catalog.Resource]{c: c, resource: client.ResourceTypes},
		productDiscounts: &repo[catalog.ProductDiscount]{c: c, resource: client.ResourceProductDiscounts},
	}
}

// Products implements client.Store.
func (s *Store) Products() client.Repository[catalog.Product] { return s.products }

// ProductTypes implements client.Store.
func (s *Store) ProductTypes() client.Repository[catalog.ProductType] { return s.productTypes }

// Categories implements client.Store.
func (s *Store) Categories() client.Querier[catalog.Resource] { return s.categories }

// TaxCategories implements client.Store.
func (s *Store) TaxCategories() client.Querier[catalog.Resource] { return s.taxCategories }

// CustomerGroups implements client.Store.
func (s *Store) CustomerGroups() client.Querier[catalog.Resource] { return s.customerGroups }

// Channels implements client.Store.
func (s *Store) Channels() client.Querier[catalog.Resource] { return s.channels }

// Types implements client.Store.
func (s *Store) Types() client.Querier[catalog.Resource] { return s.types }

// ProductDiscounts implements client.Store.
func (s *Store) ProductDiscounts() client.Repository[catalog.ProductDiscount] {
	return s.productDiscounts
}

// QueryURL implements client.Store.
func (s *Store) QueryURL(resource string, q client.Query) string {
	return s.c.URL(resource, queryValues(q, false))
}

// repo is a generic resource endpoint.
type repo[T any] struct {
	c        *Client
	resource string
}

// Query implements client.Querier. With q.All it follows offsets until
// every result is loaded.
func (r *repo[T]) Query(ctx context.Context, q client.Query) (*client.QueryResult[T], error) {
	if !q.All {
		var res client.QueryResult[T]
		if err := r.c.Do(ctx, http.MethodGet, r.resource, r.resource, queryValues(q, true), nil, &res); err != nil {
			return nil, err
		}
		return &res, nil
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = constants.DefaultPerPage
	}
	all := &client.QueryResult[T]{}
	for offset := 0; ; offset += perPage {
		page := q
		page.All = false
		page.PerPage = perPage
		page.Offset = offset

		res, err := r.Query(ctx, page)
		if err != nil {
			return nil, err
		}
		all.Results = append(all.Results, res.Results...)
		all.Total = res.Total
		if len(res.Results) < perPage || (res.Total > 0 && len(all.Results) >= res.Total) {
			break
		}
	}
	all.Count = len(all.Results)
	return all, nil
}

// ByID implements client.Repository.
func (r *repo[T]) ByID(ctx context.Context, id string, staged bool) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodGet, r.resource, r.resource+"/"+url.PathEscape(id), stagedValues(staged), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update implements client.Repository.
func (r *repo[T]) Update(ctx context.Context, id string, req catalog.UpdateRequest) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPost, r.resource, r.resource+"/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create implements client.Repository.
func (r *repo[T]) Create(ctx context.Context, draft *T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPost, r.resource, r.resource, nil, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func stagedValues(staged bool) url.Values {
	if !staged {
		return nil
	}
	return url.Values{"staged": {"true"}}
}

// productRepo reads product projections and writes products. Write
// responses carry the full product; they are returned as the staged
// projection.
type productRepo struct {
	projections *repo[catalog.Product]
	c           *Client
}

type productResponse struct {
	ID          string             `json:"id"`
	Version     int64              `json:"version"`
	Key         string             `json:"key,omitempty"`
	ProductType catalog.Reference  `json:"productType"`
	TaxCategory *catalog.Reference `json:"taxCategory,omitempty"`
	MasterData  struct {
		Published        bool            `json:"published"`
		HasStagedChanges bool            `json:"hasStagedChanges"`
		Staged           catalog.Product `json:"staged"`
	} `json:"masterData"`
}

func (p *productResponse) projection() *catalog.Product {
	out := p.MasterData.Staged
	out.ID = p.ID
	out.Version = p.Version
	out.Key = p.Key
	out.ProductType = p.ProductType
	if p.TaxCategory != nil {
		out.TaxCategory = p.TaxCategory
	}
	out.Published = p.MasterData.Published
	out.HasStagedChanges = p.MasterData.HasStagedChanges
	return &out
}

func (r *productRepo) Query(ctx context.Context, q client.Query) (*client.QueryResult[catalog.Product], error) {
	return r.projections.Query(ctx, q)
}

func (r *productRepo) ByID(ctx context.Context, id string, staged bool) (*catalog.Product, error) {
	return r.projections.ByID(ctx, id, staged)
}

func (r *productRepo) Update(ctx context.Context, id string, req catalog.UpdateRequest) (*catalog.Product, error) {
	var res productResponse
	path := client.ResourceProducts + "/" + url.PathEscape(id)
	if err := r.c.Do(ctx, http.MethodPost, client.ResourceProducts, path, nil, req, &res); err != nil {
		return nil, err
	}
	return res.projection(), nil
}

func (r *productRepo) Create(ctx context.Context, draft *catalog.Product) (*catalog.Product, error) {
	var res productResponse
	if err := r.c.Do(ctx, http.MethodPost, client.ResourceProducts, client.ResourceProducts, nil, draft, &res); err != nil {
		return nil, err
	}
	return res.projection(), nil
}
