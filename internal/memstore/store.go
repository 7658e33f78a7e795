// Package memstore is an in-memory client.Store for tests. It checks
// versions on update, understands the predicates the engine generates and
// records every call so tests can assert on the traffic.
package memstore

import (
	"net/url"
	"sync"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
)

// Store is an in-memory catalog store.
type Store struct {
	products         *Repo[catalog.Product]
	productTypes     *Repo[catalog.ProductType]
	categories       *Repo[catalog.Resource]
	taxCategories    *Repo[catalog.Resource]
	customerGroups   *Repo[catalog.Resource]
	channels         *Repo[catalog.Resource]
	types            *Repo[catalog.Resource]
	productDiscounts *Repo[catalog.ProductDiscount]

	callsMu sync.Mutex
	calls   []Call
}

var _ client.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.products = newRepo(client.ResourceProductProjections, "product", productAccessors(), MatchProduct, ApplyProduct, &s.calls, &s.callsMu)
	s.productTypes = newRepo(client.ResourceProductTypes, "product-type", productTypeAccessors(), MatchProductType, ApplyProductType, &s.calls, &s.callsMu)
	s.categories = newRepo(client.ResourceCategories, "category", resourceAccessors(), MatchResource, nil, &s.calls, &s.callsMu)
	s.taxCategories = newRepo(client.ResourceTaxCategories, "tax-category", resourceAccessors(), MatchResource, nil, &s.calls, &s.callsMu)
	s.customerGroups = newRepo(client.ResourceCustomerGroups, "customer-group", resourceAccessors(), MatchResource, nil, &s.calls, &s.callsMu)
	s.channels = newRepo(client.ResourceChannels, "channel", resourceAccessors(), MatchResource, nil, &s.calls, &s.callsMu)
	s.types = newRepo(client.ResourceTypes, "type", resourceAccessors(), MatchResource, nil, &s.calls, &s.callsMu)
	s.productDiscounts = newRepo(client.ResourceProductDiscounts, "product-discount", discountAccessors(), MatchDiscount, ApplyDiscount, &s.calls, &s.callsMu)
	return s
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

// QueryURL implements client.Store with a fixed fake host.
func (s *Store) QueryURL(resource string, q client.Query) string {
	v := url.Values{}
	if q.Staged {
		v.Set("staged", "true")
	}
	u := "https://memstore.local/test/" + resource
	if enc := v.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// Typed access for seeding and assertions.

func (s *Store) ProductRepo() *Repo[catalog.Product]                 { return s.products }
func (s *Store) ProductTypeRepo() *Repo[catalog.ProductType]         { return s.productTypes }
func (s *Store) CategoryRepo() *Repo[catalog.Resource]               { return s.categories }
func (s *Store) TaxCategoryRepo() *Repo[catalog.Resource]            { return s.taxCategories }
func (s *Store) CustomerGroupRepo() *Repo[catalog.Resource]          { return s.customerGroups }
func (s *Store) ChannelRepo() *Repo[catalog.Resource]                { return s.channels }
func (s *Store) TypeRepo() *Repo[catalog.Resource]                   { return s.types }
func (s *Store) ProductDiscountRepo() *Repo[catalog.ProductDiscount] { return s.productDiscounts }

// Calls returns every recorded call in order.
func (s *Store) Calls() []Call {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls against resource with method.
func (s *Store) CallsTo(resource, method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Resource == resource && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.calls = nil
}

func productAccessors() accessors[catalog.Product] {
	return accessors[catalog.Product]{
		id:         func(p catalog.Product) string { return p.ID },
		setID:      func(p *catalog.Product, id string) { p.ID = id },
		version:    func(p catalog.Product) int64 { return p.Version },
		setVersion: func(p *catalog.Product, v int64) { p.Version = v },
		clone:      func(p catalog.Product) catalog.Product { return p.Clone() },
		prepare:    assignVariantIDs,
	}
}

// assignVariantIDs numbers variants from 1 and gives prices an id, the way
// the store does for new products.
func assignVariantIDs(p *catalog.Product) {
	next := 1
	for _, v := range p.AllVariants() {
		if v.ID >= next {
			next = v.ID + 1
		}
	}
	for _, v := range p.AllVariants() {
		if v.ID == 0 {
			v.ID = next
			next++
		}
		for i := range v.Prices {
			if v.Prices[i].ID == "" {
				v.Prices[i].ID = "price-" + v.SKU + "-" + v.Prices[i].Identity()
			}
		}
	}
}

func productTypeAccessors() accessors[catalog.ProductType] {
	return accessors[catalog.ProductType]{
		id:         func(p catalog.ProductType) string { return p.ID },
		setID:      func(p *catalog.ProductType, id string) { p.ID = id },
		version:    func(p catalog.ProductType) int64 { return p.Version },
		setVersion: func(p *catalog.ProductType, v int64) { p.Version = v },
		clone:      cloneProductType,
	}
}

func resourceAccessors() accessors[catalog.Resource] {
	return accessors[catalog.Resource]{
		id:         func(r catalog.Resource) string { return r.ID },
		setID:      func(r *catalog.Resource, id string) { r.ID = id },
		version:    func(r catalog.Resource) int64 { return r.Version },
		setVersion: func(r *catalog.Resource, v int64) { r.Version = v },
		clone: func(r catalog.Resource) catalog.Resource {
			r.Name = catalog.CloneValue(r.Name)
			return r
		},
	}
}

func discountAccessors() accessors[catalog.ProductDiscount] {
	return accessors[catalog.ProductDiscount]{
		id:         func(d catalog.ProductDiscount) string { return d.ID },
		setID:      func(d *catalog.ProductDiscount, id string) { d.ID = id },
		version:    func(d catalog.ProductDiscount) int64 { return d.Version },
		setVersion: func(d *catalog.ProductDiscount, v int64) { d.Version = v },
		clone: func(d catalog.ProductDiscount) catalog.ProductDiscount {
			d.Name = d.Name.Clone()
			d.Description = d.Description.Clone()
			if d.Value != nil {
				d.Value = catalog.CloneValue(d.Value).(map[string]any)
			}
			return d
		},
	}
}

func cloneProductType(p catalog.ProductType) catalog.ProductType {
	if p.Attributes != nil {
		attrs := make([]catalog.AttributeDefinition, len(p.Attributes))
		for i, def := range p.Attributes {
			def.Type = def.Type.Clone()
			attrs[i] = def
		}
		p.Attributes = attrs
	}
	return p
}
