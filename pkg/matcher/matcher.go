// Package matcher pairs incoming records with existing remote products by
// the skus of their variants.
//
// Existing products are expected to have disjoint sku sets; when a record's
// skus intersect more than one existing product, the first one in query
// order wins.
package matcher

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
)

// FindExisting returns the first existing product sharing at least one sku
// with desired.
func FindExisting(desired *catalog.Product, existing []catalog.Product) (*catalog.Product, bool) {
	skus := desired.SKUs()
	if len(skus) == 0 {
		return nil, false
	}
	wanted := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		wanted[sku] = struct{}{}
	}

	for i := range existing {
		for _, sku := range existing[i].SKUs() {
			if _, ok := wanted[sku]; ok {
				return &existing[i], true
			}
		}
	}
	return nil, false
}

// UniqueSKUs returns the skus of all products in first-seen order, without
// duplicates. Empty skus are skipped.
func UniqueSKUs(products ...catalog.Product) []string {
	seen := make(map[string]struct{})
	var skus []string
	for i := range products {
		for _, sku := range products[i].SKUs() {
			if _, dup := seen[sku]; dup {
				continue
			}
			seen[sku] = struct{}{}
			skus = append(skus, sku)
		}
	}
	return skus
}

// Index maps each sku to the product that carries it.
type Index struct {
	bySKU map[string]int
	items []catalog.Product
}

// NewIndex indexes products. When two products share a sku the first one wins.
func NewIndex(products []catalog.Product) *Index {
	idx := &Index{bySKU: make(map[string]int), items: products}
	for i := range products {
		for _, sku := range products[i].SKUs() {
			if _, dup := idx.bySKU[sku]; !dup {
				idx.bySKU[sku] = i
			}
		}
	}
	return idx
}

// Lookup returns the product carrying sku.
func (idx *Index) Lookup(sku string) (*catalog.Product, bool) {
	i, ok := idx.bySKU[sku]
	if !ok {
		return nil, false
	}
	return &idx.items[i], true
}

// Len returns the number of indexed skus.
func (idx *Index) Len() int {
	return len(idx.bySKU)
}
