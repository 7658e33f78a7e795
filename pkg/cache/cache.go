// Package cache provides the run-scoped cache shared by the reconciliation
// components. Entries never expire: a cache lives exactly as long as one
// import run and is reset when the next run starts.
//
// It uses patrickmn/go-cache for storage, which makes it safe for the
// bounded worker pools that resolve references inside a batch.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Category namespaces cache keys.
type Category string

// Categories used by the engine.
const (
	ProductType   Category = "productType"
	SameForAll    Category = "productTypeSameForAll"
	Categories    Category = "categories"
	TaxCategory   Category = "taxCategory"
	CustomerGroup Category = "customerGroup"
	Channel       Category = "channel"
	Types         Category = "types"
	Product       Category = "product"
	EnumValue     Category = "enumValue"
)

// Key is a structured (category, key) pair.
type Key struct {
	Category Category
	Key      string
}

// String renders the key for the underlying store. The NUL separator
// cannot occur in category names, so distinct keys never collide.
func (k Key) String() string {
	return string(k.Category) + "\x00" + k.Key
}

// Cache is the run cache. The zero value is not usable; call New.
type Cache struct {
	store *gocache.Cache
}

// New creates an empty run cache.
func New() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get retrieves a value.
func (c *Cache) Get(category Category, key string) (any, bool) {
	return c.store.Get(Key{category, key}.String())
}

// Set stores a value.
func (c *Cache) Set(category Category, key string, value any) {
	c.store.Set(Key{category, key}.String(), value, gocache.NoExpiration)
}

// Delete removes a value.
func (c *Cache) Delete(category Category, key string) {
	c.store.Delete(Key{category, key}.String())
}

// Lookup retrieves a typed value. It reports false when the key is absent
// or holds a value of another type.
func Lookup[T any](c *Cache, category Category, key string) (T, bool) {
	var zero T
	v, ok := c.Get(category, key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// MarkEnum records that an enum fingerprint now exists in its schema.
func (c *Cache) MarkEnum(fingerprint string) {
	c.Set(EnumValue, fingerprint, struct{}{})
}

// HasEnum reports whether an enum fingerprint is already known this run.
func (c *Cache) HasEnum(fingerprint string) bool {
	_, ok := c.Get(EnumValue, fingerprint)
	return ok
}

// Reset removes all entries.
func (c *Cache) Reset() {
	c.store.Flush()
}

// ItemCount returns the number of entries.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
