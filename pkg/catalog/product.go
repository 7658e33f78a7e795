// Package catalog defines the records the engine reconciles: products and
// their variants, schema types, prices, references, discounts and the update
// actions sent to the store.
//
// Records decoded from a feed use the same types as records fetched from the
// store. Feed records carry business keys in reference ids (a category
// externalId, a tax category name, a product type name) until the resolver
// replaces them with remote ids.
package catalog

// LocalizedString maps a locale to a value.
type LocalizedString map[string]string

// Clone returns a copy of the localized string.
func (l LocalizedString) Clone() LocalizedString {
	if l == nil {
		return nil
	}
	out := make(LocalizedString, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Equal reports whether both localized strings hold the same entries.
func (l LocalizedString) Equal(other LocalizedString) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Product is a catalog entity with a master variant and ordered variants.
type Product struct {
	ID               string          `json:"id,omitempty"`
	Key              string          `json:"key,omitempty"`
	Version          int64           `json:"version,omitempty"`
	ProductType      Reference       `json:"productType"`
	Name             LocalizedString `json:"name,omitempty"`
	Slug             LocalizedString `json:"slug,omitempty"`
	Description      LocalizedString `json:"description,omitempty"`
	Categories       []Reference     `json:"categories,omitempty"`
	TaxCategory      *Reference      `json:"taxCategory,omitempty"`
	MetaTitle        LocalizedString `json:"metaTitle,omitempty"`
	MetaDescription  LocalizedString `json:"metaDescription,omitempty"`
	MetaKeywords     LocalizedString `json:"metaKeywords,omitempty"`
	MasterVariant    Variant         `json:"masterVariant"`
	Variants         []Variant       `json:"variants,omitempty"`
	Published        bool            `json:"published,omitempty"`
	HasStagedChanges bool            `json:"hasStagedChanges,omitempty"`
}

// AllVariants returns the master variant followed by the other variants.
// The returned pointers alias the product.
func (p *Product) AllVariants() []*Variant {
	out := make([]*Variant, 0, len(p.Variants)+1)
	out = append(out, &p.MasterVariant)
	for i := range p.Variants {
		out = append(out, &p.Variants[i])
	}
	return out
}

// SKUs returns the non-empty skus of all variants, without duplicates, in variant order.
func (p *Product) SKUs() []string {
	seen := make(map[string]struct{}, len(p.Variants)+1)
	skus := make([]string, 0, len(p.Variants)+1)
	for _, v := range p.AllVariants() {
		if v.SKU == "" {
			continue
		}
		if _, dup := seen[v.SKU]; dup {
			continue
		}
		seen[v.SKU] = struct{}{}
		skus = append(skus, v.SKU)
	}
	return skus
}

// HasSKUs reports whether every variant carries a sku.
func (p *Product) HasSKUs() bool {
	for _, v := range p.AllVariants() {
		if v.SKU == "" {
			return false
		}
	}
	return true
}

// VariantBySKU returns the variant carrying sku.
func (p *Product) VariantBySKU(sku string) (*Variant, bool) {
	for _, v := range p.AllVariants() {
		if v.SKU == sku {
			return v, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the product. Mutating the copy never
// affects the original.
func (p Product) Clone() Product {
	out := p
	out.ProductType = p.ProductType
	out.Name = p.Name.Clone()
	out.Slug = p.Slug.Clone()
	out.Description = p.Description.Clone()
	out.MetaTitle = p.MetaTitle.Clone()
	out.MetaDescription = p.MetaDescription.Clone()
	out.MetaKeywords = p.MetaKeywords.Clone()
	if p.Categories != nil {
		out.Categories = append([]Reference(nil), p.Categories...)
	}
	if p.TaxCategory != nil {
		ref := *p.TaxCategory
		out.TaxCategory = &ref
	}
	out.MasterVariant = p.MasterVariant.Clone()
	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			out.Variants[i] = v.Clone()
		}
	}
	return out
}

// Variant is one sellable configuration of a product.
type Variant struct {
	ID         int         `json:"id,omitempty"`
	SKU        string      `json:"sku,omitempty"`
	Key        string      `json:"key,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Prices     []Price     `json:"prices,omitempty"`
	Images     []Image     `json:"images,omitempty"`
}

// Attribute returns the first attribute named name.
func (v *Variant) Attribute(name string) (*Attribute, bool) {
	for i := range v.Attributes {
		if v.Attributes[i].Name == name {
			return &v.Attributes[i], true
		}
	}
	return nil, false
}

// EnsureDefaults replaces nil attribute, price and image slices with empty ones.
func (v *Variant) EnsureDefaults() {
	if v.Attributes == nil {
		v.Attributes = []Attribute{}
	}
	if v.Prices == nil {
		v.Prices = []Price{}
	}
	if v.Images == nil {
		v.Images = []Image{}
	}
}

// Clone returns a deep copy of the variant.
func (v Variant) Clone() Variant {
	out := v
	if v.Attributes != nil {
		out.Attributes = make([]Attribute, len(v.Attributes))
		for i, a := range v.Attributes {
			out.Attributes[i] = a.Clone()
		}
	}
	if v.Prices != nil {
		out.Prices = make([]Price, len(v.Prices))
		for i, p := range v.Prices {
			out.Prices[i] = p.Clone()
		}
	}
	if v.Images != nil {
		out.Images = make([]Image, len(v.Images))
		for i, img := range v.Images {
			out.Images[i] = img.Clone()
		}
	}
	return out
}

// Attribute is a named, typed value on a variant.
//
// Type and Custom are only set on feed records that carry a custom
// reference to resolve; they are never sent to the store.
type Attribute struct {
	Name   string          `json:"name"`
	Value  any             `json:"value,omitempty"`
	Type   *AttributeType  `json:"type,omitempty"`
	Custom *AttributeQuery `json:"_custom,omitempty"`
}

// AttributeQuery carries the predicate used to resolve a custom reference attribute.
type AttributeQuery struct {
	Predicate string `json:"predicate"`
}

// IsReference reports whether the attribute is a custom reference to resolve.
func (a Attribute) IsReference() bool {
	return a.Type != nil && a.Type.Name == TypeReference
}

// Clone returns a deep copy of the attribute.
func (a Attribute) Clone() Attribute {
	out := a
	out.Value = CloneValue(a.Value)
	if a.Type != nil {
		t := a.Type.Clone()
		out.Type = &t
	}
	if a.Custom != nil {
		c := *a.Custom
		out.Custom = &c
	}
	return out
}

// Image is an external image attached to a variant.
type Image struct {
	URL        string           `json:"url"`
	Label      string           `json:"label,omitempty"`
	Dimensions *ImageDimensions `json:"dimensions,omitempty"`
}

// ImageDimensions are the pixel dimensions of an image.
type ImageDimensions struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Clone returns a copy of the image.
func (i Image) Clone() Image {
	out := i
	if i.Dimensions != nil {
		d := *i.Dimensions
		out.Dimensions = &d
	}
	return out
}

// CloneValue deep-copies a decoded JSON value (maps, slices and scalars).
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case LocalizedString:
		return val.Clone()
	case map[string]string:
		return LocalizedString(val).Clone()
	case Reference:
		return val
	case []Reference:
		return append([]Reference(nil), val...)
	default:
		return val
	}
}
