package importer

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/agentstation/catalogsync/internal/slug"
	"github.com/agentstation/catalogsync/internal/workpool"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// prepareUpdate turns a feed record into the desired state of an existing
// product. Each variant's attributes, prices and images become
// authoritative, references are replaced by remote ids and the slug is kept
// when updates to it are ignored or the record carries none.
func (imp *Importer) prepareUpdate(ctx context.Context, product catalog.Product, existing *catalog.Product) (catalog.Product, error) {
	out := product.Clone()
	for _, v := range out.AllVariants() {
		v.EnsureDefaults()
	}

	if err := imp.resolveReferences(ctx, &out); err != nil {
		return catalog.Product{}, err
	}

	if imp.opts.ignoreSlugUpdates || out.Slug == nil {
		out.Slug = existing.Slug.Clone()
	}
	return out, nil
}

// prepareNew turns a feed record into a product draft.
func (imp *Importer) prepareNew(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	out := product.Clone()
	for _, v := range out.AllVariants() {
		v.EnsureDefaults()
	}

	pt, err := imp.resolver.ResolveProductType(ctx, out.ProductType)
	if err != nil {
		return catalog.Product{}, err
	}
	out.ProductType = catalog.Resolved(catalog.TypeIDProductType, pt.ID)

	if err := imp.resolveReferences(ctx, &out); err != nil {
		return catalog.Product{}, err
	}

	if out.Slug == nil && out.Name != nil {
		out.Slug = imp.generateSlug(out.Name)
	}
	return out, nil
}

// generateSlug derives a slug per locale of name. The random suffix keeps
// slugs unique across products sharing a name.
func (imp *Importer) generateSlug(name catalog.LocalizedString) catalog.LocalizedString {
	token := imp.opts.token()
	out := make(catalog.LocalizedString, len(name))
	for locale, v := range name {
		out[locale] = slug.Truncate(slug.Slugify(v)+"-"+token, constants.MaxSlugLength)
	}
	return out
}

func (imp *Importer) resolveReferences(ctx context.Context, product *catalog.Product) error {
	if product.Categories != nil {
		categories, err := imp.resolver.ResolveCategories(ctx, product.Categories)
		if err != nil {
			return err
		}
		product.Categories = categories
	}

	if product.TaxCategory != nil {
		tax, err := imp.resolver.ResolveTaxCategory(ctx, product.TaxCategory)
		if err != nil {
			return err
		}
		product.TaxCategory = tax
	}

	// Variants are rewritten in place; each worker owns one variant.
	return workpool.Each(ctx, constants.DefaultAttributeFanOut, product.AllVariants(), imp.resolveVariant)
}

func (imp *Importer) resolveVariant(ctx context.Context, v *catalog.Variant) error {
	for i := range v.Attributes {
		if err := imp.resolveAttribute(ctx, &v.Attributes[i]); err != nil {
			return err
		}
	}

	for i := range v.Prices {
		if err := imp.resolvePrice(ctx, &v.Prices[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolvePrice replaces the customer group, channel and custom type keys
// of a price by remote ids.
func (imp *Importer) resolvePrice(ctx context.Context, price *catalog.Price) error {
	if price.CustomerGroup != nil {
		ref, err := imp.resolver.ResolveCustomerGroup(ctx, price.CustomerGroup)
		if err != nil {
			return errors.WrapResource("resolve", client.ResourceCustomerGroups, price.CustomerGroup.BusinessKey(), err)
		}
		price.CustomerGroup = ref
	}
	if price.Channel != nil {
		ref, err := imp.resolver.ResolveChannel(ctx, price.Channel)
		if err != nil {
			return errors.WrapResource("resolve", client.ResourceChannels, price.Channel.BusinessKey(), err)
		}
		price.Channel = ref
	}
	if custom := price.Custom; custom != nil && custom.Type != nil {
		ref, err := imp.resolver.ResolveCustomType(ctx, custom.Type)
		if err != nil {
			return errors.WrapResource("resolve", client.ResourceTypes, custom.Type.BusinessKey(), err)
		}
		custom.Type = ref
	}
	return nil
}

// resolveAttribute replaces a custom reference, or a set made only of
// custom references, by resolved references.
func (imp *Importer) resolveAttribute(ctx context.Context, attr *catalog.Attribute) error {
	if attr.IsReference() {
		ref, err := imp.resolveCustomReference(ctx, *attr)
		if err != nil {
			return err
		}
		attr.Value = ref
		attr.Type = nil
		attr.Custom = nil
		return nil
	}

	elements, ok := referenceSet(attr.Value)
	if !ok {
		return nil
	}
	refs := make([]catalog.Reference, 0, len(elements))
	for _, el := range elements {
		ref, err := imp.resolveCustomReference(ctx, el)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	attr.Value = refs
	return nil
}

func (imp *Importer) resolveCustomReference(ctx context.Context, attr catalog.Attribute) (catalog.Reference, error) {
	id, err := imp.resolver.ResolveProduct(ctx, attr)
	if err != nil {
		return catalog.Reference{}, err
	}
	return catalog.Reference{TypeID: attr.Type.ReferenceTypeID, ID: id}, nil
}

// referenceSet decodes a set value whose elements are all custom
// reference attributes.
func referenceSet(value any) ([]catalog.Attribute, bool) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		t, ok := m["type"].(map[string]any)
		if !ok || t["name"] != catalog.TypeReference {
			return nil, false
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return nil, false
	}
	var attrs []catalog.Attribute
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, false
	}
	return attrs, true
}
