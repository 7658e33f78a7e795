// Package differ plans the update actions that turn an existing product
// into a desired one.
//
// Fields left unset on the desired record keep their remote value. A
// collection that is present (categories, attributes, images, prices) is
// authoritative: remote entries it does not list are removed.
package differ

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Planner builds changesets for product updates.
type Planner interface {
	// Plan returns the ordered actions that reconcile existing with desired.
	// Attributes named in sameForAll are set once for all variants.
	Plan(desired, existing *catalog.Product, sameForAll []string) *Changeset

	// CleanDuplicates drops repeated attribute names within each variant,
	// applying the configured duplicate policy.
	CleanDuplicates(ctx context.Context, product catalog.Product) (catalog.Product, error)

	// Publishing returns the configured publishing strategy.
	Publishing() PublishingStrategy
}

// planner is the default Planner implementation.
type planner struct {
	opts *options
}

// New creates a new Planner.
func New(opts ...Option) (Planner, error) {
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &planner{opts: o}, nil
}

// Plan implements Planner.
func (p *planner) Plan(desired, existing *catalog.Product, sameForAll []string) *Changeset {
	cs := &Changeset{ID: existing.ID, Version: existing.Version}

	pairs, added, removed := pairVariants(desired, existing)

	builders := map[catalog.ActionGroup]func() []catalog.UpdateAction{
		catalog.GroupBase:           func() []catalog.UpdateAction { return baseActions(desired, existing) },
		catalog.GroupReferences:     func() []catalog.UpdateAction { return referenceActions(desired, existing) },
		catalog.GroupMetaAttributes: func() []catalog.UpdateAction { return metaActions(desired, existing) },
		catalog.GroupVariants:       func() []catalog.UpdateAction { return variantActions(added, removed) },
		catalog.GroupAttributes:     func() []catalog.UpdateAction { return attributeActions(pairs, sameForAll) },
		catalog.GroupImages:         func() []catalog.UpdateAction { return imageActions(pairs) },
		catalog.GroupPrices:         func() []catalog.UpdateAction { return priceActions(pairs) },
	}

	for _, group := range catalog.ActionGroups {
		if !p.opts.allows(group) {
			continue
		}
		for _, action := range builders[group]() {
			if p.opts.filter == nil || p.opts.filter.Allow(action, existing, desired) {
				cs.Actions = append(cs.Actions, action)
			}
		}
	}

	if len(cs.Actions) > 0 && CanBePublished(existing, p.opts.publishing) {
		cs.Actions = append(cs.Actions, catalog.Publish())
	}
	return cs
}

// Publishing implements Planner.
func (p *planner) Publishing() PublishingStrategy {
	return p.opts.publishing
}

// CleanDuplicates implements Planner.
func (p *planner) CleanDuplicates(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	logger := logging.FromContext(ctx)
	out := product.Clone()

	for _, v := range out.AllVariants() {
		if v.Attributes == nil {
			continue
		}
		seen := make(map[string]struct{}, len(v.Attributes))
		kept := v.Attributes[:0]
		for _, attr := range v.Attributes {
			if _, dup := seen[attr.Name]; dup {
				if p.opts.failOnDuplicate {
					return catalog.Product{}, &errors.DuplicateAttributeError{SKU: v.SKU, Attribute: attr.Name}
				}
				if p.opts.logOnDuplicate {
					logger.Warn().
						Str("sku", v.SKU).
						Str("attribute", attr.Name).
						Msgf("Variant with SKU '%s' has duplicate attributes with name '%s'.", v.SKU, attr.Name)
				}
				continue
			}
			seen[attr.Name] = struct{}{}
			kept = append(kept, attr)
		}
		v.Attributes = kept
	}
	return out, nil
}

// variantPair is a desired variant and the remote variant it updates.
type variantPair struct {
	desired  *catalog.Variant
	existing *catalog.Variant
}

// pairVariants matches master to master and other variants by sku. It
// returns the matched pairs in desired order, the desired variants to add
// and the remote variants to remove.
func pairVariants(desired, existing *catalog.Product) ([]variantPair, []catalog.Variant, []catalog.Variant) {
	pairs := []variantPair{{desired: &desired.MasterVariant, existing: &existing.MasterVariant}}

	remote := make(map[string]*catalog.Variant, len(existing.Variants))
	for i := range existing.Variants {
		if sku := existing.Variants[i].SKU; sku != "" {
			remote[sku] = &existing.Variants[i]
		}
	}

	matched := make(map[*catalog.Variant]struct{}, len(existing.Variants))
	var added []catalog.Variant
	for i := range desired.Variants {
		d := &desired.Variants[i]
		if e, ok := remote[d.SKU]; ok && d.SKU != "" {
			if _, taken := matched[e]; !taken {
				matched[e] = struct{}{}
				pairs = append(pairs, variantPair{desired: d, existing: e})
				continue
			}
		}
		added = append(added, *d)
	}

	var removed []catalog.Variant
	for i := range existing.Variants {
		e := &existing.Variants[i]
		if _, ok := matched[e]; ok {
			continue
		}
		if e.SKU != "" && e.SKU == desired.MasterVariant.SKU {
			continue
		}
		removed = append(removed, *e)
	}
	return pairs, added, removed
}

func baseActions(desired, existing *catalog.Product) []catalog.UpdateAction {
	var actions []catalog.UpdateAction
	if desired.Name != nil && !desired.Name.Equal(existing.Name) {
		actions = append(actions, catalog.ChangeName(desired.Name))
	}
	if desired.Slug != nil && !desired.Slug.Equal(existing.Slug) {
		actions = append(actions, catalog.ChangeSlug(desired.Slug))
	}
	if desired.Description != nil && !desired.Description.Equal(existing.Description) {
		actions = append(actions, catalog.SetDescription(desired.Description))
	}
	if desired.Key != "" && desired.Key != existing.Key {
		actions = append(actions, catalog.SetKey(desired.Key))
	}
	return actions
}

func referenceActions(desired, existing *catalog.Product) []catalog.UpdateAction {
	var actions []catalog.UpdateAction
	if desired.TaxCategory != nil && !sameRef(desired.TaxCategory, existing.TaxCategory) {
		actions = append(actions, catalog.SetTaxCategory(desired.TaxCategory))
	}
	if desired.Categories == nil {
		return actions
	}

	want := make(map[string]struct{}, len(desired.Categories))
	for _, c := range desired.Categories {
		want[c.ID] = struct{}{}
	}
	have := make(map[string]struct{}, len(existing.Categories))
	for _, c := range existing.Categories {
		have[c.ID] = struct{}{}
		if _, ok := want[c.ID]; !ok {
			actions = append(actions, catalog.RemoveFromCategory(c))
		}
	}
	for _, c := range desired.Categories {
		if _, ok := have[c.ID]; !ok {
			actions = append(actions, catalog.AddToCategory(c))
			have[c.ID] = struct{}{}
		}
	}
	return actions
}

func metaActions(desired, existing *catalog.Product) []catalog.UpdateAction {
	var actions []catalog.UpdateAction
	if desired.MetaTitle != nil && !desired.MetaTitle.Equal(existing.MetaTitle) {
		actions = append(actions, catalog.SetMetaTitle(desired.MetaTitle))
	}
	if desired.MetaDescription != nil && !desired.MetaDescription.Equal(existing.MetaDescription) {
		actions = append(actions, catalog.SetMetaDescription(desired.MetaDescription))
	}
	if desired.MetaKeywords != nil && !desired.MetaKeywords.Equal(existing.MetaKeywords) {
		actions = append(actions, catalog.SetMetaKeywords(desired.MetaKeywords))
	}
	return actions
}

// variantActions removes before adding so a sku can move between variants.
func variantActions(added, removed []catalog.Variant) []catalog.UpdateAction {
	actions := make([]catalog.UpdateAction, 0, len(added)+len(removed))
	for _, v := range removed {
		actions = append(actions, catalog.RemoveVariant(v.ID))
	}
	for _, v := range added {
		actions = append(actions, catalog.AddVariant(v))
	}
	return actions
}

func attributeActions(pairs []variantPair, sameForAll []string) []catalog.UpdateAction {
	var actions []catalog.UpdateAction

	shared := make(map[string]struct{}, len(sameForAll))
	for _, name := range sameForAll {
		shared[name] = struct{}{}
	}

	// Shared attributes are compared on the master and set once.
	master := pairs[0]
	for _, name := range sameForAll {
		attr, ok := master.desired.Attribute(name)
		if !ok {
			continue
		}
		current, exists := master.existing.Attribute(name)
		if exists && sameValue(attr.Value, current.Value) {
			continue
		}
		actions = append(actions, catalog.SetAttributeInAllVariants(name, attr.Value))
	}

	for _, pair := range pairs {
		if pair.desired.Attributes == nil {
			continue
		}
		for _, attr := range pair.desired.Attributes {
			if _, ok := shared[attr.Name]; ok {
				continue
			}
			current, exists := pair.existing.Attribute(attr.Name)
			if exists && sameValue(attr.Value, current.Value) {
				continue
			}
			if !exists && attr.Value == nil {
				continue
			}
			actions = append(actions, catalog.SetAttribute(pair.existing.ID, attr.Name, attr.Value))
		}
		for _, current := range pair.existing.Attributes {
			if _, ok := shared[current.Name]; ok {
				continue
			}
			if _, wanted := pair.desired.Attribute(current.Name); !wanted {
				actions = append(actions, catalog.SetAttribute(pair.existing.ID, current.Name, nil))
			}
		}
	}
	return actions
}

func imageActions(pairs []variantPair) []catalog.UpdateAction {
	var actions []catalog.UpdateAction
	for _, pair := range pairs {
		if pair.desired.Images == nil {
			continue
		}
		want := make(map[string]struct{}, len(pair.desired.Images))
		for _, img := range pair.desired.Images {
			want[img.URL] = struct{}{}
		}
		have := make(map[string]struct{}, len(pair.existing.Images))
		for _, img := range pair.existing.Images {
			have[img.URL] = struct{}{}
			if _, ok := want[img.URL]; !ok {
				actions = append(actions, catalog.RemoveImage(pair.existing.ID, img.URL))
			}
		}
		for _, img := range pair.desired.Images {
			if _, ok := have[img.URL]; !ok {
				actions = append(actions, catalog.AddExternalImage(pair.existing.ID, img))
				have[img.URL] = struct{}{}
			}
		}
	}
	return actions
}

// priceActions matches prices by scope. Removals come first so an added
// price never collides with the scope of one being removed.
func priceActions(pairs []variantPair) []catalog.UpdateAction {
	var actions []catalog.UpdateAction
	for _, pair := range pairs {
		if pair.desired.Prices == nil {
			continue
		}
		want := make(map[string]catalog.Price, len(pair.desired.Prices))
		for _, price := range pair.desired.Prices {
			if _, dup := want[price.Identity()]; !dup {
				want[price.Identity()] = price
			}
		}
		have := make(map[string]catalog.Price, len(pair.existing.Prices))
		for _, price := range pair.existing.Prices {
			have[price.Identity()] = price
			if _, ok := want[price.Identity()]; !ok {
				actions = append(actions, catalog.RemovePrice(price.ID))
			}
		}

		var adds []catalog.UpdateAction
		for _, price := range pair.desired.Prices {
			id := price.Identity()
			if _, pending := want[id]; !pending {
				continue
			}
			delete(want, id)

			current, ok := have[id]
			switch {
			case !ok:
				adds = append(adds, catalog.AddPrice(pair.existing.ID, price))
			case !samePrice(price, current):
				actions = append(actions, catalog.ChangePrice(current.ID, price))
			}
		}
		actions = append(actions, adds...)
	}
	return actions
}
