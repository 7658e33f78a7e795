package memstore

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
)

// ApplyProductType adds enum values to attribute definitions.
func ApplyProductType(pt catalog.ProductType, actions []catalog.UpdateAction) catalog.ProductType {
	for _, a := range actions {
		if a.Action != catalog.ActionAddPlainEnumValue && a.Action != catalog.ActionAddLocalizedEnumValue {
			continue
		}
		name, _ := a.Param("attributeName").(string)
		def, ok := pt.Attribute(name)
		if !ok {
			continue
		}
		value, ok := enumValue(a.Param("value"))
		if !ok {
			continue
		}
		if def.Type.Name == catalog.TypeSet && def.Type.ElementType != nil {
			def.Type.ElementType.Values = append(def.Type.ElementType.Values, value)
		} else {
			def.Type.Values = append(def.Type.Values, value)
		}
	}
	return pt
}

func enumValue(v any) (catalog.EnumValue, bool) {
	switch val := v.(type) {
	case catalog.EnumValueDraft:
		return catalog.EnumValue{Key: val.Key, Label: val.Label}, true
	case map[string]any:
		key, _ := val["key"].(string)
		return catalog.EnumValue{Key: key, Label: val["label"]}, key != ""
	}
	return catalog.EnumValue{}, false
}

// ApplyProduct applies the product actions the planner emits to the
// staged state. Publishing clears HasStagedChanges; anything else sets it.
func ApplyProduct(p catalog.Product, actions []catalog.UpdateAction) catalog.Product {
	staged := false
	for _, a := range actions {
		switch a.Action {
		case catalog.ActionPublish:
			p.Published = true
			p.HasStagedChanges = false
			staged = false
			continue
		case catalog.ActionChangeName:
			p.Name = localized(a.Param("name"))
		case catalog.ActionChangeSlug:
			p.Slug = localized(a.Param("slug"))
		case catalog.ActionSetDescription:
			p.Description = localized(a.Param("description"))
		case catalog.ActionSetKey:
			p.Key, _ = a.Param("key").(string)
		case catalog.ActionSetMetaTitle:
			p.MetaTitle = localized(a.Param("metaTitle"))
		case catalog.ActionSetMetaDescription:
			p.MetaDescription = localized(a.Param("metaDescription"))
		case catalog.ActionSetMetaKeywords:
			p.MetaKeywords = localized(a.Param("metaKeywords"))
		case catalog.ActionSetTaxCategory:
			p.TaxCategory = refPtr(a.Param("taxCategory"))
		case catalog.ActionAddToCategory:
			if ref := refPtr(a.Param("category")); ref != nil {
				p.Categories = append(p.Categories, *ref)
			}
		case catalog.ActionRemoveFromCategory:
			if ref := refPtr(a.Param("category")); ref != nil {
				p.Categories = removeRef(p.Categories, ref.ID)
			}
		case catalog.ActionAddVariant:
			p.Variants = append(p.Variants, newVariant(p, a))
		case catalog.ActionRemoveVariant:
			id, _ := a.Param("id").(int)
			p.Variants = removeVariant(p.Variants, id)
		case catalog.ActionSetAttribute:
			id, _ := a.Param("variantId").(int)
			if v := variantByID(&p, id); v != nil {
				setAttribute(v, a)
			}
		case catalog.ActionSetAttributeInAllVariants:
			for _, v := range p.AllVariants() {
				setAttribute(v, a)
			}
		case catalog.ActionAddExternalImage:
			id, _ := a.Param("variantId").(int)
			img, _ := a.Param("image").(catalog.Image)
			if v := variantByID(&p, id); v != nil {
				v.Images = append(v.Images, img)
			}
		case catalog.ActionRemoveImage:
			id, _ := a.Param("variantId").(int)
			u, _ := a.Param("imageUrl").(string)
			if v := variantByID(&p, id); v != nil {
				v.Images = removeImage(v.Images, u)
			}
		case catalog.ActionAddPrice:
			id, _ := a.Param("variantId").(int)
			price, _ := a.Param("price").(catalog.Price)
			if v := variantByID(&p, id); v != nil {
				price.ID = "price-" + v.SKU + "-" + price.Identity()
				v.Prices = append(v.Prices, price)
			}
		case catalog.ActionChangePrice:
			priceID, _ := a.Param("priceId").(string)
			price, _ := a.Param("price").(catalog.Price)
			changePrice(&p, priceID, price)
		case catalog.ActionRemovePrice:
			priceID, _ := a.Param("priceId").(string)
			removePrice(&p, priceID)
		}
		staged = true
	}
	if staged {
		p.HasStagedChanges = true
	}
	return p
}

// ApplyDiscount applies changePredicate.
func ApplyDiscount(d catalog.ProductDiscount, actions []catalog.UpdateAction) catalog.ProductDiscount {
	for _, a := range actions {
		if a.Action == catalog.ActionChangePredicate {
			d.Predicate, _ = a.Param("predicate").(string)
		}
	}
	return d
}

func localized(v any) catalog.LocalizedString {
	switch val := v.(type) {
	case catalog.LocalizedString:
		return val.Clone()
	case map[string]string:
		return catalog.LocalizedString(val).Clone()
	}
	return nil
}

func refPtr(v any) *catalog.Reference {
	switch val := v.(type) {
	case *catalog.Reference:
		if val == nil {
			return nil
		}
		ref := *val
		return &ref
	case catalog.Reference:
		return &val
	}
	return nil
}

func removeRef(refs []catalog.Reference, id string) []catalog.Reference {
	out := refs[:0:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func newVariant(p catalog.Product, a catalog.UpdateAction) catalog.Variant {
	maxID := p.MasterVariant.ID
	for _, v := range p.Variants {
		if v.ID > maxID {
			maxID = v.ID
		}
	}
	v := catalog.Variant{ID: maxID + 1}
	v.SKU, _ = a.Param("sku").(string)
	v.Key, _ = a.Param("key").(string)
	v.Attributes, _ = a.Param("attributes").([]catalog.Attribute)
	v.Prices, _ = a.Param("prices").([]catalog.Price)
	v.Images, _ = a.Param("images").([]catalog.Image)
	return v.Clone()
}

func removeVariant(variants []catalog.Variant, id int) []catalog.Variant {
	out := variants[:0:0]
	for _, v := range variants {
		if v.ID != id {
			out = append(out, v)
		}
	}
	return out
}

func variantByID(p *catalog.Product, id int) *catalog.Variant {
	for _, v := range p.AllVariants() {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func setAttribute(v *catalog.Variant, a catalog.UpdateAction) {
	name, _ := a.Param("name").(string)
	value, hasValue := a.Params["value"]
	for i := range v.Attributes {
		if v.Attributes[i].Name != name {
			continue
		}
		if !hasValue {
			v.Attributes = append(v.Attributes[:i], v.Attributes[i+1:]...)
			return
		}
		v.Attributes[i].Value = catalog.CloneValue(value)
		return
	}
	if hasValue {
		v.Attributes = append(v.Attributes, catalog.Attribute{Name: name, Value: catalog.CloneValue(value)})
	}
}

func removeImage(images []catalog.Image, u string) []catalog.Image {
	out := images[:0:0]
	for _, img := range images {
		if img.URL != u {
			out = append(out, img)
		}
	}
	return out
}

func changePrice(p *catalog.Product, priceID string, price catalog.Price) {
	for _, v := range p.AllVariants() {
		for i := range v.Prices {
			if v.Prices[i].ID == priceID {
				price.ID = priceID
				v.Prices[i] = price
				return
			}
		}
	}
}

func removePrice(p *catalog.Product, priceID string) {
	for _, v := range p.AllVariants() {
		out := v.Prices[:0:0]
		for _, pr := range v.Prices {
			if pr.ID != priceID {
				out = append(out, pr)
			}
		}
		v.Prices = out
	}
}
