package attributes

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
)

// Defaults appends configured default attributes to variants that lack them.
// When the matching remote variant already carries the attribute, its value
// wins over the configured one.
type Defaults struct {
	attributes []catalog.Attribute
}

var _ client.DefaultsProvider = (*Defaults)(nil)

// NewDefaults creates a defaults provider.
func NewDefaults(attrs []catalog.Attribute) *Defaults {
	out := make([]catalog.Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.Clone()
	}
	return &Defaults{attributes: out}
}

// Attributes returns the configured defaults.
func (d *Defaults) Attributes() []catalog.Attribute {
	return d.attributes
}

// EnsureDefaults implements client.DefaultsProvider. The master variant is
// paired with the remote master and other variants with the remote variant
// of the same sku. Variants without an attribute list are left as they are.
func (d *Defaults) EnsureDefaults(desired catalog.Product, existing *catalog.Product) catalog.Product {
	out := desired.Clone()

	var serverMaster *catalog.Variant
	if existing != nil {
		serverMaster = &existing.MasterVariant
	}
	out.MasterVariant = d.ensureInVariant(out.MasterVariant, serverMaster)

	for i := range out.Variants {
		var server *catalog.Variant
		if existing != nil {
			server = variantBySKU(existing.Variants, out.Variants[i].SKU)
		}
		out.Variants[i] = d.ensureInVariant(out.Variants[i], server)
	}
	return out
}

func (d *Defaults) ensureInVariant(v catalog.Variant, server *catalog.Variant) catalog.Variant {
	if v.Attributes == nil {
		return v
	}
	for _, def := range d.attributes {
		if _, ok := v.Attribute(def.Name); ok {
			continue
		}
		attr := def.Clone()
		if server != nil {
			if remote, ok := server.Attribute(def.Name); ok {
				attr.Value = catalog.CloneValue(remote.Value)
			}
		}
		v.Attributes = append(v.Attributes, attr)
	}
	return v
}

func variantBySKU(variants []catalog.Variant, sku string) *catalog.Variant {
	for i := range variants {
		if variants[i].SKU == sku {
			return &variants[i]
		}
	}
	return nil
}
