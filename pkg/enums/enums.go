// Package enums extends product type schemas with the enum values that
// incoming records use but the schema does not declare yet.
package enums

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentstation/catalogsync/internal/slug"
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/resolver"
)

// SchemaUpdater sends update actions to a product type.
type SchemaUpdater interface {
	Update(ctx context.Context, id string, req catalog.UpdateRequest) (*catalog.ProductType, error)
}

// SchemaUpdate is the set of enum actions planned for one schema.
type SchemaUpdate struct {
	Schema       *catalog.ProductType
	Actions      []catalog.UpdateAction
	Fingerprints []string
}

// Plan holds the planned updates in the order their schemas were first seen.
type Plan []*SchemaUpdate

// Empty reports whether nothing needs to be sent.
func (p Plan) Empty() bool {
	for _, u := range p {
		if len(u.Actions) > 0 {
			return false
		}
	}
	return true
}

// Extender plans and applies enum schema extensions.
type Extender struct {
	resolver *resolver.Resolver
	locales  []string
}

// New creates an extender. Localized enum labels are copied into every
// supported locale.
func New(r *resolver.Resolver) *Extender {
	return &Extender{resolver: r, locales: constants.SupportedLocales}
}

// Fingerprint identifies an enum value across the run.
func Fingerprint(attribute, value string) string {
	return attribute + "-" + slug.Slugify(value)
}

// Plan inspects every variant attribute that its schema declares with an
// enum-like type and emits an action for each value whose key is neither
// declared in the schema nor already added this run.
//
// schemas maps the product type key carried on a record to its schema.
// Records without a schema are skipped.
func (e *Extender) Plan(products []catalog.Product, schemas map[string]*catalog.ProductType) (Plan, error) {
	var plan Plan
	bySchema := make(map[string]*SchemaUpdate)

	for i := range products {
		product := &products[i]
		schema, ok := schemas[product.ProductType.BusinessKey()]
		if !ok || schema == nil {
			continue
		}

		update, ok := bySchema[schema.ID]
		if !ok {
			update = &SchemaUpdate{Schema: schema}
			bySchema[schema.ID] = update
			plan = append(plan, update)
		}

		for _, variant := range product.AllVariants() {
			for _, attr := range variant.Attributes {
				def, declared := schema.Attribute(attr.Name)
				if !declared || attr.Value == nil {
					continue
				}
				if err := e.planAttribute(update, def, attr); err != nil {
					return nil, err
				}
			}
		}
	}
	return plan, nil
}

func (e *Extender) planAttribute(update *SchemaUpdate, def *catalog.AttributeDefinition, attr catalog.Attribute) error {
	kind := def.Type.Kind()
	if kind == catalog.KindInvalid {
		return errors.NewConfigError("enums",
			fmt.Sprintf("attribute %q of product type %q has unsupported type %q", def.Name, update.Schema.Name, typeName(def.Type)), nil)
	}
	if !kind.IsEnumLike() {
		return nil
	}

	values := []any{attr.Value}
	if kind.IsSet() {
		values = elements(attr.Value)
	}
	for _, v := range values {
		key, label, ok := enumKeyLabel(v)
		if !ok {
			continue
		}
		fingerprint := def.Name + "-" + key
		if e.resolver.Cache().HasEnum(fingerprint) || def.Type.HasEnumKey(key) {
			continue
		}

		var action catalog.UpdateAction
		if kind.Localized() {
			action = catalog.AddLocalizedEnumValue(def.Name, key, e.localize(label))
		} else {
			action = catalog.AddPlainEnumValue(def.Name, key, label)
		}
		if update.has(fingerprint) {
			continue
		}
		update.Actions = append(update.Actions, action)
		update.Fingerprints = append(update.Fingerprints, fingerprint)
	}
	return nil
}

// Apply sends one update per schema at the schema's cached version. The
// cached schema is replaced with the confirmed one and the planned
// fingerprints are marked as known. It returns how many schemas were updated.
func (e *Extender) Apply(ctx context.Context, updater SchemaUpdater, plan Plan) (int, error) {
	logger := logging.FromContext(ctx)
	updated := 0
	for _, u := range plan {
		if len(u.Actions) == 0 {
			continue
		}
		logger.Debug().
			Str("product_type", u.Schema.Name).
			Int("actions", len(u.Actions)).
			Msg("Updating product type enums")

		confirmed, err := updater.Update(ctx, u.Schema.ID, catalog.UpdateRequest{
			Version: u.Schema.Version,
			Actions: u.Actions,
		})
		if err != nil {
			return updated, errors.WrapResource("update", "product type", u.Schema.ID, err)
		}
		e.resolver.StoreProductType(*confirmed)
		for _, fp := range u.Fingerprints {
			e.resolver.Cache().MarkEnum(fp)
		}
		updated++
	}
	return updated, nil
}

func (e *Extender) localize(label string) catalog.LocalizedString {
	out := make(catalog.LocalizedString, len(e.locales))
	for _, locale := range e.locales {
		out[locale] = label
	}
	return out
}

// enumKeyLabel derives the key and label of a feed value. A plain string
// is the label and its slug the key; an object carries its own key.
func enumKeyLabel(v any) (key, label string, ok bool) {
	switch val := v.(type) {
	case string:
		key = slug.Slugify(val)
		return key, val, key != ""
	case map[string]any:
		key, _ = val["key"].(string)
		if key == "" {
			return "", "", false
		}
		label, _ = val["label"].(string)
		if label == "" {
			label = key
		}
		return key, label, true
	}
	return "", "", false
}

func elements(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// has reports whether fingerprint is already planned. The first label
// seen for a key wins.
func (u *SchemaUpdate) has(fingerprint string) bool {
	for _, fp := range u.Fingerprints {
		if fp == fingerprint {
			return true
		}
	}
	return false
}

func typeName(t catalog.AttributeType) string {
	name := t.Name
	depth := 0
	for el := t.ElementType; el != nil; el = el.ElementType {
		name += "<" + el.Name
		depth++
	}
	return name + strings.Repeat(">", depth)
}
