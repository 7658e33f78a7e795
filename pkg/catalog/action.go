package catalog

import (
	json "github.com/goccy/go-json"
)

// ActionGroup is a category of update actions that can be allowed or denied as a whole.
type ActionGroup string

// Action groups, in the order the planner emits them.
const (
	GroupBase           ActionGroup = "base"
	GroupReferences     ActionGroup = "references"
	GroupMetaAttributes ActionGroup = "metaAttributes"
	GroupVariants       ActionGroup = "variants"
	GroupAttributes     ActionGroup = "attributes"
	GroupImages         ActionGroup = "images"
	GroupPrices         ActionGroup = "prices"
)

// ActionGroups lists every action group in emit order.
var ActionGroups = []ActionGroup{
	GroupBase,
	GroupReferences,
	GroupMetaAttributes,
	GroupVariants,
	GroupAttributes,
	GroupImages,
	GroupPrices,
}

// ParseActionGroup validates a group name.
func ParseActionGroup(name string) (ActionGroup, bool) {
	for _, g := range ActionGroups {
		if string(g) == name {
			return g, true
		}
	}
	return "", false
}

// Update action names.
const (
	ActionChangeName                = "changeName"
	ActionChangeSlug                = "changeSlug"
	ActionSetDescription            = "setDescription"
	ActionSetKey                    = "setKey"
	ActionSetTaxCategory            = "setTaxCategory"
	ActionAddToCategory             = "addToCategory"
	ActionRemoveFromCategory        = "removeFromCategory"
	ActionSetMetaTitle              = "setMetaTitle"
	ActionSetMetaDescription        = "setMetaDescription"
	ActionSetMetaKeywords           = "setMetaKeywords"
	ActionAddVariant                = "addVariant"
	ActionRemoveVariant             = "removeVariant"
	ActionSetAttribute              = "setAttribute"
	ActionSetAttributeInAllVariants = "setAttributeInAllVariants"
	ActionAddExternalImage          = "addExternalImage"
	ActionRemoveImage               = "removeImage"
	ActionAddPrice                  = "addPrice"
	ActionChangePrice               = "changePrice"
	ActionRemovePrice               = "removePrice"
	ActionPublish                   = "publish"
	ActionAddPlainEnumValue         = "addPlainEnumValue"
	ActionAddLocalizedEnumValue     = "addLocalizedEnumValue"
	ActionChangePredicate           = "changePredicate"
)

var actionGroups = map[string]ActionGroup{
	ActionChangeName:                GroupBase,
	ActionChangeSlug:                GroupBase,
	ActionSetDescription:            GroupBase,
	ActionSetKey:                    GroupBase,
	ActionSetTaxCategory:            GroupReferences,
	ActionAddToCategory:             GroupReferences,
	ActionRemoveFromCategory:        GroupReferences,
	ActionSetMetaTitle:              GroupMetaAttributes,
	ActionSetMetaDescription:        GroupMetaAttributes,
	ActionSetMetaKeywords:           GroupMetaAttributes,
	ActionAddVariant:                GroupVariants,
	ActionRemoveVariant:             GroupVariants,
	ActionSetAttribute:              GroupAttributes,
	ActionSetAttributeInAllVariants: GroupAttributes,
	ActionAddExternalImage:          GroupImages,
	ActionRemoveImage:               GroupImages,
	ActionAddPrice:                  GroupPrices,
	ActionChangePrice:               GroupPrices,
	ActionRemovePrice:               GroupPrices,
}

// UpdateAction is a single tagged mutation. Params holds the action
// specific payload; on the wire the action name and params are flattened
// into one object.
type UpdateAction struct {
	Action string
	Params map[string]any
}

// NewAction builds an action from alternating key/value pairs. Pairs with a
// nil value are dropped so that "unset" actions omit the field.
func NewAction(name string, kv ...any) UpdateAction {
	a := UpdateAction{Action: name, Params: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || isNil(kv[i+1]) {
			continue
		}
		a.Params[key] = kv[i+1]
	}
	return a
}

// Group returns the action group, or "" for actions outside the planner's groups.
func (a UpdateAction) Group() ActionGroup {
	return actionGroups[a.Action]
}

// Param returns one payload field.
func (a UpdateAction) Param(key string) any {
	return a.Params[key]
}

// MarshalJSON flattens the action name into the payload.
func (a UpdateAction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		out[k] = v
	}
	out["action"] = a.Action
	return json.Marshal(out)
}

// UnmarshalJSON splits the action name from the payload.
func (a *UpdateAction) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name, _ := raw["action"].(string)
	delete(raw, "action")
	a.Action = name
	a.Params = raw
	return nil
}

// UpdateRequest is the payload of one update call.
type UpdateRequest struct {
	Version int64          `json:"version"`
	Actions []UpdateAction `json:"actions"`
}

func isNil(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case *Reference:
		return val == nil
	case LocalizedString:
		return val == nil
	}
	return false
}

// Action constructors.

func ChangeName(name LocalizedString) UpdateAction {
	return NewAction(ActionChangeName, "name", name)
}

func ChangeSlug(slug LocalizedString) UpdateAction {
	return NewAction(ActionChangeSlug, "slug", slug)
}

func SetDescription(description LocalizedString) UpdateAction {
	return NewAction(ActionSetDescription, "description", description)
}

func SetKey(key string) UpdateAction {
	if key == "" {
		return NewAction(ActionSetKey)
	}
	return NewAction(ActionSetKey, "key", key)
}

func SetTaxCategory(ref *Reference) UpdateAction {
	return NewAction(ActionSetTaxCategory, "taxCategory", ref)
}

func AddToCategory(ref Reference) UpdateAction {
	return NewAction(ActionAddToCategory, "category", ref)
}

func RemoveFromCategory(ref Reference) UpdateAction {
	return NewAction(ActionRemoveFromCategory, "category", ref)
}

func SetMetaTitle(v LocalizedString) UpdateAction {
	return NewAction(ActionSetMetaTitle, "metaTitle", v)
}

func SetMetaDescription(v LocalizedString) UpdateAction {
	return NewAction(ActionSetMetaDescription, "metaDescription", v)
}

func SetMetaKeywords(v LocalizedString) UpdateAction {
	return NewAction(ActionSetMetaKeywords, "metaKeywords", v)
}

// AddVariant carries the full variant payload.
func AddVariant(v Variant) UpdateAction {
	a := NewAction(ActionAddVariant, "sku", v.SKU)
	if v.Key != "" {
		a.Params["key"] = v.Key
	}
	if len(v.Attributes) > 0 {
		a.Params["attributes"] = v.Attributes
	}
	if len(v.Prices) > 0 {
		a.Params["prices"] = v.Prices
	}
	if len(v.Images) > 0 {
		a.Params["images"] = v.Images
	}
	return a
}

func RemoveVariant(variantID int) UpdateAction {
	return NewAction(ActionRemoveVariant, "id", variantID)
}

// SetAttribute sets or, with a nil value, unsets an attribute on one variant.
func SetAttribute(variantID int, name string, value any) UpdateAction {
	return NewAction(ActionSetAttribute, "variantId", variantID, "name", name, "value", value)
}

func SetAttributeInAllVariants(name string, value any) UpdateAction {
	return NewAction(ActionSetAttributeInAllVariants, "name", name, "value", value)
}

func AddExternalImage(variantID int, image Image) UpdateAction {
	return NewAction(ActionAddExternalImage, "variantId", variantID, "image", image)
}

func RemoveImage(variantID int, imageURL string) UpdateAction {
	return NewAction(ActionRemoveImage, "variantId", variantID, "imageUrl", imageURL)
}

func AddPrice(variantID int, price Price) UpdateAction {
	return NewAction(ActionAddPrice, "variantId", variantID, "price", price)
}

func ChangePrice(priceID string, price Price) UpdateAction {
	return NewAction(ActionChangePrice, "priceId", priceID, "price", price)
}

func RemovePrice(priceID string) UpdateAction {
	return NewAction(ActionRemovePrice, "priceId", priceID)
}

func Publish() UpdateAction {
	return NewAction(ActionPublish)
}

// EnumValueDraft is the value payload of an enum schema action.
type EnumValueDraft struct {
	Key   string `json:"key"`
	Label any    `json:"label"`
}

func AddPlainEnumValue(attributeName, key, label string) UpdateAction {
	return NewAction(ActionAddPlainEnumValue,
		"attributeName", attributeName,
		"value", EnumValueDraft{Key: key, Label: label})
}

func AddLocalizedEnumValue(attributeName, key string, label LocalizedString) UpdateAction {
	return NewAction(ActionAddLocalizedEnumValue,
		"attributeName", attributeName,
		"value", EnumValueDraft{Key: key, Label: label})
}

func ChangePredicate(predicate string) UpdateAction {
	return NewAction(ActionChangePredicate, "predicate", predicate)
}
