package catalog

// Attribute type names used by the store.
const (
	TypeBoolean   = "boolean"
	TypeText      = "text"
	TypeLText     = "ltext"
	TypeNumber    = "number"
	TypeMoney     = "money"
	TypeDate      = "date"
	TypeTime      = "time"
	TypeDateTime  = "datetime"
	TypeNested    = "nested"
	TypeReference = "reference"
	TypeEnum      = "enum"
	TypeLEnum     = "lenum"
	TypeSet       = "set"
)

// ConstraintSameForAll marks attributes whose value must be identical in all variants.
const ConstraintSameForAll = "SameForAll"

// ProductType is the schema type that declares a product's attributes.
type ProductType struct {
	ID         string                `json:"id"`
	Key        string                `json:"key,omitempty"`
	Name       string                `json:"name"`
	Version    int64                 `json:"version"`
	Attributes []AttributeDefinition `json:"attributes,omitempty"`
}

// Attribute returns the definition named name.
func (p *ProductType) Attribute(name string) (*AttributeDefinition, bool) {
	for i := range p.Attributes {
		if p.Attributes[i].Name == name {
			return &p.Attributes[i], true
		}
	}
	return nil, false
}

// AttributeNames returns the declared attribute names as a set.
func (p *ProductType) AttributeNames() map[string]struct{} {
	names := make(map[string]struct{}, len(p.Attributes))
	for _, def := range p.Attributes {
		names[def.Name] = struct{}{}
	}
	return names
}

// SameForAllNames returns the names of attributes constrained to SameForAll.
func (p *ProductType) SameForAllNames() []string {
	var names []string
	for _, def := range p.Attributes {
		if def.AttributeConstraint == ConstraintSameForAll {
			names = append(names, def.Name)
		}
	}
	return names
}

// AttributeDefinition declares one attribute of a product type.
type AttributeDefinition struct {
	Name                string        `json:"name"`
	Type                AttributeType `json:"type"`
	AttributeConstraint string        `json:"attributeConstraint,omitempty"`
	IsRequired          bool          `json:"isRequired,omitempty"`
}

// AttributeType describes the value type of an attribute.
type AttributeType struct {
	Name            string         `json:"name"`
	ElementType     *AttributeType `json:"elementType,omitempty"`
	Values          []EnumValue    `json:"values,omitempty"`
	ReferenceTypeID string         `json:"referenceTypeId,omitempty"`
}

// EnumValue is one declared value of an enum or localized enum.
// Label is a string for plain enums and a LocalizedString for localized ones.
type EnumValue struct {
	Key   string `json:"key"`
	Label any    `json:"label,omitempty"`
}

// Clone returns a deep copy of the type.
func (t AttributeType) Clone() AttributeType {
	out := t
	if t.ElementType != nil {
		el := t.ElementType.Clone()
		out.ElementType = &el
	}
	if t.Values != nil {
		out.Values = make([]EnumValue, len(t.Values))
		for i, v := range t.Values {
			out.Values[i] = EnumValue{Key: v.Key, Label: CloneValue(v.Label)}
		}
	}
	return out
}

// ValueKind classifies an attribute type. It is a closed set: every type
// name the store can return maps to exactly one kind, and names the engine
// does not know map to KindInvalid.
type ValueKind int

const (
	// KindInvalid is an unrecognized type name.
	KindInvalid ValueKind = iota
	// KindScalar covers text, numbers, money, dates, booleans and nested types.
	KindScalar
	// KindReference points at another entity.
	KindReference
	// KindEnum is a plain enum.
	KindEnum
	// KindLocalizedEnum is a localized enum.
	KindLocalizedEnum
	// KindEnumSet is a set of plain enum values.
	KindEnumSet
	// KindLocalizedEnumSet is a set of localized enum values.
	KindLocalizedEnumSet
	// KindScalarSet is a set of non-enum values.
	KindScalarSet
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindEnum:
		return "enum"
	case KindLocalizedEnum:
		return "lenum"
	case KindEnumSet:
		return "set<enum>"
	case KindLocalizedEnumSet:
		return "set<lenum>"
	case KindScalarSet:
		return "set<scalar>"
	default:
		return "invalid"
	}
}

// IsEnumLike reports whether values of this kind must be declared in the schema.
func (k ValueKind) IsEnumLike() bool {
	switch k {
	case KindEnum, KindLocalizedEnum, KindEnumSet, KindLocalizedEnumSet:
		return true
	}
	return false
}

// IsSet reports whether the kind holds multiple values.
func (k ValueKind) IsSet() bool {
	return k == KindEnumSet || k == KindLocalizedEnumSet || k == KindScalarSet
}

// Localized reports whether new values of this kind need localized labels.
func (k ValueKind) Localized() bool {
	return k == KindLocalizedEnum || k == KindLocalizedEnumSet
}

// Kind classifies the type.
func (t AttributeType) Kind() ValueKind {
	switch t.Name {
	case TypeEnum:
		return KindEnum
	case TypeLEnum:
		return KindLocalizedEnum
	case TypeReference:
		return KindReference
	case TypeBoolean, TypeText, TypeLText, TypeNumber, TypeMoney,
		TypeDate, TypeTime, TypeDateTime, TypeNested:
		return KindScalar
	case TypeSet:
		if t.ElementType == nil {
			return KindInvalid
		}
		switch t.ElementType.Kind() {
		case KindEnum:
			return KindEnumSet
		case KindLocalizedEnum:
			return KindLocalizedEnumSet
		case KindInvalid:
			return KindInvalid
		default:
			return KindScalarSet
		}
	default:
		return KindInvalid
	}
}

// EnumValues returns the declared values of an enum type or of a set's element type.
func (t AttributeType) EnumValues() []EnumValue {
	if t.Name == TypeSet && t.ElementType != nil {
		return t.ElementType.Values
	}
	return t.Values
}

// HasEnumKey reports whether key is among the declared enum values.
func (t AttributeType) HasEnumKey(key string) bool {
	for _, v := range t.EnumValues() {
		if v.Key == key {
			return true
		}
	}
	return false
}
