package differ

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// normalize reduces an attribute value to the form both feed records and
// fetched products share: enum objects become their key, references become
// their id and numbers become float64.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if key, ok := val["key"]; ok {
			if _, labelled := val["label"]; labelled {
				return normalize(key)
			}
		}
		if id, ok := val["id"]; ok {
			if _, typed := val["typeId"]; typed {
				return normalize(id)
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case catalog.LocalizedString:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	case map[string]string:
		return normalize(catalog.LocalizedString(val))
	case catalog.EnumValue:
		return val.Key
	case catalog.Reference:
		return val.ID
	case *catalog.Reference:
		if val == nil {
			return nil
		}
		return val.ID
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []catalog.Reference:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item.ID
		}
		return out
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	}
	return v
}

func sameValue(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b), cmpopts.EquateEmpty())
}

var priceComparer = []cmp.Option{
	cmpopts.IgnoreFields(catalog.Price{}, "ID"),
	cmpopts.IgnoreFields(catalog.Reference{}, "Key"),
	cmpopts.EquateEmpty(),
}

func samePrice(a, b catalog.Price) bool {
	return cmp.Equal(a, b, priceComparer...)
}

func sameRef(a, b *catalog.Reference) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	}
	return a.ID == b.ID
}
