package memstore

import (
	"regexp"
	"strconv"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

var (
	eqPredicate      = regexp.MustCompile(`^\s*(\w+)\s*=\s*("(?:[^"\\]|\\.)*")\s*$`)
	variantSKUEq     = regexp.MustCompile(`^\s*masterVariant\(sku\s*=\s*("(?:[^"\\]|\\.)*")\)\s*$`)
	localizedNameIn  = regexp.MustCompile(`^\s*name\((\w+) in \((.*)\)\)\s*$`)
	quotedLiteral    = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
	skuInPredicateRe = regexp.MustCompile(`sku in \(`)
)

// literals returns the unquoted string literals of a predicate.
func literals(s string) []string {
	raw := quotedLiteral.FindAllString(s, -1)
	out := make([]string, 0, len(raw))
	for _, lit := range raw {
		v, err := strconv.Unquote(lit)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func parseEq(where string) (field, value string, ok bool) {
	m := eqPredicate.FindStringSubmatch(where)
	if m == nil {
		return "", "", false
	}
	v, err := strconv.Unquote(m[2])
	if err != nil {
		return "", "", false
	}
	return m[1], v, true
}

// MatchResource understands `field="value"` on id, key, externalId and name.
// A localized name matches when any locale holds the value.
func MatchResource(r catalog.Resource, where string) bool {
	field, value, ok := parseEq(where)
	if !ok {
		return false
	}
	switch field {
	case "id":
		return r.ID == value
	case "key":
		return r.Key == value
	case "externalId":
		return r.ExternalID == value
	case "name":
		return nameMatches(r.Name, value)
	}
	return false
}

func nameMatches(name any, value string) bool {
	switch n := name.(type) {
	case string:
		return n == value
	case catalog.LocalizedString:
		for _, v := range n {
			if v == value {
				return true
			}
		}
	case map[string]string:
		return nameMatches(catalog.LocalizedString(n), value)
	case map[string]any:
		for _, v := range n {
			if s, ok := v.(string); ok && s == value {
				return true
			}
		}
	}
	return false
}

// MatchProductType understands `field="value"` on id, key and name.
func MatchProductType(p catalog.ProductType, where string) bool {
	field, value, ok := parseEq(where)
	if !ok {
		return false
	}
	switch field {
	case "id":
		return p.ID == value
	case "key":
		return p.Key == value
	case "name":
		return p.Name == value
	}
	return false
}

// MatchProduct understands the sku predicate built by skuquery, a
// `masterVariant(sku="x")` lookup and `field="value"` on id and key.
func MatchProduct(p catalog.Product, where string) bool {
	if skuInPredicateRe.MatchString(where) {
		wanted := make(map[string]struct{})
		for _, sku := range literals(where) {
			wanted[sku] = struct{}{}
		}
		for _, v := range p.AllVariants() {
			if _, ok := wanted[v.SKU]; ok && v.SKU != "" {
				return true
			}
		}
		return false
	}
	if m := variantSKUEq.FindStringSubmatch(where); m != nil {
		sku, err := strconv.Unquote(m[1])
		return err == nil && p.MasterVariant.SKU == sku
	}
	field, value, ok := parseEq(where)
	if !ok {
		return false
	}
	switch field {
	case "id":
		return p.ID == value
	case "key":
		return p.Key == value
	}
	return false
}

// MatchDiscount understands `name(lang in ("a", "b"))`.
func MatchDiscount(d catalog.ProductDiscount, where string) bool {
	m := localizedNameIn.FindStringSubmatch(where)
	if m == nil {
		return false
	}
	name, ok := d.Name[m[1]]
	if !ok {
		return false
	}
	for _, lit := range literals(m[2]) {
		if lit == name {
			return true
		}
	}
	return false
}
