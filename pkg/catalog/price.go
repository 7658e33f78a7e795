package catalog

import (
	"strconv"
	"strings"
)

// Money is an amount in the smallest currency unit.
type Money struct {
	CurrencyCode string `json:"currencyCode"`
	CentAmount   int64  `json:"centAmount"`
}

// Price belongs to exactly one variant.
type Price struct {
	ID            string        `json:"id,omitempty"`
	Value         Money         `json:"value"`
	Country       string        `json:"country,omitempty"`
	CustomerGroup *Reference    `json:"customerGroup,omitempty"`
	Channel       *Reference    `json:"channel,omitempty"`
	ValidFrom     string        `json:"validFrom,omitempty"`
	ValidUntil    string        `json:"validUntil,omitempty"`
	Custom        *CustomFields `json:"custom,omitempty"`
}

// CustomFields attaches a custom type and its field values.
type CustomFields struct {
	Type   *Reference     `json:"type,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Identity returns the scope that makes a price unique within a variant:
// currency, country, customer group, channel and validity window.
func (p Price) Identity() string {
	var b strings.Builder
	b.WriteString(p.Value.CurrencyCode)
	for _, part := range []string{
		p.Country,
		refID(p.CustomerGroup),
		refID(p.Channel),
		p.ValidFrom,
		p.ValidUntil,
	} {
		b.WriteByte('|')
		b.WriteString(part)
	}
	return b.String()
}

// String renders the price amount, for logs.
func (p Price) String() string {
	return p.Value.CurrencyCode + " " + strconv.FormatInt(p.Value.CentAmount, 10)
}

// Clone returns a deep copy of the price.
func (p Price) Clone() Price {
	out := p
	if p.CustomerGroup != nil {
		cg := *p.CustomerGroup
		out.CustomerGroup = &cg
	}
	if p.Channel != nil {
		ch := *p.Channel
		out.Channel = &ch
	}
	if p.Custom != nil {
		c := CustomFields{}
		if p.Custom.Type != nil {
			t := *p.Custom.Type
			c.Type = &t
		}
		if p.Custom.Fields != nil {
			c.Fields = CloneValue(map[string]any(p.Custom.Fields)).(map[string]any)
		}
		out.Custom = &c
	}
	return out
}

func refID(r *Reference) string {
	if r == nil {
		return ""
	}
	return r.ID
}

// PriceRecord is one price feed entry: the prices a variant should carry.
type PriceRecord struct {
	SKU    string  `json:"sku"`
	Prices []Price `json:"prices"`
}

// ProductDiscount is a discount applied to products matching a predicate.
type ProductDiscount struct {
	ID          string          `json:"id,omitempty"`
	Version     int64           `json:"version,omitempty"`
	Key         string          `json:"key,omitempty"`
	Name        LocalizedString `json:"name"`
	Description LocalizedString `json:"description,omitempty"`
	Value       map[string]any  `json:"value,omitempty"`
	Predicate   string          `json:"predicate"`
	SortOrder   string          `json:"sortOrder,omitempty"`
	IsActive    bool            `json:"isActive"`
}
