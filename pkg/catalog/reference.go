package catalog

// Type ids of the references the engine resolves.
const (
	TypeIDProductType   = "product-type"
	TypeIDCategory      = "category"
	TypeIDTaxCategory   = "tax-category"
	TypeIDCustomerGroup = "customer-group"
	TypeIDChannel       = "channel"
	TypeIDType          = "type"
	TypeIDProduct       = "product"
)

// Reference is a pointer to another entity in the store.
//
// Feed records put the business key in ID (or Key). Once resolved, ID holds
// the remote id and Key is cleared, so only the remote id is ever sent.
type Reference struct {
	TypeID string `json:"typeId,omitempty"`
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
}

// BusinessKey returns the key used to resolve the reference.
func (r *Reference) BusinessKey() string {
	if r == nil {
		return ""
	}
	if r.Key != "" {
		return r.Key
	}
	return r.ID
}

// Resolved returns the reference pointing at remote id.
func Resolved(typeID, id string) Reference {
	return Reference{TypeID: typeID, ID: id}
}

// Resource is the subset of fields shared by the simple lookup entities:
// categories, tax categories, customer groups, channels and custom types.
type Resource struct {
	ID         string `json:"id"`
	Version    int64  `json:"version,omitempty"`
	Key        string `json:"key,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Name       any    `json:"name,omitempty"`
}

// RemoteID implements the resolver's Identifiable contract.
func (r Resource) RemoteID() string { return r.ID }

// RemoteID implements the resolver's Identifiable contract.
func (p ProductType) RemoteID() string { return p.ID }

// RemoteID implements the resolver's Identifiable contract.
func (p Product) RemoteID() string { return p.ID }
