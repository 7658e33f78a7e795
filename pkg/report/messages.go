package report

import (
	"fmt"
	"strings"
)

// Report is the rendered summary of a run.
type Report struct {
	Message string  `json:"reportMessage"`
	Summary Summary `json:"detailedSummary"`
}

// ProductReport renders the summary of a product import. filename names
// the feed in the missing-sku notice when set.
func ProductReport(s Summary, filename string) Report {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: there were %d imported products (%d were new and %d were updates).",
		s.Created+s.Updated, s.Created, s.Updated)
	if s.ProductsWithMissingSKU > 0 {
		fmt.Fprintf(&b, "\nFound %d product(s) which do not have SKU and won't be imported.", s.ProductsWithMissingSKU)
		if filename != "" {
			fmt.Fprintf(&b, " '%s'", filename)
		}
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "\n %d product imports failed. Error reports stored at: %s", s.Failed, s.ErrorDir)
	}
	return Report{Message: b.String(), Summary: s}
}

// PriceReport renders the summary of a price import.
func PriceReport(s Summary) Report {
	msg := fmt.Sprintf("Summary: there were %d price update(s). (unknown skus: %d, duplicate skus: %d, variants without price updates: %d)",
		s.Updated, s.UnknownSKUCount, s.DuplicatedSKUs, s.VariantWithoutPriceUpdates)
	return Report{Message: msg, Summary: s}
}

// DiscountReport renders the summary of a product discount import.
func DiscountReport(s Summary) Report {
	if s.Updated == 0 {
		return Report{Message: "Summary: nothing to update", Summary: s}
	}
	msg := fmt.Sprintf("Summary: there were %d update(s) and %d creation(s) of product discount.", s.Updated, s.Created)
	return Report{Message: msg, Summary: s}
}
