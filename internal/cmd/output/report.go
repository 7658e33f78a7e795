package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/agentstation/catalogsync/pkg/report"
)

// ReportData converts a run report into a two-column table titled with
// the report message. Zero counters other than the primary ones are
// omitted.
func ReportData(r report.Report) Data {
	s := r.Summary
	rows := [][]string{
		{"Created", strconv.Itoa(s.Created)},
		{"Updated", strconv.Itoa(s.Updated)},
		{"Unchanged", strconv.Itoa(s.Unchanged)},
		{"Failed", strconv.Itoa(s.Failed)},
	}
	optional := []struct {
		name  string
		value int
	}{
		{"Products without SKU", s.ProductsWithMissingSKU},
		{"Product types updated", s.ProductTypeUpdated},
		{"Duplicated SKUs", s.DuplicatedSKUs},
		{"Unknown SKUs", s.UnknownSKUCount},
		{"Variants without price updates", s.VariantWithoutPriceUpdates},
	}
	for _, o := range optional {
		if o.value > 0 {
			rows = append(rows, []string{o.name, strconv.Itoa(o.value)})
		}
	}
	if len(s.UnknownAttributeNames) > 0 {
		rows = append(rows, []string{"Unknown attributes", strings.Join(s.UnknownAttributeNames, ", ")})
	}
	if s.VariantReassignment != nil {
		rows = append(rows, []string{"Variants reassigned", strconv.Itoa(s.VariantReassignment.Processed)})
	}
	if s.Failed > 0 && s.ErrorDir != "" {
		rows = append(rows, []string{"Error reports", s.ErrorDir})
	}

	return Data{
		Title:           r.Message,
		Headers:         []string{"Counter", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// FormatReport writes a run report in the given format. Tables render
// ReportData; JSON and YAML render the report itself.
func FormatReport(w io.Writer, format Format, r report.Report) error {
	formatter := NewFormatter(format)

	var data any = r
	switch format {
	case FormatTable, "":
		data = ReportData(r)
	}
	return formatter.Format(w, data)
}
