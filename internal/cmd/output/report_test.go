package output_test

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/pkg/report"
)

func sampleReport() report.Report {
	return report.PriceReport(report.Summary{Updated: 2, UnknownSKUCount: 1})
}

func TestReportData(t *testing.T) {
	data := output.ReportData(sampleReport())

	assert.Contains(t, data.Title, "there were 2 price update(s)")
	assert.Equal(t, []string{"Counter", "Value"}, data.Headers)
	assert.Contains(t, data.Rows, []string{"Updated", "2"})
	assert.Contains(t, data.Rows, []string{"Unknown SKUs", "1"})
	assert.NotContains(t, data.Rows, []string{"Duplicated SKUs", "0"})
}

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name   string
		format output.Format
		check  func(t *testing.T, out string)
	}{
		{
			name:   "json",
			format: output.FormatJSON,
			check: func(t *testing.T, out string) {
				var got map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &got))
				assert.Contains(t, got["reportMessage"], "price update(s)")
				summary, ok := got["detailedSummary"].(map[string]any)
				require.True(t, ok)
				assert.EqualValues(t, 2, summary["updated"])
			},
		},
		{
			name:   "yaml",
			format: output.FormatYAML,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "reportMessage:")
				assert.Contains(t, out, "updated: 2")
			},
		},
		{
			name:   "table",
			format: output.FormatTable,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "Summary: there were 2 price update(s)")
				assert.Contains(t, out, "Unknown SKUs")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, output.FormatReport(&buf, tt.format, sampleReport()))
			tt.check(t, buf.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := output.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, f)

	_, err = output.ParseFormat("xml")
	assert.Error(t, err)
}
