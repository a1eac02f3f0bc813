package exporter

import (
	"strconv"

	"panelcli/pkg/contracts/domain"
)

// formatValue formats an observation value for CSV output. Missing values
// become empty fields so downstream tools read them as NA rather than zero.
func formatValue(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
