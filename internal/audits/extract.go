package audits

import (
	"strings"
)

// Audit is a single Lighthouse audit as returned by PageSpeed Insights.
type Audit struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	DisplayValue string   `json:"displayValue"`
	Score        *float64 `json:"score"`
}

// Blobs are the three rendered report columns.
type Blobs struct {
	Insights    string
	Diagnostics string
	General     string
}

// Format renders one "{title} {displayValue}" line per key that has an audit
// with a non-empty display value, in key order, joined by newlines.
func Format(audits map[string]Audit, keys []string) string {
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		audit, ok := audits[key]
		if !ok || audit.DisplayValue == "" {
			continue
		}
		lines = append(lines, audit.Title+" "+audit.DisplayValue)
	}
	return strings.Join(lines, "\n")
}

// Extract renders all three columns for one report.
func Extract(audits map[string]Audit, keys KeySets) Blobs {
	return Blobs{
		Insights:    Format(audits, keys.Opportunities),
		Diagnostics: Format(audits, keys.Diagnostics),
		General:     Format(audits, keys.General),
	}
}
