package processing

import (
	"time"

	"pagespeed_monitor/internal/audits"
	"pagespeed_monitor/internal/pagespeed"
	"pagespeed_monitor/internal/sheets"
)

// Result is the extracted content of one report.
type Result struct {
	Scores pagespeed.Scores
	audits.Blobs
}

func NewResult(report *pagespeed.Report, keys audits.KeySets) *Result {
	return &Result{
		Scores: report.Scores,
		Blobs:  audits.Extract(report.Audits, keys),
	}
}

// Row stamps the result for the sheet. website is the URL as configured.
func (res *Result) Row(ts time.Time, website string, strategy pagespeed.Strategy) sheets.Row {
	return sheets.Row{
		Timestamp:     ts,
		Website:       website,
		Device:        string(strategy),
		Performance:   res.Scores.Performance,
		Accessibility: res.Scores.Accessibility,
		BestPractices: res.Scores.BestPractices,
		SEO:           res.Scores.SEO,
		Insights:      res.Insights,
		Diagnostics:   res.Diagnostics,
		General:       res.General,
	}
}
