package pagespeed

import (
	"math"

	"pagespeed_monitor/internal/audits"
)

// Strategy is the emulated device class for a run.
type Strategy string

const (
	Mobile  Strategy = "mobile"
	Desktop Strategy = "desktop"
)

// Strategies is the order in which every URL is measured.
var Strategies = []Strategy{Mobile, Desktop}

// Category IDs requested on every run.
const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
)

var categories = []string{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
}

// Response is the subset of the runPagespeed payload we read.
type Response struct {
	ID               string            `json:"id"`
	AnalysisUTC      string            `json:"analysisUTCTimestamp"`
	LighthouseResult *LighthouseResult `json:"lighthouseResult"`
}

type LighthouseResult struct {
	RequestedURL string                  `json:"requestedUrl"`
	FinalURL     string                  `json:"finalUrl"`
	Categories   map[string]Category     `json:"categories"`
	Audits       map[string]audits.Audit `json:"audits"`
}

type Category struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Score *float64 `json:"score"`
}

// Scores are the four category percentages. A nil field means the API did
// not report that category.
type Scores struct {
	Performance   *int
	Accessibility *int
	BestPractices *int
	SEO           *int
}

// Report is what one successful run yields.
type Report struct {
	URL      string
	Strategy Strategy
	Scores   Scores
	Audits   map[string]audits.Audit
}

func (lr *LighthouseResult) scores() Scores {
	return Scores{
		Performance:   lr.percent(CategoryPerformance),
		Accessibility: lr.percent(CategoryAccessibility),
		BestPractices: lr.percent(CategoryBestPractices),
		SEO:           lr.percent(CategorySEO),
	}
}

func (lr *LighthouseResult) percent(id string) *int {
	cat, ok := lr.Categories[id]
	if !ok || cat.Score == nil {
		return nil
	}
	v := int(math.Round(*cat.Score * 100))
	return &v
}
