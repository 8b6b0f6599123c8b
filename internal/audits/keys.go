package audits

// KeySets holds the ordered audit IDs rendered into each report column.
type KeySets struct {
	Opportunities []string `yaml:"opportunities"`
	Diagnostics   []string `yaml:"diagnostics"`
	General       []string `yaml:"general"`
}

// DefaultOpportunityKeys lists audits that estimate load-time savings.
var DefaultOpportunityKeys = []string{
	"render-blocking-resources",
	"unused-css-rules",
	"unused-javascript",
	"modern-image-formats",
	"offscreen-images",
	"unminified-css",
	"unminified-javascript",
	"efficient-animated-content",
	"duplicated-javascript",
	"legacy-javascript",
	"uses-optimized-images",
	"uses-text-compression",
	"uses-responsive-images",
}

// DefaultDiagnosticKeys lists audits describing main-thread and layout behaviour.
var DefaultDiagnosticKeys = []string{
	"mainthread-work-breakdown",
	"bootup-time",
	"uses-rel-preconnect",
	"font-display",
	"third-party-summary",
	"third-party-facades",
	"largest-contentful-paint-element",
	"lcp-lazy-loaded",
	"layout-shift-elements",
	"uses-passive-event-listeners",
	"no-document-write",
	"long-tasks",
	"non-composited-animations",
	"unsized-images",
	"viewport",
}

// DefaultGeneralKeys lists network and page-weight audits.
var DefaultGeneralKeys = []string{
	"uses-http2",
	"uses-long-cache-ttl",
	"total-byte-weight",
	"dom-size",
	"critical-request-chains",
	"user-timings",
	"diagnostics",
	"network-requests",
	"network-rtt",
	"network-server-latency",
	"main-thread-tasks",
	"metrics",
	"screenshot-thumbnails",
	"final-screenshot",
}

// DefaultKeySets returns a fresh copy of the built-in key lists.
func DefaultKeySets() KeySets {
	return KeySets{
		Opportunities: append([]string(nil), DefaultOpportunityKeys...),
		Diagnostics:   append([]string(nil), DefaultDiagnosticKeys...),
		General:       append([]string(nil), DefaultGeneralKeys...),
	}
}

// WithDefaults fills any empty list with its built-in default.
func (k KeySets) WithDefaults() KeySets {
	d := DefaultKeySets()
	if len(k.Opportunities) == 0 {
		k.Opportunities = d.Opportunities
	}
	if len(k.Diagnostics) == 0 {
		k.Diagnostics = d.Diagnostics
	}
	if len(k.General) == 0 {
		k.General = d.General
	}
	return k
}
