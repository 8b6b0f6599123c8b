package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pagespeed_monitor/internal/audits"
	"pagespeed_monitor/internal/notifications"
	"pagespeed_monitor/internal/pagespeed"
	"pagespeed_monitor/internal/sheets"
	"pagespeed_monitor/internal/target"
)

// ErrRunInProgress is returned by Run while another run has not finished.
var ErrRunInProgress = errors.New("a run is already in progress")

// Consumer-side interfaces

type ReportFetcher interface {
	Run(ctx context.Context, url string, strategy pagespeed.Strategy) (*pagespeed.Report, error)
}

type SheetStore interface {
	EnsureSheet(ctx context.Context, name string) error
	AppendRow(ctx context.Context, name string, row sheets.Row) error
}

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// apiCounter is implemented by fetchers that count outbound calls.
type apiCounter interface {
	GetAPICallCount() int64
	ResetAPICallCount()
}

// Runner executes one full pass over every configured URL.
type Runner struct {
	fetcher  ReportFetcher
	store    SheetStore
	notifier Notifier

	urls      []string
	sheetName string
	perURL    bool
	keys      audits.KeySets
	pause     time.Duration
	loc       *time.Location
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	status Status
	active chan struct{}
}

type RunnerOption func(*Runner)

func WithSheetName(name string) RunnerOption {
	return func(r *Runner) { r.sheetName = name }
}

// WithPerURLSheets writes each URL to its own sheet named after the URL.
func WithPerURLSheets(enabled bool) RunnerOption {
	return func(r *Runner) { r.perURL = enabled }
}

func WithAuditKeys(keys audits.KeySets) RunnerOption {
	return func(r *Runner) { r.keys = keys.WithDefaults() }
}

func WithPause(d time.Duration) RunnerOption {
	return func(r *Runner) { r.pause = d }
}

func WithLocation(loc *time.Location) RunnerOption {
	return func(r *Runner) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RunnerOption {
	return func(r *Runner) { r.sleep = sleep }
}

func NewRunner(fetcher ReportFetcher, store SheetStore, notifier Notifier, urls []string, opts ...RunnerOption) *Runner {
	r := &Runner{
		fetcher:   fetcher,
		store:     store,
		notifier:  notifier,
		urls:      urls,
		sheetName: "PageSpeed Data",
		keys:      audits.DefaultKeySets(),
		pause:     time.Second,
		loc:       time.Local,
		now:       time.Now,
		sleep:     sleepContext,
		status:    Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run measures every URL with both strategies and appends the results. A
// URL that fails validation or fetching is skipped. A sheet error aborts the
// run, sends the failure notification and is returned.
func (r *Runner) Run(ctx context.Context) error {
	runID, ok := r.begin()
	if !ok {
		log.Warn().Msg("Run requested while another run is in progress; rejecting")
		return ErrRunInProgress
	}
	return r.run(ctx, runID)
}

// Start claims a run and executes it in the background. The returned channel
// receives the run's result once.
func (r *Runner) Start(ctx context.Context) (string, <-chan error, error) {
	runID, ok := r.begin()
	if !ok {
		return "", nil, ErrRunInProgress
	}

	done := make(chan error, 1)
	go func() {
		done <- r.run(ctx, runID)
	}()
	return runID, done, nil
}

// Wait blocks until the run in progress, including its notification, has
// returned. It returns ctx.Err() if ctx is done first.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()

	if active == nil {
		return nil
	}
	select {
	case <-active:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, runID string) error {
	defer r.end()

	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Int("urls", len(r.urls)).Msg("Starting PageSpeed data extraction")

	if c, ok := r.fetcher.(apiCounter); ok {
		c.ResetAPICallCount()
	}

	err := r.execute(ctx, logger)
	r.finish(err)

	if c, ok := r.fetcher.(apiCounter); ok {
		logger.Info().Int64("api_calls", c.GetAPICallCount()).Msg("API call summary for run")
	}

	notifyCtx := context.WithoutCancel(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("PageSpeed extraction failed")
		r.notify(notifyCtx, logger, notifications.FailureMessage(err))
		return err
	}

	logger.Info().Int("rows", r.Status().RowsWritten).Msg("PageSpeed extraction completed successfully")
	r.notify(notifyCtx, logger, notifications.SuccessMessage)
	return nil
}

func (r *Runner) execute(ctx context.Context, logger zerolog.Logger) error {
	if !r.perURL {
		if err := r.store.EnsureSheet(ctx, r.sheetName); err != nil {
			return err
		}
	}

	for _, url := range r.urls {
		logger.Info().Str("url", url).Msg("Processing URL")

		if err := r.process(ctx, logger, url); err != nil {
			return err
		}

		if err := r.sleep(ctx, r.pause); err != nil {
			return err
		}
	}
	return nil
}

// process measures one configured URL and appends its rows. An invalid URL
// is skipped before any sheet is touched.
func (r *Runner) process(ctx context.Context, logger zerolog.Logger, url string) error {
	normalized, ok := target.Normalize(url)
	if !ok {
		logger.Warn().Str("url", url).Msg("Skipping invalid URL")
		return nil
	}

	name := r.sheetName
	if r.perURL {
		name = target.SheetName(url)
		if name == "" {
			logger.Warn().Str("url", url).Msg("Skipping URL with no usable sheet name")
			return nil
		}
		if err := r.store.EnsureSheet(ctx, name); err != nil {
			return err
		}
	}

	results := make([]*Result, len(pagespeed.Strategies))
	for i, strategy := range pagespeed.Strategies {
		results[i] = r.measure(ctx, logger, normalized, strategy)
	}

	for i, strategy := range pagespeed.Strategies {
		if results[i] == nil {
			continue
		}
		row := results[i].Row(r.now().In(r.loc), url, strategy)
		if err := r.store.AppendRow(ctx, name, row); err != nil {
			return err
		}
		r.addRow()
	}
	return nil
}

// measure returns nil when the report cannot be fetched.
func (r *Runner) measure(ctx context.Context, logger zerolog.Logger, url string, strategy pagespeed.Strategy) *Result {
	report, err := r.fetcher.Run(ctx, url, strategy)
	if err != nil {
		logger.Warn().Err(err).Str("url", url).Str("strategy", string(strategy)).Msg("Failed to fetch PageSpeed data")
		return nil
	}

	return NewResult(report, r.keys)
}

func (r *Runner) notify(ctx context.Context, logger zerolog.Logger, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, message); err != nil {
		logger.Warn().Err(err).Msg("Failed to send notification")
	}
}
