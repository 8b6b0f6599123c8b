package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"pagespeed_monitor/internal/config"
	"pagespeed_monitor/internal/processing"
)

// Job is one unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler fires a job once a day at each configured slot.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	loc  *time.Location

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// CronExpr renders a slot as a five-field cron expression.
func CronExpr(slot config.Slot) string {
	return fmt.Sprintf("%d %d * * *", slot.Minute, slot.Hour)
}

func New(job Job, slots []config.Slot, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{cron: c, job: job, loc: loc}

	for _, slot := range slots {
		expr := CronExpr(slot)
		if _, err := c.AddFunc(expr, s.runJob); err != nil {
			return nil, fmt.Errorf("failed to schedule slot %s: %w", slot, err)
		}
		log.Info().Str("slot", slot.String()).Str("cron", expr).Str("timezone", loc.String()).Msg("Scheduled daily run")
	}

	return s, nil
}

func (s *Scheduler) runJob() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	err := s.job.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, processing.ErrRunInProgress):
		log.Info().Msg("Scheduled run skipped; previous run still in progress")
	default:
		log.Error().Err(err).Msg("Scheduled run failed")
	}
}

// Start begins firing jobs. A stopped scheduler may be started again; each
// Start gives jobs a fresh context.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.cron.Start()
	if next := s.NextRuns(time.Now()); len(next) > 0 {
		log.Info().Time("next_run", next[0]).Msg("Scheduler started")
	}
}

// Stop prevents new firings and waits for a running job to return. If ctx
// expires first the job's context is cancelled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancelJobs()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) cancelJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRuns returns the next firing of every slot after from, earliest first.
func (s *Scheduler) NextRuns(from time.Time) []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Schedule.Next(from.In(s.loc)))
	}
	sort.Slice(next, func(i, j int) bool { return next[i].Before(next[j]) })
	return next
}
