package processing

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status describes the current or most recent run.
type Status struct {
	State       State      `json:"state"`
	RunID       string     `json:"run_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	RowsWritten int        `json:"rows_written"`
	LastError   string     `json:"last_error,omitempty"`
}

// Status returns a snapshot that is safe to read while a run is active.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Running reports whether a run is in progress. A run stays in progress
// until its notification has been sent.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Runner) begin() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return "", false
	}

	r.active = make(chan struct{})
	started := r.now()
	r.status = Status{
		State:     StateRunning,
		RunID:     uuid.New().String(),
		StartedAt: &started,
	}
	return r.status.RunID, true
}

func (r *Runner) addRow() {
	r.mu.Lock()
	r.status.RowsWritten++
	r.mu.Unlock()
}

func (r *Runner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	finished := r.now()
	r.status.FinishedAt = &finished
	if err != nil {
		r.status.State = StateFailed
		r.status.LastError = err.Error()
		return
	}
	r.status.State = StateSucceeded
}

func (r *Runner) end() {
	r.mu.Lock()
	defer r.mu.Unlock()

	close(r.active)
	r.active = nil
}
