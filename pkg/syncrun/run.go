// Package syncrun tracks one pipeline execution as a finite-state record
// with cumulative counts and an append-only event log, consumed by external
// observability tooling through the Store surface.
package syncrun

import (
	"time"

	"github.com/google/uuid"

	"github.com/partsbridge/partsync/pkg/errors"
)

// Status is the lifecycle state of a sync run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// transitions is the validated transition table. Transitions are monotonic:
// a run never moves backward and never skips RUNNING.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusCompleted, StatusFailed},
}

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is valid.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Event is one entry in a run's append-only audit log.
type Event struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Counts are the cumulative record counts of one run.
type Counts struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// Run is the stateful record of one pipeline execution.
type Run struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
	Source string `json:"source"`
	Status Status `json:"status"`
	Counts Counts `json:"counts"`
	// StartedAt is set at creation; Duration only on the terminal
	// transition
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration,omitempty"`
	Events    []Event       `json:"events"`
}

// NewRun creates a run in PENDING for one (entity, source) pair.
func NewRun(entity, source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Entity:    entity,
		Source:    source,
		Status:    StatusPending,
		StartedAt: time.Now(),
		Events:    []Event{},
	}
}

// Transition moves the run to the next status, rejecting invalid moves at
// the call site. Reaching a terminal state records the elapsed duration.
func (r *Run) Transition(next Status) error {
	if !r.Status.CanTransition(next) {
		return errors.Newf(errors.ErrorTypeInternal,
			"invalid sync run transition %s -> %s", r.Status, next)
	}
	r.Status = next
	if next.Terminal() {
		r.Duration = time.Since(r.StartedAt)
	}
	return nil
}

// AddCounts accumulates chunk-level counts into the run.
func (r *Run) AddCounts(c Counts) {
	r.Counts.Processed += c.Processed
	r.Counts.Created += c.Created
	r.Counts.Updated += c.Updated
	r.Counts.Failed += c.Failed
}

// AddEvent appends one event to the audit log.
func (r *Run) AddEvent(eventType, message string, details map[string]interface{}) {
	r.Events = append(r.Events, Event{
		Type:      eventType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	})
}
