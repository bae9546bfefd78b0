package syncrun

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/partsbridge/partsync/pkg/errors"
)

// Store is the run-history persistence surface consumed by external
// observability tooling. Storage and presentation beyond the in-memory
// reference implementation are out of scope for this core.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	// UpdateStatus transitions a run and accumulates counts onto it.
	// The transition table guarantees each status applies at most once,
	// so callers pass the counts gathered since the previous update.
	UpdateStatus(ctx context.Context, runID string, status Status, counts Counts) error
	AddEvent(ctx context.Context, runID, eventType, message string, details map[string]interface{}) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, entity string) ([]*Run, error)
}

// MemoryStore is an in-process Store used by tests and single-shot CLI
// invocations.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryStore creates an empty in-memory run store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// CreateRun registers a new run.
func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return errors.Newf(errors.ErrorTypeInternal, "run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateStatus transitions a run and accumulates counts onto it. The
// transition is validated; an invalid move is rejected here rather than
// discovered later in observability tooling, and leaves the counts
// untouched.
func (s *MemoryStore) UpdateStatus(_ context.Context, runID string, status Status, counts Counts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return errors.Newf(errors.ErrorTypeInternal, "unknown run %s", runID)
	}
	if err := run.Transition(status); err != nil {
		return err
	}
	run.AddCounts(counts)
	return nil
}

// AddEvent appends one event to a run's audit log.
func (s *MemoryStore) AddEvent(_ context.Context, runID, eventType, message string, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return errors.Newf(errors.ErrorTypeInternal, "unknown run %s", runID)
	}
	run.AddEvent(eventType, message, details)
	return nil
}

// GetRun returns a deep copy of one run, so readers never observe
// in-flight mutation.
func (s *MemoryStore) GetRun(_ context.Context, runID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeInternal, "unknown run %s", runID)
	}
	return cloneRun(run)
}

// ListRuns returns copies of all runs for an entity, oldest first. An empty
// entity matches every run.
func (s *MemoryStore) ListRuns(_ context.Context, entity string) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		if entity != "" && run.Entity != entity {
			continue
		}
		copied, err := cloneRun(run)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func cloneRun(run *Run) (*Run, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to snapshot run")
	}
	var out Run
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to snapshot run")
	}
	return &out, nil
}
