// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/chronos/pkg/types"
)

var (
	// ErrRunNotFound is returned for ids the store does not know.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunIncomplete is returned when results are requested before a
	// run has completed.
	ErrRunIncomplete = errors.New("run not complete")
)

type runEntry struct {
	status types.RunStatus
	result *types.RunResult
}

// StatusStore tracks runs in memory. Active runs never expire; finished
// runs are dropped ttl after they finish.
type StatusStore struct {
	mu   sync.Mutex
	runs *gocache.Cache
	now  func() time.Time
}

// NewStatusStore returns a store that keeps finished runs for ttl.
// A ttl of zero keeps them forever.
func NewStatusStore(ttl time.Duration) *StatusStore {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &StatusStore{
		runs: gocache.New(ttl, cleanup),
		now:  time.Now,
	}
}

// Start registers a queued run.
func (s *StatusStore) Start(id, filename string) types.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := types.RunStatus{
		ID:        id,
		Filename:  filename,
		State:     types.RunQueued,
		Phase:     types.PhaseUpload,
		Progress:  types.PhaseProgress[types.PhaseUpload],
		StartedAt: now,
		UpdatedAt: now,
	}
	s.runs.Set(id, &runEntry{status: st}, gocache.NoExpiration)
	return st
}

// Update marks the run as processing phase.
func (s *StatusStore) Update(id string, phase types.Phase) error {
	return s.modify(id, gocache.NoExpiration, func(e *runEntry) {
		e.status.State = types.RunProcessing
		e.status.Phase = phase
		e.status.Progress = types.PhaseProgress[phase]
	})
}

// Complete stores the run's result and marks it complete.
func (s *StatusStore) Complete(id string, result types.RunResult) error {
	return s.modify(id, gocache.DefaultExpiration, func(e *runEntry) {
		e.status.State = types.RunComplete
		e.status.Phase = types.PhaseDone
		e.status.Progress = types.PhaseProgress[types.PhaseDone]
		e.status.HypothesesCount = len(result.Hypotheses)
		e.status.Warning = result.Status.Warning
		result.Status = e.status
		e.result = &result
	})
}

// Fail marks the run as failed with err.
func (s *StatusStore) Fail(id string, err error) error {
	return s.modify(id, gocache.DefaultExpiration, func(e *runEntry) {
		e.status.State = types.RunError
		e.status.Error = err.Error()
	})
}

func (s *StatusStore) modify(id string, ttl time.Duration, fn func(*runEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.runs.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	e := v.(*runEntry)
	fn(e)
	e.status.UpdatedAt = s.now()
	if e.result != nil {
		e.result.Status = e.status
	}
	s.runs.Set(id, e, ttl)
	return nil
}

// Get returns the current status of a run.
func (s *StatusStore) Get(id string) (types.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.runs.Get(id)
	if !ok {
		return types.RunStatus{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return v.(*runEntry).status, nil
}

// Result returns the result of a completed run.
func (s *StatusStore) Result(id string) (types.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.runs.Get(id)
	if !ok {
		return types.RunResult{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	e := v.(*runEntry)
	if e.result == nil {
		return types.RunResult{}, fmt.Errorf("%s is %s: %w", id, e.status.State, ErrRunIncomplete)
	}
	return *e.result, nil
}

// List returns all known runs, oldest first.
func (s *StatusStore) List() []types.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.runs.Items()
	out := make([]types.RunStatus, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*runEntry).status)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
