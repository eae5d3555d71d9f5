package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRoundNotComplete is returned by MemoryCoordinator reads against a round
// still waiting on workers.
var ErrRoundNotComplete = errors.New("round not complete")

// MemoryCoordinator is an in-process RoundCoordinator with the same round
// semantics as the coordination server. It lets every worker of a run share
// one process without a server.
type MemoryCoordinator struct {
	mu     sync.Mutex
	rounds map[uint64]*memoryRound
}

type memoryRound struct {
	expected  int32
	published map[string]map[string][]byte
	done      chan struct{}
	aggregate map[string][]byte
}

// NewMemoryCoordinator returns an empty coordinator.
func NewMemoryCoordinator() *MemoryCoordinator {
	return &MemoryCoordinator{rounds: make(map[uint64]*memoryRound)}
}

func (m *MemoryCoordinator) StartRound(ctx context.Context, roundID uint64, expectedWorkers int32) error {
	if expectedWorkers <= 0 {
		return fmt.Errorf("expected_workers must be > 0, got %d", expectedWorkers)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rounds[roundID]; ok {
		if r.expected != expectedWorkers {
			return fmt.Errorf("round %d already started with %d expected workers", roundID, r.expected)
		}
		return nil
	}
	m.rounds[roundID] = &memoryRound{
		expected:  expectedWorkers,
		published: make(map[string]map[string][]byte),
		done:      make(chan struct{}),
	}
	return nil
}

func (m *MemoryCoordinator) PublishValues(ctx context.Context, roundID uint64, workerID string, pairs map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok {
		return fmt.Errorf("round %d not found", roundID)
	}
	if r.aggregate != nil {
		return fmt.Errorf("round %d already completed", roundID)
	}

	copied := make(map[string][]byte, len(pairs))
	for k, v := range pairs {
		copied[k] = append([]byte(nil), v...)
	}
	r.published[workerID] = copied

	if int32(len(r.published)) >= r.expected {
		r.aggregate = make(map[string][]byte)
		for _, workerPairs := range r.published {
			for k, v := range workerPairs {
				r.aggregate[k] = v
			}
		}
		close(r.done)
	}
	return nil
}

func (m *MemoryCoordinator) GetValue(ctx context.Context, roundID uint64, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rounds[roundID]
	if !ok || r.aggregate == nil {
		return nil, fmt.Errorf("round %d: %w", roundID, ErrRoundNotComplete)
	}
	v, ok := r.aggregate[key]
	if !ok {
		return nil, fmt.Errorf("key %q not found in round %d", key, roundID)
	}
	return v, nil
}

// WaitForRound blocks until the round completes. A round that has not been
// started yet is polled for every poll interval.
func (m *MemoryCoordinator) WaitForRound(ctx context.Context, roundID uint64, poll time.Duration) (map[string][]byte, error) {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		m.mu.Lock()
		r, ok := m.rounds[roundID]
		m.mu.Unlock()

		if ok {
			select {
			case <-r.done:
				// aggregate is never written after done is closed.
				out := make(map[string][]byte, len(r.aggregate))
				for k, v := range r.aggregate {
					out[k] = v
				}
				return out, nil
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for round %d: %w", roundID, ctx.Err())
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for round %d: %w", roundID, ctx.Err())
		case <-ticker.C:
		}
	}
}
