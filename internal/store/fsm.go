package store

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// Command ops understood by the FSM.
const (
	OpPutRound  = "PUT_ROUND"
	OpDropRound = "DROP_ROUND"
)

// Command represents a single operation to be applied to the FSM.
type Command struct {
	Op    string `json:"op"`
	Round uint64 `json:"round"`
	Blob  []byte `json:"blob,omitempty"`
}

// FSM holds the encoded aggregate of every completed round, keyed by round ID.
type FSM struct {
	mu     sync.RWMutex
	rounds map[uint64][]byte
}

// NewFSM creates a new FSM instance.
func NewFSM() *FSM {
	return &FSM{
		rounds: make(map[uint64][]byte),
	}
}

// Apply applies a Raft log entry to the FSM.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to deserialize command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpPutRound:
		f.rounds[cmd.Round] = cmd.Blob
		return nil
	case OpDropRound:
		delete(f.rounds, cmd.Round)
		return nil
	default:
		return fmt.Errorf("unrecognized command op: %s", cmd.Op)
	}
}

// Round returns the aggregate stored for roundID.
func (f *FSM) Round(roundID uint64) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	blob, ok := f.rounds[roundID]
	return blob, ok
}

// Rounds returns the number of stored rounds.
func (f *FSM) Rounds() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rounds)
}

// Snapshot captures a deep copy of the stored rounds for log compaction.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	clone := make(map[uint64][]byte, len(f.rounds))
	for id, blob := range f.rounds {
		clone[id] = append([]byte(nil), blob...)
	}
	return &FSMSnapshot{rounds: clone}, nil
}

// Restore replaces the FSM state with a snapshot written by Persist.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var rounds map[uint64][]byte
	if err := json.NewDecoder(rc).Decode(&rounds); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if rounds == nil {
		rounds = make(map[uint64][]byte)
	}

	f.mu.Lock()
	f.rounds = rounds
	f.mu.Unlock()
	return nil
}

// FSMSnapshot is a point-in-time copy of the stored rounds.
type FSMSnapshot struct {
	rounds map[uint64][]byte
}

// Persist writes the snapshot to the given sink.
func (s *FSMSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.rounds); err != nil {
		sink.Cancel()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return sink.Close()
}

// Release is a no-op; the snapshot holds no external resources.
func (s *FSMSnapshot) Release() {}
