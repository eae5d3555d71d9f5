package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"github.com/mundrapranay/silhouette-coloring/internal/logging"
)

// ErrNotLeader is returned by writes attempted on a follower.
var ErrNotLeader = errors.New("store: not the leader")

const applyTimeout = 10 * time.Second

// Store wraps a Raft instance and replicates completed round aggregates.
type Store struct {
	raft   *raft.Raft
	fsm    *FSM
	addr   raft.ServerAddress
	logger hclog.Logger
}

// Config holds configuration for initializing a Raft store.
type Config struct {
	NodeID           string
	ListenAddr       string
	DataDir          string
	Bootstrap        bool
	HeartbeatTimeout time.Duration
	ElectionTimeout  time.Duration
	CommitTimeout    time.Duration

	// InMemory keeps logs, snapshots and transport in process. DataDir is
	// ignored. Used for tests and single-node runs.
	InMemory bool

	Logger hclog.Logger
}

// NewStore creates and initializes a new Raft store.
func NewStore(config Config) (*Store, error) {
	logger := logging.OrNull(config.Logger).Named("store")
	fsm := NewFSM()

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.Logger = logger.Named("raft")
	if config.HeartbeatTimeout > 0 {
		raftConfig.HeartbeatTimeout = config.HeartbeatTimeout
		if raftConfig.LeaderLeaseTimeout > config.HeartbeatTimeout {
			raftConfig.LeaderLeaseTimeout = config.HeartbeatTimeout
		}
	}
	if config.ElectionTimeout > 0 {
		raftConfig.ElectionTimeout = config.ElectionTimeout
	}
	if config.CommitTimeout > 0 {
		raftConfig.CommitTimeout = config.CommitTimeout
	}

	var (
		logStore      raft.LogStore
		stableStore   raft.StableStore
		snapshotStore raft.SnapshotStore
		transport     raft.Transport
		advertise     raft.ServerAddress
	)

	if config.InMemory {
		mem := raft.NewInmemStore()
		logStore, stableStore = mem, mem
		snapshotStore = raft.NewInmemSnapshotStore()
		addr, inmem := raft.NewInmemTransport(raft.ServerAddress(config.ListenAddr))
		transport, advertise = inmem, addr
	} else {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		boltLogs, err := raftboltdb.NewBoltStore(filepath.Join(config.DataDir, "logs"))
		if err != nil {
			return nil, fmt.Errorf("failed to create log store: %w", err)
		}
		boltStable, err := raftboltdb.NewBoltStore(filepath.Join(config.DataDir, "stable"))
		if err != nil {
			return nil, fmt.Errorf("failed to create stable store: %w", err)
		}
		logStore, stableStore = boltLogs, boltStable

		snapshotStore, err = raft.NewFileSnapshotStoreWithLogger(config.DataDir, 3, logger.Named("snapshots"))
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot store: %w", err)
		}

		addr, err := net.ResolveTCPAddr("tcp", config.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve address: %w", err)
		}
		// An ephemeral port is only known after bind; advertise the listener.
		var advertiseAddr net.Addr = addr
		if addr.Port == 0 {
			advertiseAddr = nil
		}
		tcp, err := raft.NewTCPTransportWithLogger(config.ListenAddr, advertiseAddr, 3, 10*time.Second, logger.Named("transport"))
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		transport, advertise = tcp, tcp.LocalAddr()
	}

	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}

	if config.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raft.ServerID(config.NodeID),
					Address: advertise,
				},
			},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
			return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
	}

	logger.Info("raft store started", "node", config.NodeID, "addr", advertise, "in_memory", config.InMemory)

	return &Store{
		raft:   r,
		fsm:    fsm,
		addr:   advertise,
		logger: logger,
	}, nil
}

// Addr returns the Raft address peers use to reach this node.
func (s *Store) Addr() string {
	return string(s.addr)
}

// PutRound replicates the encoded aggregate of a completed round.
func (s *Store) PutRound(roundID uint64, blob []byte) error {
	return s.apply(Command{Op: OpPutRound, Round: roundID, Blob: blob})
}

// DropRound removes a round aggregate from the replicated state.
func (s *Store) DropRound(roundID uint64) error {
	return s.apply(Command{Op: OpDropRound, Round: roundID})
}

func (s *Store) apply(cmd Command) error {
	if s.raft.State() != raft.Leader {
		return ErrNotLeader
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	future := s.raft.Apply(data, applyTimeout)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to apply command: %w", err)
	}
	if resp, ok := future.Response().(error); ok && resp != nil {
		return resp
	}

	s.logger.Debug("applied command", "op", cmd.Op, "round", cmd.Round, "bytes", len(cmd.Blob))
	return nil
}

// Round reads a round aggregate from the local FSM. On the leader this
// reflects every PutRound that has returned.
func (s *Store) Round(roundID uint64) ([]byte, bool) {
	return s.fsm.Round(roundID)
}

// IsLeader returns whether this node is currently the Raft leader.
func (s *Store) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// Leader returns the address of the current leader.
func (s *Store) Leader() raft.ServerAddress {
	addr, _ := s.raft.LeaderWithID()
	return addr
}

// WaitForLeader blocks until this node is the leader or ctx is done.
func (s *Store) WaitForLeader(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !s.IsLeader() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for leadership: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// AddPeer adds a new voter to the cluster.
func (s *Store) AddPeer(peerID, peerAddr string) error {
	return s.raft.AddVoter(raft.ServerID(peerID), raft.ServerAddress(peerAddr), 0, 0).Error()
}

// RemovePeer removes a peer from the cluster.
func (s *Store) RemovePeer(peerID string) error {
	return s.raft.RemoveServer(raft.ServerID(peerID), 0, 0).Error()
}

// Shutdown gracefully shuts down the Raft instance.
func (s *Store) Shutdown() error {
	return s.raft.Shutdown().Error()
}
