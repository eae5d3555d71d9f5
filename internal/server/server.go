package server

import (
	"context"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
	"github.com/mundrapranay/silhouette-coloring/internal/logging"
	"github.com/mundrapranay/silhouette-coloring/internal/metrics"
)

// RoundStore persists the aggregate of completed rounds. *store.Store
// satisfies it.
type RoundStore interface {
	IsLeader() bool
	PutRound(roundID uint64, blob []byte) error
	Round(roundID uint64) ([]byte, bool)
}

// Server implements the CoordinationService gRPC server.
type Server struct {
	apiv1.UnimplementedCoordinationServiceServer

	store  RoundStore
	logger hclog.Logger

	roundsMu sync.RWMutex
	rounds   map[uint64]*roundState
	// decoded caches aggregates read back from the store.
	decoded map[uint64]map[string][]byte
}

// roundState tracks the state of a round during the publish phase.
type roundState struct {
	mu         sync.Mutex
	expected   int32
	workerData map[string][]apiv1.KeyValuePair // worker_id -> pairs
	complete   bool
}

// NewServer creates a new gRPC server instance.
func NewServer(s RoundStore, logger hclog.Logger) *Server {
	return &Server{
		store:   s,
		logger:  logging.OrNull(logger).Named("server"),
		rounds:  make(map[uint64]*roundState),
		decoded: make(map[uint64]map[string][]byte),
	}
}

// StartRound opens a round. Every worker may call it; repeating the call with
// the same expectation is a no-op.
func (s *Server) StartRound(ctx context.Context, req *apiv1.StartRoundRequest) (*apiv1.StartRoundResponse, error) {
	if !s.store.IsLeader() {
		return nil, status.Errorf(codes.FailedPrecondition, "not the leader")
	}
	if req.ExpectedWorkers <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "expected_workers must be > 0, got %d", req.ExpectedWorkers)
	}

	s.roundsMu.Lock()
	defer s.roundsMu.Unlock()

	if rs, exists := s.rounds[req.RoundId]; exists {
		if rs.expected != req.ExpectedWorkers {
			return nil, status.Errorf(codes.FailedPrecondition,
				"round %d already started with %d expected workers", req.RoundId, rs.expected)
		}
		return &apiv1.StartRoundResponse{Success: true}, nil
	}

	_, persisted := s.store.Round(req.RoundId)
	s.rounds[req.RoundId] = &roundState{
		expected:   req.ExpectedWorkers,
		workerData: make(map[string][]apiv1.KeyValuePair),
		complete:   persisted,
	}
	s.logger.Debug("round started", "round", req.RoundId, "expected_workers", req.ExpectedWorkers)

	return &apiv1.StartRoundResponse{Success: true}, nil
}

// PublishValues records a worker's contribution. The publish that brings the
// round to its expected worker count aggregates and persists it.
func (s *Server) PublishValues(ctx context.Context, req *apiv1.PublishValuesRequest) (*apiv1.PublishValuesResponse, error) {
	if !s.store.IsLeader() {
		return nil, status.Errorf(codes.FailedPrecondition, "not the leader")
	}
	if req.WorkerId == "" {
		return nil, status.Errorf(codes.InvalidArgument, "worker_id is required")
	}

	pairs := make([]apiv1.KeyValuePair, 0, len(req.Pairs))
	for _, p := range req.Pairs {
		if p == nil || p.Key == "" {
			return nil, status.Errorf(codes.InvalidArgument, "pairs must have non-empty keys")
		}
		pairs = append(pairs, *p)
	}

	s.roundsMu.RLock()
	rs, exists := s.rounds[req.RoundId]
	s.roundsMu.RUnlock()
	if !exists {
		return nil, status.Errorf(codes.NotFound, "round %d not found", req.RoundId)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.complete {
		return nil, status.Errorf(codes.AlreadyExists, "round %d already completed", req.RoundId)
	}

	rs.workerData[req.WorkerId] = pairs
	metrics.ValuesPublished(len(pairs))

	if int32(len(rs.workerData)) < rs.expected {
		return &apiv1.PublishValuesResponse{Success: true}, nil
	}

	allPairs := make(map[string][]byte)
	for _, workerPairs := range rs.workerData {
		for _, pair := range workerPairs {
			allPairs[pair.Key] = pair.Value
		}
	}

	blob, err := encodeAggregate(allPairs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode round data: %v", err)
	}
	if err := s.store.PutRound(req.RoundId, blob); err != nil {
		// Drop the contribution so the worker can retry.
		delete(rs.workerData, req.WorkerId)
		return nil, status.Errorf(codes.Internal, "failed to store round data: %v", err)
	}
	rs.complete = true

	s.roundsMu.Lock()
	s.decoded[req.RoundId] = allPairs
	s.roundsMu.Unlock()

	metrics.RoundCompleted()
	s.logger.Info("round completed", "round", req.RoundId, "workers", len(rs.workerData), "pairs", len(allPairs))

	return &apiv1.PublishValuesResponse{Success: true, RoundComplete: true}, nil
}

// GetValue returns the value published under key in a completed round.
func (s *Server) GetValue(ctx context.Context, req *apiv1.GetValueRequest) (*apiv1.GetValueResponse, error) {
	if !s.store.IsLeader() {
		return nil, status.Errorf(codes.FailedPrecondition, "not the leader")
	}

	pairs, err := s.aggregate(req.RoundId)
	if err != nil {
		return nil, err
	}

	value, ok := pairs[req.Key]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "key %q not found in round %d", req.Key, req.RoundId)
	}
	return &apiv1.GetValueResponse{Value: value}, nil
}

// GetRound returns every pair of a completed round, or Complete=false for a
// round that is started but still waiting on workers.
func (s *Server) GetRound(ctx context.Context, req *apiv1.GetRoundRequest) (*apiv1.GetRoundResponse, error) {
	if !s.store.IsLeader() {
		return nil, status.Errorf(codes.FailedPrecondition, "not the leader")
	}

	pairs, err := s.aggregate(req.RoundId)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return nil, err
		}
		s.roundsMu.RLock()
		_, started := s.rounds[req.RoundId]
		s.roundsMu.RUnlock()
		if !started {
			return nil, err
		}
		return &apiv1.GetRoundResponse{Complete: false}, nil
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*apiv1.KeyValuePair, 0, len(keys))
	for _, k := range keys {
		out = append(out, &apiv1.KeyValuePair{Key: k, Value: pairs[k]})
	}
	return &apiv1.GetRoundResponse{Complete: true, Pairs: out}, nil
}

// aggregate returns the decoded pairs of a persisted round.
func (s *Server) aggregate(roundID uint64) (map[string][]byte, error) {
	s.roundsMu.RLock()
	pairs, cached := s.decoded[roundID]
	s.roundsMu.RUnlock()
	if cached {
		return pairs, nil
	}

	blob, ok := s.store.Round(roundID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "round %d not complete", roundID)
	}
	pairs, err := decodeAggregate(blob)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "round %d: %v", roundID, err)
	}

	s.roundsMu.Lock()
	s.decoded[roundID] = pairs
	s.roundsMu.Unlock()
	return pairs, nil
}
