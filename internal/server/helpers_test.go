package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
	"github.com/mundrapranay/silhouette-coloring/internal/store"
)

const bufSize = 4 << 20

// fakeStore is an in-process RoundStore.
type fakeStore struct {
	mu      sync.Mutex
	leader  bool
	rounds  map[uint64][]byte
	putErr  error
	putCall int
}

func newFakeStore() *fakeStore {
	return &fakeStore{leader: true, rounds: make(map[uint64][]byte)}
}

func (f *fakeStore) IsLeader() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leader
}

func (f *fakeStore) PutRound(roundID uint64, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCall++
	if f.putErr != nil {
		return f.putErr
	}
	f.rounds[roundID] = blob
	return nil
}

func (f *fakeStore) Round(roundID uint64) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.rounds[roundID]
	return blob, ok
}

// newRaftStore starts a single-node in-memory Raft store that has won
// leadership.
func newRaftStore(t testing.TB) *store.Store {
	t.Helper()

	s, err := store.NewStore(store.Config{
		NodeID:           "test-node",
		ListenAddr:       "test-node",
		Bootstrap:        true,
		InMemory:         true,
		HeartbeatTimeout: 100 * time.Millisecond,
		ElectionTimeout:  100 * time.Millisecond,
		CommitTimeout:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitForLeader(ctx))
	return s
}

// setupTestServerWithGRPC serves a Server backed by an in-memory Raft store
// over bufconn and returns a connected client.
func setupTestServerWithGRPC(t testing.TB) (apiv1.CoordinationServiceClient, *store.Store) {
	t.Helper()

	s := newRaftStore(t)
	srv := NewServer(s, nil)

	lis := bufconn.Listen(bufSize)
	grpcSrv := grpc.NewServer()
	apiv1.RegisterCoordinationServiceServer(grpcSrv, srv)
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return apiv1.NewCoordinationServiceClient(conn), s
}
