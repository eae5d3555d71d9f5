package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
	"github.com/mundrapranay/silhouette-coloring/internal/server"
	"github.com/mundrapranay/silhouette-coloring/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	s, err := store.NewStore(store.Config{
		NodeID:           "client-test",
		ListenAddr:       "client-test",
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

	lis := bufconn.Listen(1 << 20)
	grpcSrv := grpc.NewServer()
	apiv1.RegisterCoordinationServiceServer(grpcSrv, server.NewServer(s, nil))
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	c, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.StartRound(ctx, 1, 2))
	require.NoError(t, c.PublishValues(ctx, 1, "worker-0", map[string][]byte{"block-0": {1, 2}}))

	_, err := c.GetRound(ctx, 1)
	assert.True(t, errors.Is(err, ErrRoundNotComplete))

	require.NoError(t, c.PublishValues(ctx, 1, "worker-1", map[string][]byte{"block-1": {3}}))

	pairs, err := c.GetRound(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"block-0": {1, 2}, "block-1": {3}}, pairs)

	v, err := c.GetValue(ctx, 1, "block-1")
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, v)
}

func TestClient_GetRoundUnknown(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetRound(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrRoundNotComplete))
}

func TestClient_WaitForRound(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	done := make(chan map[string][]byte, 1)
	go func() {
		pairs, err := c.WaitForRound(ctx, 2, 10*time.Millisecond)
		if err == nil {
			done <- pairs
		}
		close(done)
	}()

	// The waiter polls before the round exists.
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.StartRound(ctx, 2, 1))
	require.NoError(t, c.PublishValues(ctx, 2, "worker-0", map[string][]byte{"result": []byte("ok")}))

	select {
	case pairs, ok := <-done:
		require.True(t, ok, "WaitForRound returned an error")
		assert.Equal(t, "ok", string(pairs["result"]))
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForRound did not return")
	}
}

func TestClient_WaitForRoundCancelled(t *testing.T) {
	c := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.WaitForRound(ctx, 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// expiringService fails GetRound the way a transport does when it notices
// the deadline before the caller's context does.
type expiringService struct {
	apiv1.CoordinationServiceClient
	code codes.Code
}

func (s expiringService) GetRound(ctx context.Context, in *apiv1.GetRoundRequest, opts ...grpc.CallOption) (*apiv1.GetRoundResponse, error) {
	return nil, status.Error(s.code, "context deadline exceeded")
}

func TestClient_WaitForRoundRPCDeadline(t *testing.T) {
	for _, code := range []codes.Code{codes.DeadlineExceeded, codes.Canceled} {
		t.Run(code.String(), func(t *testing.T) {
			c := &Client{service: expiringService{code: code}}

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err := c.WaitForRound(ctx, 3, time.Second)
			require.Error(t, err)
			assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
		})
	}
}

func TestClient_WaitForRoundRPCCanceledWithoutDeadline(t *testing.T) {
	c := &Client{service: expiringService{code: codes.Canceled}}

	_, err := c.WaitForRound(context.Background(), 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, codes.Canceled, status.Code(err))
}
