package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
)

func publish(t *testing.T, srv *Server, round uint64, worker string, kv map[string]string) *apiv1.PublishValuesResponse {
	t.Helper()
	pairs := make([]*apiv1.KeyValuePair, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, &apiv1.KeyValuePair{Key: k, Value: []byte(v)})
	}
	resp, err := srv.PublishValues(context.Background(), &apiv1.PublishValuesRequest{
		RoundId:  round,
		WorkerId: worker,
		Pairs:    pairs,
	})
	require.NoError(t, err)
	return resp
}

func startRound(t *testing.T, srv *Server, round uint64, expected int32) {
	t.Helper()
	resp, err := srv.StartRound(context.Background(), &apiv1.StartRoundRequest{RoundId: round, ExpectedWorkers: expected})
	require.NoError(t, err)
	require.True(t, resp.Success)
}

func TestServer_StartRound(t *testing.T) {
	srv := NewServer(newFakeStore(), nil)
	startRound(t, srv, 1, 3)

	// Every worker starts the round; the repeat is a no-op.
	startRound(t, srv, 1, 3)

	_, err := srv.StartRound(context.Background(), &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 2})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = srv.StartRound(context.Background(), &apiv1.StartRoundRequest{RoundId: 2, ExpectedWorkers: 0})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_NotLeader(t *testing.T) {
	fs := newFakeStore()
	fs.leader = false
	srv := NewServer(fs, nil)
	ctx := context.Background()

	_, err := srv.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = srv.PublishValues(ctx, &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: "w"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = srv.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = srv.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestServer_PublishValues_CompleteRound(t *testing.T) {
	fs := newFakeStore()
	srv := NewServer(fs, nil)
	startRound(t, srv, 1, 2)

	resp := publish(t, srv, 1, "worker-0", map[string]string{"block-0": "a"})
	assert.False(t, resp.RoundComplete)
	_, persisted := fs.Round(1)
	assert.False(t, persisted)

	resp = publish(t, srv, 1, "worker-1", map[string]string{"block-1": "b"})
	assert.True(t, resp.RoundComplete)
	_, persisted = fs.Round(1)
	assert.True(t, persisted)

	_, err := srv.PublishValues(context.Background(), &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: "worker-2"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestServer_PublishValues_Rejects(t *testing.T) {
	srv := NewServer(newFakeStore(), nil)
	ctx := context.Background()

	_, err := srv.PublishValues(ctx, &apiv1.PublishValuesRequest{RoundId: 9, WorkerId: "w"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	startRound(t, srv, 1, 1)
	_, err = srv.PublishValues(ctx, &apiv1.PublishValuesRequest{RoundId: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = srv.PublishValues(ctx, &apiv1.PublishValuesRequest{
		RoundId: 1, WorkerId: "w", Pairs: []*apiv1.KeyValuePair{{Key: ""}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_DuplicateWorkerPublish(t *testing.T) {
	srv := NewServer(newFakeStore(), nil)
	startRound(t, srv, 1, 2)

	publish(t, srv, 1, "worker-0", map[string]string{"k": "v1"})
	resp := publish(t, srv, 1, "worker-0", map[string]string{"k": "v2"})
	assert.False(t, resp.RoundComplete, "a repeated worker must not complete the round")

	resp = publish(t, srv, 1, "worker-1", nil)
	require.True(t, resp.RoundComplete)

	got, err := srv.GetValue(context.Background(), &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got.Value))
}

func TestServer_PersistFailureAllowsRetry(t *testing.T) {
	fs := newFakeStore()
	fs.putErr = errors.New("disk full")
	srv := NewServer(fs, nil)
	startRound(t, srv, 1, 1)

	_, err := srv.PublishValues(context.Background(), &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: "w"})
	assert.Equal(t, codes.Internal, status.Code(err))

	fs.mu.Lock()
	fs.putErr = nil
	fs.mu.Unlock()

	resp := publish(t, srv, 1, "w", map[string]string{"k": "v"})
	assert.True(t, resp.RoundComplete)
	assert.Equal(t, 2, fs.putCall)
}

func TestServer_GetValue(t *testing.T) {
	srv := NewServer(newFakeStore(), nil)
	ctx := context.Background()

	_, err := srv.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	startRound(t, srv, 1, 1)
	_, err = srv.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	assert.Equal(t, codes.NotFound, status.Code(err), "round not complete yet")

	publish(t, srv, 1, "w", map[string]string{"k": "v"})

	got, err := srv.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "v", string(got.Value))

	_, err = srv.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_GetRound(t *testing.T) {
	srv := NewServer(newFakeStore(), nil)
	ctx := context.Background()

	_, err := srv.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 4})
	assert.Equal(t, codes.NotFound, status.Code(err))

	startRound(t, srv, 4, 2)
	resp, err := srv.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 4})
	require.NoError(t, err)
	assert.False(t, resp.Complete)
	assert.Empty(t, resp.Pairs)

	publish(t, srv, 4, "worker-1", map[string]string{"b": "2"})
	publish(t, srv, 4, "worker-0", map[string]string{"c": "3", "a": "1"})

	resp, err = srv.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 4})
	require.NoError(t, err)
	require.True(t, resp.Complete)
	require.Len(t, resp.Pairs, 3)
	for i, key := range []string{"a", "b", "c"} {
		assert.Equal(t, key, resp.Pairs[i].Key)
	}
}

func TestServer_ReadsPersistedRoundAfterRestart(t *testing.T) {
	fs := newFakeStore()
	first := NewServer(fs, nil)
	startRound(t, first, 1, 1)
	publish(t, first, 1, "w", map[string]string{"k": "v"})

	// A fresh server over the same store serves the round and treats it as
	// complete.
	second := NewServer(fs, nil)
	got, err := second.GetValue(context.Background(), &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "v", string(got.Value))

	startRound(t, second, 1, 1)
	_, err = second.PublishValues(context.Background(), &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: "w"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}
