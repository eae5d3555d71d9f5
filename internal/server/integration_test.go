package server

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
)

func TestRoundLifecycle_EndToEnd(t *testing.T) {
	client, s := setupTestServerWithGRPC(t)
	ctx := context.Background()

	roundID := uint64(1)
	workers := []string{"worker-0", "worker-1", "worker-2"}

	for range workers {
		startResp, err := client.StartRound(ctx, &apiv1.StartRoundRequest{
			RoundId:         roundID,
			ExpectedWorkers: int32(len(workers)),
		})
		require.NoError(t, err)
		require.True(t, startResp.Success)
	}

	for i, workerID := range workers {
		resp, err := client.PublishValues(ctx, &apiv1.PublishValuesRequest{
			RoundId:  roundID,
			WorkerId: workerID,
			Pairs: []*apiv1.KeyValuePair{
				{Key: fmt.Sprintf("block-%d", i), Value: []byte("value-" + workerID)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, i == len(workers)-1, resp.RoundComplete)
	}

	blob, ok := s.Round(roundID)
	require.True(t, ok, "round aggregate should be replicated once all workers publish")
	assert.NotEmpty(t, blob)

	got, err := client.GetValue(ctx, &apiv1.GetValueRequest{RoundId: roundID, Key: "block-1"})
	require.NoError(t, err)
	assert.Equal(t, "value-worker-1", string(got.Value))

	round, err := client.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: roundID})
	require.NoError(t, err)
	require.True(t, round.Complete)
	assert.Len(t, round.Pairs, 3)
}

func TestRoundLifecycle_MultipleRounds(t *testing.T) {
	client, s := setupTestServerWithGRPC(t)
	ctx := context.Background()

	for roundID := uint64(1); roundID <= 3; roundID++ {
		_, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: roundID, ExpectedWorkers: 1})
		require.NoError(t, err)

		_, err = client.PublishValues(ctx, &apiv1.PublishValuesRequest{
			RoundId:  roundID,
			WorkerId: "worker-0",
			Pairs:    []*apiv1.KeyValuePair{{Key: "round-key", Value: []byte(fmt.Sprint(roundID))}},
		})
		require.NoError(t, err)

		_, ok := s.Round(roundID)
		require.True(t, ok, "round %d should be stored", roundID)
	}

	got, err := client.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 2, Key: "round-key"})
	require.NoError(t, err)
	assert.Equal(t, "2", string(got.Value))
}

func TestRoundLifecycle_ConcurrentWorkers(t *testing.T) {
	client, _ := setupTestServerWithGRPC(t)
	ctx := context.Background()

	const numWorkers = 8
	roundID := uint64(1)

	var wg sync.WaitGroup
	errs := make(chan error, numWorkers)
	completions := make(chan bool, numWorkers)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if _, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: roundID, ExpectedWorkers: numWorkers}); err != nil {
				errs <- err
				return
			}
			resp, err := client.PublishValues(ctx, &apiv1.PublishValuesRequest{
				RoundId:  roundID,
				WorkerId: fmt.Sprintf("worker-%d", worker),
				Pairs: []*apiv1.KeyValuePair{
					{Key: fmt.Sprintf("block-%d", worker), Value: []byte{byte(worker)}},
				},
			})
			if err != nil {
				errs <- err
				return
			}
			completions <- resp.RoundComplete
		}(i)
	}
	wg.Wait()
	close(errs)
	close(completions)

	for err := range errs {
		require.NoError(t, err)
	}
	completed := 0
	for c := range completions {
		if c {
			completed++
		}
	}
	assert.Equal(t, 1, completed, "exactly one publish completes the round")

	round, err := client.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: roundID})
	require.NoError(t, err)
	assert.Len(t, round.Pairs, numWorkers)
}

func TestEdgeCases_EmptyPairs(t *testing.T) {
	client, s := setupTestServerWithGRPC(t)
	ctx := context.Background()

	_, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 2})
	require.NoError(t, err)

	for _, w := range []string{"worker-0", "worker-1"} {
		resp, err := client.PublishValues(ctx, &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: w})
		require.NoError(t, err)
		require.True(t, resp.Success)
	}

	_, ok := s.Round(1)
	require.True(t, ok, "a synchronization-only round is still stored")

	round, err := client.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 1})
	require.NoError(t, err)
	assert.True(t, round.Complete)
	assert.Empty(t, round.Pairs)
}

func TestEdgeCases_GetValueBeforeRoundComplete(t *testing.T) {
	client, _ := setupTestServerWithGRPC(t)
	ctx := context.Background()

	_, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 2})
	require.NoError(t, err)
	_, err = client.PublishValues(ctx, &apiv1.PublishValuesRequest{
		RoundId: 1, WorkerId: "worker-0", Pairs: []*apiv1.KeyValuePair{{Key: "k", Value: []byte("v")}},
	})
	require.NoError(t, err)

	_, err = client.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "k"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestEdgeCases_LargeValue(t *testing.T) {
	client, _ := setupTestServerWithGRPC(t)
	ctx := context.Background()

	_, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 1})
	require.NoError(t, err)

	largeValue := make([]byte, 1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}
	_, err = client.PublishValues(ctx, &apiv1.PublishValuesRequest{
		RoundId: 1, WorkerId: "worker-0", Pairs: []*apiv1.KeyValuePair{{Key: "large-key", Value: largeValue}},
	})
	require.NoError(t, err)

	got, err := client.GetValue(ctx, &apiv1.GetValueRequest{RoundId: 1, Key: "large-key"})
	require.NoError(t, err)
	assert.Equal(t, largeValue, got.Value)
}

func TestEdgeCases_ManyKeys(t *testing.T) {
	client, _ := setupTestServerWithGRPC(t)
	ctx := context.Background()

	_, err := client.StartRound(ctx, &apiv1.StartRoundRequest{RoundId: 1, ExpectedWorkers: 1})
	require.NoError(t, err)

	pairs := make([]*apiv1.KeyValuePair, 1000)
	for i := range pairs {
		pairs[i] = &apiv1.KeyValuePair{Key: fmt.Sprintf("key-%04d", i), Value: []byte(fmt.Sprint(i))}
	}
	_, err = client.PublishValues(ctx, &apiv1.PublishValuesRequest{RoundId: 1, WorkerId: "worker-0", Pairs: pairs})
	require.NoError(t, err)

	round, err := client.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: 1})
	require.NoError(t, err)
	require.Len(t, round.Pairs, 1000)
	assert.Equal(t, "key-0000", round.Pairs[0].Key)
	assert.Equal(t, "key-0999", round.Pairs[999].Key)
}
