package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-coloring/api/v1"
)

// ErrRoundNotComplete is returned by reads against a round that has not
// received every expected publish.
var ErrRoundNotComplete = errors.New("round not complete")

// Client provides a Go client library for coloring workers to interact with
// the silhouette coordination layer.
type Client struct {
	conn    *grpc.ClientConn
	service apiv1.CoordinationServiceClient
}

// NewClient creates a new client connection to a silhouette server. Extra
// dial options are appended after the insecure transport credentials.
func NewClient(serverAddr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	return &Client{
		conn:    conn,
		service: apiv1.NewCoordinationServiceClient(conn),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// StartRound initializes a round on the server. Safe to call from every
// worker with the same expectation.
func (c *Client) StartRound(ctx context.Context, roundID uint64, expectedWorkers int32) error {
	resp, err := c.service.StartRound(ctx, &apiv1.StartRoundRequest{
		RoundId:         roundID,
		ExpectedWorkers: expectedWorkers,
	})
	if err != nil {
		return fmt.Errorf("failed to start round: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("server returned failure for start round")
	}
	return nil
}

// PublishValues publishes key-value pairs for a given round.
func (c *Client) PublishValues(ctx context.Context, roundID uint64, workerID string, pairs map[string][]byte) error {
	kvPairs := make([]*apiv1.KeyValuePair, 0, len(pairs))
	for k, v := range pairs {
		kvPairs = append(kvPairs, &apiv1.KeyValuePair{Key: k, Value: v})
	}

	resp, err := c.service.PublishValues(ctx, &apiv1.PublishValuesRequest{
		RoundId:  roundID,
		WorkerId: workerID,
		Pairs:    kvPairs,
	})
	if err != nil {
		return fmt.Errorf("failed to publish values: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("server returned failure for publish values")
	}
	return nil
}

// GetValue retrieves the value published under key in a completed round.
func (c *Client) GetValue(ctx context.Context, roundID uint64, key string) ([]byte, error) {
	resp, err := c.service.GetValue(ctx, &apiv1.GetValueRequest{RoundId: roundID, Key: key})
	if err != nil {
		return nil, fmt.Errorf("failed to get value: %w", err)
	}
	return resp.Value, nil
}

// GetRound returns every pair of a completed round. It returns
// ErrRoundNotComplete while the round is open or unknown to the server.
func (c *Client) GetRound(ctx context.Context, roundID uint64) (map[string][]byte, error) {
	resp, err := c.service.GetRound(ctx, &apiv1.GetRoundRequest{RoundId: roundID})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("round %d: %w", roundID, ErrRoundNotComplete)
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if !resp.Complete {
		return nil, fmt.Errorf("round %d: %w", roundID, ErrRoundNotComplete)
	}

	pairs := make(map[string][]byte, len(resp.Pairs))
	for _, p := range resp.Pairs {
		pairs[p.Key] = p.Value
	}
	return pairs, nil
}

// WaitForRound polls GetRound every poll interval until the round completes
// or ctx is done.
func (c *Client) WaitForRound(ctx context.Context, roundID uint64, poll time.Duration) (map[string][]byte, error) {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		pairs, err := c.GetRound(ctx, roundID)
		if err == nil {
			return pairs, nil
		}
		switch status.Code(err) {
		case codes.DeadlineExceeded, codes.Canceled:
			// The RPC can observe the deadline before ctx reports it.
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for round %d: %w", roundID, ctx.Err())
			case <-time.After(poll):
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for round %d: %w", roundID, ctx.Err())
		}
		if !errors.Is(err, ErrRoundNotComplete) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for round %d: %w", roundID, ctx.Err())
		case <-ticker.C:
		}
	}
}
