package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupClusterNode starts a TCP-backed node on an ephemeral port.
func setupClusterNode(t *testing.T, nodeID, dataDir string, bootstrap bool) *Store {
	t.Helper()

	s, err := NewStore(Config{
		NodeID:           nodeID,
		ListenAddr:       "127.0.0.1:0",
		DataDir:          dataDir,
		Bootstrap:        bootstrap,
		HeartbeatTimeout: 200 * time.Millisecond,
		ElectionTimeout:  200 * time.Millisecond,
		CommitTimeout:    10 * time.Millisecond,
	})
	require.NoError(t, err, "node %s", nodeID)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestCluster_RoundReplicatesToFollowers(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-node raft cluster")
	}
	tmpDir := t.TempDir()

	leader := setupClusterNode(t, "node1", filepath.Join(tmpDir, "node1"), true)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, leader.WaitForLeader(ctx))

	followers := make([]*Store, 0, 2)
	for i := 2; i <= 3; i++ {
		id := fmt.Sprintf("node%d", i)
		f := setupClusterNode(t, id, filepath.Join(tmpDir, id), false)
		require.NoError(t, leader.AddPeer(id, f.Addr()))
		followers = append(followers, f)
	}

	require.NoError(t, leader.PutRound(1, []byte("blocks")))

	for _, f := range followers {
		assert.False(t, f.IsLeader())
		require.Eventually(t, func() bool {
			blob, ok := f.Round(1)
			return ok && string(blob) == "blocks"
		}, 5*time.Second, 50*time.Millisecond)
	}

	require.ErrorIs(t, followers[0].PutRound(2, nil), ErrNotLeader)
}
