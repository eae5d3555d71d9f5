package store

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyCommand(t testing.TB, fsm *FSM, cmd Command) interface{} {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return fsm.Apply(&raft.Log{Data: data})
}

func TestNewFSM(t *testing.T) {
	fsm := NewFSM()
	require.NotNil(t, fsm.rounds)
	assert.Zero(t, fsm.Rounds())
}

func TestFSM_PutRound(t *testing.T) {
	fsm := NewFSM()

	result := applyCommand(t, fsm, Command{Op: OpPutRound, Round: 1, Blob: []byte("blocks")})
	require.Nil(t, result)

	blob, ok := fsm.Round(1)
	require.True(t, ok)
	assert.Equal(t, "blocks", string(blob))

	// A later put replaces the aggregate.
	applyCommand(t, fsm, Command{Op: OpPutRound, Round: 1, Blob: []byte("final")})
	blob, _ = fsm.Round(1)
	assert.Equal(t, "final", string(blob))
}

func TestFSM_PutEmptyRound(t *testing.T) {
	fsm := NewFSM()

	applyCommand(t, fsm, Command{Op: OpPutRound, Round: 9})

	blob, ok := fsm.Round(9)
	assert.True(t, ok)
	assert.Empty(t, blob)
}

func TestFSM_DropRound(t *testing.T) {
	fsm := NewFSM()
	applyCommand(t, fsm, Command{Op: OpPutRound, Round: 2, Blob: []byte("x")})

	result := applyCommand(t, fsm, Command{Op: OpDropRound, Round: 2})
	require.Nil(t, result)

	_, ok := fsm.Round(2)
	assert.False(t, ok)
}

func TestFSM_Apply_InvalidOperation(t *testing.T) {
	fsm := NewFSM()

	result := applyCommand(t, fsm, Command{Op: "SET", Round: 1})
	err, ok := result.(error)
	require.True(t, ok)
	assert.Contains(t, err.Error(), "unrecognized command op")
}

func TestFSM_Apply_Garbage(t *testing.T) {
	fsm := NewFSM()

	result := fsm.Apply(&raft.Log{Data: []byte("{not json")})
	_, ok := result.(error)
	assert.True(t, ok)
}

func TestFSM_SnapshotRestore(t *testing.T) {
	fsm := NewFSM()
	applyCommand(t, fsm, Command{Op: OpPutRound, Round: 1, Blob: []byte("one")})
	applyCommand(t, fsm, Command{Op: OpPutRound, Round: 2, Blob: []byte("two")})

	snapshot, err := fsm.Snapshot()
	require.NoError(t, err)

	// Mutations after the snapshot must not leak into it.
	applyCommand(t, fsm, Command{Op: OpDropRound, Round: 1})

	var buf bytes.Buffer
	require.NoError(t, snapshot.Persist(&mockSnapshotSink{buf: &buf}))
	snapshot.Release()

	restored := NewFSM()
	applyCommand(t, restored, Command{Op: OpPutRound, Round: 7, Blob: []byte("stale")})
	require.NoError(t, restored.Restore(io.NopCloser(&buf)))

	assert.Equal(t, 2, restored.Rounds())
	one, ok := restored.Round(1)
	require.True(t, ok)
	assert.Equal(t, "one", string(one))
	_, ok = restored.Round(7)
	assert.False(t, ok)
}

func TestFSM_RestoreGarbage(t *testing.T) {
	fsm := NewFSM()
	err := fsm.Restore(io.NopCloser(bytes.NewReader([]byte("nope"))))
	require.Error(t, err)
}

type mockSnapshotSink struct {
	buf *bytes.Buffer
}

func (m *mockSnapshotSink) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *mockSnapshotSink) Close() error                { return nil }
func (m *mockSnapshotSink) ID() string                  { return "test-snapshot" }
func (m *mockSnapshotSink) Cancel() error               { return nil }
