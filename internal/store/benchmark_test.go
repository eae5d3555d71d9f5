package store

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/raft"
)

func BenchmarkFSM_PutRound(b *testing.B) {
	fsm := NewFSM()

	data, _ := json.Marshal(Command{Op: OpPutRound, Round: 1, Blob: make([]byte, 4096)})
	log := &raft.Log{Data: data}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fsm.Apply(log)
	}
}

func BenchmarkFSM_ConcurrentReads(b *testing.B) {
	fsm := NewFSM()
	data, _ := json.Marshal(Command{Op: OpPutRound, Round: 1, Blob: []byte("blob")})
	fsm.Apply(&raft.Log{Data: data})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			fsm.Round(1)
		}
	})
}
