// Package crdt is a last-writer-wins map replicated over pushz streams.
// Replicas exchange key-sorted entry streams; merging is a Reducer combine
// and deletes travel as tombstones.
package crdt

import (
	"cmp"

	"github.com/zoobzio/pushz"
)

// Entry is one versioned key. Timestamp is a Lamport clock value; Replica
// breaks ties between concurrent writes.
type Entry[V any] struct {
	Key       string `json:"key"`
	Value     V      `json:"value,omitempty"`
	Timestamp uint64 `json:"ts"`
	Replica   string `json:"replica"`
	Tombstone bool   `json:"tombstone,omitempty"`
}

// Key returns the entry key.
func Key[V any](e Entry[V]) string {
	return e.Key
}

// CombineFunc merges two versions of the same key. Replicas converge only if
// it is commutative and idempotent.
type CombineFunc[V any] func(a, b Entry[V]) Entry[V]

// LastWriterWins keeps the version with the higher timestamp, then the
// higher replica id.
func LastWriterWins[V any](a, b Entry[V]) Entry[V] {
	if c := cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), cmp.Compare(a.Replica, b.Replica)); c < 0 {
		return b
	}
	return a
}

// Merge is the reducer strategy folding every version of a key with
// combine. Tombstones are emitted like any other version.
func Merge[V any](combine CombineFunc[V]) pushz.ReducerStrategy[string, Entry[V], Entry[V], Entry[V]] {
	return pushz.Combine[string, Entry[V]](combine)
}

// MergeLive is Merge with tombstone-aware completion: a key whose winning
// version is a removal is not emitted.
func MergeLive[V any](combine CombineFunc[V]) pushz.ReducerStrategy[string, Entry[V], Entry[V], Entry[V]] {
	return pushz.ReducerFuncs[string, Entry[V], Entry[V], Entry[V]]{
		OnFirstItemFunc: func(_ pushz.Sender[Entry[V]], _ string, e Entry[V]) Entry[V] {
			return e
		},
		OnNextItemFunc: func(_ pushz.Sender[Entry[V]], _ string, e Entry[V], acc Entry[V]) Entry[V] {
			return combine(acc, e)
		},
		OnCompleteFunc: func(out pushz.Sender[Entry[V]], _ string, acc Entry[V]) {
			if !acc.Tombstone {
				out.Send(acc)
			}
		},
	}
}

// MergeStreams merges key-sorted entry streams into one key-sorted stream
// with a single entry per key, tombstones included.
func MergeStreams[V any](combine CombineFunc[V], sources ...pushz.Supplier[Entry[V]]) pushz.Supplier[Entry[V]] {
	return mergeWith(Merge(combine), sources)
}

// Compact merges key-sorted entry streams into the live view: one entry per
// key that was not removed.
func Compact[V any](combine CombineFunc[V], sources ...pushz.Supplier[Entry[V]]) pushz.Supplier[Entry[V]] {
	return mergeWith(MergeLive(combine), sources)
}

func mergeWith[V any](strategy pushz.ReducerStrategy[string, Entry[V], Entry[V], Entry[V]], sources []pushz.Supplier[Entry[V]]) pushz.Supplier[Entry[V]] {
	r := pushz.NewReducer[string, Entry[V], Entry[V]](cmp.Compare[string]).WithName("crdt-merge")
	inputs := make([]pushz.Consumer[Entry[V]], len(sources))
	for i := range sources {
		inputs[i] = pushz.AddInput(r, Key[V], strategy)
	}
	for i, source := range sources {
		pushz.StreamTo(source, inputs[i])
	}
	return r.Output()
}

// Live drops tombstones.
func Live[V any]() *pushz.Filter[Entry[V]] {
	return pushz.NewFilter(func(e Entry[V]) bool {
		return !e.Tombstone
	}).WithName("crdt-live")
}
