package crdt

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/zoobzio/pushz"
)

// Store is one replica of the map.
type Store[V any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	replica string
	combine CombineFunc[V]
	entries map[string]Entry[V]
	clock   uint64

	storage       pushz.SorterStorage[Entry[V]]
	itemsInMemory int
	logger        *slog.Logger
}

// NewStore creates an empty replica. Uploads are sorted in memory unless
// WithSorterStorage is set.
func NewStore[V any](replica string, combine CombineFunc[V]) *Store[V] {
	return &Store[V]{
		replica:       replica,
		combine:       combine,
		entries:       make(map[string]Entry[V]),
		storage:       pushz.NewMemoryStorage[Entry[V]](),
		itemsInMemory: 10_000,
		logger:        slog.Default(),
	}
}

// WithSorterStorage sets where uploads spill runs of itemsInMemory entries.
func (s *Store[V]) WithSorterStorage(storage pushz.SorterStorage[Entry[V]], itemsInMemory int) *Store[V] {
	s.storage = storage
	s.itemsInMemory = itemsInMemory
	return s
}

// WithLogger sets the logger.
func (s *Store[V]) WithLogger(logger *slog.Logger) *Store[V] {
	s.logger = logger
	return s
}

// Replica returns the replica id.
func (s *Store[V]) Replica() string {
	return s.replica
}

// Put writes value under key and returns the new version.
func (s *Store[V]) Put(key string, value V) Entry[V] {
	s.clock++
	e := Entry[V]{Key: key, Value: value, Timestamp: s.clock, Replica: s.replica}
	s.Apply(e)
	return e
}

// Delete writes a tombstone for key and returns it.
func (s *Store[V]) Delete(key string) Entry[V] {
	s.clock++
	e := Entry[V]{Key: key, Timestamp: s.clock, Replica: s.replica, Tombstone: true}
	s.Apply(e)
	return e
}

// Apply merges a version received from any replica.
func (s *Store[V]) Apply(e Entry[V]) {
	s.clock = max(s.clock, e.Timestamp)
	if current, ok := s.entries[e.Key]; ok {
		e = s.combine(current, e)
	}
	s.entries[e.Key] = e
}

// Get returns the live value of key.
func (s *Store[V]) Get(key string) (V, bool) {
	e, ok := s.entries[key]
	if !ok || e.Tombstone {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Len returns the number of live keys.
func (s *Store[V]) Len() int {
	n := 0
	for _, e := range s.entries {
		if !e.Tombstone {
			n++
		}
	}
	return n
}

// Snapshot returns every entry, tombstones included, sorted by key.
func (s *Store[V]) Snapshot() []Entry[V] {
	keys := slices.Sorted(maps.Keys(s.entries))
	entries := make([]Entry[V], len(keys))
	for i, k := range keys {
		entries[i] = s.entries[k]
	}
	return entries
}

// Download streams a snapshot in key order, ready to be merged by a peer.
func (s *Store[V]) Download() pushz.Supplier[Entry[V]] {
	return pushz.OfSlice(s.Snapshot())
}

// Upload returns a consumer merging a peer's entries into the store. The
// entries may arrive in any order and repeat keys; they are sorted, merged
// with a snapshot of the store and applied when the stream ends. It
// acknowledges once everything was applied.
func (s *Store[V]) Upload() pushz.Consumer[Entry[V]] {
	u := &upload[V]{store: s}
	u.BaseConsumer = pushz.NewBaseConsumer[Entry[V]](u)
	return u
}

type upload[V any] struct {
	*pushz.BaseConsumer[Entry[V]]
	store  *Store[V]
	sorter *pushz.Sorter[string, Entry[V]]
}

func (u *upload[V]) OnStarted() {
	s := u.store
	u.sorter = pushz.NewSorterWithConfig[string, Entry[V]](s.storage, Key[V], cmp.Compare[string], pushz.SorterConfig{
		ItemsInMemory: s.itemsInMemory,
		Name:          "crdt-upload-" + s.replica,
	}).WithLogger(s.logger)
	u.sorter.Input().Consume(u.Supplier())

	merged := pushz.ToList[Entry[V]]()
	pushz.StreamTo(MergeStreams(s.combine, s.Download(), u.sorter.Output()), pushz.Consumer[Entry[V]](merged))
	merged.Result().OnComplete(func(entries []Entry[V], err error) {
		if err != nil {
			u.CloseWithError(err)
			return
		}
		for _, e := range entries {
			s.Apply(e)
		}
		s.logger.Debug("crdt upload applied", "replica", s.replica, "entries", len(entries))
		u.Acknowledge()
	})
}

// The sorter's input owns the end of the peer stream.
func (u *upload[V]) OnEndOfStream() {}

func (u *upload[V]) OnError(err error) {
	if u.sorter != nil {
		u.sorter.Input().CloseWithError(err)
	}
}
